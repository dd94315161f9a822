// Package observ measures the wall-clock phases of a build and of a run
// for --timings.
package observ

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Phase is one measured step. Dur stays zero until the phase ends.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer records phases in the order they began. It is safe for concurrent
// use, the suite runner times files from several goroutines.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 4)} }

// Begin starts a phase and returns its index for End.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End closes the phase at idx. Unknown indexes are ignored.
func (t *Timer) End(idx int, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Track begins a phase and returns the function that ends it.
func (t *Timer) Track(name string) func(note string) {
	idx := t.Begin(name)
	return func(note string) { t.End(idx, note) }
}

// Phases returns a copy of the recorded phases.
func (t *Timer) Phases() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Phase(nil), t.phases...)
}

// Total sums the finished phases.
func (t *Timer) Total() time.Duration {
	var total time.Duration
	for _, p := range t.Phases() {
		total += p.Dur
	}
	return total
}

// WriteSummary prints one aligned line per phase and a total line.
func (t *Timer) WriteSummary(w io.Writer) error {
	phases := t.Phases()
	width := len("total")
	for _, p := range phases {
		width = max(width, len(p.Name))
	}
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range phases {
		fmt.Fprintf(&sb, "  %-*s %8.2f ms", width, p.Name, millis(p.Dur))
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-*s %8.2f ms\n", width, "total", millis(t.Total()))
	_, err := io.WriteString(w, sb.String())
	return err
}

// Summary is WriteSummary into a string.
func (t *Timer) Summary() string {
	var sb strings.Builder
	_ = t.WriteSummary(&sb)
	return sb.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
