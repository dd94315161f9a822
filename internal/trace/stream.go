package trace

import (
	"io"
	"sync"
)

const (
	chromeHeader = "{\"traceEvents\":[\n"
	chromeFooter = "\n]}\n"
)

// StreamTracer writes every accepted event as soon as it arrives. Write
// errors are dropped: tracing never fails the traced build or run.
type StreamTracer struct {
	mu      sync.Mutex
	w       io.Writer
	owned   io.Closer
	level   Level
	format  Format
	written int
	closed  bool
}

// NewStreamTracer writes to w. The tracer does not close w.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return newStream(w, nil, level, format)
}

func newStream(w io.Writer, owned io.Closer, level Level, format Format) *StreamTracer {
	if format == FormatChrome {
		_, _ = io.WriteString(w, chromeHeader)
	}
	return &StreamTracer{w: w, owned: owned, level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if !accepts(t.level, ev) {
		return
	}
	ev.Seq = NextSeq()
	data := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.format == FormatChrome && t.written > 0 {
		data = append([]byte(",\n"), data...)
	}
	t.written++
	_, _ = t.w.Write(data)
}

// Flush flushes buffered writers and syncs files the tracer opened.
func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	if s, ok := t.owned.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}

// Close terminates a chrome array and closes the output if the tracer
// opened it. Later events are dropped.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.format == FormatChrome {
		_, _ = io.WriteString(t.w, chromeFooter)
	}
	if t.owned != nil {
		return t.owned.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level { return t.level }

func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
