package trace

import (
	"errors"
	"io"
)

// MultiTracer fans events out to several tracers.
type MultiTracer struct {
	level   Level
	tracers []Tracer
}

func NewMultiTracer(level Level, tracers ...Tracer) *MultiTracer {
	return &MultiTracer{level: level, tracers: tracers}
}

func (t *MultiTracer) Emit(ev *Event) {
	for _, tr := range t.tracers {
		tr.Emit(ev)
	}
}

func (t *MultiTracer) Flush() error { return t.each(Tracer.Flush) }

func (t *MultiTracer) Close() error { return t.each(Tracer.Close) }

func (t *MultiTracer) each(f func(Tracer) error) error {
	var errs []error
	for _, tr := range t.tracers {
		if err := f(tr); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dump writes the events of the first member that keeps them.
func (t *MultiTracer) Dump(w io.Writer, format Format) error {
	for _, tr := range t.tracers {
		if d, ok := tr.(Dumper); ok {
			return d.Dump(w, format)
		}
	}
	return nil
}

func (t *MultiTracer) Level() Level { return t.level }

func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }
