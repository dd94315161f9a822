package trace

type nopTracer struct{}

func (nopTracer) Emit(*Event) {}

func (nopTracer) Flush() error { return nil }

func (nopTracer) Close() error { return nil }

func (nopTracer) Level() Level { return LevelOff }

func (nopTracer) Enabled() bool { return false }

// Nop discards everything. FromContext returns it when ctx carries no
// tracer, so callers never check for nil.
var Nop Tracer = nopTracer{}
