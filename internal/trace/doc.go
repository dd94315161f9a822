// Package trace is the structured logging layer shared by the compiler
// pipeline, the VM and the host runtime.
//
// # Usage
//
//	bamlvm run --trace=- --trace-level=detail main.baml
//	bamlvm test --trace=out.json --trace-level=phase   # chrome://tracing
//
// # Tracers
//
//   - Nop: what FromContext returns when tracing is off
//   - StreamTracer: writes events as they arrive (text, ndjson, chrome)
//   - RingTracer: keeps the last N events, dumped when a command fails
//   - MultiTracer: both of the above
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: command spans, mostly useful with ring mode
//   - LevelPhase: driver and pass boundaries
//   - LevelDetail: per-function events (codegen, suspensions, futures)
//   - LevelDebug: everything including single VM instructions
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//
//	ctx, span := trace.Start(ctx, trace.ScopePass, "parse")
//	defer span.End("")
package trace
