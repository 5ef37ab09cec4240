// Package trace provides the tracing subsystem for symverhdr.
//
// Tracing follows a run through provisioning, symbol extraction,
// reconciliation and header synthesis, which helps to find the release or
// artifact that made a run slow or made it hang inside a long glibc build.
//
// # Usage
//
//	symverhdr generate --trace=- --trace-level=detail -v 2.17
//
// # Tracers
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to a file or stderr
//   - RingTracer: circular buffer, dumped when a run fails; in "both"
//     mode it also streams every event
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: only failure dumps
//   - LevelPhase: driver and pipeline stages
//   - LevelDetail: per-release events
//   - LevelDebug: everything including per-artifact events
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeStage, "reconcile", 0)
//	defer span.End("")
package trace
