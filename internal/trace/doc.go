// Package trace is the compiler's structured tracing layer.
//
// Tracers receive span and point events from the driver (one span per
// compilation unit), the compiler (one span per method) and, at debug level,
// individual token resolutions, overload picks and loop expansions.
//
//	udonsharp compile --trace=- --trace-level=detail Assets/Scripts
//
// Implementations: a nop tracer when disabled, StreamTracer writing text or
// NDJSON as events arrive, RingTracer keeping the last N events for crash
// dumps, and MultiTracer fanning out to several of them.
//
// Tracers travel through the pipeline on the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeUnit, "unit:Player", 0)
//	defer span.End("")
package trace
