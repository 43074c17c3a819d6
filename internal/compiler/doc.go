// Package compiler is the expression-capture core of udonsharp.
//
// A front end walks source expressions and, for each access chain, opens a
// CaptureScope on the unit's Context and feeds it one token at a time with
// ResolveAccessToken. The scope classifies the chain as it grows (namespace,
// type, field, property, local, method, ...) and emits VM instructions into
// the Context's asm.Sink whenever a value has to be materialized. ExecuteGet,
// ExecuteSet, Invoke and CastSymbolToType finish a chain.
//
// Every failure is a *diag.Error and aborts the unit; instructions emitted
// before the failure stay in the sink. Structural misuse (closing scopes out
// of order, reading the wrong payload) panics.
package compiler
