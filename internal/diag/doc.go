// Package diag defines the diagnostic model shared by the script front end,
// the expression-capture core and the driver.
//
// # Data model
//
// Diagnostic is the central record: Severity, a compact numeric Code with a
// stable string ID (SYN2xxx for the script front end, SEM3xxx for code
// generation, ASM5xxx for assembly, PRJ6xxx for project configuration), a
// short Message, the Primary source.Span and optional Notes.
//
// # Terminal faults
//
// Code generation does not recover from errors: the first failure aborts the
// method being compiled. Those failures travel as *Error values through the
// ordinary error returns of the compiler API and are converted into a
// Diagnostic by the caller that knows the span of the statement
// (Error.Diagnostic / ReportErr). Structural invariant violations inside the
// compiler are panics, not *Error values.
//
// # Emitting diagnostics
//
// Phases report through a Reporter; BagReporter collects into a Bag, which
// supports limits, sorting and deduplication. Rendering lives in
// internal/diagfmt.
package diag
