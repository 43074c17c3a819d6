package diag

import (
	"errors"
	"fmt"

	"udonsharp/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

// Error is a terminal compile fault. Code generation stops at the first one;
// the driver turns it into a Diagnostic with the span of the statement being
// compiled.
type Error struct {
	Code    Code
	Message string
	Span    source.Span
	HasSpan bool
	Notes   []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code.ID(), e.Message)
}

// Errorf builds an *Error without a span.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// At attaches a primary span unless one is already set.
func (e *Error) At(sp source.Span) *Error {
	if !e.HasSpan {
		e.Span = sp
		e.HasSpan = true
	}
	return e
}

// WithNote appends a free-form note line.
func (e *Error) WithNote(format string, args ...any) *Error {
	e.Notes = append(e.Notes, fmt.Sprintf(format, args...))
	return e
}

// Diagnostic converts the error, filling in fallback when the error carries no span.
func (e *Error) Diagnostic(fallback source.Span) Diagnostic {
	sp := e.Span
	if !e.HasSpan {
		sp = fallback
	}
	d := NewError(e.Code, sp, e.Message)
	for _, n := range e.Notes {
		d = d.WithNote(sp, n)
	}
	return d
}

// CodeOf extracts the diagnostic code from err, or UnknownCode.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return UnknownCode
}
