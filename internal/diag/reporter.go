package diag

import (
	"errors"

	"udonsharp/internal/source"
)

// Reporter: минимальный контракт получения диагностик от фаз.
type Reporter interface {
	Report(code Code, sev Severity, primary source.Span, msg string, notes []Note)
}

// BagReporter writes into a *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{
		Severity: sev, Code: code, Message: msg,
		Primary: primary, Notes: notes,
	})
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Report(Code, Severity, source.Span, string, []Note) {}

// ReportError is a shortcut for SevError diagnostics.
func ReportError(r Reporter, code Code, primary source.Span, msg string) {
	if r == nil {
		return
	}
	r.Report(code, SevError, primary, msg, nil)
}

// ReportWarning is a shortcut for SevWarning diagnostics.
func ReportWarning(r Reporter, code Code, primary source.Span, msg string) {
	if r == nil {
		return
	}
	r.Report(code, SevWarning, primary, msg, nil)
}

// ReportErr reports err as a diagnostic. *Error values keep their code and
// span; anything else becomes UnknownCode at fallback.
func ReportErr(r Reporter, err error, fallback source.Span) {
	if r == nil || err == nil {
		return
	}
	var de *Error
	if errors.As(err, &de) {
		d := de.Diagnostic(fallback)
		r.Report(d.Code, d.Severity, d.Primary, d.Message, d.Notes)
		return
	}
	r.Report(UnknownCode, SevError, fallback, err.Error(), nil)
}
