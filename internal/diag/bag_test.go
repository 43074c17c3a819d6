package diag

import (
	"fmt"
	"testing"

	"udonsharp/internal/source"
)

func TestBagRespectsLimit(t *testing.T) {
	bag := NewBag(2)
	for i := 0; i < 3; i++ {
		bag.Add(NewError(SemaNoOverload, source.Span{}, "x"))
	}
	if bag.Len() != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", bag.Len())
	}
	if !bag.HasErrors() {
		t.Fatalf("expected HasErrors")
	}
}

func TestBagSortAndDedup(t *testing.T) {
	bag := NewBag(10)
	bag.Add(NewError(SemaNoCast, source.Span{File: 1, Start: 5, End: 6}, "b"))
	bag.Add(New(SevWarning, SemaInfo, source.Span{File: 0, Start: 1, End: 2}, "a"))
	bag.Add(NewError(SemaNoCast, source.Span{File: 1, Start: 5, End: 6}, "dup"))
	bag.Sort()
	bag.Dedup()

	items := bag.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items after dedup, got %d", len(items))
	}
	if items[0].Primary.File != 0 || items[1].Message != "b" {
		t.Fatalf("unexpected order: %+v", items)
	}
}

func TestErrorConversion(t *testing.T) {
	err := Errorf(SemaMemberAccess, "'%s' does not contain a definition for '%s'", "Vector3", "w")
	wrapped := fmt.Errorf("compile Start: %w", err)
	if CodeOf(wrapped) != SemaMemberAccess {
		t.Fatalf("CodeOf lost the code through wrapping")
	}

	fallback := source.Span{File: 3, Start: 10, End: 12}
	d := err.Diagnostic(fallback)
	if d.Primary != fallback {
		t.Fatalf("expected fallback span, got %v", d.Primary)
	}

	own := source.Span{File: 3, Start: 1, End: 2}
	d = Errorf(SemaNoCast, "x").At(own).At(fallback).Diagnostic(fallback)
	if d.Primary != own {
		t.Fatalf("expected first At span to win, got %v", d.Primary)
	}

	bag := NewBag(4)
	ReportErr(BagReporter{Bag: bag}, wrapped, fallback)
	if bag.Len() != 1 || bag.Items()[0].Code != SemaMemberAccess {
		t.Fatalf("ReportErr did not unwrap: %+v", bag.Items())
	}
}

func TestCodeID(t *testing.T) {
	cases := map[Code]string{
		SynUnexpectedToken: "SYN2001",
		SemaNoOverload:     "SEM3003",
		AsmUnplacedLabel:   "ASM5001",
		ProjBadManifest:    "PRJ6001",
	}
	for code, want := range cases {
		if got := code.ID(); got != want {
			t.Fatalf("ID(%d) = %q, want %q", code, got, want)
		}
	}
}
