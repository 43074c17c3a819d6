package source

import "testing"

func TestPositionAcrossLines(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.uas", []byte("ab\ncd\n\nx"))
	f := fs.Get(id)

	cases := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{1, LineCol{1, 2}},
		{3, LineCol{2, 1}},
		{4, LineCol{2, 2}},
		{6, LineCol{3, 1}},
		{7, LineCol{4, 1}},
	}
	for _, tc := range cases {
		if got := f.Position(tc.off); got != tc.want {
			t.Fatalf("Position(%d) = %+v, want %+v", tc.off, got, tc.want)
		}
	}
	if got := f.Line(2); got != "cd" {
		t.Fatalf("Line(2) = %q", got)
	}
	if got := f.Line(4); got != "x" {
		t.Fatalf("Line(4) = %q", got)
	}
	if got := f.Line(9); got != "" {
		t.Fatalf("Line(9) = %q, want empty", got)
	}
}

func TestNormalizeCRLF(t *testing.T) {
	got := string(normalizeCRLF([]byte("a\r\nb\rc")))
	if got != "a\nb\rc" {
		t.Fatalf("normalizeCRLF = %q", got)
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 6}
	b := Span{File: 1, Start: 2, End: 5}
	if got := a.Cover(b); got.Start != 2 || got.End != 6 {
		t.Fatalf("Cover = %v", got)
	}
	if got := a.Cover(Span{File: 2, Start: 0, End: 9}); got != a {
		t.Fatalf("Cover across files must not change span")
	}
}
