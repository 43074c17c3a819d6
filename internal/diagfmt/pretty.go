package diagfmt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"udonsharp/internal/diag"
	"udonsharp/internal/source"
)

type palette struct {
	sev    map[diag.Severity]*color.Color
	msg    *color.Color
	gutter *color.Color
	caret  map[diag.Severity]*color.Color
	note   *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   mk(color.FgRed, color.Bold),
			diag.SevWarning: mk(color.FgYellow, color.Bold),
			diag.SevInfo:    mk(color.FgCyan, color.Bold),
		},
		msg:    mk(color.Bold),
		gutter: mk(color.FgBlue, color.Bold),
		caret: map[diag.Severity]*color.Color{
			diag.SevError:   mk(color.FgRed),
			diag.SevWarning: mk(color.FgYellow),
			diag.SevInfo:    mk(color.FgCyan),
		},
		note: mk(color.FgGreen),
	}
}

func (p palette) severity(sev diag.Severity) *color.Color {
	if c, ok := p.sev[sev]; ok {
		return c
	}
	return p.sev[diag.SevError]
}

func (p palette) underline(sev diag.Severity) *color.Color {
	if c, ok := p.caret[sev]; ok {
		return c
	}
	return p.caret[diag.SevError]
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
//
//	error[SEM3001]: <Message>
//	  --> <path>:<line>:<col>
//	   |
//	 3 |   let x = nothing
//	   |           ^~~~~~~
//
// затем Notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) error {
	pal := newPalette(opts.Color)
	bw := bufio.NewWriter(w)
	for i, d := range limit(bag.Items(), opts.Max) {
		if i > 0 {
			bw.WriteString("\n")
		}
		writePretty(bw, d, fs, opts, pal)
	}
	return bw.Flush()
}

func writePretty(w *bufio.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, pal palette) {
	fmt.Fprintf(w, "%s: %s\n",
		pal.severity(d.Severity).Sprintf("%s[%s]", d.Severity.Label(), d.Code.ID()),
		pal.msg.Sprint(d.Message))

	f := fileOf(fs, d.Primary)
	if f == nil {
		return
	}
	path := displayPath(f.Path, opts.PathMode, opts.BaseDir)
	if len(f.Content) == 0 {
		fmt.Fprintf(w, "  %s %s\n", pal.gutter.Sprint("-->"), path)
		writeNotes(w, d, fs, "  ", opts, pal)
		return
	}

	start, end := fs.Resolve(d.Primary)
	first := start.Line
	if opts.Context > 0 {
		ctx := uint32(opts.Context) // #nosec G115 -- checked positive
		if ctx >= first {
			first = 1
		} else {
			first -= ctx
		}
	}
	gutterWidth := len(strconv.FormatUint(uint64(start.Line), 10))
	blank := strings.Repeat(" ", gutterWidth)

	fmt.Fprintf(w, "%s%s %s:%d:%d\n", blank, pal.gutter.Sprint("-->"), path, start.Line, start.Col)
	fmt.Fprintf(w, "%s %s\n", blank, pal.gutter.Sprint("|"))
	for n := first; n <= start.Line; n++ {
		num := fmt.Sprintf("%*d", gutterWidth, n)
		fmt.Fprintf(w, "%s %s %s\n", pal.gutter.Sprint(num), pal.gutter.Sprint("|"), f.Line(n))
	}

	line := f.Line(start.Line)
	from := int(start.Col) - 1
	to := len(line)
	if end.Line == start.Line {
		to = int(end.Col) - 1
	}
	from = min(max(from, 0), len(line))
	to = min(max(to, from), len(line))
	fmt.Fprintf(w, "%s %s %s%s\n", blank, pal.gutter.Sprint("|"),
		caretPadding(line[:from]), pal.underline(d.Severity).Sprint(underline(line[from:to])))

	writeNotes(w, d, fs, blank+" ", opts, pal)
}

func writeNotes(w *bufio.Writer, d diag.Diagnostic, fs *source.FileSet, indent string, opts PrettyOpts, pal palette) {
	if !opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		fmt.Fprintf(w, "%s%s %s %s", indent, pal.gutter.Sprint("="), pal.note.Sprint("note:"), n.Msg)
		if n.Span != d.Primary {
			if loc, ok := location(fs, n.Span, opts.PathMode, opts.BaseDir); ok {
				fmt.Fprintf(w, " (%s)", loc)
			}
		}
		w.WriteString("\n")
	}
}

// caretPadding reproduces the display width of prefix, keeping tabs so the
// caret lines up with the echoed source line.
func caretPadding(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return b.String()
}

func underline(text string) string {
	width := runewidth.StringWidth(text)
	if width < 1 {
		width = 1
	}
	return "^" + strings.Repeat("~", width-1)
}

// Short prints one line per diagnostic:
// <path>:<line>:<col>: <severity> <CODE>: <Message>
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts ShortOpts) error {
	bw := bufio.NewWriter(w)
	for _, d := range limit(bag.Items(), opts.Max) {
		loc, ok := location(fs, d.Primary, opts.PathMode, opts.BaseDir)
		if !ok {
			loc = "<unknown>"
		}
		fmt.Fprintf(bw, "%s: %s %s: %s\n", loc, d.Severity.Label(), d.Code.ID(), d.Message)
	}
	return bw.Flush()
}

func location(fs *source.FileSet, sp source.Span, mode PathMode, base string) (string, bool) {
	f := fileOf(fs, sp)
	if f == nil {
		return "", false
	}
	path := displayPath(f.Path, mode, base)
	if len(f.Content) == 0 {
		return path, true
	}
	start := f.Position(sp.Start)
	return fmt.Sprintf("%s:%d:%d", path, start.Line, start.Col), true
}

func fileOf(fs *source.FileSet, sp source.Span) *source.File {
	if fs == nil {
		return nil
	}
	return fs.Get(sp.File)
}

func limit(items []diag.Diagnostic, n int) []diag.Diagnostic {
	if n > 0 && n < len(items) {
		return items[:n]
	}
	return items
}
