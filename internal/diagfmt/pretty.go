package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"fortio.org/safecast"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"baml/internal/diag"
	"baml/internal/source"
)

type palette struct {
	sev    map[diag.Severity]*color.Color
	code   *color.Color
	caret  *color.Color
	gutter *color.Color
	note   *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevInfo:    color.New(color.FgCyan, color.Bold),
		},
		code:   color.New(color.Bold),
		caret:  color.New(color.FgRed, color.Bold),
		gutter: color.New(color.FgBlue),
		note:   color.New(color.FgCyan),
	}
	all := []*color.Color{p.code, p.caret, p.gutter, p.note}
	for _, c := range p.sev {
		all = append(all, c)
	}
	for _, c := range all {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty prints diagnostics for humans, in bag order (call bag.Sort first):
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the source line with the span underlined and, when enabled,
// the notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		sev := p.sev[d.Severity]
		if sev == nil {
			sev = p.code
		}
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			location(fs, d.Primary, opts), sev.Sprint(d.Severity.String()), p.code.Sprint(d.Code.ID()), d.Message)
		snippet(w, fs, d.Primary, opts, p)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), location(fs, n.Span, opts), n.Msg)
		}
	}
}

func location(fs *source.FileSet, sp source.Span, opts PrettyOpts) string {
	f := fs.Get(sp.File)
	if f == nil {
		return "<unknown>"
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", formatPath(f.Path, opts.PathMode, opts.BaseDir), start.Line, start.Col)
}

func snippet(w io.Writer, fs *source.FileSet, sp source.Span, opts PrettyOpts, p palette) {
	f := fs.Get(sp.File)
	if f == nil {
		return
	}
	start, end := fs.Resolve(sp)
	if start.Line == 0 {
		return
	}
	ctx := uint32(max(opts.Context, 0))
	first := start.Line - min(ctx, start.Line-1)
	last := start.Line + ctx
	if lines, err := safecast.Conv[uint32](len(f.LineIdx)); err == nil {
		last = min(last, lines+1)
	}
	width := len(fmt.Sprint(last))

	for line := first; line <= last; line++ {
		text := f.GetLine(line)
		text = strings.ReplaceAll(text, "\t", " ")
		fmt.Fprintf(w, "%s %s\n", p.gutter.Sprintf("%*d |", width, line), text)
		if line != start.Line {
			continue
		}
		col := int(start.Col) - 1
		col = min(max(col, 0), len(text))
		n := 1
		if end.Line == start.Line && end.Col > start.Col {
			n = int(end.Col - start.Col)
		}
		n = min(n, max(len(text)-col, 1))
		pad := runewidth.StringWidth(text[:col])
		marks := runewidth.StringWidth(text[col:min(col+n, len(text))])
		if marks < 1 {
			marks = 1
		}
		underline := "^" + strings.Repeat("~", marks-1)
		fmt.Fprintf(w, "%s %s%s\n", p.gutter.Sprintf("%*s |", width, ""), strings.Repeat(" ", pad), p.caret.Sprint(underline))
	}
}
