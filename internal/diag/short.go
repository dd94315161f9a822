package diag

import (
	"fmt"
	"sort"
	"strings"

	"baml/internal/source"
)

type shortDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Line     uint32
	Column   uint32
	Message  string
}

// FormatShortDiagnostics renders diagnostics one per line in a stable order:
// "severity CODE path:line:col message". Multi-line messages are folded.
func FormatShortDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}

	rendered := make([]shortDiagnostic, 0, len(diags))
	for _, d := range diags {
		rendered = append(rendered, renderShort(fs, d.Severity.Label(), d.Code, d.Primary, d.Message))
		if includeNotes {
			for _, n := range d.Notes {
				rendered = append(rendered, renderShort(fs, "note", d.Code, n.Span, n.Msg))
			}
		}
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		return di.Column < dj.Column
	})

	var sb strings.Builder
	for i, r := range rendered {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s %s %s:%d:%d %s", r.Severity, r.Code, r.Path, r.Line, r.Column, r.Message)
	}
	return sb.String()
}

func renderShort(fs *source.FileSet, sev string, code Code, sp source.Span, msg string) shortDiagnostic {
	path := "<unknown>"
	if f := fs.Get(sp.File); f != nil {
		path = f.Path
	}
	start, _ := fs.Resolve(sp)
	return shortDiagnostic{
		Severity: sev,
		Code:     code.ID(),
		Path:     path,
		Line:     start.Line,
		Column:   start.Col,
		Message:  strings.Join(strings.Fields(msg), " "),
	}
}
