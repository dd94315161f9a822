package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"baml/internal/diag"
	"baml/internal/source"
)

// TestPathModes checks the path rendering modes.
func TestPathModes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("let x = \"unterminated string\n")
	fileID := fs.AddVirtual("/home/user/project/src/test.baml", content)

	bag := diag.NewBag(10)
	bag.Add(diag.New(
		diag.SevError,
		diag.LexUnterminatedString,
		source.Span{File: fileID, Start: 8, End: 28},
		"Unterminated string literal",
	))

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"Absolute path", PathModeAbsolute, "/home/user/project/src/test.baml:1:9"},
		{"Relative path", PathModeRelative, "src/test.baml:1:9"},
		{"Basename only", PathModeBasename, "test.baml:1:9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{Context: 1, PathMode: tt.mode, BaseDir: "/home/user/project"})
			output := buf.String()

			if !strings.Contains(output, tt.contains) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.contains, output)
			}
			if !strings.Contains(output, "ERROR") {
				t.Error("Expected ERROR in output")
			}
			if !strings.Contains(output, "LEX1002") {
				t.Error("Expected LEX1002 code in output")
			}
			if !strings.Contains(output, "Unterminated string") {
				t.Error("Expected error message in output")
			}
		})
	}
}

// TestPathModeAuto checks that long absolute paths shrink to a base name.
func TestPathModeAuto(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"Short path - as is", "test.baml", "test.baml:1:9"},
		{"Long absolute path - basename", "/very/long/absolute/path/to/some/nested/directory/file.baml", " file.baml:1:9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := source.NewFileSet()
			fileID := fs.AddVirtual(tt.path, []byte("let x = 42\n"))
			bag := diag.NewBag(10)
			bag.Add(diag.New(diag.SevWarning, diag.LexUnknownChar, source.Span{File: fileID, Start: 8, End: 10}, "Test warning"))

			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeAuto})
			output := " " + buf.String()
			if !strings.Contains(output, tt.expected) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.expected, output)
			}
		})
	}
}

func TestPrettySnippetAndNotes(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test.baml", []byte("function f() -> int {\n  let y = ;\n}\n"))

	d := diag.New(diag.SevError, diag.SynExpectExpression, source.Span{File: fileID, Start: 32, End: 33}, "expected expression")
	d = d.WithNote(source.Span{File: fileID, Start: 0, End: 8}, "in this function")
	bag := diag.NewBag(4)
	bag.Add(d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, ShowNotes: true})
	want := strings.Join([]string{
		"test.baml:2:11: ERROR SYN2006: expected expression",
		"2 |   let y = ;",
		"  |           ^",
		"  note: test.baml:1:1: in this function",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrettyUnderlinesWholeSpan(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("a.baml", []byte("let name = undefinedThing;"))
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.SemaUndefinedVariable, source.Span{File: fileID, Start: 11, End: 25}, "undefined variable"))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})
	if !strings.Contains(buf.String(), "           ^"+strings.Repeat("~", 13)+"\n") {
		t.Errorf("underline missing:\n%s", buf.String())
	}
}

func TestJSON(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("a.baml", []byte("let x = 1\nlet y = @\n"))
	bag := diag.NewBag(4)
	bag.Add(diag.NewError(diag.LexUnknownChar, source.Span{File: fileID, Start: 18, End: 19}, "unknown character '@'").
		WithNote(source.Span{File: fileID, Start: 0, End: 3}, "first statement"))
	bag.Add(diag.NewError(diag.SynExpectExpression, source.Span{File: fileID, Start: 18, End: 19}, "expected expression"))

	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, IncludeNotes: true, Max: 1}); err != nil {
		t.Fatal(err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count = %d", out.Count)
	}
	d := out.Diagnostics[0]
	if d.Code != "LEX1001" || d.Severity != "ERROR" || d.Location.StartLine != 2 || d.Location.StartCol != 9 {
		t.Errorf("diagnostic = %+v", d)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location.StartLine != 1 {
		t.Errorf("notes = %+v", d.Notes)
	}
}
