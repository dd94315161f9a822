package source

import (
	"testing"
)

func TestFileSet_ResolveAndLines(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("main.baml", []byte("function f() -> int {\r\n  1\r\n}\n"))
	f := fs.Get(id)
	if f == nil {
		t.Fatal("file not registered")
	}
	if string(f.Content) != "function f() -> int {\n  1\n}\n" {
		t.Fatalf("CRLF not normalized: %q", f.Content)
	}

	tests := []struct {
		name string
		off  uint32
		want LineCol
	}{
		{"first byte", 0, LineCol{Line: 1, Col: 1}},
		{"newline belongs to its line", 21, LineCol{Line: 1, Col: 22}},
		{"start of second line", 22, LineCol{Line: 2, Col: 1}},
		{"literal on second line", 24, LineCol{Line: 2, Col: 3}},
		{"closing brace", 26, LineCol{Line: 3, Col: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
			if got != tt.want {
				t.Errorf("Resolve(%d) = %+v, want %+v", tt.off, got, tt.want)
			}
			if line := f.LineOf(tt.off); line != tt.want.Line {
				t.Errorf("LineOf(%d) = %d, want %d", tt.off, line, tt.want.Line)
			}
		})
	}

	if got := f.GetLine(2); got != "  1" {
		t.Errorf("GetLine(2) = %q", got)
	}
	if got := f.GetLine(9); got != "" {
		t.Errorf("GetLine(9) = %q, want empty", got)
	}
	if got := fs.Position(Span{File: id, Start: 24, End: 25}); got != "main.baml:2:3" {
		t.Errorf("Position = %q", got)
	}
}

func TestFileSet_GetByPathReturnsLatest(t *testing.T) {
	fs := NewFileSet()
	fs.AddVirtual("a/../b.baml", []byte("one"))
	second := fs.AddVirtual("b.baml", []byte("two"))

	f, ok := fs.GetByPath("./b.baml")
	if !ok {
		t.Fatal("expected file to be found")
	}
	if f.ID != second || string(f.Content) != "two" {
		t.Fatalf("got id=%d content=%q, want id=%d content=two", f.ID, f.Content, second)
	}
	if fs.Get(FileID(42)) != nil {
		t.Fatal("unknown id must resolve to nil")
	}
}

func TestSpan_Cover(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Span
		expected Span
	}{
		{"disjoint", Span{File: 1, Start: 2, End: 4}, Span{File: 1, Start: 8, End: 9}, Span{File: 1, Start: 2, End: 9}},
		{"nested", Span{File: 1, Start: 2, End: 10}, Span{File: 1, Start: 4, End: 5}, Span{File: 1, Start: 2, End: 10}},
		{"other file ignored", Span{File: 1, Start: 2, End: 4}, Span{File: 2, Start: 0, End: 9}, Span{File: 1, Start: 2, End: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Cover(tt.b); got != tt.expected {
				t.Errorf("Cover() = %+v, want %+v", got, tt.expected)
			}
		})
	}
	if !(Span{File: 1, Start: 0, End: 10}).Contains(Span{File: 1, Start: 3, End: 10}) {
		t.Error("Contains should accept a suffix span")
	}
}
