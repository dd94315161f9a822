package lexer

import (
	"testing"

	"baml/internal/source"
)

func TestCursor_Basics(t *testing.T) {
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("c.baml", []byte("ab")))
	c := NewCursor(f)

	if b0, b1, ok := c.Peek2(); !ok || b0 != 'a' || b1 != 'b' {
		t.Fatalf("Peek2 = %q %q %v", b0, b1, ok)
	}
	if _, _, _, ok := c.Peek3(); ok {
		t.Fatal("Peek3 must fail on two bytes")
	}
	m := c.Mark()
	if !c.Eat('a') || c.Eat('a') {
		t.Fatal("Eat mismatch")
	}
	c.Bump()
	if !c.EOF() || c.Bump() != 0 || c.Peek() != 0 {
		t.Fatal("expected EOF")
	}
	if sp := c.SpanFrom(m); sp.Start != 0 || sp.End != 2 {
		t.Fatalf("SpanFrom = %v", sp)
	}
	c.Reset(m)
	if c.Peek() != 'a' || c.PeekAt(1) != 'b' || c.PeekAt(2) != 0 {
		t.Fatal("Reset/PeekAt mismatch")
	}
}
