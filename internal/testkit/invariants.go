// Package testkit holds structural checks shared by tests and fuzzers.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"baml/internal/ast"
	"baml/internal/source"
)

// CheckSpanInvariants runs a minimal set of span invariants on a parsed file:
// 1) file.Span is within file content bounds
// 2) every item span is non-empty and fully contained in file.Span
// 3) names, fields, variants and methods sit inside their item
func CheckSpanInvariants(f *ast.File, sf *source.File) error {
	if f == nil || sf == nil {
		return fmt.Errorf("nil file")
	}
	if f.Span.File != sf.ID {
		return fmt.Errorf("file span points to different file id: got=%d want=%d", f.Span.File, sf.ID)
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	if f.Span.End > lenContent || f.Span.Start > f.Span.End {
		return fmt.Errorf("file span %v outside content of %d bytes", f.Span, lenContent)
	}

	for _, item := range f.Items {
		if item == nil {
			return fmt.Errorf("nil item")
		}
		sp := item.Span
		if sp.End <= sp.Start {
			return fmt.Errorf("empty item span: %v", sp)
		}
		if sp.File != sf.ID {
			return fmt.Errorf("item span file mismatch: got=%d want=%d", sp.File, sf.ID)
		}
		if !within(sp, f.Span) {
			return fmt.Errorf("item span %v is outside file span %v", sp, f.Span)
		}
		if !within(item.NameSpan, sp) {
			return fmt.Errorf("%s %s: name span %v outside %v", item.Kind, item.Name, item.NameSpan, sp)
		}
		if err := checkItemData(item); err != nil {
			return fmt.Errorf("%s %s: %w", item.Kind, item.Name, err)
		}
	}
	return nil
}

func checkItemData(item *ast.Item) error {
	switch d := item.Data.(type) {
	case *ast.ClassData:
		for _, fd := range d.Fields {
			if !within(fd.Span, item.Span) {
				return fmt.Errorf("field %s span %v outside the class", fd.Name, fd.Span)
			}
		}
		for _, m := range d.Methods {
			if !within(m.Span, item.Span) {
				return fmt.Errorf("method %s span %v outside the class", m.Name, m.Span)
			}
		}
	case *ast.EnumData:
		for _, v := range d.Variants {
			if !within(v.Span, item.Span) {
				return fmt.Errorf("variant %s span %v outside the enum", v.Name, v.Span)
			}
		}
	case *ast.FuncDecl:
		if (d.Body == nil) == (d.Llm == nil) {
			return fmt.Errorf("function needs exactly one of a body and an LLM body")
		}
		for _, p := range d.Params {
			if !within(p.Span, item.Span) {
				return fmt.Errorf("parameter %s span %v outside the function", p.Name, p.Span)
			}
		}
	}
	return nil
}

func within(inner, outer source.Span) bool {
	return inner.File == outer.File && inner.Start >= outer.Start && inner.End <= outer.End && inner.Start <= inner.End
}
