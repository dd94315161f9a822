package hir

import (
	"baml/internal/source"
	"baml/internal/types"
)

// Module is a checked program.
type Module struct {
	Types   *types.Interner
	Classes []*Class
	Enums   []*Enum
	Funcs   []*Func
}

// Class describes a class. Field order is the instance layout.
type Class struct {
	Name    string
	Fields  []Field
	Span    source.Span
	Builtin bool
}

// FieldIndex returns the position of name in the layout or -1.
func (c *Class) FieldIndex(name string) int {
	for i, f := range c.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

type Field struct {
	Name string
	Type types.TypeID
	Span source.Span
}

type Enum struct {
	Name     string
	Variants []string
	Span     source.Span
	Builtin  bool
}

// VariantIndex returns the ordinal of name or -1.
func (e *Enum) VariantIndex(name string) int {
	for i, v := range e.Variants {
		if v == name {
			return i
		}
	}
	return -1
}

// FuncKind distinguishes bytecode functions from LLM functions.
type FuncKind uint8

const (
	FuncExec FuncKind = iota
	FuncLlm
)

func (k FuncKind) String() string {
	if k == FuncLlm {
		return "llm"
	}
	return "exec"
}

type Param struct {
	Name string
	Type types.TypeID
	Span source.Span
}

// Func is a user function or class method. Methods are named
// "Class.method" and take the receiver as their first parameter "self".
type Func struct {
	Name   string
	Kind   FuncKind
	Params []Param
	Result types.TypeID
	Body   *Block // nil for FuncLlm
	Llm    *LlmSpec
	Span   source.Span
}

// LlmSpec is the client and prompt template of an LLM function.
type LlmSpec struct {
	Client string
	Prompt string
}

// Class looks a class up by name.
func (m *Module) Class(name string) *Class {
	for _, c := range m.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (m *Module) Enum(name string) *Enum {
	for _, e := range m.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

func (m *Module) Func(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}
