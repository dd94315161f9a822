package ast

import "baml/internal/source"

// File is one parsed source file.
type File struct {
	ID    source.FileID
	Span  source.Span
	Items []*Item
}

type ItemKind uint8

const (
	ItemClass ItemKind = iota
	ItemEnum
	ItemFunction
)

func (k ItemKind) String() string {
	switch k {
	case ItemClass:
		return "class"
	case ItemEnum:
		return "enum"
	case ItemFunction:
		return "function"
	default:
		return "item"
	}
}

// Item is a top-level declaration.
type Item struct {
	Kind     ItemKind
	Name     string
	NameSpan source.Span
	Span     source.Span
	Data     ItemData
}

type ItemData interface {
	itemData()
}

type ClassData struct {
	Fields  []FieldDecl
	Methods []*FuncDecl
}

func (*ClassData) itemData() {}

type FieldDecl struct {
	Name string
	Type *TypeExpr
	Span source.Span
}

type EnumData struct {
	Variants []Variant
}

func (*EnumData) itemData() {}

type Variant struct {
	Name string
	Span source.Span
}

// FuncDecl is a function or a class method. Exactly one of Body and Llm is set.
type FuncDecl struct {
	Name     string
	NameSpan source.Span
	Params   []Param
	Result   *TypeExpr
	Body     *Block
	Llm      *LlmBody
	Span     source.Span
	// HasSelf marks methods declared with a leading self parameter.
	HasSelf bool
}

func (*FuncDecl) itemData() {}

type Param struct {
	Name string
	Type *TypeExpr
	Span source.Span
}

// LlmBody is the `client "..." prompt #"..."#` body of an LLM function.
type LlmBody struct {
	Client string
	Prompt string
	Span   source.Span
}
