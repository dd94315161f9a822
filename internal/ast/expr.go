package ast

import (
	"baml/internal/source"
	"baml/internal/token"
)

type ExprKind uint8

const (
	ExprIdent ExprKind = iota
	ExprLit
	ExprArray
	ExprMap
	ExprClassLit
	ExprField
	ExprIndex
	ExprCall
	ExprUnary
	ExprBinary
	ExprInstanceof
	ExprIf
	ExprBlock
	// ExprWatch is x.$watch.<method>(args).
	ExprWatch
)

func (k ExprKind) String() string {
	switch k {
	case ExprIdent:
		return "Ident"
	case ExprLit:
		return "Lit"
	case ExprArray:
		return "Array"
	case ExprMap:
		return "Map"
	case ExprClassLit:
		return "ClassLit"
	case ExprField:
		return "Field"
	case ExprIndex:
		return "Index"
	case ExprCall:
		return "Call"
	case ExprUnary:
		return "Unary"
	case ExprBinary:
		return "Binary"
	case ExprInstanceof:
		return "Instanceof"
	case ExprIf:
		return "If"
	case ExprBlock:
		return "Block"
	case ExprWatch:
		return "Watch"
	default:
		return "Unknown"
	}
}

type Expr struct {
	Kind ExprKind
	Span source.Span
	Data ExprData
}

type ExprData interface {
	exprData()
}

type IdentData struct {
	Name string
}

func (*IdentData) exprData() {}

type LitKind uint8

const (
	LitInt LitKind = iota
	LitFloat
	LitString
	LitBool
	LitNull
)

type LitData struct {
	Kind   LitKind
	Int    int64
	Float  float64
	String string
	Bool   bool
	// Raw marks #"..."# strings.
	Raw bool
}

func (*LitData) exprData() {}

type ArrayData struct {
	Elems []*Expr
}

func (*ArrayData) exprData() {}

type MapEntry struct {
	Key     string
	KeySpan source.Span
	Value   *Expr
}

type MapData struct {
	Entries []MapEntry
}

func (*MapData) exprData() {}

// FieldInit is `name: value` or `...value` inside a class literal.
type FieldInit struct {
	Name   string
	Value  *Expr
	Spread bool
	Span   source.Span
}

type ClassLitData struct {
	Name     string // dotted for builtin classes: baml.HttpRequest
	NameSpan source.Span
	Fields   []FieldInit
}

func (*ClassLitData) exprData() {}

type FieldData struct {
	X        *Expr
	Name     string
	NameSpan source.Span
}

func (*FieldData) exprData() {}

type IndexData struct {
	X     *Expr
	Index *Expr
}

func (*IndexData) exprData() {}

type CallData struct {
	Callee   *Expr
	TypeArgs []*TypeExpr
	Args     []*Expr
}

func (*CallData) exprData() {}

type UnaryData struct {
	Op token.Kind // Bang or Minus
	X  *Expr
}

func (*UnaryData) exprData() {}

type BinaryData struct {
	Op token.Kind
	X  *Expr
	Y  *Expr
}

func (*BinaryData) exprData() {}

type InstanceofData struct {
	X         *Expr
	Class     string
	ClassSpan source.Span
}

func (*InstanceofData) exprData() {}

// IfData is an if/else chain; Else is nil, an ExprBlock or a nested ExprIf.
type IfData struct {
	Cond *Expr
	Then *Block
	Else *Expr
}

func (*IfData) exprData() {}

type BlockData struct {
	Block *Block
}

func (*BlockData) exprData() {}

type WatchData struct {
	X      *Expr
	Method string
	Args   []*Expr
}

func (*WatchData) exprData() {}

// PathOf returns "a.b.c" for a chain of identifiers and field accesses.
func PathOf(e *Expr) (string, bool) {
	switch e.Kind {
	case ExprIdent:
		return e.Data.(*IdentData).Name, true
	case ExprField:
		d := e.Data.(*FieldData)
		base, ok := PathOf(d.X)
		if !ok {
			return "", false
		}
		return base + "." + d.Name, true
	}
	return "", false
}
