package hir

import (
	"baml/internal/source"
	"baml/internal/types"
)

// ExprKind enumerates HIR expression kinds.
type ExprKind uint8

const (
	// ExprLiteral is int, float, bool, string or null.
	ExprLiteral ExprKind = iota
	// ExprLocal reads a local binding or parameter.
	ExprLocal
	// ExprGlobal references a top-level function, method or builtin by name.
	ExprGlobal
	ExprUnary
	// ExprBinary covers arithmetic, bitwise, comparison and the short-circuit
	// operators && and ||.
	ExprBinary
	ExprCall
	ExprField
	ExprIndex
	ExprArray
	ExprMap
	// ExprClassLit is class construction with optional spreads.
	ExprClassLit
	ExprVariant
	ExprInstanceof
	ExprIf
	ExprBlock
)

func (k ExprKind) String() string {
	switch k {
	case ExprLiteral:
		return "Literal"
	case ExprLocal:
		return "Local"
	case ExprGlobal:
		return "Global"
	case ExprUnary:
		return "Unary"
	case ExprBinary:
		return "Binary"
	case ExprCall:
		return "Call"
	case ExprField:
		return "Field"
	case ExprIndex:
		return "Index"
	case ExprArray:
		return "Array"
	case ExprMap:
		return "Map"
	case ExprClassLit:
		return "ClassLit"
	case ExprVariant:
		return "Variant"
	case ExprInstanceof:
		return "Instanceof"
	case ExprIf:
		return "If"
	case ExprBlock:
		return "Block"
	default:
		return "Unknown"
	}
}

// Expr is an HIR expression with its inferred type.
type Expr struct {
	Kind ExprKind
	Type types.TypeID
	Span source.Span
	Data ExprData
}

type ExprData interface {
	exprData()
}

type LiteralKind uint8

const (
	LiteralNull LiteralKind = iota
	LiteralInt
	LiteralFloat
	LiteralBool
	LiteralString
)

type LiteralData struct {
	Kind   LiteralKind
	Int    int64
	Float  float64
	Bool   bool
	String string
}

func (LiteralData) exprData() {}

type LocalData struct {
	Name string
}

func (LocalData) exprData() {}

type GlobalData struct {
	Name string
}

func (GlobalData) exprData() {}

type UnaryOp uint8

const (
	UnaryNot UnaryOp = iota
	UnaryNeg
)

func (op UnaryOp) String() string {
	if op == UnaryNot {
		return "!"
	}
	return "-"
}

type UnaryData struct {
	Op      UnaryOp
	Operand *Expr
}

func (UnaryData) exprData() {}

type BinaryOp uint8

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinBitAnd
	BinBitOr
	BinBitXor
	BinShl
	BinShr
	BinEq
	BinNotEq
	BinLt
	BinLtEq
	BinGt
	BinGtEq
	BinAnd
	BinOr
)

var binaryOpNames = [...]string{
	BinAdd:    "+",
	BinSub:    "-",
	BinMul:    "*",
	BinDiv:    "/",
	BinMod:    "%",
	BinBitAnd: "&",
	BinBitOr:  "|",
	BinBitXor: "^",
	BinShl:    "<<",
	BinShr:    ">>",
	BinEq:     "==",
	BinNotEq:  "!=",
	BinLt:     "<",
	BinLtEq:   "<=",
	BinGt:     ">",
	BinGtEq:   ">=",
	BinAnd:    "&&",
	BinOr:     "||",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "?"
}

// IsComparison reports == != < <= > >=.
func (op BinaryOp) IsComparison() bool {
	return op >= BinEq && op <= BinGtEq
}

// IsLogical reports the short-circuit operators.
func (op BinaryOp) IsLogical() bool {
	return op == BinAnd || op == BinOr
}

type BinaryData struct {
	Op    BinaryOp
	Left  *Expr
	Right *Expr
}

func (BinaryData) exprData() {}

// CallData is a call. When Async is set the callee is an LLM function or a
// future builtin and the call suspends; ResultType then holds the type the
// future resolves to and is passed as a trailing argument for fetch_as.
type CallData struct {
	Callee     *Expr
	Args       []*Expr
	Async      bool
	TypeArg    bool
	ResultType types.TypeID
}

func (CallData) exprData() {}

type FieldData struct {
	Object *Expr
	Class  string
	Name   string
	Index  int
}

func (FieldData) exprData() {}

// IndexData indexes an array (by int) or a map (by string key).
type IndexData struct {
	Object *Expr
	Index  *Expr
	IsMap  bool
}

func (IndexData) exprData() {}

type ArrayData struct {
	Elems []*Expr
}

func (ArrayData) exprData() {}

type MapEntry struct {
	Key   string
	Value *Expr
	Span  source.Span
}

type MapData struct {
	Entries []MapEntry
}

func (MapData) exprData() {}

// ClassInit is one initializer of a class literal, in source order.
// Spread initializers copy every field of Value.
type ClassInit struct {
	Spread bool
	Name   string
	Index  int
	Value  *Expr
	Span   source.Span
}

type ClassLitData struct {
	Class string
	// NumFields is the layout width of Class.
	NumFields int
	Inits     []ClassInit
}

func (ClassLitData) exprData() {}

type VariantData struct {
	Enum    string
	Variant string
	Index   int
}

func (VariantData) exprData() {}

type InstanceofData struct {
	Value *Expr
	Class string
}

func (InstanceofData) exprData() {}

// IfData is an if expression. Else is nil, another ExprIf or an ExprBlock.
type IfData struct {
	Cond *Expr
	Then *Block
	Else *Expr
}

func (IfData) exprData() {}

type BlockData struct {
	Block *Block
}

func (BlockData) exprData() {}
