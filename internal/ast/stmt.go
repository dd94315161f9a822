package ast

import (
	"baml/internal/source"
	"baml/internal/token"
)

type StmtKind uint8

const (
	StmtLet StmtKind = iota
	StmtAssign
	StmtExpr
	StmtReturn
	StmtBreak
	StmtContinue
	StmtWhile
	StmtForIn
	StmtForC
	StmtAssert
	// StmtHeader is a //# header comment turned into a statement.
	StmtHeader
)

func (k StmtKind) String() string {
	switch k {
	case StmtLet:
		return "Let"
	case StmtAssign:
		return "Assign"
	case StmtExpr:
		return "Expr"
	case StmtReturn:
		return "Return"
	case StmtBreak:
		return "Break"
	case StmtContinue:
		return "Continue"
	case StmtWhile:
		return "While"
	case StmtForIn:
		return "ForIn"
	case StmtForC:
		return "ForC"
	case StmtAssert:
		return "Assert"
	case StmtHeader:
		return "Header"
	default:
		return "Unknown"
	}
}

type Stmt struct {
	Kind StmtKind
	Span source.Span
	Data StmtData
}

type StmtData interface {
	stmtData()
}

// Block is `{ stmts; tail }`. Tail is the trailing expression without a
// semicolon, nil when the block ends with a statement.
type Block struct {
	Stmts []*Stmt
	Tail  *Expr
	Span  source.Span
}

type LetData struct {
	Name     string
	NameSpan source.Span
	Type     *TypeExpr // optional annotation
	Value    *Expr
	Watch    bool
}

func (*LetData) stmtData() {}

// AssignData covers = and compound assignments; Op is token.Assign or one
// of the op-assign kinds.
type AssignData struct {
	Target *Expr
	Op     token.Kind
	Value  *Expr
}

func (*AssignData) stmtData() {}

type ExprStmtData struct {
	X *Expr
}

func (*ExprStmtData) stmtData() {}

type ReturnData struct {
	Value *Expr // nil for bare return
}

func (*ReturnData) stmtData() {}

type WhileData struct {
	Cond *Expr
	Body *Block
}

func (*WhileData) stmtData() {}

type ForInData struct {
	Name     string
	NameSpan source.Span
	Iter     *Expr
	Body     *Block
}

func (*ForInData) stmtData() {}

// ForCData is `for (init; cond; step) body`; every header part may be nil.
type ForCData struct {
	Init *Stmt
	Cond *Expr
	Step *Stmt
	Body *Block
}

func (*ForCData) stmtData() {}

type AssertData struct {
	Cond *Expr
}

func (*AssertData) stmtData() {}

type HeaderData struct {
	Level int
	Title string
}

func (*HeaderData) stmtData() {}
