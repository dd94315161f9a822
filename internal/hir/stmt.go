package hir

import (
	"baml/internal/source"
	"baml/internal/types"
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
	// StmtWatch re-registers a watched local with explicit options.
	StmtWatch
	// StmtNotify is x.$watch.notify().
	StmtNotify
	// StmtHeader marks a //# header comment; it only drives visualization.
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
	case StmtWatch:
		return "Watch"
	case StmtNotify:
		return "Notify"
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

// Block is a lexical scope. A nil Tail yields null.
type Block struct {
	Stmts []*Stmt
	Tail  *Expr
	Span  source.Span
}

type LetData struct {
	Name  string
	Type  types.TypeID
	Value *Expr
	// Watch registers the binding with channel Name and the default filter.
	Watch bool
}

func (LetData) stmtData() {}

// AssignData stores Value into Target (ExprLocal, ExprField or ExprIndex).
// Compound assignments carry their operator in Op with Compound set.
type AssignData struct {
	Target   *Expr
	Value    *Expr
	Compound bool
	Op       BinaryOp
}

func (AssignData) stmtData() {}

type ExprStmtData struct {
	Expr *Expr
}

func (ExprStmtData) stmtData() {}

type ReturnData struct {
	Value *Expr // nil returns null
}

func (ReturnData) stmtData() {}

type WhileData struct {
	Cond *Expr
	Body *Block
}

func (WhileData) stmtData() {}

type ForInData struct {
	Name     string
	ElemType types.TypeID
	Iter     *Expr
	Body     *Block
}

func (ForInData) stmtData() {}

// ForCData is `for (init; cond; step)`. Every part is optional.
type ForCData struct {
	Init *Stmt
	Cond *Expr
	Step *Stmt
	Body *Block
}

func (ForCData) stmtData() {}

type AssertData struct {
	Cond *Expr
}

func (AssertData) stmtData() {}

// WatchData applies $watch.options. Nil Channel keeps the variable name,
// nil Filter selects the default change detection.
type WatchData struct {
	Name    string
	Channel *Expr
	Filter  *Expr
}

func (WatchData) stmtData() {}

type NotifyData struct {
	Name string
}

func (NotifyData) stmtData() {}

type HeaderData struct {
	Level int
	Title string
}

func (HeaderData) stmtData() {}
