//nolint:errcheck // type assertions are checked by construction
package hir

import (
	"fmt"
	"io"
	"strings"

	"baml/internal/types"
)

// Printer dumps HIR in a compact indented text form.
type Printer struct {
	w      io.Writer
	types  *types.Interner
	indent int
	err    error
	// plain drops the @ and await markers, for labels shown to users.
	plain bool
}

func NewPrinter(w io.Writer, interner *types.Interner) *Printer {
	return &Printer{w: w, types: interner}
}

// Dump writes m to w.
func Dump(w io.Writer, m *Module) error {
	p := NewPrinter(w, m.Types)
	p.PrintModule(m)
	return p.err
}

// ExprString renders e on one line in source-like form.
func ExprString(e *Expr) string {
	var sb strings.Builder
	p := &Printer{w: &sb, plain: true}
	p.printExpr(e)
	out := sb.String()
	if e != nil && e.Kind == ExprBinary {
		out = out[1 : len(out)-1]
	}
	return out
}

func (p *Printer) PrintModule(m *Module) {
	for _, c := range m.Classes {
		if c.Builtin {
			continue
		}
		p.printf("class %s {\n", c.Name)
		for _, f := range c.Fields {
			p.printf("  %s: %s\n", f.Name, p.typeStr(f.Type))
		}
		p.printf("}\n")
	}
	for _, e := range m.Enums {
		if e.Builtin {
			continue
		}
		p.printf("enum %s { %s }\n", e.Name, strings.Join(e.Variants, " "))
	}
	for _, fn := range m.Funcs {
		p.PrintFunc(fn)
	}
}

func (p *Printer) PrintFunc(fn *Func) {
	params := make([]string, len(fn.Params))
	for i, prm := range fn.Params {
		params[i] = prm.Name + ": " + p.typeStr(prm.Type)
	}
	p.printf("fn %s(%s) -> %s", fn.Name, strings.Join(params, ", "), p.typeStr(fn.Result))
	if fn.Kind == FuncLlm {
		p.printf(" llm %q\n", fn.Llm.Client)
		return
	}
	p.printf(" ")
	p.printBlock(fn.Body)
	p.printf("\n")
}

func (p *Printer) printBlock(b *Block) {
	if b == nil {
		p.printf("{}")
		return
	}
	p.printf("{\n")
	p.indent++
	for _, s := range b.Stmts {
		p.pad()
		p.printStmt(s)
		p.printf("\n")
	}
	if b.Tail != nil {
		p.pad()
		p.printExpr(b.Tail)
		p.printf("\n")
	}
	p.indent--
	p.pad()
	p.printf("}")
}

func (p *Printer) printStmt(s *Stmt) {
	switch s.Kind {
	case StmtLet:
		d := s.Data.(LetData)
		if d.Watch {
			p.printf("watch ")
		}
		p.printf("let %s: %s = ", d.Name, p.typeStr(d.Type))
		p.printExpr(d.Value)
	case StmtAssign:
		d := s.Data.(AssignData)
		p.printExpr(d.Target)
		if d.Compound {
			p.printf(" %s= ", d.Op)
		} else {
			p.printf(" = ")
		}
		p.printExpr(d.Value)
	case StmtExpr:
		p.printExpr(s.Data.(ExprStmtData).Expr)
	case StmtReturn:
		p.printf("return")
		if v := s.Data.(ReturnData).Value; v != nil {
			p.printf(" ")
			p.printExpr(v)
		}
	case StmtBreak:
		p.printf("break")
	case StmtContinue:
		p.printf("continue")
	case StmtWhile:
		d := s.Data.(WhileData)
		p.printf("while ")
		p.printExpr(d.Cond)
		p.printf(" ")
		p.printBlock(d.Body)
	case StmtForIn:
		d := s.Data.(ForInData)
		p.printf("for %s in ", d.Name)
		p.printExpr(d.Iter)
		p.printf(" ")
		p.printBlock(d.Body)
	case StmtForC:
		d := s.Data.(ForCData)
		p.printf("for (")
		if d.Init != nil {
			p.printStmt(d.Init)
		}
		p.printf("; ")
		if d.Cond != nil {
			p.printExpr(d.Cond)
		}
		p.printf("; ")
		if d.Step != nil {
			p.printStmt(d.Step)
		}
		p.printf(") ")
		p.printBlock(d.Body)
	case StmtAssert:
		p.printf("assert ")
		p.printExpr(s.Data.(AssertData).Cond)
	case StmtWatch:
		d := s.Data.(WatchData)
		p.printf("watch %s", d.Name)
		if d.Channel != nil {
			p.printf(" channel=")
			p.printExpr(d.Channel)
		}
		if d.Filter != nil {
			p.printf(" when=")
			p.printExpr(d.Filter)
		}
	case StmtNotify:
		p.printf("notify %s", s.Data.(NotifyData).Name)
	case StmtHeader:
		d := s.Data.(HeaderData)
		p.printf("//%s %s", strings.Repeat("#", d.Level), d.Title)
	}
}

func (p *Printer) printExpr(e *Expr) {
	if e == nil {
		p.printf("<nil>")
		return
	}
	switch e.Kind {
	case ExprLiteral:
		d := e.Data.(LiteralData)
		switch d.Kind {
		case LiteralNull:
			p.printf("null")
		case LiteralInt:
			p.printf("%d", d.Int)
		case LiteralFloat:
			p.printf("%g", d.Float)
		case LiteralBool:
			p.printf("%t", d.Bool)
		case LiteralString:
			p.printf("%q", d.String)
		}
	case ExprLocal:
		p.printf("%s", e.Data.(LocalData).Name)
	case ExprGlobal:
		if p.plain {
			p.printf("%s", e.Data.(GlobalData).Name)
		} else {
			p.printf("@%s", e.Data.(GlobalData).Name)
		}
	case ExprUnary:
		d := e.Data.(UnaryData)
		p.printf("%s", d.Op)
		p.printExpr(d.Operand)
	case ExprBinary:
		d := e.Data.(BinaryData)
		p.printf("(")
		p.printExpr(d.Left)
		p.printf(" %s ", d.Op)
		p.printExpr(d.Right)
		p.printf(")")
	case ExprCall:
		d := e.Data.(CallData)
		if d.Async && !p.plain {
			p.printf("await ")
		}
		p.printExpr(d.Callee)
		p.printf("(")
		p.printList(d.Args)
		p.printf(")")
	case ExprField:
		d := e.Data.(FieldData)
		p.printExpr(d.Object)
		p.printf(".%s", d.Name)
	case ExprIndex:
		d := e.Data.(IndexData)
		p.printExpr(d.Object)
		p.printf("[")
		p.printExpr(d.Index)
		p.printf("]")
	case ExprArray:
		p.printf("[")
		p.printList(e.Data.(ArrayData).Elems)
		p.printf("]")
	case ExprMap:
		p.printf("{")
		for i, ent := range e.Data.(MapData).Entries {
			if i > 0 {
				p.printf(", ")
			}
			p.printf("%q: ", ent.Key)
			p.printExpr(ent.Value)
		}
		p.printf("}")
	case ExprClassLit:
		d := e.Data.(ClassLitData)
		p.printf("%s {", d.Class)
		for i, in := range d.Inits {
			if i > 0 {
				p.printf(",")
			}
			if in.Spread {
				p.printf(" ...")
			} else {
				p.printf(" %s: ", in.Name)
			}
			p.printExpr(in.Value)
		}
		p.printf(" }")
	case ExprVariant:
		d := e.Data.(VariantData)
		p.printf("%s.%s", d.Enum, d.Variant)
	case ExprInstanceof:
		d := e.Data.(InstanceofData)
		p.printExpr(d.Value)
		p.printf(" instanceof %s", d.Class)
	case ExprIf:
		d := e.Data.(IfData)
		p.printf("if ")
		p.printExpr(d.Cond)
		p.printf(" ")
		p.printBlock(d.Then)
		if d.Else != nil {
			p.printf(" else ")
			if d.Else.Kind == ExprBlock {
				p.printBlock(d.Else.Data.(BlockData).Block)
			} else {
				p.printExpr(d.Else)
			}
		}
	case ExprBlock:
		p.printBlock(e.Data.(BlockData).Block)
	}
}

func (p *Printer) printList(xs []*Expr) {
	for i, x := range xs {
		if i > 0 {
			p.printf(", ")
		}
		p.printExpr(x)
	}
}

func (p *Printer) typeStr(id types.TypeID) string {
	if p.types == nil {
		return fmt.Sprintf("#%d", id)
	}
	return types.Label(p.types, id)
}

func (p *Printer) pad() {
	p.printf("%s", strings.Repeat("  ", p.indent))
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
