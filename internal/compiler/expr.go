package compiler

import (
	"baml/internal/bytecode"
	"baml/internal/diag"
	"baml/internal/hir"
	"baml/internal/types"
	"baml/internal/viz"
)

// valueAt compiles an expression in statement position. Only there do if
// expressions and blocks get visualization nodes; wrap labels a block that
// should be shown as its own scope.
func (fc *funcCompiler) valueAt(e *hir.Expr, wrap *string) {
	defer fc.at(e.Span)()
	switch e.Kind {
	case hir.ExprIf:
		fc.ifValue(e)
	case hir.ExprBlock:
		b := e.Data.(hir.BlockData).Block
		if wrap == nil {
			fc.blockValue(b)
			return
		}
		depth := fc.vizDepth()
		id := fc.vizEnter(viz.NodeOtherScope, *wrap)
		fc.blockValue(b)
		fc.vizLeave(id, depth)
	default:
		fc.expr(e)
	}
}

// expr compiles e leaving exactly one value on the stack. Nothing nested
// inside an operand gets visualization nodes.
func (fc *funcCompiler) expr(e *hir.Expr) {
	fc.quiet++
	fc.exprNode(e)
	fc.quiet--
}

func (fc *funcCompiler) exprNode(e *hir.Expr) {
	defer fc.at(e.Span)()

	if fc.c.mod.Types.KindOf(e.Type) == types.KindInvalid {
		fc.impossible(e.Span, "expression did not type check")
		fc.loadNull()
		return
	}

	switch e.Kind {
	case hir.ExprLiteral:
		fc.literal(e.Data.(hir.LiteralData))

	case hir.ExprLocal:
		name := e.Data.(hir.LocalData).Name
		slot, ok := fc.resolve(name)
		if !ok {
			fc.impossible(e.Span, "unknown local %q", name)
			fc.loadNull()
			return
		}
		fc.emit(bytecode.OpLoadVar, slot)

	case hir.ExprGlobal:
		if fc.c.mod.Types.KindOf(e.Type) == types.KindArrow {
			fc.c.errorf(diag.GenArrowType, e.Span, "function %s cannot be used as a value",
				e.Data.(hir.GlobalData).Name)
			fc.loadNull()
			return
		}
		fc.global(e)

	case hir.ExprUnary:
		d := e.Data.(hir.UnaryData)
		fc.expr(d.Operand)
		op := bytecode.Neg
		if d.Op == hir.UnaryNot {
			op = bytecode.Not
		}
		fc.emit(bytecode.OpUnaryOp, int(op))

	case hir.ExprBinary:
		fc.binary(e.Data.(hir.BinaryData))

	case hir.ExprCall:
		fc.call(e)

	case hir.ExprField:
		d := e.Data.(hir.FieldData)
		fc.expr(d.Object)
		fc.emit(bytecode.OpLoadField, d.Index)

	case hir.ExprIndex:
		d := e.Data.(hir.IndexData)
		fc.expr(d.Object)
		fc.expr(d.Index)
		if d.IsMap {
			fc.emit(bytecode.OpLoadMapElement, 0)
		} else {
			fc.emit(bytecode.OpLoadArrayElement, 0)
		}

	case hir.ExprArray:
		d := e.Data.(hir.ArrayData)
		for _, el := range d.Elems {
			fc.expr(el)
		}
		fc.emit(bytecode.OpAllocArray, len(d.Elems))

	case hir.ExprMap:
		d := e.Data.(hir.MapData)
		for _, ent := range d.Entries {
			fc.expr(ent.Value)
		}
		for _, ent := range d.Entries {
			fc.loadString(ent.Key)
		}
		fc.emit(bytecode.OpAllocMap, len(d.Entries))

	case hir.ExprClassLit:
		fc.classLit(e)

	case hir.ExprVariant:
		d := e.Data.(hir.VariantData)
		enum, ok := fc.c.prog.Enums[d.Enum]
		if !ok {
			fc.impossible(e.Span, "unknown enum %q", d.Enum)
			fc.loadNull()
			return
		}
		fc.loadConst(bytecode.Int(int64(d.Index)))
		fc.emit(bytecode.OpAllocVariant, int(enum))

	case hir.ExprInstanceof:
		d := e.Data.(hir.InstanceofData)
		class, ok := fc.c.prog.Classes[d.Class]
		if !ok {
			fc.impossible(e.Span, "unknown class %q", d.Class)
			fc.loadNull()
			return
		}
		fc.expr(d.Value)
		fc.loadConst(bytecode.Obj(class))
		fc.emit(bytecode.OpCmpOp, int(bytecode.InstanceOf))

	case hir.ExprIf:
		fc.ifValue(e)

	case hir.ExprBlock:
		fc.blockValue(e.Data.(hir.BlockData).Block)

	default:
		fc.impossible(e.Span, "unexpected expression %s", e.Kind)
		fc.loadNull()
	}
}

func (fc *funcCompiler) literal(d hir.LiteralData) {
	switch d.Kind {
	case hir.LiteralInt:
		fc.loadConst(bytecode.Int(d.Int))
	case hir.LiteralFloat:
		fc.loadConst(bytecode.Float(d.Float))
	case hir.LiteralBool:
		fc.loadConst(bytecode.Bool(d.Bool))
	case hir.LiteralString:
		fc.loadString(d.String)
	default:
		fc.loadNull()
	}
}

// global loads a top-level function without the value-position check.
func (fc *funcCompiler) global(e *hir.Expr) {
	name := e.Data.(hir.GlobalData).Name
	g, ok := fc.c.globals[name]
	if !ok {
		fc.impossible(e.Span, "unknown function %q", name)
		fc.loadNull()
		return
	}
	fc.emit(bytecode.OpLoadGlobal, g)
}

var binOps = map[hir.BinaryOp]bytecode.BinOp{
	hir.BinAdd:    bytecode.Add,
	hir.BinSub:    bytecode.Sub,
	hir.BinMul:    bytecode.Mul,
	hir.BinDiv:    bytecode.Div,
	hir.BinMod:    bytecode.Mod,
	hir.BinBitAnd: bytecode.BitAnd,
	hir.BinBitOr:  bytecode.BitOr,
	hir.BinBitXor: bytecode.BitXor,
	hir.BinShl:    bytecode.Shl,
	hir.BinShr:    bytecode.Shr,
}

var cmpOps = map[hir.BinaryOp]bytecode.CmpOp{
	hir.BinEq:    bytecode.Eq,
	hir.BinNotEq: bytecode.NotEq,
	hir.BinLt:    bytecode.Lt,
	hir.BinLtEq:  bytecode.LtEq,
	hir.BinGt:    bytecode.Gt,
	hir.BinGtEq:  bytecode.GtEq,
}

func (fc *funcCompiler) binOp(op hir.BinaryOp) {
	bop, ok := binOps[op]
	if !ok {
		fc.impossible(fc.hfn.Span, "operator %s is not arithmetic", op)
		return
	}
	fc.emit(bytecode.OpBinOp, int(bop))
}

func (fc *funcCompiler) binary(d hir.BinaryData) {
	switch d.Op {
	case hir.BinAnd:
		// left stays as the result when false
		fc.expr(d.Left)
		end := fc.emitJump(bytecode.OpJumpIfFalse)
		fc.pop(1)
		fc.expr(d.Right)
		fc.patch(end)
		return
	case hir.BinOr:
		fc.expr(d.Left)
		skip := fc.emitJump(bytecode.OpJumpIfFalse)
		end := fc.emitJump(bytecode.OpJump)
		fc.patch(skip)
		fc.pop(1)
		fc.expr(d.Right)
		fc.patch(end)
		return
	}

	fc.expr(d.Left)
	fc.expr(d.Right)
	if op, ok := cmpOps[d.Op]; ok {
		fc.emit(bytecode.OpCmpOp, int(op))
		return
	}
	fc.binOp(d.Op)
}

// call pushes the callee and its arguments. Calls into LLM functions and
// future builtins are dispatched to the host and awaited in place;
// fetch_as additionally receives its result type.
func (fc *funcCompiler) call(e *hir.Expr) {
	d := e.Data.(hir.CallData)
	if d.Callee.Kind != hir.ExprGlobal {
		fc.impossible(e.Span, "callee is not a function")
		fc.loadNull()
		return
	}
	fc.global(d.Callee)
	for _, a := range d.Args {
		fc.expr(a)
	}
	n := len(d.Args)
	if d.TypeArg {
		fc.loadConst(bytecode.Obj(fc.c.typeObject(d.ResultType)))
		n++
	}
	if d.Async {
		fc.emit(bytecode.OpDispatchFuture, n)
		fc.emit(bytecode.OpAwait, 0)
		return
	}
	fc.emit(bytecode.OpCall, n)
}

// classLit allocates the instance and applies the initializers in source
// order: a spread copies every field of its value one by one, an explicit
// field is stored directly. Every initializer is evaluated exactly once.
func (fc *funcCompiler) classLit(e *hir.Expr) {
	d := e.Data.(hir.ClassLitData)
	class, ok := fc.c.prog.Classes[d.Class]
	if !ok {
		fc.impossible(e.Span, "unknown class %q", d.Class)
		fc.loadNull()
		return
	}

	fc.emit(bytecode.OpAllocInstance, int(class))

	// the lexically last write to a field wins
	for _, init := range d.Inits {
		if init.Spread {
			fc.expr(init.Value)
			for f := range d.NumFields {
				fc.emit(bytecode.OpCopy, 1)
				fc.emit(bytecode.OpCopy, 1)
				fc.emit(bytecode.OpLoadField, f)
				fc.emit(bytecode.OpStoreField, f)
			}
			fc.pop(1)
			continue
		}
		if init.Index < 0 || init.Index >= d.NumFields {
			continue
		}
		fc.emit(bytecode.OpCopy, 0)
		fc.expr(init.Value)
		fc.emit(bytecode.OpStoreField, init.Index)
	}
}
