package compiler

import (
	"strconv"

	"baml/internal/builtin"
	"baml/internal/bytecode"
	"baml/internal/hir"
	"baml/internal/viz"
)

func (fc *funcCompiler) stmts(list []*hir.Stmt) {
	for i := 0; i < len(list); i++ {
		s := list[i]
		if s.Kind == hir.StmtLet && i+1 < len(list) && list[i+1].Kind == hir.StmtWatch {
			let := s.Data.(hir.LetData)
			opts := list[i+1].Data.(hir.WatchData)
			if opts.Name == let.Name {
				fc.let(s, &opts)
				i++
				continue
			}
		}
		fc.stmt(s)
	}
}

func (fc *funcCompiler) stmt(s *hir.Stmt) {
	defer fc.at(s.Span)()

	switch s.Kind {
	case hir.StmtLet:
		fc.let(s, nil)

	case hir.StmtAssign:
		fc.assign(s.Data.(hir.AssignData))

	case hir.StmtExpr:
		e := s.Data.(hir.ExprStmtData).Expr
		switch e.Kind {
		case hir.ExprIf:
			fc.ifStmt(e)
		case hir.ExprBlock:
			depth := fc.vizDepth()
			id := fc.vizEnter(viz.NodeOtherScope, "")
			fc.blockStmt(e.Data.(hir.BlockData).Block)
			fc.vizLeave(id, depth)
		default:
			fc.expr(e)
			fc.pop(1)
		}

	case hir.StmtReturn:
		if v := s.Data.(hir.ReturnData).Value; v != nil {
			fc.valueAt(v, nil)
		} else {
			fc.loadNull()
		}
		fc.ret()

	case hir.StmtBreak, hir.StmtContinue:
		fc.jumpOut(s)

	case hir.StmtWhile:
		fc.while(s.Data.(hir.WhileData))

	case hir.StmtForIn:
		fc.forIn(s.Data.(hir.ForInData))

	case hir.StmtForC:
		fc.forC(s.Data.(hir.ForCData))

	case hir.StmtAssert:
		fc.valueAt(s.Data.(hir.AssertData).Cond, nil)
		fc.emit(bytecode.OpAssert, 0)

	case hir.StmtWatch:
		d := s.Data.(hir.WatchData)
		slot, ok := fc.resolve(d.Name)
		if !ok {
			fc.impossible(s.Span, "watch of unknown local %q", d.Name)
			return
		}
		fc.watch(d.Name, slot, &d)

	case hir.StmtNotify:
		name := s.Data.(hir.NotifyData).Name
		slot, ok := fc.resolve(name)
		if !ok {
			fc.impossible(s.Span, "notify of unknown local %q", name)
			return
		}
		fc.emit(bytecode.OpNotify, slot)

	case hir.StmtHeader:
		h := s.Data.(hir.HeaderData)
		fc.header(h.Level, h.Title)

	default:
		fc.impossible(s.Span, "unexpected statement %s", s.Kind)
	}
}

// let leaves the value on the stack as the new local. opts carries a
// $watch.options call that directly follows a watched let.
func (fc *funcCompiler) let(s *hir.Stmt, opts *hir.WatchData) {
	defer fc.at(s.Span)()
	d := s.Data.(hir.LetData)

	var wrap *string
	if d.Value.Kind == hir.ExprBlock {
		label := "let " + d.Name + " = { ... }"
		wrap = &label
	}
	fc.valueAt(d.Value, wrap)
	slot := fc.declare(d.Name, s.Span)
	if d.Watch || opts != nil {
		fc.watch(d.Name, slot, opts)
	}
}

// watch pushes the channel and the filter and registers slot.
func (fc *funcCompiler) watch(name string, slot int, opts *hir.WatchData) {
	if opts != nil && opts.Channel != nil && !isNullLiteral(opts.Channel) {
		fc.expr(opts.Channel)
	} else {
		fc.loadString(name)
	}
	switch {
	case opts == nil || opts.Filter == nil:
		fc.loadNull()
	case opts.Filter.Kind == hir.ExprGlobal:
		fc.global(opts.Filter)
	default:
		fc.expr(opts.Filter)
	}
	fc.emit(bytecode.OpWatch, slot)
}

func isNullLiteral(e *hir.Expr) bool {
	if e.Kind != hir.ExprLiteral {
		return false
	}
	return e.Data.(hir.LiteralData).Kind == hir.LiteralNull
}

func (fc *funcCompiler) assign(d hir.AssignData) {
	var wrap *string
	if d.Value.Kind == hir.ExprBlock {
		wrap = new(string)
	}
	t := d.Target
	switch t.Kind {
	case hir.ExprLocal:
		name := t.Data.(hir.LocalData).Name
		slot, ok := fc.resolve(name)
		if !ok {
			fc.impossible(t.Span, "assignment to unknown local %q", name)
			return
		}
		if d.Compound {
			fc.emit(bytecode.OpLoadVar, slot)
			fc.valueAt(d.Value, wrap)
			fc.binOp(d.Op)
		} else {
			fc.valueAt(d.Value, wrap)
		}
		fc.emit(bytecode.OpStoreVar, slot)

	case hir.ExprField:
		fd := t.Data.(hir.FieldData)
		fc.expr(fd.Object)
		if d.Compound {
			fc.emit(bytecode.OpCopy, 0)
			fc.emit(bytecode.OpLoadField, fd.Index)
			fc.valueAt(d.Value, wrap)
			fc.binOp(d.Op)
		} else {
			fc.valueAt(d.Value, wrap)
		}
		fc.emit(bytecode.OpStoreField, fd.Index)

	case hir.ExprIndex:
		id := t.Data.(hir.IndexData)
		load, store := bytecode.OpLoadArrayElement, bytecode.OpStoreArrayElement
		if id.IsMap {
			load, store = bytecode.OpLoadMapElement, bytecode.OpStoreMapElement
		}
		fc.expr(id.Object)
		fc.expr(id.Index)
		if d.Compound {
			fc.emit(bytecode.OpCopy, 1)
			fc.emit(bytecode.OpCopy, 1)
			fc.emit(load, 0)
			fc.valueAt(d.Value, wrap)
			fc.binOp(d.Op)
		} else {
			fc.valueAt(d.Value, wrap)
		}
		fc.emit(store, 0)

	default:
		fc.impossible(t.Span, "cannot assign to %s", t.Kind)
	}
}

// jumpOut drops the loop body locals, exits the viz nodes opened in the
// body and jumps to the loop exit (break) or to the next iteration
// (continue). The code after it is unreachable, so the stack height is
// restored for whatever follows in the block.
func (fc *funcCompiler) jumpOut(s *hir.Stmt) {
	if len(fc.loops) == 0 {
		fc.impossible(s.Span, "%s outside of a loop", s.Kind)
		return
	}
	loop := fc.loops[len(fc.loops)-1]
	h := fc.height
	fc.pop(fc.height - loop.base)
	fc.vizUnwind(loop.vizDepth)
	if s.Kind == hir.StmtContinue {
		loop.continues = append(loop.continues, fc.emitJump(bytecode.OpJump))
	} else {
		loop.breaks = append(loop.breaks, fc.emitJump(bytecode.OpJump))
	}
	fc.height = h
}

func (fc *funcCompiler) pushLoop() *loopCtx {
	loop := &loopCtx{base: fc.height, vizDepth: fc.vizDepth()}
	fc.loops = append(fc.loops, loop)
	return loop
}

// loopBody runs the body statements and pops every local above the loop
// base, including the for-in element.
func (fc *funcCompiler) loopBody(b *hir.Block, loop *loopCtx) {
	depth := fc.vizDepth()
	fc.stmts(b.Stmts)
	if b.Tail != nil {
		fc.tailStmt(b.Tail)
	}
	fc.vizPopTo(depth)
	fc.popTo(loop.base)
}

// finishLoop patches the exits once the cond Pop (if any) is emitted and
// drops the loop context.
func (fc *funcCompiler) finishLoop(loop *loopCtx, cont int) {
	for _, ip := range loop.breaks {
		fc.patch(ip)
	}
	for _, ip := range loop.continues {
		fc.patchTo(ip, cont)
	}
	fc.loops = fc.loops[:len(fc.loops)-1]
}

func (fc *funcCompiler) while(d hir.WhileData) {
	depth := fc.vizDepth()
	id := fc.vizEnter(viz.NodeLoop, "while ("+hir.ExprString(d.Cond)+")")

	start := len(fc.code.Instructions)
	fc.expr(d.Cond)
	exit := fc.emitJump(bytecode.OpJumpIfFalse)
	fc.pop(1)

	loop := fc.pushLoop()
	fc.loopBody(d.Body, loop)
	cont := len(fc.code.Instructions)
	fc.jumpBack(start)

	fc.patch(exit)
	fc.height = loop.base + 1
	fc.pop(1)
	fc.finishLoop(loop, cont)
	fc.vizLeave(id, depth)
}

func (fc *funcCompiler) forIn(d hir.ForInData) {
	depth := fc.vizDepth()
	id := fc.vizEnter(viz.NodeLoop, "for ("+d.Name+" in "+hir.ExprString(d.Iter)+")")

	n := strconv.Itoa(fc.forLoops)
	fc.forLoops++
	outer := fc.openScope()

	fc.expr(d.Iter)
	arr := fc.declare("__baml for loop iterated array "+n, d.Iter.Span)

	fc.emit(bytecode.OpLoadGlobal, fc.c.globals[builtin.ArrayLength])
	fc.emit(bytecode.OpLoadVar, arr)
	fc.emit(bytecode.OpCall, 1)
	length := fc.declare("__baml for loop array length "+n, d.Iter.Span)

	fc.loadConst(bytecode.Int(0))
	idx := fc.declare("__baml for loop index "+n, d.Iter.Span)

	start := len(fc.code.Instructions)
	fc.emit(bytecode.OpLoadVar, idx)
	fc.emit(bytecode.OpLoadVar, length)
	fc.emit(bytecode.OpCmpOp, int(bytecode.Lt))
	exit := fc.emitJump(bytecode.OpJumpIfFalse)
	fc.pop(1)

	loop := fc.pushLoop()
	fc.emit(bytecode.OpLoadVar, arr)
	fc.emit(bytecode.OpLoadVar, idx)
	fc.emit(bytecode.OpLoadArrayElement, 0)
	fc.declare(d.Name, d.Body.Span)

	fc.emit(bytecode.OpLoadVar, idx)
	fc.loadConst(bytecode.Int(1))
	fc.emit(bytecode.OpBinOp, int(bytecode.Add))
	fc.emit(bytecode.OpStoreVar, idx)

	fc.loopBody(d.Body, loop)
	cont := len(fc.code.Instructions)
	fc.jumpBack(start)

	fc.patch(exit)
	fc.height = loop.base + 1
	fc.pop(1)
	fc.finishLoop(loop, cont)
	fc.vizLeave(id, depth)
	fc.popTo(outer)
}

func (fc *funcCompiler) forC(d hir.ForCData) {
	label := "for (...)"
	if d.Cond != nil {
		label = "for (" + hir.ExprString(d.Cond) + ")"
	}
	depth := fc.vizDepth()
	id := fc.vizEnter(viz.NodeLoop, label)
	outer := fc.openScope()

	if d.Init != nil {
		fc.quietStmt(d.Init)
	}
	start := len(fc.code.Instructions)
	exit := -1
	if d.Cond != nil {
		fc.expr(d.Cond)
		exit = fc.emitJump(bytecode.OpJumpIfFalse)
		fc.pop(1)
	}

	loop := fc.pushLoop()
	fc.loopBody(d.Body, loop)
	cont := len(fc.code.Instructions)
	if d.Step != nil {
		fc.quietStmt(d.Step)
	}
	fc.jumpBack(start)

	if exit >= 0 {
		fc.patch(exit)
		fc.height = loop.base + 1
		fc.pop(1)
	}
	fc.finishLoop(loop, cont)
	fc.vizLeave(id, depth)
	fc.popTo(outer)
}

func (fc *funcCompiler) quietStmt(s *hir.Stmt) {
	fc.quiet++
	fc.stmt(s)
	fc.quiet--
}

// blockStmt runs a block for its effects only.
func (fc *funcCompiler) blockStmt(b *hir.Block) {
	base := fc.openScope()
	depth := fc.vizDepth()
	fc.stmts(b.Stmts)
	if b.Tail != nil {
		fc.tailStmt(b.Tail)
	}
	fc.vizPopTo(depth)
	fc.popTo(base)
}

// tailStmt compiles a trailing expression whose value is discarded.
func (fc *funcCompiler) tailStmt(e *hir.Expr) {
	defer fc.at(e.Span)()
	switch e.Kind {
	case hir.ExprIf:
		fc.ifStmt(e)
	case hir.ExprBlock:
		fc.blockStmt(e.Data.(hir.BlockData).Block)
	default:
		fc.expr(e)
		fc.pop(1)
	}
}

// blockValue leaves the tail (or null) on the stack and drops the block
// locals beneath it.
func (fc *funcCompiler) blockValue(b *hir.Block) {
	base := fc.openScope()
	depth := fc.vizDepth()
	fc.stmts(b.Stmts)
	if b.Tail != nil {
		fc.valueAt(b.Tail, nil)
	} else {
		fc.loadNull()
	}
	fc.vizPopTo(depth)
	if n := fc.height - 1 - base; n > 0 {
		fc.emit(bytecode.OpPopReplace, n)
	}
	fc.closeScope(base)
}

func (fc *funcCompiler) arm(label string, body func()) {
	depth := fc.vizDepth()
	id := fc.vizEnter(viz.NodeBranchArm, label)
	body()
	fc.vizLeave(id, depth)
}

func ifLabel(prefix string, e *hir.Expr) string {
	return prefix + " (" + hir.ExprString(e.Data.(hir.IfData).Cond) + ")"
}

// ifStmt compiles an if chain whose arms produce no value.
func (fc *funcCompiler) ifStmt(e *hir.Expr) {
	depth := fc.vizDepth()
	id := fc.vizEnter(viz.NodeBranchGroup, ifLabel("if", e))
	fc.ifStmtArms(e, ifLabel("if", e))
	fc.vizLeave(id, depth)
}

func (fc *funcCompiler) ifStmtArms(e *hir.Expr, label string) {
	d := e.Data.(hir.IfData)
	fc.expr(d.Cond)
	h := fc.height
	skip := fc.emitJump(bytecode.OpJumpIfFalse)
	fc.pop(1)
	fc.arm(label, func() { fc.blockStmt(d.Then) })
	end := fc.emitJump(bytecode.OpJump)

	fc.patch(skip)
	fc.height = h
	fc.pop(1)
	switch {
	case d.Else == nil:
	case d.Else.Kind == hir.ExprIf:
		fc.ifStmtArms(d.Else, ifLabel("else if", d.Else))
	case d.Else.Kind == hir.ExprBlock:
		fc.arm("else", func() { fc.blockStmt(d.Else.Data.(hir.BlockData).Block) })
	default:
		fc.arm("else", func() {
			fc.expr(d.Else)
			fc.pop(1)
		})
	}
	fc.patch(end)
}

// ifValue compiles an if chain used as a value. A missing else yields null.
func (fc *funcCompiler) ifValue(e *hir.Expr) {
	depth := fc.vizDepth()
	id := fc.vizEnter(viz.NodeBranchGroup, ifLabel("if", e))
	fc.ifValueArms(e, ifLabel("if", e))
	fc.vizLeave(id, depth)
}

func (fc *funcCompiler) ifValueArms(e *hir.Expr, label string) {
	d := e.Data.(hir.IfData)
	fc.expr(d.Cond)
	h := fc.height
	skip := fc.emitJump(bytecode.OpJumpIfFalse)
	fc.pop(1)
	fc.arm(label, func() { fc.blockValue(d.Then) })
	end := fc.emitJump(bytecode.OpJump)

	fc.patch(skip)
	fc.height = h
	fc.pop(1)
	switch {
	case d.Else == nil:
		fc.loadNull()
	case d.Else.Kind == hir.ExprIf:
		fc.ifValueArms(d.Else, ifLabel("else if", d.Else))
	case d.Else.Kind == hir.ExprBlock:
		fc.arm("else", func() { fc.blockValue(d.Else.Data.(hir.BlockData).Block) })
	default:
		fc.arm("else", func() { fc.expr(d.Else) })
	}
	fc.patch(end)
}
