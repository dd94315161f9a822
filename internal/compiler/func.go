package compiler

import (
	"fortio.org/safecast"

	"baml/internal/bytecode"
	"baml/internal/diag"
	"baml/internal/hir"
	"baml/internal/source"
	"baml/internal/viz"
)

// maxSlots bounds the stack positions one frame may address.
const maxSlots = 1 << 16

type loopCtx struct {
	// base is the stack height at which the loop body's own locals start.
	base      int
	breaks    []int
	continues []int
	vizDepth  int
}

type funcCompiler struct {
	c    *compiler
	hfn  *hir.Func
	fn   *bytecode.Function
	code *bytecode.Bytecode

	consts map[bytecode.Value]int

	// locals is indexed by stack slot; unnamed entries are temporaries that
	// were on the stack when an enclosing block started.
	locals []string
	height int
	scope  int
	dirty  bool
	line   int

	loops    []*loopCtx
	forLoops int

	vb    *vizBuilder
	quiet int
}

func newFuncCompiler(c *compiler, hfn *hir.Func, fn *bytecode.Function) *funcCompiler {
	fc := &funcCompiler{
		c:      c,
		hfn:    hfn,
		fn:     fn,
		code:   &fn.Bytecode,
		consts: make(map[bytecode.Value]int),
		dirty:  true,
		line:   c.line(hfn.Span),
	}
	fc.locals = append(fc.locals, "<"+hfn.Name+">")
	for _, p := range hfn.Params {
		fc.locals = append(fc.locals, p.Name)
	}
	fc.height = len(fc.locals)
	if !c.opts.NoViz {
		fc.vb = newVizBuilder(hfn.Name)
	}
	return fc
}

// body compiles the function block: its tail (or null) is returned without
// popping the locals, Return drains the frame.
func (fc *funcCompiler) body() {
	if fc.vb != nil {
		fc.emit(bytecode.OpVizEnter, 0)
		defer func() { fc.fn.VizNodes = fc.vb.nodes }()
	}
	b := fc.hfn.Body
	if b == nil {
		fc.loadNull()
		fc.ret()
		return
	}
	depth := fc.vizDepth()
	fc.stmts(b.Stmts)
	if b.Tail != nil {
		fc.valueAt(b.Tail, nil)
	} else {
		fc.loadNull()
	}
	fc.vizPopTo(depth)
	fc.ret()
}

func (fc *funcCompiler) ret() {
	if fc.vb != nil {
		fc.vizUnwind(1)
		fc.emit(bytecode.OpVizExit, 0)
	}
	fc.emit(bytecode.OpReturn, 0)
}

// at moves the current source line to sp and returns the restore func.
func (fc *funcCompiler) at(sp source.Span) func() {
	prev := fc.line
	if sp != (source.Span{}) {
		fc.line = fc.c.line(sp)
	}
	return func() { fc.line = prev }
}

func (fc *funcCompiler) emit(op bytecode.Opcode, arg int) int {
	// viz markers never name locals; leaving the snapshot to the next real
	// instruction keeps scope ids identical once they are stripped
	if fc.dirty && !op.IsViz() {
		fc.snapshot()
	}
	in := bytecode.Make(op, arg)
	ip := len(fc.code.Instructions)
	fc.code.Instructions = append(fc.code.Instructions, in)
	fc.code.SourceLines = append(fc.code.SourceLines, fc.line)
	fc.code.Scopes = append(fc.code.Scopes, fc.scope)
	fc.height += in.StackEffect()
	return ip
}

// snapshot records the names visible from the next instruction on.
func (fc *funcCompiler) snapshot() {
	n := min(len(fc.locals), fc.height)
	names := make([]string, n)
	copy(names, fc.locals[:n])
	fc.fn.LocalsInScope = append(fc.fn.LocalsInScope, names)
	fc.scope = len(fc.fn.LocalsInScope) - 1
	fc.dirty = false
}

func (fc *funcCompiler) emitJump(op bytecode.Opcode) int {
	return fc.emit(op, 0)
}

// patch points the jump at ip to the next instruction to be emitted.
func (fc *funcCompiler) patch(ip int) {
	fc.patchTo(ip, len(fc.code.Instructions))
}

func (fc *funcCompiler) patchTo(ip, target int) {
	off := target - ip
	if _, err := safecast.Conv[int32](off); err != nil {
		fc.c.errorf(diag.GenJumpOutOfRange, fc.hfn.Span, "jump offset %d out of range in %s", off, fc.hfn.Name)
		return
	}
	fc.code.Instructions[ip].Arg = off
}

// jumpBack emits an unconditional jump to an already emitted instruction.
func (fc *funcCompiler) jumpBack(target int) {
	ip := fc.emit(bytecode.OpJump, 0)
	fc.patchTo(ip, target)
}

func (fc *funcCompiler) constant(v bytecode.Value) int {
	if i, ok := fc.consts[v]; ok {
		return i
	}
	i := len(fc.code.Constants)
	fc.code.Constants = append(fc.code.Constants, v)
	fc.consts[v] = i
	return i
}

func (fc *funcCompiler) loadConst(v bytecode.Value) {
	fc.emit(bytecode.OpLoadConst, fc.constant(v))
}

func (fc *funcCompiler) loadNull() { fc.loadConst(bytecode.Null) }

func (fc *funcCompiler) loadString(s string) {
	fc.loadConst(bytecode.Obj(fc.c.stringObject(s)))
}

func (fc *funcCompiler) pop(n int) {
	if n > 0 {
		fc.emit(bytecode.OpPop, n)
	}
}

// declare names the value on top of the stack.
func (fc *funcCompiler) declare(name string, sp source.Span) int {
	slot := fc.height - 1
	if slot >= maxSlots {
		fc.c.errorf(diag.GenTooManyLocals, sp, "too many locals in %s", fc.hfn.Name)
	}
	if len(fc.locals) > slot {
		fc.locals = fc.locals[:slot]
	}
	for len(fc.locals) < slot {
		fc.locals = append(fc.locals, "")
	}
	fc.locals = append(fc.locals, name)
	fc.dirty = true
	return slot
}

func (fc *funcCompiler) resolve(name string) (int, bool) {
	for i := min(len(fc.locals), fc.height) - 1; i > 0; i-- {
		if fc.locals[i] == name {
			return i, true
		}
	}
	return 0, false
}

// openScope returns the height a scope started at; closeScope forgets the
// names declared since without emitting anything.
func (fc *funcCompiler) openScope() int {
	return fc.height
}

func (fc *funcCompiler) closeScope(base int) {
	if len(fc.locals) > base {
		fc.locals = fc.locals[:base]
	}
	fc.dirty = true
}

// popTo emits the Pop for everything above base and closes the scope.
func (fc *funcCompiler) popTo(base int) {
	fc.pop(fc.height - base)
	fc.closeScope(base)
}

func (fc *funcCompiler) vizOn() bool { return fc.vb != nil && fc.quiet == 0 }

func (fc *funcCompiler) vizDepth() int {
	if fc.vb == nil {
		return 0
	}
	return fc.vb.depth()
}

// vizEnter opens a node and emits its VizEnter. It returns -1 when viz is
// off for the current position.
func (fc *funcCompiler) vizEnter(typ viz.NodeType, label string) int {
	if !fc.vizOn() {
		return -1
	}
	id := fc.vb.push(typ, label, 0)
	fc.emit(bytecode.OpVizEnter, id)
	return id
}

// vizLeave emits the VizExit of id and drops its frame.
func (fc *funcCompiler) vizLeave(id, depth int) {
	if id < 0 {
		return
	}
	fc.vb.popTo(depth)
	fc.emit(bytecode.OpVizExit, id)
}

// vizPopTo closes the frames opened since depth, typically headers.
func (fc *funcCompiler) vizPopTo(depth int) {
	if fc.vb == nil {
		return
	}
	for _, id := range fc.vb.popTo(depth) {
		fc.emit(bytecode.OpVizExit, id)
	}
}

// vizUnwind emits the exits of the nodes opened above depth. Their frames
// stay: the jump leaves them only at run time, the code after it is still
// lexically inside.
func (fc *funcCompiler) vizUnwind(depth int) {
	if fc.vb == nil {
		return
	}
	for _, id := range fc.vb.openAbove(depth) {
		fc.emit(bytecode.OpVizExit, id)
	}
}

func (fc *funcCompiler) header(level int, title string) {
	if !fc.vizOn() {
		return
	}
	level = max(level, 1)
	for _, id := range fc.vb.popHeaders(level - 1) {
		fc.emit(bytecode.OpVizExit, id)
	}
	id := fc.vb.push(viz.NodeHeader, title, level)
	fc.emit(bytecode.OpVizEnter, id)
}

func (fc *funcCompiler) impossible(sp source.Span, format string, args ...any) {
	fc.c.errorf(diag.GenImpossible, sp, format, args...)
}
