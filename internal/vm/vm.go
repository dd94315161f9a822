// Package vm runs compiled bytecode.
//
// The machine is single threaded and never blocks: Exec runs until the entry
// function returns or until it needs the host, in which case it returns a
// state saying what it needs (a future scheduled or awaited, or watchers to
// notify). Calling Exec again resumes right after the instruction that
// suspended.
package vm

import (
	"slices"

	"baml/internal/bytecode"
	"baml/internal/trace"
	"baml/internal/watch"
)

// MaxFrames bounds the call stack.
const MaxFrames = 256

// Frame is one function activation. LocalsOffset is the stack index of the
// callee itself, so local slot n lives at LocalsOffset+n.
type Frame struct {
	Function     bytecode.ObjectIndex
	IP           int
	LocalsOffset int
}

// Options configures a VM.
type Options struct {
	// Env is the read-only environment seen by env.get.
	Env map[string]string
	// Tracer receives instruction events at trace.ScopeInstr.
	Tracer trace.Tracer
	// Trace prints every executed instruction.
	Trace *Tracer
}

type watchedVar struct {
	name     string
	function string
}

// VM is a bytecode interpreter for one program. A VM is not safe for
// concurrent use; run concurrent invocations on separate VMs built from the
// same program.
type VM struct {
	program *bytecode.Program

	objects []bytecode.Object
	globals []bytecode.Value
	stack   []bytecode.Value
	frames  []Frame

	// objects below runtimeOffset belong to the program.
	runtimeOffset int

	env map[string]string

	watch       *watch.Graph
	watchedVars map[int]watchedVar
	// interruptFrame is the frame count at which a filter function started,
	// -1 when none is running.
	interruptFrame int
	// pending holds notifications raised inside a native call.
	pending []watch.NodeID

	tracer     trace.Tracer
	traceInstr bool
	execTrace  *Tracer
}

// New prepares a VM for prog. The program's objects are shared, not copied:
// nothing the VM does at run time mutates a static object.
func New(prog *bytecode.Program, opts Options) *VM {
	objects := make([]bytecode.Object, len(prog.Objects), len(prog.Objects)+64)
	copy(objects, prog.Objects)

	env := opts.Env
	if env == nil {
		env = map[string]string{}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	vm := &VM{
		program:        prog,
		objects:        objects,
		globals:        slices.Clone(prog.Globals),
		runtimeOffset:  len(prog.Objects),
		env:            env,
		watch:          watch.New(),
		watchedVars:    make(map[int]watchedVar),
		interruptFrame: -1,
		tracer:         tracer,
		traceInstr:     tracer.Enabled() && tracer.Level().ShouldEmit(trace.ScopeInstr),
		execTrace:      opts.Trace,
	}
	if vm.execTrace != nil {
		vm.execTrace.vm = vm
	}
	return vm
}

// Program returns the program the VM runs.
func (vm *VM) Program() *bytecode.Program { return vm.program }

// SetEntryPoint pushes fn and its arguments and opens its frame.
func (vm *VM) SetEntryPoint(fn bytecode.ObjectIndex, args []bytecode.Value) error {
	f, err := vm.function(fn)
	if err != nil {
		return err
	}
	if len(args) != f.Arity {
		return newError(CodeArgumentCount, "%s expects %d arguments, got %d", f.Name, f.Arity, len(args))
	}
	if f.Kind != bytecode.FuncExec {
		return typeError("exec function", f.Kind.String()+" function")
	}
	offset := len(vm.stack)
	vm.stack = append(vm.stack, bytecode.Obj(fn))
	vm.stack = append(vm.stack, args...)
	vm.frames = append(vm.frames, Frame{Function: fn, LocalsOffset: offset})
	return nil
}

// Finalize resets the VM after an invocation, completed or not, so it can
// run the next one.
func (vm *VM) Finalize() {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.watch = watch.New()
	clear(vm.watchedVars)
	vm.interruptFrame = -1
	vm.pending = nil
	vm.CollectGarbage()
}

// CollectGarbage drops every object allocated at run time.
func (vm *VM) CollectGarbage() {
	if vm.execTrace != nil {
		vm.execTrace.TraceCollect(len(vm.objects) - vm.runtimeOffset)
	}
	clear(vm.objects[vm.runtimeOffset:])
	vm.objects = vm.objects[:vm.runtimeOffset]
}

// Depth is the number of active frames.
func (vm *VM) Depth() int { return len(vm.frames) }

// Object returns the object at idx.
func (vm *VM) Object(idx bytecode.ObjectIndex) (bytecode.Object, bool) {
	if int(idx) < 0 || int(idx) >= len(vm.objects) {
		return nil, false
	}
	return vm.objects[idx], true
}

// PendingFuture returns the future at idx if it is still pending.
func (vm *VM) PendingFuture(idx bytecode.ObjectIndex) (*bytecode.Future, error) {
	obj, err := vm.objectAt(idx)
	if err != nil {
		return nil, err
	}
	fut, ok := obj.(*bytecode.Future)
	if !ok {
		return nil, typeError("pending future", obj.ObjKind().String())
	}
	if fut.Ready {
		return nil, typeError("pending future", "ready future")
	}
	return fut, nil
}

// FulfilFuture stores the result of the future at idx. It may be called any
// time after ScheduleFuture; the Await on that future picks the value up.
func (vm *VM) FulfilFuture(idx bytecode.ObjectIndex, v bytecode.Value) error {
	obj, err := vm.objectAt(idx)
	if err != nil {
		return err
	}
	fut, ok := obj.(*bytecode.Future)
	if !ok {
		return typeError("future", obj.ObjKind().String())
	}
	fut.Ready = true
	fut.Value = v
	return nil
}

// FailFuture reports that the host could not resolve the future at idx. The
// returned error aborts the invocation.
func (vm *VM) FailFuture(idx bytecode.ObjectIndex, cause error) error {
	name := "future"
	if fut, err := vm.PendingFuture(idx); err == nil {
		name = fut.Function
	}
	return &VMError{Code: CodeFutureFailed, Message: name + ": " + cause.Error(), Cause: cause}
}

func (vm *VM) alloc(obj bytecode.Object) bytecode.ObjectIndex {
	vm.objects = append(vm.objects, obj)
	idx := bytecode.ObjectIndex(len(vm.objects) - 1)
	if vm.execTrace != nil {
		vm.execTrace.TraceAlloc(obj.ObjKind(), idx)
	}
	return idx
}

func (vm *VM) AllocString(s string) bytecode.Value {
	return bytecode.Obj(vm.alloc(&bytecode.String{Value: s}))
}

func (vm *VM) AllocArray(items []bytecode.Value) bytecode.Value {
	return bytecode.Obj(vm.alloc(&bytecode.Array{Items: items}))
}

func (vm *VM) AllocMap(m *bytecode.Map) bytecode.Value {
	return bytecode.Obj(vm.alloc(m))
}

func (vm *VM) AllocInstance(class bytecode.ObjectIndex, fields []bytecode.Value) bytecode.Value {
	return bytecode.Obj(vm.alloc(&bytecode.Instance{Class: class, Fields: fields}))
}

func (vm *VM) AllocVariant(enum bytecode.ObjectIndex, index int) bytecode.Value {
	return bytecode.Obj(vm.alloc(&bytecode.Variant{Enum: enum, Index: index}))
}

func (vm *VM) AllocMedia(m bytecode.Media) bytecode.Value {
	return bytecode.Obj(vm.alloc(&m))
}

// stack helpers

func (vm *VM) push(v bytecode.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() (bytecode.Value, error) {
	n := len(vm.stack)
	if n == 0 {
		return bytecode.Null, newError(CodeStackUnderflow, "pop from empty stack")
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v, nil
}

// slotFromTop returns the absolute index of the value n slots below the top.
func (vm *VM) slotFromTop(n int) (int, error) {
	i := len(vm.stack) - 1 - n
	if n < 0 || i < 0 {
		return 0, newError(CodeStackUnderflow, "stack has %d values, need %d", len(vm.stack), n+1)
	}
	return i, nil
}

func (vm *VM) local(fr *Frame, slot int) (int, error) {
	abs := fr.LocalsOffset + slot
	if slot < 0 || abs >= len(vm.stack) {
		return 0, newError(CodeStackUnderflow, "local slot %d outside of the frame", slot)
	}
	return abs, nil
}

// object helpers

func (vm *VM) objectAt(idx bytecode.ObjectIndex) (bytecode.Object, error) {
	obj, ok := vm.Object(idx)
	if !ok {
		return nil, newError(CodeIndexOutOfBounds, "object %d out of bounds for pool of %d", idx, len(vm.objects))
	}
	return obj, nil
}

func (vm *VM) typeName(v bytecode.Value) string {
	idx, ok := v.AsObject()
	if !ok {
		return v.Kind().String()
	}
	obj, ok := vm.Object(idx)
	if !ok || obj == nil {
		return "dangling object"
	}
	return obj.ObjKind().String()
}

func (vm *VM) function(idx bytecode.ObjectIndex) (*bytecode.Function, error) {
	obj, err := vm.objectAt(idx)
	if err != nil {
		return nil, err
	}
	fn, ok := obj.(*bytecode.Function)
	if !ok {
		return nil, typeError("function", obj.ObjKind().String())
	}
	return fn, nil
}

// as resolves v to an object of type T.
func as[T bytecode.Object](vm *VM, v bytecode.Value, want string) (bytecode.ObjectIndex, T, error) {
	var zero T
	idx, ok := v.AsObject()
	if !ok {
		return 0, zero, typeError(want, vm.typeName(v))
	}
	obj, err := vm.objectAt(idx)
	if err != nil {
		return 0, zero, err
	}
	t, ok := obj.(T)
	if !ok {
		return 0, zero, typeError(want, obj.ObjKind().String())
	}
	return idx, t, nil
}

func (vm *VM) str(v bytecode.Value) (string, error) {
	_, s, err := as[*bytecode.String](vm, v, "string")
	if err != nil {
		return "", err
	}
	return s.Value, nil
}

// StringValue returns the Go string behind v.
func (vm *VM) StringValue(v bytecode.Value) (string, bool) {
	s, err := vm.str(v)
	return s, err == nil
}
