package vm

import (
	"slices"
	"strconv"

	"fortio.org/safecast"

	"baml/internal/bytecode"
	"baml/internal/trace"
	"baml/internal/viz"
	"baml/internal/watch"
)

// Exec runs instructions from the top frame until the entry function
// returns or the host is needed. A VM with no frames completes with null.
func (vm *VM) Exec() (ExecState, error) {
	if len(vm.frames) == 0 {
		return complete(bytecode.Null), nil
	}
	for {
		fr := &vm.frames[len(vm.frames)-1]
		fn, err := vm.function(fr.Function)
		if err != nil {
			return ExecState{}, err
		}
		ip := fr.IP
		fr.IP++
		if ip < 0 {
			return ExecState{}, newError(CodeNegativeIP, "%s: instruction pointer %d", fn.Name, ip)
		}
		if ip >= len(fn.Bytecode.Instructions) {
			return ExecState{}, newError(CodeIPOutOfRange, "%s: instruction pointer %d past %d instructions",
				fn.Name, ip, len(fn.Bytecode.Instructions))
		}
		if vm.traceInstr || vm.execTrace != nil {
			vm.traceStep(fn, ip)
		}

		state, yield, err := vm.step(fr, fn, ip, fn.Bytecode.Instructions[ip])
		if err != nil {
			return ExecState{}, err
		}
		if yield {
			if vm.execTrace != nil {
				vm.execTrace.TraceSuspend(state)
			}
			return state, nil
		}
	}
}

func (vm *VM) traceStep(fn *bytecode.Function, ip int) {
	rendered := vm.program.Render(fn, ip)
	if vm.traceInstr {
		trace.Point(vm.tracer, trace.ScopeInstr, fn.Name, rendered,
			"ip", strconv.Itoa(ip), "depth", strconv.Itoa(len(vm.frames)))
	}
	if vm.execTrace != nil {
		line := 0
		if ip < len(fn.Bytecode.SourceLines) {
			line = fn.Bytecode.SourceLines[ip]
		}
		vm.execTrace.TraceInstr(len(vm.frames), fn, ip, rendered, line)
	}
}

// step executes one instruction. fr must not be used after anything that
// can run nested code (filters) or push frames.
func (vm *VM) step(fr *Frame, fn *bytecode.Function, ip int, in bytecode.Instruction) (ExecState, bool, error) {
	none := ExecState{}
	switch in.Op {
	case bytecode.OpVizEnter, bytecode.OpVizExit:
		if in.Arg < 0 || in.Arg >= len(fn.VizNodes) {
			return none, false, newError(CodeIndexOutOfBounds, "viz node %d out of bounds for %d nodes", in.Arg, len(fn.VizNodes))
		}
		delta := viz.Enter
		if in.Op == bytecode.OpVizExit {
			delta = viz.Exit
		}
		return notifyViz(fn.Name, viz.EventFor(fn.VizNodes[in.Arg], delta)), true, nil

	case bytecode.OpLoadConst:
		if in.Arg < 0 || in.Arg >= len(fn.Bytecode.Constants) {
			return none, false, newError(CodeIndexOutOfBounds, "constant %d out of bounds for %d constants", in.Arg, len(fn.Bytecode.Constants))
		}
		vm.push(fn.Bytecode.Constants[in.Arg])

	case bytecode.OpLoadVar:
		abs, err := vm.local(fr, in.Arg)
		if err != nil {
			return none, false, err
		}
		vm.push(vm.stack[abs])

	case bytecode.OpStoreVar:
		return vm.storeVar(fr, in.Arg)

	case bytecode.OpLoadGlobal:
		if in.Arg < 0 || in.Arg >= len(vm.globals) {
			return none, false, newError(CodeIndexOutOfBounds, "global %d out of bounds for %d globals", in.Arg, len(vm.globals))
		}
		vm.push(vm.globals[in.Arg])

	case bytecode.OpStoreGlobal:
		v, err := vm.pop()
		if err != nil {
			return none, false, err
		}
		if in.Arg < 0 || in.Arg >= len(vm.globals) {
			return none, false, newError(CodeIndexOutOfBounds, "global %d out of bounds for %d globals", in.Arg, len(vm.globals))
		}
		vm.globals[in.Arg] = v

	case bytecode.OpLoadField:
		v, err := vm.pop()
		if err != nil {
			return none, false, err
		}
		_, inst, err := as[*bytecode.Instance](vm, v, "instance")
		if err != nil {
			return none, false, err
		}
		if in.Arg < 0 || in.Arg >= len(inst.Fields) {
			return none, false, newError(CodeIndexOutOfBounds, "field %d out of bounds for %d fields", in.Arg, len(inst.Fields))
		}
		vm.push(inst.Fields[in.Arg])

	case bytecode.OpStoreField:
		return vm.storeField(in.Arg)

	case bytecode.OpPop:
		if in.Arg < 0 || in.Arg > len(vm.stack) {
			return none, false, newError(CodeStackUnderflow, "pop %d from a stack of %d", in.Arg, len(vm.stack))
		}
		start := len(vm.stack) - in.Arg
		vm.releaseWatched(start)
		vm.stack = vm.stack[:start]

	case bytecode.OpCopy:
		i, err := vm.slotFromTop(in.Arg)
		if err != nil {
			return none, false, err
		}
		vm.push(vm.stack[i])

	case bytecode.OpPopReplace:
		v, err := vm.pop()
		if err != nil {
			return none, false, err
		}
		if in.Arg < 0 || in.Arg > len(vm.stack) {
			return none, false, newError(CodeStackUnderflow, "pop %d from a stack of %d", in.Arg, len(vm.stack))
		}
		start := len(vm.stack) - in.Arg
		vm.releaseWatched(start)
		vm.stack = append(vm.stack[:start], v)

	case bytecode.OpJump:
		fr.IP = ip + in.Arg

	case bytecode.OpJumpIfFalse:
		if len(vm.stack) == 0 {
			return none, false, newError(CodeStackUnderflow, "jump condition on empty stack")
		}
		top := vm.stack[len(vm.stack)-1]
		b, ok := top.AsBool()
		if !ok {
			return none, false, typeError("bool", vm.typeName(top))
		}
		if !b {
			fr.IP = ip + in.Arg
		}

	case bytecode.OpBinOp:
		return none, false, vm.binOp(bytecode.BinOp(in.Arg))

	case bytecode.OpCmpOp:
		return none, false, vm.cmpOp(bytecode.CmpOp(in.Arg))

	case bytecode.OpUnaryOp:
		return none, false, vm.unaryOp(bytecode.UnaryOp(in.Arg))

	case bytecode.OpAllocArray:
		if in.Arg < 0 || in.Arg > len(vm.stack) {
			return none, false, newError(CodeStackUnderflow, "array of %d from a stack of %d", in.Arg, len(vm.stack))
		}
		start := len(vm.stack) - in.Arg
		items := slices.Clone(vm.stack[start:])
		vm.stack = vm.stack[:start]
		vm.push(vm.AllocArray(items))

	case bytecode.OpAllocMap:
		return none, false, vm.allocMap(in.Arg)

	case bytecode.OpLoadArrayElement:
		idxVal, err := vm.pop()
		if err != nil {
			return none, false, err
		}
		arrVal, err := vm.pop()
		if err != nil {
			return none, false, err
		}
		_, arr, err := as[*bytecode.Array](vm, arrVal, "array")
		if err != nil {
			return none, false, err
		}
		i, err := vm.arrayIndex(idxVal, len(arr.Items))
		if err != nil {
			return none, false, err
		}
		vm.push(arr.Items[i])

	case bytecode.OpLoadMapElement:
		keyVal, err := vm.pop()
		if err != nil {
			return none, false, err
		}
		mapVal, err := vm.pop()
		if err != nil {
			return none, false, err
		}
		_, m, err := as[*bytecode.Map](vm, mapVal, "map")
		if err != nil {
			return none, false, err
		}
		key, err := vm.str(keyVal)
		if err != nil {
			return none, false, err
		}
		v, ok := m.Get(key)
		if !ok {
			return none, false, newError(CodeNoSuchKey, "no such key in map: %q", key)
		}
		vm.push(v)

	case bytecode.OpStoreArrayElement:
		return vm.storeArrayElement()

	case bytecode.OpStoreMapElement:
		return vm.storeMapElement()

	case bytecode.OpAllocInstance:
		_, class, err := as[*bytecode.Class](vm, bytecode.Obj(bytecode.ObjectIndex(in.Arg)), "class")
		if err != nil {
			return none, false, err
		}
		fields := make([]bytecode.Value, len(class.FieldNames))
		vm.push(vm.AllocInstance(bytecode.ObjectIndex(in.Arg), fields))

	case bytecode.OpAllocVariant:
		enumIdx := bytecode.ObjectIndex(in.Arg)
		_, enum, err := as[*bytecode.Enum](vm, bytecode.Obj(enumIdx), "enum")
		if err != nil {
			return none, false, err
		}
		v, err := vm.pop()
		if err != nil {
			return none, false, err
		}
		i, err := vm.arrayIndex(v, len(enum.Variants))
		if err != nil {
			return none, false, err
		}
		vm.push(vm.AllocVariant(enumIdx, i))

	case bytecode.OpDispatchFuture:
		return vm.dispatchFuture(in.Arg)

	case bytecode.OpAwait:
		if len(vm.stack) == 0 {
			return none, false, newError(CodeStackUnderflow, "await on empty stack")
		}
		top := len(vm.stack) - 1
		idx, fut, err := as[*bytecode.Future](vm, vm.stack[top], "future")
		if err != nil {
			return none, false, err
		}
		if !fut.Ready {
			// resume on this Await once the host fulfils the future
			fr.IP = ip
			return ExecState{Kind: StateAwait, Future: idx}, true, nil
		}
		vm.stack[top] = fut.Value

	case bytecode.OpWatch:
		return none, false, vm.watchLocal(fr, fn, ip, in.Arg)

	case bytecode.OpNotify:
		abs := fr.LocalsOffset + in.Arg
		node := watch.Local(abs)
		roots := vm.watch.RootsReaching(node)
		if len(roots) != 1 && (len(roots) == 0 || roots[0] != node) {
			return none, false, Other("Invalid manual notify")
		}
		return notifyVariables(roots), true, nil

	case bytecode.OpCall:
		return vm.call(in.Arg)

	case bytecode.OpReturn:
		return vm.ret(fr)

	case bytecode.OpAssert:
		v, err := vm.pop()
		if err != nil {
			return none, false, newError(CodeAssertion, "assertion failed")
		}
		b, ok := v.AsBool()
		if !ok {
			return none, false, typeError("bool", vm.typeName(v))
		}
		if !b {
			return none, false, newError(CodeAssertion, "assertion failed")
		}

	default:
		return none, false, newError(CodeTypeError, "unknown opcode %s", in.Op)
	}
	return none, false, nil
}

func (vm *VM) allocMap(n int) error {
	if n < 0 || 2*n > len(vm.stack) {
		return newError(CodeStackUnderflow, "map of %d entries from a stack of %d", n, len(vm.stack))
	}
	start := len(vm.stack) - 2*n
	values := vm.stack[start : start+n]
	keys := vm.stack[start+n:]
	m := bytecode.NewMap(n)
	for i, k := range keys {
		key, err := vm.str(k)
		if err != nil {
			return err
		}
		m.Set(key, values[i])
	}
	vm.stack = vm.stack[:start]
	vm.push(vm.AllocMap(m))
	return nil
}

func (vm *VM) call(argc int) (ExecState, bool, error) {
	none := ExecState{}
	at, err := vm.slotFromTop(argc)
	if err != nil {
		return none, false, err
	}
	idx, callee, err := as[*bytecode.Function](vm, vm.stack[at], "function")
	if err != nil {
		return none, false, err
	}
	if argc != callee.Arity {
		return none, false, newError(CodeArgumentCount, "%s expects %d arguments, got %d", callee.Name, callee.Arity, argc)
	}
	if len(vm.frames) >= MaxFrames {
		return none, false, newError(CodeStackOverflow, "stack overflow calling %s (%d frames)", callee.Name, len(vm.frames))
	}

	switch callee.Kind {
	case bytecode.FuncNative:
		impl, ok := natives[callee.Name]
		if !ok {
			return none, false, newError(CodeUnknownNative, "native function %s is not registered", callee.Name)
		}
		args := slices.Clone(vm.stack[at+1:])
		result, err := impl.fn(vm, args)
		if err != nil {
			return none, false, err
		}
		vm.stack = append(vm.stack[:at], result)
		if roots := vm.pending; len(roots) > 0 {
			vm.pending = nil
			return notifyVariables(roots), true, nil
		}

	case bytecode.FuncExec:
		vm.frames = append(vm.frames, Frame{Function: idx, LocalsOffset: at})

	default:
		return none, false, typeError("callable function", callee.Kind.String()+" function")
	}
	return none, false, nil
}

func (vm *VM) ret(fr *Frame) (ExecState, bool, error) {
	result, err := vm.pop()
	if err != nil {
		return ExecState{}, false, err
	}
	offset := fr.LocalsOffset
	if offset > len(vm.stack) {
		return ExecState{}, false, newError(CodeStackUnderflow, "frame starts at %d above the stack top %d", offset, len(vm.stack))
	}
	vm.releaseWatched(offset)
	vm.stack = append(vm.stack[:offset], result)
	vm.frames = vm.frames[:len(vm.frames)-1]

	if len(vm.frames) == vm.interruptFrame {
		vm.interruptFrame = -1
		v, err := vm.pop()
		return complete(v), true, err
	}
	if len(vm.frames) == 0 {
		v, err := vm.pop()
		return complete(v), true, err
	}
	return ExecState{}, false, nil
}

func (vm *VM) dispatchFuture(argc int) (ExecState, bool, error) {
	none := ExecState{}
	at, err := vm.slotFromTop(argc)
	if err != nil {
		return none, false, err
	}
	_, callee, err := as[*bytecode.Function](vm, vm.stack[at], "llm function")
	if err != nil {
		return none, false, err
	}
	if argc != callee.Arity {
		return none, false, newError(CodeArgumentCount, "%s expects %d arguments, got %d", callee.Name, callee.Arity, argc)
	}
	var kind bytecode.FutureKind
	switch callee.Kind {
	case bytecode.FuncLlm:
		kind = bytecode.FutureLlm
	case bytecode.FuncFuture:
		kind = bytecode.FutureNet
	default:
		return none, false, typeError("llm function", callee.Kind.String()+" function")
	}
	args := slices.Clone(vm.stack[at+1:])
	vm.stack = vm.stack[:at]
	idx := vm.alloc(&bytecode.Future{Function: callee.Name, Args: args, Kind: kind})
	vm.push(bytecode.Obj(idx))
	return ExecState{Kind: StateScheduleFuture, Future: idx}, true, nil
}

// arrayIndex checks v as an index into a sequence of n elements.
func (vm *VM) arrayIndex(v bytecode.Value, n int) (int, error) {
	i, ok := v.AsInt()
	if !ok {
		return 0, typeError("int", vm.typeName(v))
	}
	if i < 0 {
		return 0, newError(CodeNegativeIndex, "index %d is negative", i)
	}
	idx, err := safecast.Conv[int](i)
	if err != nil || idx >= n {
		return 0, newError(CodeIndexOutOfBounds, "index %d out of bounds for length %d", i, n)
	}
	return idx, nil
}
