package vm

import (
	"baml/internal/builtin"
	"baml/internal/bytecode"
	"baml/internal/watch"
)

// VariableInfo describes a watched root for the host.
type VariableInfo struct {
	Name     string
	Function string
	Channel  string
	Value    bytecode.Value
}

// WatchedVariable resolves a root listed in a variables notification.
func (vm *VM) WatchedVariable(node watch.NodeID) (VariableInfo, bool) {
	root, ok := vm.watch.Root(node)
	if !ok || node.Kind != watch.NodeLocal {
		return VariableInfo{}, false
	}
	wv := vm.watchedVars[node.Index]
	return VariableInfo{Name: wv.name, Function: wv.function, Channel: root.Channel, Value: root.Value}, true
}

func (vm *VM) watchLocal(fr *Frame, fn *bytecode.Function, ip, slot int) error {
	filterVal, err := vm.pop()
	if err != nil {
		return err
	}
	channelVal, err := vm.pop()
	if err != nil {
		return err
	}
	filter, err := vm.parseFilter(filterVal)
	if err != nil {
		return err
	}
	channel, err := vm.str(channelVal)
	if err != nil {
		return err
	}
	abs, err := vm.local(fr, slot)
	if err != nil {
		return err
	}
	value := vm.stack[abs]
	node := watch.Local(abs)
	vm.watch.RegisterRoot(node, watch.RootState{Value: value, Channel: channel, Filter: filter})

	name, ok := fn.LocalName(ip, slot)
	if !ok {
		name = channel
	}
	vm.watchedVars[abs] = watchedVar{name: name, function: fn.Name}
	if idx, ok := value.AsObject(); ok {
		vm.watch.LinkEdge(node, watch.Binding, watch.Object(idx), vm.objects)
	}
	return nil
}

func (vm *VM) parseFilter(v bytecode.Value) (watch.Filter, error) {
	if v.IsNull() {
		return watch.Filter{Kind: watch.FilterDefault}, nil
	}
	idx, ok := v.AsObject()
	if ok {
		switch obj := vm.objects[idx].(type) {
		case *bytecode.Function:
			if obj.Arity != 1 {
				return watch.Filter{}, newError(CodeArgumentCount, "watch filter %s must take 1 argument, takes %d", obj.Name, obj.Arity)
			}
			return watch.Filter{Kind: watch.FilterFunction, Function: idx}, nil
		case *bytecode.String:
			switch obj.Value {
			case builtin.FilterManual:
				return watch.Filter{Kind: watch.FilterManual}, nil
			case builtin.FilterNever:
				return watch.Filter{Kind: watch.FilterPaused}, nil
			}
		}
	}
	return watch.Filter{}, Other("Invalid filter: %s", vm.program.RenderValue(v))
}

// releaseWatched drops every watched root at stack index from or above.
func (vm *VM) releaseWatched(from int) {
	if len(vm.watchedVars) == 0 {
		return
	}
	for i := from; i < len(vm.stack); i++ {
		if _, ok := vm.watchedVars[i]; !ok {
			continue
		}
		delete(vm.watchedVars, i)
		node := watch.Local(i)
		vm.watch.UnregisterRoot(node)
		if idx, ok := vm.stack[i].AsObject(); ok {
			vm.watch.UnlinkEdge(node, watch.Binding, watch.Object(idx))
		}
	}
}

func (vm *VM) storeVar(fr *Frame, slot int) (ExecState, bool, error) {
	v, err := vm.pop()
	if err != nil {
		return ExecState{}, false, err
	}
	abs, err := vm.local(fr, slot)
	if err != nil {
		return ExecState{}, false, err
	}
	old := vm.stack[abs]
	vm.stack[abs] = v
	if _, ok := vm.watchedVars[abs]; !ok {
		return ExecState{}, false, nil
	}

	node := watch.Local(abs)
	vm.relink(node, watch.Binding, old, v)
	if root, ok := vm.watch.Root(node); ok {
		oldCopy, err := vm.DeepCopy(old)
		if err != nil {
			return ExecState{}, false, err
		}
		root.LastAssigned = &oldCopy
		root.Value = v
	}
	return vm.notifyFrom(node)
}

func (vm *VM) storeField(field int) (ExecState, bool, error) {
	v, err := vm.pop()
	if err != nil {
		return ExecState{}, false, err
	}
	instVal, err := vm.pop()
	if err != nil {
		return ExecState{}, false, err
	}
	idx, inst, err := as[*bytecode.Instance](vm, instVal, "instance")
	if err != nil {
		return ExecState{}, false, err
	}
	if field < 0 || field >= len(inst.Fields) {
		return ExecState{}, false, newError(CodeIndexOutOfBounds, "field %d out of bounds for %d fields", field, len(inst.Fields))
	}
	node := watch.Object(idx)
	watched := vm.watch.IsWatched(node)
	if watched {
		if err := vm.updateWatchedNode(node, watch.Field(field), inst.Fields[field], v); err != nil {
			return ExecState{}, false, err
		}
	}
	inst.Fields[field] = v
	if !watched {
		return ExecState{}, false, nil
	}
	return vm.notifyFrom(node)
}

func (vm *VM) storeArrayElement() (ExecState, bool, error) {
	v, err := vm.pop()
	if err != nil {
		return ExecState{}, false, err
	}
	idxVal, err := vm.pop()
	if err != nil {
		return ExecState{}, false, err
	}
	arrVal, err := vm.pop()
	if err != nil {
		return ExecState{}, false, err
	}
	idx, arr, err := as[*bytecode.Array](vm, arrVal, "array")
	if err != nil {
		return ExecState{}, false, err
	}
	i, err := vm.arrayIndex(idxVal, len(arr.Items))
	if err != nil {
		return ExecState{}, false, err
	}
	node := watch.Object(idx)
	watched := vm.watch.IsWatched(node)
	if watched {
		if err := vm.updateWatchedNode(node, watch.Index(i), arr.Items[i], v); err != nil {
			return ExecState{}, false, err
		}
	}
	arr.Items[i] = v
	if !watched {
		return ExecState{}, false, nil
	}
	return vm.notifyFrom(node)
}

func (vm *VM) storeMapElement() (ExecState, bool, error) {
	v, err := vm.pop()
	if err != nil {
		return ExecState{}, false, err
	}
	keyVal, err := vm.pop()
	if err != nil {
		return ExecState{}, false, err
	}
	mapVal, err := vm.pop()
	if err != nil {
		return ExecState{}, false, err
	}
	idx, m, err := as[*bytecode.Map](vm, mapVal, "map")
	if err != nil {
		return ExecState{}, false, err
	}
	key, err := vm.str(keyVal)
	if err != nil {
		return ExecState{}, false, err
	}
	node := watch.Object(idx)
	watched := vm.watch.IsWatched(node)
	if watched {
		old, _ := m.Get(key)
		if err := vm.updateWatchedNode(node, watch.Key(key), old, v); err != nil {
			return ExecState{}, false, err
		}
	}
	m.Set(key, v)
	if !watched {
		return ExecState{}, false, nil
	}
	return vm.notifyFrom(node)
}

// relink moves the edge parent -path-> old over to new.
func (vm *VM) relink(parent watch.NodeID, path watch.Path, old, new bytecode.Value) {
	if idx, ok := old.AsObject(); ok {
		vm.watch.UnlinkEdge(parent, path, watch.Object(idx))
	}
	if idx, ok := new.AsObject(); ok {
		vm.watch.LinkEdge(parent, path, watch.Object(idx), vm.objects)
	}
}

// updateWatchedNode runs before an in-place mutation of a watched object.
// Every root reaching it snapshots its current value as the last assigned
// one, so the default filter can compare after the write.
func (vm *VM) updateWatchedNode(node watch.NodeID, path watch.Path, old, new bytecode.Value) error {
	vm.relink(node, path, old, new)
	for _, r := range vm.watch.RootsReaching(node) {
		root, ok := vm.watch.Root(r)
		if !ok {
			continue
		}
		snapshot, err := vm.DeepCopy(root.Value)
		if err != nil {
			return err
		}
		root.LastAssigned = &snapshot
	}
	return nil
}

func (vm *VM) notifyFrom(node watch.NodeID) (ExecState, bool, error) {
	roots, err := vm.processNotifications(node)
	if err != nil {
		return ExecState{}, false, err
	}
	if len(roots) == 0 {
		return ExecState{}, false, nil
	}
	return notifyVariables(roots), true, nil
}

// processNotifications returns the roots reaching node whose filter lets the
// change through. Function filters run to completion on this VM before it
// returns.
func (vm *VM) processNotifications(node watch.NodeID) ([]watch.NodeID, error) {
	var out []watch.NodeID
	for _, r := range vm.watch.RootsReaching(node) {
		root, ok := vm.watch.Root(r)
		if !ok {
			continue
		}
		switch root.Filter.Kind {
		case watch.FilterManual, watch.FilterPaused:
			continue
		case watch.FilterDefault:
			if root.LastAssigned == nil || !vm.DeepEquals(*root.LastAssigned, root.Value) {
				out = append(out, r)
			}
		case watch.FilterFunction:
			ok, err := vm.runFilter(root.Filter.Function, root.Value)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// runFilter calls a filter function on top of the current stack and runs it
// until it returns. Notifications raised inside the filter are dropped.
func (vm *VM) runFilter(fnIdx bytecode.ObjectIndex, arg bytecode.Value) (bool, error) {
	prev := vm.interruptFrame
	defer func() { vm.interruptFrame = prev }()

	fn, err := vm.function(fnIdx)
	if err != nil {
		return false, err
	}
	if fn.Kind != bytecode.FuncExec || fn.Arity != 1 {
		return false, Other("Invalid filter function %s", fn.Name)
	}
	if len(vm.frames) >= MaxFrames {
		return false, newError(CodeStackOverflow, "stack overflow calling filter %s", fn.Name)
	}
	vm.interruptFrame = len(vm.frames)
	offset := len(vm.stack)
	vm.stack = append(vm.stack, bytecode.Obj(fnIdx), arg)
	vm.frames = append(vm.frames, Frame{Function: fnIdx, LocalsOffset: offset})

	for {
		state, err := vm.Exec()
		if err != nil {
			return false, err
		}
		switch state.Kind {
		case StateNotify:
			continue
		case StateComplete:
			if b, ok := state.Value.AsBool(); ok {
				return b, nil
			}
		}
		return false, Other("Invalid filter function return: %s", state)
	}
}
