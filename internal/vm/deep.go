package vm

import (
	"math"

	"baml/internal/bytecode"
)

// DeepCopy copies the object graph under v. Strings, arrays, maps, instances,
// variants and media are duplicated; functions, classes, enums, futures and
// reified types are shared. Cycles and shared references are preserved.
func (vm *VM) DeepCopy(v bytecode.Value) (bytecode.Value, error) {
	copied := make(map[bytecode.ObjectIndex]bytecode.ObjectIndex)
	return vm.deepCopy(v, copied)
}

func (vm *VM) deepCopy(v bytecode.Value, copied map[bytecode.ObjectIndex]bytecode.ObjectIndex) (bytecode.Value, error) {
	idx, ok := v.AsObject()
	if !ok {
		return v, nil
	}
	if dst, ok := copied[idx]; ok {
		return bytecode.Obj(dst), nil
	}
	obj, err := vm.objectAt(idx)
	if err != nil {
		return bytecode.Null, err
	}

	switch o := obj.(type) {
	case *bytecode.String:
		dst := vm.alloc(&bytecode.String{Value: o.Value})
		copied[idx] = dst
		return bytecode.Obj(dst), nil

	case *bytecode.Variant:
		dst := vm.alloc(&bytecode.Variant{Enum: o.Enum, Index: o.Index})
		copied[idx] = dst
		return bytecode.Obj(dst), nil

	case *bytecode.Media:
		m := *o
		dst := vm.alloc(&m)
		copied[idx] = dst
		return bytecode.Obj(dst), nil

	case *bytecode.Array:
		// Allocate before recursing so cycles resolve to the copy.
		arr := &bytecode.Array{Items: make([]bytecode.Value, len(o.Items))}
		dst := vm.alloc(arr)
		copied[idx] = dst
		for i, item := range o.Items {
			c, err := vm.deepCopy(item, copied)
			if err != nil {
				return bytecode.Null, err
			}
			arr.Items[i] = c
		}
		return bytecode.Obj(dst), nil

	case *bytecode.Map:
		m := bytecode.NewMap(o.Len())
		dst := vm.alloc(m)
		copied[idx] = dst
		for i := range o.Len() {
			k, item := o.At(i)
			c, err := vm.deepCopy(item, copied)
			if err != nil {
				return bytecode.Null, err
			}
			m.Set(k, c)
		}
		return bytecode.Obj(dst), nil

	case *bytecode.Instance:
		inst := &bytecode.Instance{Class: o.Class, Fields: make([]bytecode.Value, len(o.Fields))}
		dst := vm.alloc(inst)
		copied[idx] = dst
		for i, f := range o.Fields {
			c, err := vm.deepCopy(f, copied)
			if err != nil {
				return bytecode.Null, err
			}
			inst.Fields[i] = c
		}
		return bytecode.Obj(dst), nil
	}
	return v, nil
}

type objPair struct{ a, b bytecode.ObjectIndex }

// DeepEquals compares structurally. Ints and floats never equal each other,
// NaN equals NaN, and map entries compare regardless of insertion order.
// Cyclic graphs compare equal when every reachable pair does.
func (vm *VM) DeepEquals(a, b bytecode.Value) bool {
	return vm.deepEquals(a, b, make(map[objPair]struct{}))
}

func (vm *VM) deepEquals(a, b bytecode.Value, visited map[objPair]struct{}) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case bytecode.KindNull:
		return true
	case bytecode.KindFloat:
		x, _ := a.AsFloat()
		y, _ := b.AsFloat()
		return x == y || (math.IsNaN(x) && math.IsNaN(y))
	case bytecode.KindObject:
	default:
		return a == b
	}

	ia, _ := a.AsObject()
	ib, _ := b.AsObject()
	if ia == ib {
		return true
	}
	key := objPair{min(ia, ib), max(ia, ib)}
	if _, ok := visited[key]; ok {
		return true
	}
	visited[key] = struct{}{}

	oa, ok := vm.Object(ia)
	if !ok {
		return false
	}
	ob, ok := vm.Object(ib)
	if !ok {
		return false
	}

	switch x := oa.(type) {
	case *bytecode.String:
		y, ok := ob.(*bytecode.String)
		return ok && x.Value == y.Value
	case *bytecode.Array:
		y, ok := ob.(*bytecode.Array)
		if !ok || len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !vm.deepEquals(x.Items[i], y.Items[i], visited) {
				return false
			}
		}
		return true
	case *bytecode.Map:
		y, ok := ob.(*bytecode.Map)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for i := range x.Len() {
			k, xv := x.At(i)
			yv, ok := y.Get(k)
			if !ok || !vm.deepEquals(xv, yv, visited) {
				return false
			}
		}
		return true
	case *bytecode.Instance:
		y, ok := ob.(*bytecode.Instance)
		if !ok || x.Class != y.Class || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if !vm.deepEquals(x.Fields[i], y.Fields[i], visited) {
				return false
			}
		}
		return true
	case *bytecode.Variant:
		y, ok := ob.(*bytecode.Variant)
		return ok && x.Enum == y.Enum && x.Index == y.Index
	case *bytecode.Media:
		y, ok := ob.(*bytecode.Media)
		return ok && *x == *y
	case *bytecode.Future:
		y, ok := ob.(*bytecode.Future)
		return ok && x.Ready && y.Ready && vm.deepEquals(x.Value, y.Value, visited)
	}
	return false
}
