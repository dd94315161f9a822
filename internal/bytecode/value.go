package bytecode

import (
	"math"
	"strconv"
)

// ObjectIndex addresses an object in the pool.
type ObjectIndex int

// ValueKind tags a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindInt
	KindFloat
	KindBool
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is what lives on the evaluation stack, in local slots and inside
// containers. Heap data is referenced by index, so copying a Value aliases
// the object it points at.
type Value struct {
	kind ValueKind
	bits uint64
}

// Null is the zero Value.
var Null = Value{}

func Int(n int64) Value {
	return Value{kind: KindInt, bits: uint64(n)}
}

func Float(f float64) Value {
	return Value{kind: KindFloat, bits: math.Float64bits(f)}
}

func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.bits = 1
	}
	return v
}

// Obj references the object at idx.
func Obj(idx ObjectIndex) Value {
	return Value{kind: KindObject, bits: uint64(idx)}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return int64(v.bits), true
}

func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return math.Float64frombits(v.bits), true
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.bits != 0, true
}

func (v Value) AsObject() (ObjectIndex, bool) {
	if v.kind != KindObject {
		return 0, false
	}
	return ObjectIndex(v.bits), true
}

// String renders primitives; objects print as their pool index.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(int64(v.bits), 10)
	case KindFloat:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.bits != 0)
	case KindObject:
		return "#" + strconv.FormatUint(v.bits, 10)
	default:
		return "null"
	}
}
