package bytecode

import (
	"fmt"
	"strconv"
)

// Bytecode is the body of an exec function. SourceLines and Scopes run
// parallel to Instructions.
type Bytecode struct {
	Instructions []Instruction
	Constants    []Value
	SourceLines  []int
	Scopes       []int
}

// GlobalRef is the resolved entry of a top-level name.
type GlobalRef struct {
	Global int         `msgpack:"g"`
	Object ObjectIndex `msgpack:"o"`
}

// Program is the compiler output: the static object region and the global
// pool, plus name tables used to start functions without a symbol lookup at
// run time.
type Program struct {
	Objects   []Object
	Globals   []Value
	Functions map[string]GlobalRef
	Classes   map[string]ObjectIndex
	Enums     map[string]ObjectIndex
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{
		Functions: make(map[string]GlobalRef),
		Classes:   make(map[string]ObjectIndex),
		Enums:     make(map[string]ObjectIndex),
	}
}

// Add appends obj to the static region.
func (p *Program) Add(obj Object) ObjectIndex {
	p.Objects = append(p.Objects, obj)
	return ObjectIndex(len(p.Objects) - 1)
}

// Function returns the compiled function called name.
func (p *Program) Function(name string) (*Function, ObjectIndex, bool) {
	ref, ok := p.Functions[name]
	if !ok {
		return nil, 0, false
	}
	fn, ok := p.Objects[ref.Object].(*Function)
	return fn, ref.Object, ok
}

// ExecFunctions lists the bytecode functions in pool order.
func (p *Program) ExecFunctions() []*Function {
	var out []*Function
	for _, obj := range p.Objects {
		if fn, ok := obj.(*Function); ok && fn.Kind == FuncExec {
			out = append(out, fn)
		}
	}
	return out
}

// ObjectName names static descriptors for listings.
func ObjectName(obj Object) string {
	switch o := obj.(type) {
	case *Function:
		return o.Name
	case *Class:
		return o.Name
	case *Enum:
		return o.Name
	case *String:
		return strconv.Quote(o.Value)
	case *BamlType:
		return "<type " + o.Type.String() + ">"
	case nil:
		return "<nil>"
	default:
		return "<" + obj.ObjKind().String() + ">"
	}
}

// RenderValue prints a constant, resolving static objects.
func (p *Program) RenderValue(v Value) string {
	idx, ok := v.AsObject()
	if !ok {
		return v.String()
	}
	if int(idx) < 0 || int(idx) >= len(p.Objects) {
		return v.String()
	}
	return ObjectName(p.Objects[idx])
}

// LocalName resolves slot as seen by the instruction at ip.
func (fn *Function) LocalName(ip, slot int) (string, bool) {
	if ip < 0 || ip >= len(fn.Bytecode.Scopes) {
		return "", false
	}
	scope := fn.Bytecode.Scopes[ip]
	if scope < 0 || scope >= len(fn.LocalsInScope) {
		return "", false
	}
	names := fn.LocalsInScope[scope]
	if slot < 0 || slot >= len(names) {
		return "", false
	}
	return names[slot], true
}

// Render prints the instruction at ip with operands resolved to names:
// constants by value, locals and globals by name, classes and enums by name.
func (p *Program) Render(fn *Function, ip int) string {
	in := fn.Bytecode.Instructions[ip]
	switch in.Op {
	case OpLoadConst:
		if in.Arg >= 0 && in.Arg < len(fn.Bytecode.Constants) {
			return in.Op.String() + " " + p.RenderValue(fn.Bytecode.Constants[in.Arg])
		}
	case OpLoadVar, OpStoreVar, OpWatch, OpNotify:
		if name, ok := fn.LocalName(ip, in.Arg); ok {
			return in.Op.String() + " " + name
		}
	case OpLoadGlobal, OpStoreGlobal:
		if in.Arg >= 0 && in.Arg < len(p.Globals) {
			return in.Op.String() + " " + p.RenderValue(p.Globals[in.Arg])
		}
	case OpAllocInstance, OpAllocVariant:
		if in.Arg >= 0 && in.Arg < len(p.Objects) {
			return in.Op.String() + " " + ObjectName(p.Objects[in.Arg])
		}
	}
	return in.String()
}

// RenderAll renders every instruction of fn.
func (p *Program) RenderAll(fn *Function) []string {
	out := make([]string, len(fn.Bytecode.Instructions))
	for i := range out {
		out[i] = p.Render(fn, i)
	}
	return out
}

// Validate checks the static invariants of a program: parallel metadata,
// constant and global indices, and jump targets.
func (p *Program) Validate() error {
	for _, obj := range p.Objects {
		fn, ok := obj.(*Function)
		if !ok || fn.Kind != FuncExec {
			continue
		}
		bc := &fn.Bytecode
		n := len(bc.Instructions)
		if len(bc.SourceLines) != n || len(bc.Scopes) != n {
			return fmt.Errorf("%s: metadata length mismatch (%d instructions, %d lines, %d scopes)",
				fn.Name, n, len(bc.SourceLines), len(bc.Scopes))
		}
		for ip, in := range bc.Instructions {
			switch {
			case in.Op.IsJump():
				if t := ip + in.Arg; t < 0 || t >= n {
					return fmt.Errorf("%s: jump at %d lands outside the function (%d)", fn.Name, ip, t)
				}
			case in.Op == OpLoadConst:
				if in.Arg < 0 || in.Arg >= len(bc.Constants) {
					return fmt.Errorf("%s: constant %d out of range at %d", fn.Name, in.Arg, ip)
				}
			case in.Op == OpLoadGlobal || in.Op == OpStoreGlobal:
				if in.Arg < 0 || in.Arg >= len(p.Globals) {
					return fmt.Errorf("%s: global %d out of range at %d", fn.Name, in.Arg, ip)
				}
			case in.Op.IsViz():
				if in.Arg < 0 || in.Arg >= len(fn.VizNodes) {
					return fmt.Errorf("%s: viz node %d out of range at %d", fn.Name, in.Arg, ip)
				}
			}
		}
	}
	return nil
}
