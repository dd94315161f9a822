package vm

import (
	"fmt"
	"io"

	"baml/internal/bytecode"
	"baml/internal/source"
)

// Tracer prints an execution trace for debugging.
type Tracer struct {
	w     io.Writer
	files *source.FileSet
	vm    *VM
}

// NewTracer creates a tracer that writes to w. files resolves source
// locations and may be nil.
func NewTracer(w io.Writer, files *source.FileSet) *Tracer {
	return &Tracer{w: w, files: files}
}

// TraceInstr traces one instruction.
// Format: [depth=N] <func> ip<ip> <instr> @ <file>:<line>
func (t *Tracer) TraceInstr(depth int, fn *bytecode.Function, ip int, rendered string, line int) {
	if t == nil || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "[depth=%d] %s ip%d %s @ %s\n", depth, fn.Name, ip, rendered, t.formatLine(fn, line))
	if t.vm != nil && len(t.vm.stack) > 0 {
		fmt.Fprintf(t.w, "    top = %s\n", t.formatValue(t.vm.stack[len(t.vm.stack)-1]))
	}
}

func (t *Tracer) TraceAlloc(kind bytecode.ObjectKind, idx bytecode.ObjectIndex) {
	if t == nil || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "[heap] alloc %s#%d\n", kind, idx)
}

// TraceSuspend records why Exec returned to the host.
func (t *Tracer) TraceSuspend(state ExecState) {
	if t == nil || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "[suspend] %s\n", state)
}

func (t *Tracer) TraceCollect(freed int) {
	if t == nil || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "[heap] collect %d objects\n", freed)
}

func (t *Tracer) formatLine(fn *bytecode.Function, line int) string {
	if t.files == nil {
		return fmt.Sprintf("line %d", line)
	}
	file := t.files.Get(fn.Span.File)
	if file == nil {
		return fmt.Sprintf("line %d", line)
	}
	return fmt.Sprintf("%s:%d", file.Path, line)
}

// formatValue keeps the dump on one line; strings longer than 40 bytes are
// cut.
func (t *Tracer) formatValue(v bytecode.Value) string {
	idx, ok := v.AsObject()
	if !ok {
		return v.String()
	}
	obj, ok := t.vm.Object(idx)
	if !ok {
		return fmt.Sprintf("<dangling #%d>", idx)
	}
	switch o := obj.(type) {
	case *bytecode.String:
		s := o.Value
		if len(s) > 40 {
			s = s[:40] + "..."
		}
		return fmt.Sprintf("string#%d %q", idx, s)
	case *bytecode.Array:
		return fmt.Sprintf("array#%d len=%d", idx, len(o.Items))
	case *bytecode.Map:
		return fmt.Sprintf("map#%d len=%d", idx, o.Len())
	default:
		return fmt.Sprintf("%s#%d %s", obj.ObjKind(), idx, bytecode.ObjectName(obj))
	}
}
