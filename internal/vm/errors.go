package vm

import (
	"errors"
	"fmt"
	"strings"

	"baml/internal/bytecode"
	"baml/internal/source"
)

// Code identifies the kind of a VM fault.
type Code int

// Stable codes - do not change values. 1xxx are runtime errors a program can
// legitimately hit, 2xxx are internal errors that mean the bytecode or the VM
// is broken.
const (
	CodeAssertion      Code = 1001 // VM1001: assert failed
	CodeDivisionByZero Code = 1002 // VM1002: division by zero
	CodeNoSuchKey      Code = 1003 // VM1003: map key not found
	CodeStackOverflow  Code = 1004 // VM1004: too many frames
	CodeFutureFailed   Code = 1005 // VM1005: host resolved a future with an error
	CodeOther          Code = 1999 // VM1999: other runtime error

	CodeTypeError          Code = 2001 // VM2001: unexpected value or object type
	CodeNegativeIP         Code = 2002 // VM2002: instruction pointer below zero
	CodeNegativeIndex      Code = 2003 // VM2003: negative array index
	CodeIndexOutOfBounds   Code = 2004 // VM2004: array index out of bounds
	CodeCannotApplyBinOp   Code = 2005 // VM2005: operator does not apply
	CodeCannotApplyCmpOp   Code = 2006
	CodeCannotApplyUnaryOp Code = 2007
	CodeArgumentCount      Code = 2008 // VM2008: wrong number of arguments
	CodeStackUnderflow     Code = 2009 // VM2009: pop from empty stack
	CodeUnknownNative      Code = 2010 // VM2010: native function not registered
	CodeIPOutOfRange       Code = 2011 // VM2011: instruction pointer past the end
)

func (c Code) String() string {
	return fmt.Sprintf("VM%d", c)
}

// Runtime reports codes a correct program may produce.
func (c Code) Runtime() bool { return c < 2000 }

// VMError is a fault raised while executing bytecode.
type VMError struct {
	Code    Code
	Message string
	// Cause is set for CodeFutureFailed.
	Cause error
}

func (e *VMError) Error() string {
	kind := "internal error"
	if e.Code.Runtime() {
		kind = "runtime error"
	}
	return fmt.Sprintf("%s %s: %s", kind, e.Code, e.Message)
}

func (e *VMError) Unwrap() error { return e.Cause }

func newError(code Code, format string, args ...any) *VMError {
	return &VMError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func typeError(expected, got string) *VMError {
	return newError(CodeTypeError, "expected %s, got %s", expected, got)
}

// Other builds a CodeOther error, the kind natives use for domain failures.
func Other(format string, args ...any) *VMError {
	return newError(CodeOther, format, args...)
}

// IsCode reports whether err wraps a VMError with the given code.
func IsCode(err error, code Code) bool {
	var vmErr *VMError
	return errors.As(err, &vmErr) && vmErr.Code == code
}

// ErrorLocation is one frame of a stack trace.
type ErrorLocation struct {
	FunctionName string
	Span         source.Span
	Line         int
}

// StackTrace is a VM error with the frames active when it was raised,
// outermost first.
type StackTrace struct {
	Err   *VMError
	Trace []ErrorLocation
}

func (st *StackTrace) Error() string { return st.Err.Error() }

func (st *StackTrace) Unwrap() error { return st.Err }

// FormatWithFiles renders the error and its frames, innermost last, resolving
// file names through files when given.
func (st *StackTrace) FormatWithFiles(files *source.FileSet) string {
	var sb strings.Builder
	sb.WriteString(st.Err.Error())
	sb.WriteString("\n")
	if len(st.Trace) == 0 {
		return sb.String()
	}
	sb.WriteString("stack trace:\n")
	for i, loc := range st.Trace {
		fmt.Fprintf(&sb, "  %d: %s at %s\n", i, loc.FunctionName, formatLocation(loc, files))
	}
	return sb.String()
}

func formatLocation(loc ErrorLocation, files *source.FileSet) string {
	if files == nil {
		return fmt.Sprintf("line %d", loc.Line)
	}
	f := files.Get(loc.Span.File)
	if f == nil {
		return fmt.Sprintf("line %d", loc.Line)
	}
	return fmt.Sprintf("%s:%d", f.Path, loc.Line)
}

// StackTrace attaches the current frames to err. The failing instruction of
// each frame is the one before its instruction pointer.
func (vm *VM) StackTrace(err error) *StackTrace {
	var vmErr *VMError
	if !errors.As(err, &vmErr) {
		vmErr = &VMError{Code: CodeOther, Message: err.Error(), Cause: err}
	}
	st := &StackTrace{Err: vmErr}
	for _, fr := range vm.frames {
		fn, ok := vm.objects[fr.Function].(*bytecode.Function)
		if !ok {
			continue
		}
		last := max(fr.IP-1, 0)
		line := 0
		if last < len(fn.Bytecode.SourceLines) {
			line = fn.Bytecode.SourceLines[last]
		}
		st.Trace = append(st.Trace, ErrorLocation{FunctionName: fn.Name, Span: fn.Span, Line: line})
	}
	return st
}
