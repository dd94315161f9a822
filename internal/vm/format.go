package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"baml/internal/bytecode"
)

const indentUnit = "    "

// Format renders v the way baml.unstable.string does. Instances and maps
// print one entry per line, one indent deeper; arrays stay on one line at
// the current indent. Nesting deeper than the remaining frame budget is
// reported as a stack overflow, which also stops cyclic values.
func (vm *VM) Format(v bytecode.Value) (string, error) {
	var sb strings.Builder
	if err := vm.format(&sb, v, 0, 0); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// FormatFloat prints floats the way the VM stringifies them.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// depth is the indent level, nest counts every container entered.
func (vm *VM) format(sb *strings.Builder, v bytecode.Value, depth, nest int) error {
	if nest >= MaxFrames-len(vm.frames) {
		return newError(CodeStackOverflow, "value nested deeper than %d levels", nest)
	}
	switch v.Kind() {
	case bytecode.KindNull:
		sb.WriteString("null")
		return nil
	case bytecode.KindInt:
		n, _ := v.AsInt()
		sb.WriteString(strconv.FormatInt(n, 10))
		return nil
	case bytecode.KindFloat:
		f, _ := v.AsFloat()
		sb.WriteString(FormatFloat(f))
		return nil
	case bytecode.KindBool:
		b, _ := v.AsBool()
		sb.WriteString(strconv.FormatBool(b))
		return nil
	}

	idx, _ := v.AsObject()
	obj, err := vm.objectAt(idx)
	if err != nil {
		return err
	}
	switch o := obj.(type) {
	case *bytecode.String:
		sb.WriteString(strconv.Quote(o.Value))
	case *bytecode.Array:
		sb.WriteByte('[')
		for i, item := range o.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := vm.format(sb, item, depth, nest+1); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case *bytecode.Map:
		sb.WriteString("{\n")
		for i := range o.Len() {
			k, item := o.At(i)
			sb.WriteString(strings.Repeat(indentUnit, depth+1))
			sb.WriteString(strconv.Quote(k))
			sb.WriteString(": ")
			if err := vm.format(sb, item, depth+1, nest+1); err != nil {
				return err
			}
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.Repeat(indentUnit, depth))
		sb.WriteByte('}')
	case *bytecode.Instance:
		class, _ := vm.objects[o.Class].(*bytecode.Class)
		name := "instance"
		if class != nil {
			name = class.Name
		}
		sb.WriteString(name)
		sb.WriteString(" {\n")
		for i, f := range o.Fields {
			field := fmt.Sprintf("field_%d", i)
			if class != nil && i < len(class.FieldNames) {
				field = class.FieldNames[i]
			}
			sb.WriteString(strings.Repeat(indentUnit, depth+1))
			sb.WriteString(field)
			sb.WriteString(": ")
			if err := vm.format(sb, f, depth+1, nest+1); err != nil {
				return err
			}
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.Repeat(indentUnit, depth))
		sb.WriteByte('}')
	case *bytecode.Enum:
		sb.WriteString(o.Name)
	case *bytecode.Variant:
		sb.WriteString(vm.variantName(o))
	case *bytecode.Function:
		fmt.Fprintf(sb, "<function %s>", o.Name)
	case *bytecode.Class:
		fmt.Fprintf(sb, "<class %s>", o.Name)
	case *bytecode.Media:
		sb.WriteString("<media>")
	case *bytecode.Future:
		sb.WriteString("<future>")
	case *bytecode.BamlType:
		sb.WriteString("<baml type>")
	default:
		sb.WriteString("<" + obj.ObjKind().String() + ">")
	}
	return nil
}

func (vm *VM) variantName(v *bytecode.Variant) string {
	if int(v.Enum) < len(vm.objects) {
		if enum, ok := vm.objects[v.Enum].(*bytecode.Enum); ok && v.Index >= 0 && v.Index < len(enum.Variants) {
			return enum.Variants[v.Index]
		}
	}
	return fmt.Sprintf("variant_%d", v.Index)
}
