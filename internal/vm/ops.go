package vm

import (
	"math"

	"baml/internal/bytecode"
)

func (vm *VM) pop2() (bytecode.Value, bytecode.Value, error) {
	right, err := vm.pop()
	if err != nil {
		return right, right, err
	}
	left, err := vm.pop()
	return left, right, err
}

func (vm *VM) binOp(op bytecode.BinOp) error {
	left, right, err := vm.pop2()
	if err != nil {
		return err
	}
	if a, ok := left.AsInt(); ok {
		if b, ok := right.AsInt(); ok {
			r, err := intBinOp(op, a, b)
			if err != nil {
				return err
			}
			vm.push(bytecode.Int(r))
			return nil
		}
	}
	if a, ok := left.AsFloat(); ok {
		if b, ok := right.AsFloat(); ok {
			r, err := floatBinOp(op, a, b)
			if err != nil {
				return err
			}
			vm.push(bytecode.Float(r))
			return nil
		}
	}
	if op == bytecode.Add {
		a, errA := vm.str(left)
		b, errB := vm.str(right)
		if errA == nil && errB == nil {
			vm.push(vm.AllocString(a + b))
			return nil
		}
	}
	return newError(CodeCannotApplyBinOp, "cannot apply %s to %s and %s", op, vm.typeName(left), vm.typeName(right))
}

func intBinOp(op bytecode.BinOp, a, b int64) (int64, error) {
	switch op {
	case bytecode.Add:
		return a + b, nil
	case bytecode.Sub:
		return a - b, nil
	case bytecode.Mul:
		return a * b, nil
	case bytecode.Div:
		if b == 0 {
			return 0, newError(CodeDivisionByZero, "division by zero")
		}
		return a / b, nil
	case bytecode.Mod:
		if b == 0 {
			return 0, newError(CodeDivisionByZero, "modulo by zero")
		}
		return a % b, nil
	case bytecode.BitAnd:
		return a & b, nil
	case bytecode.BitOr:
		return a | b, nil
	case bytecode.BitXor:
		return a ^ b, nil
	case bytecode.Shl:
		if b < 0 {
			return 0, Other("negative shift amount %d", b)
		}
		return a << uint64(b), nil
	case bytecode.Shr:
		if b < 0 {
			return 0, Other("negative shift amount %d", b)
		}
		return a >> uint64(b), nil
	}
	return 0, newError(CodeCannotApplyBinOp, "cannot apply %s to int", op)
}

func floatBinOp(op bytecode.BinOp, a, b float64) (float64, error) {
	switch op {
	case bytecode.Add:
		return a + b, nil
	case bytecode.Sub:
		return a - b, nil
	case bytecode.Mul:
		return a * b, nil
	case bytecode.Div:
		if b == 0 {
			return 0, newError(CodeDivisionByZero, "division by zero")
		}
		return a / b, nil
	case bytecode.Mod:
		return math.Mod(a, b), nil
	}
	return 0, newError(CodeCannotApplyBinOp, "cannot apply %s to float", op)
}

func (vm *VM) cmpOp(op bytecode.CmpOp) error {
	left, right, err := vm.pop2()
	if err != nil {
		return err
	}
	if op == bytecode.InstanceOf {
		_, inst, err := as[*bytecode.Instance](vm, left, "instance")
		if err != nil {
			return err
		}
		class, ok := right.AsObject()
		if !ok {
			return typeError("class", vm.typeName(right))
		}
		vm.push(bytecode.Bool(inst.Class == class))
		return nil
	}

	if a, ok := left.AsInt(); ok {
		if b, ok := right.AsInt(); ok {
			vm.push(bytecode.Bool(ordered(op, a, b)))
			return nil
		}
	}
	if a, ok := left.AsFloat(); ok {
		if b, ok := right.AsFloat(); ok {
			vm.push(bytecode.Bool(ordered(op, a, b)))
			return nil
		}
	}
	a, errA := vm.str(left)
	b, errB := vm.str(right)
	if errA == nil && errB == nil {
		vm.push(bytecode.Bool(ordered(op, a, b)))
		return nil
	}
	switch op {
	case bytecode.Eq:
		vm.push(bytecode.Bool(left == right))
		return nil
	case bytecode.NotEq:
		vm.push(bytecode.Bool(left != right))
		return nil
	}
	return newError(CodeCannotApplyCmpOp, "cannot apply %s to %s and %s", op, vm.typeName(left), vm.typeName(right))
}

func ordered[T int64 | float64 | string](op bytecode.CmpOp, a, b T) bool {
	switch op {
	case bytecode.Eq:
		return a == b
	case bytecode.NotEq:
		return a != b
	case bytecode.Lt:
		return a < b
	case bytecode.LtEq:
		return a <= b
	case bytecode.Gt:
		return a > b
	case bytecode.GtEq:
		return a >= b
	}
	return false
}

func (vm *VM) unaryOp(op bytecode.UnaryOp) error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	switch op {
	case bytecode.Not:
		if b, ok := v.AsBool(); ok {
			vm.push(bytecode.Bool(!b))
			return nil
		}
	case bytecode.Neg:
		if n, ok := v.AsInt(); ok {
			vm.push(bytecode.Int(-n))
			return nil
		}
		if f, ok := v.AsFloat(); ok {
			vm.push(bytecode.Float(-f))
			return nil
		}
	}
	return newError(CodeCannotApplyUnaryOp, "cannot apply %s to %s", op, vm.typeName(v))
}
