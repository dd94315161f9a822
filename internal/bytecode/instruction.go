package bytecode

import "strconv"

// Opcode selects an instruction.
type Opcode uint8

const (
	OpLoadConst Opcode = iota
	OpLoadVar
	OpStoreVar
	OpLoadGlobal
	OpStoreGlobal
	OpLoadField
	OpStoreField
	OpPop
	OpCopy
	OpPopReplace
	OpJump
	OpJumpIfFalse
	OpBinOp
	OpCmpOp
	OpUnaryOp
	OpAllocArray
	OpAllocMap
	OpLoadArrayElement
	OpLoadMapElement
	OpStoreArrayElement
	OpStoreMapElement
	OpAllocInstance
	OpAllocVariant
	OpDispatchFuture
	OpAwait
	OpWatch
	OpNotify
	OpVizEnter
	OpVizExit
	OpCall
	OpReturn
	OpAssert
)

var opNames = [...]string{
	OpLoadConst:         "LOAD_CONST",
	OpLoadVar:           "LOAD_VAR",
	OpStoreVar:          "STORE_VAR",
	OpLoadGlobal:        "LOAD_GLOBAL",
	OpStoreGlobal:       "STORE_GLOBAL",
	OpLoadField:         "LOAD_FIELD",
	OpStoreField:        "STORE_FIELD",
	OpPop:               "POP",
	OpCopy:              "COPY",
	OpPopReplace:        "POP_REPLACE",
	OpJump:              "JUMP",
	OpJumpIfFalse:       "JUMP_IF_FALSE",
	OpBinOp:             "BIN_OP",
	OpCmpOp:             "CMP_OP",
	OpUnaryOp:           "UNARY_OP",
	OpAllocArray:        "ALLOC_ARRAY",
	OpAllocMap:          "ALLOC_MAP",
	OpLoadArrayElement:  "LOAD_ARRAY_ELEMENT",
	OpLoadMapElement:    "LOAD_MAP_ELEMENT",
	OpStoreArrayElement: "STORE_ARRAY_ELEMENT",
	OpStoreMapElement:   "STORE_MAP_ELEMENT",
	OpAllocInstance:     "ALLOC_INSTANCE",
	OpAllocVariant:      "ALLOC_VARIANT",
	OpDispatchFuture:    "DISPATCH_FUTURE",
	OpAwait:             "AWAIT",
	OpWatch:             "WATCH",
	OpNotify:            "NOTIFY",
	OpVizEnter:          "VIZ_ENTER",
	OpVizExit:           "VIZ_EXIT",
	OpCall:              "CALL",
	OpReturn:            "RETURN",
	OpAssert:            "ASSERT",
}

func (op Opcode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "OP(" + strconv.Itoa(int(op)) + ")"
}

// HasArg reports opcodes that use Instruction.Arg.
func (op Opcode) HasArg() bool {
	switch op {
	case OpLoadArrayElement, OpLoadMapElement, OpStoreArrayElement, OpStoreMapElement,
		OpAwait, OpReturn, OpAssert:
		return false
	}
	return true
}

// IsJump reports relative jumps.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpIfFalse
}

// IsViz reports visualization markers.
func (op Opcode) IsViz() bool {
	return op == OpVizEnter || op == OpVizExit
}

// Instruction is one opcode with its operand. Jumps carry a signed offset
// relative to their own position; operator instructions carry their BinOp,
// CmpOp or UnaryOp; allocation of instances and variants carry the object
// index of the class or enum.
type Instruction struct {
	Op  Opcode `msgpack:"op"`
	Arg int    `msgpack:"arg,omitempty"`
}

func (in Instruction) String() string {
	switch in.Op {
	case OpBinOp:
		return in.Op.String() + " " + BinOp(in.Arg).String()
	case OpCmpOp:
		return in.Op.String() + " " + CmpOp(in.Arg).String()
	case OpUnaryOp:
		return in.Op.String() + " " + UnaryOp(in.Arg).String()
	case OpJump, OpJumpIfFalse:
		if in.Arg >= 0 {
			return in.Op.String() + " +" + strconv.Itoa(in.Arg)
		}
		return in.Op.String() + " " + strconv.Itoa(in.Arg)
	}
	if !in.Op.HasArg() {
		return in.Op.String()
	}
	return in.Op.String() + " " + strconv.Itoa(in.Arg)
}

func Make(op Opcode, arg int) Instruction { return Instruction{Op: op, Arg: arg} }

// BinOp is an arithmetic or bitwise operator.
type BinOp uint8

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Mod
	BitAnd
	BitOr
	BitXor
	Shl
	Shr
)

var binOpNames = [...]string{"+", "-", "*", "/", "%", "&", "|", "^", "<<", ">>"}

func (op BinOp) String() string {
	if int(op) < len(binOpNames) {
		return binOpNames[op]
	}
	return "?"
}

// IsBitwise reports operators defined on ints only.
func (op BinOp) IsBitwise() bool { return op >= BitAnd }

// CmpOp is a comparison operator.
type CmpOp uint8

const (
	Eq CmpOp = iota
	NotEq
	Lt
	LtEq
	Gt
	GtEq
	InstanceOf
)

var cmpOpNames = [...]string{"==", "!=", "<", "<=", ">", ">=", "instanceof"}

func (op CmpOp) String() string {
	if int(op) < len(cmpOpNames) {
		return cmpOpNames[op]
	}
	return "?"
}

type UnaryOp uint8

const (
	Not UnaryOp = iota
	Neg
)

func (op UnaryOp) String() string {
	if op == Not {
		return "!"
	}
	return "-"
}

// StackEffect is the net change of the evaluation stack height caused by
// executing in. Jumps report the effect of falling through.
func (in Instruction) StackEffect() int {
	switch in.Op {
	case OpLoadConst, OpLoadVar, OpLoadGlobal, OpCopy, OpAllocInstance:
		return 1
	case OpStoreVar, OpStoreGlobal, OpBinOp, OpCmpOp,
		OpLoadArrayElement, OpLoadMapElement, OpReturn, OpAssert:
		return -1
	case OpStoreField, OpWatch:
		return -2
	case OpStoreArrayElement, OpStoreMapElement:
		return -3
	case OpPop, OpPopReplace, OpCall, OpDispatchFuture:
		return -in.Arg
	case OpAllocArray:
		return 1 - in.Arg
	case OpAllocMap:
		return 1 - 2*in.Arg
	}
	return 0
}
