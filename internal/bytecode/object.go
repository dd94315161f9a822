package bytecode

import (
	"baml/internal/source"
	"baml/internal/types"
	"baml/internal/viz"
)

// ObjectKind identifies the concrete type behind an Object.
type ObjectKind uint8

const (
	ObjString ObjectKind = iota
	ObjArray
	ObjMap
	ObjInstance
	ObjVariant
	ObjFunction
	ObjClass
	ObjEnum
	ObjFuture
	ObjMedia
	ObjBamlType
)

var objectKindNames = [...]string{
	ObjString:   "string",
	ObjArray:    "array",
	ObjMap:      "map",
	ObjInstance: "instance",
	ObjVariant:  "variant",
	ObjFunction: "function",
	ObjClass:    "class",
	ObjEnum:     "enum",
	ObjFuture:   "future",
	ObjMedia:    "media",
	ObjBamlType: "baml type",
}

func (k ObjectKind) String() string {
	if int(k) < len(objectKindNames) {
		return objectKindNames[k]
	}
	return "unknown"
}

// Object is a heap entry of the pool.
type Object interface {
	ObjKind() ObjectKind
}

type String struct {
	Value string
}

type Array struct {
	Items []Value
}

// Instance fields follow the declaration order of Class.
type Instance struct {
	Class  ObjectIndex
	Fields []Value
}

// Variant is an enum value; Index is the variant ordinal within Enum.
type Variant struct {
	Enum  ObjectIndex
	Index int
}

type Class struct {
	Name       string
	FieldNames []string
	// FieldTypes runs parallel to FieldNames; decoders use it to type
	// incoming data.
	FieldTypes []*types.Shape
}

type Enum struct {
	Name     string
	Variants []string
}

// FunctionKind says how a Function object is invoked.
type FunctionKind uint8

const (
	// FuncExec runs compiled bytecode.
	FuncExec FunctionKind = iota
	// FuncLlm is dispatched to the host as an LLM call.
	FuncLlm
	// FuncNative runs a builtin registered in the VM.
	FuncNative
	// FuncFuture is a builtin the host resolves asynchronously.
	FuncFuture
)

func (k FunctionKind) String() string {
	switch k {
	case FuncExec:
		return "exec"
	case FuncLlm:
		return "llm"
	case FuncNative:
		return "native"
	case FuncFuture:
		return "future"
	default:
		return "unknown"
	}
}

// Function is a callable. Only FuncExec functions carry bytecode.
type Function struct {
	Name     string
	Arity    int
	Kind     FunctionKind
	Bytecode Bytecode
	// LocalsInScope maps a scope id to the names of the slots visible in it.
	// Slot 0 of every scope is the function itself.
	LocalsInScope [][]string
	Span          source.Span
	VizNodes      []viz.NodeMeta
	// ReturnType is the declared result, used to decode LLM responses.
	ReturnType *types.Shape
	Params     []string
	Llm        *LlmSpec
}

// LlmSpec is the client and prompt template of an LLM function.
type LlmSpec struct {
	Client string
	Prompt string
}

// FutureKind says which host resolver serves a pending future.
type FutureKind uint8

const (
	FutureLlm FutureKind = iota
	FutureNet
)

func (k FutureKind) String() string {
	if k == FutureNet {
		return "net"
	}
	return "llm"
}

// Future is pending until the host fulfils it.
type Future struct {
	Ready bool
	Value Value

	// pending call
	Function string
	Args     []Value
	Kind     FutureKind
}

// Media holds either a URL or base64 data.
type Media struct {
	Type   string // image, audio, video or pdf
	URL    string
	Base64 string
	Mime   string
	IsURL  bool
}

// BamlType is a reified static type used as a constant.
type BamlType struct {
	Type *types.Shape
}

func (*String) ObjKind() ObjectKind { return ObjString }
func (*Array) ObjKind() ObjectKind { return ObjArray }
func (*Map) ObjKind() ObjectKind { return ObjMap }
func (*Instance) ObjKind() ObjectKind { return ObjInstance }
func (*Variant) ObjKind() ObjectKind { return ObjVariant }
func (*Function) ObjKind() ObjectKind { return ObjFunction }
func (*Class) ObjKind() ObjectKind { return ObjClass }
func (*Enum) ObjKind() ObjectKind { return ObjEnum }
func (*Future) ObjKind() ObjectKind { return ObjFuture }
func (*Media) ObjKind() ObjectKind { return ObjMedia }
func (*BamlType) ObjKind() ObjectKind { return ObjBamlType }
