package bytecode

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// artifactSchemaVersion changes whenever the wire layout changes.
const artifactSchemaVersion uint16 = 1

// EncodeMsgpack writes a value as [kind, bits].
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeUint8(uint8(v.kind)); err != nil {
		return err
	}
	return enc.EncodeUint64(v.bits)
}

func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("value: expected 2 elements, got %d", n)
	}
	kind, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	if ValueKind(kind) > KindObject {
		return fmt.Errorf("value: unknown kind %d", kind)
	}
	bits, err := dec.DecodeUint64()
	if err != nil {
		return err
	}
	v.kind, v.bits = ValueKind(kind), bits
	return nil
}

// EncodeMsgpack writes a map as two parallel arrays to keep the order.
func (m *Map) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.Encode(m.keys); err != nil {
		return err
	}
	return enc.Encode(m.vals)
}

func (m *Map) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("map: expected 2 elements, got %d", n)
	}
	var keys []string
	var vals []Value
	if err := dec.Decode(&keys); err != nil {
		return err
	}
	if err := dec.Decode(&vals); err != nil {
		return err
	}
	if len(keys) != len(vals) {
		return fmt.Errorf("map: %d keys for %d values", len(keys), len(vals))
	}
	*m = *NewMap(len(keys))
	for i, k := range keys {
		m.Set(k, vals[i])
	}
	return nil
}

// wireObject carries exactly one non-nil payload matching Kind.
type wireObject struct {
	Kind     ObjectKind `msgpack:"k"`
	String   *String    `msgpack:"str,omitempty"`
	Array    *Array     `msgpack:"arr,omitempty"`
	Map      *Map       `msgpack:"map,omitempty"`
	Instance *Instance  `msgpack:"inst,omitempty"`
	Variant  *Variant   `msgpack:"var,omitempty"`
	Function *Function  `msgpack:"fn,omitempty"`
	Class    *Class     `msgpack:"cls,omitempty"`
	Enum     *Enum      `msgpack:"enum,omitempty"`
	Future   *Future    `msgpack:"fut,omitempty"`
	Media    *Media     `msgpack:"media,omitempty"`
	BamlType *BamlType  `msgpack:"type,omitempty"`
}

type wireProgram struct {
	Schema    uint16                 `msgpack:"schema"`
	Objects   []wireObject           `msgpack:"objects"`
	Globals   []Value                `msgpack:"globals"`
	Functions map[string]GlobalRef   `msgpack:"functions"`
	Classes   map[string]ObjectIndex `msgpack:"classes"`
	Enums     map[string]ObjectIndex `msgpack:"enums"`
}

func toWire(obj Object) (wireObject, error) {
	w := wireObject{Kind: obj.ObjKind()}
	switch o := obj.(type) {
	case *String:
		w.String = o
	case *Array:
		w.Array = o
	case *Map:
		w.Map = o
	case *Instance:
		w.Instance = o
	case *Variant:
		w.Variant = o
	case *Function:
		w.Function = o
	case *Class:
		w.Class = o
	case *Enum:
		w.Enum = o
	case *Future:
		w.Future = o
	case *Media:
		w.Media = o
	case *BamlType:
		w.BamlType = o
	default:
		return w, fmt.Errorf("unsupported object %T", obj)
	}
	return w, nil
}

func fromWire(w wireObject) (Object, error) {
	var obj Object
	switch w.Kind {
	case ObjString:
		if w.String != nil {
			obj = w.String
		}
	case ObjArray:
		if w.Array != nil {
			obj = w.Array
		}
	case ObjMap:
		if w.Map != nil {
			obj = w.Map
		}
	case ObjInstance:
		if w.Instance != nil {
			obj = w.Instance
		}
	case ObjVariant:
		if w.Variant != nil {
			obj = w.Variant
		}
	case ObjFunction:
		if w.Function != nil {
			obj = w.Function
		}
	case ObjClass:
		if w.Class != nil {
			obj = w.Class
		}
	case ObjEnum:
		if w.Enum != nil {
			obj = w.Enum
		}
	case ObjFuture:
		if w.Future != nil {
			obj = w.Future
		}
	case ObjMedia:
		if w.Media != nil {
			obj = w.Media
		}
	case ObjBamlType:
		if w.BamlType != nil {
			obj = w.BamlType
		}
	}
	if obj == nil {
		return nil, fmt.Errorf("%s object without payload", w.Kind)
	}
	return obj, nil
}

// MarshalBinary encodes the program as a msgpack artifact.
func (p *Program) MarshalBinary() ([]byte, error) {
	wp := wireProgram{
		Schema:    artifactSchemaVersion,
		Objects:   make([]wireObject, len(p.Objects)),
		Globals:   p.Globals,
		Functions: p.Functions,
		Classes:   p.Classes,
		Enums:     p.Enums,
	}
	for i, obj := range p.Objects {
		w, err := toWire(obj)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		wp.Objects[i] = w
	}
	return msgpack.Marshal(&wp)
}

// UnmarshalBinary decodes an artifact written by MarshalBinary.
func (p *Program) UnmarshalBinary(data []byte) error {
	var wp wireProgram
	if err := msgpack.Unmarshal(data, &wp); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	if wp.Schema != artifactSchemaVersion {
		return fmt.Errorf("artifact schema %d, expected %d", wp.Schema, artifactSchemaVersion)
	}
	out := NewProgram()
	out.Objects = make([]Object, len(wp.Objects))
	for i, w := range wp.Objects {
		obj, err := fromWire(w)
		if err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		out.Objects[i] = obj
	}
	out.Globals = wp.Globals
	for k, v := range wp.Functions {
		out.Functions[k] = v
	}
	for k, v := range wp.Classes {
		out.Classes[k] = v
	}
	for k, v := range wp.Enums {
		out.Enums[k] = v
	}
	*p = *out
	return nil
}
