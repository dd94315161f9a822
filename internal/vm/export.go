package vm

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/goccy/go-json"

	"baml/internal/bytecode"
	"baml/internal/types"
)

// Host-side forms of VM values. Export produces them together with nil,
// bool, int64, float64, string and []any; Import accepts the same set plus
// plain Go maps and json.Number.

// Entry is one key of an exported map.
type Entry struct {
	Key   string
	Value any
}

// Map is an exported map. Entries keep insertion order.
type Map []Entry

// Get returns the value stored under key.
func (m Map) Get(key string) (any, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func (m Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Instance is an exported class instance.
type Instance struct {
	Class  string
	Fields Map
}

func (i *Instance) MarshalJSON() ([]byte, error) { return i.Fields.MarshalJSON() }

// Variant is an exported enum value.
type Variant struct {
	Enum string
	Name string
}

func (v Variant) MarshalJSON() ([]byte, error) { return json.Marshal(v.Name) }

// Media is exported media content.
type Media struct {
	Type   string `json:"type"`
	URL    string `json:"url,omitempty"`
	Base64 string `json:"base64,omitempty"`
	Mime   string `json:"media_type,omitempty"`
}

// ErrCyclicValue is returned when exporting a value that contains itself.
var ErrCyclicValue = errors.New("cannot export a cyclic value")

// Export converts v to its host form. Functions, classes, enums, futures and
// reified types export as their unstable.string rendering.
func (vm *VM) Export(v bytecode.Value) (any, error) {
	return vm.export(v, make(map[bytecode.ObjectIndex]bool))
}

func (vm *VM) export(v bytecode.Value, onPath map[bytecode.ObjectIndex]bool) (any, error) {
	switch v.Kind() {
	case bytecode.KindNull:
		return nil, nil
	case bytecode.KindInt:
		n, _ := v.AsInt()
		return n, nil
	case bytecode.KindFloat:
		f, _ := v.AsFloat()
		return f, nil
	case bytecode.KindBool:
		b, _ := v.AsBool()
		return b, nil
	}

	idx, _ := v.AsObject()
	obj, err := vm.objectAt(idx)
	if err != nil {
		return nil, err
	}
	if onPath[idx] {
		return nil, ErrCyclicValue
	}
	onPath[idx] = true
	defer delete(onPath, idx)

	switch o := obj.(type) {
	case *bytecode.String:
		return o.Value, nil
	case *bytecode.Array:
		out := make([]any, len(o.Items))
		for i, item := range o.Items {
			if out[i], err = vm.export(item, onPath); err != nil {
				return nil, err
			}
		}
		return out, nil
	case *bytecode.Map:
		out := make(Map, o.Len())
		for i := range o.Len() {
			k, item := o.At(i)
			x, err := vm.export(item, onPath)
			if err != nil {
				return nil, err
			}
			out[i] = Entry{Key: k, Value: x}
		}
		return out, nil
	case *bytecode.Instance:
		class, err := vm.class(o.Class)
		if err != nil {
			return nil, err
		}
		out := &Instance{Class: class.Name, Fields: make(Map, len(o.Fields))}
		for i, f := range o.Fields {
			x, err := vm.export(f, onPath)
			if err != nil {
				return nil, err
			}
			name := "field_" + strconv.Itoa(i)
			if i < len(class.FieldNames) {
				name = class.FieldNames[i]
			}
			out.Fields[i] = Entry{Key: name, Value: x}
		}
		return out, nil
	case *bytecode.Variant:
		enum := ""
		if e, ok := vm.objects[o.Enum].(*bytecode.Enum); ok {
			enum = e.Name
		}
		return Variant{Enum: enum, Name: vm.variantName(o)}, nil
	case *bytecode.Media:
		return Media{Type: o.Type, URL: o.URL, Base64: o.Base64, Mime: o.Mime}, nil
	}
	return vm.Format(v)
}

func (vm *VM) class(idx bytecode.ObjectIndex) (*bytecode.Class, error) {
	_, c, err := as[*bytecode.Class](vm, bytecode.Obj(idx), "class")
	return c, err
}

// Import allocates the VM form of a host value.
func (vm *VM) Import(x any) (bytecode.Value, error) {
	switch x := x.(type) {
	case nil:
		return bytecode.Null, nil
	case bytecode.Value:
		return x, nil
	case bool:
		return bytecode.Bool(x), nil
	case int:
		return bytecode.Int(int64(x)), nil
	case int32:
		return bytecode.Int(int64(x)), nil
	case int64:
		return bytecode.Int(x), nil
	case float32:
		return bytecode.Float(float64(x)), nil
	case float64:
		return bytecode.Float(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return bytecode.Int(n), nil
		}
		f, err := x.Float64()
		if err != nil {
			return bytecode.Null, fmt.Errorf("import number %q: %w", x, err)
		}
		return bytecode.Float(f), nil
	case string:
		return vm.AllocString(x), nil
	case []any:
		items := make([]bytecode.Value, len(x))
		for i, item := range x {
			v, err := vm.Import(item)
			if err != nil {
				return bytecode.Null, err
			}
			items[i] = v
		}
		return vm.AllocArray(items), nil
	case []string:
		items := make([]bytecode.Value, len(x))
		for i, s := range x {
			items[i] = vm.AllocString(s)
		}
		return vm.AllocArray(items), nil
	case Map:
		m := bytecode.NewMap(len(x))
		for _, e := range x {
			v, err := vm.Import(e.Value)
			if err != nil {
				return bytecode.Null, err
			}
			m.Set(e.Key, v)
		}
		return vm.AllocMap(m), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		m := bytecode.NewMap(len(x))
		for _, k := range keys {
			v, err := vm.Import(x[k])
			if err != nil {
				return bytecode.Null, err
			}
			m.Set(k, v)
		}
		return vm.AllocMap(m), nil
	case *Instance:
		return vm.importInstance(x)
	case Variant:
		return vm.importVariant(x.Enum, x.Name)
	case Media:
		return vm.AllocMedia(bytecode.Media{Type: x.Type, URL: x.URL, Base64: x.Base64, Mime: x.Mime, IsURL: x.URL != ""}), nil
	}
	return bytecode.Null, fmt.Errorf("cannot import %T", x)
}

func (vm *VM) importInstance(x *Instance) (bytecode.Value, error) {
	classIdx, ok := vm.program.Classes[x.Class]
	if !ok {
		return bytecode.Null, fmt.Errorf("import: unknown class %s", x.Class)
	}
	class, err := vm.class(classIdx)
	if err != nil {
		return bytecode.Null, err
	}
	fields := make([]bytecode.Value, len(class.FieldNames))
	for i, name := range class.FieldNames {
		fx, ok := x.Fields.Get(name)
		if !ok {
			continue
		}
		if fields[i], err = vm.Import(fx); err != nil {
			return bytecode.Null, fmt.Errorf("import %s.%s: %w", x.Class, name, err)
		}
	}
	return vm.AllocInstance(classIdx, fields), nil
}

func (vm *VM) importVariant(enumName, name string) (bytecode.Value, error) {
	enumIdx, ok := vm.program.Enums[enumName]
	if !ok {
		return bytecode.Null, fmt.Errorf("import: unknown enum %s", enumName)
	}
	_, enum, err := as[*bytecode.Enum](vm, bytecode.Obj(enumIdx), "enum")
	if err != nil {
		return bytecode.Null, err
	}
	i := slices.Index(enum.Variants, name)
	if i < 0 {
		return bytecode.Null, fmt.Errorf("enum %s has no variant %s", enumName, name)
	}
	return vm.AllocVariant(enumIdx, i), nil
}

// DecodeJSON parses data and builds a value of type shape. A nil shape or
// top accepts any JSON. Unions take the first member that decodes.
func (vm *VM) DecodeJSON(data []byte, shape *types.Shape) (bytecode.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return bytecode.Null, fmt.Errorf("decode json: %w", err)
	}
	return vm.decodeAs(x, shape, "$")
}

func mismatch(path string, shape *types.Shape, x any) error {
	return fmt.Errorf("%s: expected %s, got %s", path, shape, jsonKind(x))
}

func jsonKind(x any) string {
	switch x.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", x)
}

func (vm *VM) decodeAs(x any, shape *types.Shape, path string) (bytecode.Value, error) {
	if shape == nil {
		return vm.Import(x)
	}
	switch shape.Kind {
	case types.KindTop, types.KindUnknown:
		return vm.Import(x)

	case types.KindNull:
		if x != nil {
			return bytecode.Null, mismatch(path, shape, x)
		}
		return bytecode.Null, nil

	case types.KindInt:
		n, ok := x.(json.Number)
		if !ok {
			return bytecode.Null, mismatch(path, shape, x)
		}
		i, err := n.Int64()
		if err != nil {
			return bytecode.Null, mismatch(path, shape, x)
		}
		return bytecode.Int(i), nil

	case types.KindFloat:
		n, ok := x.(json.Number)
		if !ok {
			return bytecode.Null, mismatch(path, shape, x)
		}
		f, err := n.Float64()
		if err != nil {
			return bytecode.Null, fmt.Errorf("%s: %w", path, err)
		}
		return bytecode.Float(f), nil

	case types.KindBool:
		b, ok := x.(bool)
		if !ok {
			return bytecode.Null, mismatch(path, shape, x)
		}
		return bytecode.Bool(b), nil

	case types.KindString:
		s, ok := x.(string)
		if !ok {
			return bytecode.Null, mismatch(path, shape, x)
		}
		return vm.AllocString(s), nil

	case types.KindList:
		arr, ok := x.([]any)
		if !ok {
			return bytecode.Null, mismatch(path, shape, x)
		}
		items := make([]bytecode.Value, len(arr))
		for i, item := range arr {
			v, err := vm.decodeAs(item, shape.Elem, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return bytecode.Null, err
			}
			items[i] = v
		}
		return vm.AllocArray(items), nil

	case types.KindMap:
		obj, ok := x.(map[string]any)
		if !ok {
			return bytecode.Null, mismatch(path, shape, x)
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		m := bytecode.NewMap(len(obj))
		for _, k := range keys {
			v, err := vm.decodeAs(obj[k], shape.Elem, path+"."+k)
			if err != nil {
				return bytecode.Null, err
			}
			m.Set(k, v)
		}
		return vm.AllocMap(m), nil

	case types.KindOptional:
		if x == nil {
			return bytecode.Null, nil
		}
		return vm.decodeAs(x, shape.Elem, path)

	case types.KindUnion:
		var errs []error
		for _, member := range shape.Members {
			v, err := vm.decodeAs(x, member, path)
			if err == nil {
				return v, nil
			}
			errs = append(errs, err)
		}
		return bytecode.Null, fmt.Errorf("%s: no member of %s matches: %w", path, shape, errors.Join(errs...))

	case types.KindClass:
		return vm.decodeClass(x, shape, path)

	case types.KindEnum:
		s, ok := x.(string)
		if !ok {
			return bytecode.Null, mismatch(path, shape, x)
		}
		v, err := vm.importVariant(shape.Name, s)
		if err != nil {
			return bytecode.Null, fmt.Errorf("%s: %w", path, err)
		}
		return v, nil

	case types.KindMedia:
		obj, ok := x.(map[string]any)
		if !ok {
			return bytecode.Null, mismatch(path, shape, x)
		}
		m := bytecode.Media{Type: shape.Name}
		m.URL, _ = obj["url"].(string)
		m.Base64, _ = obj["base64"].(string)
		m.Mime, _ = obj["media_type"].(string)
		m.IsURL = m.URL != ""
		if !m.IsURL && m.Base64 == "" {
			return bytecode.Null, fmt.Errorf("%s: media needs url or base64", path)
		}
		return vm.AllocMedia(m), nil
	}
	return bytecode.Null, fmt.Errorf("%s: cannot decode into %s", path, shape)
}

// decodeClass matches object keys to fields by name. Missing fields are null
// when their type allows it; unknown keys are ignored.
func (vm *VM) decodeClass(x any, shape *types.Shape, path string) (bytecode.Value, error) {
	obj, ok := x.(map[string]any)
	if !ok {
		return bytecode.Null, mismatch(path, shape, x)
	}
	classIdx, ok := vm.program.Classes[shape.Name]
	if !ok {
		return bytecode.Null, fmt.Errorf("%s: unknown class %s", path, shape.Name)
	}
	class, err := vm.class(classIdx)
	if err != nil {
		return bytecode.Null, err
	}
	fields := make([]bytecode.Value, len(class.FieldNames))
	for i, name := range class.FieldNames {
		var fieldShape *types.Shape
		if i < len(class.FieldTypes) {
			fieldShape = class.FieldTypes[i]
		}
		fx, present := obj[name]
		if !present && !nullable(fieldShape) {
			return bytecode.Null, fmt.Errorf("%s: missing field %s of %s", path, name, class.Name)
		}
		if fields[i], err = vm.decodeAs(fx, fieldShape, path+"."+name); err != nil {
			return bytecode.Null, err
		}
	}
	return vm.AllocInstance(classIdx, fields), nil
}

func nullable(s *types.Shape) bool {
	if s == nil {
		return true
	}
	switch s.Kind {
	case types.KindNull, types.KindOptional, types.KindTop, types.KindUnknown:
		return true
	case types.KindUnion:
		return slices.ContainsFunc(s.Members, nullable)
	}
	return false
}
