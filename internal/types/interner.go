package types

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Interner provides stable TypeIDs by hashing structural descriptors.
type Interner struct {
	types    []Type
	index    map[string]TypeID
	builtins Builtins
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[string]TypeID, 64),
	}
	in.types = append(in.types, Type{Kind: KindInvalid}) // NoTypeID
	in.builtins.Invalid = in.Intern(Type{Kind: KindInvalid})
	in.builtins.Unknown = in.Intern(Type{Kind: KindUnknown})
	in.builtins.Null = in.Intern(Type{Kind: KindNull})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Float = in.Intern(Type{Kind: KindFloat})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	in.builtins.Top = in.Intern(Type{Kind: KindTop})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern returns the id of t, registering it on first use.
func (in *Interner) Intern(t Type) TypeID {
	key := descriptorKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("type interner overflow: %w", err))
	}
	id := TypeID(n)
	t.Members = append([]TypeID(nil), t.Members...)
	in.types = append(in.types, t)
	in.index[key] = id
	return id
}

// Lookup returns the descriptor of id.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup is Lookup that treats unknown ids as invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	t, ok := in.Lookup(id)
	if !ok {
		return Type{Kind: KindInvalid}
	}
	return t
}

// KindOf returns the kind of id.
func (in *Interner) KindOf(id TypeID) Kind {
	return in.MustLookup(id).Kind
}

func (in *Interner) List(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindList, Elem: elem})
}

func (in *Interner) Map(key, value TypeID) TypeID {
	return in.Intern(Type{Kind: KindMap, Key: key, Elem: value})
}

// Optional wraps inner; optional of optional and of null collapse.
func (in *Interner) Optional(inner TypeID) TypeID {
	switch in.KindOf(inner) {
	case KindOptional, KindNull, KindTop:
		return inner
	}
	return in.Intern(Type{Kind: KindOptional, Elem: inner})
}

func (in *Interner) Class(name string) TypeID {
	return in.Intern(Type{Kind: KindClass, Name: name})
}

func (in *Interner) Enum(name string) TypeID {
	return in.Intern(Type{Kind: KindEnum, Name: name})
}

func (in *Interner) Media(kind string) TypeID {
	return in.Intern(Type{Kind: KindMedia, Name: kind})
}

func (in *Interner) Arrow(params []TypeID, result TypeID) TypeID {
	return in.Intern(Type{Kind: KindArrow, Members: params, Elem: result})
}

// Union flattens nested unions, drops duplicates and turns a null member into
// an optional wrapper. A single remaining member is returned as is.
func (in *Interner) Union(members ...TypeID) TypeID {
	flat := make([]TypeID, 0, len(members))
	hasNull := false
	var add func(id TypeID)
	add = func(id TypeID) {
		t := in.MustLookup(id)
		switch t.Kind {
		case KindUnion:
			for _, m := range t.Members {
				add(m)
			}
			return
		case KindOptional:
			hasNull = true
			add(t.Elem)
			return
		case KindNull:
			hasNull = true
			return
		case KindUnknown:
			return
		}
		for _, seen := range flat {
			if seen == id {
				return
			}
		}
		flat = append(flat, id)
	}
	for _, m := range members {
		add(m)
	}

	var out TypeID
	switch len(flat) {
	case 0:
		if hasNull {
			return in.builtins.Null
		}
		return in.builtins.Unknown
	case 1:
		out = flat[0]
	default:
		out = in.Intern(Type{Kind: KindUnion, Members: flat})
	}
	if hasNull {
		return in.Optional(out)
	}
	return out
}

// StripOptional returns the inner type of T? or the type itself.
func (in *Interner) StripOptional(id TypeID) TypeID {
	if t := in.MustLookup(id); t.Kind == KindOptional {
		return t.Elem
	}
	return id
}

func descriptorKey(t Type) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(t.Kind)))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatUint(uint64(t.Elem), 10))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatUint(uint64(t.Key), 10))
	sb.WriteByte('|')
	sb.WriteString(t.Name)
	for _, m := range t.Members {
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatUint(uint64(m), 10))
	}
	return sb.String()
}
