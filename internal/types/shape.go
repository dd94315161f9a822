package types

import "strings"

// Shape is a self-contained copy of a type, independent of any Interner.
// Compiled programs carry shapes so a program can be decoded and run without
// the front-end that produced it.
type Shape struct {
	Kind    Kind     `msgpack:"k" json:"kind"`
	Name    string   `msgpack:"n,omitempty" json:"name,omitempty"`
	Elem    *Shape   `msgpack:"e,omitempty" json:"elem,omitempty"`
	Key     *Shape   `msgpack:"y,omitempty" json:"key,omitempty"`
	Members []*Shape `msgpack:"m,omitempty" json:"members,omitempty"`
}

// Reify converts id into a Shape.
func (in *Interner) Reify(id TypeID) *Shape {
	return in.reify(id, 0)
}

func (in *Interner) reify(id TypeID, depth int) *Shape {
	t := in.MustLookup(id)
	if depth > 32 {
		return &Shape{Kind: KindTop}
	}
	s := &Shape{Kind: t.Kind, Name: t.Name}
	switch t.Kind {
	case KindList, KindOptional:
		s.Elem = in.reify(t.Elem, depth+1)
	case KindMap:
		s.Key = in.reify(t.Key, depth+1)
		s.Elem = in.reify(t.Elem, depth+1)
	case KindArrow:
		s.Elem = in.reify(t.Elem, depth+1)
		fallthrough
	case KindUnion:
		s.Members = make([]*Shape, len(t.Members))
		for i, m := range t.Members {
			s.Members[i] = in.reify(m, depth+1)
		}
	}
	return s
}

func (s *Shape) String() string {
	if s == nil {
		return "?"
	}
	switch s.Kind {
	case KindList:
		if s.Elem != nil && (s.Elem.Kind == KindUnion || s.Elem.Kind == KindOptional) {
			return "(" + s.Elem.String() + ")[]"
		}
		return s.Elem.String() + "[]"
	case KindMap:
		return "map<" + s.Key.String() + ", " + s.Elem.String() + ">"
	case KindOptional:
		if s.Elem != nil && s.Elem.Kind == KindUnion {
			return "(" + s.Elem.String() + ")?"
		}
		return s.Elem.String() + "?"
	case KindUnion:
		parts := make([]string, len(s.Members))
		for i, m := range s.Members {
			parts[i] = m.String()
		}
		return strings.Join(parts, " | ")
	case KindClass, KindEnum, KindMedia:
		return s.Name
	case KindArrow:
		parts := make([]string, len(s.Members))
		for i, m := range s.Members {
			parts[i] = m.String()
		}
		return "(" + strings.Join(parts, ", ") + ") -> " + s.Elem.String()
	default:
		return s.Kind.String()
	}
}
