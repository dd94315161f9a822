package types

import "strings"

// Label renders id the way it is written in source.
func Label(in *Interner, id TypeID) string {
	return labelDepth(in, id, 0)
}

func labelDepth(in *Interner, id TypeID, depth int) string {
	if id == NoTypeID || in == nil {
		return "?"
	}
	if depth > 8 {
		return "..."
	}
	t, ok := in.Lookup(id)
	if !ok {
		return "?"
	}
	switch t.Kind {
	case KindInvalid:
		return "<error>"
	case KindUnknown:
		return "_"
	case KindList:
		elem := labelDepth(in, t.Elem, depth+1)
		if k := in.KindOf(t.Elem); k == KindUnion || k == KindOptional {
			elem = "(" + elem + ")"
		}
		return elem + "[]"
	case KindMap:
		return "map<" + labelDepth(in, t.Key, depth+1) + ", " + labelDepth(in, t.Elem, depth+1) + ">"
	case KindOptional:
		inner := labelDepth(in, t.Elem, depth+1)
		if in.KindOf(t.Elem) == KindUnion {
			inner = "(" + inner + ")"
		}
		return inner + "?"
	case KindUnion:
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = labelDepth(in, m, depth+1)
		}
		return strings.Join(parts, " | ")
	case KindClass, KindEnum:
		return t.Name
	case KindMedia:
		return t.Name
	case KindArrow:
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = labelDepth(in, m, depth+1)
		}
		return "(" + strings.Join(parts, ", ") + ") -> " + labelDepth(in, t.Elem, depth+1)
	default:
		return t.Kind.String()
	}
}
