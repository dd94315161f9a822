package types

// Assignable reports whether a value of type from may be stored where to is
// expected. Invalid and Unknown types are assignable both ways so one error
// does not cascade into many.
func (in *Interner) Assignable(from, to TypeID) bool {
	return in.assignable(from, to, 0)
}

func (in *Interner) assignable(from, to TypeID, depth int) bool {
	if from == to {
		return true
	}
	if depth > 16 {
		return true
	}
	ft := in.MustLookup(from)
	tt := in.MustLookup(to)

	switch {
	case ft.Kind == KindInvalid || tt.Kind == KindInvalid:
		return true
	case ft.Kind == KindUnknown || tt.Kind == KindUnknown:
		return true
	case tt.Kind == KindTop || ft.Kind == KindTop:
		return true
	}

	if ft.Kind == KindUnion {
		for _, m := range ft.Members {
			if !in.assignable(m, to, depth+1) {
				return false
			}
		}
		return true
	}

	switch tt.Kind {
	case KindOptional:
		if ft.Kind == KindNull {
			return true
		}
		if ft.Kind == KindOptional {
			return in.assignable(ft.Elem, tt.Elem, depth+1)
		}
		return in.assignable(from, tt.Elem, depth+1)
	case KindUnion:
		for _, m := range tt.Members {
			if in.assignable(from, m, depth+1) {
				return true
			}
		}
		return false
	case KindFloat:
		return ft.Kind == KindInt
	case KindList:
		return ft.Kind == KindList && in.assignable(ft.Elem, tt.Elem, depth+1)
	case KindMap:
		return ft.Kind == KindMap &&
			in.assignable(ft.Key, tt.Key, depth+1) &&
			in.assignable(ft.Elem, tt.Elem, depth+1)
	case KindArrow:
		if ft.Kind != KindArrow || len(ft.Members) != len(tt.Members) {
			return false
		}
		for i := range ft.Members {
			if !in.assignable(tt.Members[i], ft.Members[i], depth+1) {
				return false
			}
		}
		return in.assignable(ft.Elem, tt.Elem, depth+1)
	}
	return false
}

// Join returns the type of a value that is either a or b, e.g. the result of
// an if expression.
func (in *Interner) Join(a, b TypeID) TypeID {
	if a == b {
		return a
	}
	ka, kb := in.KindOf(a), in.KindOf(b)
	switch {
	case ka == KindInvalid || ka == KindUnknown:
		return b
	case kb == KindInvalid || kb == KindUnknown:
		return a
	case ka == KindList && kb == KindList:
		return in.List(in.Join(in.MustLookup(a).Elem, in.MustLookup(b).Elem))
	}
	if in.Assignable(a, b) && kb != KindTop {
		return b
	}
	if in.Assignable(b, a) && ka != KindTop {
		return a
	}
	return in.Union(a, b)
}

// IsNumeric reports int or float.
func (in *Interner) IsNumeric(id TypeID) bool {
	switch in.KindOf(id) {
	case KindInt, KindFloat:
		return true
	}
	return false
}
