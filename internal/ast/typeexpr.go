package ast

import (
	"strings"

	"baml/internal/source"
)

type TypeExprKind uint8

const (
	// TypeNamed is a plain or generic name: int, Point, map<K, V>.
	TypeNamed TypeExprKind = iota
	TypeList
	TypeOptional
	TypeUnion
	TypeArrow
	// TypeStringLit is a literal string type such as "manual".
	TypeStringLit
)

type TypeExpr struct {
	Kind TypeExprKind
	Name string
	Args []*TypeExpr // generic args, list elem, optional inner, union members, arrow params
	Ret  *TypeExpr   // arrow result
	Span source.Span
}

func (t *TypeExpr) String() string {
	if t == nil {
		return "?"
	}
	switch t.Kind {
	case TypeList:
		return t.Args[0].String() + "[]"
	case TypeOptional:
		return t.Args[0].String() + "?"
	case TypeUnion:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.String()
		}
		return strings.Join(parts, " | ")
	case TypeArrow:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.String()
		}
		return "(" + strings.Join(parts, ", ") + ") -> " + t.Ret.String()
	case TypeStringLit:
		return `"` + t.Name + `"`
	}
	if len(t.Args) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return t.Name + "<" + strings.Join(parts, ", ") + ">"
}
