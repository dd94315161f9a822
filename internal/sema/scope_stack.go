package sema

import (
	"baml/internal/source"
	"baml/internal/types"
)

type local struct {
	name    string
	typ     types.TypeID
	span    source.Span
	watched bool
}

// scopeStack holds lexical scopes of the function being checked.
// Inner bindings shadow outer ones.
type scopeStack []map[string]*local

func (s *scopeStack) push() {
	*s = append(*s, make(map[string]*local))
}

func (s *scopeStack) pop() {
	*s = (*s)[:len(*s)-1]
}

func (s *scopeStack) declare(l *local) {
	(*s)[len(*s)-1][l.name] = l
}

func (s scopeStack) lookup(name string) *local {
	for i := len(s) - 1; i >= 0; i-- {
		if l, ok := s[i][name]; ok {
			return l
		}
	}
	return nil
}
