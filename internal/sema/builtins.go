package sema

import (
	"strings"

	"baml/internal/builtin"
	"baml/internal/hir"
	"baml/internal/types"
)

// builtinSig is the static signature of a builtin. A nil params slice
// means the arguments are checked by the caller.
type builtinSig struct {
	name   string
	params []types.TypeID
	result types.TypeID
}

// methodSig resolves recv.name(...) on a builtin receiver type. The returned
// params exclude the receiver.
func (tc *typeChecker) methodSig(recv types.TypeID, name string) (builtinSig, bool) {
	t := tc.types.MustLookup(tc.types.StripOptional(recv))
	str, i, b := tc.b.String, tc.b.Int, tc.b.Bool
	var sig builtinSig
	switch t.Kind {
	case types.KindString:
		sig.name = "baml.String." + name
		switch name {
		case "length":
			sig.result = i
		case "toLowerCase", "toUpperCase", "trim":
			sig.result = str
		case "includes", "startsWith", "endsWith":
			sig.params, sig.result = []types.TypeID{str}, b
		case "split":
			sig.params, sig.result = []types.TypeID{str}, tc.types.List(str)
		case "substring":
			sig.params, sig.result = []types.TypeID{i, i}, str
		case "replace":
			sig.params, sig.result = []types.TypeID{str, str}, str
		default:
			return sig, false
		}
	case types.KindList:
		sig.name = "baml.Array." + name
		switch name {
		case "length":
			sig.result = i
		case "push":
			sig.params, sig.result = []types.TypeID{t.Elem}, tc.b.Null
		default:
			return sig, false
		}
	case types.KindMap:
		sig.name = "baml.Map." + name
		switch name {
		case "length":
			sig.result = i
		case "has":
			sig.params, sig.result = []types.TypeID{t.Key}, b
		default:
			return sig, false
		}
	case types.KindMedia:
		sig.name = "baml.media." + t.Name + "." + name
		switch name {
		case "is_url", "is_base64":
			sig.result = b
		case "as_url", "as_base64", "mime":
			sig.result = tc.types.Optional(str)
		default:
			return sig, false
		}
	default:
		return sig, false
	}
	_, ok := builtin.Lookup(sig.name)
	return sig, ok
}

// freeBuiltinSig types calls of free builtin functions. Generic builtins
// derive their result from the argument types.
func (tc *typeChecker) freeBuiltinSig(name string, args []*hir.Expr) (builtinSig, bool) {
	str, top := tc.b.String, tc.b.Top
	sig := builtinSig{name: name}
	switch name {
	case builtin.EnvGet:
		sig.params, sig.result = []types.TypeID{str}, str
	case builtin.DeepCopy:
		sig.params, sig.result = []types.TypeID{top}, top
		if len(args) == 1 {
			sig.result = args[0].Type
		}
	case builtin.DeepEquals:
		sig.params, sig.result = []types.TypeID{top, top}, tc.b.Bool
	case builtin.UnstableString:
		sig.params, sig.result = []types.TypeID{top}, str
	case builtin.FetchValue:
		sig.params, sig.result = []types.TypeID{tc.fetchArgType()}, top
	default:
		rest, ok := strings.CutPrefix(name, "baml.media.")
		if !ok {
			return sig, false
		}
		kind, fn, _ := strings.Cut(rest, ".")
		media := tc.types.Media(kind)
		switch fn {
		case "from_url":
			sig.params, sig.result = []types.TypeID{str}, media
		case "from_base64":
			if kind == types.MediaPDF {
				sig.params = []types.TypeID{str}
			} else {
				sig.params = []types.TypeID{str, str}
			}
			sig.result = media
		case "is_url", "is_base64":
			sig.params, sig.result = []types.TypeID{media}, tc.b.Bool
		case "as_url", "as_base64", "mime":
			sig.params, sig.result = []types.TypeID{media}, tc.types.Optional(str)
		default:
			return sig, false
		}
	}
	_, ok := builtin.Lookup(name)
	return sig, ok
}

// fetchArgType is string | baml.HttpRequest.
func (tc *typeChecker) fetchArgType() types.TypeID {
	return tc.types.Union(tc.b.String, tc.types.Class(builtin.HttpRequest))
}
