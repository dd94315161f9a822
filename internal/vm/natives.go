package vm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"baml/internal/builtin"
	"baml/internal/bytecode"
	"baml/internal/watch"
)

type nativeFn func(vm *VM, args []bytecode.Value) (bytecode.Value, error)

type native struct {
	fn    nativeFn
	arity int
}

// natives maps a builtin name to its implementation. Arguments arrive
// already counted against arity by Call. It is filled in init because the
// implementations reach back into Exec.
var natives map[string]native

func init() {
	natives = map[string]native{
		"baml.Array.length": {arrayLength, 1},
		"baml.Array.push":   {arrayPush, 2},
		"baml.Map.length":   {mapLength, 1},
		"baml.Map.has":      {mapHas, 2},

		"baml.String.length":      {stringLength, 1},
		"baml.String.toLowerCase": {stringMap(caseFunc(cases.Lower)), 1},
		"baml.String.toUpperCase": {stringMap(caseFunc(cases.Upper)), 1},
		"baml.String.trim":        {stringMap(strings.TrimSpace), 1},
		"baml.String.includes":    {stringPred(strings.Contains), 2},
		"baml.String.startsWith":  {stringPred(strings.HasPrefix), 2},
		"baml.String.endsWith":    {stringPred(strings.HasSuffix), 2},
		"baml.String.split":       {stringSplit, 2},
		"baml.String.substring":   {stringSubstring, 3},
		"baml.String.replace":     {stringReplace, 3},

		builtin.EnvGet:         {envGet, 1},
		builtin.DeepCopy:       {deepCopy, 1},
		builtin.DeepEquals:     {deepEquals, 2},
		builtin.UnstableString: {unstableString, 1},
	}
	for _, kind := range builtin.MediaKinds() {
		prefix := "baml.media." + kind + "."
		natives[prefix+"from_url"] = native{mediaFromURL(kind), 1}
		if kind == "pdf" {
			natives[prefix+"from_base64"] = native{pdfFromBase64, 1}
		} else {
			natives[prefix+"from_base64"] = native{mediaFromBase64(kind), 2}
		}
		natives[prefix+"is_url"] = native{mediaIsURL, 1}
		natives[prefix+"is_base64"] = native{mediaIsBase64, 1}
		natives[prefix+"as_url"] = native{mediaAsURL, 1}
		natives[prefix+"as_base64"] = native{mediaAsBase64, 1}
		natives[prefix+"mime"] = native{mediaMime, 1}
	}
}

// NativeArity reports the registered arity of a native builtin.
func NativeArity(name string) (int, bool) {
	n, ok := natives[name]
	return n.arity, ok
}

func arrayLength(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	_, arr, err := as[*bytecode.Array](vm, args[0], "array")
	if err != nil {
		return bytecode.Null, err
	}
	return bytecode.Int(int64(len(arr.Items))), nil
}

// arrayPush appends in place. Roots watching the array are collected into
// vm.pending and reported once the call returns.
func arrayPush(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	idx, arr, err := as[*bytecode.Array](vm, args[0], "array")
	if err != nil {
		return bytecode.Null, err
	}
	node := watch.Object(idx)
	watched := vm.watch.IsWatched(node)
	if watched {
		if err := vm.updateWatchedNode(node, watch.Index(len(arr.Items)), bytecode.Null, args[1]); err != nil {
			return bytecode.Null, err
		}
	}
	arr.Items = append(arr.Items, args[1])
	if watched {
		roots, err := vm.processNotifications(node)
		if err != nil {
			return bytecode.Null, err
		}
		vm.pending = append(vm.pending, roots...)
	}
	return bytecode.Null, nil
}

func mapLength(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	_, m, err := as[*bytecode.Map](vm, args[0], "map")
	if err != nil {
		return bytecode.Null, err
	}
	return bytecode.Int(int64(m.Len())), nil
}

func mapHas(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	_, m, err := as[*bytecode.Map](vm, args[0], "map")
	if err != nil {
		return bytecode.Null, err
	}
	key, err := vm.str(args[1])
	if err != nil {
		return bytecode.Null, err
	}
	return bytecode.Bool(m.Has(key)), nil
}

// stringLength counts bytes, not characters.
func stringLength(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	s, err := vm.str(args[0])
	if err != nil {
		return bytecode.Null, err
	}
	return bytecode.Int(int64(len(s))), nil
}

// caseFunc builds a fresh Caser per call; Casers keep state and VMs run on
// several goroutines.
func caseFunc(mk func(language.Tag, ...cases.Option) cases.Caser) func(string) string {
	return func(s string) string { return mk(language.Und).String(s) }
}

func stringMap(f func(string) string) nativeFn {
	return func(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
		s, err := vm.str(args[0])
		if err != nil {
			return bytecode.Null, err
		}
		return vm.AllocString(f(s)), nil
	}
}

func stringPred(f func(s, sub string) bool) nativeFn {
	return func(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
		s, err := vm.str(args[0])
		if err != nil {
			return bytecode.Null, err
		}
		sub, err := vm.str(args[1])
		if err != nil {
			return bytecode.Null, err
		}
		return bytecode.Bool(f(s, sub)), nil
	}
}

func stringSplit(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	s, err := vm.str(args[0])
	if err != nil {
		return bytecode.Null, err
	}
	sep, err := vm.str(args[1])
	if err != nil {
		return bytecode.Null, err
	}
	parts := strings.Split(s, sep)
	items := make([]bytecode.Value, len(parts))
	for i, p := range parts {
		items[i] = vm.AllocString(p)
	}
	return vm.AllocArray(items), nil
}

// stringSubstring clamps both bounds to the string; a negative bound counts
// as the length and end never falls below start.
func stringSubstring(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	s, err := vm.str(args[0])
	if err != nil {
		return bytecode.Null, err
	}
	start, ok := args[1].AsInt()
	if !ok {
		return bytecode.Null, Other("substring() start index must be an integer")
	}
	end, ok := args[2].AsInt()
	if !ok {
		return bytecode.Null, Other("substring() end index must be an integer")
	}
	n := int64(len(s))
	if start < 0 {
		start = n
	}
	if end < 0 {
		end = n
	}
	start = min(start, n)
	end = max(min(end, n), start)
	return vm.AllocString(s[start:end]), nil
}

// stringReplace replaces the first occurrence only.
func stringReplace(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	s, err := vm.str(args[0])
	if err != nil {
		return bytecode.Null, err
	}
	old, err := vm.str(args[1])
	if err != nil {
		return bytecode.Null, err
	}
	repl, err := vm.str(args[2])
	if err != nil {
		return bytecode.Null, err
	}
	return vm.AllocString(strings.Replace(s, old, repl, 1)), nil
}

func mediaFromURL(kind string) nativeFn {
	return func(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
		url, err := vm.str(args[0])
		if err != nil {
			return bytecode.Null, err
		}
		return vm.AllocMedia(bytecode.Media{Type: kind, URL: url, IsURL: true}), nil
	}
}

func mediaFromBase64(kind string) nativeFn {
	return func(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
		mime, err := vm.str(args[0])
		if err != nil {
			return bytecode.Null, err
		}
		data, err := vm.str(args[1])
		if err != nil {
			return bytecode.Null, err
		}
		return vm.AllocMedia(bytecode.Media{Type: kind, Base64: data, Mime: mime}), nil
	}
}

func pdfFromBase64(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	data, err := vm.str(args[0])
	if err != nil {
		return bytecode.Null, err
	}
	return vm.AllocMedia(bytecode.Media{Type: "pdf", Base64: data, Mime: "application/pdf"}), nil
}

func media(vm *VM, v bytecode.Value) (*bytecode.Media, error) {
	_, m, err := as[*bytecode.Media](vm, v, "media")
	return m, err
}

func mediaIsURL(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	m, err := media(vm, args[0])
	if err != nil {
		return bytecode.Null, err
	}
	return bytecode.Bool(m.IsURL), nil
}

func mediaIsBase64(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	m, err := media(vm, args[0])
	if err != nil {
		return bytecode.Null, err
	}
	return bytecode.Bool(!m.IsURL), nil
}

func mediaAsURL(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	m, err := media(vm, args[0])
	if err != nil {
		return bytecode.Null, err
	}
	if !m.IsURL {
		return bytecode.Null, Other("Media is not a URL")
	}
	return vm.AllocString(m.URL), nil
}

func mediaAsBase64(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	m, err := media(vm, args[0])
	if err != nil {
		return bytecode.Null, err
	}
	if m.IsURL {
		return bytecode.Null, Other("Media is not base64")
	}
	return vm.AllocString(m.Base64), nil
}

func mediaMime(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	m, err := media(vm, args[0])
	if err != nil {
		return bytecode.Null, err
	}
	return vm.AllocString(m.Mime), nil
}

func envGet(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	name, err := vm.str(args[0])
	if err != nil {
		return bytecode.Null, err
	}
	v, ok := vm.env[name]
	if !ok {
		return bytecode.Null, Other("Environment variable '%s' not found", name)
	}
	return vm.AllocString(v), nil
}

func deepCopy(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	return vm.DeepCopy(args[0])
}

func deepEquals(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	return bytecode.Bool(vm.DeepEquals(args[0], args[1])), nil
}

func unstableString(vm *VM, args []bytecode.Value) (bytecode.Value, error) {
	s, err := vm.Format(args[0])
	if err != nil {
		return bytecode.Null, err
	}
	return vm.AllocString(s), nil
}
