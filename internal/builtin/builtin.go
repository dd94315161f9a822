// Package builtin is the catalog of names the front-end, the compiler and the
// VM agree on: builtin classes and enums, and the functions registered as
// globals under the reserved "baml." prefix (plus env.get).
package builtin

import (
	"sort"
	"strings"
)

// Builtin functions.
const (
	FetchAs        = "baml.fetch_as"
	FetchValue     = "baml.fetch_value"
	EnvGet         = "env.get"
	DeepCopy       = "baml.deep_copy"
	DeepEquals     = "baml.deep_equals"
	UnstableString = "baml.unstable.string"
	ArrayLength    = "baml.Array.length"
)

// Builtin classes and enums.
const (
	HttpRequest  = "baml.HttpRequest"
	WatchOptions = "baml.WatchOptions"
	HttpMethod   = "baml.HttpMethod"
)

// HttpMethods are the variants of baml.HttpMethod in ordinal order.
var HttpMethods = []string{"Get", "Post", "Put", "Delete", "Patch"}

// HttpRequestFields is the field layout of baml.HttpRequest.
var HttpRequestFields = []string{"url", "method", "headers", "query_params", "json"}

// WatchOptionsFields is the field layout of baml.WatchOptions.
var WatchOptionsFields = []string{"channel", "when"}

// Watch filter modes accepted as string values of WatchOptions.when.
const (
	FilterManual = "manual"
	FilterNever  = "never"
)

// Kind says how the VM invokes a builtin.
type Kind uint8

const (
	// KindNative runs synchronously inside the VM.
	KindNative Kind = iota
	// KindFuture is dispatched to the host and awaited.
	KindFuture
)

func (k Kind) String() string {
	if k == KindFuture {
		return "future"
	}
	return "native"
}

// Func describes one builtin function.
type Func struct {
	Name  string
	Arity int
	Kind  Kind
}

var mediaKinds = []string{"image", "audio", "video", "pdf"}

var table = func() map[string]Func {
	m := map[string]Func{}
	add := func(name string, arity int, kind Kind) {
		m[name] = Func{Name: name, Arity: arity, Kind: kind}
	}

	// fetch_as receives the reified result type as a trailing argument.
	add(FetchAs, 2, KindFuture)
	add(FetchValue, 1, KindFuture)

	add(ArrayLength, 1, KindNative)
	add("baml.Array.push", 2, KindNative)
	add("baml.Map.length", 1, KindNative)
	add("baml.Map.has", 2, KindNative)

	add("baml.String.length", 1, KindNative)
	add("baml.String.toLowerCase", 1, KindNative)
	add("baml.String.toUpperCase", 1, KindNative)
	add("baml.String.trim", 1, KindNative)
	add("baml.String.includes", 2, KindNative)
	add("baml.String.startsWith", 2, KindNative)
	add("baml.String.endsWith", 2, KindNative)
	add("baml.String.split", 2, KindNative)
	add("baml.String.substring", 3, KindNative)
	add("baml.String.replace", 3, KindNative)

	for _, mk := range mediaKinds {
		prefix := "baml.media." + mk + "."
		add(prefix+"from_url", 1, KindNative)
		if mk == "pdf" {
			add(prefix+"from_base64", 1, KindNative)
		} else {
			add(prefix+"from_base64", 2, KindNative)
		}
		add(prefix+"is_url", 1, KindNative)
		add(prefix+"is_base64", 1, KindNative)
		add(prefix+"as_url", 1, KindNative)
		add(prefix+"as_base64", 1, KindNative)
		add(prefix+"mime", 1, KindNative)
	}

	add(EnvGet, 1, KindNative)
	add(DeepCopy, 1, KindNative)
	add(DeepEquals, 2, KindNative)
	add(UnstableString, 1, KindNative)
	return m
}()

// Lookup returns the builtin function called name.
func Lookup(name string) (Func, bool) {
	f, ok := table[name]
	return f, ok
}

// All returns every builtin function sorted by name.
func All() []Func {
	out := make([]Func, 0, len(table))
	for _, f := range table {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsReserved reports names that user code may not declare.
func IsReserved(name string) bool {
	return strings.HasPrefix(name, "baml.") || name == "env" || name == "baml"
}

// MediaKinds lists the media kinds in declaration order.
func MediaKinds() []string {
	return append([]string(nil), mediaKinds...)
}
