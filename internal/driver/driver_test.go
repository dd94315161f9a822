package driver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"baml/internal/diag"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildSource(t *testing.T) {
	res, err := BuildSource(context.Background(), "main.baml", []byte(`
function Add(a: int, b: int) -> int { a + b }
function main() -> int { Add(1, 2) }
`), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK() {
		t.Fatalf("diagnostics: %v", res.Bag.Items())
	}
	if _, _, ok := res.Program.Function("Add"); !ok {
		t.Error("Add missing from the program")
	}
	if res.Module == nil || len(res.Files) != 1 {
		t.Errorf("module = %v, files = %d", res.Module, len(res.Files))
	}
}

func TestBuildReportsDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"syntax", "function main() -> int { let x = ; x }", "SYN"},
		{"undefined", "function main() -> int { missing }", "SEM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := BuildSource(context.Background(), "bad.baml", []byte(tt.src), Options{})
			if err != nil {
				t.Fatal(err)
			}
			if res.OK() || res.Program != nil {
				t.Fatal("expected the build to fail")
			}
			found := false
			for _, d := range res.Bag.Items() {
				if d.Severity >= diag.SevError && strings.HasPrefix(d.Code.ID(), tt.code) {
					found = true
				}
			}
			if !found {
				t.Errorf("no %s error in %v", tt.code, res.Bag.Items())
			}
		})
	}
}

func TestBuildManyFilesKeepsDiagnosticOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.baml", "b.baml", "c.baml"} {
		paths = append(paths, writeFile(t, dir, name, "function "+strings.TrimSuffix(name, ".baml")+"() -> int { let = 1; 0 }\n"))
	}
	var (
		mu     sync.Mutex
		parsed []string
	)
	res, err := Build(context.Background(), paths, Options{Jobs: 3, Progress: func(ev Event) {
		if ev.Stage == StageParse && ev.Status == StatusDone {
			mu.Lock()
			parsed = append(parsed, ev.File)
			mu.Unlock()
		}
	}})
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed) != 3 {
		t.Errorf("parse events = %v", parsed)
	}
	items := res.Bag.Items()
	if len(items) < 3 {
		t.Fatalf("diagnostics = %v", items)
	}
	for i := 1; i < len(items); i++ {
		if items[i].Primary.File < items[i-1].Primary.File {
			t.Errorf("diagnostics out of file order: %v", items)
		}
	}
}

func TestBuildMissingFile(t *testing.T) {
	if _, err := Build(context.Background(), []string{filepath.Join(t.TempDir(), "nope.baml")}, Options{}); err == nil {
		t.Error("expected a load error")
	}
}

func TestBuildUsesCache(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenDiskCacheAt(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	path := writeFile(t, dir, "main.baml", "function main() -> int { 41 + 1 }\n")
	ctx := context.Background()

	first, err := Build(ctx, []string{path}, Options{Cache: cache})
	if err != nil || !first.OK() {
		t.Fatalf("first build: %v %v", err, first.Bag.Items())
	}
	if first.Cached {
		t.Error("first build came from the cache")
	}

	second, err := Build(ctx, []string{path}, Options{Cache: cache})
	if err != nil || !second.OK() {
		t.Fatalf("second build: %v", err)
	}
	if !second.Cached || second.Module != nil {
		t.Errorf("second build cached=%v", second.Cached)
	}
	if len(second.Program.Objects) != len(first.Program.Objects) {
		t.Errorf("cached program has %d objects, want %d", len(second.Program.Objects), len(first.Program.Objects))
	}

	other, err := Build(ctx, []string{path}, Options{Cache: cache, NoViz: true})
	if err != nil {
		t.Fatal(err)
	}
	if other.Cached {
		t.Error("NoViz build reused an instrumented program")
	}

	writeFile(t, dir, "main.baml", "function main() -> int { 43 }\n")
	changed, err := Build(ctx, []string{path}, Options{Cache: cache})
	if err != nil {
		t.Fatal(err)
	}
	if changed.Cached {
		t.Error("edited file hit the cache")
	}

	if err := cache.DropAll(); err != nil {
		t.Fatal(err)
	}
	again, err := Build(ctx, []string{path}, Options{Cache: cache})
	if err != nil {
		t.Fatal(err)
	}
	if again.Cached {
		t.Error("cache survived DropAll")
	}
}

func TestCacheRejectsGarbage(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	res, err := BuildSource(context.Background(), "x.baml", []byte("function main() -> int { 1 }"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	key := CacheKey(res.FileSet, res.FileIDs, false)
	path := cache.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not msgpack"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := cache.Get(key); ok || err == nil {
		t.Errorf("ok=%v err=%v", ok, err)
	}
}

func TestCacheKeyStable(t *testing.T) {
	build := func(src string) *Result {
		res, err := BuildSource(context.Background(), "k.baml", []byte(src), Options{})
		if err != nil {
			t.Fatal(err)
		}
		return res
	}
	a, b, c := build("function main() -> int { 1 }"), build("function main() -> int { 1 }"), build("function main() -> int { 2 }")
	ka := CacheKey(a.FileSet, a.FileIDs, false)
	if ka != CacheKey(b.FileSet, b.FileIDs, false) {
		t.Error("same source, different keys")
	}
	if ka == CacheKey(c.FileSet, c.FileIDs, false) {
		t.Error("different source, same key")
	}
	if ka == CacheKey(a.FileSet, a.FileIDs, true) {
		t.Error("NoViz does not change the key")
	}
}
