// Package driver runs the compilation pipeline (load, parse, check,
// compile) over a set of BAML files, with an on-disk program cache and a
// runner for executor conformance suites.
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"fortio.org/safecast"
	"golang.org/x/sync/errgroup"

	"baml/internal/ast"
	"baml/internal/bytecode"
	"baml/internal/compiler"
	"baml/internal/diag"
	"baml/internal/hir"
	"baml/internal/observ"
	"baml/internal/parser"
	"baml/internal/sema"
	"baml/internal/source"
	"baml/internal/trace"
	"baml/internal/types"
)

// Options configure a build.
type Options struct {
	// MaxDiagnostics caps the diagnostics kept, 0 means no limit.
	MaxDiagnostics int
	// NoViz compiles without visualization instrumentation.
	NoViz bool
	// Jobs bounds parallel parsing, GOMAXPROCS when zero.
	Jobs int
	// Cache is consulted before parsing and filled after a clean build.
	Cache *DiskCache
	// Progress receives stage events, possibly from several goroutines at
	// once. It may be nil.
	Progress func(Event)
}

func (o Options) emit(ev Event) {
	if o.Progress != nil {
		o.Progress(ev)
	}
}

func (o Options) jobs(n int) int {
	jobs := o.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return max(min(jobs, n), 1)
}

// Result is the outcome of a build. Program is nil when Bag has errors.
// Module is nil when the program came from the cache.
type Result struct {
	FileSet *source.FileSet
	FileIDs []source.FileID
	Files   []*ast.File
	Module  *hir.Module
	Program *bytecode.Program
	Bag     *diag.Bag
	Timer   *observ.Timer
	Cached  bool
}

// OK reports whether the build produced a program.
func (r *Result) OK() bool {
	return r != nil && r.Program != nil && !r.Bag.HasErrors()
}

// Build compiles paths as one program. Diagnostics end up in the result's
// bag; the returned error is reserved for I/O failures and cancellation.
func Build(ctx context.Context, paths []string, opts Options) (*Result, error) {
	fs := source.NewFileSet()
	idx := make([]source.FileID, 0, len(paths))
	for _, p := range paths {
		id, err := fs.Load(p)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
		idx = append(idx, id)
	}
	return build(ctx, fs, idx, opts)
}

// BuildSource compiles a single in-memory file.
func BuildSource(ctx context.Context, name string, src []byte, opts Options) (*Result, error) {
	fs := source.NewFileSet()
	id := fs.AddVirtual(name, src)
	return build(ctx, fs, []source.FileID{id}, opts)
}

func build(ctx context.Context, fs *source.FileSet, ids []source.FileID, opts Options) (*Result, error) {
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "build")
	defer span.End("")
	tracer := trace.FromContext(ctx)

	res := &Result{FileSet: fs, FileIDs: ids, Bag: diag.NewBag(opts.MaxDiagnostics), Timer: observ.NewTimer()}
	rep := diag.BagReporter{Bag: res.Bag}

	key := CacheKey(fs, ids, opts.NoViz)
	if opts.Cache != nil {
		prog, ok, err := opts.Cache.Get(key)
		switch {
		case err != nil:
			trace.Point(tracer, trace.ScopePass, "cache", "unreadable entry", "error", err.Error())
		case ok:
			res.Program = prog
			res.Cached = true
			span.Attr("cache", "hit")
			opts.emit(Event{Stage: StageCompile, Status: StatusDone})
			return res, nil
		}
	}

	opts.emit(Event{Stage: StageParse, Status: StatusWorking})
	files, err := parseAll(ctx, fs, ids, res, opts)
	if err != nil {
		return nil, err
	}
	res.Files = files

	opts.emit(Event{Stage: StageCheck, Status: StatusWorking})
	phase := res.Timer.Begin("check")
	checkSpan := span.Child(trace.ScopePass, "check")
	res.Module = sema.Check(files, sema.Options{Reporter: rep, Types: types.NewInterner()})
	checkSpan.End("")
	res.Timer.End(phase, "")
	if res.Bag.HasErrors() {
		res.Bag.Sort()
		opts.emit(Event{Stage: StageCheck, Status: StatusError})
		return res, nil
	}

	opts.emit(Event{Stage: StageCompile, Status: StatusWorking})
	phase = res.Timer.Begin("compile")
	prog, err := compiler.Compile(ctx, res.Module, compiler.Options{Files: fs, Reporter: rep, NoViz: opts.NoViz})
	res.Timer.End(phase, "")
	switch {
	case errors.Is(err, compiler.ErrCompile):
		res.Bag.Sort()
		opts.emit(Event{Stage: StageCompile, Status: StatusError})
		return res, nil
	case err != nil:
		return nil, err
	}
	res.Program = prog
	opts.emit(Event{Stage: StageCompile, Status: StatusDone})

	if opts.Cache != nil {
		if err := opts.Cache.Put(key, prog); err != nil {
			trace.Point(tracer, trace.ScopePass, "cache", "write failed", "error", err.Error())
		}
	}
	return res, nil
}

// parseAll parses every file on its own goroutine with a private bag, then
// merges the bags in file order so diagnostics stay deterministic.
func parseAll(ctx context.Context, fs *source.FileSet, ids []source.FileID, res *Result, opts Options) ([]*ast.File, error) {
	_, span := trace.Start(ctx, trace.ScopePass, "parse")
	defer span.End(fmt.Sprintf("%d files", len(ids)))
	phase := res.Timer.Begin("parse")
	defer res.Timer.End(phase, fmt.Sprintf("%d files", len(ids)))

	maxErrors, err := safecast.Conv[uint](opts.MaxDiagnostics)
	if err != nil {
		return nil, err
	}
	files := make([]*ast.File, len(ids))
	bags := make([]*diag.Bag, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs(len(ids)))
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f := fs.Get(id)
			bags[i] = diag.NewBag(opts.MaxDiagnostics)
			files[i] = parser.ParseFile(f, parser.Options{
				Reporter:  diag.NewDedupReporter(diag.BagReporter{Bag: bags[i]}),
				MaxErrors: maxErrors,
			})
			opts.emit(Event{File: f.Path, Stage: StageParse, Status: StatusDone})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, b := range bags {
		res.Bag.Merge(b)
	}
	return files, nil
}
