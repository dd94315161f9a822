package driver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"baml/internal/asyncrt"
	"baml/internal/trace"
)

// Suite files are BAML sources annotated with expressions to evaluate:
//
//	function Foo() -> int { 1 + 2 }
//
//	//> Foo()
//	// 3
//
// A `//>` line opens a case; the comment lines after it hold the expected
// output, one space after the slashes dropped so nested values keep their
// indentation. Watch notifications raised while evaluating come first as
// `[watch] name = value` lines, then a blank line, then the value.

// SuiteCase is one `//>` expression.
type SuiteCase struct {
	Line     int
	Expr     string
	Expected string
	entry    string
}

// Suite is a parsed suite file. Source holds the program with every case
// appended as a zero-argument function.
type Suite struct {
	Path   string
	Source []byte
	Cases  []SuiteCase
}

// CaseResult is the outcome of a single case.
type CaseResult struct {
	Case   SuiteCase
	Actual string
	Passed bool
}

// SuiteResult is the outcome of one suite file. Build is set when the file
// failed to compile, and then no case ran.
type SuiteResult struct {
	Path    string
	Build   *Result
	Cases   []CaseResult
	Elapsed time.Duration
}

// Passed reports whether the file compiled and every case passed.
func (r *SuiteResult) Passed() bool {
	if r.Build != nil && !r.Build.OK() {
		return false
	}
	for _, c := range r.Cases {
		if !c.Passed {
			return false
		}
	}
	return true
}

// SuiteOptions configure RunSuite.
type SuiteOptions struct {
	// Jobs bounds the files run in parallel, GOMAXPROCS when zero.
	Jobs int
	// Resolver answers futures. Cases fail on a future when it is nil.
	Resolver asyncrt.Resolver
	// Timeout bounds each case when positive.
	Timeout  time.Duration
	Progress func(Event)
}

const suiteEntryPrefix = "__suite_eval_"

// ParseSuite splits data into program text and cases. Comment lines that
// belong to a case are blanked rather than dropped so diagnostics keep
// their line numbers.
func ParseSuite(path string, data []byte) (*Suite, error) {
	s := &Suite{Path: path}
	var (
		src      bytes.Buffer
		expected []string
		current  *SuiteCase
		inBlock  bool
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Expected = strings.TrimSpace(strings.Join(expected, "\n"))
		s.Cases = append(s.Cases, *current)
		current, expected = nil, nil
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "//>"):
			flush()
			expr := strings.TrimSpace(strings.TrimPrefix(trimmed, "//>"))
			if expr == "" {
				return nil, fmt.Errorf("%s:%d: empty expression", path, lineNo)
			}
			current = &SuiteCase{Line: lineNo, Expr: expr}
			inBlock = true
			src.WriteByte('\n')
		case inBlock && strings.HasPrefix(trimmed, "//"):
			// one space after the slashes is padding, the rest is indentation
			expected = append(expected, strings.TrimPrefix(strings.TrimPrefix(trimmed, "//"), " "))
			src.WriteByte('\n')
		case inBlock && trimmed == "":
			expected = append(expected, "")
			src.WriteByte('\n')
		default:
			inBlock = false
			src.WriteString(line)
			src.WriteByte('\n')
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	flush()

	for i := range s.Cases {
		c := &s.Cases[i]
		c.entry = fmt.Sprintf("%s%d", suiteEntryPrefix, i)
		fmt.Fprintf(&src, "\nfunction %s() -> any {\n  %s\n}\n", c.entry, c.Expr)
	}
	s.Source = src.Bytes()
	return s, nil
}

// RunSuite runs every suite file in paths. Files run in parallel; cases
// within a file run in order. The returned error is reserved for I/O
// failures and cancellation, failing cases are reported in the results.
func RunSuite(ctx context.Context, paths []string, opts SuiteOptions) ([]SuiteResult, error) {
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "suite")
	defer span.End(fmt.Sprintf("%d files", len(paths)))

	emit := func(ev Event) {
		if opts.Progress != nil {
			opts.Progress(ev)
		}
	}
	for _, p := range paths {
		emit(Event{File: p, Stage: StageLoad, Status: StatusQueued})
	}

	results := make([]SuiteResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Options{Jobs: opts.Jobs}.jobs(len(paths)))
	for i, p := range paths {
		g.Go(func() error {
			start := time.Now()
			res, err := runSuiteFile(gctx, p, opts, emit)
			if err != nil {
				emit(Event{File: p, Stage: StageRun, Status: StatusError, Elapsed: time.Since(start)})
				return err
			}
			res.Elapsed = time.Since(start)
			status := StatusDone
			if !res.Passed() {
				status = StatusError
			}
			emit(Event{File: p, Stage: StageRun, Status: status, Elapsed: res.Elapsed})
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runSuiteFile(ctx context.Context, path string, opts SuiteOptions, emit func(Event)) (*SuiteResult, error) {
	emit(Event{File: path, Stage: StageLoad, Status: StatusWorking})
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	suite, err := ParseSuite(path, data)
	if err != nil {
		return nil, err
	}

	emit(Event{File: path, Stage: StageCompile, Status: StatusWorking})
	build, err := BuildSource(ctx, path, suite.Source, Options{NoViz: true, Jobs: 1})
	if err != nil {
		return nil, err
	}
	out := &SuiteResult{Path: path, Build: build}
	if !build.OK() {
		return out, nil
	}

	emit(Event{File: path, Stage: StageRun, Status: StatusWorking})
	for _, c := range suite.Cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		actual := evalCase(ctx, build, c, opts)
		out.Cases = append(out.Cases, CaseResult{Case: c, Actual: actual, Passed: actual == c.Expected})
	}
	return out, nil
}

func evalCase(ctx context.Context, build *Result, c SuiteCase, opts SuiteOptions) string {
	var (
		mu      sync.Mutex
		watched []string
	)
	runner := &asyncrt.Runner{
		Program:  build.Program,
		Resolver: opts.Resolver,
		Timeout:  opts.Timeout,
		Tracer:   trace.FromContext(ctx),
		Handler: asyncrt.HandlerFunc(func(_ context.Context, n asyncrt.Notification) error {
			if n.Kind == asyncrt.NotifyVariable {
				mu.Lock()
				watched = append(watched, fmt.Sprintf("[watch] %s = %s", n.Variable, n.Rendered))
				mu.Unlock()
			}
			return nil
		}),
	}
	if runner.Resolver == nil {
		runner.Resolver = asyncrt.Split{}
	}

	res, err := runner.Run(ctx, c.entry, nil)
	lines := watched
	if len(lines) > 0 {
		lines = append(lines, "")
	}
	if err != nil {
		lines = append(lines, "error: "+err.Error())
	} else {
		lines = append(lines, strings.TrimSpace(res.Rendered))
	}
	return strings.Join(lines, "\n")
}
