// Package asyncrt drives a VM on behalf of a host: it resolves the futures
// the program schedules concurrently, hands watch and viz notifications to
// a Handler and returns the exported result.
package asyncrt

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"baml/internal/bytecode"
	"baml/internal/trace"
	"baml/internal/viz"
	"baml/internal/vm"
)

// NotificationKind says which fields of a Notification are set.
type NotificationKind uint8

const (
	NotifyVariable NotificationKind = iota
	NotifyViz
)

// Notification is delivered to the Handler while a function runs.
type Notification struct {
	Kind     NotificationKind
	Function string

	// variables
	Variable string
	Channel  string
	Value    any
	// Rendered is the value as baml.unstable.string prints it.
	Rendered string

	// viz
	Event viz.ExecEvent
}

// Handler receives notifications in program order. Returning an error
// aborts the run.
type Handler interface {
	Notify(ctx context.Context, n Notification) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, n Notification) error

func (f HandlerFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// Result is the outcome of a completed run.
type Result struct {
	Value    any
	Rendered string
	// Calls counts the futures resolved during the run.
	Calls int
}

// Runner runs functions of one program. A Runner holds no per-run state
// and may run several functions concurrently.
type Runner struct {
	Program  *bytecode.Program
	Env      map[string]string
	Resolver Resolver
	// Handler may be nil, notifications are dropped then.
	Handler Handler
	Tracer  trace.Tracer
	// Timeout bounds each resolver call when positive.
	Timeout time.Duration
	// ExecTrace prints executed instructions.
	ExecTrace *vm.Tracer
}

type completion struct {
	future bytecode.ObjectIndex
	call   *Call
	resp   Response
	err    error
}

// Run calls function with args and drives it to completion. args are host
// values accepted by vm.VM.Import. Cancelling ctx abandons the run at its
// next suspension.
func (r *Runner) Run(ctx context.Context, function string, args []any) (res Result, err error) {
	tracer := r.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	span := trace.Begin(tracer, trace.ScopeFunction, "run:"+function, trace.CurrentSpan(ctx).SpanID)
	defer func() {
		span.Attr("futures", strconv.Itoa(res.Calls)).Fail(err)
	}()

	_, fnIdx, ok := r.Program.Function(function)
	if !ok {
		return Result{}, fmt.Errorf("function %q not found", function)
	}
	m := vm.New(r.Program, vm.Options{Env: r.Env, Tracer: tracer, Trace: r.ExecTrace})
	defer m.Finalize()

	vals := make([]bytecode.Value, len(args))
	for i, a := range args {
		v, err := m.Import(a)
		if err != nil {
			return Result{}, fmt.Errorf("argument %d: %w", i, err)
		}
		vals[i] = v
	}
	if err := m.SetEntryPoint(fnIdx, vals); err != nil {
		return Result{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	defer func() {
		cancel()
		_ = g.Wait()
	}()

	done := make(chan completion)
	pending := make(map[bytecode.ObjectIndex]*Call)
	calls := 0

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		st, err := m.Exec()
		if err != nil {
			return Result{}, m.StackTrace(err)
		}
		switch st.Kind {
		case vm.StateComplete:
			v, err := m.Export(st.Value)
			if err != nil {
				return Result{}, err
			}
			rendered, _ := m.Format(st.Value)
			return Result{Value: v, Rendered: rendered, Calls: calls}, nil

		case vm.StateScheduleFuture:
			call, err := r.newCall(m, st.Future)
			if err != nil {
				return Result{}, err
			}
			pending[st.Future] = call
			calls++
			trace.Point(tracer, trace.ScopeFunction, "schedule", call.Function,
				"call", call.ID.String(), "kind", call.Kind.String())
			future := st.Future
			g.Go(func() error {
				c := completion{future: future, call: call}
				c.resp, c.err = r.resolve(gctx, call)
				select {
				case done <- c:
				case <-gctx.Done():
				}
				return nil
			})

		case vm.StateAwait:
			if _, ok := pending[st.Future]; !ok {
				return Result{}, fmt.Errorf("awaiting unscheduled future #%d", st.Future)
			}
			for pending[st.Future] != nil {
				select {
				case c := <-done:
					delete(pending, c.future)
					if err := r.complete(m, tracer, c); err != nil {
						return Result{}, m.StackTrace(err)
					}
				case <-ctx.Done():
					return Result{}, ctx.Err()
				}
			}

		case vm.StateNotify:
			if err := r.deliver(ctx, m, st.Notification); err != nil {
				return Result{}, err
			}
		}
	}
}

func (r *Runner) resolve(ctx context.Context, call *Call) (Response, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	return resolve(ctx, r.Resolver, call)
}

func (r *Runner) newCall(m *vm.VM, idx bytecode.ObjectIndex) (*Call, error) {
	fut, err := m.PendingFuture(idx)
	if err != nil {
		return nil, err
	}
	call := &Call{ID: uuid.New(), Function: fut.Function, Kind: fut.Kind}
	for _, a := range fut.Args {
		if oi, ok := a.AsObject(); ok {
			if bt, ok := r.object(m, oi).(*bytecode.BamlType); ok {
				call.Result = bt.Type
				continue
			}
		}
		x, err := m.Export(a)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fut.Function, err)
		}
		call.Args = append(call.Args, x)
	}
	if fut.Kind == bytecode.FutureLlm {
		if fn, _, ok := r.Program.Function(fut.Function); ok {
			call.Params = fn.Params
			call.Llm = fn.Llm
			call.Result = fn.ReturnType
		}
	}
	return call, nil
}

func (r *Runner) object(m *vm.VM, idx bytecode.ObjectIndex) bytecode.Object {
	obj, _ := m.Object(idx)
	return obj
}

func (r *Runner) complete(m *vm.VM, tracer trace.Tracer, c completion) error {
	if c.err != nil {
		trace.Point(tracer, trace.ScopeFunction, "fail", c.call.Function, "call", c.call.ID.String())
		return m.FailFuture(c.future, c.err)
	}
	var v bytecode.Value
	var err error
	if c.resp.Body != nil {
		v, err = m.DecodeJSON(c.resp.Body, c.call.Result)
	} else {
		v, err = m.Import(c.resp.Value)
	}
	if err != nil {
		return m.FailFuture(c.future, err)
	}
	trace.Point(tracer, trace.ScopeFunction, "fulfil", c.call.Function, "call", c.call.ID.String())
	return m.FulfilFuture(c.future, v)
}

func (r *Runner) deliver(ctx context.Context, m *vm.VM, n vm.Notification) error {
	if r.Handler == nil {
		return nil
	}
	if n.Kind == vm.NotifyViz {
		return r.Handler.Notify(ctx, Notification{Kind: NotifyViz, Function: n.Function, Event: n.Event})
	}
	for _, root := range n.Roots {
		info, ok := m.WatchedVariable(root)
		if !ok {
			continue
		}
		v, err := m.Export(info.Value)
		if err != nil {
			return fmt.Errorf("watched %s: %w", info.Name, err)
		}
		rendered, _ := m.Format(info.Value)
		err = r.Handler.Notify(ctx, Notification{
			Kind:     NotifyVariable,
			Function: info.Function,
			Variable: info.Name,
			Channel:  info.Channel,
			Value:    v,
			Rendered: rendered,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// String renders a notification on one line for logs.
func (n Notification) String() string {
	if n.Kind == NotifyViz {
		return fmt.Sprintf("[viz] %s %s %d %q", n.Function, n.Event.Event, n.Event.NodeID, n.Event.Label)
	}
	return fmt.Sprintf("[%s] %s.%s = %s", n.Channel, n.Function, n.Variable, n.Rendered)
}
