package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"baml/internal/asyncrt"
	"baml/internal/project"
	"baml/internal/trace"
	"baml/internal/ui"
	"baml/internal/viz"
	"baml/internal/vm"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] [file.baml|directory|program.bamlc]",
	Short: "Compile and run a BAML function",
	Long: `Compile the sources and run the entry function on the VM. Without a path
the project manifest (baml.toml) names the sources, the entry and its
arguments. Network futures go over HTTP unless --mock is set; LLM futures are
answered from [llm.responses].`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringP("entry", "e", "", "function to run (default: manifest [run].entry or main)")
	runCmd.Flags().StringArray("arg", nil, "argument as JSON, repeatable; plain text is passed as a string")
	runCmd.Flags().Bool("viz", false, "print the control-flow events of the run")
	runCmd.Flags().Bool("json", false, "print notifications and the result as JSON lines")
	runCmd.Flags().Bool("exec-trace", false, "print every executed instruction to stderr")
	runCmd.Flags().Bool("mock", false, "answer network futures from [net.responses] instead of HTTP")
	runCmd.Flags().Duration("timeout", 0, "bound each future resolution (0 = none)")
}

func runRun(cmd *cobra.Command, args []string) error {
	in, err := resolveInputs(args)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	showViz, _ := flags.GetBool("viz")
	asJSON, _ := flags.GetBool("json")
	execTrace, _ := flags.GetBool("exec-trace")
	mockOnly, _ := flags.GetBool("mock")
	timeout, _ := flags.GetDuration("timeout")

	entry, _ := flags.GetString("entry")
	var fnArgs []any
	if in.manifest != nil {
		if entry == "" {
			entry = in.manifest.Config.Run.Entry
		}
		fnArgs = in.manifest.Config.Run.Args
	}
	if entry == "" {
		entry = project.DefaultEntry
	}
	if raw, _ := flags.GetStringArray("arg"); len(raw) > 0 {
		fnArgs = make([]any, len(raw))
		for i, r := range raw {
			if fnArgs[i], err = parseArg(r); err != nil {
				return fmt.Errorf("--arg %d: %w", i+1, err)
			}
		}
	}

	prog, err := compile(cmd, in, !showViz)
	if err != nil {
		return err
	}
	defer reportTimings(cmd, prog)
	if _, err := lookupFunction(prog.program, entry); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printer := &notificationPrinter{out: out, json: asJSON}
	runner := &asyncrt.Runner{
		Program:  prog.program,
		Env:      in.environ(),
		Resolver: newResolver(in.manifest, mockOnly, timeout),
		Handler:  printer,
		Tracer:   trace.FromContext(cmd.Context()),
		Timeout:  timeout,
	}
	if !showViz {
		printer.skipViz = true
	}
	if execTrace {
		runner.ExecTrace = vm.NewTracer(cmd.ErrOrStderr(), prog.files)
	}

	done := prog.timer.Track("run")
	res, err := runner.Run(cmd.Context(), entry, fnArgs)
	done(entry)
	if err != nil {
		var st *vm.StackTrace
		if errors.As(err, &st) {
			fmt.Fprint(cmd.ErrOrStderr(), st.FormatWithFiles(prog.files))
			return errSilent
		}
		return err
	}
	if asJSON {
		return writeJSONLine(out, map[string]any{"kind": "result", "function": entry, "value": res.Value})
	}
	_, err = fmt.Fprintln(out, res.Rendered)
	return err
}

// parseArg decodes a command-line argument as JSON, keeping integers
// exact. Anything that is not JSON is taken as a string.
func parseArg(raw string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return raw, nil
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value in %q", raw)
	}
	return v, nil
}

// newResolver answers LLM futures from the manifest. Network futures use
// HTTP unless mockOnly is set.
func newResolver(m *project.Manifest, mockOnly bool, timeout time.Duration) asyncrt.Resolver {
	mock := &asyncrt.MockResolver{}
	if m != nil {
		mock.LLM = m.Config.LLM.Responses
		mock.Net = m.Config.Net.Responses
	}
	if mockOnly {
		return mock
	}
	return asyncrt.Split{
		LLM: mock,
		Net: &asyncrt.HTTPResolver{Client: &http.Client{Timeout: timeout}},
	}
}

// notificationPrinter writes notifications as they arrive, styled for a
// terminal or as JSON lines.
type notificationPrinter struct {
	out     io.Writer
	json    bool
	skipViz bool
	reducer viz.Reducer
}

var (
	channelColor = color.New(color.FgCyan)
	nameColor    = color.New(color.Bold)
)

func (p *notificationPrinter) Notify(_ context.Context, n asyncrt.Notification) error {
	if n.Kind == asyncrt.NotifyViz {
		if p.skipViz {
			return nil
		}
		depth := len(p.reducer.Stack())
		p.reducer.Apply(n.Function, n.Event)
		if n.Event.Event == viz.Enter {
			depth = len(p.reducer.Stack())
		}
		if p.json {
			return writeJSONLine(p.out, map[string]any{"kind": "viz", "function": n.Function, "event": n.Event, "stack": p.reducer.Keys()})
		}
		_, err := fmt.Fprintln(p.out, ui.VizEventLine(depth-1, n.Function, n.Event))
		return err
	}
	if p.json {
		return writeJSONLine(p.out, map[string]any{
			"kind":     "variable",
			"function": n.Function,
			"variable": n.Variable,
			"channel":  n.Channel,
			"value":    n.Value,
		})
	}
	_, err := fmt.Fprintf(p.out, "%s %s = %s\n",
		channelColor.Sprintf("[%s]", n.Channel),
		nameColor.Sprintf("%s.%s", n.Function, n.Variable),
		n.Rendered)
	return err
}

func writeJSONLine(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
