package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"baml/internal/asyncrt"
	"baml/internal/driver"
	"baml/internal/project"
	"baml/internal/ui"
)

var testCmd = &cobra.Command{
	Use:   "test [flags] [files, directories or globs...]",
	Short: "Run //> expression suites",
	Long: `Run suite files: BAML sources where a "//> expr" comment is followed by
comment lines holding the expected output. Each expression is compiled into
the file's program and evaluated on the VM; watch notifications are printed as
"[watch] name = value" before the value. Futures are answered from the
manifest's [llm.responses] and [net.responses].`,
	RunE: runTest,
}

func init() {
	testCmd.Flags().Int("jobs", 0, "files run in parallel (0 = GOMAXPROCS)")
	testCmd.Flags().Duration("timeout", 0, "bound each future resolution (0 = none)")
	testCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
}

func runTest(cmd *cobra.Command, args []string) error {
	in, err := resolveInputs(args)
	if err != nil {
		return err
	}
	if in.artifact != "" {
		return fmt.Errorf("suites run from sources, not %s", in.artifact)
	}
	jobs, _ := cmd.Flags().GetInt("jobs")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	uiFlag, _ := cmd.Flags().GetString("ui")
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	events := make(chan driver.Event, 64)
	var wg sync.WaitGroup
	var uiErr error
	switch {
	case quiet(cmd):
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range events {
			}
		}()
	case shouldUseTUI(mode):
		wg.Add(1)
		go func() {
			defer wg.Done()
			uiErr = ui.RunProgress("bamlvm test", in.paths, events)
			for range events {
			}
		}()
	default:
		wg.Add(1)
		go func() {
			defer wg.Done()
			ui.PlainProgress(cmd.OutOrStdout(), events)
		}()
	}

	results, err := driver.RunSuite(cmd.Context(), in.paths, driver.SuiteOptions{
		Jobs:     jobs,
		Resolver: suiteResolver(in.manifest),
		Timeout:  timeout,
		Progress: func(ev driver.Event) { events <- ev },
	})
	close(events)
	wg.Wait()
	if err != nil {
		return err
	}
	if uiErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: progress view: %v\n", uiErr)
	}

	failed, total := reportSuites(cmd, cmd.OutOrStdout(), results)
	if failed > 0 {
		return fmt.Errorf("%d of %d cases failed", failed, total)
	}
	return nil
}

func suiteResolver(m *project.Manifest) asyncrt.Resolver {
	mock := &asyncrt.MockResolver{}
	if m != nil {
		mock.LLM = m.Config.LLM.Responses
		mock.Net = m.Config.Net.Responses
	}
	return mock
}

var (
	failColor = color.New(color.FgRed, color.Bold)
	passColor = color.New(color.FgGreen, color.Bold)
	dimColor  = color.New(color.Faint)
)

// reportSuites prints build failures and failing cases, then a summary.
func reportSuites(cmd *cobra.Command, w io.Writer, results []driver.SuiteResult) (failed, total int) {
	for _, r := range results {
		if r.Build != nil && !r.Build.OK() {
			failed++
			total++
			fmt.Fprintf(w, "%s %s: does not compile\n", failColor.Sprint("FAIL"), r.Path)
			if err := printDiagnostics(cmd, w, r.Build.Bag, r.Build.FileSet); err != nil {
				fmt.Fprintf(w, "  %v\n", err)
			}
			continue
		}
		for _, c := range r.Cases {
			total++
			if c.Passed {
				continue
			}
			failed++
			fmt.Fprintf(w, "%s %s:%d: %s\n", failColor.Sprint("FAIL"), r.Path, c.Case.Line, c.Case.Expr)
			fmt.Fprintf(w, "  %s\n%s\n", dimColor.Sprint("expected:"), indent(c.Case.Expected))
			fmt.Fprintf(w, "  %s\n%s\n", dimColor.Sprint("actual:"), indent(c.Actual))
		}
	}
	summary := fmt.Sprintf("%d passed, %d failed", total-failed, failed)
	if failed == 0 {
		fmt.Fprintf(w, "%s %s\n", passColor.Sprint("ok"), summary)
	} else {
		fmt.Fprintf(w, "%s %s\n", failColor.Sprint("FAIL"), summary)
	}
	return failed, total
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}
