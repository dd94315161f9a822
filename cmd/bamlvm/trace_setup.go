package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"baml/internal/project"
	"baml/internal/trace"
)

// traceDump prints the in-memory trace events when the tracer keeps them.
// main calls it when a command fails.
var traceDump = func(io.Writer) {}

// setupTracing inspects trace-related flags and initializes the tracer.
// Flags left at their defaults fall back to the [trace] table of the
// manifest found from the working directory. It returns a cleanup function
// that flushes and closes the tracer.
func setupTracing(cmd *cobra.Command) (func(), error) {
	flags := cmd.Root().PersistentFlags()

	traceOutput, err := flags.GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	formatStr, err := flags.GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	if wd, err := os.Getwd(); err == nil {
		// a broken manifest is reported by the command that needs it
		if m, ok, err := project.Load(wd); err == nil && ok {
			tc := m.Config.Trace
			if !flags.Changed("trace-level") && tc.Level != "" {
				levelStr = tc.Level
			}
			if !flags.Changed("trace-mode") && tc.Mode != "" {
				modeStr = tc.Mode
			}
			if !flags.Changed("trace") && tc.Output != "" {
				traceOutput = tc.Output
			}
		}
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}

	// If level is off, skip tracing
	if level == trace.LevelOff {
		ctx := trace.WithTracer(cmd.Context(), trace.Nop)
		cmd.SetContext(ctx)
		return func() {}, nil
	}
	if traceOutput == "" {
		traceOutput = "-"
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}

	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: traceOutput,
		RingSize:   ringSize,
		Heartbeat:  heartbeatInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	if d, ok := tracer.(trace.Dumper); ok {
		traceDump = func(w io.Writer) {
			fmt.Fprintln(w, "trace: recent events")
			if err := d.Dump(w, trace.FormatText); err != nil {
				fmt.Fprintf(w, "trace: dump failed: %v\n", err)
			}
		}
	}

	heartbeat := trace.StartHeartbeat(tracer, heartbeatInterval)

	return func() {
		traceDump = func(io.Writer) {}
		heartbeat.Stop()
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}
