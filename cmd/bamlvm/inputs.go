package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"baml/internal/bytecode"
	"baml/internal/diag"
	"baml/internal/diagfmt"
	"baml/internal/driver"
	"baml/internal/observ"
	"baml/internal/project"
	"baml/internal/source"
)

// ArtifactExt is the extension `bamlvm build` writes.
const ArtifactExt = ".bamlc"

// inputs are the sources a command works on, plus the manifest that
// governs them when there is one.
type inputs struct {
	paths    []string
	artifact string
	manifest *project.Manifest
}

// resolveInputs turns command arguments into source files. Without
// arguments the manifest's [run].main is used. A single .bamlc argument
// names a compiled artifact instead of sources.
func resolveInputs(args []string) (*inputs, error) {
	if len(args) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		m, ok, err := project.Load(wd)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("no %s found; pass a .baml file or directory", project.ManifestName)
		}
		main, err := m.MainPath()
		if err != nil {
			return nil, err
		}
		paths, err := project.CollectSources(main)
		if err != nil {
			return nil, err
		}
		return &inputs{paths: paths, manifest: m}, nil
	}

	if len(args) == 1 && filepath.Ext(args[0]) == ArtifactExt {
		in := &inputs{artifact: args[0]}
		return in, in.findManifest(filepath.Dir(args[0]))
	}

	in := &inputs{}
	for _, arg := range args {
		paths, err := project.CollectSources(arg)
		if err != nil {
			return nil, err
		}
		in.paths = append(in.paths, paths...)
	}
	start := args[0]
	if st, err := os.Stat(start); err != nil || !st.IsDir() {
		// a file or a glob pattern
		start = filepath.Dir(in.paths[0])
	}
	return in, in.findManifest(start)
}

func (in *inputs) findManifest(start string) error {
	abs, err := filepath.Abs(start)
	if err != nil {
		return err
	}
	m, ok, err := project.Load(abs)
	if err != nil {
		return err
	}
	if ok {
		in.manifest = m
	}
	return nil
}

// environ is the process environment overlaid with the manifest [env].
func (in *inputs) environ() map[string]string {
	if in.manifest == nil {
		return project.OSEnviron()
	}
	return in.manifest.Environ(project.OSEnviron())
}

// compiled is a program ready to run, with the sources it came from when
// they are known.
type compiled struct {
	program *bytecode.Program
	files   *source.FileSet
	timer   *observ.Timer
	cached  bool
}

// compile builds the inputs, printing diagnostics. It returns errSilent
// when the build reported errors.
func compile(cmd *cobra.Command, in *inputs, noViz bool) (*compiled, error) {
	if in.artifact != "" {
		timer := observ.NewTimer()
		done := timer.Track("load")
		prog, err := loadArtifact(in.artifact)
		if err != nil {
			return nil, err
		}
		if noViz {
			prog.StripVizAll()
		}
		done(filepath.Base(in.artifact))
		return &compiled{program: prog, timer: timer}, nil
	}

	flags := cmd.Root().PersistentFlags()
	maxDiags, err := flags.GetInt("max-diagnostics")
	if err != nil {
		return nil, err
	}
	opts := driver.Options{MaxDiagnostics: maxDiags, NoViz: noViz}
	if noCache, _ := flags.GetBool("no-cache"); !noCache {
		cache, err := driver.OpenDiskCache("bamlvm")
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: program cache disabled: %v\n", err)
		} else {
			opts.Cache = cache
		}
	}

	res, err := driver.Build(cmd.Context(), in.paths, opts)
	if err != nil {
		return nil, err
	}
	if res.Bag.Len() > 0 {
		if err := printDiagnostics(cmd, cmd.ErrOrStderr(), res.Bag, res.FileSet); err != nil {
			return nil, err
		}
	}
	if !res.OK() {
		return nil, errSilent
	}
	return &compiled{program: res.Program, files: res.FileSet, timer: res.Timer, cached: res.Cached}, nil
}

// reportTimings prints the phases of c when --timings is set.
func reportTimings(cmd *cobra.Command, c *compiled) {
	if on, _ := cmd.Root().PersistentFlags().GetBool("timings"); !on || c == nil || c.timer == nil {
		return
	}
	w := cmd.ErrOrStderr()
	if c.cached {
		fmt.Fprintln(w, "cached program")
	}
	if err := c.timer.WriteSummary(w); err != nil {
		fmt.Fprintf(w, "timings: %v\n", err)
	}
}

func printDiagnostics(cmd *cobra.Command, w io.Writer, bag *diag.Bag, fs *source.FileSet) error {
	format, err := cmd.Root().PersistentFlags().GetString("diagnostics")
	if err != nil {
		return err
	}
	wd, _ := os.Getwd()
	switch strings.ToLower(format) {
	case "", "pretty":
		diagfmt.Pretty(w, bag, fs, diagfmt.PrettyOpts{
			Color:     isTerminal(os.Stderr),
			Context:   1,
			PathMode:  diagfmt.PathModeAuto,
			BaseDir:   wd,
			ShowNotes: true,
		})
		return nil
	case "short":
		_, err := io.WriteString(w, diag.FormatShortDiagnostics(bag.Items(), fs, true))
		return err
	case "json":
		return diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         diagfmt.PathModeRelative,
			BaseDir:          wd,
			IncludeNotes:     true,
		})
	}
	return fmt.Errorf("unsupported diagnostics format %q (must be pretty, short or json)", format)
}

func loadArtifact(path string) (*bytecode.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog := new(bytecode.Program)
	if err := prog.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// lookupFunction finds name among the program's functions.
func lookupFunction(prog *bytecode.Program, name string) (*bytecode.Function, error) {
	fn, _, ok := prog.Function(name)
	if !ok {
		return nil, fmt.Errorf("function %q not found", name)
	}
	return fn, nil
}
