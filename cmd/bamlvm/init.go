package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"baml/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [path|name]",
	Short: "Initialize a new BAML project",
	Long: `Initialize a new BAML project by creating a manifest (baml.toml) and an
entry point (src/main.baml). If [path|name] is omitted, initializes the
current directory. If a non-existing name is provided, a directory will be
created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

// runInit refuses to overwrite an existing baml.toml; an existing
// src/main.baml is kept.
func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	target := wd
	if len(args) == 1 && args[0] != "." {
		target = args[0]
		if !filepath.IsAbs(target) {
			target = filepath.Join(wd, target)
		}
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name := strings.TrimSpace(filepath.Base(target))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "baml-project"
	}

	manifestPath := filepath.Join(target, project.ManifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("project already initialized: %s exists", manifestPath)
	}
	if err := os.WriteFile(manifestPath, []byte(project.Template(name)), 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	mainPath := filepath.Join(target, "src", "main"+project.SourceExt)
	createdMain := false
	if _, err := os.Stat(mainPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(mainPath), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(mainPath, []byte(defaultMain), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", mainPath, err)
		}
		createdMain = true
	}

	rel := target
	if r, err := filepath.Rel(wd, target); err == nil {
		rel = r
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized BAML project in %s\n", rel)
	fmt.Fprintf(out, "  - %s\n", project.ManifestName)
	if createdMain {
		fmt.Fprintln(out, "  - src/main.baml")
	} else {
		fmt.Fprintln(out, "  - src/main.baml (existing)")
	}
	return nil
}

const defaultMain = `class Greeting {
  name string
  count int
}

function Greet(name: string) -> Greeting {
  //# Greeting
  let g = Greeting { name: name, count: 0 };
  for (let i = 0; i < 3; i += 1) {
    g.count += 1;
  }
  g
}

function main() -> string {
  let g = Greet("world");
  "Hello, " + g.name + " x" + baml.unstable.string(g.count)
}

//> main()
// "Hello, world x3"
`
