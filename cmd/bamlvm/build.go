package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [file.baml|directory]",
	Short: "Compile BAML sources to a bytecode artifact",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringP("output", "o", "", "artifact path (default: <package>"+ArtifactExt+")")
	buildCmd.Flags().Bool("strip-viz", false, "drop visualization instrumentation from the artifact")
}

func runBuild(cmd *cobra.Command, args []string) error {
	in, err := resolveInputs(args)
	if err != nil {
		return err
	}
	if in.artifact != "" {
		return fmt.Errorf("%s is already compiled", in.artifact)
	}
	prog, err := compile(cmd, in, false)
	if err != nil {
		return err
	}
	defer reportTimings(cmd, prog)
	if strip, _ := cmd.Flags().GetBool("strip-viz"); strip {
		prog.program.StripVizAll()
	}
	if err := prog.program.Validate(); err != nil {
		return fmt.Errorf("invalid program: %w", err)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = defaultArtifactName(in)
	}
	data, err := prog.program.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if !quiet(cmd) {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d functions, %d bytes)\n",
			output, len(prog.program.ExecFunctions()), len(data))
	}
	return nil
}

// defaultArtifactName uses the package name, or the single source file's
// base name.
func defaultArtifactName(in *inputs) string {
	if in.manifest != nil {
		return in.manifest.Config.Package.Name + ArtifactExt
	}
	if len(in.paths) == 1 {
		return strings.TrimSuffix(filepath.Base(in.paths[0]), filepath.Ext(in.paths[0])) + ArtifactExt
	}
	return "program" + ArtifactExt
}
