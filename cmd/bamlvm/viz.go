package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"baml/internal/bytecode"
	"baml/internal/ui"
	"baml/internal/viz"
)

var vizCmd = &cobra.Command{
	Use:   "viz [flags] [file.baml|directory|program.bamlc]",
	Short: "Show the control-flow nodes of compiled functions",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runViz,
}

func init() {
	vizCmd.Flags().StringP("function", "f", "", "only this function")
	vizCmd.Flags().Bool("json", false, "print the node lists as JSON")
}

func runViz(cmd *cobra.Command, args []string) error {
	in, err := resolveInputs(args)
	if err != nil {
		return err
	}
	prog, err := compile(cmd, in, false)
	if err != nil {
		return err
	}
	defer reportTimings(cmd, prog)

	fns := prog.program.ExecFunctions()
	if name, _ := cmd.Flags().GetString("function"); name != "" {
		fn, err := lookupFunction(prog.program, name)
		if err != nil {
			return err
		}
		fns = []*bytecode.Function{fn}
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		type functionNodes struct {
			Function string         `json:"function"`
			Nodes    []viz.NodeMeta `json:"nodes"`
		}
		payload := make([]functionNodes, 0, len(fns))
		for _, fn := range fns {
			payload = append(payload, functionNodes{Function: fn.Name, Nodes: fn.VizNodes})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	first := true
	for _, fn := range fns {
		if len(fn.VizNodes) == 0 {
			continue
		}
		if !first {
			fmt.Fprintln(out)
		}
		first = false
		fmt.Fprint(out, ui.VizTree(fn.VizNodes))
	}
	return nil
}
