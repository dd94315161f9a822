package main

import (
	"github.com/spf13/cobra"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm [flags] [file.baml|directory|program.bamlc]",
	Short: "Print the bytecode of compiled functions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := resolveInputs(args)
		if err != nil {
			return err
		}
		noViz, _ := cmd.Flags().GetBool("no-viz")
		prog, err := compile(cmd, in, noViz)
		if err != nil {
			return err
		}
		defer reportTimings(cmd, prog)
		name, _ := cmd.Flags().GetString("function")
		if name == "" {
			return prog.program.DisassembleAll(cmd.OutOrStdout())
		}
		fn, err := lookupFunction(prog.program, name)
		if err != nil {
			return err
		}
		return prog.program.Disassemble(cmd.OutOrStdout(), fn)
	},
}

func init() {
	disasmCmd.Flags().StringP("function", "f", "", "only this function")
	disasmCmd.Flags().Bool("no-viz", false, "compile without visualization instrumentation")
}
