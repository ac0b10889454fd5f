package cmd

import (
	"fmt"

	"github.com/conneroisu/tatum/internal/macros"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var macrosCmd = &cobra.Command{
	Use:     "macros",
	Aliases: []string{"to-latex"},
	Short:   "Transcribe katex-macros.js into macros.tex",
	Long: `Read the active template's KaTeX macro script and write the equivalent
LaTeX definitions to macros.tex in the same directory, for use by
tatum export.

Examples:
  tatum macros
  tatum macros -t .tatum/bluetot`,
	Args: cobra.NoArgs,
	RunE: runMacros,
}

func init() {
	rootCmd.AddCommand(macrosCmd)
}

func runMacros(cmd *cobra.Command, args []string) error {
	dir := viper.GetString("template.path")

	defs, err := macros.Compile(dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, m := range defs {
		arity := "no args"
		if m.Args > 0 {
			arity = fmt.Sprintf("%d args", m.Args)
		}
		fmt.Fprintf(out, "Macro: %s -> %s (%s)\n", m.Name, m.Body, arity)
	}
	fmt.Fprintf(out, "Wrote %d macros to %s/%s\n", len(defs), dir, macros.OutputFile)

	return nil
}
