package cmd

import (
	"fmt"

	"github.com/conneroisu/tatum/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportOut    string
	exportPandoc string
)

var exportCmd = &cobra.Command{
	Use:   "export <document.md>",
	Short: "Convert a document with pandoc",
	Long: `Convert a document with pandoc, including the template's header.tex and
macros.tex. The output format follows the output extension; the default
is <document>.pdf.

Examples:
  tatum export notes.md
  tatum export notes.md -o notes.docx`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default <document>.pdf)")
	exportCmd.Flags().StringVar(&exportPandoc, "pandoc", "pandoc", "Pandoc executable")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	req := export.Request{
		Input:       args[0],
		Output:      exportOut,
		TemplateDir: cfg.Template.Path,
	}
	if err := export.NewPandoc(exportPandoc, logger).Export(cmd.Context(), req); err != nil {
		return err
	}

	if !cfg.Log.Quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s -> %s\n", req.Input, req.OutputPath())
	}
	return nil
}
