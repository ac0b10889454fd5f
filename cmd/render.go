package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	terrors "github.com/conneroisu/tatum/internal/errors"
	"github.com/conneroisu/tatum/internal/renderer"
	"github.com/spf13/cobra"
)

var (
	renderOut   string
	renderForce bool
)

var renderCmd = &cobra.Command{
	Use:     "render <document.md>",
	Aliases: []string{"r"},
	Short:   "Render a document to a standalone HTML file",
	Long: `Render a document once, without the live reload client.

The output defaults to the document path with an .html extension. An
existing output file is only replaced after confirmation, or with --force.

Examples:
  tatum render notes.md
  tatum render notes.md -o public/index.html -t .tatum/bluetot`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Output file (default <document>.html)")
	renderCmd.Flags().BoolVarP(&renderForce, "force", "f", false, "Overwrite the output file without asking")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	in := args[0]
	out := renderOut
	if out == "" {
		out = strings.TrimSuffix(in, filepath.Ext(in)) + ".html"
	}

	html, err := renderer.New(nil, nil, logger).RenderDoc(cmd.Context(), in, false, cfg.Template.Path)
	if err != nil {
		return err
	}

	if _, err := os.Stat(out); err == nil && !renderForce {
		overwrite, err := confirmOverwrite(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Fprintln(cmd.OutOrStdout(), "Exiting...")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Overwriting...")
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(out, []byte(html), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	if !cfg.Log.Quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s -> %s\n", in, out)
	}
	return nil
}

// confirmOverwrite asks on out and reads the answer from in. Input that is
// a file but not a terminal cannot answer, so the overwrite is refused.
func confirmOverwrite(in io.Reader, out io.Writer) (bool, error) {
	if _, isFile := in.(*os.File); isFile && !isTerminal(in) {
		return false, terrors.NewValidationError(terrors.CodeAlreadyExists,
			"output file exists; pass --force to overwrite it")
	}

	fmt.Fprint(out, "The output file exists. Do you wish to overwrite? [y/N] ")

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Fprintln(out)

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
