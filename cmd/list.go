package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/conneroisu/tatum/internal/scaffolding"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
)

const listIndent = 4

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List the templates under .tatum",
	Long: `List the template directories under .tatum with the description from
each template.yaml, wrapped to the terminal width.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	infos, err := scaffolding.NewGenerator(cwd).List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No templates found")
		return nil
	}

	width := terminalWidth(out, defaultWidth) - listIndent
	if width < 20 {
		width = 20
	}

	for _, info := range infos {
		fmt.Fprintln(out, info.Name)
		if info.Description == "" {
			continue
		}
		wrapped := wordwrap.String(info.Description, width)
		fmt.Fprintln(out, indent.String(strings.TrimRight(wrapped, "\n"), listIndent))
	}

	return nil
}
