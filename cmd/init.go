package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/tatum/internal/scaffolding"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Aliases: []string{"i"},
	Short:   "Scaffold the builtin templates into .tatum",
	Long: `Create .tatum in the current directory with the builtin templates
(default and bluetot). Fails when .tatum already exists.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a template from the default one",
	Long: `Copy the default template into .tatum/<name> so it can be customised.
Run tatum init first.

Examples:
  tatum new lecture
  tatum serve -t .tatum/lecture`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(newCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	created, err := scaffolding.Init(cwd)
	for _, dir := range created {
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", relative(cwd, dir))
	}

	return err
}

func runNew(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	dir, err := scaffolding.New(cwd, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", relative(cwd, dir))
	return nil
}

func relative(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return rel
	}
	return path
}
