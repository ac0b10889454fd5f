package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conneroisu/tatum/internal/config"
	terrors "github.com/conneroisu/tatum/internal/errors"
	"github.com/conneroisu/tatum/internal/logging"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tatum",
	Short: "Render markdown with math and diagrams to self-contained HTML",
	Long: `Tatum renders markdown documents with KaTeX math and diagram blocks into
a single styled HTML page, and serves a live preview that reloads the
browser whenever the document changes.

Quick Start:
  tatum init                  Scaffold templates into .tatum
  tatum serve --open doc.md   Preview doc.md with live reload
  tatum render doc.md         Write doc.html`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and prints any error with its hint.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .tatum.yml, can also use TATUM_CONFIG_FILE env var)")
	flags.StringP("template", "t", config.DefaultTemplatePath, "template directory containing page.html")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.BoolP("quiet", "q", false, "only print the listening address")

	viper.BindPFlag("template.path", flags.Lookup("template"))
	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("log.format", flags.Lookup("log-format"))
	viper.BindPFlag("log.quiet", flags.Lookup("quiet"))
}

// initConfig initializes the configuration system.
//
// Config file priority (highest to lowest): the --config flag, the
// TATUM_CONFIG_FILE environment variable, then .tatum.yml in the current
// directory. Values can be overridden with TATUM_<SECTION>_<KEY>
// environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("TATUM_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tatum")
	}

	viper.SetEnvPrefix("TATUM")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing or malformed file falls back to flags and defaults.
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("log.quiet") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads the configuration and builds the logger it describes.
func loadConfig() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, terrors.NewConfigError("failed to load configuration", err)
	}

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

func newLogger(cfg config.LogConfig, out io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, terrors.NewConfigError("invalid log level", err)
	}
	if cfg.Quiet {
		level = logging.LevelOff
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Format,
		Output: out,
	}), nil
}

// printError writes "ERROR: msg" in red and the error's hint in yellow.
func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %s\n", red("ERROR:"), err)

	if hint := terrors.Hint(err); hint != "" {
		fmt.Fprintf(w, " %s\n", color.YellowString(hint))
	}
}
