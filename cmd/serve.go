package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conneroisu/tatum/internal/config"
	"github.com/conneroisu/tatum/internal/renderer"
	"github.com/conneroisu/tatum/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve [document.md]",
	Aliases: []string{"s"},
	Short:   "Start the live preview server",
	Long: `Start the live preview server. Every document under the root is served at
/?path=<document>; open pages reload when their document changes on disk.

Examples:
  tatum serve                        # Serve on a free port
  tatum serve notes.md               # Serve and open notes.md in the browser
  tatum serve -p 4000 -t .tatum/bluetot
  tatum serve -q                     # Only print the listening address`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 0, "Port to serve on (0 picks a free port)")
	serveCmd.Flags().StringP("address", "a", config.DefaultHost, "Address to bind to")
	serveCmd.Flags().StringP("open", "o", "", "Document to open in the browser")
	serveCmd.Flags().String("root", ".", "Directory documents are served from")
	serveCmd.Flags().Duration("debounce", config.DefaultDebounce, "Quiet period before a change triggers a reload")
	serveCmd.Flags().Duration("poll-interval", config.DefaultPollInterval, "Fallback polling interval (0 disables polling)")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("address"))
	viper.BindPFlag("server.open", serveCmd.Flags().Lookup("open"))
	viper.BindPFlag("server.root", serveCmd.Flags().Lookup("root"))
	viper.BindPFlag("watch.debounce", serveCmd.Flags().Lookup("debounce"))
	viper.BindPFlag("watch.poll_interval", serveCmd.Flags().Lookup("poll-interval"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Server.Open = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(cfg, renderer.New(nil, nil, logger), logger)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	if cfg.Log.Quiet {
		fmt.Fprintln(cmd.OutOrStdout(), srv.Addr())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return <-errCh
}
