package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/pagelume/internal/errors"
	"github.com/conneroisu/pagelume/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the preview server with live reload",
	Long: `Start the preview server. The gallery at / lists every component, each
component is previewed at /preview/<type>/<variation> and open previews reload
when their files change.

Examples:
  pagelume serve                  # Serve on localhost:3000
  pagelume serve --port 4000      # Serve on another port
  pagelume serve --no-hot-reload  # Disable the file watcher`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 3000, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().Bool("no-hot-reload", false, "Disable live reload")
	AddFlagValidation(serveCmd, "port", ValidatePort)

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noReload, _ := cmd.Flags().GetBool("no-hot-reload"); noReload {
		cfg.Development.HotReload = false
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg, cmd.ErrOrStderr())
	reportWarnings(ctx, logger, cfg)

	rend, err := newRenderer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv := server.New(cfg, rend, logger)
	if err := srv.Start(ctx); err != nil {
		return errors.NewEnhancedError("Failed to start server", err, errors.ServerStartError(err, cfg.Server.Port))
	}
	fmt.Fprintln(cmd.OutOrStdout(),
		styleSummary.Render("Pagelume preview server running at")+" "+styleNoun.Render("http://"+srv.Addr()))

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
