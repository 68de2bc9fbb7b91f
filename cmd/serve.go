package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chartquery/chartquery/internal/logging"
	"github.com/chartquery/chartquery/internal/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Start the chartquery HTTP server. Endpoints:
  GET  /api/health  liveness and database status
  GET  /api/schema  tables with column metadata
  POST /api/query   run a question, streaming progress as server-sent events
  GET  /api/query   same, with the question in the q parameter

The server shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := logging.GetLogger()

	cfg := appConfig
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}

	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	p, st, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Ping(cmd.Context()); err != nil {
		// Start anyway: the database may come up later and the health
		// endpoint reports its state
		logger.WithError(err).Warn("database unreachable at startup")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(p, st, cfg.Server, logger)

	if err := srv.ListenAndServe(ctx); err != nil && !isServerClosed(err) {
		return err
	}

	logger.Info("server stopped")

	return nil
}

func isServerClosed(err error) bool {
	return err == http.ErrServerClosed || err == context.Canceled
}
