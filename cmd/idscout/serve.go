package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/idscout"
	"github.com/jpalmerr/idscout/config"
)

// shutdownTimeout covers worker drain, the delivery grace period and the
// HTTP server shutdown.
const shutdownTimeout = 15 * time.Second

// newLogger creates the CLI logger on w at the configured level and format.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start scanning",
	Long: `Start the scanner and its health server.

The scanner will:
  - Load configuration from the YAML file, if given, then the environment
  - Probe identifiers with a self-tuning pool of workers
  - Post each new hit to the webhook, retrying with backoff
  - Serve /health, /api/hits, /api/sse and /metrics on the configured port

The scanner runs until interrupted (Ctrl+C) or receives SIGTERM.

Environment overrides:
  discordwebhook, PORT, MIN_CONCURRENT, MAX_CONCURRENT,
  REQUEST_TIMEOUT_MS, TOKENS_PER_SEC, MAX_TOKENS

Example:
  idscout serve
  idscout serve -c /etc/idscout/idscout.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (optional)")
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(os.Stderr, cfg.Log)
	logger.Info("config loaded",
		"file", configFile,
		"port", cfg.Port,
		"lookup", cfg.Lookup.URLTemplate,
		"dedupe", cfg.Dedupe.Backend,
	)

	opts, err := config.Options(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build options: %w", err)
	}

	scout, err := idscout.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create scout: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- scout.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("scanner error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("scanner error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
