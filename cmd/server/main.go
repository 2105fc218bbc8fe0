package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"popdash/internal/api"
	"popdash/internal/cache"
	"popdash/internal/config"
	"popdash/internal/logging"
)

var (
	// Persistent flags
	configPath string
	dataPath   string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "popdash",
	Short: "Philippine province population dashboard",
	Long: `popdash serves a single-page dashboard over a CSV of Philippine province
population counts (2000, 2010, 2015, 2020): a growth line chart and a grouped
bar chart, filtered by an optional province selector.

Run without a subcommand to start the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dataPath != "" {
			cfg.DataPath = dataPath
		}
		logger, err = logging.New(cfg.Logging, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "popdash.yaml", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "population CSV (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, renderCmd, provincesCmd, exportCmd, configCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := cache.NewLoader(cache.WithLogger(logger.Named("cache")))

	// Warm the cache in the background; the server is live immediately and
	// answers 503 until the dataset is readable.
	warm := func(path string) {
		t0 := time.Now()
		if _, err := loader.Dataset(ctx, path); err != nil {
			logger.Error("dataset warm-up failed", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("dataset ready", zap.String("path", path), zap.Duration("took", time.Since(t0)))
	}
	go warm(cfg.DataPath)

	if cfg.Watch {
		w, err := cache.NewWatcher(cfg.DataPath, loader.Store(), func(path string) { go warm(path) }, logger.Named("watcher"))
		if err != nil {
			return fmt.Errorf("watcher: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			logger.Warn("dataset watch disabled", zap.Error(err))
		}
		defer w.Stop()
	}

	h := api.NewHandler(loader, cfg, logger.Named("api"))
	e, err := api.NewServer(h, cfg.Server, logger.Named("http"))
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server ready", zap.String("addr", cfg.Server.Addr), zap.String("data", cfg.DataPath))
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
