// Package cmd defines and implements the CLI commands for the productfinder
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jadrxma/productfinder/internal/api"
	"github.com/jadrxma/productfinder/internal/clock/system"
	"github.com/jadrxma/productfinder/internal/product"
	"github.com/jadrxma/productfinder/internal/progress"
	"github.com/jadrxma/productfinder/internal/progress/sinks"
	"github.com/jadrxma/productfinder/internal/runner"
	"github.com/jadrxma/productfinder/internal/store"
)

// newServeCmd creates and configures the 'serve' subcommand.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the product finder HTTP service",
		Long: `Serves the upload/progress/download UI and the JSON API. Uploaded link
files start collection runs; progress and CSV exports are available while the
process is running. Nothing is persisted across restarts.`,

		RunE: runServeCommand,
	}
	return cmd
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.GetConfig()
	logger := appInstance.GetLogger()

	clk := system.New()
	fetcher := product.NewCollyFetcher(product.FetcherConfig{
		UserAgent: cfg.Collector.UserAgent,
		Timeout:   cfg.Collector.PageTimeout,
	}, logger)
	collector := product.NewCollector(fetcher, clk, cfg.Collector.URLBudget, logger)

	registry := prometheus.NewRegistry()
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return fmt.Errorf("init prometheus sink: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: logger}, sinks.NewLogSink(logger), promSink)
	defer func() {
		if cerr := hub.Close(context.Background()); cerr != nil {
			logger.Warn("Failed to close progress hub", zap.Error(cerr))
		}
	}()

	runs := store.NewRunStore()
	run := runner.New(runner.Config{
		Collector: collector,
		Recorder:  runs,
		Emitter:   hub,
		Archive:   appInstance.GetStorage(),
		Notifier:  appInstance.GetNotifier(),
		Clock:     clk,
		Logger:    logger,
	})

	server := api.NewServer(runs, run, cfg, logger,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	logger.Info("Serve command finished.")
	return nil
}
