package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jadrxma/productfinder/internal/clock/system"
	"github.com/jadrxma/productfinder/internal/input"
	"github.com/jadrxma/productfinder/internal/product"
	"github.com/jadrxma/productfinder/internal/progress"
	"github.com/jadrxma/productfinder/internal/progress/sinks"
	"github.com/jadrxma/productfinder/internal/runner"
	"github.com/jadrxma/productfinder/internal/storage"
	"github.com/jadrxma/productfinder/internal/storage/local"
	"github.com/jadrxma/productfinder/internal/store"
)

// newCollectCmd creates and configures the 'collect' subcommand: a one-shot
// run without the HTTP service.
func newCollectCmd() *cobra.Command {
	var (
		linksPath string
		outDir    string
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Runs a single collection from a link file",
		Long: `Reads a CSV link file, partitions it into batches, collects the product
listings of every storefront, and writes the batch and combined CSV exports.
By default exports go to the configured storage provider; --out overrides it
with a local directory.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCollectCommand(cmd, linksPath, outDir)
		},
	}

	cmd.Flags().StringVar(&linksPath, "links", "", "path to the CSV link file (required)")
	cmd.Flags().StringVar(&outDir, "out", "", "local directory for CSV exports (overrides storage config)")
	_ = cmd.MarkFlagRequired("links")

	return cmd
}

func runCollectCommand(cmd *cobra.Command, linksPath, outDir string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.GetConfig()
	logger := appInstance.GetLogger()

	file, err := os.Open(linksPath)
	if err != nil {
		return fmt.Errorf("open link file: %w", err)
	}
	defer file.Close() //nolint:errcheck // read-only file

	links, err := input.ParseLinks(file)
	if err != nil {
		return fmt.Errorf("parse link file: %w", err)
	}
	if len(links) == 0 {
		return fmt.Errorf("link file contains no URLs")
	}

	archive := appInstance.GetStorage()
	if outDir != "" {
		archive, err = local.New(local.Config{BaseDir: outDir})
		if err != nil {
			return fmt.Errorf("init export directory: %w", err)
		}
	}

	batches := product.Partition(links, cfg.Collector.NumBatches, cfg.Collector.IncludeRemainder)

	clk := system.New()
	fetcher := product.NewCollyFetcher(product.FetcherConfig{
		UserAgent: cfg.Collector.UserAgent,
		Timeout:   cfg.Collector.PageTimeout,
	}, logger)
	collector := product.NewCollector(fetcher, clk, cfg.Collector.URLBudget, logger)

	hub := progress.NewHub(progress.Config{Logger: logger}, sinks.NewLogSink(logger))
	defer func() {
		if cerr := hub.Close(context.Background()); cerr != nil {
			logger.Warn("Failed to close progress hub", zap.Error(cerr))
		}
	}()

	runs := store.NewRunStore()
	runID := uuid.NewString()
	batchSizes := make([]int, len(batches))
	for i, b := range batches {
		batchSizes[i] = len(b)
	}
	if err := runs.CreateRun(runID, batchSizes); err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	run := runner.New(runner.Config{
		Collector: collector,
		Recorder:  runs,
		Emitter:   hub,
		Archive:   archive,
		Notifier:  appInstance.GetNotifier(),
		Clock:     clk,
		Logger:    logger,
	})
	if err := run.Run(cmd.Context(), runID, batches); err != nil {
		return fmt.Errorf("run collection: %w", err)
	}

	snapshot, err := runs.GetRun(runID)
	if err != nil {
		return fmt.Errorf("read run result: %w", err)
	}
	logger.Info("Collect command finished.",
		zap.String("run_id", runID),
		zap.Int("links", len(links)),
		zap.Int("records", snapshot.Records),
	)
	if _, ok := archive.(*storage.NoOpProvider); ok && snapshot.Records > 0 {
		logger.Warn("Exports were discarded; set --out or configure a storage provider to keep them.")
	}
	return nil
}
