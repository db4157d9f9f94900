// Package runner drives a collection run end to end: batches of base URLs are
// processed strictly in order, one URL at a time, with progress recorded and
// exports produced as each batch finishes.
package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jadrxma/productfinder/internal/export"
	"github.com/jadrxma/productfinder/internal/notify"
	"github.com/jadrxma/productfinder/internal/product"
	"github.com/jadrxma/productfinder/internal/progress"
	"github.com/jadrxma/productfinder/internal/storage"
)

// RunRecorder receives run progress updates. *store.RunStore satisfies it.
type RunRecorder interface {
	RecordURL(id string, batch, urlsDone, urlTotal int, url string, elapsed time.Duration, batchRecords int) error
	CompleteBatch(id string, batch, records int, export []byte) error
	CompleteRun(id string, records int, export []byte) error
	FailRun(id string, reason string) error
}

// Config captures the runner's collaborators.
type Config struct {
	Collector *product.Collector
	Recorder  RunRecorder
	Emitter   progress.Emitter
	Archive   storage.Provider
	Notifier  notify.Provider
	Clock     product.Clock
	Logger    *zap.Logger
}

// Runner executes collection runs sequentially. It holds no run state of its
// own; everything observable lives in the recorder.
type Runner struct {
	collector *product.Collector
	recorder  RunRecorder
	emitter   progress.Emitter
	archive   storage.Provider
	notifier  notify.Provider
	clock     product.Clock
	logger    *zap.Logger
}

// New builds a Runner. Archive, Notifier, Emitter, and Logger default to
// no-ops when unset.
func New(cfg Config) *Runner {
	if cfg.Archive == nil {
		cfg.Archive = &storage.NoOpProvider{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = &notify.NoOpProvider{}
	}
	if cfg.Emitter == nil {
		cfg.Emitter = noopEmitter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Runner{
		collector: cfg.Collector,
		recorder:  cfg.Recorder,
		emitter:   cfg.Emitter,
		archive:   cfg.Archive,
		notifier:  cfg.Notifier,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
}

// Run processes every batch in order and every URL within a batch in order.
// There is no concurrency between URLs; this serialization is what makes the
// progress numbers trustworthy and keeps load on target storefronts gentle.
func (r *Runner) Run(ctx context.Context, runID string, batches [][]string) error {
	runStart := r.clock.Now()
	r.emit(progress.Event{RunID: runID, Stage: progress.StageRunStart})

	var allRecords []product.Record

	for i, batch := range batches {
		batchNum := i + 1
		batchStart := r.clock.Now()
		r.emit(progress.Event{
			RunID:    runID,
			Stage:    progress.StageBatchStart,
			Batch:    batchNum,
			URLTotal: len(batch),
		})

		var batchRecords []product.Record
		for j, baseURL := range batch {
			urlStart := r.clock.Now()
			records := r.collector.Collect(ctx, baseURL)
			elapsed := r.clock.Now().Sub(urlStart)
			batchRecords = append(batchRecords, records...)

			if err := r.recorder.RecordURL(runID, batchNum, j+1, len(batch), baseURL, elapsed, len(batchRecords)); err != nil {
				return r.fail(runID, fmt.Errorf("record url progress: %w", err))
			}
			r.emit(progress.Event{
				RunID:    runID,
				Stage:    progress.StageURLDone,
				Batch:    batchNum,
				URL:      baseURL,
				URLIndex: j + 1,
				URLTotal: len(batch),
				Fraction: float64(j+1) / float64(len(batch)),
				Records:  len(records),
				Dur:      elapsed,
			})
		}

		exportData, err := r.encode(batchRecords)
		if err != nil {
			return r.fail(runID, fmt.Errorf("encode batch %d export: %w", batchNum, err))
		}
		if err := r.recorder.CompleteBatch(runID, batchNum, len(batchRecords), exportData); err != nil {
			return r.fail(runID, fmt.Errorf("complete batch %d: %w", batchNum, err))
		}
		r.save(ctx, fmt.Sprintf("%s/batch_%d_products.csv", runID, batchNum), exportData)

		r.emit(progress.Event{
			RunID:   runID,
			Stage:   progress.StageBatchDone,
			Batch:   batchNum,
			Records: len(batchRecords),
			Dur:     r.clock.Now().Sub(batchStart),
		})
		allRecords = append(allRecords, batchRecords...)
	}

	// Combined export preserves batch order, then URL order within each batch.
	combined, err := r.encode(allRecords)
	if err != nil {
		return r.fail(runID, fmt.Errorf("encode combined export: %w", err))
	}
	if err := r.recorder.CompleteRun(runID, len(allRecords), combined); err != nil {
		return r.fail(runID, fmt.Errorf("complete run: %w", err))
	}
	r.save(ctx, fmt.Sprintf("%s/all_products.csv", runID), combined)

	if err := r.notifier.Publish(ctx, notify.Completion{
		RunID:   runID,
		Records: len(allRecords),
		Result:  "success",
	}); err != nil {
		r.logger.Warn("run completion notification failed", zap.String("run_id", runID), zap.Error(err))
	}

	r.emit(progress.Event{
		RunID:   runID,
		Stage:   progress.StageRunDone,
		Records: len(allRecords),
		Dur:     r.clock.Now().Sub(runStart),
	})
	return nil
}

func (r *Runner) encode(records []product.Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, nil
	}
	return export.EncodeCSV(export.BuildTable(records))
}

func (r *Runner) save(ctx context.Context, objectName string, data []byte) {
	if len(data) == 0 {
		return
	}
	if err := r.archive.Save(ctx, objectName, data); err != nil {
		r.logger.Warn("archiving export failed",
			zap.String("object", objectName),
			zap.Error(err),
		)
	}
}

func (r *Runner) fail(runID string, err error) error {
	r.logger.Error("collection run failed", zap.String("run_id", runID), zap.Error(err))
	// Release the single-run slot even when the recorder itself misbehaved.
	if failErr := r.recorder.FailRun(runID, err.Error()); failErr != nil {
		r.logger.Warn("marking run failed did not succeed", zap.String("run_id", runID), zap.Error(failErr))
	}
	r.emit(progress.Event{RunID: runID, Stage: progress.StageRunError, Note: err.Error()})
	if notifyErr := r.notifier.Publish(context.Background(), notify.Completion{
		RunID:  runID,
		Result: "error",
	}); notifyErr != nil {
		r.logger.Warn("run failure notification failed", zap.String("run_id", runID), zap.Error(notifyErr))
	}
	return err
}

func (r *Runner) emit(evt progress.Event) {
	evt.TS = r.clock.Now().UTC()
	r.emitter.Emit(evt)
}

type noopEmitter struct{}

func (noopEmitter) Emit(progress.Event) {}
