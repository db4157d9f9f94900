package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jadrxma/productfinder/internal/input"
	"github.com/jadrxma/productfinder/internal/product"
	"github.com/jadrxma/productfinder/internal/store"
)

// maxUploadBytes bounds the multipart link file upload.
const maxUploadBytes = 10 << 20

// createRun accepts a multipart link file, partitions it into batches, and
// starts a collection run in the background.
func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form with a 'file' field")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing 'file' field")
		return
	}
	defer file.Close() //nolint:errcheck // read-only temp file

	links, err := input.ParseLinks(file)
	if err != nil {
		if errors.Is(err, input.ErrMissingLinkColumn) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("parse link file: %v", err))
		return
	}
	if len(links) == 0 {
		writeError(w, http.StatusBadRequest, "link file contains no URLs")
		return
	}

	batches := product.Partition(links, s.cfg.Collector.NumBatches, s.cfg.Collector.IncludeRemainder)
	batchSizes := make([]int, len(batches))
	total := 0
	for i, b := range batches {
		batchSizes[i] = len(b)
		total += len(b)
	}

	runID := uuid.NewString()
	if err := s.runs.CreateRun(runID, batchSizes); err != nil {
		if errors.Is(err, store.ErrRunActive) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("starting collection run",
		zap.String("run_id", runID),
		zap.Int("links", len(links)),
		zap.Int("batches", len(batches)),
		zap.Int("urls_batched", total),
	)

	// The run outlives the request; detach it from the request context.
	go func() {
		if err := s.runner.Run(context.Background(), runID, batches); err != nil {
			s.logger.Error("collection run failed", zap.String("run_id", runID), zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":     runID,
		"batches":    len(batches),
		"total_urls": total,
	})
}

// getRun returns the progress snapshot of a run.
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, err := s.runs.GetRun(runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// downloadBatchExport serves the CSV of one completed batch.
func (s *Server) downloadBatchExport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	batch, err := strconv.Atoi(chi.URLParam(r, "batch"))
	if err != nil || batch < 1 {
		writeError(w, http.StatusBadRequest, "invalid batch number")
		return
	}

	data, err := s.runs.BatchExport(runID, batch)
	if err != nil {
		s.writeExportError(w, err)
		return
	}
	serveCSV(w, fmt.Sprintf("batch_%d_products.csv", batch), data)
}

// downloadCombinedExport serves the CSV of the whole run.
func (s *Server) downloadCombinedExport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	data, err := s.runs.CombinedExport(runID)
	if err != nil {
		s.writeExportError(w, err)
		return
	}
	serveCSV(w, "all_products.csv", data)
}

func (s *Server) writeExportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "run not found")
	case errors.Is(err, store.ErrExportNotReady):
		writeError(w, http.StatusConflict, "export not available")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func serveCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		zap.L().Error("write CSV response failed", zap.Error(err))
	}
}
