// Package store keeps collection run state in memory. Nothing survives a
// process restart; runs, progress, and exports live only for the lifetime of
// the service.
package store

import (
	"errors"
	"sync"
	"time"
)

// RunStatus represents the lifecycle state of a collection run.
type RunStatus string

// Run status values. A run is created directly in the running state and only
// ever moves forward; there is no cancellation or pause.
const (
	RunStatusRunning RunStatus = "running"
	RunStatusDone    RunStatus = "done"
	RunStatusFailed  RunStatus = "failed"
)

// Sentinel errors surfaced to the API layer.
var (
	ErrNotFound       = errors.New("run not found")
	ErrRunActive      = errors.New("a collection run is already in progress")
	ErrExportNotReady = errors.New("export not available")
)

// BatchState is the progress snapshot for one batch of base URLs.
type BatchState struct {
	Number             int     `json:"number"`
	URLTotal           int     `json:"url_total"`
	URLsDone           int     `json:"urls_done"`
	Fraction           float64 `json:"fraction"`
	LastURL            string  `json:"last_url,omitempty"`
	LastElapsedSeconds float64 `json:"last_elapsed_seconds"`
	Records            int     `json:"records"`
	Completed          bool    `json:"completed"`
	HasExport          bool    `json:"has_export"`
}

// Run is the client-facing snapshot of a collection run.
type Run struct {
	ID                string       `json:"id"`
	Status            RunStatus    `json:"status"`
	Started           time.Time    `json:"started_at"`
	Finished          *time.Time   `json:"finished_at,omitempty"`
	TotalURLs         int          `json:"total_urls"`
	Records           int          `json:"records"`
	Batches           []BatchState `json:"batches"`
	HasCombinedExport bool         `json:"has_combined_export"`
	Error             string       `json:"error,omitempty"`
}

type runState struct {
	run          Run
	batchExports map[int][]byte
	combined     []byte
}

// RunStore provides an in-memory run registry. At most one run may be active
// at a time; the runner goroutine writes while API handlers read.
type RunStore struct {
	mu     sync.RWMutex
	runs   map[string]*runState
	active string
}

// NewRunStore constructs a RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]*runState)}
}

// CreateRun registers a new run in the running state. batchSizes carries the
// URL count of each batch in order. It fails with ErrRunActive while another
// run is still running.
func (s *RunStore) CreateRun(id string, batchSizes []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != "" {
		if st, ok := s.runs[s.active]; ok && st.run.Status == RunStatusRunning {
			return ErrRunActive
		}
	}
	if _, exists := s.runs[id]; exists {
		return errors.New("run already exists")
	}

	batches := make([]BatchState, 0, len(batchSizes))
	total := 0
	for i, size := range batchSizes {
		batches = append(batches, BatchState{Number: i + 1, URLTotal: size})
		total += size
	}
	s.runs[id] = &runState{
		run: Run{
			ID:        id,
			Status:    RunStatusRunning,
			Started:   time.Now().UTC(),
			TotalURLs: total,
			Batches:   batches,
		},
		batchExports: make(map[int][]byte),
	}
	s.active = id
	return nil
}

// RecordURL updates batch progress after one base URL finished processing.
func (s *RunStore) RecordURL(id string, batch, urlsDone, urlTotal int, url string, elapsed time.Duration, batchRecords int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, batchState, err := s.lookupBatch(id, batch)
	if err != nil {
		return err
	}
	batchState.URLsDone = urlsDone
	batchState.URLTotal = urlTotal
	if urlTotal > 0 {
		batchState.Fraction = float64(urlsDone) / float64(urlTotal)
	}
	batchState.LastURL = url
	batchState.LastElapsedSeconds = elapsed.Seconds()
	batchState.Records = batchRecords
	return nil
}

// CompleteBatch marks a batch finished and stores its export when it produced
// any records.
func (s *RunStore) CompleteBatch(id string, batch, records int, export []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, batchState, err := s.lookupBatch(id, batch)
	if err != nil {
		return err
	}
	batchState.Completed = true
	batchState.Records = records
	if batchState.URLTotal > 0 {
		batchState.Fraction = 1
	}
	if len(export) > 0 {
		batchState.HasExport = true
		state.batchExports[batch] = append([]byte(nil), export...)
	}
	return nil
}

// CompleteRun marks the run done and stores the combined export.
func (s *RunStore) CompleteRun(id string, records int, export []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	state.run.Status = RunStatusDone
	state.run.Finished = &now
	state.run.Records = records
	if len(export) > 0 {
		state.run.HasCombinedExport = true
		state.combined = append([]byte(nil), export...)
	}
	if s.active == id {
		s.active = ""
	}
	return nil
}

// FailRun marks the run failed so a new run may start. Partial exports stored
// before the failure remain downloadable.
func (s *RunStore) FailRun(id string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	state.run.Status = RunStatusFailed
	state.run.Finished = &now
	state.run.Error = reason
	if s.active == id {
		s.active = ""
	}
	return nil
}

// GetRun returns a snapshot of the run.
func (s *RunStore) GetRun(id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.runs[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	run := state.run
	run.Batches = append([]BatchState(nil), state.run.Batches...)
	return run, nil
}

// BatchExport returns the CSV bytes of a completed batch.
func (s *RunStore) BatchExport(id string, batch int) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if batch < 1 || batch > len(state.run.Batches) {
		return nil, ErrNotFound
	}
	data, ok := state.batchExports[batch]
	if !ok {
		return nil, ErrExportNotReady
	}
	return append([]byte(nil), data...), nil
}

// CombinedExport returns the CSV bytes of the combined export of a finished run.
func (s *RunStore) CombinedExport(id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if len(state.combined) == 0 {
		return nil, ErrExportNotReady
	}
	return append([]byte(nil), state.combined...), nil
}

func (s *RunStore) lookupBatch(id string, batch int) (*runState, *BatchState, error) {
	state, ok := s.runs[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if batch < 1 || batch > len(state.run.Batches) {
		return nil, nil, ErrNotFound
	}
	return state, &state.run.Batches[batch-1], nil
}
