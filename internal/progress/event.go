// Package progress defines the event structures emitted while a collection
// run advances through its batches.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart   Stage = "RUN_START"
	StageBatchStart Stage = "BATCH_START"
	StageURLDone    Stage = "URL_DONE"
	StageBatchDone  Stage = "BATCH_DONE"
	StageRunDone    Stage = "RUN_DONE"
	StageRunError   Stage = "RUN_ERROR"
)

// Event captures a single milestone of a collection run.
type Event struct {
	// RunID uniquely identifies the run.
	RunID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage
	// Batch is the 1-based batch number for batch and URL stages.
	Batch int
	// URL is the base URL just processed, for URL_DONE events.
	URL string
	// URLIndex/URLTotal locate the URL within its batch (1-based index).
	URLIndex int
	URLTotal int
	// Fraction is the batch completion fraction, URLIndex/URLTotal.
	Fraction float64
	// Records counts records gathered by this URL, batch, or run.
	Records int
	// Dur captures the wall-clock time of the URL, batch, or run.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StageBatchStart, StageBatchDone:
		if e.Batch <= 0 {
			return errors.New("batch stages require a batch number")
		}
	case StageURLDone:
		if e.Batch <= 0 {
			return errors.New("url done requires a batch number")
		}
		if e.URL == "" {
			return errors.New("url done requires a url")
		}
		if e.URLTotal <= 0 || e.URLIndex <= 0 || e.URLIndex > e.URLTotal {
			return errors.New("url done requires a valid index/total")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Fraction < 0 || e.Fraction > 1 {
		return errors.New("fraction must be within [0, 1]")
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
