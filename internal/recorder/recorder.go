// Package recorder persists the outcome of each run for later analysis.
package recorder

import (
	"context"
	"time"

	"volscan/internal/report"
)

// Run status values
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// RunRecord holds everything stored for one run
type RunRecord struct {
	ID        string
	StartedAt time.Time
	Root      string
	Workers   int
	Files     int
	DrainMode string
	Polls     int
	Duration  time.Duration
	Status    string
	// Error is the failure message when Status is StatusFailed
	Error  string
	Ranked []report.Entry
	Zero   []string
}

// Recorder persists run history.
type Recorder interface {
	RecordRun(ctx context.Context, run *RunRecord) error
	Close() error
}
