package journal

import (
	"context"
	"errors"
	"sort"
	"time"

	"avport/internal/batch"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a run id is not in the journal.
var ErrNotFound = errors.New("run not found")

// Store persists the history of fix runs.
type Store interface {
	// RecordRun stores a finished run together with its documents and failures.
	RecordRun(ctx context.Context, run *Run) error

	// ListRuns returns the most recent runs first, without per-document detail.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// GetRun returns one run with its documents and failures.
	GetRun(ctx context.Context, id string) (*Run, error)

	Close() error
}

// Run is one journaled fix run.
type Run struct {
	ID            string           `json:"id"`
	StartedAt     time.Time        `json:"startedAt"`
	FinishedAt    time.Time        `json:"finishedAt"`
	Scope         string           `json:"scope"`
	Target        string           `json:"target,omitempty"`
	Mode          string           `json:"mode"`
	DiagnosticIDs []string         `json:"diagnosticIds,omitempty"`
	DryRun        bool             `json:"dryRun"`
	Applied       int              `json:"applied"`
	Cancelled     bool             `json:"cancelled"`
	Documents     []DocumentRecord `json:"documents,omitempty"`
	Failures      []FailureRecord  `json:"failures,omitempty"`
}

// DocumentRecord is the journaled result of one modified document.
type DocumentRecord struct {
	Path       string         `json:"path"`
	Applied    int            `json:"applied"`
	Iterations int            `json:"iterations"`
	Counts     map[string]int `json:"counts"`
}

// FailureRecord is a journaled rewrite failure.
type FailureRecord struct {
	RuleID string `json:"ruleId,omitempty"`
	Path   string `json:"path"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// NewRun builds a journal entry from a request and its outcome. Only
// documents that were touched or failed are kept.
func NewRun(req batch.FixRequest, out *batch.FixOutcome, dryRun bool, started, finished time.Time) *Run {
	mode := string(req.Mode)
	if mode == "" {
		mode = string(batch.ModeSequential)
	}
	ids := append([]string(nil), req.DiagnosticIDs...)
	sort.Strings(ids)

	run := &Run{
		ID:            uuid.NewString(),
		StartedAt:     started.UTC(),
		FinishedAt:    finished.UTC(),
		Scope:         string(req.Scope),
		Target:        req.Target,
		Mode:          mode,
		DiagnosticIDs: ids,
		DryRun:        dryRun,
	}
	if out == nil {
		return run
	}
	run.Applied = out.AppliedCount
	run.Cancelled = out.Cancelled
	for _, d := range out.Documents {
		if !d.Modified && len(d.Failures) == 0 {
			continue
		}
		run.Documents = append(run.Documents, DocumentRecord{
			Path:       d.Path,
			Applied:    d.Applied,
			Iterations: d.Iterations,
			Counts:     d.PerDiagnosticIDCounts,
		})
	}
	for _, f := range out.Failures {
		run.Failures = append(run.Failures, FailureRecord{
			RuleID: f.RuleID,
			Path:   f.Path,
			Code:   string(f.Code),
			Reason: f.Reason,
		})
	}
	return run
}
