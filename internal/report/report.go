// Package report accumulates per-step outcomes into the final generation
// report.
//
// The [Builder] is pure aggregation: it consumes step records in commit
// order, keeps running totals, and exposes a read-only [Report] once the
// run finalizes. It performs no I/O; persisting the report is the external
// layer's concern.
//
// Key types:
//   - [Builder]: single-writer accumulator
//   - [Report]: the finalized run record
//   - [StepRecord] and [AttemptRecord]: per-step outcome detail
package report

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"landgen/internal/params"
)

// Outcome is the terminal state of a step or of the whole run.
type Outcome string

const (
	// OutcomeAccepted means the artifact validated within the attempt bound.
	OutcomeAccepted Outcome = "accepted"

	// OutcomeFailed means the step gave up: attempt bound exhausted, a
	// non-retryable provider error, or a failed dependency.
	OutcomeFailed Outcome = "failed"

	// OutcomeCancelled means the run was interrupted before the step could
	// resolve. Distinct from failed so report consumers can tell "gave up"
	// apart from "interrupted".
	OutcomeCancelled Outcome = "cancelled"
)

// AttemptRecord captures one generation attempt for the report.
type AttemptRecord struct {
	Number     int           `json:"number"`
	Violations []string      `json:"violations,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// StepRecord is the terminal outcome of one plan step.
type StepRecord struct {
	StepID     string          `json:"step_id"`
	Title      string          `json:"title"`
	PathHint   string          `json:"path,omitempty"`
	Outcome    Outcome         `json:"outcome"`
	Attempts   []AttemptRecord `json:"attempts,omitempty"`
	Violations []string        `json:"last_violations,omitempty"`
	Error      string          `json:"error,omitempty"`
	Duration   time.Duration   `json:"duration"`
}

// Report is the finalized record of a whole run.
type Report struct {
	RunID           string            `json:"run_id"`
	StartedAt       time.Time         `json:"started_at"`
	FinishedAt      time.Time         `json:"finished_at"`
	Elapsed         time.Duration     `json:"elapsed"`
	Params          params.Parameters `json:"params"`
	Steps           []StepRecord      `json:"steps"`
	TotalAttempts   int               `json:"total_attempts"`
	TotalViolations int               `json:"total_violations"`
	Accepted        int               `json:"accepted"`
	Failed          int               `json:"failed"`
	Cancelled       int               `json:"cancelled"`
	Outcome         Outcome           `json:"outcome"`
}

// Succeeded reports whether every step was accepted.
func (r Report) Succeeded() bool {
	return r.Outcome == OutcomeAccepted
}

// Builder accumulates step records into a [Report].
//
// Add and Finalize are safe for concurrent callers, but the engine
// serializes commits anyway (single-writer discipline), so records always
// arrive in deterministic commit order.
type Builder struct {
	mu        sync.Mutex
	started   time.Time
	params    params.Parameters
	steps     []StepRecord
	attempts  int
	violCount int
	finalized bool
	final     Report
}

// NewBuilder starts a report for a run over the given parameters.
func NewBuilder(p params.Parameters) *Builder {
	return &Builder{
		started: time.Now(),
		params:  p,
	}
}

// Add appends one step record in commit order.
func (b *Builder) Add(rec StepRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = append(b.steps, rec)
	b.attempts += len(rec.Attempts)
	for _, a := range rec.Attempts {
		b.violCount += len(a.Violations)
	}
}

// Finalize computes aggregates and returns the read-only report.
// Subsequent calls return the same report.
func (b *Builder) Finalize() Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finalized {
		return b.final
	}

	r := Report{
		RunID:           uuid.NewString(),
		StartedAt:       b.started,
		FinishedAt:      time.Now(),
		Params:          b.params,
		Steps:           append([]StepRecord(nil), b.steps...),
		TotalAttempts:   b.attempts,
		TotalViolations: b.violCount,
	}
	r.Elapsed = r.FinishedAt.Sub(r.StartedAt)

	for _, s := range r.Steps {
		switch s.Outcome {
		case OutcomeAccepted:
			r.Accepted++
		case OutcomeFailed:
			r.Failed++
		case OutcomeCancelled:
			r.Cancelled++
		}
	}

	switch {
	case r.Cancelled > 0:
		r.Outcome = OutcomeCancelled
	case r.Failed > 0:
		r.Outcome = OutcomeFailed
	default:
		r.Outcome = OutcomeAccepted
	}

	b.finalized = true
	b.final = r
	return r
}
