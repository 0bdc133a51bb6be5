// Package engine drives a generation plan to completion against a model
// backend, recovering from validation failures and transient provider
// errors along the way.
//
// The engine executes the plan's steps in declared order, bounded by a
// configurable concurrency limit. A step is dispatched once every step it
// depends on has committed an accepted artifact; results commit strictly in
// plan order regardless of completion order, so the conversation memory and
// the report are deterministic for a given set of responses.
//
// Key types:
//   - [Engine]: the run controller, constructed with [New]
//   - [Config]: retry, backoff, memory and concurrency settings
//   - [StepResult]: the terminal record of one step
//   - [ProgressCallback]: optional per-event progress reporting
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"landgen/internal/backend"
	"landgen/internal/memory"
	"landgen/internal/params"
	"landgen/internal/plan"
	"landgen/internal/report"
)

// State is a step's position in its lifecycle.
type State string

const (
	// StatePending means the step has not been dispatched yet.
	StatePending State = "pending"

	// StateAttempting means a generation request is in flight.
	StateAttempting State = "attempting"

	// StateRetrying means the previous attempt was rejected and another
	// attempt will be made.
	StateRetrying State = "retrying"

	// StateAccepted means the step's artifact passed validation.
	StateAccepted State = "accepted"

	// StateFailed means the step gave up: attempt bound exhausted, a
	// non-retryable provider error, or a failed dependency.
	StateFailed State = "failed"

	// StateCancelled means the run was interrupted before the step resolved.
	StateCancelled State = "cancelled"
)

// Attempt records one generation attempt.
type Attempt struct {
	// Number is the 1-based attempt ordinal.
	Number int

	// Violations holds the validation violation details, empty when the
	// attempt failed before validation.
	Violations []string

	// Err is the provider error that ended the attempt, nil when the
	// response was received and validated.
	Err error

	// Duration is the wall time of the attempt.
	Duration time.Duration
}

// StepResult is the terminal record of one plan step.
type StepResult struct {
	// Step is the plan step this result belongs to.
	Step plan.Step

	// State is the terminal state: accepted, failed or cancelled.
	State State

	// Response is the raw model response of the accepted attempt.
	Response string

	// Artifact is the extracted artifact of the accepted attempt.
	Artifact string

	// Instruction is the instruction of the accepted attempt. Together with
	// Response it forms the exchange persisted to conversation memory.
	Instruction string

	// Attempts lists every attempt made, in order. Zero attempts means the
	// step never reached the backend (failed dependency or cancellation).
	Attempts []Attempt

	// LastViolations holds the violations of the last rejected attempt.
	LastViolations []string

	// Err is the terminal error for failed and cancelled steps.
	Err error

	// Duration is the wall time from dispatch to resolution.
	Duration time.Duration
}

// ProgressEvent describes a state change reported to [ProgressCallback].
type ProgressEvent struct {
	StepID      string
	Title       string
	State       State
	Attempt     int
	MaxAttempts int
	Violations  []string
	Err         error
}

// ProgressCallback receives progress events during a run. Events for a
// single step arrive in order; events for concurrent steps interleave.
type ProgressCallback func(ProgressEvent)

// Config contains the engine settings. The zero value is completed with
// the documented defaults by [New].
type Config struct {
	// MaxAttempts is the per-step attempt bound. Default: 3.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry of a retryable
	// provider error. Default: 2s.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff delay. Default: 60s.
	MaxBackoff time.Duration

	// MemoryWindow is the number of most recent accepted exchanges sent as
	// history with each request. Default: 12.
	MemoryWindow int

	// Concurrency bounds concurrently executing steps. Default: 1.
	Concurrency int

	// MaxTokens bounds the generated output length per request.
	// Default: 8000.
	MaxTokens int
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 2 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 60 * time.Second
	}
	if c.MemoryWindow <= 0 {
		c.MemoryWindow = 12
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 8000
	}
	return c
}

// Engine executes a plan against a backend.
type Engine struct {
	plan   *plan.Plan
	gen    backend.Generator
	params params.Parameters
	system string
	cfg    Config
	logger *slog.Logger
	mem    *memory.Memory

	// Progress, when set, receives per-step progress events.
	Progress ProgressCallback

	// Checkpoint, when set, runs after each step commits. A non-nil error
	// stops the run: in-flight steps finish and commit, undispatched steps
	// are cancelled.
	Checkpoint func(StepResult) error

	// sleep is the backoff delay; injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an engine for one run.
//
// The system string is the fixed system-context sent with every request.
// A nil logger falls back to [slog.Default].
func New(p *plan.Plan, gen backend.Generator, prm params.Parameters, system string, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		plan:   p,
		gen:    gen,
		params: prm,
		system: system,
		cfg:    cfg.withDefaults(),
		logger: logger,
		mem:    &memory.Memory{},
		sleep:  sleepContext,
	}
}

// Memory exposes the run's conversation memory, for inspection after the
// run completes.
func (e *Engine) Memory() *memory.Memory {
	return e.mem
}

type indexedResult struct {
	i   int
	res StepResult
}

// Run executes the plan and returns the finalized report.
//
// Cancellation of ctx is honored between attempts: the in-flight attempt
// of each running step completes and its step resolves normally, then
// every step not yet dispatched resolves as cancelled. Run never returns
// before all launched work has settled.
func (e *Engine) Run(ctx context.Context) report.Report {
	builder := report.NewBuilder(e.params)
	steps := e.plan.Steps()
	n := len(steps)

	var (
		dispatched = make([]bool, n)
		pending    = make(map[int]StepResult, n)
		outcomes   = make(map[string]State, n)
		artifacts  = make(map[string]string, n)
		resCh      = make(chan indexedResult)
		running    int
		committed  int
		stopping   bool
		stopErr    error
	)
	sem := semaphore.NewWeighted(int64(e.cfg.Concurrency))

	e.logger.Info("run started",
		"steps", n,
		"max_attempts", e.cfg.MaxAttempts,
		"concurrency", e.cfg.Concurrency)

	for committed < n {
		if !stopping && ctx.Err() != nil {
			stopping = true
			stopErr = ctx.Err()
			e.logger.Warn("run interrupted, letting in-flight steps finish", "running", running)
		}

		if stopping {
			for i := range steps {
				if !dispatched[i] {
					dispatched[i] = true
					pending[i] = StepResult{Step: steps[i], State: StateCancelled, Err: stopErr}
				}
			}
		} else {
			for i, st := range steps {
				if dispatched[i] {
					continue
				}
				ready, failedDep := depGate(st, outcomes)
				if !ready {
					continue
				}
				// Propagated failures resolve without a slot; real dispatches
				// wait for one, in plan order, so sequential runs execute the
				// plan front to back.
				if failedDep == "" && running >= e.cfg.Concurrency {
					break
				}
				dispatched[i] = true
				if failedDep != "" {
					pending[i] = StepResult{
						Step:  st,
						State: StateFailed,
						Err:   fmt.Errorf("dependency %q did not produce an accepted artifact", failedDep),
					}
					continue
				}
				instr, refs, err := e.compose(st, artifacts)
				if err != nil {
					pending[i] = StepResult{Step: st, State: StateFailed, Err: err}
					continue
				}
				running++
				go func(i int, st plan.Step, instr string, refs map[string]string) {
					if err := sem.Acquire(ctx, 1); err != nil {
						resCh <- indexedResult{i, StepResult{Step: st, State: StateCancelled, Err: err}}
						return
					}
					defer sem.Release(1)
					resCh <- indexedResult{i, e.runStep(ctx, st, instr, refs)}
				}(i, st, instr, refs)
			}
		}

		before := committed
		for {
			res, ok := pending[committed]
			if !ok {
				break
			}
			delete(pending, committed)
			committed++
			outcomes[res.Step.ID] = res.State
			if res.State == StateAccepted {
				artifacts[res.Step.ID] = res.Artifact
				e.mem.Append(memory.Entry{
					StepID:      res.Step.ID,
					Instruction: res.Instruction,
					Response:    res.Response,
					At:          time.Now(),
				})
			}
			builder.Add(toRecord(res))
			e.emit(ProgressEvent{
				StepID:      res.Step.ID,
				Title:       res.Step.Title,
				State:       res.State,
				Attempt:     len(res.Attempts),
				MaxAttempts: e.cfg.MaxAttempts,
				Violations:  res.LastViolations,
				Err:         res.Err,
			})
			if e.Checkpoint != nil && !stopping {
				if err := e.Checkpoint(res); err != nil {
					stopping = true
					stopErr = fmt.Errorf("checkpoint rejected step %s: %w", res.Step.ID, err)
					e.logger.Warn("checkpoint stopped the run", "step", res.Step.ID, "error", err)
				}
			}
		}
		if committed >= n {
			break
		}
		if committed != before {
			// New outcomes may unlock dispatches; loop before blocking.
			continue
		}
		if running > 0 {
			ir := <-resCh
			running--
			pending[ir.i] = ir.res
		}
	}

	rep := builder.Finalize()
	e.logger.Info("run finished",
		"run_id", rep.RunID,
		"outcome", string(rep.Outcome),
		"accepted", rep.Accepted,
		"failed", rep.Failed,
		"cancelled", rep.Cancelled,
		"attempts", rep.TotalAttempts,
		"elapsed", rep.Elapsed)
	return rep
}

// depGate reports whether all of a step's dependencies have committed, and
// if so, the first dependency that did not end accepted.
func depGate(st plan.Step, outcomes map[string]State) (ready bool, failedDep string) {
	for _, dep := range st.DependsOn {
		state, ok := outcomes[dep]
		if !ok {
			return false, ""
		}
		if state != StateAccepted && failedDep == "" {
			failedDep = dep
		}
	}
	return true, failedDep
}

func (e *Engine) emit(ev ProgressEvent) {
	if e.Progress != nil {
		e.Progress(ev)
	}
}

func toRecord(res StepResult) report.StepRecord {
	rec := report.StepRecord{
		StepID:     res.Step.ID,
		Title:      res.Step.Title,
		PathHint:   res.Step.PathHint,
		Violations: res.LastViolations,
		Duration:   res.Duration,
	}
	switch res.State {
	case StateAccepted:
		rec.Outcome = report.OutcomeAccepted
	case StateCancelled:
		rec.Outcome = report.OutcomeCancelled
	default:
		rec.Outcome = report.OutcomeFailed
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	for _, a := range res.Attempts {
		ar := report.AttemptRecord{
			Number:     a.Number,
			Violations: a.Violations,
			Duration:   a.Duration,
		}
		if a.Err != nil {
			ar.Error = a.Err.Error()
		}
		rec.Attempts = append(rec.Attempts, ar)
	}
	return rec
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
