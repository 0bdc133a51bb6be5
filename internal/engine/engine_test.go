package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landgen/internal/backend"
	"landgen/internal/params"
	"landgen/internal/plan"
	"landgen/internal/report"
	"landgen/internal/schema"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testParams() params.Parameters {
	return params.Parameters{
		ProjectName: "test-page",
		ProductName: "CloudSync",
		Description: "Sync your files.",
		Features:    []string{"fast sync"},
		BrandColor:  "teal",
	}
}

// testStep builds a step accepted by any response containing "[[id]]".
func testStep(id string, deps ...string) plan.Step {
	return plan.Step{
		ID:          id,
		Title:       id,
		PathHint:    id + ".txt",
		Instruction: "Generate the " + id + " component.",
		DependsOn:   deps,
		Schema: schema.Schema{
			Name: id,
			Sections: []schema.Section{
				{Name: id + " content", Markers: []string{"[[" + id + "]]"}},
			},
		},
	}
}

func testPlan(t *testing.T, steps ...plan.Step) *plan.Plan {
	t.Helper()
	p, err := plan.NewPlan(steps)
	require.NoError(t, err)
	return p
}

// validFor returns a response accepted by the step whose instruction req
// carries.
func validFor(req backend.Request) string {
	fields := strings.Fields(req.Instruction)
	// "Generate the <id> component."
	return "[[" + fields[2] + "]] generated content"
}

func newTestEngine(p *plan.Plan, gen backend.Generator, cfg Config) *Engine {
	e := New(p, gen, testParams(), "system context", cfg, discard())
	e.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return e
}

func TestRunAllStepsAccepted(t *testing.T) {
	p := testPlan(t, testStep("layout"), testStep("header"), testStep("hero"))
	gen := &backend.ScriptedGenerator{Respond: func(req backend.Request) (string, error) {
		return validFor(req), nil
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 3})

	rep := e.Run(context.Background())

	assert.True(t, rep.Succeeded())
	assert.Equal(t, report.OutcomeAccepted, rep.Outcome)
	assert.Equal(t, 3, rep.Accepted)
	assert.Equal(t, 3, rep.TotalAttempts, "every step should be accepted on the first attempt")

	require.Len(t, rep.Steps, 3)
	for i, id := range []string{"layout", "header", "hero"} {
		assert.Equal(t, id, rep.Steps[i].StepID)
		assert.Equal(t, report.OutcomeAccepted, rep.Steps[i].Outcome)
		assert.Len(t, rep.Steps[i].Attempts, 1)
	}

	entries := e.Memory().Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "layout", entries[0].StepID)
	assert.Equal(t, "hero", entries[2].StepID)
}

func TestRunCorrectiveRetryAfterValidationFailure(t *testing.T) {
	hero := plan.Step{
		ID:          "hero",
		Title:       "Hero section",
		PathHint:    "components/Hero.tsx",
		Instruction: "Generate the hero section.",
		Schema: schema.Schema{
			Name:     "hero",
			Sections: []schema.Section{{Name: "headline", Markers: []string{"<h1"}}},
		},
	}
	p := testPlan(t, hero)
	gen := &backend.ScriptedGenerator{Script: []backend.Reply{
		{Response: "<div>no headline here</div>"},
		{Response: "<h1>CloudSync</h1>"},
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 3})

	rep := e.Run(context.Background())

	assert.True(t, rep.Succeeded())
	require.Len(t, rep.Steps, 1)
	require.Len(t, rep.Steps[0].Attempts, 2)
	assert.Equal(t, []string{"missing headline"}, rep.Steps[0].Attempts[0].Violations)

	reqs := gen.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "Generate the hero section.", reqs[0].Instruction)
	assert.Contains(t, reqs[1].Instruction, "Generate the hero section.",
		"the corrective instruction must carry the original instruction")
	assert.Contains(t, reqs[1].Instruction, "missing headline",
		"the corrective instruction must repeat the violation verbatim")

	// Only the accepted exchange enters memory.
	entries := e.Memory().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "<h1>CloudSync</h1>", entries[0].Response)
	assert.Contains(t, entries[0].Instruction, "missing headline")
}

func TestRunAttemptBoundExhausted(t *testing.T) {
	p := testPlan(t, testStep("hero"))
	calls := 0
	gen := &backend.ScriptedGenerator{Respond: func(req backend.Request) (string, error) {
		calls++
		return "never valid", nil
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 2})

	rep := e.Run(context.Background())

	assert.False(t, rep.Succeeded())
	assert.Equal(t, report.OutcomeFailed, rep.Outcome)
	assert.Equal(t, 2, calls, "an attempt bound of 2 means exactly 2 attempts")

	require.Len(t, rep.Steps, 1)
	st := rep.Steps[0]
	assert.Equal(t, report.OutcomeFailed, st.Outcome)
	require.Len(t, st.Attempts, 2)
	assert.Equal(t, []string{"missing hero content"}, st.Violations)
	assert.Contains(t, st.Error, "2 attempts")

	assert.Zero(t, e.Memory().Len(), "rejected exchanges never enter memory")
}

func TestRunRepeatedIdenticalViolationsConsumeAttempts(t *testing.T) {
	p := testPlan(t, testStep("hero"))
	gen := &backend.ScriptedGenerator{Respond: func(req backend.Request) (string, error) {
		return "same bad answer", nil
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 3})

	rep := e.Run(context.Background())

	require.Len(t, rep.Steps, 1)
	require.Len(t, rep.Steps[0].Attempts, 3)
	for _, a := range rep.Steps[0].Attempts {
		assert.Equal(t, []string{"missing hero content"}, a.Violations)
	}
}

func TestRunNonRetryableProviderError(t *testing.T) {
	p := testPlan(t, testStep("hero"))
	gen := &backend.ScriptedGenerator{Script: []backend.Reply{
		{Err: &backend.ProviderError{Provider: "anthropic", StatusCode: 401, Retryable: false, Detail: "bad key"}},
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 3})

	rep := e.Run(context.Background())

	assert.False(t, rep.Succeeded())
	require.Len(t, rep.Steps, 1)
	st := rep.Steps[0]
	assert.Equal(t, report.OutcomeFailed, st.Outcome)
	require.Len(t, st.Attempts, 1, "non-retryable errors must not consume further attempts")
	assert.Contains(t, st.Error, "bad key")
	assert.Len(t, gen.Requests(), 1)
}

func TestRunRetryableProviderErrorBacksOff(t *testing.T) {
	p := testPlan(t, testStep("hero"))
	rateLimited := &backend.ProviderError{Provider: "anthropic", StatusCode: 429, Retryable: true, Detail: "rate limited"}
	gen := &backend.ScriptedGenerator{Script: []backend.Reply{
		{Err: rateLimited},
		{Err: rateLimited},
		{Err: rateLimited},
		{Response: "[[hero]] finally"},
	}}
	e := newTestEngine(p, gen, Config{
		MaxAttempts:    4,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     5 * time.Second,
	})

	var delays []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	rep := e.Run(context.Background())

	assert.True(t, rep.Succeeded())
	require.Len(t, rep.Steps, 1)
	assert.Len(t, rep.Steps[0].Attempts, 4)

	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 5 * time.Second}, delays,
		"backoff doubles from the initial delay and is capped")

	reqs := gen.Requests()
	require.Len(t, reqs, 4)
	for _, r := range reqs {
		assert.Equal(t, reqs[0].Instruction, r.Instruction,
			"provider-error retries reuse the same instruction")
	}
}

func TestRunDependencyFailurePropagates(t *testing.T) {
	p := testPlan(t,
		testStep("hero"),
		testStep("finalcta", "hero"),
		testStep("globals"),
	)
	gen := &backend.ScriptedGenerator{Respond: func(req backend.Request) (string, error) {
		if strings.Contains(req.Instruction, "hero") {
			return "never valid", nil
		}
		return validFor(req), nil
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 1})

	rep := e.Run(context.Background())

	assert.False(t, rep.Succeeded())
	require.Len(t, rep.Steps, 3)

	hero, finalcta, globals := rep.Steps[0], rep.Steps[1], rep.Steps[2]
	assert.Equal(t, report.OutcomeFailed, hero.Outcome)

	assert.Equal(t, report.OutcomeFailed, finalcta.Outcome)
	assert.Empty(t, finalcta.Attempts, "a step with a failed dependency makes no attempts")
	assert.Contains(t, finalcta.Error, `dependency "hero"`)

	assert.Equal(t, report.OutcomeAccepted, globals.Outcome,
		"steps not depending on the failed one still run")
}

func TestRunDependencyArtifactFlowsIntoInstruction(t *testing.T) {
	finalcta := plan.Step{
		ID:          "finalcta",
		Title:       "finalcta",
		PathHint:    "finalcta.txt",
		Instruction: `Echo the hero: {{index .Deps "hero"}}`,
		DependsOn:   []string{"hero"},
		Schema: schema.Schema{
			Name:     "finalcta",
			Sections: []schema.Section{{Name: "finalcta content", Markers: []string{"[[finalcta]]"}}},
		},
	}
	p := testPlan(t, testStep("hero"), finalcta)
	gen := &backend.ScriptedGenerator{Script: []backend.Reply{
		{Response: "[[hero]] the hero artifact"},
		{Response: "[[finalcta]] echo"},
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 1})

	rep := e.Run(context.Background())
	assert.True(t, rep.Succeeded())

	reqs := gen.Requests()
	require.Len(t, reqs, 2)
	assert.Contains(t, reqs[1].Instruction, "[[hero]] the hero artifact")
}

func TestRunCancellationBetweenSteps(t *testing.T) {
	p := testPlan(t, testStep("layout"), testStep("header"), testStep("hero"))
	ctx, cancel := context.WithCancel(context.Background())

	gen := &backend.ScriptedGenerator{Respond: func(req backend.Request) (string, error) {
		// Cancel while the first request is in flight; it still completes.
		cancel()
		return validFor(req), nil
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 3, Concurrency: 1})

	rep := e.Run(ctx)

	assert.Equal(t, report.OutcomeCancelled, rep.Outcome)
	require.Len(t, rep.Steps, 3, "the partial report covers every step")

	assert.Equal(t, report.OutcomeAccepted, rep.Steps[0].Outcome,
		"the in-flight step completes and commits")
	assert.Equal(t, report.OutcomeCancelled, rep.Steps[1].Outcome)
	assert.Equal(t, report.OutcomeCancelled, rep.Steps[2].Outcome)
	assert.Empty(t, rep.Steps[1].Attempts)

	assert.Len(t, gen.Requests(), 1)
	assert.Equal(t, 1, e.Memory().Len())
}

func TestRunCancellationAbortsInFlightRequest(t *testing.T) {
	p := testPlan(t, testStep("layout"), testStep("header"))
	ctx, cancel := context.WithCancel(context.Background())

	// A real transport surfaces cancellation as a non-retryable provider
	// error from the aborted request.
	gen := &backend.ScriptedGenerator{Respond: func(req backend.Request) (string, error) {
		cancel()
		return "", &backend.ProviderError{
			Provider:  "scripted",
			Retryable: false,
			Detail:    context.Canceled.Error(),
			Err:       context.Canceled,
		}
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 3, Concurrency: 1})

	rep := e.Run(ctx)

	assert.Equal(t, report.OutcomeCancelled, rep.Outcome)
	require.Len(t, rep.Steps, 2)
	assert.Equal(t, report.OutcomeCancelled, rep.Steps[0].Outcome,
		"an aborted request is an interrupted step, not a failed one")
	assert.Equal(t, report.OutcomeCancelled, rep.Steps[1].Outcome)
	require.Len(t, rep.Steps[0].Attempts, 1)

	assert.Len(t, gen.Requests(), 1)
	assert.Equal(t, 0, e.Memory().Len())
}

func TestRunMemoryWindowBoundsHistory(t *testing.T) {
	p := testPlan(t, testStep("a"), testStep("b"), testStep("c"))
	gen := &backend.ScriptedGenerator{Respond: func(req backend.Request) (string, error) {
		return validFor(req), nil
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 1, MemoryWindow: 1})

	rep := e.Run(context.Background())
	require.True(t, rep.Succeeded())

	reqs := gen.Requests()
	require.Len(t, reqs, 3)
	assert.Empty(t, reqs[0].History)
	require.Len(t, reqs[1].History, 1)
	require.Len(t, reqs[2].History, 1, "history is bounded by the memory window")
	assert.Equal(t, "[[b]] generated content", reqs[2].History[0].Response,
		"the window keeps the most recent accepted exchange")
}

func TestRunSequentialHistoryAccumulates(t *testing.T) {
	p := testPlan(t, testStep("a"), testStep("b"), testStep("c"))
	gen := &backend.ScriptedGenerator{Respond: func(req backend.Request) (string, error) {
		return validFor(req), nil
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 1})

	rep := e.Run(context.Background())
	require.True(t, rep.Succeeded())

	reqs := gen.Requests()
	require.Len(t, reqs, 3)
	require.Len(t, reqs[2].History, 2)
	assert.Equal(t, "[[a]] generated content", reqs[2].History[0].Response)
	assert.Equal(t, "[[b]] generated content", reqs[2].History[1].Response)
	assert.Equal(t, "system context", reqs[2].System)
}

func TestRunConcurrentCommitsStayInPlanOrder(t *testing.T) {
	p := testPlan(t, testStep("a"), testStep("b"), testStep("c"))

	// Later steps answer faster, so completion order is the reverse of plan
	// order.
	gen := &backend.ScriptedGenerator{Respond: func(req backend.Request) (string, error) {
		switch {
		case strings.Contains(req.Instruction, "the a "):
			time.Sleep(60 * time.Millisecond)
		case strings.Contains(req.Instruction, "the b "):
			time.Sleep(30 * time.Millisecond)
		}
		return validFor(req), nil
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 1, Concurrency: 3})

	rep := e.Run(context.Background())
	require.True(t, rep.Succeeded())

	require.Len(t, rep.Steps, 3)
	assert.Equal(t, "a", rep.Steps[0].StepID)
	assert.Equal(t, "b", rep.Steps[1].StepID)
	assert.Equal(t, "c", rep.Steps[2].StepID)

	entries := e.Memory().Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].StepID)
	assert.Equal(t, "b", entries[1].StepID)
	assert.Equal(t, "c", entries[2].StepID)
}

func TestRunCheckpointReceivesEveryCommit(t *testing.T) {
	p := testPlan(t, testStep("a"), testStep("b"))
	gen := &backend.ScriptedGenerator{Respond: func(req backend.Request) (string, error) {
		return validFor(req), nil
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 1})

	var mu sync.Mutex
	var seen []string
	e.Checkpoint = func(res StepResult) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, res.Step.ID)
		return nil
	}

	rep := e.Run(context.Background())
	require.True(t, rep.Succeeded())
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestRunCheckpointErrorStopsRun(t *testing.T) {
	p := testPlan(t, testStep("a"), testStep("b"), testStep("c"))
	gen := &backend.ScriptedGenerator{Respond: func(req backend.Request) (string, error) {
		return validFor(req), nil
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 1})
	e.Checkpoint = func(res StepResult) error {
		if res.Step.ID == "a" {
			return errors.New("disk full")
		}
		return nil
	}

	rep := e.Run(context.Background())

	assert.Equal(t, report.OutcomeCancelled, rep.Outcome)
	require.Len(t, rep.Steps, 3)
	assert.Equal(t, report.OutcomeAccepted, rep.Steps[0].Outcome)
	assert.Equal(t, report.OutcomeCancelled, rep.Steps[1].Outcome)
	assert.Equal(t, report.OutcomeCancelled, rep.Steps[2].Outcome)
	assert.Contains(t, rep.Steps[1].Error, "disk full")
}

func TestRunProgressEvents(t *testing.T) {
	p := testPlan(t, testStep("hero"))
	gen := &backend.ScriptedGenerator{Script: []backend.Reply{
		{Response: "not valid"},
		{Response: "[[hero]] ok"},
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 3})

	var mu sync.Mutex
	var states []State
	e.Progress = func(ev ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, ev.State)
	}

	rep := e.Run(context.Background())
	require.True(t, rep.Succeeded())

	assert.Equal(t, []State{StateAttempting, StateRetrying, StateAttempting, StateAccepted}, states)
}

func TestRunValidationReferences(t *testing.T) {
	hero := plan.Step{
		ID:          "hero",
		Title:       "hero",
		PathHint:    "hero.txt",
		Instruction: "Generate the hero section for {{.Params.ProductName}}.",
		Schema: schema.Schema{
			Name:       "hero",
			References: []schema.Reference{{Name: plan.RefProductName}},
		},
	}
	p := testPlan(t, hero)
	gen := &backend.ScriptedGenerator{Script: []backend.Reply{
		{Response: "a headline that never names the product"},
		{Response: "a headline naming CloudSync"},
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 3})

	rep := e.Run(context.Background())

	assert.True(t, rep.Succeeded())
	require.Len(t, rep.Steps, 1)
	require.Len(t, rep.Steps[0].Attempts, 2)
	assert.Contains(t, rep.Steps[0].Attempts[0].Violations[0], "product name")
}

func TestRunEmptyResponseIsViolation(t *testing.T) {
	p := testPlan(t, testStep("hero"))
	gen := &backend.ScriptedGenerator{Script: []backend.Reply{
		{Response: "   "},
		{Response: "[[hero]] ok"},
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 3})

	rep := e.Run(context.Background())

	assert.True(t, rep.Succeeded())
	require.Len(t, rep.Steps, 1)
	require.Len(t, rep.Steps[0].Attempts, 2)
	assert.Contains(t, rep.Steps[0].Attempts[0].Violations[0], "empty")
}

func TestCorrectiveInstruction(t *testing.T) {
	instr := correctiveInstruction("Generate the hero.", []string{"missing headline", "too short: 5 bytes, need at least 200"})

	assert.True(t, strings.HasPrefix(instr, "Generate the hero."))
	assert.Contains(t, instr, "- missing headline\n")
	assert.Contains(t, instr, "- too short: 5 bytes, need at least 200\n")
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "skips blanks", in: "\n\n  first real line\nsecond", want: "first real line"},
		{name: "empty input", in: "   \n\t", want: ""},
		{name: "long line truncated", in: strings.Repeat("x", 200), want: strings.Repeat("x", 80)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstLine(tt.in))
		})
	}
}

func TestRunStepResultDurations(t *testing.T) {
	p := testPlan(t, testStep("hero"))
	gen := &backend.ScriptedGenerator{Respond: func(req backend.Request) (string, error) {
		return validFor(req), nil
	}}
	e := newTestEngine(p, gen, Config{MaxAttempts: 1})

	rep := e.Run(context.Background())
	require.True(t, rep.Succeeded())
	assert.GreaterOrEqual(t, rep.Elapsed, time.Duration(0))
	assert.Equal(t, 1, rep.TotalAttempts)
	_ = fmt.Sprintf("%v", rep.Steps[0].Duration)
}
