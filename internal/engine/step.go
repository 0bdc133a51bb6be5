package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"landgen/internal/backend"
	"landgen/internal/plan"
	"landgen/internal/schema"
)

// depExcerptLimit bounds how much of a dependency artifact is interpolated
// into a dependent step's instruction.
const depExcerptLimit = 4000

// compose renders a step's instruction from the project parameters and the
// accepted artifacts of its dependencies, and resolves the reference values
// its schema validates against.
func (e *Engine) compose(st plan.Step, artifacts map[string]string) (string, map[string]string, error) {
	deps := make(map[string]string, len(st.DependsOn))
	for _, dep := range st.DependsOn {
		deps[dep] = truncate(artifacts[dep], depExcerptLimit)
	}
	instr, err := e.plan.Instruction(st.ID, plan.TemplateData{Params: e.params, Deps: deps})
	if err != nil {
		return "", nil, err
	}

	refs := map[string]string{
		plan.RefProductName: e.params.ProductName,
	}
	if len(e.params.Features) > 0 {
		refs[plan.RefFirstFeature] = e.params.Features[0]
	}
	for _, dep := range st.DependsOn {
		refs[dep] = firstLine(artifacts[dep])
	}
	return instr, refs, nil
}

// runStep drives one step to a terminal state.
//
// The attempt loop distinguishes three rejection modes:
//   - validation failure: retry immediately with a corrective instruction
//     listing the violations verbatim
//   - retryable provider error: retry the same instruction after an
//     exponentially growing delay
//   - non-retryable provider error: fail without consuming the remaining
//     attempts
//
// Cancellation is observed between attempts; an in-flight request is allowed
// to finish, and one the transport aborted because the run context was
// cancelled resolves Cancelled rather than Failed.
func (e *Engine) runStep(ctx context.Context, st plan.Step, instruction string, refs map[string]string) StepResult {
	start := time.Now()
	res := StepResult{Step: st, State: StateFailed}
	instr := instruction
	delay := e.cfg.InitialBackoff
	log := e.logger.With("step", st.ID)

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			res.State = StateCancelled
			res.Err = ctx.Err()
			break
		}

		e.emit(ProgressEvent{
			StepID:      st.ID,
			Title:       st.Title,
			State:       StateAttempting,
			Attempt:     attempt,
			MaxAttempts: e.cfg.MaxAttempts,
		})
		log.Info("attempting", "attempt", attempt, "max_attempts", e.cfg.MaxAttempts)

		attemptStart := time.Now()
		resp, err := e.gen.Generate(ctx, backend.Request{
			System:      e.system,
			History:     e.mem.Window(e.cfg.MemoryWindow),
			Instruction: instr,
			MaxTokens:   e.cfg.MaxTokens,
		})
		if err != nil {
			res.Attempts = append(res.Attempts, Attempt{
				Number:   attempt,
				Err:      err,
				Duration: time.Since(attemptStart),
			})
			if ctx.Err() != nil {
				// The request was aborted by run cancellation, not refused
				// by the provider.
				log.Info("cancelled during request", "attempt", attempt)
				res.State = StateCancelled
				res.Err = ctx.Err()
				break
			}
			perr, ok := backend.AsProviderError(err)
			if ok && perr.Retryable && attempt < e.cfg.MaxAttempts {
				log.Warn("provider error, backing off",
					"attempt", attempt, "delay", delay, "error", err)
				e.emit(ProgressEvent{
					StepID:      st.ID,
					Title:       st.Title,
					State:       StateRetrying,
					Attempt:     attempt,
					MaxAttempts: e.cfg.MaxAttempts,
					Err:         err,
				})
				if serr := e.sleep(ctx, delay); serr != nil {
					res.State = StateCancelled
					res.Err = serr
					res.Duration = time.Since(start)
					return res
				}
				delay = min(delay*2, e.cfg.MaxBackoff)
				continue
			}
			log.Error("provider error, giving up", "attempt", attempt, "error", err)
			res.State = StateFailed
			res.Err = err
			break
		}

		artifact := ExtractCode(resp)
		vres := schema.Validate(artifact, st.Schema, refs)
		violations := violationDetails(vres)
		res.Attempts = append(res.Attempts, Attempt{
			Number:     attempt,
			Violations: violations,
			Duration:   time.Since(attemptStart),
		})

		if vres.Valid() {
			log.Info("accepted", "attempt", attempt, "bytes", len(artifact))
			res.State = StateAccepted
			res.Response = resp
			res.Artifact = artifact
			res.Instruction = instr
			res.LastViolations = nil
			break
		}

		res.LastViolations = violations
		log.Warn("validation failed", "attempt", attempt, "violations", violations)
		if attempt < e.cfg.MaxAttempts {
			instr = correctiveInstruction(instruction, violations)
			e.emit(ProgressEvent{
				StepID:      st.ID,
				Title:       st.Title,
				State:       StateRetrying,
				Attempt:     attempt,
				MaxAttempts: e.cfg.MaxAttempts,
				Violations:  violations,
			})
			continue
		}
		res.State = StateFailed
		res.Err = fmt.Errorf("artifact rejected after %d attempts", e.cfg.MaxAttempts)
	}

	res.Duration = time.Since(start)
	return res
}

// correctiveInstruction builds the retry instruction for a validation
// failure: the original instruction plus the violations, verbatim.
func correctiveInstruction(original string, violations []string) string {
	var sb strings.Builder
	sb.WriteString(original)
	sb.WriteString("\n\nYour previous response had the following problems:\n")
	for _, v := range violations {
		sb.WriteString("- ")
		sb.WriteString(v)
		sb.WriteString("\n")
	}
	sb.WriteString("\nCorrect these problems and return the complete result again, preserving everything that was already right.")
	return sb.String()
}

func violationDetails(res schema.Result) []string {
	if len(res.Violations) == 0 {
		return nil
	}
	out := make([]string, len(res.Violations))
	for i, v := range res.Violations {
		out[i] = v.Detail
	}
	return out
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n[truncated]"
}

// firstLine returns the first non-empty line of s, shortened for use as a
// reference value.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			if len(line) > 80 {
				return line[:80]
			}
			return line
		}
	}
	return ""
}
