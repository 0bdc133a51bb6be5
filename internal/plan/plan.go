// Package plan defines the static ordered generation plan a run executes.
//
// A plan is a fixed list of steps, one per structural element of the output
// project. Each step carries an instruction template (parameterized by the
// project parameters and by outputs of earlier steps it depends on) and a
// validation schema. Dependencies must point at earlier steps only, so the
// declared order is always a valid topological order; this is asserted once
// at construction and never recomputed during a run.
//
// Key types:
//   - [Step]: one pipeline stage
//   - [Plan]: the validated, immutable step list
//   - [ConstructionError]: a defect detected before any generation begins
//   - [LoadFile]: plan loading from a YAML manifest
package plan

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	"landgen/internal/params"
	"landgen/internal/schema"
)

// ErrInvalidPlan is the sentinel all [ConstructionError] values unwrap to.
// A plan that fails construction is fatal to the whole run; no generation
// is attempted.
var ErrInvalidPlan = errors.New("invalid component plan")

// ConstructionError describes a structural defect in a plan definition:
// a cycle-inducing forward dependency, a duplicate or missing identifier,
// an instruction template that does not parse, or a missing schema.
type ConstructionError struct {
	StepID string
	Reason string
}

func (e *ConstructionError) Error() string {
	if e.StepID == "" {
		return fmt.Sprintf("invalid component plan: %s", e.Reason)
	}
	return fmt.Sprintf("invalid component plan: step %q: %s", e.StepID, e.Reason)
}

func (e *ConstructionError) Unwrap() error {
	return ErrInvalidPlan
}

// Step describes one pipeline stage.
type Step struct {
	// ID uniquely identifies the step within the plan.
	ID string `yaml:"id"`

	// Title is the human-readable step name used in progress output.
	Title string `yaml:"title"`

	// PathHint is the relative output path the accepted artifact is written
	// to by the file writer.
	PathHint string `yaml:"path"`

	// Instruction is a text/template source executed against
	// [TemplateData] to produce the generation instruction.
	Instruction string `yaml:"instruction"`

	// DependsOn lists IDs of earlier steps whose accepted artifacts are
	// interpolated into this step's instruction.
	DependsOn []string `yaml:"depends_on,omitempty"`

	// Schema is the validation schema applied to this step's artifacts.
	Schema schema.Schema `yaml:"schema"`
}

// TemplateData is the data instruction templates are executed against.
type TemplateData struct {
	// Params are the immutable project parameters.
	Params params.Parameters

	// Deps maps dependency step IDs to their accepted artifacts.
	Deps map[string]string
}

// Plan is a validated, immutable ordered list of steps.
//
// Construct with [NewPlan] or [LoadFile]; the zero value is not usable.
type Plan struct {
	steps     []Step
	index     map[string]int
	templates map[string]*template.Template
}

// NewPlan validates the step list and compiles its instruction templates.
//
// Validation asserts, once, everything the engine relies on later: IDs are
// unique and non-empty, every dependency names an earlier step (which also
// guarantees the dependency graph is a DAG and the declared order a valid
// topological order), every schema is named, and every instruction template
// parses. Any defect is returned as a [ConstructionError].
func NewPlan(steps []Step) (*Plan, error) {
	if len(steps) == 0 {
		return nil, &ConstructionError{Reason: "plan has no steps"}
	}

	p := &Plan{
		steps:     make([]Step, len(steps)),
		index:     make(map[string]int, len(steps)),
		templates: make(map[string]*template.Template, len(steps)),
	}
	copy(p.steps, steps)

	for i, st := range p.steps {
		if strings.TrimSpace(st.ID) == "" {
			return nil, &ConstructionError{Reason: fmt.Sprintf("step at position %d has no id", i)}
		}
		if _, dup := p.index[st.ID]; dup {
			return nil, &ConstructionError{StepID: st.ID, Reason: "duplicate step id"}
		}
		p.index[st.ID] = i
	}

	for i, st := range p.steps {
		for _, dep := range st.DependsOn {
			j, ok := p.index[dep]
			if !ok {
				return nil, &ConstructionError{StepID: st.ID, Reason: fmt.Sprintf("depends on undefined step %q", dep)}
			}
			if j >= i {
				return nil, &ConstructionError{StepID: st.ID, Reason: fmt.Sprintf("depends on step %q which does not precede it", dep)}
			}
		}
		if strings.TrimSpace(st.Schema.Name) == "" {
			return nil, &ConstructionError{StepID: st.ID, Reason: "step references no validation schema"}
		}
		if strings.TrimSpace(st.Instruction) == "" {
			return nil, &ConstructionError{StepID: st.ID, Reason: "step has no instruction template"}
		}
		tmpl, err := template.New(st.ID).Parse(st.Instruction)
		if err != nil {
			return nil, &ConstructionError{StepID: st.ID, Reason: fmt.Sprintf("instruction template does not parse: %v", err)}
		}
		p.templates[st.ID] = tmpl
	}

	return p, nil
}

// Len returns the number of steps.
func (p *Plan) Len() int {
	return len(p.steps)
}

// Steps returns a copy of the ordered step list.
func (p *Plan) Steps() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// Step returns the step with the given ID.
func (p *Plan) Step(id string) (Step, bool) {
	i, ok := p.index[id]
	if !ok {
		return Step{}, false
	}
	return p.steps[i], true
}

// Instruction renders the instruction for a step from the project
// parameters and the accepted artifacts of its dependencies.
func (p *Plan) Instruction(id string, data TemplateData) (string, error) {
	tmpl, ok := p.templates[id]
	if !ok {
		return "", fmt.Errorf("unknown step: %s", id)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render instruction for step %s: %w", id, err)
	}
	return sb.String(), nil
}
