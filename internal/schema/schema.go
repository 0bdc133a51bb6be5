// Package schema provides structural validation of generated artifacts.
//
// A [Schema] enumerates the constraints one generated component must
// satisfy: required named sections, length bounds, and cross-references
// that must resolve to content supplied by the project parameters or by
// dependency steps. [Validate] is a pure function: the same artifact and
// schema always produce the same [Result], and violation details are
// written so they can be repeated verbatim inside a corrective follow-up
// instruction.
//
// Key types:
//   - [Schema]: the typed validation record for one component
//   - [Section]: a required named sub-element with its marker substrings
//   - [Reference]: a cross-reference resolved through a value map
//   - [Result] and [Violation]: the validation outcome
package schema

import (
	"fmt"
	"strings"
)

// Violation codes produced by [Validate].
const (
	CodeEmpty            = "empty"
	CodeTooShort         = "too-short"
	CodeTooLong          = "too-long"
	CodeMissingSection   = "missing-section"
	CodeMissingReference = "missing-reference"
	CodeUnresolvedRef    = "unresolved-reference"
)

// Section is a required named sub-element of an artifact.
//
// The section is considered present when any one of its marker substrings
// occurs in the artifact text. An empty marker list means the section name
// itself is the marker.
type Section struct {
	Name    string   `yaml:"name"`
	Markers []string `yaml:"markers,omitempty"`
}

// Reference is a cross-reference the artifact must contain.
//
// Name keys into the resolver map passed to [Validate]; the resolved value
// is the substring that must appear in the artifact. Typical names are
// "product name" (resolved from project parameters) or a dependency step
// ID (resolved to an excerpt of that step's accepted artifact).
type Reference struct {
	Name string `yaml:"name"`
}

// Schema is the typed validation record for one component.
type Schema struct {
	// Name identifies the schema in errors and reports.
	Name string `yaml:"name"`

	// MinLength and MaxLength bound the artifact size in bytes.
	// Zero disables the corresponding bound.
	MinLength int `yaml:"min_length,omitempty"`
	MaxLength int `yaml:"max_length,omitempty"`

	// Sections lists the required named sub-elements.
	Sections []Section `yaml:"sections,omitempty"`

	// References lists cross-references that must resolve and appear.
	References []Reference `yaml:"references,omitempty"`
}

// Violation names one specific reason an artifact failed validation.
//
// Detail is phrased so it can be embedded verbatim in a corrective
// instruction ("missing headline", "too short: 12 bytes, need at least
// 200").
type Violation struct {
	Code   string
	Detail string
}

func (v Violation) String() string {
	return v.Detail
}

// Result is the outcome of validating one artifact against one schema.
// An empty violation list means the artifact is valid.
type Result struct {
	Violations []Violation
}

// Valid reports whether the artifact satisfied every constraint.
func (r Result) Valid() bool {
	return len(r.Violations) == 0
}

// Validate checks an artifact against a schema.
//
// The refs map resolves [Reference] names to required substrings. Validate
// is pure and deterministic: no I/O, no clock, no randomness. Violations
// are reported in a fixed order: emptiness, length bounds, sections in
// declaration order, references in declaration order.
func Validate(artifact string, s Schema, refs map[string]string) Result {
	var violations []Violation

	trimmed := strings.TrimSpace(artifact)
	if trimmed == "" {
		violations = append(violations, Violation{
			Code:   CodeEmpty,
			Detail: fmt.Sprintf("empty %s artifact", s.Name),
		})
		return Result{Violations: violations}
	}

	if s.MinLength > 0 && len(trimmed) < s.MinLength {
		violations = append(violations, Violation{
			Code:   CodeTooShort,
			Detail: fmt.Sprintf("too short: %d bytes, need at least %d", len(trimmed), s.MinLength),
		})
	}
	if s.MaxLength > 0 && len(trimmed) > s.MaxLength {
		violations = append(violations, Violation{
			Code:   CodeTooLong,
			Detail: fmt.Sprintf("too long: %d bytes, limit is %d", len(trimmed), s.MaxLength),
		})
	}

	for _, sec := range s.Sections {
		if !sectionPresent(trimmed, sec) {
			violations = append(violations, Violation{
				Code:   CodeMissingSection,
				Detail: "missing " + sec.Name,
			})
		}
	}

	for _, ref := range s.References {
		want, ok := refs[ref.Name]
		if !ok || strings.TrimSpace(want) == "" {
			violations = append(violations, Violation{
				Code:   CodeUnresolvedRef,
				Detail: fmt.Sprintf("reference %q did not resolve to any content", ref.Name),
			})
			continue
		}
		if !strings.Contains(trimmed, want) {
			violations = append(violations, Violation{
				Code:   CodeMissingReference,
				Detail: fmt.Sprintf("missing reference to %s (%q)", ref.Name, want),
			})
		}
	}

	return Result{Violations: violations}
}

func sectionPresent(artifact string, sec Section) bool {
	markers := sec.Markers
	if len(markers) == 0 {
		markers = []string{sec.Name}
	}
	for _, m := range markers {
		if m != "" && strings.Contains(artifact, m) {
			return true
		}
	}
	return false
}
