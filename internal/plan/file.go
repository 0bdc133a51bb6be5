package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileSpec is the YAML shape of a plan manifest file.
//
// Format:
//
//	steps:
//	  - id: hero
//	    title: Hero section
//	    path: components/Hero.tsx
//	    depends_on: [header]
//	    instruction: |
//	      Generate Hero.tsx for {{.Params.ProductName}}...
//	    schema:
//	      name: hero
//	      min_length: 300
//	      sections:
//	        - name: headline
//	          markers: ["<h1"]
//	      references:
//	        - name: product name
//
// Steps are listed in execution order; depends_on entries must name
// earlier steps. A schema without a name inherits the step id.
type fileSpec struct {
	Steps []Step `yaml:"steps"`
}

// LoadFile reads a plan manifest from a YAML file and validates it with
// [NewPlan]. This allows a run to replace the built-in [DefaultPlan] with a
// custom component sequence.
func LoadFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return Parse(data)
}

// Parse parses a plan manifest from YAML bytes.
// This is useful for testing and for embedding plan data.
func Parse(data []byte) (*Plan, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse plan file: %w", err)
	}

	for i := range spec.Steps {
		if spec.Steps[i].Schema.Name == "" {
			spec.Steps[i].Schema.Name = spec.Steps[i].ID
		}
	}

	return NewPlan(spec.Steps)
}
