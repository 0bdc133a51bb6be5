// Package params defines the immutable project parameters a generation run
// is created from.
//
// Parameters are collected once at run start, either interactively or from
// a declarative JSON/YAML file, validated, and never mutated afterwards.
//
// Key types:
//   - [Parameters]: the project/product description driving every prompt
//   - [LoadFile]: declarative-file loading via Viper
package params

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// RecognizedColors is the palette of brand color tags the generator knows
// how to describe. Unrecognized values are passed through as free-form
// tokens rather than rejected.
var RecognizedColors = []string{
	"blue", "green", "red", "purple", "orange", "teal", "slate", "rose",
}

// Parameters describes the landing-page project to generate.
//
// Created once at run start and treated as read-only for the rest of the
// run.
type Parameters struct {
	// ProjectName is the output project directory name.
	ProjectName string `mapstructure:"project_name"`

	// ProductName is the product or service being promoted.
	ProductName string `mapstructure:"product_name"`

	// Description is a complete statement of what the product does.
	Description string `mapstructure:"description"`

	// TargetAudience describes who the page speaks to.
	TargetAudience string `mapstructure:"target_audience"`

	// Features is the ordered, non-empty list of key feature statements.
	Features []string `mapstructure:"features"`

	// BrandColor is a palette tag from [RecognizedColors], or a free-form
	// token passed through to the prompts.
	BrandColor string `mapstructure:"brand_color"`
}

// Normalize fills defaults and canonicalizes fields in place.
//
// The description is terminated as a complete sentence, the brand color is
// lowercased when it matches the recognized palette, and empty optional
// fields receive the stock defaults the original tool used.
func (p *Parameters) Normalize() {
	if p.ProjectName == "" {
		p.ProjectName = "my-landing-page"
	}
	if p.TargetAudience == "" {
		p.TargetAudience = "general audience"
	}
	if p.BrandColor == "" {
		p.BrandColor = "blue"
	}
	for _, c := range RecognizedColors {
		if strings.EqualFold(p.BrandColor, c) {
			p.BrandColor = c
			break
		}
	}

	p.Description = strings.TrimSpace(p.Description)
	if p.Description != "" && !strings.ContainsAny(p.Description[len(p.Description)-1:], ".!?") {
		p.Description += "."
	}

	features := p.Features[:0]
	for _, f := range p.Features {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	p.Features = features
}

// Validate reports whether the parameters can drive a run.
//
// Call [Parameters.Normalize] first; Validate does not repair anything.
func (p Parameters) Validate() error {
	if strings.TrimSpace(p.ProductName) == "" {
		return fmt.Errorf("product name is required")
	}
	if strings.TrimSpace(p.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if len(p.Features) == 0 {
		return fmt.Errorf("at least one feature is required")
	}
	return nil
}

// ColorRecognized reports whether the brand color is from the known palette.
func (p Parameters) ColorRecognized() bool {
	for _, c := range RecognizedColors {
		if p.BrandColor == c {
			return true
		}
	}
	return false
}

// LoadFile reads parameters from a declarative JSON or YAML file.
//
// The result is normalized and validated before being returned.
func LoadFile(path string) (Parameters, error) {
	v := viper.New()
	v.SetConfigFile(path)

	var p Parameters
	if err := v.ReadInConfig(); err != nil {
		return p, fmt.Errorf("failed to read parameters file: %w", err)
	}
	if err := v.Unmarshal(&p); err != nil {
		return p, fmt.Errorf("failed to parse parameters file: %w", err)
	}

	p.Normalize()
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid parameters in %s: %w", path, err)
	}
	return p, nil
}
