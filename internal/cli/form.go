package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"landgen/internal/params"
)

// runParamsForm collects missing project parameters interactively.
// Already-populated fields are pre-filled so the user only completes what
// the flags left out.
func runParamsForm(p *params.Parameters) error {
	featuresCSV := strings.Join(p.Features, ", ")
	if p.BrandColor == "" {
		p.BrandColor = params.RecognizedColors[0]
	}

	required := func(field string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", field)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Description("Output directory name").
				Placeholder("my-landing-page").
				Value(&p.ProjectName),
			huh.NewInput().
				Title("Product name").
				Description("The product or service being promoted").
				Validate(required("product name")).
				Value(&p.ProductName),
			huh.NewText().
				Title("Description").
				Description("What does the product do?").
				Validate(required("description")).
				Value(&p.Description),
			huh.NewInput().
				Title("Target audience").
				Placeholder("general audience").
				Value(&p.TargetAudience),
			huh.NewInput().
				Title("Key features").
				Description("Comma-separated, at least one").
				Validate(required("at least one feature")).
				Value(&featuresCSV),
			huh.NewSelect[string]().
				Title("Brand color").
				Options(huh.NewOptions(params.RecognizedColors...)...).
				Value(&p.BrandColor),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("parameter form aborted: %w", err)
	}

	p.Features = splitCSV(featuresCSV)
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
