package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"landgen/internal/config"
	"landgen/internal/engine"
	"landgen/internal/guidance"
	"landgen/internal/params"
	"landgen/internal/plan"
	"landgen/internal/writer"
)

// generateFlags collects the flag values of the generate command.
type generateFlags struct {
	configFile  string
	paramsFile  string
	planFile    string
	guidanceDir string
	outputDir   string
	provider    string
	model       string
	maxAttempts int
	concurrency int
	noInput     bool

	projectName string
	productName string
	description string
	audience    string
	features    []string
	brandColor  string
}

func newGenerateCommand(app *App) *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a landing-page project",
		Long: `Generate a complete landing-page project.

Project parameters come from --params-file, from the parameter flags, or
from an interactive form when neither supplies them. The generated project
is written under the output directory, together with a README and the
generation report.

Exit codes: 0 when every step is accepted, 2 when the run finishes with
failed or cancelled steps, 1 on setup errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, app, &flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.configFile, "config-file", "", "explicit config file path")
	f.StringVar(&flags.paramsFile, "params-file", "", "project parameters file (JSON or YAML)")
	f.StringVar(&flags.planFile, "plan-file", "", "custom plan manifest (YAML); default is the built-in plan")
	f.StringVar(&flags.guidanceDir, "guidance-dir", "", "guidance directory (overrides config)")
	f.StringVar(&flags.outputDir, "output-dir", "", "output directory (overrides config)")
	f.StringVar(&flags.provider, "provider", "", `model provider: "anthropic" or "openai" (overrides config)`)
	f.StringVar(&flags.model, "model", "", "model identifier (overrides config)")
	f.IntVar(&flags.maxAttempts, "max-attempts", 0, "per-step attempt bound (overrides config)")
	f.IntVar(&flags.concurrency, "concurrency", 0, "concurrent step bound (overrides config)")
	f.BoolVar(&flags.noInput, "non-interactive", false, "never prompt; fail on missing parameters")

	f.StringVar(&flags.projectName, "project-name", "", "output project directory name")
	f.StringVar(&flags.productName, "product-name", "", "product or service being promoted")
	f.StringVar(&flags.description, "description", "", "what the product does")
	f.StringVar(&flags.audience, "audience", "", "target audience")
	f.StringSliceVar(&flags.features, "feature", nil, "key feature (repeatable)")
	f.StringVar(&flags.brandColor, "brand-color", "", "brand color tag")

	return cmd
}

func runGenerate(cmd *cobra.Command, app *App, flags *generateFlags) error {
	ctx := cmd.Context()

	cfg, err := app.LoadConfig(flags.configFile)
	if err != nil {
		return err
	}
	applyOverrides(cfg, flags)

	p, err := resolveParams(app, flags)
	if err != nil {
		return err
	}

	guide, err := guidance.NewLoader(cfg.Guidance.Dir, app.Logger).Load()
	if err != nil {
		return err
	}

	pl := plan.DefaultPlan()
	if flags.planFile != "" {
		if pl, err = plan.LoadFile(flags.planFile); err != nil {
			return err
		}
	}

	gen, err := app.NewGenerator(cfg.Provider)
	if err != nil {
		return err
	}

	w, err := writer.New(filepath.Join(cfg.Output.Dir, p.ProjectName), app.Logger)
	if err != nil {
		return err
	}

	r := newRenderer(app.Stdout, pl.Len())
	r.Banner(p, cfg.Provider.Name, cfg.Provider.Model)

	eng := engine.New(pl, gen, p, guide.SystemPrompt, engine.Config{
		MaxAttempts:    cfg.Engine.MaxAttempts,
		InitialBackoff: cfg.Engine.InitialBackoff,
		MaxBackoff:     cfg.Engine.MaxBackoff,
		MemoryWindow:   cfg.Engine.MemoryWindow,
		Concurrency:    cfg.Engine.Concurrency,
		MaxTokens:      cfg.Provider.MaxTokens,
	}, app.Logger)
	eng.Progress = r.Progress
	eng.Checkpoint = func(res engine.StepResult) error {
		if res.State != engine.StateAccepted {
			return nil
		}
		return w.WriteArtifact(res.Step.PathHint, res.Artifact)
	}

	rep := eng.Run(ctx)

	if err := w.WriteReadme(p); err != nil {
		return err
	}
	if err := w.WriteReport(cfg.Output.ReportName, rep); err != nil {
		return err
	}

	r.Summary(rep, w.Dir())

	if !rep.Succeeded() {
		return NewExitError(2)
	}
	return nil
}

// applyOverrides layers explicitly set flags over the loaded config.
func applyOverrides(cfg *config.Config, flags *generateFlags) {
	if flags.provider != "" {
		cfg.Provider.Name = flags.provider
		if flags.model == "" {
			cfg.Provider.Model = config.DefaultModel(flags.provider)
		}
	}
	if flags.model != "" {
		cfg.Provider.Model = flags.model
	}
	if flags.guidanceDir != "" {
		cfg.Guidance.Dir = flags.guidanceDir
	}
	if flags.outputDir != "" {
		cfg.Output.Dir = flags.outputDir
	}
	if flags.maxAttempts > 0 {
		cfg.Engine.MaxAttempts = flags.maxAttempts
	}
	if flags.concurrency > 0 {
		cfg.Engine.Concurrency = flags.concurrency
	}
}

// resolveParams assembles the project parameters from the file, the flags,
// or the interactive form, in that order of preference.
func resolveParams(app *App, flags *generateFlags) (params.Parameters, error) {
	if flags.paramsFile != "" {
		return params.LoadFile(flags.paramsFile)
	}

	p := params.Parameters{
		ProjectName:    flags.projectName,
		ProductName:    flags.productName,
		Description:    flags.description,
		TargetAudience: flags.audience,
		Features:       flags.features,
		BrandColor:     flags.brandColor,
	}
	p.Normalize()

	if err := p.Validate(); err != nil {
		if flags.noInput || !app.Interactive {
			return p, fmt.Errorf("missing parameters (%w); supply --params-file or the parameter flags", err)
		}
		if err := runParamsForm(&p); err != nil {
			return p, err
		}
		p.Normalize()
	}

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}
