package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"landgen/internal/plan"
)

func newPlanCommand(app *App) *cobra.Command {
	var planFile string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the generation plan without calling any provider",
		Long: `Print the step plan as YAML: step order, output paths, dependencies and
validation schemas. Useful as a starting point for a custom --plan-file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pl := plan.DefaultPlan()
			if planFile != "" {
				var err error
				if pl, err = plan.LoadFile(planFile); err != nil {
					return err
				}
			}

			out := struct {
				Steps []plan.Step `yaml:"steps"`
			}{Steps: pl.Steps()}

			data, err := yaml.Marshal(out)
			if err != nil {
				return fmt.Errorf("failed to encode plan: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&planFile, "plan-file", "", "print a custom plan manifest instead of the built-in plan")
	return cmd
}
