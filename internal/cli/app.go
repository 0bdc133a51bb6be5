// Package cli implements the landgen command-line interface.
//
// The CLI wires the configuration, guidance, plan, backend and engine
// packages into two commands: "generate", which runs a full generation, and
// "plan", which prints the step plan without calling any provider.
//
// Key types:
//   - [App] holds the injectable dependencies of every command
//   - [ExecuteResult] carries the exit code out of [App.Run]
//   - [ExitError] lets commands signal exit codes without os.Exit
//
// Commands never call os.Exit themselves; they return an [ExitError] that
// [Execute] turns into the process exit code. Tests drive [App.Run] with a
// scripted backend and assert on the result.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"landgen/internal/backend"
	"landgen/internal/config"
)

// App holds the dependencies shared by all commands.
//
// Every field has a production default set by [NewApp]; tests replace the
// ones they need (typically NewGenerator and the output writers).
type App struct {
	// Stdout and Stderr are where commands write their output.
	Stdout io.Writer
	Stderr io.Writer

	// Logger receives structured diagnostics. Verbosity is controlled by
	// the --verbose flag.
	Logger *slog.Logger

	// LoadConfig loads the configuration, honoring an optional explicit
	// config file path.
	LoadConfig func(path string) (*config.Config, error)

	// NewGenerator builds the model backend for a provider configuration.
	// Tests substitute a [backend.ScriptedGenerator].
	NewGenerator func(pc config.ProviderConfig) (backend.Generator, error)

	// Interactive reports whether prompting for missing parameters is
	// allowed. Disabled by --non-interactive and when stdin is not a TTY.
	Interactive bool
}

// ExecuteResult is the outcome of one CLI invocation.
type ExecuteResult struct {
	ExitCode int
	Err      error
}

// NewApp creates an [App] with production defaults.
func NewApp() *App {
	return &App{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		})),
		LoadConfig: func(path string) (*config.Config, error) {
			loader := config.NewLoader()
			if path != "" {
				return loader.LoadFromFile(path)
			}
			return loader.Load()
		},
		NewGenerator: newProviderGenerator,
		Interactive:  isatty.IsTerminal(os.Stdin.Fd()),
	}
}

// Execute runs the CLI and exits the process with the resulting code.
//
// SIGINT and SIGTERM cancel the run context; the engine finishes in-flight
// steps and finalizes a partial report before Execute returns.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp()
	res := app.Run(ctx, os.Args[1:])
	if res.Err != nil {
		if _, isExit := IsExitError(res.Err); !isExit {
			fmt.Fprintf(os.Stderr, "Error: %v\n", res.Err)
		}
	}
	stop()
	os.Exit(res.ExitCode)
}

// Run executes the CLI against args and returns the exit code instead of
// terminating the process.
func (app *App) Run(ctx context.Context, args []string) ExecuteResult {
	root := newRootCommand(app)
	root.SetArgs(args)
	root.SetOut(app.Stdout)
	root.SetErr(app.Stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if code, ok := IsExitError(err); ok {
			return ExecuteResult{ExitCode: code, Err: err}
		}
		return ExecuteResult{ExitCode: 1, Err: err}
	}
	return ExecuteResult{}
}

func newRootCommand(app *App) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "landgen",
		Short: "Generate a complete landing-page project with a model backend",
		Long: `landgen drives a generative model through a fixed plan of components,
validates every artifact against its schema, retries with corrective
instructions when validation fails, and assembles the accepted artifacts
into a complete Next.js landing-page project.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				app.Logger = slog.New(slog.NewTextHandler(app.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				}))
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newGenerateCommand(app))
	root.AddCommand(newPlanCommand(app))
	return root
}

// newProviderGenerator builds the real backend for a provider config.
// Credentials come from the provider-standard environment variables.
func newProviderGenerator(pc config.ProviderConfig) (backend.Generator, error) {
	switch pc.Name {
	case "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		return backend.NewAnthropicGenerator(key, pc.Model), nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return backend.NewOpenAIGenerator(key, pc.Model, pc.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", pc.Name)
	}
}
