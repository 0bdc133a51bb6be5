// Package config provides configuration loading and management for landgen.
//
// Configuration is loaded using Viper, supporting YAML config files and
// environment variable overrides. The package provides sensible defaults that
// work out of the box, with the ability to customize the provider backend,
// the retry policy, and output locations.
//
// Key types:
//   - [Config] is the root configuration container with all settings
//   - [Loader] handles Viper-based configuration loading
//   - [ProviderConfig] selects and parameterizes the model backend
//   - [EngineConfig] contains the retry and concurrency knobs
//
// Configuration priority (highest to lowest):
//  1. Environment variables (LANDGEN_ prefix)
//  2. Config file specified by LANDGEN_CONFIG_PATH
//  3. User config directory (platform-standard):
//     - Linux: ~/.config/landgen/landgen.yaml
//     - macOS: ~/Library/Application Support/landgen/landgen.yaml
//     - Windows: %APPDATA%\landgen\landgen.yaml
//  4. ./landgen.yaml
//  5. [DefaultConfig] defaults
//
// Provider credentials are deliberately not configuration: API keys are read
// from the provider-standard environment variables (ANTHROPIC_API_KEY,
// OPENAI_API_KEY) when the backend is constructed.
package config

import "time"

// Config represents the root configuration structure.
//
// This is the main configuration container loaded by [Loader] and used
// throughout the application. Use [DefaultConfig] to get sensible defaults.
type Config struct {
	// Provider selects and parameterizes the model backend.
	Provider ProviderConfig `mapstructure:"provider"`

	// Engine contains the retry, backoff, memory and concurrency settings.
	Engine EngineConfig `mapstructure:"engine"`

	// Guidance locates the static guidance documents.
	Guidance GuidanceConfig `mapstructure:"guidance"`

	// Output controls where artifacts and the run report are written.
	Output OutputConfig `mapstructure:"output"`
}

// ProviderConfig selects the model backend.
type ProviderConfig struct {
	// Name is the backend to use: "anthropic" or "openai".
	// Can be overridden with the LANDGEN_PROVIDER environment variable.
	Name string `mapstructure:"name"`

	// Model is the provider model identifier.
	// If empty, [DefaultModel] supplies the provider's stock model.
	Model string `mapstructure:"model"`

	// BaseURL overrides the provider API endpoint, for OpenAI-compatible
	// gateways. Empty means the provider default endpoint.
	BaseURL string `mapstructure:"base_url"`

	// MaxTokens bounds the generated output length per request.
	// Default: 8000
	MaxTokens int `mapstructure:"max_tokens"`
}

// EngineConfig contains the retry and recovery controller settings.
//
// These settings govern how persistently each plan step is driven toward an
// accepted artifact before the run gives up on it.
type EngineConfig struct {
	// MaxAttempts is the per-step attempt bound. A step whose artifact never
	// validates makes exactly MaxAttempts attempts before failing.
	// Default: 3
	MaxAttempts int `mapstructure:"max_attempts"`

	// InitialBackoff is the delay before the first retry after a retryable
	// provider error. The delay doubles per retry up to MaxBackoff.
	// Validation-failure retries never wait.
	// Default: 2s
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`

	// MaxBackoff caps the exponential backoff delay.
	// Default: 60s
	MaxBackoff time.Duration `mapstructure:"max_backoff"`

	// MemoryWindow is the number of most recent accepted exchanges included
	// as conversation history in each generation request.
	// Default: 12
	MemoryWindow int `mapstructure:"memory_window"`

	// Concurrency bounds how many dependency-satisfied steps may hold an
	// in-flight backend call at once. 1 means strictly sequential execution.
	// Default: 1
	Concurrency int `mapstructure:"concurrency"`
}

// GuidanceConfig locates the guidance documents.
type GuidanceConfig struct {
	// Dir is the guidance directory containing SKILL.md and references/.
	// Default: "skills/landing-page-guide"
	Dir string `mapstructure:"dir"`
}

// OutputConfig controls artifact and report persistence.
type OutputConfig struct {
	// Dir is the directory the generated project is written into.
	// Default: "output"
	Dir string `mapstructure:"dir"`

	// ReportName is the file name of the persisted generation report,
	// relative to Dir.
	// Default: "generation_report.json"
	ReportName string `mapstructure:"report_name"`
}

// DefaultConfig returns a new [Config] with sensible defaults.
//
// The defaults drive the Anthropic backend with three attempts per step, a
// 2s initial backoff capped at 60s, a twelve-exchange memory window, and
// strictly sequential step execution. These defaults work out of the box
// without any configuration file.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:      "anthropic",
			MaxTokens: 8000,
		},
		Engine: EngineConfig{
			MaxAttempts:    3,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     60 * time.Second,
			MemoryWindow:   12,
			Concurrency:    1,
		},
		Guidance: GuidanceConfig{
			Dir: "skills/landing-page-guide",
		},
		Output: OutputConfig{
			Dir:        "output",
			ReportName: "generation_report.json",
		},
	}
}

// DefaultModel returns the stock model identifier for a provider name.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4-turbo"
	default:
		return "claude-sonnet-4-20250514"
	}
}
