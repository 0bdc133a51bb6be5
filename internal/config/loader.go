package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading via Viper.
//
// A zero-value Loader is not usable; construct with [NewLoader].
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a configuration loader with defaults, environment
// binding and the standard config file search path registered.
func NewLoader() *Loader {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("provider.name", d.Provider.Name)
	v.SetDefault("provider.model", d.Provider.Model)
	v.SetDefault("provider.base_url", d.Provider.BaseURL)
	v.SetDefault("provider.max_tokens", d.Provider.MaxTokens)
	v.SetDefault("engine.max_attempts", d.Engine.MaxAttempts)
	v.SetDefault("engine.initial_backoff", d.Engine.InitialBackoff)
	v.SetDefault("engine.max_backoff", d.Engine.MaxBackoff)
	v.SetDefault("engine.memory_window", d.Engine.MemoryWindow)
	v.SetDefault("engine.concurrency", d.Engine.Concurrency)
	v.SetDefault("guidance.dir", d.Guidance.Dir)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.report_name", d.Output.ReportName)

	v.SetEnvPrefix("LANDGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short aliases so the common knobs do not need the section prefix:
	// LANDGEN_PROVIDER, LANDGEN_MODEL, LANDGEN_MAX_ATTEMPTS, ...
	_ = v.BindEnv("provider.name", "LANDGEN_PROVIDER")
	_ = v.BindEnv("provider.model", "LANDGEN_MODEL")
	_ = v.BindEnv("engine.max_attempts", "LANDGEN_MAX_ATTEMPTS")
	_ = v.BindEnv("engine.memory_window", "LANDGEN_MEMORY_WINDOW")
	_ = v.BindEnv("engine.concurrency", "LANDGEN_CONCURRENCY")
	_ = v.BindEnv("guidance.dir", "LANDGEN_GUIDANCE_DIR")
	_ = v.BindEnv("output.dir", "LANDGEN_OUTPUT_DIR")

	return &Loader{v: v}
}

// Load resolves and loads the configuration following the priority chain
// documented on the package. A missing config file is not an error; the
// defaults and environment overrides still apply.
func (l *Loader) Load() (*Config, error) {
	if path := os.Getenv("LANDGEN_CONFIG_PATH"); path != "" {
		return l.LoadFromFile(path)
	}

	for _, path := range searchPaths() {
		if _, err := os.Stat(path); err == nil {
			return l.LoadFromFile(path)
		}
	}

	return l.unmarshal()
}

// LoadFromFile loads configuration from an explicit file path.
// Unlike [Loader.Load], a missing or unreadable file is an error here.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = DefaultModel(cfg.Provider.Name)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects values the engine cannot run with.
func validate(cfg *Config) error {
	if cfg.Provider.Name != "anthropic" && cfg.Provider.Name != "openai" {
		return fmt.Errorf("unknown provider %q (want \"anthropic\" or \"openai\")", cfg.Provider.Name)
	}
	if cfg.Provider.MaxTokens <= 0 {
		return fmt.Errorf("provider.max_tokens must be positive, got %d", cfg.Provider.MaxTokens)
	}
	if cfg.Engine.MaxAttempts < 1 {
		return fmt.Errorf("engine.max_attempts must be at least 1, got %d", cfg.Engine.MaxAttempts)
	}
	if cfg.Engine.Concurrency < 1 {
		return fmt.Errorf("engine.concurrency must be at least 1, got %d", cfg.Engine.Concurrency)
	}
	if cfg.Engine.MemoryWindow < 0 {
		return fmt.Errorf("engine.memory_window must not be negative, got %d", cfg.Engine.MemoryWindow)
	}
	if cfg.Engine.InitialBackoff < 0 || cfg.Engine.MaxBackoff < 0 {
		return fmt.Errorf("backoff durations must not be negative")
	}
	return nil
}

// searchPaths returns the config file locations probed by [Loader.Load],
// in priority order.
func searchPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "landgen", "landgen.yaml"))
	}
	paths = append(paths, "landgen.yaml")
	return paths
}
