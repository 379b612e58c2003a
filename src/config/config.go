// Package config loads runtime configuration from the environment, an
// optional tandem.yaml, and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Provider  ProviderConfig  `mapstructure:"provider"`
	Loop      LoopConfig      `mapstructure:"loop"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

// ProviderConfig selects and authenticates the language model backend.
type ProviderConfig struct {
	Name         string `mapstructure:"name"`
	Model        string `mapstructure:"model"`
	PromptPrefix string `mapstructure:"prompt_prefix"`
	APIKey       string `mapstructure:"api_key"`
}

// LoopConfig tunes the iteration controller.
type LoopConfig struct {
	MaxIterations   int           `mapstructure:"max_iterations"`
	ObservationPass bool          `mapstructure:"observation_pass"`
	Bias            string        `mapstructure:"bias"`
	TurnDelay       time.Duration `mapstructure:"turn_delay"`
	IterationDelay  time.Duration `mapstructure:"iteration_delay"`
	ForceToolRetry  bool          `mapstructure:"force_tool_retry"`
}

// WorkspaceConfig anchors the file-system tools.
type WorkspaceConfig struct {
	Root string `mapstructure:"root"`
}

// ServerConfig configures the websocket transport.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load reads configuration and validates it. Precedence: environment
// variables (TANDEM_ prefix), then tandem.yaml, then .env, then defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("TANDEM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, so register every key a
	// TANDEM_* environment variable may set.
	for key, def := range map[string]any{
		"provider.name":          "",
		"provider.model":         "",
		"provider.prompt_prefix": "",
		"provider.api_key":       "",
		"loop.max_iterations":    0,
		"loop.observation_pass":  false,
		"loop.bias":              "",
		"loop.turn_delay":        time.Duration(0),
		"loop.iteration_delay":   time.Duration(0),
		"loop.force_tool_retry":  false,
		"workspace.root":         "",
		"server.addr":            "",
		"log.level":              "",
		"log.file":               "",
	} {
		v.SetDefault(key, def)
	}

	v.SetConfigName("tandem")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	mergeEnvFile(".env")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeEnvFile exports KEY=value pairs from an env file into the process
// environment, where both viper and the model bindings read them. Variables
// already set in the environment win. A missing file is not an error.
func mergeEnvFile(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return
	}
	for _, key := range env.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); !exists {
			os.Setenv(name, env.GetString(key))
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "gemini"
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = defaultModel(cfg.Provider.Name)
	}

	if cfg.Loop.MaxIterations == 0 {
		cfg.Loop.MaxIterations = 6
	}
	if cfg.Loop.Bias == "" {
		cfg.Loop.Bias = "stop"
	}
	if cfg.Loop.TurnDelay == 0 {
		cfg.Loop.TurnDelay = 2 * time.Second
	}
	if cfg.Loop.IterationDelay == 0 {
		cfg.Loop.IterationDelay = 5 * time.Second
	}

	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = "."
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8420"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "anthropic", "claude":
		return "claude-sonnet-4-20250514"
	case "ollama":
		return "llama3.2"
	default:
		return "gemini-2.0-flash"
	}
}

// apiKeyEnvVars maps each provider to the environment variables that may
// carry its key.
var apiKeyEnvVars = map[string][]string{
	"gemini":    {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"google":    {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"claude":    {"ANTHROPIC_API_KEY"},
}

// Validate checks the loaded configuration. A missing API key for a hosted
// provider is a startup failure with a message naming the variable to set.
func (c *Config) Validate() error {
	if c.Loop.MaxIterations < 1 {
		return fmt.Errorf("loop.max_iterations must be at least 1")
	}
	switch c.Loop.Bias {
	case "stop", "continue":
	default:
		return fmt.Errorf("loop.bias must be \"stop\" or \"continue\", got %q", c.Loop.Bias)
	}

	vars, hosted := apiKeyEnvVars[c.Provider.Name]
	if !hosted {
		// ollama and dummy run without credentials.
		return nil
	}
	if c.Provider.APIKey != "" {
		return nil
	}
	for _, name := range vars {
		if os.Getenv(name) != "" {
			return nil
		}
	}
	return fmt.Errorf(
		"no API key for provider %q: set %s or provider.api_key in tandem.yaml",
		c.Provider.Name, strings.Join(vars, " or "),
	)
}

// ResolveAPIKey exports the configured key into the environment variable the
// model binding reads, so a key set via tandem.yaml or .env works too.
func (c *Config) ResolveAPIKey() {
	if c.Provider.APIKey == "" {
		return
	}
	vars, ok := apiKeyEnvVars[c.Provider.Name]
	if !ok || len(vars) == 0 {
		return
	}
	if os.Getenv(vars[0]) == "" {
		os.Setenv(vars[0], c.Provider.APIKey)
	}
}
