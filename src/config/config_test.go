package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func chtemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func clearKeys(t *testing.T) {
	t.Helper()
	for _, name := range []string{"GOOGLE_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadDefaults(t *testing.T) {
	chtemp(t)
	clearKeys(t)
	t.Setenv("GOOGLE_API_KEY", "k")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.Name != "gemini" || cfg.Provider.Model == "" {
		t.Fatalf("provider defaults missing: %+v", cfg.Provider)
	}
	if cfg.Loop.MaxIterations != 6 || cfg.Loop.Bias != "stop" {
		t.Fatalf("loop defaults missing: %+v", cfg.Loop)
	}
	if cfg.Loop.TurnDelay != 2*time.Second || cfg.Loop.IterationDelay != 5*time.Second {
		t.Fatalf("delay defaults missing: %+v", cfg.Loop)
	}
	if cfg.Server.Addr != ":8420" || cfg.Workspace.Root != "." {
		t.Fatalf("server/workspace defaults missing: %+v", cfg)
	}
}

func TestLoadMissingAPIKeyFails(t *testing.T) {
	chtemp(t)
	clearKeys(t)

	_, err := Load()
	if err == nil {
		t.Fatalf("expected missing-key error")
	}
	if !strings.Contains(err.Error(), "GOOGLE_API_KEY") {
		t.Fatalf("error should name the variable to set: %v", err)
	}
}

func TestLoadDummyProviderNeedsNoKey(t *testing.T) {
	chtemp(t)
	clearKeys(t)
	t.Setenv("TANDEM_PROVIDER_NAME", "dummy")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("dummy provider should not require a key: %v", err)
	}
	if cfg.Provider.Name != "dummy" {
		t.Fatalf("env override ignored: %+v", cfg.Provider)
	}
}

func TestLoadFromYAML(t *testing.T) {
	chtemp(t)
	clearKeys(t)

	yaml := `
provider:
  name: openai
  model: gpt-4o
  api_key: sk-test
loop:
  max_iterations: 9
  bias: continue
  turn_delay: 1s
`
	if err := os.WriteFile("tandem.yaml", []byte(yaml), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.Name != "openai" || cfg.Provider.Model != "gpt-4o" {
		t.Fatalf("yaml provider ignored: %+v", cfg.Provider)
	}
	if cfg.Loop.MaxIterations != 9 || cfg.Loop.Bias != "continue" || cfg.Loop.TurnDelay != time.Second {
		t.Fatalf("yaml loop ignored: %+v", cfg.Loop)
	}
}

func TestLoadEnvFile(t *testing.T) {
	chtemp(t)
	clearKeys(t)

	t.Setenv("TANDEM_PROVIDER_NAME", "")
	os.Unsetenv("TANDEM_PROVIDER_NAME")

	envFile := "TANDEM_PROVIDER_NAME=dummy\n"
	if err := os.WriteFile(".env", []byte(envFile), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.Name != "dummy" {
		t.Fatalf(".env ignored: %+v", cfg.Provider)
	}
}

func TestValidateBias(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Provider.Name = "dummy"
	cfg.Loop.Bias = "sideways"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("invalid bias should fail validation")
	}
}

func TestResolveAPIKeyExportsEnv(t *testing.T) {
	clearKeys(t)
	cfg := &Config{Provider: ProviderConfig{Name: "openai", APIKey: "sk-abc"}}
	cfg.ResolveAPIKey()
	if os.Getenv("OPENAI_API_KEY") != "sk-abc" {
		t.Fatalf("key not exported")
	}
}
