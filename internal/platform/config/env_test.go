package config

import (
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Port     int           `env:"STORY_TEST_PORT" envDefault:"123"`
	Debounce time.Duration `env:"STORY_TEST_DEBOUNCE" envDefault:"250ms"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
	if cfg.Debounce != 250*time.Millisecond {
		t.Fatalf("expected default debounce 250ms, got %s", cfg.Debounce)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("STORY_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvFromUsesSuppliedEnvironment(t *testing.T) {
	t.Parallel()

	var cfg envTestConfig
	err := ParseEnvFrom(&cfg, map[string]string{"STORY_TEST_DEBOUNCE": "1s"})
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Debounce != time.Second {
		t.Fatalf("Debounce = %s, want 1s", cfg.Debounce)
	}
	if cfg.Port != 123 {
		t.Fatalf("Port = %d, want 123", cfg.Port)
	}
}
