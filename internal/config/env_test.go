package config

import (
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Port     int           `env:"ARENA_TEST_PORT" envDefault:"123"`
	Interval time.Duration `env:"ARENA_TEST_INTERVAL" envDefault:"16ms"`
	Nested   struct {
		Speed float64 `env:"SPEED" envDefault:"0.5"`
	} `envPrefix:"ARENA_TEST_NESTED_"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
	if cfg.Interval != 16*time.Millisecond {
		t.Fatalf("expected default interval 16ms, got %v", cfg.Interval)
	}
	if cfg.Nested.Speed != 0.5 {
		t.Fatalf("expected default speed 0.5, got %v", cfg.Nested.Speed)
	}
}

func TestParseEnvNestedPrefix(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("ARENA_TEST_NESTED_SPEED", "0.75")

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Nested.Speed != 0.75 {
		t.Fatalf("expected speed 0.75, got %v", cfg.Nested.Speed)
	}
}

func TestParseEnvPrefix(t *testing.T) {
	var cfg struct {
		Port int `env:"PORT" envDefault:"1"`
	}
	t.Setenv("GAME_PORT", "9000")

	if err := ParseEnvPrefix(&cfg, "GAME_"); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 9000 {
		t.Fatalf("expected port 9000, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("ARENA_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
