package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8080" {
		t.Fatalf("unexpected default base url %q", cfg.API.BaseURL)
	}
	if cfg.Sim.Port != "8080" {
		t.Fatalf("unexpected default sim port %q", cfg.Sim.Port)
	}
}

func TestLoadReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizlive.yaml")
	content := `
api:
  base_url: "https://quiz.example.com"
  token: "tok-file"
live:
  reconnect_delay: "5s"
sim:
  port: "9090"
  quiz_file: "quizzes/sample.yaml"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "https://quiz.example.com" || cfg.API.Token != "tok-file" {
		t.Fatalf("unexpected api config %+v", cfg.API)
	}
	if cfg.Live.ReconnectDelay != "5s" || cfg.Sim.Port != "9090" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizlive.yaml")
	if err := os.WriteFile(path, []byte("api:\n  token: \"tok-file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("QUIZ_API_TOKEN", "tok-env")
	t.Setenv("QUIZ_API_URL", "http://env.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Token != "tok-env" {
		t.Fatalf("env token should win, got %q", cfg.API.Token)
	}
	if cfg.API.BaseURL != "http://env.example.com" {
		t.Fatalf("env url should win, got %q", cfg.API.BaseURL)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizlive.yaml")
	if err := os.WriteFile(path, []byte("api: [not a map"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml must surface an error")
	}
}

func TestDurationFallback(t *testing.T) {
	if got := Duration("", 3*time.Second); got != 3*time.Second {
		t.Fatalf("empty value should fall back, got %v", got)
	}
	if got := Duration("250ms", time.Second); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", got)
	}
	if got := Duration("soon", time.Second); got != time.Second {
		t.Fatalf("invalid value should fall back, got %v", got)
	}
}
