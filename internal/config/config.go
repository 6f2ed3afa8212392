package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds client settings. The credential is sourced here at the
// application boundary and handed to the protocol layer explicitly; no
// protocol component reads environment or files itself.
type Config struct {
	API struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
	} `yaml:"api"`
	Live struct {
		ReconnectDelay     string `yaml:"reconnect_delay"`
		LeaderboardDisplay string `yaml:"leaderboard_display"`
	} `yaml:"live"`
	Sim struct {
		Port     string `yaml:"port"`
		QuizFile string `yaml:"quiz_file"`
	} `yaml:"sim"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads YAML config from path (missing file is fine) and applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		} else if !os.IsNotExist(err) {
			return cfg, err
		}
	}

	cfg.API.BaseURL = getEnv("QUIZ_API_URL", cfg.API.BaseURL)
	cfg.API.Token = getEnv("QUIZ_API_TOKEN", cfg.API.Token)
	cfg.Sim.Port = getEnv("SIM_PORT", cfg.Sim.Port)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8080"
	}
	if cfg.Sim.Port == "" {
		cfg.Sim.Port = "8080"
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty
// or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
