package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Mhrnqaruni/ata-live-client/internal/cli"
)

func main() {
	godotenv.Load()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
	zerolog.SetGlobalLevel(levelFromEnv())

	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func levelFromEnv() zerolog.Level {
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if level, err := zerolog.ParseLevel(raw); err == nil {
			return level
		}
	}
	return zerolog.InfoLevel
}
