package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration. Padding and
// context lengths live here, not in package state, so pipelines with
// different settings can run side by side.
type AppConfig struct {
	DatabaseURL      string
	ModelURL         string
	ListenAddr       string
	ModelContextDays int // trailing window length the models were trained on
	SimPaddingDays   int // warm-up rows the slot simulation requires
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. .env next to the binary takes priority.
	if exePath, err := os.Executable(); err == nil {
		envPath := filepath.Join(filepath.Dir(exePath), ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to the working directory (useful for go run).
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables")
	}

	cfg := &AppConfig{
		DatabaseURL:      getEnv("DATABASE_URL", "postgres://admin:docker@db:5432/triage"),
		ModelURL:         getEnv("MODEL_URL", "http://models:8501"),
		ListenAddr:       getEnv("LISTEN_ADDR", ":8000"),
		ModelContextDays: getEnvInt("MODEL_CONTEXT_DAYS", 30),
		SimPaddingDays:   getEnvInt("SIM_PADDING_DAYS", 7),
	}

	if cfg.ModelContextDays < 1 {
		return nil, fmt.Errorf("MODEL_CONTEXT_DAYS must be at least 1, got %d", cfg.ModelContextDays)
	}
	if cfg.SimPaddingDays < 1 {
		return nil, fmt.Errorf("SIM_PADDING_DAYS must be at least 1, got %d", cfg.SimPaddingDays)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}
