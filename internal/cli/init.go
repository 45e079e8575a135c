// Package cli provides common CLI initialization utilities shared by the
// mealtrack subcommands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mealtrack/internal/config"
	"mealtrack/internal/core"
	"mealtrack/internal/log"
	"mealtrack/internal/seed"
)

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// SetupLogger builds the application logger from config and installs it as
// the slog default.
func SetupLogger(cfg *config.Config) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger, nil
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSeed returns the records a session starts with. A seed file wins over
// the demo set; with neither the store starts empty.
func LoadSeed(cfg *config.Config, logger *log.Logger) ([]core.Record, error) {
	logger = logger.WithComponent(log.ComponentSeed)
	switch {
	case cfg.SeedFile != "":
		recs, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded seed file", log.FieldPath, cfg.SeedFile, log.FieldRecords, len(recs))
		return recs, nil
	case cfg.SeedDemo:
		recs := seed.Default()
		logger.Info("Loaded demo records", log.FieldRecords, len(recs))
		return recs, nil
	default:
		logger.Info("Starting with an empty store")
		return nil, nil
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
