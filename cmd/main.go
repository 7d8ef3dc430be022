package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/relisten/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	config := shared.DefaultConfig()
	configPath := "config.toml"
	if path := os.Getenv("RELISTEN_CONFIG"); path != "" {
		configPath = path
	}

	logger := shared.NewLogger(nil)
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}

	if configured, closer, err := shared.ConfigureLogger(config.Log); err == nil {
		logger = configured
		defer closer.Close()
	} else {
		logger.Warn("invalid log configuration", "error", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "relisten",
		Usage:    "Mirror your music library offline and play it back",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			return
		}
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
