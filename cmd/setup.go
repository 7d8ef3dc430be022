package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/relisten/internal/formatter"
	"github.com/desertthunder/relisten/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded example configuration.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	return r.writePlainln("%s %s", formatter.Success("✓"), path)
}

// SetupDatabase opens the user's namespace, which creates the database, runs migrations
// and registers every collection.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	store, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", store.Path())
	return r.writePlainln("%s library ready at %s", formatter.Success("✓"), store.Path())
}

func (r *Runner) syncModels(cmd *cli.Command) ([]string, error) {
	names := cmd.StringSlice("model")
	if len(names) == 0 {
		names = r.config.Sync.Models
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no models to sync", shared.ErrMissingArgument)
	}
	return names, nil
}
