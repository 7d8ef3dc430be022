package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/relisten/internal/formatter"
	"github.com/desertthunder/relisten/internal/player"
	"github.com/desertthunder/relisten/internal/remote"
	"github.com/desertthunder/relisten/internal/replica"
	"github.com/desertthunder/relisten/internal/repositories"
	"github.com/urfave/cli/v3"
)

// engine builds a sync engine over the user's namespace with one remote model per selected collection.
func (r *Runner) engine(ctx context.Context, cmd *cli.Command) (*replica.Engine, *repositories.Store, error) {
	names, err := r.syncModels(cmd)
	if err != nil {
		return nil, nil, err
	}

	store, err := r.open(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}

	engine := replica.New(store, r.logger)
	if err := remote.Register(engine, r.remote, names...); err != nil {
		return nil, nil, err
	}
	return engine, store, nil
}

// logProgress logs progress updates until the channel is closed, then closes done.
func (r *Runner) logProgress(progress <-chan replica.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	for update := range progress {
		r.logger.Info(update.Message, "model", update.Model, "phase", update.Phase)
	}
}

func (r *Runner) outbox(store *repositories.Store) *player.Outbox {
	return player.NewOutbox(r.remote, repositories.NewPlayLogRepository(store), r.logger)
}

// SyncRun loads every model and follows remote changes until the context is cancelled.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	engine, store, err := r.engine(ctx, cmd)
	if err != nil {
		return err
	}
	unsubscribe := engine.CloseOn(r.namespaces, store)
	defer unsubscribe()

	progress := make(chan replica.ProgressUpdate, 16)
	done := make(chan struct{})
	engine.SetProgress(progress)
	go r.logProgress(progress, done)

	if sent, err := r.outbox(store).Flush(ctx); err != nil {
		r.logger.Warn("failed to deliver stored plays", "delivered", sent, "error", err)
	} else if sent > 0 {
		r.logger.Info("delivered stored plays", "count", sent)
	}

	runErr := engine.Run(ctx)
	if err := engine.Close(); err != nil {
		r.logger.Warn("failed to close subscriptions", "error", err)
	}
	engine.SetProgress(nil)
	close(progress)
	<-done

	if err := r.writePlainln("%s", formatter.SyncReport(engine.Report())); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	return runErr
}

// SyncLoad bootstraps or loads every model once without subscribing.
func (r *Runner) SyncLoad(ctx context.Context, cmd *cli.Command) error {
	engine, _, err := r.engine(ctx, cmd)
	if err != nil {
		return err
	}

	loadErr := engine.Load(ctx)
	if err := r.writePlainln("%s", formatter.SyncReport(engine.Report())); err != nil {
		return err
	}
	return loadErr
}

// SyncStatus prints the stored watermarks.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
	store, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	watermarks, err := repositories.NewWatermarkRepository(store).List(ctx)
	if err != nil {
		return fmt.Errorf("failed to read watermarks: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(watermarks, true)
	}
	if len(watermarks) == 0 {
		return r.writePlainln("%s", formatter.Help("Nothing synced yet. The next sync bootstraps every model."))
	}
	return r.writePlainln("%s", formatter.Watermarks(watermarks))
}

// SyncReset removes the watermark and the local items of each model in one commit,
// so the next sync bootstraps them from the remote.
func (r *Runner) SyncReset(ctx context.Context, cmd *cli.Command) error {
	names, err := r.syncModels(cmd)
	if err != nil {
		return err
	}
	store, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	var b repositories.Batch
	for _, name := range names {
		docs, err := store.GetAll(ctx, name)
		if err != nil {
			return err
		}
		keys := make([]string, len(docs))
		for i, doc := range docs {
			keys[i] = doc.Key
		}
		b.Delete(name, keys...)
		b.Delete(repositories.Watermarks, name)
	}
	if err := store.Commit(ctx, b); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}

	r.logger.Info("watermarks reset", "models", names)
	return r.writePlainln("%s reset %d models", formatter.Success("✓"), len(names))
}

// SyncFlush delivers plays stored while the remote was unreachable.
func (r *Runner) SyncFlush(ctx context.Context, cmd *cli.Command) error {
	store, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	sent, err := r.outbox(store).Flush(ctx)
	if err != nil {
		return fmt.Errorf("delivered %d plays before failing: %w", sent, err)
	}
	return r.writePlainln("%s delivered %d plays", formatter.Success("✓"), sent)
}
