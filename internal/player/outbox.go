package player

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/repositories"
	"github.com/desertthunder/relisten/internal/shared"
)

const flushBatch = 100

// Outbox is a [Recorder] that keeps plays the remote did not accept and delivers them
// on [Outbox.Flush].
type Outbox struct {
	remote Recorder
	plays  *repositories.PlayLogRepository
	logger *log.Logger
}

// NewOutbox wraps remote with a local outbox stored in plays.
func NewOutbox(remote Recorder, plays *repositories.PlayLogRepository, logger *log.Logger) *Outbox {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Outbox{remote: remote, plays: plays, logger: logger.With("component", "outbox")}
}

// RecordPlay reports the play, storing it locally when the remote call fails.
func (o *Outbox) RecordPlay(ctx context.Context, songID string, at time.Time) error {
	err := o.remote.RecordPlay(ctx, songID, at)
	if err == nil {
		return nil
	}

	o.logger.Warn("play not delivered, keeping for later", "song", songID, "error", err)
	if _, storeErr := o.plays.Add(ctx, songID, models.Millis(at)); storeErr != nil {
		return errors.Join(err, storeErr)
	}
	return nil
}

// Flush delivers stored plays oldest first and returns how many were accepted.
// It stops at the first delivery failure so plays keep their order.
func (o *Outbox) Flush(ctx context.Context) (int, error) {
	sent := 0
	for {
		pending, err := o.plays.Pending(ctx, flushBatch)
		if err != nil {
			return sent, err
		}
		if len(pending) == 0 {
			return sent, nil
		}

		for _, p := range pending {
			if err := o.remote.RecordPlay(ctx, p.SongID, models.FromMillis(p.PlayedAt)); err != nil {
				if attemptErr := o.plays.Attempt(ctx, p.ID); attemptErr != nil {
					err = errors.Join(err, attemptErr)
				}
				return sent, err
			}
			if err := o.plays.Ack(ctx, p.ID); err != nil {
				return sent, err
			}
			sent++
		}
	}
}
