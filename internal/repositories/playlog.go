package repositories

import (
	"context"

	"github.com/desertthunder/relisten/internal/shared"
)

// PendingPlay is a play that has not been acknowledged by the remote yet.
type PendingPlay struct {
	ID       string
	SongID   string
	PlayedAt int64
	Attempts int
}

// PlayLogRepository is an outbox for play-count updates that failed to reach the remote.
type PlayLogRepository struct {
	store *Store
}

// NewPlayLogRepository creates a new PlayLogRepository for store.
func NewPlayLogRepository(store *Store) *PlayLogRepository {
	return &PlayLogRepository{store: store}
}

// Add records a play of songID at playedAt (ms since epoch).
func (r *PlayLogRepository) Add(ctx context.Context, songID string, playedAt int64) (PendingPlay, error) {
	play := PendingPlay{ID: shared.GenerateID(), SongID: songID, PlayedAt: playedAt}
	if err := r.store.open(); err != nil {
		return play, err
	}

	_, err := r.store.db.ExecContext(ctx,
		"INSERT INTO pending_plays (id, song_id, played_at) VALUES (?, ?, ?)",
		play.ID, play.SongID, play.PlayedAt,
	)
	if err != nil {
		return play, unavailable("failed to record play", err)
	}
	return play, nil
}

// Pending returns up to limit plays, oldest first.
func (r *PlayLogRepository) Pending(ctx context.Context, limit int) ([]PendingPlay, error) {
	if err := r.store.open(); err != nil {
		return nil, err
	}

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, song_id, played_at, attempts
		FROM pending_plays
		ORDER BY played_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, unavailable("failed to query pending plays", err)
	}
	defer rows.Close()

	var plays []PendingPlay
	for rows.Next() {
		var p PendingPlay
		if err := rows.Scan(&p.ID, &p.SongID, &p.PlayedAt, &p.Attempts); err != nil {
			return nil, unavailable("failed to scan pending play", err)
		}
		plays = append(plays, p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to iterate pending plays", err)
	}
	return plays, nil
}

// Ack removes a delivered play.
func (r *PlayLogRepository) Ack(ctx context.Context, id string) error {
	if err := r.store.open(); err != nil {
		return err
	}
	if _, err := r.store.db.ExecContext(ctx, "DELETE FROM pending_plays WHERE id = ?", id); err != nil {
		return unavailable("failed to ack play", err)
	}
	return nil
}

// Attempt increments the delivery attempt counter of a play.
func (r *PlayLogRepository) Attempt(ctx context.Context, id string) error {
	if err := r.store.open(); err != nil {
		return err
	}
	if _, err := r.store.db.ExecContext(ctx, "UPDATE pending_plays SET attempts = attempts + 1 WHERE id = ?", id); err != nil {
		return unavailable("failed to update play attempts", err)
	}
	return nil
}
