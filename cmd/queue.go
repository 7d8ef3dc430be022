package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/relisten/internal/formatter"
	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/player"
	"github.com/desertthunder/relisten/internal/repositories"
	"github.com/desertthunder/relisten/internal/shared"
	"github.com/urfave/cli/v3"
)

// selection picks the songs and source of a new queue from the flags.
func (r *Runner) selection(ctx context.Context, cmd *cli.Command, store *repositories.Store, library []models.Song) ([]models.Song, player.Source, error) {
	switch {
	case cmd.String("playlist") != "":
		id := cmd.String("playlist")
		playlist, err := repositories.NewCollection[models.Playlist](store, repositories.Playlists).Get(ctx, id)
		if err != nil {
			return nil, player.Source{}, fmt.Errorf("failed to read playlist: %w", err)
		}
		source := player.Source{Type: player.SourcePlaylist, ID: playlist.ID, Name: playlist.Name}
		return playlist.Resolve(library), source, nil
	case cmd.String("artist") != "":
		name := cmd.String("artist")
		return models.ArtistSongs(library, name), player.Source{Type: player.SourceArtist, ID: name, Name: name}, nil
	case cmd.String("genre") != "":
		name := cmd.String("genre")
		for _, g := range models.GroupGenres(library) {
			if g.Name == name {
				return g.Songs, player.Source{Type: player.SourceGenre, ID: name, Name: name}, nil
			}
		}
		return nil, player.Source{}, fmt.Errorf("%w: genre %s", shared.ErrNotFound, name)
	default:
		return library, player.Source{Type: player.SourceLibrary}, nil
	}
}

// QueuePreview starts a queue on a logging audio backend, optionally advances it, and prints it.
func (r *Runner) QueuePreview(ctx context.Context, cmd *cli.Command) error {
	library, store, err := r.songs(ctx, cmd)
	if err != nil {
		return err
	}
	songs, source, err := r.selection(ctx, cmd, store, library)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		return fmt.Errorf("%w: nothing to play", shared.ErrEmptyQueue)
	}

	repeat := r.config.Player.Repeat
	if cmd.IsSet("repeat") {
		repeat = cmd.String("repeat")
	}
	shuffle := r.config.Player.Shuffle
	if cmd.IsSet("shuffle") {
		shuffle = cmd.Bool("shuffle")
	}

	cfg := player.Config{
		Backend:  player.NewLogBackend(r.logger),
		Resolver: r.resolver,
		Logger:   r.logger,
		Repeat:   player.RepeatMode(repeat),
		Shuffle:  shuffle,
		Volume:   r.config.Player.Volume,
	}
	if cmd.Bool("record") {
		cfg.Recorder = r.outbox(store)
	}

	q, err := player.NewQueue(cfg)
	if err != nil {
		return err
	}
	defer q.Wait()

	stopCurrent := q.OnCurrent(func(item *player.Item) {
		if item != nil {
			r.logger.Debug("now playing", "song", item.Song.ID, "index", item.Index)
		}
	})
	defer stopCurrent()

	if err := q.SetQueue(ctx, player.Options{Songs: songs, Source: source, Index: int(cmd.Int("start"))}); err != nil {
		return err
	}
	for range cmd.Int("skip") {
		if err := q.Next(ctx); err != nil {
			return err
		}
	}

	return r.writePlainln("%s", formatter.Queue(q))
}
