package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/relisten/internal/formatter"
	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/repositories"
	"github.com/desertthunder/relisten/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) songs(ctx context.Context, cmd *cli.Command) ([]models.Song, *repositories.Store, error) {
	store, err := r.open(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}
	songs, err := repositories.NewCollection[models.Song](store, repositories.Songs).All(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read songs: %w", err)
	}
	return songs, store, nil
}

// LibrarySongs lists songs in the requested order.
func (r *Runner) LibrarySongs(ctx context.Context, cmd *cli.Command) error {
	songs, _, err := r.songs(ctx, cmd)
	if err != nil {
		return err
	}

	switch order := cmd.String("sort"); order {
	case "", "library":
	case "liked":
		songs = models.LikedSongs(songs)
	case "played":
		songs = models.RecentlyPlayed(songs)
	case "added":
		songs = models.RecentlyAdded(songs)
	default:
		return fmt.Errorf("%w: unknown sort %q", shared.ErrInvalidArgument, order)
	}

	if cmd.Bool("json") {
		return r.writeJSON(songs, true)
	}
	return r.writePlainln("%s", formatter.Songs(songs))
}

// LibraryPlaylists lists playlists.
func (r *Runner) LibraryPlaylists(ctx context.Context, cmd *cli.Command) error {
	songs, store, err := r.songs(ctx, cmd)
	if err != nil {
		return err
	}
	playlists, err := repositories.NewCollection[models.Playlist](store, repositories.Playlists).All(ctx)
	if err != nil {
		return fmt.Errorf("failed to read playlists: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}
	return r.writePlainln("%s", formatter.Playlists(playlists, songs))
}

func (r *Runner) LibraryAlbums(ctx context.Context, cmd *cli.Command) error {
	songs, _, err := r.songs(ctx, cmd)
	if err != nil {
		return err
	}
	return r.writePlainln("%s", formatter.Albums(songs))
}

func (r *Runner) LibraryArtists(ctx context.Context, cmd *cli.Command) error {
	songs, _, err := r.songs(ctx, cmd)
	if err != nil {
		return err
	}
	return r.writePlainln("%s", formatter.Artists(songs))
}

func (r *Runner) LibraryGenres(ctx context.Context, cmd *cli.Command) error {
	songs, _, err := r.songs(ctx, cmd)
	if err != nil {
		return err
	}
	return r.writePlainln("%s", formatter.Genres(songs))
}

// LibraryExport writes a playlist to a file.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	songs, store, err := r.songs(ctx, cmd)
	if err != nil {
		return err
	}
	playlist, err := repositories.NewCollection[models.Playlist](store, repositories.Playlists).Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to read playlist: %w", err)
	}

	export := formatter.NewExport(playlist, songs)
	output := cmd.String("output")

	var files []string
	switch format := cmd.String("format"); format {
	case "csv":
		result, err := formatter.WriteCSVExport(export, output)
		if err != nil {
			return err
		}
		files = append(files, result.SongsFile, result.MetadataFile)
	case "md", "markdown":
		path, err := formatter.WriteMarkdownExport(export, output)
		if err != nil {
			return err
		}
		files = append(files, path)
	case "txt", "text":
		path, err := formatter.WriteTextExport(export, output)
		if err != nil {
			return err
		}
		files = append(files, path)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	r.logger.Info("playlist exported", "playlist", playlist.Name, "songs", len(export.Songs))
	for _, f := range files {
		if err := r.writePlainln("%s %s", formatter.Success("✓"), f); err != nil {
			return err
		}
	}
	return nil
}
