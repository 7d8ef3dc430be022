package formatter

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/player"
	"github.com/desertthunder/relisten/internal/replica"
	"github.com/desertthunder/relisten/internal/shared"
)

var now = time.Now

// Since renders a millisecond timestamp relative to now, or "never" for zero.
func Since(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return humanize.RelTime(models.FromMillis(ms), now(), "ago", "from now")
}

// Songs renders songs in the given order.
func Songs(songs []models.Song) string {
	t := newTable(-1, "#", "Title", "Artist", "Album", "Length", "Plays", "Last played")
	for i, s := range songs {
		t.Row(
			strconv.Itoa(i+1),
			songTitle(s),
			s.Artist,
			s.AlbumName,
			shared.FormatDuration(s.Length()),
			humanize.Comma(int64(s.Played)),
			Since(s.LastPlayed),
		)
	}
	return t.String()
}

// Playlists renders playlists with their length resolved against library.
func Playlists(playlists []models.Playlist, library []models.Song) string {
	t := newTable(-1, "Name", "ID", "Songs", "Length", "Updated")
	for _, p := range playlists {
		export := NewExport(p, library)
		t.Row(
			p.Name,
			p.ID,
			humanize.Comma(int64(len(export.Songs))),
			shared.FormatDuration(export.Length()),
			Since(p.UpdatedAt),
		)
	}
	return t.String()
}

// Albums renders the albums derived from song tags, sorted by artist then album.
func Albums(songs []models.Song) string {
	var albums []*models.AlbumGroup
	for _, byName := range models.GroupAlbums(songs) {
		for _, album := range byName {
			albums = append(albums, album)
		}
	}
	slices.SortFunc(albums, func(a, b *models.AlbumGroup) int {
		return cmp.Or(cmp.Compare(a.Artist, b.Artist), cmp.Compare(a.Album, b.Album))
	})

	t := newTable(-1, "Album", "Artist", "Songs")
	for _, album := range albums {
		t.Row(album.Album, album.Artist, humanize.Comma(int64(len(album.SongIDs))))
	}
	return t.String()
}

// Artists renders every track or album artist with their song and album counts.
func Artists(songs []models.Song) string {
	seen := make(map[string]struct{})
	for _, s := range songs {
		for _, name := range []string{s.Artist, s.AlbumArtist} {
			if name != "" {
				seen[name] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)

	albums := models.GroupAlbums(songs)
	t := newTable(-1, "Artist", "Songs", "Albums")
	for _, name := range names {
		t.Row(
			name,
			humanize.Comma(int64(len(models.ArtistSongs(songs, name)))),
			humanize.Comma(int64(len(albums[name]))),
		)
	}
	return t.String()
}

// Genres renders genres sorted by name.
func Genres(songs []models.Song) string {
	t := newTable(-1, "Genre", "Songs", "Length")
	for _, g := range models.GroupGenres(songs) {
		var total time.Duration
		for _, s := range g.Songs {
			total += s.Length()
		}
		t.Row(g.Name, humanize.Comma(int64(len(g.Songs))), shared.FormatDuration(total))
	}
	return t.String()
}

// Queue renders q in play order, marking the current item.
func Queue(q *player.Queue) string {
	items := q.Items()
	current := -1
	if item := q.Current(); item != nil {
		current = item.Index
	}

	shuffle := "off"
	if _, ok := q.Mapping(); ok {
		shuffle = "on"
	}
	heading := fmt.Sprintf("%s · %s · repeat %s · shuffle %s",
		q.Source(), q.State(), q.Repeat(), shuffle)

	t := newTable(current, "", "#", "Title", "Artist", "Length")
	for i, item := range items {
		marker := ""
		if i == current {
			marker = "▶"
		}
		t.Row(marker, strconv.Itoa(i+1), songTitle(item.Song), item.Song.Artist, shared.FormatDuration(item.Song.Length()))
	}
	return Title(heading) + "\n" + t.String()
}

// Watermarks renders the persisted resumption point of each model.
func Watermarks(watermarks []models.Watermark) string {
	t := newTable(-1, "Model", "Watermark", "Synced")
	for _, wm := range watermarks {
		t.Row(wm.Name, strconv.FormatInt(wm.Value, 10), Since(wm.Value))
	}
	return t.String()
}

// SyncReport renders the engine report of every model.
func SyncReport(report []replica.ModelStatus) string {
	t := newTable(-1, "Model", "Status", "Synced", "Pending", "Error")
	for _, m := range report {
		errText := ""
		if m.Err != nil {
			errText = m.Err.Error()
		}
		t.Row(m.Name, status(m.Status), Since(m.Watermark), humanize.Comma(int64(m.Pending)), errText)
	}
	return t.String()
}

func status(s replica.Status) string {
	text := strings.ToUpper(s.String()[:1]) + s.String()[1:]
	switch s {
	case replica.StatusSynced:
		return Success(text)
	case replica.StatusStale, replica.StatusClosed:
		return Warning(text)
	case replica.StatusFailed:
		return Failure(text)
	default:
		return text
	}
}
