package models

import (
	"cmp"
	"slices"
)

// AlbumIDDivider joins album artist and album name into a derived album id.
const AlbumIDDivider = "<<<<<<<"

// AlbumGroup is an album derived from song tags.
type AlbumGroup struct {
	ID      string
	Album   string
	Artist  string
	SongIDs []string
}

// Genre groups songs sharing a genre tag.
type Genre struct {
	Name  string
	Songs []Song
}

// GroupAlbums derives albums from song tags, keyed by album artist then album name.
// The album artist takes precedence over the track artist.
func GroupAlbums(songs []Song) map[string]map[string]*AlbumGroup {
	lookup := make(map[string]map[string]*AlbumGroup)
	for _, s := range songs {
		artist := s.AlbumArtistOrArtist()
		if lookup[artist] == nil {
			lookup[artist] = make(map[string]*AlbumGroup)
		}

		album, ok := lookup[artist][s.AlbumName]
		if !ok {
			album = &AlbumGroup{
				ID:     artist + AlbumIDDivider + s.AlbumName,
				Album:  s.AlbumName,
				Artist: artist,
			}
			lookup[artist][s.AlbumName] = album
		}
		album.SongIDs = append(album.SongIDs, s.ID)
	}
	return lookup
}

// GroupGenres groups songs by genre, skipping untagged songs. Results are sorted by name.
func GroupGenres(songs []Song) []Genre {
	lookup := make(map[string]int)
	var genres []Genre
	for _, s := range songs {
		if s.Genre == "" {
			continue
		}
		i, ok := lookup[s.Genre]
		if !ok {
			i = len(genres)
			lookup[s.Genre] = i
			genres = append(genres, Genre{Name: s.Genre})
		}
		genres[i].Songs = append(genres[i].Songs, s)
	}

	slices.SortFunc(genres, func(a, b Genre) int { return cmp.Compare(a.Name, b.Name) })
	return genres
}

// ArtistSongs returns songs whose artist or album artist is name.
func ArtistSongs(songs []Song, name string) []Song {
	var out []Song
	for _, s := range songs {
		if s.Artist == name || s.AlbumArtist == name {
			out = append(out, s)
		}
	}
	return out
}

// LikedSongs returns liked songs, most recently liked first.
func LikedSongs(songs []Song) []Song {
	var out []Song
	for _, s := range songs {
		if s.Liked {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b Song) int { return cmp.Compare(b.WhenLiked, a.WhenLiked) })
	return out
}

// RecentlyPlayed returns songs that have been played, most recent first.
func RecentlyPlayed(songs []Song) []Song {
	var out []Song
	for _, s := range songs {
		if s.LastPlayed != 0 {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b Song) int { return cmp.Compare(b.LastPlayed, a.LastPlayed) })
	return out
}

// RecentlyAdded returns a copy of songs sorted by creation time, newest first.
func RecentlyAdded(songs []Song) []Song {
	out := slices.Clone(songs)
	slices.SortStableFunc(out, func(a, b Song) int { return cmp.Compare(b.CreatedAt, a.CreatedAt) })
	return out
}
