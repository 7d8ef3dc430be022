package models

import "fmt"

// SongRef is one entry of a playlist. ID disambiguates repeated songs.
type SongRef struct {
	SongID string `json:"songId"`
	ID     string `json:"id"`
}

// Playlist is a user-ordered list of song references.
type Playlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Songs     []SongRef `json:"songs"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
	Deleted   bool      `json:"deleted"`
}

func (p Playlist) Key() string { return p.ID }
func (p Playlist) Timestamp() int64 { return p.UpdatedAt }
func (p Playlist) Tombstoned() bool { return p.Deleted }

// Validate checks required fields and that entry ids are unique.
func (p Playlist) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("playlist id is required")
	}
	seen := make(map[string]struct{}, len(p.Songs))
	for _, ref := range p.Songs {
		if ref.SongID == "" {
			return fmt.Errorf("playlist %s has an entry without a song id", p.ID)
		}
		if _, ok := seen[ref.ID]; ok {
			return fmt.Errorf("playlist %s has duplicate entry id %s", p.ID, ref.ID)
		}
		seen[ref.ID] = struct{}{}
	}
	return nil
}

// Resolve maps the playlist entries onto songs, skipping entries whose song is not in the library.
func (p Playlist) Resolve(songs []Song) []Song {
	lookup := make(map[string]Song, len(songs))
	for _, s := range songs {
		lookup[s.ID] = s
	}

	resolved := make([]Song, 0, len(p.Songs))
	for _, ref := range p.Songs {
		if s, ok := lookup[ref.SongID]; ok {
			resolved = append(resolved, s)
		}
	}
	return resolved
}
