package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Song is an uploaded audio file and its tag metadata.
//
// All timestamps are milliseconds since epoch. Duration is in milliseconds.
type Song struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	Title       string    `json:"title"`
	Duration    int64     `json:"duration"`
	Hash        string    `json:"hash,omitempty"`
	Artist      string    `json:"artist,omitempty"`
	AlbumName   string    `json:"albumName,omitempty"`
	AlbumArtist string    `json:"albumArtist,omitempty"`
	Year        Year      `json:"year,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	Track       *Position `json:"track,omitempty"`
	Disk        *Position `json:"disk,omitempty"`
	Liked       bool      `json:"liked,omitempty"`
	WhenLiked   int64     `json:"whenLiked,omitempty"`
	Played      int       `json:"played,omitempty"`
	LastPlayed  int64     `json:"lastPlayed,omitempty"`
	Artwork     *Artwork  `json:"artwork,omitempty"`
	CreatedAt   int64     `json:"createdAt"`
	UpdatedAt   int64     `json:"updatedAt"`
	Deleted     bool      `json:"deleted"`
}

// Key returns the song id.
func (s Song) Key() string { return s.ID }

// Timestamp returns updatedAt.
func (s Song) Timestamp() int64 { return s.UpdatedAt }

// Tombstoned reports whether the song was deleted remotely.
func (s Song) Tombstoned() bool { return s.Deleted }

// Validate checks required fields.
func (s Song) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("song id is required")
	}
	if s.Duration < 0 {
		return fmt.Errorf("song %s has negative duration", s.ID)
	}
	if err := s.Artwork.Validate(); err != nil {
		return fmt.Errorf("song %s: %w", s.ID, err)
	}
	return nil
}

// AlbumArtistOrArtist returns the album artist, falling back to the track artist.
func (s Song) AlbumArtistOrArtist() string {
	if s.AlbumArtist != "" {
		return s.AlbumArtist
	}
	return s.Artist
}

// Length returns the song duration as a [time.Duration].
func (s Song) Length() time.Duration {
	return time.Duration(s.Duration) * time.Millisecond
}

// Year holds a release year tag, which uploads encode either as a number or a string.
type Year string

// UnmarshalJSON accepts both 1999 and "1999".
func (y *Year) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*y = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*y = Year(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid year %s: %w", data, err)
	}
	*y = Year(n.String())
	return nil
}
