// package models defines the library entities mirrored from the remote store
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for every synchronized entity.
// Implementations include Song, Playlist, Album and Artist.
type Model interface {
	Key() string      // Key returns the primary key used by the local store
	Timestamp() int64 // Timestamp returns updatedAt in milliseconds since epoch
	Tombstoned() bool // Tombstoned reports whether the entity was soft-deleted remotely
	Validate() error  // Validate checks if the model's data is valid and returns an error if not
}

// Millis converts a [time.Time] to milliseconds since epoch.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts milliseconds since epoch to a [time.Time].
// Zero yields the zero [time.Time].
func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// MaxTimestamp returns the greatest updatedAt across items, or 0 when items is empty.
func MaxTimestamp[T Model](items []T) int64 {
	var latest int64
	for _, item := range items {
		if ts := item.Timestamp(); ts > latest {
			latest = ts
		}
	}
	return latest
}

// Position describes a track or disc position, e.g. 3 of 12.
type Position struct {
	No *int `json:"no"`
	Of *int `json:"of"`
}

// String formats the position as "no/of", omitting unknown parts.
func (p *Position) String() string {
	if p == nil || p.No == nil {
		return ""
	}
	if p.Of == nil {
		return fmt.Sprintf("%d", *p.No)
	}
	return fmt.Sprintf("%d/%d", *p.No, *p.Of)
}

// Artwork references an uploaded image by content hash.
type Artwork struct {
	Hash string `json:"hash"`
	Type string `json:"type"`

	DownloadURL32  string `json:"artworkDownloadUrl32,omitempty"`
	DownloadURL64  string `json:"artworkDownloadUrl64,omitempty"`
	DownloadURL128 string `json:"artworkDownloadUrl128,omitempty"`
	DownloadURL256 string `json:"artworkDownloadUrl256,omitempty"`
}

// Validate checks the artwork type.
func (a *Artwork) Validate() error {
	if a == nil {
		return nil
	}
	if a.Hash == "" {
		return fmt.Errorf("artwork hash is required")
	}
	switch a.Type {
	case "png", "jpg":
		return nil
	default:
		return fmt.Errorf("unsupported artwork type %q", a.Type)
	}
}
