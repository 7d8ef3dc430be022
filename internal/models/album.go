package models

import "fmt"

// Album carries album-level metadata such as artwork.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"album"`
	AlbumArtist string   `json:"artist"`
	Artwork     *Artwork `json:"artwork,omitempty"`
	CreatedAt   int64    `json:"createdAt"`
	UpdatedAt   int64    `json:"updatedAt"`
	Deleted     bool     `json:"deleted"`
}

func (a Album) Key() string { return a.ID }
func (a Album) Timestamp() int64 { return a.UpdatedAt }
func (a Album) Tombstoned() bool { return a.Deleted }

func (a Album) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("album id is required")
	}
	return a.Artwork.Validate()
}

// Artist is keyed by name rather than by a generated id.
type Artist struct {
	Name      string   `json:"name"`
	Artwork   *Artwork `json:"artwork,omitempty"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
	Deleted   bool     `json:"deleted"`
}

func (a Artist) Key() string { return a.Name }
func (a Artist) Timestamp() int64 { return a.UpdatedAt }
func (a Artist) Tombstoned() bool { return a.Deleted }

func (a Artist) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("artist name is required")
	}
	return a.Artwork.Validate()
}

// Watermark is the per-model resumption point for incremental sync.
type Watermark struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}
