package player

import (
	"fmt"

	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/shared"
)

// SourceType says where a queue came from.
type SourceType string

const (
	SourceAlbum     SourceType = "album"
	SourceArtist    SourceType = "artist"
	SourcePlaylist  SourceType = "playlist"
	SourceGenerated SourceType = "generated"
	SourceGenre     SourceType = "genre"
	SourceLibrary   SourceType = "library"
	SourceSearch    SourceType = "search"
	SourceQueue     SourceType = "queue"
	SourceManual    SourceType = "manual"
)

// Source describes the origin of a queue. ID and Name are set for album, artist,
// playlist, generated and genre sources.
type Source struct {
	Type SourceType
	ID   string
	Name string
}

// Continuation reports whether the source refers to the queue itself, meaning only the
// position changes.
func (s Source) Continuation() bool { return s.Type == SourceQueue }

func (s Source) identified() bool {
	switch s.Type {
	case SourceAlbum, SourceArtist, SourcePlaylist, SourceGenerated, SourceGenre:
		return true
	}
	return false
}

// Equal compares type and, for identified sources, the id.
func (s Source) Equal(o Source) bool {
	if s.Type != o.Type {
		return false
	}
	return !s.identified() || s.ID == o.ID
}

func (s Source) String() string {
	if s.Name != "" {
		return fmt.Sprintf("%s: %s", s.Type, s.Name)
	}
	return string(s.Type)
}

// Validate checks that identified sources carry an id.
func (s Source) Validate() error {
	switch {
	case s.Type == "":
		return fmt.Errorf("%w: source type is required", shared.ErrInvalidInput)
	case s.identified() && s.ID == "":
		return fmt.Errorf("%w: %s source requires an id", shared.ErrInvalidInput, s.Type)
	}
	return nil
}

// Item is one queue entry. ID is unique within the queue so the same song can appear twice.
// Index is the item's position when it was read from the [Queue].
type Item struct {
	ID     string
	Song   models.Song
	Source Source
	Index  int
}

// Same reports whether i and o are the same queue entry.
func (i Item) Same(o Item) bool { return i.ID == o.ID && i.Source.Equal(o.Source) }

// RepeatMode controls what happens at the end of a track or the queue.
type RepeatMode string

const (
	RepeatNone RepeatMode = "none"
	RepeatAll  RepeatMode = "repeat"
	RepeatOne  RepeatMode = "repeat-one"
)

// ParseRepeatMode parses a configured repeat mode. The empty string means [RepeatNone]
// and "repeat-all" is accepted for [RepeatAll].
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch RepeatMode(s) {
	case "", RepeatNone:
		return RepeatNone, nil
	case "repeat-all":
		return RepeatAll, nil
	case RepeatAll, RepeatOne:
		return RepeatMode(s), nil
	default:
		return "", fmt.Errorf("%w: repeat mode %q", shared.ErrInvalidArgument, s)
	}
}

// State is the playback state of a [Queue].
type State int

const (
	StateEmpty State = iota // nothing selected
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}
