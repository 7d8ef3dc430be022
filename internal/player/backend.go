package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/shared"
)

// Media is what a [Backend] plays.
type Media struct {
	URL  string
	Song models.Song
}

// Backend is the audio output driven by a [Queue].
type Backend interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	// SetSrc loads media. A nil media unloads the current one.
	SetSrc(ctx context.Context, media *Media) error
	// CurrentTime returns the playback position in seconds.
	CurrentTime(ctx context.Context) (float64, error)
	SetCurrentTime(ctx context.Context, seconds float64) error
	// SetVolume sets the output level between 0 and 1.
	SetVolume(ctx context.Context, volume float64) error
}

// Resolver finds a playable URL for a song.
type Resolver interface {
	ResolveURL(ctx context.Context, song models.Song) (string, error)
}

// Recorder reports that a song started playing.
type Recorder interface {
	RecordPlay(ctx context.Context, songID string, at time.Time) error
}

// LogBackend is a [Backend] without audio output. It logs every call and advances a
// virtual clock while playing.
type LogBackend struct {
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	media   *Media
	playing bool
	offset  float64
	started time.Time
	volume  float64
}

// NewLogBackend creates a backend that logs to logger.
func NewLogBackend(logger *log.Logger) *LogBackend {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LogBackend{logger: logger.With("component", "audio"), now: time.Now, volume: 1}
}

func (b *LogBackend) Play(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.media == nil {
		return fmt.Errorf("%w: nothing loaded", shared.ErrAudioBackend)
	}
	if !b.playing {
		b.playing = true
		b.started = b.now()
	}
	b.logger.Info("play", "title", b.media.Song.Title, "at", b.position())
	return nil
}

func (b *LogBackend) Pause(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.playing {
		b.offset = b.position()
		b.playing = false
	}
	b.logger.Info("pause", "at", b.offset)
	return nil
}

func (b *LogBackend) SetSrc(ctx context.Context, media *Media) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.media = media
	b.offset = 0
	b.started = b.now()
	if media == nil {
		b.playing = false
		b.logger.Info("unload")
		return nil
	}
	b.logger.Info("load", "title", media.Song.Title, "artist", media.Song.Artist, "url", media.URL)
	return nil
}

func (b *LogBackend) CurrentTime(ctx context.Context) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position(), nil
}

func (b *LogBackend) SetCurrentTime(ctx context.Context, seconds float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.offset = seconds
	b.started = b.now()
	b.logger.Debug("seek", "to", seconds)
	return nil
}

func (b *LogBackend) SetVolume(ctx context.Context, volume float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.volume = volume
	b.logger.Debug("volume", "level", volume)
	return nil
}

// Volume returns the last volume set.
func (b *LogBackend) Volume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.volume
}

// Media returns the loaded media, or nil.
func (b *LogBackend) Media() *Media {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.media
}

func (b *LogBackend) position() float64 {
	if !b.playing {
		return b.offset
	}
	return b.offset + b.now().Sub(b.started).Seconds()
}
