// package testing contains shared test doubles and fixtures
package testing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/replica"
	"github.com/desertthunder/relisten/internal/shared"
)

// MemorySource is an in-memory [replica.Source]. Changes pushed with [MemorySource.Push]
// are delivered to every open stream.
type MemorySource[T models.Model] struct {
	mu       sync.Mutex
	items    []T
	queryErr error
	streams  []*replica.ChanStream[T]
	since    []int64
}

// NewMemorySource creates a source whose initial query returns items.
func NewMemorySource[T models.Model](items ...T) *MemorySource[T] {
	return &MemorySource[T]{items: items}
}

// FailQuery makes QueryInitial return err.
func (s *MemorySource[T]) FailQuery(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryErr = err
}

func (s *MemorySource[T]) QueryInitial(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var live []T
	for _, item := range s.items {
		if !item.Tombstoned() {
			live = append(live, item)
		}
	}
	return live, nil
}

func (s *MemorySource[T]) Subscribe(ctx context.Context, since int64) (replica.Stream[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := replica.NewChanStream[T](8)
	s.streams = append(s.streams, stream)
	s.since = append(s.since, since)
	return stream, nil
}

// Since returns the watermark of every Subscribe call so far.
func (s *MemorySource[T]) Since() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.since...)
}

// Push sends changes to every open stream.
func (s *MemorySource[T]) Push(ctx context.Context, changes ...replica.Change[T]) error {
	s.mu.Lock()
	streams := append([]*replica.ChanStream[T](nil), s.streams...)
	s.mu.Unlock()

	if len(streams) == 0 {
		return fmt.Errorf("%w: no subscribers", shared.ErrStreamClosed)
	}
	var errs []error
	for _, stream := range streams {
		if err := stream.Send(ctx, changes); err != nil && !errors.Is(err, shared.ErrStreamClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StaticResolver resolves every song to "mem://<id>" unless listed in Missing.
type StaticResolver struct {
	Missing map[string]bool
}

func (r StaticResolver) ResolveURL(ctx context.Context, song models.Song) (string, error) {
	if r.Missing[song.ID] {
		return "", fmt.Errorf("%w: %s", shared.ErrSourceResolution, song.ID)
	}
	return "mem://" + song.ID, nil
}

// Play is one call to [Recorder.RecordPlay].
type Play struct {
	SongID string
	At     time.Time
}

// Recorder collects plays, failing with Err when set.
type Recorder struct {
	mu    sync.Mutex
	plays []Play
	Err   error
}

func (r *Recorder) RecordPlay(ctx context.Context, songID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	r.plays = append(r.plays, Play{SongID: songID, At: at})
	return nil
}

// Plays returns the recorded plays in call order.
func (r *Recorder) Plays() []Play {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Play(nil), r.plays...)
}

// Songs builds a library with one song per id. Each song lasts one minute longer than
// the previous one and has updatedAt 100, 200, ...
func Songs(ids ...string) []models.Song {
	songs := make([]models.Song, len(ids))
	for i, id := range ids {
		songs[i] = models.Song{
			ID:        id,
			FileName:  id + ".mp3",
			Title:     "Song " + id,
			Artist:    "Artist " + id,
			AlbumName: "Album " + id,
			Duration:  int64(i+1) * 60_000,
			CreatedAt: int64(i+1) * 100,
			UpdatedAt: int64(i+1) * 100,
		}
	}
	return songs
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

// InTempDir changes into a fresh temporary directory for the rest of the test.
func InTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	original := MustGetwd(t)
	MustChdir(t, dir)
	t.Cleanup(func() { MustChdir(t, original) })
	return dir
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
