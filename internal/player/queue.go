package player

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/shared"
	"github.com/desertthunder/relisten/internal/watchers"
)

// Queue events.
const (
	EventCurrent = "current"
	EventState   = "state"
	EventTime    = "time"
)

const (
	// previousThreshold is how far into a track Previous restarts it instead of going back.
	previousThreshold = 4.0
	recordTimeout     = 10 * time.Second
)

// Config holds the collaborators and initial preferences of a [Queue].
type Config struct {
	Backend  Backend
	Resolver Resolver
	// Recorder is optional. Plays are reported in the background.
	Recorder Recorder
	Logger   *log.Logger
	Repeat   RepeatMode
	Shuffle  bool
	Volume   float64
	// Rand drives shuffling. Nil uses the global source.
	Rand *rand.Rand
	Now  func() time.Time
}

// Options describes a new queue for [Queue.SetQueue].
type Options struct {
	Songs  []models.Song
	Source Source
	Index  int
}

// Queue is the playback queue. It owns the order of items, the current position, the
// shuffle mapping and the repeat mode, and drives a [Backend].
//
// Transitions are serialized. A transition whose URL resolution or backend call fails
// leaves the previous state and current item in place. Events are emitted on the goroutine
// running the transition, so handlers must not start another transition synchronously.
type Queue struct {
	backend  Backend
	resolver Resolver
	recorder Recorder
	logger   *log.Logger
	rand     *rand.Rand
	now      func() time.Time

	op sync.Mutex

	mu      sync.RWMutex
	items   []Item
	mapping *Mapping
	index   int
	state   State
	repeat  RepeatMode
	shuffle bool
	volume  float64
	source  Source

	current   *watchers.Emitter[*Item]
	states    *watchers.Emitter[State]
	times     *watchers.Emitter[float64]
	recording sync.WaitGroup
}

// NewQueue creates an empty queue.
func NewQueue(cfg Config) (*Queue, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("%w: audio backend", shared.ErrMissingArgument)
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("%w: url resolver", shared.ErrMissingArgument)
	}
	repeat, err := ParseRepeatMode(string(cfg.Repeat))
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = shared.NewLogger(nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Queue{
		backend:  cfg.Backend,
		resolver: cfg.Resolver,
		recorder: cfg.Recorder,
		logger:   cfg.Logger.With("component", "queue"),
		rand:     cfg.Rand,
		now:      cfg.Now,
		index:    -1,
		repeat:   repeat,
		shuffle:  cfg.Shuffle,
		volume:   clamp(cfg.Volume),
		current:  watchers.New[*Item](),
		states:   watchers.New[State](),
		times:    watchers.New[float64](),
	}, nil
}

// OnCurrent registers a handler for current item changes. A nil item means nothing is selected.
func (q *Queue) OnCurrent(handler watchers.Handler[*Item]) func() {
	return q.current.On(EventCurrent, handler)
}

// OnState registers a handler for state changes.
func (q *Queue) OnState(handler watchers.Handler[State]) func() {
	return q.states.On(EventState, handler)
}

// OnTime registers a handler for playback position updates in seconds.
func (q *Queue) OnTime(handler watchers.Handler[float64]) func() {
	return q.times.On(EventTime, handler)
}

func (q *Queue) State() State {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.state
}

// Current returns the selected item, or nil.
func (q *Queue) Current() *Item {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.index < 0 {
		return nil
	}
	item := q.items[q.index]
	item.Index = q.index
	return &item
}

// Items returns the queue in play order.
func (q *Queue) Items() []Item {
	q.mu.RLock()
	defer q.mu.RUnlock()

	items := slices.Clone(q.items)
	for i := range items {
		items[i].Index = i
	}
	return items
}

func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

func (q *Queue) Repeat() RepeatMode {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.repeat
}

// Shuffled reports the shuffle preference.
func (q *Queue) Shuffled() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.shuffle
}

// Mapping returns a copy of the active shuffle mapping.
func (q *Queue) Mapping() (Mapping, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.mapping == nil {
		return Mapping{}, false
	}
	return q.mapping.Clone(), true
}

func (q *Queue) Volume() float64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.volume
}

// Source returns where the queue came from.
func (q *Queue) Source() Source {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.source
}

// SetQueue starts playing opts.Songs from opts.Index. A continuation source only moves
// to opts.Index within the current queue. With the shuffle preference on, a new queue is
// shuffled after playback starts, with the playing item first.
func (q *Queue) SetQueue(ctx context.Context, opts Options) error {
	q.op.Lock()
	defer q.op.Unlock()

	if opts.Source.Continuation() {
		if err := q.checkIndex(opts.Index); err != nil {
			return err
		}
		return q.playAt(ctx, opts.Index)
	}

	if err := opts.Source.Validate(); err != nil {
		return err
	}
	if len(opts.Songs) == 0 {
		return shared.ErrEmptyQueue
	}
	if opts.Index < 0 || opts.Index >= len(opts.Songs) {
		return fmt.Errorf("%w: %d of %d", shared.ErrInvalidIndex, opts.Index, len(opts.Songs))
	}

	items := make([]Item, len(opts.Songs))
	for i, song := range opts.Songs {
		items[i] = Item{ID: shared.GenerateID(), Song: song, Source: opts.Source}
	}
	if err := q.load(ctx, items[opts.Index]); err != nil {
		return err
	}

	q.mu.Lock()
	q.items, q.mapping, q.index, q.source = items, nil, opts.Index, opts.Source
	prev := q.state
	q.state = StatePlaying
	if q.shuffle {
		q.shuffleLocked()
	}
	index, item, shuffled := q.index, q.items[q.index], q.mapping != nil
	q.mu.Unlock()

	q.logger.Info("queue set", "source", opts.Source, "count", len(items), "shuffled", shuffled)
	q.changed(item, index, prev)
	return nil
}

// Toggle switches between playing and paused. It does nothing when the queue is empty.
func (q *Queue) Toggle(ctx context.Context) error {
	q.op.Lock()
	defer q.op.Unlock()

	var next State
	switch q.State() {
	case StateEmpty:
		return nil
	case StatePlaying:
		if err := q.backend.Pause(ctx); err != nil {
			return q.backendErr("pause", err)
		}
		next = StatePaused
	default:
		if err := q.backend.Play(ctx); err != nil {
			return q.backendErr("play", err)
		}
		next = StatePlaying
	}

	q.mu.Lock()
	q.state = next
	q.mu.Unlock()
	q.states.Emit(EventState, next)
	return nil
}

// Previous goes back one item when the current one has played for less than four seconds,
// otherwise it restarts the current item.
func (q *Queue) Previous(ctx context.Context) error {
	q.op.Lock()
	defer q.op.Unlock()

	if q.State() == StateEmpty {
		return nil
	}

	elapsed, err := q.backend.CurrentTime(ctx)
	if err != nil {
		return q.backendErr("current time", err)
	}
	if elapsed < previousThreshold {
		return q.step(ctx, -1, true)
	}

	if err := q.backend.SetCurrentTime(ctx, 0); err != nil {
		return q.backendErr("seek", err)
	}
	q.times.Emit(EventTime, 0)
	return nil
}

// Next advances to the following item. It ignores [RepeatOne].
func (q *Queue) Next(ctx context.Context) error {
	q.op.Lock()
	defer q.op.Unlock()
	return q.step(ctx, 1, true)
}

// Ended is called when the current item finishes on its own. It honors [RepeatOne].
func (q *Queue) Ended(ctx context.Context) error {
	q.op.Lock()
	defer q.op.Unlock()
	return q.step(ctx, 1, false)
}

// Enqueue appends song to the end of the queue.
func (q *Queue) Enqueue(song models.Song) Item {
	q.op.Lock()
	defer q.op.Unlock()

	q.mu.Lock()
	defer q.mu.Unlock()

	item := Item{ID: shared.GenerateID(), Song: song, Source: Source{Type: SourceManual}}
	q.items = append(q.items, item)
	if q.mapping != nil {
		m := Extend(*q.mapping)
		q.mapping = &m
	}

	item.Index = len(q.items) - 1
	return item
}

// Dequeue removes the item at index in play order. Removing the playing item plays
// whatever now occupies its position.
func (q *Queue) Dequeue(ctx context.Context, index int) error {
	q.op.Lock()
	defer q.op.Unlock()

	if err := q.checkIndex(index); err != nil {
		return err
	}

	q.mu.Lock()
	if q.mapping != nil {
		m := Remove(*q.mapping, index)
		q.mapping = &m
	}
	q.items = slices.Delete(slices.Clone(q.items), index, index+1)

	playing := q.index == index
	switch {
	case q.index > index:
		q.index--
	case playing:
		q.index = min(index, len(q.items)-1)
	}
	remaining, repeat := len(q.items), q.repeat
	q.mu.Unlock()

	if !playing {
		return nil
	}

	target := index
	if target >= remaining {
		if remaining == 0 || repeat == RepeatNone {
			return q.stop(ctx)
		}
		target = 0
	}

	if err := q.playAt(ctx, target); err != nil {
		return errors.Join(err, q.stop(ctx))
	}
	return nil
}

// SetShuffle turns shuffling on or off. Turning it on moves the current item to the
// front; turning it off restores the original order and the current item's original index.
func (q *Queue) SetShuffle(on bool) {
	q.op.Lock()
	defer q.op.Unlock()

	q.mu.Lock()
	q.shuffle = on
	switch {
	case on && q.mapping == nil:
		q.shuffleLocked()
	case !on && q.mapping != nil:
		q.unshuffleLocked()
	}
	index := q.index
	var item Item
	if index >= 0 {
		item = q.items[index]
	}
	q.mu.Unlock()

	if index >= 0 {
		item.Index = index
		q.current.Emit(EventCurrent, &item)
	}
}

func (q *Queue) SetRepeat(mode RepeatMode) error {
	mode, err := ParseRepeatMode(string(mode))
	if err != nil {
		return err
	}

	q.mu.Lock()
	q.repeat = mode
	q.mu.Unlock()
	return nil
}

// Seek moves the playback position to seconds.
func (q *Queue) Seek(ctx context.Context, seconds float64) error {
	q.op.Lock()
	defer q.op.Unlock()

	if q.State() == StateEmpty {
		return shared.ErrEmptyQueue
	}
	seconds = max(seconds, 0)
	if err := q.backend.SetCurrentTime(ctx, seconds); err != nil {
		return q.backendErr("seek", err)
	}
	q.times.Emit(EventTime, seconds)
	return nil
}

// SetVolume sets the output level, clamped to [0, 1].
func (q *Queue) SetVolume(ctx context.Context, volume float64) error {
	q.op.Lock()
	defer q.op.Unlock()

	volume = clamp(volume)
	if err := q.backend.SetVolume(ctx, volume); err != nil {
		return q.backendErr("volume", err)
	}

	q.mu.Lock()
	q.volume = volume
	q.mu.Unlock()
	return nil
}

// Clear stops playback and removes every item.
func (q *Queue) Clear(ctx context.Context) error {
	q.op.Lock()
	defer q.op.Unlock()

	if q.State() != StateEmpty {
		if err := q.stop(ctx); err != nil {
			return err
		}
	}

	q.mu.Lock()
	q.items, q.mapping, q.index, q.source = nil, nil, -1, Source{}
	q.mu.Unlock()
	return nil
}

// PollTime publishes the backend position every interval while playing, until ctx ends.
func (q *Queue) PollTime(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if q.State() != StatePlaying {
				continue
			}
			seconds, err := q.backend.CurrentTime(ctx)
			if err != nil {
				q.logger.Warn("failed to read playback position", "error", err)
				continue
			}
			q.times.Emit(EventTime, seconds)
		}
	}
}

// Wait blocks until background play reports have finished.
func (q *Queue) Wait() { q.recording.Wait() }

// step moves delta positions from the current item, wrapping or stopping at either end
// according to the repeat mode. Unless force is set, [RepeatOne] replays the current item.
func (q *Queue) step(ctx context.Context, delta int, force bool) error {
	q.mu.RLock()
	index, n, repeat := q.index, len(q.items), q.repeat
	q.mu.RUnlock()

	if index < 0 {
		return nil
	}

	target := index + delta
	switch {
	case !force && repeat == RepeatOne:
		return q.playAt(ctx, index)
	case target >= n:
		if repeat == RepeatNone {
			q.logger.Info("end of queue reached")
			return q.stop(ctx)
		}
		return q.playAt(ctx, 0)
	case target < 0:
		if repeat == RepeatNone {
			return q.stop(ctx)
		}
		return q.playAt(ctx, n-1)
	default:
		return q.playAt(ctx, target)
	}
}

// playAt loads and plays the item at index and makes it current.
func (q *Queue) playAt(ctx context.Context, index int) error {
	q.mu.RLock()
	item := q.items[index]
	q.mu.RUnlock()

	if err := q.load(ctx, item); err != nil {
		return err
	}

	q.mu.Lock()
	q.index = index
	prev := q.state
	q.state = StatePlaying
	q.mu.Unlock()

	q.changed(item, index, prev)
	return nil
}

// load resolves item and starts it on the backend without touching queue state.
func (q *Queue) load(ctx context.Context, item Item) error {
	url, err := q.resolver.ResolveURL(ctx, item.Song)
	if err != nil {
		if !errors.Is(err, shared.ErrSourceResolution) {
			err = fmt.Errorf("%w: %s: %w", shared.ErrSourceResolution, item.Song.ID, err)
		}
		q.logger.Error("failed to resolve song", "song", item.Song.ID, "error", err)
		return err
	}

	if err := q.backend.SetSrc(ctx, &Media{URL: url, Song: item.Song}); err != nil {
		return q.backendErr("load", err)
	}
	if err := q.backend.Play(ctx); err != nil {
		return q.backendErr("play", err)
	}
	return nil
}

func (q *Queue) stop(ctx context.Context) error {
	if err := q.backend.Pause(ctx); err != nil {
		return q.backendErr("pause", err)
	}
	if err := q.backend.SetSrc(ctx, nil); err != nil {
		return q.backendErr("unload", err)
	}

	q.mu.Lock()
	q.index = -1
	prev := q.state
	q.state = StateEmpty
	q.mu.Unlock()

	q.current.Emit(EventCurrent, nil)
	if prev != StateEmpty {
		q.states.Emit(EventState, StateEmpty)
	}
	q.times.Emit(EventTime, 0)
	return nil
}

func (q *Queue) changed(item Item, index int, prev State) {
	item.Index = index
	q.record(item.Song.ID)

	q.current.Emit(EventCurrent, &item)
	if prev != StatePlaying {
		q.states.Emit(EventState, StatePlaying)
	}
	q.times.Emit(EventTime, 0)
}

func (q *Queue) record(songID string) {
	if q.recorder == nil {
		return
	}

	at := q.now()
	q.recording.Add(1)
	go func() {
		defer q.recording.Done()

		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := q.recorder.RecordPlay(ctx, songID, at); err != nil {
			q.logger.Warn("failed to record play", "song", songID, "error", err)
		}
	}()
}

func (q *Queue) shuffleLocked() {
	m := NewShuffle(len(q.items), q.index, q.rand)
	q.items = Apply(q.items, m)
	if q.index >= 0 {
		q.index = m.To[q.index]
	}
	q.mapping = &m
}

func (q *Queue) unshuffleLocked() {
	m := *q.mapping
	q.items = Restore(q.items, m)
	if q.index >= 0 {
		q.index = m.From[q.index]
	}
	q.mapping = nil
}

func (q *Queue) checkIndex(index int) error {
	n := q.Len()
	if index < 0 || index >= n {
		return fmt.Errorf("%w: %d of %d", shared.ErrInvalidIndex, index, n)
	}
	return nil
}

func (q *Queue) backendErr(op string, err error) error {
	if !errors.Is(err, shared.ErrAudioBackend) {
		err = fmt.Errorf("%w: %s: %w", shared.ErrAudioBackend, op, err)
	}
	q.logger.Error("audio backend failed", "op", op, "error", err)
	return err
}

func clamp(volume float64) float64 {
	return min(max(volume, 0), 1)
}
