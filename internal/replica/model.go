package replica

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/repositories"
	"github.com/desertthunder/relisten/internal/shared"
	"github.com/desertthunder/relisten/internal/watchers"
)

// Model events.
const (
	EventUpdate = "update"
)

// Status represents the sync status of one model.
type Status int

const (
	StatusIdle    Status = iota // never loaded
	StatusLoading               // loading or bootstrapping
	StatusSynced                // loaded, last cycle committed
	StatusStale                 // a batch failed to commit and is waiting for retry
	StatusFailed                // load failed
	StatusClosed                // subscription cancelled
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSynced:
		return "synced"
	case StatusStale:
		return "stale"
	case StatusFailed:
		return "failed"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Model mirrors one remote collection into the local store.
//
// Batches are processed one cycle at a time in arrival order. A batch that arrives while
// a cycle runs is queued and picked up by the goroutine already running cycles.
// A batch whose commit fails is put back at the head of the queue and retried when the
// next batch arrives or on [Model.Retry]; the committed list and watermark are untouched.
type Model[T models.Model] struct {
	name     string
	source   Source[T]
	store    repositories.DocumentStore
	items    *repositories.Collection[T]
	marks    *repositories.WatermarkRepository
	logger   *log.Logger
	progress chan<- ProgressUpdate
	events   *watchers.Emitter[Diff[T]]

	mu        sync.Mutex
	snapshot  []T
	watermark int64
	loaded    bool
	status    Status
	lastErr   error
	pending   [][]Change[T]
	busy      bool
	stream    Stream[T]
	closed    bool
}

// NewModel creates a model mirroring source into the collection name of store.
func NewModel[T models.Model](name string, source Source[T], store repositories.DocumentStore, logger *log.Logger) *Model[T] {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Model[T]{
		name:   name,
		source: source,
		store:  store,
		items:  repositories.NewCollection[T](store, name),
		marks:  repositories.NewWatermarkRepository(store),
		logger: logger.With("model", name),
		events: watchers.New[Diff[T]](),
	}
}

// Name returns the collection name.
func (m *Model[T]) Name() string { return m.name }

// SetProgress sets the channel receiving non-blocking progress updates.
func (m *Model[T]) SetProgress(progress chan<- ProgressUpdate) {
	m.mu.Lock()
	m.progress = progress
	m.mu.Unlock()
}

// Items returns a copy of the current list.
func (m *Model[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.snapshot)
}

// Watermark returns the committed watermark.
func (m *Model[T]) Watermark() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watermark
}

// Status returns the current status and the error that caused it, if any.
func (m *Model[T]) Status() (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.lastErr
}

// Pending returns the number of batches waiting to be processed.
func (m *Model[T]) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Subscribe registers handler for diffs published by this model.
func (m *Model[T]) Subscribe(handler watchers.Handler[Diff[T]], opts watchers.Options) func() {
	return watchers.Subscribe(m.events, EventUpdate, handler, opts)
}

// Load populates the list. Without a watermark the model bootstraps from the remote,
// otherwise it reads the local store.
func (m *Model[T]) Load(ctx context.Context) error {
	m.setStatus(StatusLoading, nil)

	if err := m.store.CreateCollections(ctx, m.name, repositories.Watermarks); err != nil {
		return m.fail(err)
	}

	watermark, ok, err := m.marks.Get(ctx, m.name)
	if err != nil {
		return m.fail(err)
	}

	var items []T
	if ok {
		items, err = m.items.All(ctx)
		if err != nil {
			return m.fail(err)
		}
		m.logger.Info("loaded from local store", "count", len(items), "watermark", watermark)
		m.send(loadCacheUpdate(m.name, len(items)))
	} else {
		items, watermark, err = m.bootstrap(ctx)
		if err != nil {
			return m.fail(err)
		}
	}

	m.mu.Lock()
	m.snapshot = items
	m.watermark = watermark
	m.loaded = true
	m.status = StatusSynced
	m.lastErr = nil
	m.mu.Unlock()

	m.events.Emit(EventUpdate, Diff[T]{
		Model:     m.name,
		Items:     slices.Clone(items),
		Watermark: watermark,
		Initial:   true,
	})
	return nil
}

func (m *Model[T]) bootstrap(ctx context.Context) ([]T, int64, error) {
	m.logger.Info("no watermark, fetching entire collection")
	m.send(bootstrapFetchUpdate(m.name))

	fetched, err := m.source.QueryInitial(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: bootstrap %s: %w", shared.ErrRemoteUnavailable, m.name, err)
	}

	items := make([]T, 0, len(fetched))
	for _, item := range fetched {
		if item.Tombstoned() {
			m.logger.Warn("skipping tombstoned item in bootstrap", "key", item.Key())
			continue
		}
		if err := Check(item); err != nil {
			m.logger.Warn("skipping malformed item in bootstrap", "key", item.Key(), "error", err)
			continue
		}
		items = append(items, item)
	}

	watermark := models.MaxTimestamp(items)

	docs, err := repositories.EncodeAll(items)
	if err != nil {
		return nil, 0, err
	}

	var b repositories.Batch
	b.Put(m.name, docs...)
	if err := repositories.StageWatermark(&b, m.name, watermark); err != nil {
		return nil, 0, err
	}
	if err := m.store.Commit(ctx, b); err != nil {
		return nil, 0, err
	}

	m.logger.Info("bootstrap complete", "count", len(items), "watermark", watermark)
	m.send(bootstrapWriteUpdate(m.name, len(items), watermark))
	return items, watermark, nil
}

// Watch subscribes to remote changes at or after the watermark and ingests them until
// the stream ends or ctx is cancelled. The model must be loaded.
func (m *Model[T]) Watch(ctx context.Context) error {
	m.mu.Lock()
	loaded, since, closed := m.loaded, m.watermark, m.closed
	m.mu.Unlock()
	if closed {
		return nil
	}
	if !loaded {
		return fmt.Errorf("%w: %s has not been loaded", shared.ErrInvalidInput, m.name)
	}

	stream, err := m.source.Subscribe(ctx, since)
	if err != nil {
		err = fmt.Errorf("%w: subscribe %s: %w", shared.ErrRemoteUnavailable, m.name, err)
		m.send(failedUpdate(m.name, err))
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return stream.Close()
	}
	m.stream = stream
	m.mu.Unlock()
	defer m.closeStream(stream)

	m.logger.Info("watching changes", "since", since)
	m.send(subscribeUpdate(m.name, since))

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-stream.Batches():
			if !ok {
				if err := stream.Err(); err != nil {
					return fmt.Errorf("%w: %s: %w", shared.ErrRemoteUnavailable, m.name, err)
				}
				return nil
			}
			if err := m.Ingest(ctx, batch); err != nil {
				m.logger.Error("cycle failed", "error", err, "pending", m.Pending())
			}
		}
	}
}

// Run loads the model if needed, then watches it until ctx is cancelled.
func (m *Model[T]) Run(ctx context.Context) error {
	m.mu.Lock()
	loaded := m.loaded
	m.mu.Unlock()

	if !loaded {
		if err := m.Load(ctx); err != nil {
			return err
		}
	}
	return m.Watch(ctx)
}

// Close cancels the remote subscription. A closed model does not subscribe again.
// It is safe to call more than once.
func (m *Model[T]) Close() error {
	m.mu.Lock()
	m.closed = true
	if m.status == StatusSynced {
		m.status = StatusClosed
	}
	stream := m.stream
	m.mu.Unlock()

	if stream == nil {
		return nil
	}
	return m.closeStream(stream)
}

func (m *Model[T]) closeStream(stream Stream[T]) error {
	err := stream.Close()

	m.mu.Lock()
	if m.stream == stream {
		m.stream = nil
	}
	m.mu.Unlock()
	return err
}

// Ingest queues batch and, unless a cycle is already running, processes the queue.
// It returns the errors of dropped batches and of a storage failure that left batches pending.
func (m *Model[T]) Ingest(ctx context.Context, batch []Change[T]) error {
	m.mu.Lock()
	if !m.loaded {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s has not been loaded", shared.ErrInvalidInput, m.name)
	}
	if len(batch) > 0 {
		m.pending = append(m.pending, batch)
	}
	if m.busy {
		m.mu.Unlock()
		return nil
	}
	m.busy = true
	m.mu.Unlock()

	return m.drain(ctx)
}

// Retry processes batches left over from a failed commit.
func (m *Model[T]) Retry(ctx context.Context) error {
	return m.Ingest(ctx, nil)
}

// drain runs cycles until pending is empty. A batch that fails on storage stays at the
// head of pending and stops the drain. Any other failure drops the batch.
func (m *Model[T]) drain(ctx context.Context) error {
	var dropped []error
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.busy = false
			m.mu.Unlock()
			return errors.Join(dropped...)
		}
		batch := m.pending[0]
		m.pending = m.pending[1:]
		current, watermark := m.snapshot, m.watermark
		m.mu.Unlock()

		diff, err := m.cycle(ctx, current, watermark, batch)
		if err != nil && !errors.Is(err, shared.ErrStorageUnavailable) {
			m.logger.Error("dropping batch that cannot be committed", "size", len(batch), "error", err)
			m.send(failedUpdate(m.name, err))
			m.mu.Lock()
			m.lastErr = err
			m.mu.Unlock()
			dropped = append(dropped, err)
			continue
		}
		if err != nil {
			m.mu.Lock()
			m.pending = append([][]Change[T]{batch}, m.pending...)
			m.busy = false
			m.status = StatusStale
			m.lastErr = err
			m.mu.Unlock()

			m.send(failedUpdate(m.name, err))
			return errors.Join(append(dropped, err)...)
		}

		m.mu.Lock()
		m.snapshot = diff.Items
		m.watermark = diff.Watermark
		if m.status != StatusClosed {
			m.status = StatusSynced
		}
		m.lastErr = nil
		m.mu.Unlock()

		if len(diff.Changes) > 0 {
			added, mutated, deleted := diff.Counts()
			m.send(cycleUpdate(m.name, added, mutated, deleted, diff.Watermark))
			diff.Items = slices.Clone(diff.Items)
			m.events.Emit(EventUpdate, diff)
		}
	}
}

// cycle applies one batch to a copy of current and commits the result.
func (m *Model[T]) cycle(ctx context.Context, current []T, watermark int64, batch []Change[T]) (Diff[T], error) {
	res := Process(current, batch)

	for _, a := range res.Anomalies {
		if errors.Is(a.Err, shared.ErrOutOfOrderUpdate) {
			m.logger.Warn("dropping out of order update", "key", a.Key, "local", a.Local, "incoming", a.Incoming)
		} else {
			m.logger.Warn("ignoring change", "key", a.Key, "reason", a.Err)
		}
	}

	next := watermark
	switch {
	case res.MaxTimestamp > watermark:
		next = res.MaxTimestamp
	case res.MaxTimestamp > 0 && res.MaxTimestamp < watermark:
		m.logger.Warn("batch is older than the watermark, keeping watermark", "batch", res.MaxTimestamp, "watermark", watermark)
	}

	var b repositories.Batch
	changed := make([]T, 0, len(res.Applied))
	for _, a := range res.Applied {
		changed = append(changed, a.Item)
		switch a.Kind {
		case KindDelete:
			b.Delete(m.name, a.Item.Key())
		default:
			doc, err := repositories.Encode(a.Item)
			if err != nil {
				return Diff[T]{}, err
			}
			b.Put(m.name, doc)
		}
	}
	if next != watermark {
		if err := repositories.StageWatermark(&b, m.name, next); err != nil {
			return Diff[T]{}, err
		}
	}

	if err := m.store.Commit(ctx, b); err != nil {
		return Diff[T]{}, err
	}

	return Diff[T]{
		Model:     m.name,
		Items:     res.Items,
		Changed:   changed,
		Changes:   res.Applied,
		Watermark: next,
	}, nil
}

func (m *Model[T]) setStatus(status Status, err error) {
	m.mu.Lock()
	m.status = status
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Model[T]) fail(err error) error {
	m.setStatus(StatusFailed, err)
	m.logger.Error("load failed", "error", err)
	m.send(failedUpdate(m.name, err))
	return err
}

func (m *Model[T]) send(update ProgressUpdate) {
	m.mu.Lock()
	progress := m.progress
	m.mu.Unlock()
	sendProgress(progress, update)
}
