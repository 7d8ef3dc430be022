package replica

import (
	"context"
	"sync"

	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/shared"
)

// Source is the remote authoritative store for one model.
type Source[T models.Model] interface {
	// QueryInitial returns every item that is not tombstoned.
	QueryInitial(ctx context.Context) ([]T, error)
	// Subscribe streams changes with updatedAt >= since, ascending by updatedAt.
	Subscribe(ctx context.Context, since int64) (Stream[T], error)
}

// Stream delivers batches of changes until closed.
type Stream[T models.Model] interface {
	// Batches is closed when the stream ends.
	Batches() <-chan []Change[T]
	// Close stops the stream. It is safe to call more than once.
	Close() error
	// Err reports why the stream ended, nil after a normal Close.
	Err() error
}

// ChanStream is a channel-backed [Stream] that producers feed with [ChanStream.Send].
type ChanStream[T models.Model] struct {
	batches chan []Change[T]
	done    chan struct{}

	mu     sync.Mutex
	once   sync.Once
	err    error
	closed bool
}

// NewChanStream creates a stream buffering up to size batches.
func NewChanStream[T models.Model](size int) *ChanStream[T] {
	return &ChanStream[T]{
		batches: make(chan []Change[T], size),
		done:    make(chan struct{}),
	}
}

func (s *ChanStream[T]) Batches() <-chan []Change[T] { return s.batches }

// Done is closed once the consumer or producer has closed the stream.
func (s *ChanStream[T]) Done() <-chan struct{} { return s.done }

// Send delivers batch, blocking until it is buffered, the stream closes or ctx ends.
func (s *ChanStream[T]) Send(ctx context.Context, batch []Change[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return shared.ErrStreamClosed
	}

	select {
	case s.batches <- batch:
		return nil
	case <-s.done:
		return shared.ErrStreamClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the stream without error.
func (s *ChanStream[T]) Close() error {
	s.Fail(nil)
	return nil
}

// Fail ends the stream with err.
func (s *ChanStream[T]) Fail(err error) {
	s.once.Do(func() {
		close(s.done)

		s.mu.Lock()
		s.err = err
		s.closed = true
		close(s.batches)
		s.mu.Unlock()
	})
}

func (s *ChanStream[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
