package replica

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/repositories"
	"github.com/desertthunder/relisten/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Runner is the type-erased surface of a [Model] used by the [Engine].
type Runner interface {
	Name() string
	Load(ctx context.Context) error
	Run(ctx context.Context) error
	Close() error
	Status() (Status, error)
	Watermark() int64
	Pending() int
	SetProgress(progress chan<- ProgressUpdate)
}

// ModelStatus is a point-in-time report for one model.
type ModelStatus struct {
	Name      string
	Status    Status
	Err       error
	Watermark int64
	Pending   int
}

// Engine runs every registered model against one namespace's store.
// Models are independent: one failing to load does not stop the others.
type Engine struct {
	store  repositories.DocumentStore
	logger *log.Logger

	mu       sync.Mutex
	models   []Runner
	progress chan<- ProgressUpdate
	closed   bool
}

// New creates an engine writing into store.
func New(store repositories.DocumentStore, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{store: store, logger: logger.With("component", "replica")}
}

// Register adds a model named name fed by source and returns it.
func Register[T models.Model](e *Engine, name string, source Source[T]) *Model[T] {
	m := NewModel[T](name, source, e.store, e.logger)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.progress != nil {
		m.SetProgress(e.progress)
	}
	e.models = append(e.models, m)
	return m
}

// SetProgress forwards progress updates of every model to progress.
func (e *Engine) SetProgress(progress chan<- ProgressUpdate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress = progress
	for _, m := range e.models {
		m.SetProgress(progress)
	}
}

// Models returns the registered models in registration order.
func (e *Engine) Models() []Runner {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Runner(nil), e.models...)
}

// Load loads every model concurrently and returns the joined load errors.
func (e *Engine) Load(ctx context.Context) error {
	return e.each(func(m Runner) error { return m.Load(ctx) })
}

// Run loads and watches every model concurrently until ctx is cancelled.
// A model whose load or stream fails is logged and does not cancel the others.
func (e *Engine) Run(ctx context.Context) error {
	return e.each(func(m Runner) error {
		err := m.Run(ctx)
		if err != nil {
			e.logger.Error("model stopped", "model", m.Name(), "error", err)
		}
		return err
	})
}

// Close cancels every model subscription. It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	models := append([]Runner(nil), e.models...)
	e.mu.Unlock()

	var errs []error
	for _, m := range models {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CloseOn closes the engine when ns announces that store is closing.
func (e *Engine) CloseOn(ns *repositories.Namespaces, store *repositories.Store) func() {
	return ns.On(repositories.EventClose, func(ev repositories.NamespaceEvent) {
		if ev.Store != store {
			return
		}
		if err := e.Close(); err != nil {
			e.logger.Warn("failed to close subscriptions", "user", ev.User, "error", err)
		}
	})
}

// Report returns the status of every model.
func (e *Engine) Report() []ModelStatus {
	models := e.Models()
	report := make([]ModelStatus, 0, len(models))
	for _, m := range models {
		status, err := m.Status()
		report = append(report, ModelStatus{
			Name:      m.Name(),
			Status:    status,
			Err:       err,
			Watermark: m.Watermark(),
			Pending:   m.Pending(),
		})
	}
	return report
}

// each runs fn for every model concurrently and joins every error. The group has no
// shared context: models are independent, so one failure does not cancel the others.
func (e *Engine) each(fn func(Runner) error) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, m := range e.Models() {
		g.Go(func() error {
			err := fn(m)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", m.Name(), err))
				mu.Unlock()
			}
			return err
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}
	return errors.Join(errs...)
}
