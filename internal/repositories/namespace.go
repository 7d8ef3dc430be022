package repositories

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relisten/internal/shared"
	"github.com/desertthunder/relisten/internal/watchers"
)

// Namespace events.
const (
	EventOpen  = "open"
	EventClose = "close"
)

// NamespaceEvent carries the user whose namespace opened or is about to close.
type NamespaceEvent struct {
	User  string
	Store *Store
}

// Namespaces owns the per-user [Store]. At most one namespace is open at a time.
//
// Switching users broadcasts [EventClose] for the previous user and waits for every
// handler to return before that store is closed and the next one is opened.
type Namespaces struct {
	cfg     shared.DatabaseConfig
	pathFor func(user string) string
	logger  *log.Logger
	events  *watchers.Emitter[NamespaceEvent]

	switching sync.Mutex

	mu    sync.RWMutex
	user  string
	store *Store
}

// NewNamespaces creates a namespace manager. pathFor maps a user id to its database file.
func NewNamespaces(cfg shared.DatabaseConfig, pathFor func(user string) string, logger *log.Logger) *Namespaces {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Namespaces{
		cfg:     cfg,
		pathFor: pathFor,
		logger:  logger.With("component", "namespaces"),
		events:  watchers.New[NamespaceEvent](),
	}
}

// On registers a handler for [EventOpen] or [EventClose].
func (n *Namespaces) On(event string, handler watchers.Handler[NamespaceEvent]) func() {
	return n.events.On(event, handler)
}

// Current returns the open store and its user, or nil when nothing is open.
func (n *Namespaces) Current() (*Store, string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.store, n.user
}

// Switch makes user the active namespace and returns its store.
// Switching to the already active user returns the open store unchanged.
func (n *Namespaces) Switch(ctx context.Context, user string) (*Store, error) {
	if user == "" || strings.ContainsAny(user, `/\`) || user == "." || user == ".." {
		return nil, fmt.Errorf("%w: invalid user id %q", shared.ErrInvalidArgument, user)
	}

	n.switching.Lock()
	defer n.switching.Unlock()

	if current, currentUser := n.Current(); current != nil && currentUser == user {
		return current, nil
	}

	if err := n.closeCurrent(); err != nil {
		n.logger.Warn("previous namespace did not close cleanly", "error", err)
	}

	store, err := OpenStore(ctx, n.pathFor(user), n.cfg)
	if err != nil {
		return nil, err
	}

	if err := store.CreateCollections(ctx, Songs, Playlists, Albums, Artists, Watermarks); err != nil {
		store.Close()
		return nil, err
	}

	n.mu.Lock()
	n.user, n.store = user, store
	n.mu.Unlock()

	n.logger.Info("namespace opened", "user", user, "path", store.Path())
	n.events.Emit(EventOpen, NamespaceEvent{User: user, Store: store})
	return store, nil
}

// Close closes the active namespace, if any.
func (n *Namespaces) Close() error {
	n.switching.Lock()
	defer n.switching.Unlock()
	return n.closeCurrent()
}

func (n *Namespaces) closeCurrent() error {
	store, user := n.Current()
	if store == nil {
		return nil
	}

	n.events.Emit(EventClose, NamespaceEvent{User: user, Store: store})

	n.mu.Lock()
	n.user, n.store = "", nil
	n.mu.Unlock()

	n.logger.Info("namespace closed", "user", user)
	return store.Close()
}
