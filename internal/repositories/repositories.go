// package repositories provides the namespaced local store for mirrored collections.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/relisten/internal/shared"
)

// Collection names used by the sync engine.
const (
	Songs      = "songs"
	Playlists  = "playlists"
	Albums     = "albums"
	Artists    = "artists"
	Watermarks = "watermarks"
)

// Document is one JSON value stored under a key.
type Document struct {
	Key       string
	UpdatedAt int64
	Value     json.RawMessage
}

// Batch groups writes that must land atomically.
//
// Puts and Deletes are keyed by collection name.
type Batch struct {
	Puts    map[string][]Document
	Deletes map[string][]string
}

// Put queues a document write.
func (b *Batch) Put(collection string, docs ...Document) {
	if b.Puts == nil {
		b.Puts = make(map[string][]Document)
	}
	b.Puts[collection] = append(b.Puts[collection], docs...)
}

// Delete queues key removals.
func (b *Batch) Delete(collection string, keys ...string) {
	if b.Deletes == nil {
		b.Deletes = make(map[string][]string)
	}
	b.Deletes[collection] = append(b.Deletes[collection], keys...)
}

// Empty reports whether the batch has no writes.
func (b *Batch) Empty() bool {
	for _, docs := range b.Puts {
		if len(docs) > 0 {
			return false
		}
	}
	for _, keys := range b.Deletes {
		if len(keys) > 0 {
			return false
		}
	}
	return true
}

// DocumentStore is the document surface of a [Store].
type DocumentStore interface {
	CreateCollections(ctx context.Context, names ...string) error
	Get(ctx context.Context, collection, key string) (json.RawMessage, error)
	GetAll(ctx context.Context, collection string) ([]Document, error)
	Put(ctx context.Context, collection string, doc Document) error
	PutBulk(ctx context.Context, collection string, docs []Document) error
	Delete(ctx context.Context, collection, key string) error
	Commit(ctx context.Context, b Batch) error
}

// Store is a durable set of named collections in one SQLite database.
//
// Every operation fails with [shared.ErrStorageUnavailable] once the store is closed
// or when the database rejects it.
type Store struct {
	db   *sql.DB
	path string

	mu          sync.RWMutex
	closed      bool
	collections map[string]struct{}
}

// NewStore wraps an already-migrated database and loads the registered collection names.
func NewStore(ctx context.Context, db *sql.DB, path string) (*Store, error) {
	s := &Store{db: db, path: path, collections: make(map[string]struct{})}

	rows, err := db.QueryContext(ctx, "SELECT name FROM collections")
	if err != nil {
		return nil, unavailable("failed to load collections", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, unavailable("failed to scan collection", err)
		}
		s.collections[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to iterate collections", err)
	}

	return s, nil
}

// OpenStore opens (creating if needed) the database at path and wraps it in a [Store].
func OpenStore(ctx context.Context, path string, cfg shared.DatabaseConfig) (*Store, error) {
	db, err := shared.OpenDatabase(ctx, path, cfg)
	if err != nil {
		return nil, err
	}

	s, err := NewStore(ctx, db, path)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close releases the database. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// CreateCollections registers collection names. Existing names are left untouched.
func (s *Store) CreateCollections(ctx context.Context, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return closedErr()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("failed to begin transaction", err)
	}
	defer tx.Rollback()

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO collections (name) VALUES (?)", name); err != nil {
			return unavailable("failed to create collection "+name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("failed to commit collections", err)
	}

	for _, name := range names {
		s.collections[name] = struct{}{}
	}
	return nil
}

// Get returns the value stored under key, or [shared.ErrNotFound].
func (s *Store) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	if err := s.check(collection); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM documents WHERE collection = ? AND key = ?", collection, key,
	).Scan(&value)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: %s/%s", shared.ErrNotFound, collection, key)
	case err != nil:
		return nil, unavailable("failed to get document", err)
	}
	return json.RawMessage(value), nil
}

// GetAll returns every document in collection ordered by updatedAt, then key.
func (s *Store) GetAll(ctx context.Context, collection string) ([]Document, error) {
	if err := s.check(collection); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, updated_at, value
		FROM documents
		WHERE collection = ?
		ORDER BY updated_at ASC, key ASC
	`, collection)
	if err != nil {
		return nil, unavailable("failed to query documents", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc   Document
			value string
		)
		if err := rows.Scan(&doc.Key, &doc.UpdatedAt, &value); err != nil {
			return nil, unavailable("failed to scan document", err)
		}
		doc.Value = json.RawMessage(value)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to iterate documents", err)
	}

	return docs, nil
}

// Put upserts doc into collection.
func (s *Store) Put(ctx context.Context, collection string, doc Document) error {
	var b Batch
	b.Put(collection, doc)
	return s.Commit(ctx, b)
}

// PutBulk upserts docs into collection in one transaction.
func (s *Store) PutBulk(ctx context.Context, collection string, docs []Document) error {
	var b Batch
	b.Put(collection, docs...)
	return s.Commit(ctx, b)
}

// Delete removes key from collection. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	var b Batch
	b.Delete(collection, key)
	return s.Commit(ctx, b)
}

// Commit applies every put and delete of b in a single transaction.
// Either all writes land or none do.
func (s *Store) Commit(ctx context.Context, b Batch) error {
	for collection := range b.Puts {
		if err := s.check(collection); err != nil {
			return err
		}
	}
	for collection := range b.Deletes {
		if err := s.check(collection); err != nil {
			return err
		}
	}
	if b.Empty() {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("failed to begin transaction", err)
	}
	defer tx.Rollback()

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (collection, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	if err != nil {
		return unavailable("failed to prepare upsert", err)
	}
	defer upsert.Close()

	for collection, docs := range b.Puts {
		for _, doc := range docs {
			if doc.Key == "" {
				return fmt.Errorf("%w: empty key in %s", shared.ErrInvalidInput, collection)
			}
			if _, err := upsert.ExecContext(ctx, collection, doc.Key, string(doc.Value), doc.UpdatedAt); err != nil {
				return unavailable("failed to put document", err)
			}
		}
	}

	for collection, keys := range b.Deletes {
		for _, key := range keys {
			if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE collection = ? AND key = ?", collection, key); err != nil {
				return unavailable("failed to delete document", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("failed to commit batch", err)
	}
	return nil
}

// Count returns the number of documents in collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	if err := s.check(collection); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE collection = ?", collection).Scan(&n); err != nil {
		return 0, unavailable("failed to count documents", err)
	}
	return n, nil
}

func (s *Store) open() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return closedErr()
	}
	return nil
}

func (s *Store) check(collection string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return closedErr()
	}
	if _, ok := s.collections[collection]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrUnknownCollection, collection)
	}
	return nil
}

func closedErr() error {
	return fmt.Errorf("%w: %w", shared.ErrStorageUnavailable, shared.ErrNamespaceClosed)
}

func unavailable(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", shared.ErrStorageUnavailable, msg, err)
}
