package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/shared"
)

// Collection provides typed access to one collection of a [Store].
type Collection[T models.Model] struct {
	store DocumentStore
	name  string
}

// NewCollection binds name on store to the model type T.
func NewCollection[T models.Model](store DocumentStore, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

// Get decodes the item stored under key.
func (c *Collection[T]) Get(ctx context.Context, key string) (T, error) {
	var item T
	raw, err := c.store.Get(ctx, c.name, key)
	if err != nil {
		return item, err
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("%w: failed to decode %s/%s: %w", shared.ErrStorageUnavailable, c.name, key, err)
	}
	return item, nil
}

// All decodes every item in the collection.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	docs, err := c.store.GetAll(ctx, c.name)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := json.Unmarshal(doc.Value, &item); err != nil {
			return nil, fmt.Errorf("%w: failed to decode %s/%s: %w", shared.ErrStorageUnavailable, c.name, doc.Key, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Put upserts item.
func (c *Collection[T]) Put(ctx context.Context, item T) error {
	doc, err := Encode(item)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, c.name, doc)
}

// PutBulk upserts items in one transaction.
func (c *Collection[T]) PutBulk(ctx context.Context, items []T) error {
	docs, err := EncodeAll(items)
	if err != nil {
		return err
	}
	return c.store.PutBulk(ctx, c.name, docs)
}

// Delete removes the item stored under key.
func (c *Collection[T]) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, c.name, key)
}

// Encode converts a model into a [Document].
func Encode[T models.Model](item T) (Document, error) {
	value, err := json.Marshal(item)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode %s: %w", item.Key(), err)
	}
	return Document{Key: item.Key(), UpdatedAt: item.Timestamp(), Value: value}, nil
}

// EncodeAll converts models into documents.
func EncodeAll[T models.Model](items []T) ([]Document, error) {
	docs := make([]Document, 0, len(items))
	for _, item := range items {
		doc, err := Encode(item)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
