package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/shared"
)

// WatermarkRepository reads and writes per-model watermarks in the [Watermarks] collection.
type WatermarkRepository struct {
	store DocumentStore
}

// NewWatermarkRepository creates a new WatermarkRepository for store.
func NewWatermarkRepository(store DocumentStore) *WatermarkRepository {
	return &WatermarkRepository{store: store}
}

// Get returns the watermark for model. ok is false when none has been stored,
// which means the model has never been bootstrapped.
func (r *WatermarkRepository) Get(ctx context.Context, model string) (value int64, ok bool, err error) {
	raw, err := r.store.Get(ctx, Watermarks, model)
	if errors.Is(err, shared.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	var w models.Watermark
	if err := json.Unmarshal(raw, &w); err != nil {
		return 0, false, fmt.Errorf("%w: failed to decode watermark %s: %w", shared.ErrStorageUnavailable, model, err)
	}
	return w.Value, true, nil
}

// List returns every stored watermark.
func (r *WatermarkRepository) List(ctx context.Context) ([]models.Watermark, error) {
	docs, err := r.store.GetAll(ctx, Watermarks)
	if err != nil {
		return nil, err
	}

	marks := make([]models.Watermark, 0, len(docs))
	for _, doc := range docs {
		var w models.Watermark
		if err := json.Unmarshal(doc.Value, &w); err != nil {
			return nil, fmt.Errorf("%w: failed to decode watermark %s: %w", shared.ErrStorageUnavailable, doc.Key, err)
		}
		marks = append(marks, w)
	}
	return marks, nil
}

// Set stores the watermark for model.
func (r *WatermarkRepository) Set(ctx context.Context, model string, value int64) error {
	var b Batch
	if err := StageWatermark(&b, model, value); err != nil {
		return err
	}
	return r.store.Commit(ctx, b)
}

// Reset removes the watermark for each model so the next load bootstraps.
func (r *WatermarkRepository) Reset(ctx context.Context, names ...string) error {
	var b Batch
	b.Delete(Watermarks, names...)
	return r.store.Commit(ctx, b)
}

// StageWatermark adds a watermark write to b so it commits together with list changes.
func StageWatermark(b *Batch, model string, value int64) error {
	data, err := json.Marshal(models.Watermark{Name: model, Value: value})
	if err != nil {
		return fmt.Errorf("failed to encode watermark for %s: %w", model, err)
	}
	b.Put(Watermarks, Document{Key: model, UpdatedAt: value, Value: data})
	return nil
}
