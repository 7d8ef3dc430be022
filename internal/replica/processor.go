package replica

import (
	"fmt"
	"slices"

	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/shared"
)

// Anomaly is a change that was observed but not applied.
type Anomaly struct {
	Key      string
	Local    int64
	Incoming int64
	Err      error
}

// Result is the outcome of [Process].
type Result[T models.Model] struct {
	Items     []T
	Applied   []Applied[T]
	Anomalies []Anomaly
	// MaxTimestamp is the greatest updatedAt among non-removed changes, 0 if there were none.
	MaxTimestamp int64
}

// Process classifies each change of batch against current and returns the resulting list.
// current is never modified.
//
//   - absent, not tombstoned: add
//   - absent, tombstoned: ignored, reported as an anomaly
//   - present, tombstoned: delete
//   - present, not tombstoned: mutate when incoming updatedAt >= local, otherwise rejected as out of order
//   - removed notifications: ignored and excluded from MaxTimestamp
//   - malformed items: ignored, reported as an anomaly and excluded from MaxTimestamp
func Process[T models.Model](current []T, batch []Change[T]) Result[T] {
	items := slices.Clone(current)
	positions := make(map[string]int, len(items))
	for i, item := range items {
		positions[item.Key()] = i
	}
	dropped := make(map[int]bool)

	var res Result[T]
	for _, change := range batch {
		if change.Type == Removed {
			continue
		}

		incoming := change.Item
		key := incoming.Key()
		if err := Check(incoming); err != nil {
			res.Anomalies = append(res.Anomalies, Anomaly{Key: key, Incoming: incoming.Timestamp(), Err: err})
			continue
		}
		if ts := incoming.Timestamp(); ts > res.MaxTimestamp {
			res.MaxTimestamp = ts
		}

		i, present := positions[key]
		switch {
		case !present && incoming.Tombstoned():
			res.Anomalies = append(res.Anomalies, Anomaly{
				Key:      key,
				Incoming: incoming.Timestamp(),
				Err:      fmt.Errorf("tombstone for %s which is not held locally", key),
			})
		case !present:
			positions[key] = len(items)
			items = append(items, incoming)
			res.Applied = append(res.Applied, Applied[T]{Kind: KindAdd, Item: incoming})
		case incoming.Tombstoned():
			dropped[i] = true
			delete(positions, key)
			res.Applied = append(res.Applied, Applied[T]{Kind: KindDelete, Item: incoming})
		case incoming.Timestamp() < items[i].Timestamp():
			res.Anomalies = append(res.Anomalies, Anomaly{
				Key:      key,
				Local:    items[i].Timestamp(),
				Incoming: incoming.Timestamp(),
				Err: fmt.Errorf("%w: %s local=%d incoming=%d",
					shared.ErrOutOfOrderUpdate, key, items[i].Timestamp(), incoming.Timestamp()),
			})
		default:
			items[i] = incoming
			res.Applied = append(res.Applied, Applied[T]{Kind: KindMutate, Item: incoming})
		}
	}

	if len(dropped) > 0 {
		kept := make([]T, 0, len(items)-len(dropped))
		for i, item := range items {
			if !dropped[i] {
				kept = append(kept, item)
			}
		}
		items = kept
	}

	res.Items = items
	return res
}

// Check reports whether item can be stored. Tombstones only need a key.
func Check[T models.Model](item T) error {
	if item.Key() == "" {
		return fmt.Errorf("%w: empty key", shared.ErrInvalidInput)
	}
	if item.Tombstoned() {
		return nil
	}
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}
	return nil
}
