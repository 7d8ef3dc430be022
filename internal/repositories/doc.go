// Package repositories implements the local store: durable, per-user collections on SQLite.
//
// A [Store] keeps JSON documents keyed by (collection, key) and writes them in transactions.
// [Store.Commit] applies a [Batch] of puts and deletes across collections atomically,
// which is how the sync engine lands list changes together with the new watermark.
//
// Key Implementations:
//   - [Collection] : typed access for one [models.Model] collection
//   - [WatermarkRepository] : per-model resumption points
//   - [PlayLogRepository] : outbox for play-count updates the remote has not acknowledged
//   - [Namespaces] : one open [Store] per user, with close broadcasts on user switch
package repositories
