// Package replica mirrors remote collections into the local store.
//
// # Loading
//
// A [Model] without a watermark bootstraps: it queries every live item from its [Source],
// writes them in one transaction and sets the watermark to the greatest updatedAt seen (0 when empty).
// A model with a watermark loads its cached list from the local store instead.
// Either way it then subscribes to changes with updatedAt >= watermark.
//
// # Cycles
//
// Each batch of changes is classified by [Process] into adds, mutations and deletions
// on a copy of the list. The copy, the changed documents and the new watermark are committed
// together, and only then swapped in and published as a [Diff].
// The watermark never moves backwards.
//
// # Engine
//
// [Engine] runs every registered model concurrently. Progress is reported on an optional
// channel of [ProgressUpdate] with non-blocking sends.
package replica
