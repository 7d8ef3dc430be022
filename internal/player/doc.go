// Package player implements the playback queue.
//
// A [Queue] holds items in play order and drives a [Backend]. Shuffling reorders the
// items and keeps a [Mapping] between original and shuffled positions so the original
// order can be restored; the mapping functions ([NewShuffle], [Apply], [Restore],
// [Extend], [Remove]) are pure and keep the mapping a bijection.
//
// Every successful track change is reported to a [Recorder] in the background. [Outbox]
// stores reports the server did not accept and delivers them later.
package player
