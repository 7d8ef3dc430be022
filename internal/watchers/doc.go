// Package watchers implements typed in-process publish/subscribe.
//
// An [Emitter] carries exactly one payload type, so every event name it serves has an explicit payload type.
// [Emitter.On] returns an unsubscribe function that may be called any number of times.
// [Subscribe] adds an [Options.OnlyStructural] filter for payloads implementing [Change],
// which lets list views ignore diffs that only mutate existing items.
//
// Handlers run synchronously on the emitting goroutine, outside the emitter's lock,
// so a handler may unsubscribe itself or register new handlers.
package watchers
