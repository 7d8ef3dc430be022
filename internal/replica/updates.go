package replica

import "fmt"

// ProgressUpdate represents a progress event while a model loads or syncs.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Model   string // Model name, e.g. "songs"
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	PhaseLoadCache Phase = iota
	PhaseBootstrapFetch
	PhaseBootstrapWrite
	PhaseSubscribe
	PhaseCycle
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoadCache:
		return "load_cache"
	case PhaseBootstrapFetch:
		return "bootstrap_fetch"
	case PhaseBootstrapWrite:
		return "bootstrap_write"
	case PhaseSubscribe:
		return "subscribe"
	case PhaseCycle:
		return "cycle"
	case PhaseFailed:
		return "failed"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func loadCacheUpdate(model string, count int) ProgressUpdate {
	return ProgressUpdate{
		Model:   model,
		Phase:   PhaseLoadCache,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("[%s] Loaded %d items from the local store", model, count),
	}
}

func bootstrapFetchUpdate(model string) ProgressUpdate {
	return ProgressUpdate{
		Model:   model,
		Phase:   PhaseBootstrapFetch,
		Step:    1,
		Total:   2,
		Message: fmt.Sprintf("[%s] No watermark, fetching entire collection...", model),
	}
}

func bootstrapWriteUpdate(model string, count int, watermark int64) ProgressUpdate {
	return ProgressUpdate{
		Model:   model,
		Phase:   PhaseBootstrapWrite,
		Step:    2,
		Total:   2,
		Message: fmt.Sprintf("[%s] Wrote %d items, watermark %d", model, count, watermark),
		Data:    watermark,
	}
}

func subscribeUpdate(model string, since int64) ProgressUpdate {
	return ProgressUpdate{
		Model:   model,
		Phase:   PhaseSubscribe,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("[%s] Watching changes updated >= %d", model, since),
		Data:    since,
	}
}

func cycleUpdate(model string, added, mutated, deleted int, watermark int64) ProgressUpdate {
	return ProgressUpdate{
		Model:   model,
		Phase:   PhaseCycle,
		Step:    added + mutated + deleted,
		Total:   added + mutated + deleted,
		Message: fmt.Sprintf("[%s] +%d ~%d -%d (watermark %d)", model, added, mutated, deleted, watermark),
		Data:    watermark,
	}
}

func failedUpdate(model string, err error) ProgressUpdate {
	return ProgressUpdate{
		Model:   model,
		Phase:   PhaseFailed,
		Message: fmt.Sprintf("[%s] %v", model, err),
		Data:    err,
	}
}
