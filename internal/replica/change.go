package replica

import "github.com/desertthunder/relisten/internal/models"

// ChangeType is the kind of notification delivered by the remote.
type ChangeType int

const (
	// Added reports a document entering the observed window.
	Added ChangeType = iota
	// Modified reports a document that changed while inside the window.
	Modified
	// Removed reports a document leaving the window. It does not mean deletion.
	Removed
)

func (t ChangeType) String() string {
	switch t {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// ParseChangeType converts a wire name to a [ChangeType].
func ParseChangeType(s string) (ChangeType, bool) {
	switch s {
	case "added":
		return Added, true
	case "modified":
		return Modified, true
	case "removed":
		return Removed, true
	default:
		return 0, false
	}
}

// Change is one remote notification.
type Change[T models.Model] struct {
	Type ChangeType
	Item T
}

// Kind is how a change was applied to the local list.
type Kind int

const (
	KindAdd Kind = iota
	KindMutate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindMutate:
		return "mutate"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Applied records a change that took effect.
type Applied[T models.Model] struct {
	Kind Kind
	Item T
}

// Diff is published after every successful cycle.
type Diff[T models.Model] struct {
	Model     string
	Items     []T          // full list after the cycle
	Changed   []T          // items touched by the cycle, deletions as their tombstone
	Changes   []Applied[T] // how each changed item was applied
	Watermark int64
	Initial   bool // true for the snapshot published right after load
}

// Structural reports whether the diff adds or removes items.
// Subscribers rendering list membership can skip mutation-only diffs.
func (d Diff[T]) Structural() bool {
	if d.Initial {
		return true
	}
	for _, c := range d.Changes {
		if c.Kind != KindMutate {
			return true
		}
	}
	return false
}

// Counts tallies the diff by kind.
func (d Diff[T]) Counts() (added, mutated, deleted int) {
	for _, c := range d.Changes {
		switch c.Kind {
		case KindAdd:
			added++
		case KindMutate:
			mutated++
		case KindDelete:
			deleted++
		}
	}
	return added, mutated, deleted
}
