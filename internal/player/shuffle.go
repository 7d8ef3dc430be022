package player

import "math/rand/v2"

// Mapping relates original queue positions to shuffled positions.
//
// To[i] is the shuffled position of the item originally at i and From[p] is the original
// position of the item shuffled to p. A valid mapping is a bijection over [0, n) in both
// directions and To and From are inverses.
type Mapping struct {
	To   []int
	From []int
}

// Len returns the number of positions covered.
func (m Mapping) Len() int { return len(m.From) }

// Valid reports whether m is a bijection over [0, n) with To and From inverse to each other.
func (m Mapping) Valid(n int) bool {
	if len(m.To) != n || len(m.From) != n {
		return false
	}
	for p, i := range m.From {
		if i < 0 || i >= n || m.To[i] != p {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of m.
func (m Mapping) Clone() Mapping {
	return Mapping{To: append([]int(nil), m.To...), From: append([]int(nil), m.From...)}
}

// NewShuffle returns a uniformly random mapping over n positions. When first is a valid
// position it is moved to shuffled position 0. A nil r uses the global source.
func NewShuffle(n, first int, r *rand.Rand) Mapping {
	from := make([]int, n)
	for i := range from {
		from[i] = i
	}

	swap := func(i, j int) { from[i], from[j] = from[j], from[i] }
	if r != nil {
		r.Shuffle(n, swap)
	} else {
		rand.Shuffle(n, swap)
	}

	m := Mapping{From: from, To: inverse(from)}
	if first >= 0 && first < n {
		pos := m.To[first]
		m.From[0], m.From[pos] = m.From[pos], m.From[0]
		m.To[m.From[0]], m.To[m.From[pos]] = 0, pos
	}
	return m
}

// Apply returns items in shuffled order.
func Apply[T any](items []T, m Mapping) []T {
	out := make([]T, len(m.From))
	for p, i := range m.From {
		out[p] = items[i]
	}
	return out
}

// Restore returns shuffled items in their original order.
func Restore[T any](shuffled []T, m Mapping) []T {
	out := make([]T, len(m.To))
	for i, p := range m.To {
		out[i] = shuffled[p]
	}
	return out
}

// Extend returns m with an identity entry for an item appended at position m.Len().
func Extend(m Mapping) Mapping {
	n := m.Len()
	next := m.Clone()
	next.To = append(next.To, n)
	next.From = append(next.From, n)
	return next
}

// Remove returns m without shuffled position p. Remaining positions on both sides are
// renumbered so the relative order of the other items is preserved.
func Remove(m Mapping, p int) Mapping {
	removed := m.From[p]
	from := make([]int, 0, m.Len()-1)
	for q, i := range m.From {
		if q == p {
			continue
		}
		if i > removed {
			i--
		}
		from = append(from, i)
	}
	return Mapping{From: from, To: inverse(from)}
}

func inverse(perm []int) []int {
	inv := make([]int, len(perm))
	for p, i := range perm {
		inv[i] = p
	}
	return inv
}
