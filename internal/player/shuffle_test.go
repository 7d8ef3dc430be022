package player

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, seed+1)) }

func TestNewShuffle(t *testing.T) {
	t.Run("Bijection over every size", func(t *testing.T) {
		r := seeded(1)
		for n := 0; n < 40; n++ {
			for _, first := range []int{-1, 0, n / 2, n - 1} {
				m := NewShuffle(n, first, r)
				require.True(t, m.Valid(n), "n=%d first=%d mapping=%+v", n, first, m)
				if first >= 0 && first < n {
					assert.Equal(t, first, m.From[0])
					assert.Equal(t, 0, m.To[first])
				}
			}
		}
	})

	t.Run("Apply then Restore is identity", func(t *testing.T) {
		items := []string{"a", "b", "c", "d", "e", "f"}
		m := NewShuffle(len(items), 3, seeded(7))

		shuffled := Apply(items, m)
		assert.Equal(t, "d", shuffled[0])
		assert.ElementsMatch(t, items, shuffled)
		assert.Equal(t, items, Restore(shuffled, m))
	})

	t.Run("Nil source", func(t *testing.T) {
		assert.True(t, NewShuffle(10, 4, nil).Valid(10))
	})
}

func TestMappingValid(t *testing.T) {
	tests := []struct {
		name string
		m    Mapping
		n    int
		want bool
	}{
		{"Empty", Mapping{}, 0, true},
		{"Identity", Mapping{To: []int{0, 1, 2}, From: []int{0, 1, 2}}, 3, true},
		{"Swapped", Mapping{To: []int{1, 0}, From: []int{1, 0}}, 2, true},
		{"Wrong length", Mapping{To: []int{0}, From: []int{0}}, 2, false},
		{"Not inverse", Mapping{To: []int{0, 1}, From: []int{1, 0}}, 2, false},
		{"Out of range", Mapping{To: []int{0, 2}, From: []int{0, 2}}, 2, false},
		{"Duplicate", Mapping{To: []int{0, 0}, From: []int{0, 0}}, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.Valid(tt.n))
		})
	}
}

func TestExtend(t *testing.T) {
	m := NewShuffle(4, 2, seeded(3))
	before := m.Clone()

	extended := Extend(m)

	require.True(t, extended.Valid(5))
	assert.Equal(t, 4, extended.To[4])
	assert.Equal(t, 4, extended.From[4])
	assert.Equal(t, before, m, "Extend must not modify its argument")
}

func TestRemove(t *testing.T) {
	t.Run("Keeps bijection and relative order", func(t *testing.T) {
		r := seeded(11)
		for trial := 0; trial < 200; trial++ {
			n := 1 + r.IntN(20)
			original := make([]int, n)
			for i := range original {
				original[i] = i * 10
			}

			m := NewShuffle(n, r.IntN(n), r)
			shuffled := Apply(original, m)

			p := r.IntN(n)
			removed := shuffled[p]
			next := Remove(m, p)
			remaining := slices.Delete(slices.Clone(shuffled), p, p+1)

			require.True(t, next.Valid(n-1), "trial %d", trial)

			want := slices.DeleteFunc(slices.Clone(original), func(v int) bool { return v == removed })
			assert.Equal(t, want, Restore(remaining, next), "trial %d", trial)
		}
	})

	t.Run("Last item", func(t *testing.T) {
		m := Remove(Mapping{To: []int{0}, From: []int{0}}, 0)
		assert.True(t, m.Valid(0))
	})
}

func TestShuffleSequence(t *testing.T) {
	r := seeded(42)
	items := []string{"a", "b", "c", "d", "e"}
	m := NewShuffle(len(items), 0, r)
	queue := Apply(items, m)

	for step := 0; step < 100; step++ {
		if len(queue) > 0 && r.IntN(2) == 0 {
			p := r.IntN(len(queue))
			queue = slices.Delete(queue, p, p+1)
			m = Remove(m, p)
		} else {
			queue = append(queue, string(rune('f'+step%20)))
			m = Extend(m)
		}
		require.True(t, m.Valid(len(queue)), "step %d", step)
		assert.Equal(t, queue, Apply(Restore(queue, m), m), "step %d", step)
	}
}
