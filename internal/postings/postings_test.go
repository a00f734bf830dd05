package postings

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionsBasics(t *testing.T) {
	p := NewPositions(3, 1, 2, 2)
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, []int{1, 2, 3}, p.Slice())
	assert.True(t, p.Contains(2))
	assert.False(t, p.Contains(0))
	assert.Equal(t, 1, p.Min())

	var zero Positions
	assert.True(t, zero.IsEmpty())
	assert.False(t, zero.Contains(0))
	assert.Nil(t, zero.Slice())
}

func TestPositionsUnionLaws(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	randomSet := func() Positions {
		n := rng.Intn(10)
		ps := make([]int, n)
		for i := range ps {
			ps[i] = rng.Intn(30)
		}
		return NewPositions(ps...)
	}

	for i := 0; i < 100; i++ {
		a, b, c := randomSet(), randomSet(), randomSet()

		// Commutative, associative, idempotent.
		assert.True(t, a.Union(b).Equal(b.Union(a)))
		assert.True(t, a.Union(b).Union(c).Equal(a.Union(b.Union(c))))
		assert.True(t, a.Union(a).Equal(a))

		// Membership distributes over union.
		u := a.Union(b)
		for p := 0; p < 30; p++ {
			assert.Equal(t, a.Contains(p) || b.Contains(p), u.Contains(p))
		}
	}
}

func TestPositionsUnionDoesNotMutate(t *testing.T) {
	a := NewPositions(1, 2)
	b := NewPositions(3)
	_ = a.Union(b)
	assert.Equal(t, []int{1, 2}, a.Slice())
	assert.Equal(t, []int{3}, b.Slice())
}

func TestPositionsIntersectAndDiff(t *testing.T) {
	a := NewPositions(1, 2, 3)
	b := NewPositions(2, 3, 4)
	assert.Equal(t, []int{2, 3}, a.Intersect(b).Slice())
	assert.Equal(t, []int{1}, a.Diff(b).Slice())
	assert.True(t, a.Diff(a).IsEmpty())
}

func TestOccurrencesUnion(t *testing.T) {
	a := NewOccurrences()
	a.Add(1, 0)
	a.Add(1, 5)
	a.Add(2, 1)
	b := NewOccurrences()
	b.Add(1, 3)
	b.Add(3, 7)

	u := a.Union(b)
	assert.Equal(t, 3, u.Size())
	assert.Equal(t, []int{0, 3, 5}, u[1].Slice())
	assert.Equal(t, []int{1}, u[2].Slice())
	assert.Equal(t, []int{7}, u[3].Slice())

	// Inputs untouched.
	assert.Equal(t, []int{0, 5}, a[1].Slice())
}

func TestOccurrencesIntersectDropsEmpty(t *testing.T) {
	a := NewOccurrences()
	a.Add(1, 0)
	a.Add(2, 4)
	b := NewOccurrences()
	b.Add(1, 9)
	b.Add(2, 4)

	got := a.Intersect(b)
	assert.Equal(t, 1, got.Size())
	assert.Equal(t, []int{4}, got[2].Slice())
}

func TestOccurrencesDiff(t *testing.T) {
	a := NewOccurrences()
	a.Add(1, 0)
	a.Add(1, 1)
	a.Add(2, 2)
	b := NewOccurrences()
	b.Add(1, 1)
	b.Add(2, 2)

	got := a.Diff(b)
	assert.Equal(t, 1, got.Size())
	assert.Equal(t, []int{0}, got[1].Slice())
}

func TestOccurrencesWithoutDocs(t *testing.T) {
	o := NewOccurrences()
	o.Add(1, 0)
	o.Add(2, 0)
	o.Add(3, 0)

	rest := o.WithoutDocs(NewDocIDSet(1, 3))
	assert.Equal(t, 1, rest.Size())
	assert.Contains(t, rest, DocID(2))
}

func TestCodecRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		o := NewOccurrences()
		for d := 0; d < rng.Intn(8); d++ {
			id := DocID(rng.Intn(1000))
			for p := 0; p <= rng.Intn(6); p++ {
				o.Add(id, rng.Intn(500))
			}
		}

		data, err := EncodeOccurrences(o)
		require.NoError(t, err)
		back, err := DecodeOccurrences(data)
		require.NoError(t, err)
		assert.True(t, o.Equal(back), "round trip %d", i)
	}
}

func TestCodecEmpty(t *testing.T) {
	data, err := EncodeOccurrences(NewOccurrences())
	require.NoError(t, err)
	back, err := DecodeOccurrences(data)
	require.NoError(t, err)
	assert.True(t, back.IsEmpty())
}

func TestDocIDSet(t *testing.T) {
	s := NewDocIDSet(5, 1, 5)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(1))
	assert.False(t, s.Contains(2))
	assert.Equal(t, []DocID{1, 5}, s.Slice())

	var nilSet *DocIDSet
	assert.False(t, nilSet.Contains(1))
	assert.Equal(t, 0, nilSet.Len())

	u := s.Union(NewDocIDSet(2))
	assert.Equal(t, []DocID{1, 2, 5}, u.Slice())
}
