package lrfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newList(pairs ...[2]int64) *extentList {
	l := newExtentList()
	var tail *extentNode
	for _, p := range pairs {
		n := &extentNode{offset: p[0], length: p[1] - p[0] + 1}
		if tail == nil {
			l.head = n
		} else {
			tail.next = n
		}
		tail = n
	}
	return l
}

func assertOrdered(t *testing.T, l *extentList) {
	t.Helper()
	prev := (*extentNode)(nil)
	for n := l.head; n != nil; n = n.next {
		require.Greater(t, n.length, int64(0))
		if prev != nil {
			assert.Less(t, prev.end(), n.offset, "holes must not overlap or touch")
		}
		prev = n
	}
}

func TestRemoveRangeFullCover(t *testing.T) {
	l := newList([2]int64{100, 199})
	l.removeRange(50, 200)
	assert.True(t, l.empty())
	assertOrdered(t, l)
}

func TestRemoveRangeStrictlyInside(t *testing.T) {
	l := newList([2]int64{0, 999})
	l.removeRange(100, 50) // [100,149]
	assert.Equal(t, [][2]int64{{0, 99}, {150, 999}}, l.holes())
	assertOrdered(t, l)
}

func TestRemoveRangeLeftOverlap(t *testing.T) {
	l := newList([2]int64{100, 199})
	l.removeRange(50, 100) // [50,149]
	assert.Equal(t, [][2]int64{{150, 199}}, l.holes())
	assertOrdered(t, l)
}

func TestRemoveRangeRightOverlap(t *testing.T) {
	l := newList([2]int64{100, 199})
	l.removeRange(150, 100) // [150,249]
	assert.Equal(t, [][2]int64{{100, 149}}, l.holes())
	assertOrdered(t, l)
}

func TestRemoveRangeSpansMultipleHoles(t *testing.T) {
	l := newList([2]int64{0, 99}, [2]int64{200, 299}, [2]int64{320, 499})
	l.removeRange(50, 300) // [50,349] covers tail of first, all of second, head of third
	assert.Equal(t, [][2]int64{{0, 49}, {350, 499}}, l.holes())
	assertOrdered(t, l)
}

func TestRemoveRangeNoOverlapStopsEarly(t *testing.T) {
	l := newList([2]int64{500, 599})
	l.removeRange(0, 100)
	assert.Equal(t, [][2]int64{{500, 599}}, l.holes())
}

func TestRemoveRangeNoOverlapAdvances(t *testing.T) {
	l := newList([2]int64{0, 99}, [2]int64{500, 599})
	l.removeRange(200, 100)
	assert.Equal(t, [][2]int64{{0, 99}, {500, 599}}, l.holes())
}

// Invariant 2: a sequence of writes covering [0, size) leaves no holes.
func TestCompletenessEquivalence(t *testing.T) {
	const size = 4096
	l := newExtentList()
	l.init(0, size)

	for off := int64(0); off < size; off += 512 {
		l.removeRange(off, 512)
	}
	assert.True(t, l.empty())
}

// Invariant 1: order is preserved under arbitrary interleaved removals.
func TestHoleOrderInvariantUnderRandomRemovals(t *testing.T) {
	l := newExtentList()
	l.init(0, 10000)

	ranges := [][2]int64{
		{100, 50}, {3000, 20}, {9990, 5}, {500, 10}, {5000, 4000},
		{0, 10}, {9500, 100}, {2000, 1},
	}
	for _, r := range ranges {
		l.removeRange(r[0], r[1])
		assertOrdered(t, l)
	}
}

// Invariant 6: truncate-to-zero clears holes.
func TestTruncateToZeroClearsHoles(t *testing.T) {
	l := newExtentList()
	l.init(0, 4096)
	l.removeRange(0, 4096)
	assert.True(t, l.empty())
}

func TestCanServiceFullyInsideHole(t *testing.T) {
	l := newList([2]int64{100, 199})
	assert.False(t, l.canService(120, 10))
}

func TestCanServiceDisjointFromEveryHole(t *testing.T) {
	l := newList([2]int64{100, 199})
	assert.True(t, l.canService(0, 50))
	assert.True(t, l.canService(200, 50))
}

func TestCanServicePartialOverlapPanics(t *testing.T) {
	l := newList([2]int64{100, 199})
	assert.Panics(t, func() {
		l.canService(150, 100)
	})
}

func TestLastEndEmptyList(t *testing.T) {
	l := newExtentList()
	assert.Equal(t, int64(-1), l.lastEnd())
}
