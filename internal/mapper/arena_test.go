package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestArena_WindowMean tests the O(1) trailing-mean query.
func TestArena_WindowMean(t *testing.T) {
	a := newProbArena(8)

	h := a.New(0.5)
	assert.Equal(t, 0.5, a.WindowMean(h, 1))
	assert.Equal(t, 0.5, a.WindowMean(h, 10)) // clamped to recorded count

	h2 := a.Extend(h, 0.7)
	h3 := a.Extend(h2, 0.9)
	assert.InDelta(t, 0.9, a.WindowMean(h3, 1), 1e-12)
	assert.InDelta(t, 0.8, a.WindowMean(h3, 2), 1e-12)
	assert.InDelta(t, 0.7, a.WindowMean(h3, 3), 1e-12)
}

// TestArena_ExtendCopies tests that a child's buffer never aliases the
// parent's: extending the parent again must not disturb the child.
func TestArena_ExtendCopies(t *testing.T) {
	a := newProbArena(8)

	parent := a.New(0.4)
	child := a.Extend(parent, 0.8)
	sibling := a.Extend(parent, 0.2)

	assert.InDelta(t, 0.6, a.WindowMean(child, 2), 1e-12)
	assert.InDelta(t, 0.3, a.WindowMean(sibling, 2), 1e-12)
	assert.InDelta(t, 0.4, a.WindowMean(parent, 1), 1e-12)
}

// TestArena_SlideAtCapacity tests that a saturated buffer keeps trailing
// differences intact while absolute sums shift.
func TestArena_SlideAtCapacity(t *testing.T) {
	const width = 4 // capacity for 3 recorded probabilities
	a := newProbArena(width)

	h := a.New(0.1)
	h = extendAndRelease(a, h, 0.2)
	h = extendAndRelease(a, h, 0.3)
	// buffer is full now; this extension slides
	h = extendAndRelease(a, h, 0.4)

	assert.InDelta(t, 0.4, a.WindowMean(h, 1), 1e-12)
	assert.InDelta(t, 0.35, a.WindowMean(h, 2), 1e-12)
	assert.InDelta(t, 0.3, a.WindowMean(h, 3), 1e-12)
	// asking past retention clamps to what is held
	assert.InDelta(t, 0.3, a.WindowMean(h, 10), 1e-12)
}

func extendAndRelease(a *probArena, h Handle, p float64) Handle {
	next := a.Extend(h, p)
	a.Release(h)
	return next
}

// TestArena_LiveAccounting tests exactly-once ownership bookkeeping and
// free-list reuse.
func TestArena_LiveAccounting(t *testing.T) {
	a := newProbArena(8)
	assert.Equal(t, 0, a.Live())

	h1 := a.New(0.5)
	h2 := a.Extend(h1, 0.5)
	assert.Equal(t, 2, a.Live())

	a.Release(h1)
	assert.Equal(t, 1, a.Live())
	a.Release(noHandle) // no-op
	assert.Equal(t, 1, a.Live())

	// released buffers are reused
	h3 := a.New(0.9)
	assert.Equal(t, h1, h3)
	assert.Equal(t, 2, a.Live())
	assert.Equal(t, 0.9, a.WindowMean(h3, 1))

	a.Release(h2)
	a.Release(h3)
	require.Equal(t, 0, a.Live())
}
