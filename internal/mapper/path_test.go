package mapper

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squallbio/squall/internal/config"
	"github.com/squallbio/squall/internal/index"
)

func testParams(t *testing.T, seedLen int, minProb float64) *config.Params {
	t.Helper()
	cfg := config.Default()
	cfg.SeedLen = seedLen
	cfg.MinSeedProb = minProb
	require.NoError(t, cfg.Finalize())
	return cfg
}

func rng1(start int64) index.Range {
	return index.Range{Start: start, End: start}
}

// extend grows p by one outcome, releasing the parent buffer the way the
// engine does across generations.
func extend(p *PathBuffer, r index.Range, prob float64, typ EventType, ar *probArena, seedLen int) PathBuffer {
	var c PathBuffer
	c.makeChild(p, r, p.kmer, prob, typ, ar, seedLen)
	p.invalidate(ar)
	return c
}

// TestPath_SourceFields tests source initialization.
func TestPath_SourceFields(t *testing.T) {
	ar := newProbArena(maxPathLen + 1)
	var p PathBuffer
	p.makeSource(index.Range{Start: 3, End: 9}, 21, 0.75, ar)

	assert.True(t, p.valid())
	assert.Equal(t, uint8(1), p.length)
	assert.Equal(t, uint16(1), p.matches)
	assert.Equal(t, EventMatch, p.typeHead())
	assert.Equal(t, 1, p.matchLen())
	assert.Equal(t, 0.75, p.seedProb)
	assert.Equal(t, int32(-1), p.parent)
	assert.False(t, p.emitted)
}

// TestPath_ChildGrowth tests that a child is one event longer than its
// parent until the length cap, and that matches keep counting past it.
func TestPath_ChildGrowth(t *testing.T) {
	ar := newProbArena(maxPathLen + 1)
	var p PathBuffer
	p.makeSource(rng1(50), 0, 0.9, ar)

	for i := 2; i <= maxPathLen+10; i++ {
		p = extend(&p, rng1(int64(50-i)), 0.9, EventMatch, ar, 22)
		wantLen := i
		if wantLen > maxPathLen {
			wantLen = maxPathLen
		}
		assert.Equal(t, uint8(wantLen), p.length, "event %d", i)
		assert.Equal(t, uint16(i), p.matches, "event %d", i)
	}
	assert.Equal(t, 1, ar.Live())
}

// TestPath_HistoryDecoding tests the rolling outcome history: head, tail,
// trailing match run, and windowed stay counts.
func TestPath_HistoryDecoding(t *testing.T) {
	ar := newProbArena(maxPathLen + 1)
	var p PathBuffer
	p.makeSource(rng1(50), 0, 0.9, ar)

	p = extend(&p, rng1(49), 0.9, EventStay, ar, 22)
	assert.Equal(t, EventStay, p.typeHead())
	assert.Equal(t, EventMatch, p.typeTail())
	assert.Equal(t, 0, p.matchLen())
	assert.Equal(t, uint8(1), p.consecStays)
	assert.Equal(t, uint8(1), p.typeCounts[EventStay])

	p = extend(&p, rng1(48), 0.9, EventMatch, ar, 22)
	p = extend(&p, rng1(47), 0.9, EventMatch, ar, 22)
	assert.Equal(t, 2, p.matchLen())
	assert.Equal(t, uint8(0), p.consecStays)
	assert.Equal(t, uint8(3), p.typeCounts[EventMatch])

	// saturate the window with matches; the early stay must age out
	for i := 0; i < maxPathLen; i++ {
		p = extend(&p, rng1(int64(46-i)), 0.9, EventMatch, ar, 22)
	}
	assert.Equal(t, uint8(0), p.typeCounts[EventStay])
	assert.Equal(t, uint8(maxPathLen), p.typeCounts[EventMatch])
	assert.Equal(t, maxPathLen, p.matchLen())
}

// TestPath_InvalidateReleasesOnce tests that invalidation empties the
// range and releases the buffer exactly once.
func TestPath_InvalidateReleasesOnce(t *testing.T) {
	ar := newProbArena(maxPathLen + 1)
	var p PathBuffer
	p.makeSource(rng1(5), 0, 0.9, ar)
	require.Equal(t, 1, ar.Live())

	p.invalidate(ar)
	assert.False(t, p.valid())
	assert.Equal(t, 0, ar.Live())

	p.invalidate(ar) // second call is a no-op
	assert.Equal(t, 0, ar.Live())
}

// TestPath_SeedValidity walks a hypothesis to seed length and checks the
// gate under both probability regimes.
func TestPath_SeedValidity(t *testing.T) {
	ar := newProbArena(maxPathLen + 1)
	cfg := testParams(t, 10, 0.8)

	build := func(prob float64) PathBuffer {
		var p PathBuffer
		p.makeSource(rng1(100), 0, prob, ar)
		for i := 1; i < cfg.SeedLen; i++ {
			p = extend(&p, rng1(int64(100-i)), prob, EventMatch, ar, cfg.SeedLen)
		}
		return p
	}

	strong := build(0.9)
	assert.True(t, strong.isSeedValid(cfg, false))
	// a unique range may seed even while the lineage is still growing
	assert.True(t, strong.isSeedValid(cfg, true))

	// wide ranges must wait for the lineage to die
	wide := strong
	wide.fmRange = index.Range{Start: 100, End: 103}
	assert.True(t, wide.isSeedValid(cfg, false))
	assert.False(t, wide.isSeedValid(cfg, true))

	weak := build(0.5)
	assert.False(t, weak.isSeedValid(cfg, false))

	strong.emitted = true
	assert.False(t, strong.isSeedValid(cfg, false))
}

// TestPath_SeedValidity_Gates tests the remaining rejection conditions
// one at a time.
func TestPath_SeedValidity_Gates(t *testing.T) {
	ar := newProbArena(maxPathLen + 1)
	cfg := testParams(t, 5, 0.8)
	cfg.MaxConsecStay = 3
	cfg.MaxStayFrac = 0.5
	cfg.MaxRepCopy = 4

	var p PathBuffer
	p.makeSource(rng1(100), 0, 0.9, ar)
	for i := 1; i < cfg.SeedLen; i++ {
		p = extend(&p, rng1(int64(100-i)), 0.9, EventMatch, ar, cfg.SeedLen)
	}
	require.True(t, p.isSeedValid(cfg, false))

	tooShort := p
	tooShort.length = uint8(cfg.SeedLen - 1)
	assert.False(t, tooShort.isSeedValid(cfg, false))

	stalled := p
	stalled.consecStays = uint8(cfg.MaxConsecStay + 1)
	assert.False(t, stalled.isSeedValid(cfg, false))

	noRun := p
	noRun.eventTypes = p.eventTypes | uint32(EventStay) // newest outcome a stay
	assert.False(t, noRun.isSeedValid(cfg, false))

	stayHeavy := p
	stayHeavy.typeCounts[EventStay] = uint8(p.window()) // over MaxStayFrac
	assert.False(t, stayHeavy.isSeedValid(cfg, false))

	repetitive := p
	repetitive.fmRange = index.Range{Start: 100, End: 100 + int64(cfg.MaxRepCopy)}
	assert.False(t, repetitive.isSeedValid(cfg, false))
}

// TestPath_TruncationEquivalence tests that sort-then-keep-top-K equals
// iteratively discarding the minimum-ranked hypothesis until the cap.
func TestPath_TruncationEquivalence(t *testing.T) {
	ar := newProbArena(maxPathLen + 1)

	var paths []PathBuffer
	for i := 0; i < 20; i++ {
		var p PathBuffer
		prob := 0.5 + float64(i%7)*0.05
		p.makeSource(index.Range{Start: int64(i * 3), End: int64(i*3 + i%4)}, uint16(i%16), prob, ar)
		paths = append(paths, p)
	}
	const keep = 8

	sorted := append([]PathBuffer(nil), paths...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].better(&sorted[b]) })
	kept := sorted[:keep]

	dropMin := append([]PathBuffer(nil), paths...)
	for len(dropMin) > keep {
		worst := 0
		for i := 1; i < len(dropMin); i++ {
			if dropMin[worst].better(&dropMin[i]) {
				worst = i
			}
		}
		dropMin = append(dropMin[:worst], dropMin[worst+1:]...)
	}
	sort.Slice(dropMin, func(a, b int) bool { return dropMin[a].better(&dropMin[b]) })

	require.Len(t, dropMin, keep)
	for i := range kept {
		assert.Equal(t, kept[i].fmRange, dropMin[i].fmRange, "rank %d", i)
		assert.Equal(t, kept[i].kmer, dropMin[i].kmer, "rank %d", i)
	}
}

// TestPath_BetterOrdering tests the frontier ranking order and that
// truncation keeps exactly the top-ranked subset.
func TestPath_BetterOrdering(t *testing.T) {
	ar := newProbArena(maxPathLen + 1)

	mk := func(prob float64, start, end int64, kmer uint16) PathBuffer {
		var p PathBuffer
		p.makeSource(index.Range{Start: start, End: end}, kmer, prob, ar)
		return p
	}

	paths := []PathBuffer{
		mk(0.7, 10, 12, 0), // lower prob
		mk(0.9, 10, 12, 0), // wider range
		mk(0.9, 20, 20, 1), // later start
		mk(0.9, 5, 5, 3),   // larger kmer
		mk(0.9, 5, 5, 2),   // best
	}

	sort.Slice(paths, func(a, b int) bool { return paths[a].better(&paths[b]) })

	assert.Equal(t, uint16(2), paths[0].kmer)
	assert.Equal(t, uint16(3), paths[1].kmer)
	assert.Equal(t, int64(20), paths[2].fmRange.Start)
	assert.Equal(t, int64(3), paths[3].fmRange.Length())
	assert.InDelta(t, 0.7, paths[4].seedProb, 1e-12)
}
