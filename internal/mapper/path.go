package mapper

import (
	"math/bits"

	"github.com/squallbio/squall/internal/config"
	"github.com/squallbio/squall/internal/index"
)

// EventType classifies one event outcome on a path.
type EventType uint8

const (
	// EventMatch is a progressing event: the path consumed a new base.
	// Its zero encoding is load-bearing: matchLen counts trailing zero
	// bits of the rolling history code.
	EventMatch EventType = iota
	// EventStay is a no-progress event: range and symbol are kept.
	EventStay

	numEventTypes
)

const (
	// maxPathLen bounds the counted path length and the rolling history
	// window. Extension past the bound keeps advancing the window but
	// stops growing the count.
	maxPathLen = 32

	typeBits = 1
	typeMask = 1<<typeBits - 1
)

// typeAdds is the outcome-indexed increment shifted into the rolling
// history code by makeChild.
var typeAdds = [numEventTypes]uint32{
	EventMatch: uint32(EventMatch),
	EventStay:  uint32(EventStay),
}

// PathBuffer is one alignment hypothesis: an index range plus the score
// and history metadata needed for seed validity and ranking. Hypotheses
// are value-copied across generation storage; the probability-sum buffer
// is owned through an arena handle that transfers, never aliases.
type PathBuffer struct {
	fmRange     index.Range
	kmer        uint16
	length      uint8 // capped at maxPathLen
	consecStays uint8
	matches     uint16 // uncapped progressing-event count
	eventTypes  uint32 // rolling outcome history, newest in the low bits
	typeCounts  [numEventTypes]uint8
	seedProb    float64 // mean probability over the trailing seed window
	probs       Handle
	emitted     bool  // this lineage already reported its signal
	parent      int32 // index into the previous generation; -1 for sources
}

// makeSource initializes a one-event hypothesis at a fresh range.
func (p *PathBuffer) makeSource(r index.Range, kmer uint16, prob float64, ar *probArena) {
	p.fmRange = r
	p.kmer = kmer
	p.length = 1
	p.consecStays = 0
	p.matches = 1
	p.eventTypes = typeAdds[EventMatch]
	p.typeCounts = [numEventTypes]uint8{}
	p.typeCounts[EventMatch] = 1
	p.seedProb = prob
	p.probs = ar.New(prob)
	p.emitted = false
	p.parent = -1
}

// makeChild duplicates parent and advances it by one event outcome.
func (p *PathBuffer) makeChild(parent *PathBuffer, r index.Range, kmer uint16, prob float64, typ EventType, ar *probArena, seedLen int) {
	*p = *parent
	p.fmRange = r
	p.kmer = kmer

	w := parent.window()
	if w == maxPathLen {
		// the oldest retained outcome falls off the window
		p.typeCounts[parent.typeTail()]--
	}
	if p.length < maxPathLen {
		p.length++
	}
	p.eventTypes = (parent.eventTypes<<typeBits | typeAdds[typ]) & windowMask(p.window())
	p.typeCounts[typ]++
	if typ == EventStay {
		p.consecStays++
	} else {
		p.consecStays = 0
		p.matches++
	}
	p.probs = ar.Extend(parent.probs, prob)
	sw := seedLen
	if int(p.length) < sw {
		sw = int(p.length)
	}
	p.seedProb = ar.WindowMean(p.probs, sw)
}

// invalidate marks the hypothesis dead and releases its buffer. Dead
// hypotheses are excluded from all subsequent processing and reporting.
func (p *PathBuffer) invalidate(ar *probArena) {
	p.fmRange = index.Empty
	if p.probs != noHandle {
		ar.Release(p.probs)
		p.probs = noHandle
	}
}

func (p *PathBuffer) valid() bool {
	return p.fmRange.Valid()
}

// window is the number of outcomes retained in the rolling history.
func (p *PathBuffer) window() int {
	if p.length > maxPathLen {
		return maxPathLen
	}
	return int(p.length)
}

func windowMask(w int) uint32 {
	if w >= 32 {
		return ^uint32(0)
	}
	return 1<<(uint(w)*typeBits) - 1
}

// typeHead is the most recent outcome.
func (p *PathBuffer) typeHead() EventType {
	return EventType(p.eventTypes & typeMask)
}

// typeTail is the oldest retained outcome.
func (p *PathBuffer) typeTail() EventType {
	w := p.window()
	return EventType(p.eventTypes >> (uint(w-1) * typeBits) & typeMask)
}

// matchLen is the current trailing progress run.
func (p *PathBuffer) matchLen() int {
	w := p.window()
	tz := bits.TrailingZeros32(p.eventTypes)
	if tz > w {
		tz = w
	}
	return tz
}

// isSeedValid reports whether the hypothesis may submit a seed this
// generation. hasChildren tells it whether the lineage survives: a dying
// path emits as a last chance, a growing one only once its range is
// already unique.
func (p *PathBuffer) isSeedValid(cfg *config.Params, hasChildren bool) bool {
	if p.emitted || !p.fmRange.Valid() {
		return false
	}
	if int(p.length) < cfg.SeedLen {
		return false
	}
	if int(p.consecStays) > cfg.MaxConsecStay {
		return false
	}
	if p.matchLen() < cfg.MinRepLen {
		return false
	}
	if float64(p.typeCounts[EventStay]) > cfg.MaxStayFrac*float64(p.window()) {
		return false
	}
	rl := p.fmRange.Length()
	if rl > cfg.MaxRepCopy {
		return false
	}
	if p.seedProb < cfg.ProbThresh(rl) {
		return false
	}
	return !hasChildren || rl == 1
}

// better is the total, deterministic frontier order: higher windowed
// probability first, then narrower range, then range start, then k-mer.
// Truncating to the width cap keeps exactly the top-ranked subset under
// this order.
func (p *PathBuffer) better(q *PathBuffer) bool {
	if p.seedProb != q.seedProb {
		return p.seedProb > q.seedProb
	}
	if pl, ql := p.fmRange.Length(), q.fmRange.Length(); pl != ql {
		return pl < ql
	}
	if p.fmRange.Start != q.fmRange.Start {
		return p.fmRange.Start < q.fmRange.Start
	}
	return p.kmer < q.kmer
}
