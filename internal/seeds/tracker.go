// Package seeds clusters seed observations submitted by the streaming
// mapper and aggregates per-cluster confidence. Seeds from one true
// alignment share a diagonal: their suffix-array position plus event
// index is invariant as the read advances, so seeds are bucketed by that
// diagonal and the dominant bucket wins.
package seeds

import (
	"math"
	"sort"

	"github.com/squallbio/squall/internal/index"
)

// Seed is one qualifying hypothesis submitted by the mapper.
type Seed struct {
	Range    index.Range
	EventIdx int   // event at which the seed was emitted
	MatchLen int64 // matched bases spanned by the seed's pattern
	Prob     float64
}

// Cluster is an aggregated group of seeds believed to share one true
// reference location. Coordinates are in index-text space; the mapper
// translates them through the reference table.
type Cluster struct {
	TextSt   int64 // smallest suffix-array position
	TextEn   int64 // largest suffix-array position plus its match length
	EvtSt    int64 // earliest contributing event
	EvtEn    int64 // latest contributing event
	Count    int
	Prob     float64 // summed seed probabilities
	TopConf  float64 // count ratio against the runner-up cluster
	MeanConf float64 // count ratio against the mean of the other clusters
}

type bucket struct {
	diag   int64 // representative diagonal (position + event index)
	textSt int64
	textEn int64
	evtSt  int64
	evtEn  int64
	count  int
	prob   float64
}

// Tracker accumulates seeds for one read. One tracker per channel; the
// shared index is only read.
type Tracker struct {
	idx       index.Searcher
	maxLocate int
	slack     int64
	buckets   []bucket
}

// NewTracker builds a tracker. maxLocate caps how many positions one
// seed range is resolved to; slack is the diagonal tolerance, which must
// absorb the drift introduced by no-progress events.
func NewTracker(idx index.Searcher, maxLocate int, slack int64) *Tracker {
	return &Tracker{idx: idx, maxLocate: maxLocate, slack: slack}
}

// Reset discards all per-read state.
func (t *Tracker) Reset() {
	t.buckets = t.buckets[:0]
}

// Add resolves the seed's range and folds each position into the bucket
// sharing its diagonal, creating one if none is close enough.
func (t *Tracker) Add(s Seed) {
	for _, pos := range t.idx.Locate(s.Range, t.maxLocate) {
		d := pos + int64(s.EventIdx)
		b := t.find(d)
		if b == nil {
			t.buckets = append(t.buckets, bucket{
				diag:   d,
				textSt: pos,
				textEn: pos + s.MatchLen,
				evtSt:  int64(s.EventIdx),
				evtEn:  int64(s.EventIdx),
				count:  1,
				prob:   s.Prob,
			})
			continue
		}
		if pos < b.textSt {
			b.textSt = pos
		}
		if pos+s.MatchLen > b.textEn {
			b.textEn = pos + s.MatchLen
		}
		if int64(s.EventIdx) < b.evtSt {
			b.evtSt = int64(s.EventIdx)
		}
		if int64(s.EventIdx) > b.evtEn {
			b.evtEn = int64(s.EventIdx)
		}
		b.count++
		b.prob += s.Prob
	}
}

func (t *Tracker) find(d int64) *bucket {
	for i := range t.buckets {
		delta := d - t.buckets[i].diag
		if delta < 0 {
			delta = -delta
		}
		if delta <= t.slack {
			return &t.buckets[i]
		}
	}
	return nil
}

// Best returns the highest-count cluster with its confidence scores.
// With a single bucket both confidences degenerate to the raw count.
func (t *Tracker) Best() (Cluster, bool) {
	if len(t.buckets) == 0 {
		return Cluster{}, false
	}
	order := make([]int, len(t.buckets))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ba, bb := &t.buckets[order[a]], &t.buckets[order[b]]
		if ba.count != bb.count {
			return ba.count > bb.count
		}
		if ba.prob != bb.prob {
			return ba.prob > bb.prob
		}
		return ba.diag < bb.diag
	})
	top := &t.buckets[order[0]]
	c := Cluster{
		TextSt: top.textSt,
		TextEn: top.textEn,
		EvtSt:  top.evtSt,
		EvtEn:  top.evtEn,
		Count:  top.count,
		Prob:   top.prob,
	}
	if len(order) == 1 {
		c.TopConf = float64(top.count)
		c.MeanConf = float64(top.count)
		return c, true
	}
	second := &t.buckets[order[1]]
	c.TopConf = float64(top.count) / math.Max(float64(second.count), 1)
	var rest float64
	for _, i := range order[1:] {
		rest += float64(t.buckets[i].count)
	}
	c.MeanConf = float64(top.count) / (rest / float64(len(order)-1))
	return c, true
}
