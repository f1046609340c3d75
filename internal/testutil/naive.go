// Package testutil provides deterministic test doubles for the mapping
// pipeline: a naive suffix-array Searcher checked against the compressed
// index, a synthetic pore model with well-separated levels, and signal
// generators.
package testutil

import (
	"bytes"
	"sort"

	"github.com/squallbio/squall/internal/index"
)

// NaiveIndex is a brute-force index.Searcher over an explicit suffix
// array. It is quadratic to build and linear to query, which is fine for
// the short texts tests use, and obviously correct, which is the point.
type NaiveIndex struct {
	text []byte
	sa   []int64
	rank []int64 // inverse of sa
}

// NewNaiveIndex builds the suffix array for text by direct sorting.
func NewNaiveIndex(text []byte) *NaiveIndex {
	n := len(text)
	sa := make([]int64, n)
	for i := range sa {
		sa[i] = int64(i)
	}
	sort.Slice(sa, func(a, b int) bool {
		return bytes.Compare(text[sa[a]:], text[sa[b]:]) < 0
	})
	rank := make([]int64, n)
	for i, p := range sa {
		rank[p] = int64(i)
	}
	return &NaiveIndex{text: text, sa: sa, rank: rank}
}

func (n *NaiveIndex) SymbolRange(sym byte) index.Range {
	r := index.Empty
	for i, p := range n.sa {
		if n.text[p] != sym {
			continue
		}
		if !r.Valid() {
			r.Start = int64(i)
		}
		r.End = int64(i)
	}
	return r
}

func (n *NaiveIndex) Next(r index.Range, sym byte) index.Range {
	out := index.Empty
	for i := r.Start; i <= r.End && i >= 0 && int(i) < len(n.sa); i++ {
		p := n.sa[i]
		if p == 0 || n.text[p-1] != sym {
			continue
		}
		j := n.rank[p-1]
		if !out.Valid() {
			out = index.Range{Start: j, End: j}
			continue
		}
		if j < out.Start {
			out.Start = j
		}
		if j > out.End {
			out.End = j
		}
	}
	return out
}

func (n *NaiveIndex) SubRange(pattern []byte) index.Range {
	return index.Fold(n, pattern)
}

func (n *NaiveIndex) Locate(r index.Range, max int) []int64 {
	if !r.Valid() {
		return nil
	}
	var out []int64
	for i := r.Start; i <= r.End && len(out) < max; i++ {
		out = append(out, n.sa[i])
	}
	return out
}

func (n *NaiveIndex) TextLen() int64 { return int64(len(n.text)) }

// BuildRef indexes a single named record the way the real index builder
// does, returning the naive searcher and the matching reference table.
func BuildRef(name string, genome []byte) (*NaiveIndex, *index.Reference) {
	ref := &index.Reference{
		Spans: []index.RefSpan{{Name: name, Off: 0, Len: int64(len(genome))}},
		TLen:  int64(len(genome)),
	}
	return NewNaiveIndex(index.IndexText(genome)), ref
}
