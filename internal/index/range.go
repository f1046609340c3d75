package index

import "fmt"

// Range is a closed interval [Start, End] of suffix-array positions.
// It identifies the set of reference positions still consistent with
// the symbols matched so far. An empty range means no position remains.
type Range struct {
	Start int64
	End   int64
}

// Empty is the canonical invalid range.
var Empty = Range{Start: 0, End: -1}

// Valid reports whether the range contains at least one position.
func (r Range) Valid() bool {
	return r.End >= r.Start
}

// Length returns the number of suffix-array positions in the range.
func (r Range) Length() int64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

func (r Range) String() string {
	if !r.Valid() {
		return "[empty]"
	}
	return fmt.Sprintf("[%d,%d]", r.Start, r.End)
}

// Searcher is the backward-extension query surface of the compressed
// full-text index. Implementations must be safe for concurrent readers:
// multiple channel workers query one shared index without locking.
type Searcher interface {
	// SymbolRange returns the range of all suffixes starting with sym.
	SymbolRange(sym byte) Range

	// Next performs one backward-extension step: it narrows r to the
	// suffixes preceded by sym. The result may be Empty.
	Next(r Range, sym byte) Range

	// SubRange returns the range matching pattern, given in genome order
	// (oldest base first). Equivalent to folding Next over the pattern.
	SubRange(pattern []byte) Range

	// Locate resolves up to max suffix-array positions inside r.
	Locate(r Range, max int) []int64

	// TextLen returns the length of the indexed text.
	TextLen() int64
}

// Fold runs a full backward search for pattern (genome order, oldest base
// first) by chaining Next. Implementations of Searcher may use it to
// provide SubRange.
func Fold(s Searcher, pattern []byte) Range {
	if len(pattern) == 0 {
		return Empty
	}
	r := s.SymbolRange(pattern[0])
	for i := 1; i < len(pattern) && r.Valid(); i++ {
		r = s.Next(r, pattern[i])
	}
	return r
}
