package index

import "sort"

// The index text is laid out as
//
//	reverse(T) Sep complement(T)
//
// where T is the concatenation of all reference records separated by Sep.
// A backward-extension step prepends the newest base of the read, so the
// accumulated pattern is the read in reverse. Occurrences in the first
// half are forward-strand matches; occurrences in the second half are
// reverse-complement matches. Record separators keep matches from
// spanning records.

// RefSpan is one reference record inside the concatenated text T.
type RefSpan struct {
	Name string `yaml:"name"`
	Off  int64  `yaml:"off"`
	Len  int64  `yaml:"len"`
}

// Reference maps intervals of the index text back to named reference
// coordinates. It is immutable after construction and shared read-only
// across channel workers.
type Reference struct {
	Spans []RefSpan `yaml:"spans"`
	TLen  int64     `yaml:"tlen"`
}

// Loc is a resolved reference location.
type Loc struct {
	Name   string
	RefLen int64
	Start  int64
	End    int64
	Fwd    bool
}

// Coord translates an index-text interval [xSt, xEn) to reference
// coordinates. It reports false when the interval straddles the
// half-boundary or a record separator.
func (r *Reference) Coord(xSt, xEn int64) (Loc, bool) {
	if xEn <= xSt {
		return Loc{}, false
	}
	l := r.TLen
	var tSt, tEn int64
	var fwd bool
	switch {
	case xEn <= l: // first half: reverse(T), forward strand
		tSt, tEn = l-xEn, l-xSt
		fwd = true
	case xSt > l: // second half: complement(T), reverse strand
		tSt, tEn = xSt-l-1, xEn-l-1
		fwd = false
	default:
		return Loc{}, false
	}
	i := sort.Search(len(r.Spans), func(i int) bool {
		return r.Spans[i].Off+r.Spans[i].Len > tSt
	})
	if i >= len(r.Spans) {
		return Loc{}, false
	}
	sp := r.Spans[i]
	if tSt < sp.Off || tEn > sp.Off+sp.Len {
		return Loc{}, false
	}
	return Loc{
		Name:   sp.Name,
		RefLen: sp.Len,
		Start:  tSt - sp.Off,
		End:    tEn - sp.Off,
		Fwd:    fwd,
	}, true
}
