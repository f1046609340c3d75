package mapper

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/squallbio/squall/internal/index"
	"github.com/squallbio/squall/internal/seeds"
)

func goldenPAF(t *testing.T, name string, loc ReadLoc) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(loc.PAF()+"\n"))
}

// TestPAF_Mapped renders a forward-strand hit.
func TestPAF_Mapped(t *testing.T) {
	loc := newReadLoc("read-1", 3, 17)
	loc.setRef(
		index.Loc{Name: "chr1", RefLen: 4641652, Start: 1000, End: 1475, Fwd: true},
		seeds.Cluster{TextSt: 2000, TextEn: 2475, EvtSt: 477, EvtEn: 479, Count: 12},
		500,
		12345*time.Microsecond,
	)

	assert.True(t, loc.Mapped())
	assert.Equal(t, int64(500), loc.RdLen)
	assert.Equal(t, int64(3), loc.RdSt) // 477 - 475 + 1
	assert.Equal(t, int64(480), loc.RdEn)
	goldenPAF(t, "paf_mapped_fwd", loc)
}

// TestPAF_MappedReverse renders a reverse-strand hit.
func TestPAF_MappedReverse(t *testing.T) {
	loc := newReadLoc("read-2", 3, 18)
	loc.setRef(
		index.Loc{Name: "chr2", RefLen: 48129895, Start: 900, End: 960, Fwd: false},
		seeds.Cluster{TextSt: 100, TextEn: 160, EvtSt: 59, EvtEn: 62, Count: 4},
		80,
		2*time.Millisecond,
	)

	assert.Equal(t, int64(0), loc.RdSt) // clamped: 59 - 60 + 1
	goldenPAF(t, "paf_mapped_rev", loc)
}

// TestPAF_Unmapped renders the unmapped placeholder line.
func TestPAF_Unmapped(t *testing.T) {
	loc := newReadLoc("read-3", 3, 19)
	loc.finish(40, 7500*time.Microsecond)

	assert.False(t, loc.Mapped())
	goldenPAF(t, "paf_unmapped", loc)
}
