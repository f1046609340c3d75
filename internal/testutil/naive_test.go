package testutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNaiveIndex_SuffixOrder tests the suffix array invariant directly.
func TestNaiveIndex_SuffixOrder(t *testing.T) {
	text := []byte("GCAAZTTGC")
	n := NewNaiveIndex(text)

	for i := 1; i < len(n.sa); i++ {
		prev := text[n.sa[i-1]:]
		cur := text[n.sa[i]:]
		assert.Negative(t, bytes.Compare(prev, cur), "suffix %d out of order", i)
	}
	for i, p := range n.sa {
		assert.Equal(t, int64(i), n.rank[p])
	}
}

// TestNaiveIndex_SymbolRangeCounts tests that symbol ranges cover exactly
// the occurrences.
func TestNaiveIndex_SymbolRangeCounts(t *testing.T) {
	text := []byte("ACGTACGT")
	n := NewNaiveIndex(text)

	for _, sym := range []byte("ACGT") {
		r := n.SymbolRange(sym)
		require.True(t, r.Valid())
		assert.Equal(t, int64(2), r.Length(), "symbol %c", sym)
		for _, pos := range n.Locate(r, 10) {
			assert.Equal(t, sym, text[pos])
		}
	}
	assert.False(t, n.SymbolRange('X').Valid())
}

// TestReadMeans_WalksKmers tests the signal generator against direct
// k-mer lookups.
func TestReadMeans_WalksKmers(t *testing.T) {
	m := SyntheticModel(3)
	seq := []byte("ACGTA")

	means := ReadMeans(m, seq)
	require.Len(t, means, 3)
	assert.NotEqual(t, means[0], means[1])

	assert.Empty(t, ReadMeans(m, []byte("AC")))
}

// TestRevComp tests strand inversion.
func TestRevComp(t *testing.T) {
	assert.Equal(t, "CGAT", string(RevComp([]byte("ATCG"))))
	assert.Equal(t, "ATCG", string(RevComp(RevComp([]byte("ATCG")))))
}

// TestGenome_Deterministic tests seeded reproducibility.
func TestGenome_Deterministic(t *testing.T) {
	a := Genome(7, 100)
	b := Genome(7, 100)
	c := Genome(8, 100)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	for _, base := range a {
		assert.Contains(t, []byte("ACGT"), base)
	}
}
