package model

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel(t *testing.T, k int) *Model {
	t.Helper()
	n := 1 << (2 * k)
	means := make([]float64, n)
	stdvs := make([]float64, n)
	for i := range means {
		means[i] = float64(i)
		stdvs[i] = 2
	}
	m, err := New(k, means, stdvs)
	require.NoError(t, err)
	return m
}

// TestEncodeKmer_RoundTrip tests code/base round trips.
func TestEncodeKmer_RoundTrip(t *testing.T) {
	m := testModel(t, 3)

	for _, s := range []string{"AAA", "ACG", "TTT", "GAT"} {
		code, err := EncodeKmer(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(m.KmerBases(code)))
	}

	// spot checks against the positional encoding
	code, err := EncodeKmer("ACG")
	require.NoError(t, err)
	assert.Equal(t, uint16(0<<4|1<<2|2), code)

	_, err = EncodeKmer("ANG")
	assert.Error(t, err)

	code, ok := EncodeBases([]byte("TT"))
	require.True(t, ok)
	assert.Equal(t, uint16(15), code)

	_, ok = EncodeBases([]byte("TX"))
	assert.False(t, ok)
}

// TestNextKmer_ShiftsNewestBase tests the progressing-event transition.
func TestNextKmer_ShiftsNewestBase(t *testing.T) {
	m := testModel(t, 3)

	acg, _ := EncodeKmer("ACG")
	cgt, _ := EncodeKmer("CGT")
	assert.Equal(t, cgt, m.NextKmer(acg, 3))
	assert.Equal(t, byte('T'), m.NewestBase(cgt))

	// the oldest base falls off
	ttt, _ := EncodeKmer("TTT")
	tta, _ := EncodeKmer("TTA")
	assert.Equal(t, tta, m.NextKmer(ttt, 0))
}

// TestMatchProb_GaussianShape tests the score scale and symmetry.
func TestMatchProb_GaussianShape(t *testing.T) {
	m := testModel(t, 2)

	code := uint16(5) // level 5, stdv 2
	assert.Equal(t, 1.0, m.MatchProb(code, 5))
	assert.InDelta(t, math.Exp(-0.5), m.MatchProb(code, 7), 1e-12)
	assert.Equal(t, m.MatchProb(code, 3), m.MatchProb(code, 7))
	assert.Less(t, m.MatchProb(code, 50), 1e-9)
}

// TestNew_Validation tests construction failures.
func TestNew_Validation(t *testing.T) {
	_, err := New(0, nil, nil)
	assert.Error(t, err)

	_, err = New(2, make([]float64, 3), make([]float64, 16))
	assert.Error(t, err)

	means := make([]float64, 16)
	stdvs := make([]float64, 16)
	_, err = New(2, means, stdvs) // zero stdv
	assert.Error(t, err)
}

// TestLoad_TSV tests the pore model file parser.
func TestLoad_TSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.tsv")
	var data string
	data += "#r9.4 template\n"
	data += "kmer\tlevel_mean\tlevel_stdv\n"
	for code := 0; code < 16; code++ {
		bases := make([]byte, 2)
		bases[0] = Bases[(code>>2)&3]
		bases[1] = Bases[code&3]
		data += string(bases) + "\t" + "100.5" + "\t" + "1.5" + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, m.K())
	assert.Equal(t, 16, m.NumKmers())
	assert.Equal(t, 100.5, m.Mean(7))
	assert.Equal(t, 100.5, m.LevelMean())
}

// TestLoad_Malformed tests parser failures.
func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.tsv")
	require.NoError(t, os.WriteFile(bad, []byte("AX\t90\t2\n"), 0o644))
	_, err := Load(bad)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.tsv")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0o644))
	_, err = Load(empty)
	assert.Error(t, err)
}
