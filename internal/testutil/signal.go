package testutil

import (
	"math/rand"

	"github.com/squallbio/squall/internal/event"
	"github.com/squallbio/squall/internal/index"
	"github.com/squallbio/squall/internal/model"
)

// SyntheticModel builds a pore model whose k-mer levels are far apart
// (100 units, unit standard deviation), so an on-level event scores near
// 1 and every other k-mer scores near 0. Tests pair it with the identity
// normalizer.
func SyntheticModel(k int) *model.Model {
	n := 1 << (2 * uint(k))
	means := make([]float64, n)
	stdvs := make([]float64, n)
	for i := range means {
		means[i] = 100 * float64(i+1)
		stdvs[i] = 1
	}
	m, err := model.New(k, means, stdvs)
	if err != nil {
		panic(err)
	}
	return m
}

// Genome returns a deterministic pseudo-random base sequence.
func Genome(seed int64, n int) []byte {
	rng := rand.New(rand.NewSource(seed))
	g := make([]byte, n)
	for i := range g {
		g[i] = model.Bases[rng.Intn(4)]
	}
	return g
}

// RevComp returns the reverse complement of seq.
func RevComp(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[len(seq)-1-i] = index.Complement(b)
	}
	return out
}

// ReadMeans converts a base sequence into the ideal event-mean series a
// pore would produce for it under the given model: one event per k-mer
// of the sliding window.
func ReadMeans(m *model.Model, seq []byte) []float64 {
	k := m.K()
	if len(seq) < k {
		return nil
	}
	out := make([]float64, 0, len(seq)-k+1)
	for i := 0; i+k <= len(seq); i++ {
		code, ok := model.EncodeBases(seq[i : i+k])
		if !ok {
			continue
		}
		out = append(out, m.Mean(code))
	}
	return out
}

// StepDetector is a pass-through event segmenter: every sample becomes
// one event with that mean. It lets mapper tests feed exact event series
// without depending on boundary placement.
type StepDetector struct{}

func (StepDetector) Add(sample float32) (event.Event, bool) {
	return event.Event{Mean: float64(sample), Stdv: 0, Length: 1}, true
}

func (StepDetector) Reset() {}
