// Package model implements the probabilistic k-mer scoring model: the
// candidate-symbol space, k-mer encode/decode, and the per-event match
// probability. The model is immutable after construction and shared
// read-only across channel workers.
package model

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Bases is the symbol alphabet in code order.
const Bases = "ACGT"

var baseCode = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	t['A'], t['C'], t['G'], t['T'] = 0, 1, 2, 3
	return t
}()

// Model is a Gaussian pore model: each k-mer has an expected signal level
// and spread. The match probability of (k-mer, normalized event mean) is
// the normal density rescaled so an exact match scores 1.
type Model struct {
	k     int
	mask  uint16
	means []float64
	stdvs []float64

	lvMean float64 // mean of per-kmer levels, the normalizer target
	lvStdv float64
}

// New builds a model from per-kmer level means and spreads, indexed by
// k-mer code. Construction fails on a size mismatch or a non-positive
// spread; this is a configuration error, not a runtime one.
func New(k int, means, stdvs []float64) (*Model, error) {
	n := 1 << (2 * k)
	if k < 1 || k > 8 {
		return nil, fmt.Errorf("model: k=%d out of range", k)
	}
	if len(means) != n || len(stdvs) != n {
		return nil, fmt.Errorf("model: got %d/%d levels, want %d", len(means), len(stdvs), n)
	}
	m := &Model{
		k:     k,
		mask:  uint16(n - 1),
		means: means,
		stdvs: stdvs,
	}
	var sum, sumsq float64
	for i, mu := range means {
		if stdvs[i] <= 0 {
			return nil, fmt.Errorf("model: kmer %d has non-positive stdv", i)
		}
		sum += mu
		sumsq += mu * mu
	}
	m.lvMean = sum / float64(n)
	v := sumsq/float64(n) - m.lvMean*m.lvMean
	if v < 0 {
		v = 0
	}
	m.lvStdv = math.Sqrt(v)
	return m, nil
}

// Load reads a tab-separated pore model file: kmer, level_mean,
// level_stdv. Lines starting with '#' or a "kmer" header are skipped.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var k int
	var means, stdvs []float64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 || fields[0][0] == '#' || fields[0] == "kmer" {
			continue
		}
		if k == 0 {
			k = len(fields[0])
			n := 1 << (2 * k)
			means = make([]float64, n)
			stdvs = make([]float64, n)
		}
		code, err := EncodeKmer(fields[0])
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", path, err)
		}
		mu, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("model %s: level_mean for %s: %w", path, fields[0], err)
		}
		sd, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("model %s: level_stdv for %s: %w", path, fields[0], err)
		}
		means[code] = mu
		stdvs[code] = sd
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if k == 0 {
		return nil, fmt.Errorf("model %s: no levels", path)
	}
	return New(k, means, stdvs)
}

// K returns the k-mer length.
func (m *Model) K() int { return m.k }

// NumKmers returns the size of the candidate-symbol space.
func (m *Model) NumKmers() int { return len(m.means) }

// Mean returns the expected signal level of a k-mer.
func (m *Model) Mean(code uint16) float64 { return m.means[code] }

// LevelMean and LevelStdv describe the distribution of k-mer levels;
// the normalizer scales raw events onto this distribution.
func (m *Model) LevelMean() float64 { return m.lvMean }
func (m *Model) LevelStdv() float64 { return m.lvStdv }

// MatchProb scores a normalized event mean against a k-mer. The score is
// exp(-z^2/2) with z the standardized distance, so it lies in (0, 1] and
// equals 1 at the expected level.
func (m *Model) MatchProb(code uint16, normMean float64) float64 {
	z := (normMean - m.means[code]) / m.stdvs[code]
	return math.Exp(-0.5 * z * z)
}

// NextKmer shifts base (code 0..3) into the low end of kmer, the way one
// progressing event advances the candidate symbol.
func (m *Model) NextKmer(kmer uint16, base uint8) uint16 {
	return (kmer<<2 | uint16(base)) & m.mask
}

// NewestBase returns the base most recently shifted into the k-mer.
func (m *Model) NewestBase(kmer uint16) byte {
	return Bases[kmer&3]
}

// KmerBases decodes a k-mer code into bases in genome order.
func (m *Model) KmerBases(code uint16) []byte {
	out := make([]byte, m.k)
	for i := m.k - 1; i >= 0; i-- {
		out[i] = Bases[code&3]
		code >>= 2
	}
	return out
}

// EncodeKmer encodes a base string into a k-mer code.
func EncodeKmer(s string) (uint16, error) {
	var code uint16
	for i := 0; i < len(s); i++ {
		c := baseCode[s[i]]
		if c < 0 {
			return 0, fmt.Errorf("bad base %q in kmer %q", s[i], s)
		}
		code = code<<2 | uint16(c)
	}
	return code, nil
}

// EncodeBases encodes a byte slice of bases; it reports false if any
// base is outside ACGT.
func EncodeBases(s []byte) (uint16, bool) {
	var code uint16
	for _, b := range s {
		c := baseCode[b]
		if c < 0 {
			return 0, false
		}
		code = code<<2 | uint16(c)
	}
	return code, true
}
