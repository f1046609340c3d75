package event

import "math"

// Normalizer maps raw event means onto the model level space using
// running statistics of the events seen so far in the read (Welford's
// update). Until it has enough evidence, values pass through unchanged.
type Normalizer struct {
	targetMean float64
	targetStdv float64

	n    int
	mean float64
	m2   float64
}

// NewNormalizer builds a normalizer targeting the model's level
// distribution.
func NewNormalizer(targetMean, targetStdv float64) *Normalizer {
	return &Normalizer{targetMean: targetMean, targetStdv: targetStdv}
}

// Reset clears per-read running statistics.
func (z *Normalizer) Reset() {
	z.n = 0
	z.mean = 0
	z.m2 = 0
}

// Normalize folds x into the running statistics and returns it rescaled
// to the target distribution.
func (z *Normalizer) Normalize(x float64) float64 {
	z.n++
	d := x - z.mean
	z.mean += d / float64(z.n)
	z.m2 += d * (x - z.mean)

	if z.n < 2 {
		return x
	}
	sd := math.Sqrt(z.m2 / float64(z.n))
	if sd < 1e-9 {
		return x
	}
	return z.targetMean + (x-z.mean)/sd*z.targetStdv
}

// Identity is a pass-through normalizer for signals already on the model
// scale.
type Identity struct{}

func (Identity) Normalize(x float64) float64 { return x }
func (Identity) Reset()                      {}
