// Package event segments a raw sample stream into discrete events and
// scales event measurements onto the model level space. Both stages are
// per-channel state machines driven one sample (or one event) at a time.
package event

// Event is a discrete summary of a short run of raw samples.
type Event struct {
	Mean   float64
	Stdv   float64
	Length int
}

// Params configures the segmenter.
type Params struct {
	BufLen     int     `yaml:"buf_len"`     // sample history retained per read
	Window1    int     `yaml:"window1"`     // short t-stat window
	Window2    int     `yaml:"window2"`     // long t-stat window
	Thresh1    float64 `yaml:"thresh1"`     // short detector threshold
	Thresh2    float64 `yaml:"thresh2"`     // long detector threshold
	PeakHeight float64 `yaml:"peak_height"` // required drop to confirm a peak
	MinMean    float64 `yaml:"min_mean"`    // events outside these bounds are dropped
	MaxMean    float64 `yaml:"max_mean"`
}

// DefaultParams mirrors the usual nanopore segmentation settings.
func DefaultParams() Params {
	return Params{
		BufLen:     30000,
		Window1:    3,
		Window2:    6,
		Thresh1:    1.4,
		Thresh2:    9.0,
		PeakHeight: 0.2,
		MinMean:    30,
		MaxMean:    150,
	}
}
