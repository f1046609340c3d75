// Package config holds the immutable per-run mapping parameters and the
// derived probability-threshold table. A Params value is validated once
// at construction and then shared read-only across all channel workers.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/squallbio/squall/internal/event"
)

// Threshold is one entry of the probability-threshold table: seeds whose
// index range is at least RangeLen positions long must reach MinProb.
// Longer (less distinctive) ranges never require a higher bar than
// shorter ones, so the table is ascending in RangeLen and non-increasing
// in MinProb.
type Threshold struct {
	RangeLen int64   `yaml:"range_len"`
	MinProb  float64 `yaml:"min_prob"`
}

// Params are the per-run mapping settings.
type Params struct {
	SeedLen       int     `yaml:"seed_len"`        // events needed before a path may seed
	MinAlnLen     int64   `yaml:"min_aln_len"`     // minimum matched reference span
	MinRepLen     int     `yaml:"min_rep_len"`     // minimum trailing progress run at emission
	MaxRepCopy    int64   `yaml:"max_rep_copy"`    // widest range a seed may span
	MaxConsecStay int     `yaml:"max_consec_stay"` // no-progress streak cap
	MaxPaths      int     `yaml:"max_paths"`       // frontier width cap
	MaxEventsProc int     `yaml:"max_events_proc"` // per-read event budget
	EvtBatchSize  int     `yaml:"evt_batch_size"`  // events processed per chunk
	MaxStayFrac   float64 `yaml:"max_stay_frac"`   // stall fraction cap over the window
	MinSeedProb   float64 `yaml:"min_seed_prob"`   // default threshold-table entry
	MinMeanConf   float64 `yaml:"min_mean_conf"`   // cluster mean-confidence floor
	MinTopConf    float64 `yaml:"min_top_conf"`    // cluster top-confidence floor

	Event event.Params `yaml:"event"`

	// Thresholds is the probability-threshold table; when empty it is
	// derived as the single entry {1, MinSeedProb}.
	Thresholds []Threshold `yaml:"thresholds"`
}

// Default returns the standard run parameters.
func Default() *Params {
	return &Params{
		SeedLen:       22,
		MinAlnLen:     25,
		MinRepLen:     1,
		MaxRepCopy:    50,
		MaxConsecStay: 8,
		MaxPaths:      10000,
		MaxEventsProc: 30000,
		EvtBatchSize:  250,
		MaxStayFrac:   0.5,
		MinSeedProb:   0.8,
		MinMeanConf:   2.0,
		MinTopConf:    1.5,
		Event:         event.DefaultParams(),
	}
}

// Load reads a YAML parameter file over the defaults and validates it.
func Load(path string) (*Params, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := p.Finalize(); err != nil {
		return nil, err
	}
	return p, nil
}

// Finalize derives the threshold table when none was given, then
// validates. Callers constructing Params in code use this instead of
// Validate.
func (p *Params) Finalize() error {
	if len(p.Thresholds) == 0 {
		p.Thresholds = []Threshold{{RangeLen: 1, MinProb: p.MinSeedProb}}
	}
	return p.Validate()
}

// Validate checks the parameters and finalizes the derived threshold
// table. Malformed tables are unrecoverable at mapping time, so this
// must fail here, never in per-read operations.
func (p *Params) Validate() error {
	switch {
	case p.SeedLen < 1:
		return newValidationError(ErrCodeBadParam, "seed_len must be at least 1")
	case p.MaxPaths < 1:
		return newValidationError(ErrCodeBadParam, "max_paths must be at least 1")
	case p.MaxEventsProc < 1:
		return newValidationError(ErrCodeBadParam, "max_events_proc must be at least 1")
	case p.EvtBatchSize < 1:
		return newValidationError(ErrCodeBadParam, "evt_batch_size must be at least 1")
	case p.MaxRepCopy < 1:
		return newValidationError(ErrCodeBadParam, "max_rep_copy must be at least 1")
	case p.MaxConsecStay < 0:
		return newValidationError(ErrCodeBadParam, "max_consec_stay must not be negative")
	case p.MinSeedProb <= 0 || p.MinSeedProb > 1:
		return newValidationError(ErrCodeBadParam, "min_seed_prob must be in (0,1]")
	}
	if len(p.Thresholds) == 0 {
		return newValidationError(ErrCodeEmptyTable, "thresholds table is empty")
	}
	prev := Threshold{RangeLen: 0, MinProb: 1.0}
	for i, t := range p.Thresholds {
		if t.RangeLen <= prev.RangeLen {
			return newValidationError(ErrCodeNonMonotonic,
				fmt.Sprintf("thresholds[%d]: range_len %d not ascending", i, t.RangeLen))
		}
		if t.MinProb <= 0 || t.MinProb > 1 {
			return newValidationError(ErrCodeBadParam,
				fmt.Sprintf("thresholds[%d]: min_prob %v out of (0,1]", i, t.MinProb))
		}
		if t.MinProb > prev.MinProb {
			return newValidationError(ErrCodeNonMonotonic,
				fmt.Sprintf("thresholds[%d]: min_prob %v increases with range length", i, t.MinProb))
		}
		prev = t
	}
	return nil
}

// ProbThresh returns the minimum acceptable mean match probability for a
// seed spanning rangeLen index positions: the entry of the largest table
// length not exceeding rangeLen.
func (p *Params) ProbThresh(rangeLen int64) float64 {
	th := p.Thresholds[0].MinProb
	for _, t := range p.Thresholds {
		if rangeLen < t.RangeLen {
			break
		}
		th = t.MinProb
	}
	return th
}

// MaxEvents returns how many events the read may still process at
// eventIdx, capped by the per-chunk batch size.
func (p *Params) MaxEvents(eventIdx int) int {
	rem := p.MaxEventsProc - eventIdx
	if rem <= 0 {
		return 0
	}
	if rem > p.EvtBatchSize {
		return p.EvtBatchSize
	}
	return rem
}

// SourceProb is the baseline probability a brand-new hypothesis must
// reach: the strictest entry of the threshold table.
func (p *Params) SourceProb() float64 {
	return p.Thresholds[0].MinProb
}
