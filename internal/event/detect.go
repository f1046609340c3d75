package event

import "math"

const varFloor = 1e-9

// Detector segments a raw sample stream with two Welch t-statistic
// windows: a short window that reacts to sharp level changes and a long
// window that catches slow drifts. A confirmed peak in either statistic
// is an event boundary; the event is summarized from the samples between
// consecutive boundaries.
//
// The detector holds a bounded ring of recent samples (Params.BufLen),
// so memory per channel is fixed regardless of read length.
type Detector struct {
	p   Params
	buf []float32
	n   int64 // samples consumed
	acc int64 // start of the event being accumulated

	short spike
	long  spike
}

// NewDetector builds a detector for one channel.
func NewDetector(p Params) *Detector {
	return &Detector{
		p:     p,
		buf:   make([]float32, p.BufLen),
		short: spike{w: p.Window1, thresh: p.Thresh1},
		long:  spike{w: p.Window2, thresh: p.Thresh2},
	}
}

// Reset discards all per-read detector state.
func (d *Detector) Reset() {
	d.n = 0
	d.acc = 0
	d.short.reset()
	d.long.reset()
}

// Add consumes one raw sample and reports at most one completed event.
// Events whose mean falls outside [MinMean, MaxMean] are dropped: the
// boundary still advances but nothing is reported.
func (d *Detector) Add(x float32) (Event, bool) {
	d.buf[d.n%int64(len(d.buf))] = x
	d.n++

	if pos, ok := d.step(&d.short); ok {
		return d.emit(pos)
	}
	if pos, ok := d.step(&d.long); ok {
		return d.emit(pos)
	}
	return Event{}, false
}

// step evaluates one detector at its lagged center position.
func (d *Detector) step(s *spike) (int64, bool) {
	c := d.n - int64(s.w)
	if c < int64(s.w) {
		return 0, false
	}
	return s.push(c, d.tstat(c, s.w), d.p.PeakHeight)
}

// emit closes the event accumulating at [acc, pos).
func (d *Detector) emit(pos int64) (Event, bool) {
	if pos-d.acc < int64(d.p.Window1) {
		return Event{}, false // too close to the previous boundary
	}
	st := d.acc
	if pos-st > int64(len(d.buf)) {
		st = pos - int64(len(d.buf))
	}
	var sum, sumsq float64
	for i := st; i < pos; i++ {
		v := float64(d.at(i))
		sum += v
		sumsq += v * v
	}
	n := float64(pos - st)
	mean := sum / n
	v := sumsq/n - mean*mean
	if v < 0 {
		v = 0
	}
	d.acc = pos
	if mean < d.p.MinMean || mean > d.p.MaxMean {
		return Event{}, false
	}
	return Event{Mean: mean, Stdv: math.Sqrt(v), Length: int(n)}, true
}

func (d *Detector) at(i int64) float32 {
	return d.buf[i%int64(len(d.buf))]
}

// tstat computes the absolute Welch t-statistic between the w samples
// before and after center c.
func (d *Detector) tstat(c int64, w int) float64 {
	var s1, q1, s2, q2 float64
	for i := c - int64(w); i < c; i++ {
		v := float64(d.at(i))
		s1 += v
		q1 += v * v
	}
	for i := c; i < c+int64(w); i++ {
		v := float64(d.at(i))
		s2 += v
		q2 += v * v
	}
	fw := float64(w)
	m1, m2 := s1/fw, s2/fw
	v1, v2 := q1/fw-m1*m1, q2/fw-m2*m2
	if v1 < varFloor {
		v1 = varFloor
	}
	if v2 < varFloor {
		v2 = varFloor
	}
	return math.Abs((m2 - m1) / math.Sqrt((v1+v2)/fw))
}

// spike is the per-window peak picker: a boundary is confirmed when the
// statistic has exceeded the threshold and then fallen back by at least
// the peak height (or below the threshold).
type spike struct {
	w       int
	thresh  float64
	peakVal float64
	peakPos int64
	valid   bool
}

func (s *spike) reset() {
	s.valid = false
	s.peakVal = 0
	s.peakPos = 0
}

func (s *spike) push(pos int64, t, height float64) (int64, bool) {
	if !s.valid {
		if t > s.thresh {
			s.valid = true
			s.peakVal = t
			s.peakPos = pos
		}
		return 0, false
	}
	if t > s.peakVal {
		s.peakVal = t
		s.peakPos = pos
		return 0, false
	}
	if t < s.thresh || s.peakVal-t >= height {
		p := s.peakPos
		s.reset()
		return p, true
	}
	return 0, false
}
