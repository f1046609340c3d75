package mapper

// Handle addresses one probability-sum buffer in the arena. Hypotheses
// hold handles instead of slices so that copying a PathBuffer across
// frontier storage never aliases buffer memory: ownership moves with the
// handle and each buffer is released exactly once.
type Handle int32

const noHandle Handle = -1

// probArena pools fixed-capacity cumulative-sum buffers. Buffer i holds
// sums[0..n) with sums[0] as base; the mean of the trailing w
// probabilities is (sums[n-1]-sums[n-1-w])/w, an O(1) query. When a
// buffer saturates, extending slides the window: absolute values shift
// but the differences the queries use are preserved.
type probArena struct {
	width int
	bufs  [][]float64
	free  []Handle
	live  int
}

func newProbArena(width int) *probArena {
	return &probArena{width: width}
}

func (a *probArena) alloc() Handle {
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		a.live++
		return h
	}
	a.bufs = append(a.bufs, make([]float64, 0, a.width))
	a.live++
	return Handle(len(a.bufs) - 1)
}

// New allocates a single-entry buffer holding one probability.
func (a *probArena) New(p float64) Handle {
	h := a.alloc()
	a.bufs[h] = append(a.bufs[h][:0], 0, p)
	return h
}

// Extend duplicates the parent's buffer with one more cumulative entry.
// The parent keeps its own buffer; the caller owns the returned handle.
func (a *probArena) Extend(parent Handle, p float64) Handle {
	h := a.alloc()
	src := a.bufs[parent]
	dst := a.bufs[h][:0]
	if len(src) == a.width {
		dst = append(dst, src[1:]...)
	} else {
		dst = append(dst, src...)
	}
	dst = append(dst, dst[len(dst)-1]+p)
	a.bufs[h] = dst
	return h
}

// WindowMean returns the mean of the trailing w probabilities, clamped
// to the number recorded.
func (a *probArena) WindowMean(h Handle, w int) float64 {
	buf := a.bufs[h]
	n := len(buf) - 1
	if w > n {
		w = n
	}
	if w <= 0 {
		return 0
	}
	return (buf[n] - buf[n-w]) / float64(w)
}

// Release returns a buffer to the free list. Callers null their handle
// after releasing; releasing noHandle is a no-op.
func (a *probArena) Release(h Handle) {
	if h == noHandle {
		return
	}
	a.free = append(a.free, h)
	a.live--
}

// Live reports the number of owned buffers; used to verify that resets
// and generation swaps release everything.
func (a *probArena) Live() int { return a.live }
