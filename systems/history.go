package systems

import "gonum.org/v1/gonum/stat"

// declineSlope is the regression slope below which a population series
// counts as declining. Zero-noise flat series sit well above it.
const declineSlope = -0.05

// History is a bounded ring buffer of population samples used for trend
// detection. One sample is pushed per tick.
type History struct {
	buf  []float64
	idx  int
	size int // valid samples, <= len(buf)
}

// NewHistory creates a history holding up to n samples.
func NewHistory(n int) *History {
	if n < 2 {
		n = 2
	}
	return &History{buf: make([]float64, n)}
}

// Push appends a sample, evicting the oldest once full.
func (h *History) Push(v float64) {
	h.buf[h.idx] = v
	h.idx = (h.idx + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
}

// Len returns the number of valid samples.
func (h *History) Len() int {
	return h.size
}

// Tail returns the most recent k samples, oldest first. Fewer are
// returned if the history is shorter.
func (h *History) Tail(k int) []float64 {
	if k > h.size {
		k = h.size
	}
	out := make([]float64, k)
	start := h.idx - k
	for i := 0; i < k; i++ {
		out[i] = h.buf[((start+i)%len(h.buf)+len(h.buf))%len(h.buf)]
	}
	return out
}

// Slope fits a least-squares line through the last k samples and returns
// its slope. ok is false with fewer than two samples.
func (h *History) Slope(k int) (slope float64, ok bool) {
	ys := h.Tail(k)
	if len(ys) < 2 {
		return 0, false
	}
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta, true
}

// Declining reports whether the last k samples trend downward.
func (h *History) Declining(k int) bool {
	slope, ok := h.Slope(k)
	return ok && slope < declineSlope
}

// Reset discards all samples.
func (h *History) Reset() {
	h.idx = 0
	h.size = 0
}
