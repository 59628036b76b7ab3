package window

// Default sizing policy: 200 samples are needed before an exponent is
// computed, and the buffer keeps 50 samples of headroom beyond that before
// discarding the oldest.
const (
	DefaultWidth    = 200
	DefaultHeadroom = 50
)

// Window is a bounded buffer of raw RR interval samples for one monitoring
// session. It grows by appending and, once above width+headroom, silently
// discards the oldest samples. Storage is a fixed circular buffer — no
// reslicing or reallocation per batch.
//
// Window is not safe for concurrent use; a session owns exactly one and
// serializes access to it.
type Window struct {
	width int
	buf   []float64
	start int // index of the oldest sample
	count int
}

// New creates a Window computing over the most recent width samples, with
// capacity width+headroom. Non-positive arguments fall back to the defaults.
func New(width, headroom int) *Window {
	if width <= 0 {
		width = DefaultWidth
	}
	if headroom <= 0 {
		headroom = DefaultHeadroom
	}
	return &Window{
		width: width,
		buf:   make([]float64, width+headroom),
	}
}

// Append adds samples in arrival order, evicting the oldest when the buffer
// is at capacity.
func (w *Window) Append(samples ...float64) {
	for _, v := range samples {
		if w.count < len(w.buf) {
			w.buf[(w.start+w.count)%len(w.buf)] = v
			w.count++
			continue
		}
		// Full: overwrite the oldest slot and advance the start.
		w.buf[w.start] = v
		w.start = (w.start + 1) % len(w.buf)
	}
}

// Ready reports whether enough samples are buffered for a computation.
func (w *Window) Ready() bool {
	return w.count >= w.width
}

// Latest copies the most recent width samples, oldest first, into dst and
// returns it. When dst lacks capacity a new slice is allocated, so callers
// on a hot path can reuse one buffer across computations. Returns nil until
// Ready.
func (w *Window) Latest(dst []float64) []float64 {
	if !w.Ready() {
		return nil
	}
	if cap(dst) < w.width {
		dst = make([]float64, w.width)
	}
	dst = dst[:w.width]

	first := w.start + w.count - w.width // logical index of the first returned sample
	for i := 0; i < w.width; i++ {
		dst[i] = w.buf[(first+i)%len(w.buf)]
	}
	return dst
}

// Len returns the number of samples currently buffered.
func (w *Window) Len() int {
	return w.count
}

// Width returns the computation window width.
func (w *Window) Width() int {
	return w.width
}

// Reset discards all buffered samples. Used when a sensor reconnects and
// its beat timeline restarts.
func (w *Window) Reset() {
	w.start = 0
	w.count = 0
}
