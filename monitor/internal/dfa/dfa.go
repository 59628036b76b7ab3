package dfa

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned by Compute when the cleaned window is
// shorter than Params.MinSamples, or when fewer than two box sizes produced
// a usable fluctuation value and the regression would be degenerate. It is
// a normal streaming outcome, not a failure: callers withhold a new value
// and keep polling.
var ErrInsufficientData = errors.New("dfa: insufficient data")

// Output is the result of one Compute invocation.
type Output struct {
	// Alpha1 is the scaling exponent — the slope of log10(F(n)) over
	// log10(n). Typically in [0, 1.5] for short-term RR data, but reported
	// unclamped.
	Alpha1 float64

	// CleanedCount is the length of the cleaned interval sequence the
	// exponent was computed from.
	CleanedCount int

	// CorrectedCount is how many raw samples the artifact filter replaced
	// or dropped.
	CorrectedCount int

	// PairCount is the number of (log n, log F(n)) points that entered the
	// regression. At most BoxMax-BoxMin+1; box sizes with zero or undefined
	// fluctuation are skipped.
	PairCount int
}

// Compute runs the full pipeline on a raw RR interval window:
// artifact correction, mean-centered integration, fluctuation per box size,
// and the log-log regression producing alpha1.
//
// It is a pure function of rr and p. On ErrInsufficientData the Output
// still carries the cleaning counters so callers can report window state.
func Compute(rr []float64, p Params) (Output, error) {
	cleaned, corrected := p.Clean(rr)
	out := Output{
		CleanedCount:   len(cleaned),
		CorrectedCount: corrected,
	}
	if len(cleaned) < p.MinSamples {
		return out, ErrInsufficientData
	}

	y := integrate(cleaned)

	// One (log n, log F) point per box size. F(n) == 0 means the integrated
	// series is exactly linear at that scale — log10 would be -Inf — and an
	// undefined F(n) means the window cannot fill a single box. Both are
	// skipped rather than fed to the regression.
	sizes := p.BoxMax - p.BoxMin + 1
	logN := make([]float64, 0, sizes)
	logF := make([]float64, 0, sizes)
	for n := p.BoxMin; n <= p.BoxMax; n++ {
		f := fluctuation(y, n)
		if math.IsNaN(f) || f <= 0 {
			continue
		}
		logN = append(logN, math.Log10(float64(n)))
		logF = append(logF, math.Log10(f))
	}
	out.PairCount = len(logN)

	slope, ok := slopeOf(logN, logF)
	if !ok {
		return out, ErrInsufficientData
	}
	out.Alpha1 = slope
	return out, nil
}

// integrate converts a cleaned interval sequence into the integrated series:
// element k is the cumulative sum of (sample - mean) over samples 0..k.
// The caller guarantees rr is non-empty.
func integrate(rr []float64) []float64 {
	var sum float64
	for _, v := range rr {
		sum += v
	}
	mean := sum / float64(len(rr))

	y := make([]float64, len(rr))
	var acc float64
	for i, v := range rr {
		acc += v - mean
		y[i] = acc
	}
	return y
}

// fluctuation computes F(n): the RMS residual after removing a per-box
// least-squares linear trend from the integrated series, using
// non-overlapping boxes of exactly n samples. Trailing samples that do not
// fill a complete box are discarded. Returns NaN when the series is shorter
// than n.
func fluctuation(y []float64, n int) float64 {
	numBoxes := len(y) / n
	if numBoxes == 0 {
		return math.NaN()
	}

	// Closed-form sums over the local index x = 0..n-1 are the same for
	// every box.
	fn := float64(n)
	sumX := fn * (fn - 1) / 2
	sumXX := (fn - 1) * fn * (2*fn - 1) / 6
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		// Unreachable for n >= 2; guarded in case the box range is ever
		// reconfigured at runtime.
		return math.NaN()
	}

	var ss float64
	for b := 0; b < numBoxes; b++ {
		box := y[b*n : (b+1)*n]

		var sumY, sumXY float64
		for i, v := range box {
			sumY += v
			sumXY += float64(i) * v
		}
		slope := (fn*sumXY - sumX*sumY) / denom
		intercept := (sumY - slope*sumX) / fn

		for i, v := range box {
			r := v - (intercept + slope*float64(i))
			ss += r * r
		}
	}
	return math.Sqrt(ss / (float64(numBoxes) * fn))
}

// slopeOf fits an ordinary least-squares line through (xs, ys) and returns
// its slope. ok is false when fewer than two points are available or all x
// values coincide — the degenerate cases where the slope is undefined.
func slopeOf(xs, ys []float64) (slope float64, ok bool) {
	if len(xs) < 2 {
		return 0, false
	}
	fn := float64(len(xs))
	var sumX, sumY, sumXX, sumXY float64
	for i, x := range xs {
		sumX += x
		sumY += ys[i]
		sumXX += x * x
		sumXY += x * ys[i]
	}
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0, false
	}
	return (fn*sumXY - sumX*sumY) / denom, true
}
