// Package dfa implements the streaming short-term detrended fluctuation
// analysis engine for beat-to-beat (RR) interval series.
//
// filter.go provides Clean, the artifact filter: out-of-range or
// discontinuous intervals are corrected in place (neighbor interpolation,
// clamp-forward) rather than dropped, so the beat timeline stays contiguous.
//
// dfa.go provides the pure Compute(rr, Params) function:
// clean → integrate (mean-centered cumulative sum) → per-box-size RMS
// fluctuation → log-log regression. The regression slope is the alpha1
// scaling exponent. Compute has no hidden state; two calls on the same
// window return the same exponent.
//
// All physiological constants (interval bounds, jump tolerance, box-size
// range, minimum sample count) are carried in Params and defaulted by
// DefaultParams — nothing is baked in.
package dfa
