// Package biquad provides the second-order IIR runtime used by the
// weighting curves and the input pre-filters.
//
// A [Section] implements Direct Form II Transposed processing for one
// set of [Coefficients]. A [Chain] cascades sections behind an input gain.
// Coefficient design lives in dsp/filter/design and dsp/filter/weighting.
package biquad
