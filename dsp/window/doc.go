// Package window generates the analysis windows offered by the spectrum
// analyzer and computes their spectral properties.
//
// Windows are defined on a normalized position x in [0, 1] so that the
// log-frequency transform can evaluate them at any length. [Generate]
// produces the periodic form used for FFT framing and [Normalized]
// divides it by its coherent gain so a full-scale sine keeps its amplitude.
package window
