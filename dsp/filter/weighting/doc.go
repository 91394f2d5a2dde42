// Package weighting provides A, B, C, and Z frequency weighting filters
// per IEC 61672.
//
// Each curve is the bilinear transform of the standard analog prototype,
// decomposed into at most three second-order sections:
//
//   - A: double high-pass at 20.6 Hz, double low-pass at 12194 Hz, and the
//     107.7 Hz / 737.9 Hz high-pass pair merged into one section.
//   - B: double high-pass at 20.6 Hz, double low-pass at 12194 Hz, and a
//     first-order high-pass at 158.5 Hz.
//   - C: double high-pass at 20.6 Hz and double low-pass at 12194 Hz.
//   - Z: no filtering.
//
// Every curve is normalized to 0 dB at 1 kHz. [Filter] wraps a chain and
// re-derives it when the sample rate changes.
package weighting
