// Package spectrum implements the dual-channel windowed spectrum analyzer
// that feeds transfer-function measurements.
//
// An [Analyzer] keeps a sliding history of measured ("data") and reference
// samples and transforms both channels on demand. Two modes exist:
//
//   - [ModeFFT]: a radix-2 FFT of size 2^Power with linearly spaced bins
//     at i*sampleRate/size.
//   - [ModeLog]: 264 log-spaced bins (24 per octave over 11 octaves from
//     about 20 Hz). Each bin is a single-bin DFT over a right-aligned window
//     whose length shrinks with frequency, so low frequencies get long
//     windows and high frequencies short ones.
//
// Both modes scale the spectra so that a sine of amplitude A centred on a
// bin reads A/2, independent of the window.
package spectrum
