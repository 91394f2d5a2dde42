// Package conv derives impulse responses by spectral division.
//
// A [Deconvolver] keeps a sliding window of measured and reference
// samples, divides the measured spectrum by the reference spectrum with
// Tikhonov regularization, and inverse-transforms the quotient:
//
//	h = IFFT( D * conj(R) / (|R|^2 + lambda) ),  lambda = eps * max|R|^2
//
// Bins where the quotient is undefined contribute zero, so silence or a
// missing reference never produces NaN. When an analyzer has already
// transformed the same stream at the same size, [Deconvolver.TransformSpectra]
// reuses its spectra instead of running two more forward FFTs.
//
// [FilterImpulse] covers the opposite direction: it samples an analytic
// transfer function on the FFT grid and inverse-transforms it directly.
package conv
