package design

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-rta/dsp/filter/biquad"
)

var (
	// ErrInvalidFrequency reports a corner frequency outside (0, Nyquist)
	// or a non-positive sample rate.
	ErrInvalidFrequency = errors.New("design: frequency must be in (0, sampleRate/2)")
	// ErrInvalidQ reports a non-positive or non-finite quality factor.
	ErrInvalidQ = errors.New("design: q must be positive and finite")
)

// Lowpass designs a second-order low-pass section at freq (Hz).
func Lowpass(freq, q, sampleRate float64) (biquad.Coefficients, error) {
	cw, alpha, err := prewarp(freq, q, sampleRate)
	if err != nil {
		return biquad.Coefficients{}, err
	}

	b1 := 1 - cw

	return normalize(b1/2, b1, b1/2, 1+alpha, -2*cw, 1-alpha), nil
}

// Bandpass designs a second-order band-pass section at freq (Hz) with
// 0 dB gain at the centre frequency.
func Bandpass(freq, q, sampleRate float64) (biquad.Coefficients, error) {
	cw, alpha, err := prewarp(freq, q, sampleRate)
	if err != nil {
		return biquad.Coefficients{}, err
	}

	return normalize(alpha, 0, -alpha, 1+alpha, -2*cw, 1-alpha), nil
}

// Notch designs a second-order band-stop section centred at freq (Hz).
func Notch(freq, q, sampleRate float64) (biquad.Coefficients, error) {
	cw, alpha, err := prewarp(freq, q, sampleRate)
	if err != nil {
		return biquad.Coefficients{}, err
	}

	return normalize(1, -2*cw, 1, 1+alpha, -2*cw, 1-alpha), nil
}

// prewarp returns cos(w0) and the RBJ bandwidth term alpha = sin(w0)/(2q).
func prewarp(freq, q, sampleRate float64) (cw, alpha float64, err error) {
	if sampleRate <= 0 || !isFinite(sampleRate) || freq <= 0 || freq >= sampleRate/2 || !isFinite(freq) {
		return 0, 0, fmt.Errorf("%w: f=%g sr=%g", ErrInvalidFrequency, freq, sampleRate)
	}

	if q <= 0 || !isFinite(q) {
		return 0, 0, fmt.Errorf("%w: q=%g", ErrInvalidQ, q)
	}

	w0 := 2 * math.Pi * freq / sampleRate

	return math.Cos(w0), math.Sin(w0) / (2 * q), nil
}

func normalize(b0, b1, b2, a0, a1, a2 float64) biquad.Coefficients {
	return biquad.Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
