// Package testutil provides deterministic signals and assertions shared
// by the package tests.
package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates amplitude*sin(2*pi*f*n/sr).
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates uniform white noise in [-amplitude, amplitude)
// from a fixed seed.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// DC generates a constant signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Ones returns n samples of 1.0.
func Ones(n int) []float64 {
	return DC(1.0, n)
}

// Delayed returns x shifted later by n samples, zero-filled at the start
// and truncated to len(x). A negative n shifts earlier.
func Delayed(x []float64, n int) []float64 {
	out := make([]float64, len(x))
	for i := range out {
		if j := i - n; j >= 0 && j < len(x) {
			out[i] = x[j]
		}
	}
	return out
}
