package weighting

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-rta/dsp/filter/biquad"
)

// IEC 61672 analog prototype pole frequencies (Hz).
const (
	f1 = 20.598997 // double pole for A, B, C
	f2 = 107.65265 // single pole for A
	f3 = 158.48932 // single pole for B
	f4 = 737.86223 // single pole for A
	f5 = 12194.217 // double pole for A, B, C
)

// Type identifies a frequency weighting curve. The zero value is A.
type Type int

const (
	TypeA Type = iota
	TypeB
	TypeC
	TypeZ
)

// Types lists every curve in index order.
var Types = [...]Type{TypeA, TypeB, TypeC, TypeZ}

// String returns a human-readable name for the weighting type.
func (t Type) String() string {
	switch t {
	case TypeA:
		return "A"
	case TypeB:
		return "B"
	case TypeC:
		return "C"
	case TypeZ:
		return "Z"
	default:
		return "Unknown"
	}
}

// Valid reports whether t names a defined curve.
func (t Type) Valid() bool {
	return t >= TypeA && t <= TypeZ
}

// New returns a [biquad.Chain] for the given curve at the specified sample
// rate, normalized to 0 dB at 1 kHz.
//
// Panics if sampleRate <= 0 or t is not a defined curve.
func New(t Type, sampleRate float64) *biquad.Chain {
	coeffs, gain := Design(t, sampleRate)

	return biquad.NewChain(coeffs, biquad.WithGain(gain))
}

// Design returns the sections and broadband gain of a curve.
//
// Panics if sampleRate <= 0 or t is not a defined curve.
func Design(t Type, sampleRate float64) ([]biquad.Coefficients, float64) {
	if sampleRate <= 0 {
		panic("weighting: sample rate must be positive")
	}

	var coeffs []biquad.Coefficients

	switch t {
	case TypeA:
		coeffs = []biquad.Coefficients{
			hpSecondOrder(f1, sampleRate),
			lpSecondOrder(f5, sampleRate),
			merge(hpFirstOrder(f2, sampleRate), hpFirstOrder(f4, sampleRate)),
		}
	case TypeB:
		coeffs = []biquad.Coefficients{
			hpSecondOrder(f1, sampleRate),
			lpSecondOrder(f5, sampleRate),
			hpFirstOrder(f3, sampleRate),
		}
	case TypeC:
		coeffs = []biquad.Coefficients{
			hpSecondOrder(f1, sampleRate),
			lpSecondOrder(f5, sampleRate),
		}
	case TypeZ:
		return nil, 1
	default:
		panic("weighting: unknown type")
	}

	return coeffs, normalizationGain(coeffs, sampleRate)
}

// hpSecondOrder is the bilinear transform of s^2 / (s + omega)^2 with
// K = tan(pi*f/sr).
func hpSecondOrder(f, sr float64) biquad.Coefficients {
	k := math.Tan(math.Pi * f / sr)
	k2 := k * k
	d := 1 + 2*k + k2

	return biquad.Coefficients{
		B0: 1 / d,
		B1: -2 / d,
		B2: 1 / d,
		A1: 2 * (k2 - 1) / d,
		A2: (1 - 2*k + k2) / d,
	}
}

// lpSecondOrder is the bilinear transform of omega^2 / (s + omega)^2.
func lpSecondOrder(f, sr float64) biquad.Coefficients {
	k := math.Tan(math.Pi * f / sr)
	k2 := k * k
	d := 1 + 2*k + k2

	return biquad.Coefficients{
		B0: k2 / d,
		B1: 2 * k2 / d,
		B2: k2 / d,
		A1: 2 * (k2 - 1) / d,
		A2: (1 - 2*k + k2) / d,
	}
}

// hpFirstOrder is the bilinear transform of s / (s + omega).
func hpFirstOrder(f, sr float64) biquad.Coefficients {
	k := math.Tan(math.Pi * f / sr)
	d := 1 + k

	return biquad.Coefficients{
		B0: 1 / d,
		B1: -1 / d,
		A1: (k - 1) / d,
	}
}

// merge multiplies two first-order sections into one second-order section.
func merge(a, b biquad.Coefficients) biquad.Coefficients {
	return biquad.Coefficients{
		B0: a.B0 * b.B0,
		B1: a.B0*b.B1 + a.B1*b.B0,
		B2: a.B1 * b.B1,
		A1: a.A1 + b.A1,
		A2: a.A1 * b.A1,
	}
}

// normalizationGain makes the cascade magnitude 1 (0 dB) at 1 kHz.
func normalizationGain(coeffs []biquad.Coefficients, sr float64) float64 {
	h := complex(1, 0)
	for i := range coeffs {
		h *= coeffs[i].Response(1000, sr)
	}

	return 1 / cmplx.Abs(h)
}
