package window

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackmanHarris
	TypeFlatTop
	TypeHFT223D
	TypeExponential
)

// Types lists every window in declaration order.
var Types = []Type{
	TypeRectangular,
	TypeHann,
	TypeHamming,
	TypeBlackmanHarris,
	TypeFlatTop,
	TypeHFT223D,
	TypeExponential,
}

var names = map[Type]string{
	TypeRectangular:    "Rectangular",
	TypeHann:           "Hann",
	TypeHamming:        "Hamming",
	TypeBlackmanHarris: "BlackmanHarris",
	TypeFlatTop:        "FlatTop",
	TypeHFT223D:        "HFT223D",
	TypeExponential:    "Exponential",
}

// Cosine-sum coefficients with alternating signs already applied:
// w(x) = sum_k c[k] * cos(2*pi*k*x).
var cosineTerms = map[Type][]float64{
	TypeRectangular:    {1},
	TypeHann:           {0.5, -0.5},
	TypeHamming:        {0.54, -0.46},
	TypeBlackmanHarris: {0.35875, -0.48829, 0.14128, -0.01168},
	TypeFlatTop: {
		0.21557895, -0.41663158, 0.277263158, -0.083578947, 0.006947368,
	},
	// Heinzel, Rüdiger, Schilling (2002), 223 dB sidelobe flat-top.
	TypeHFT223D: {
		1, -1.98298997309, 1.75556083063, -1.19037717712, 0.56155440797,
		-0.17296769663, 0.03233247087, -0.00324954578, 0.00013801040,
		-0.00000132725,
	},
}

func init() {
	// Scale every cosine sum to a peak of exactly 1 at the centre, where
	// cos(k*pi) alternates the sign of each term.
	for _, terms := range cosineTerms {
		peak := 0.0
		for _, c := range terms {
			peak += math.Abs(c)
		}

		for k := range terms {
			terms[k] /= peak
		}
	}
}

// exponentialDecay puts both edges of the exponential window at -60 dB.
var exponentialDecay = math.Log(1000)

// String returns the window name.
func (t Type) String() string {
	if n, ok := names[t]; ok {
		return n
	}

	return "Unknown"
}

// ParseType resolves a case-insensitive window name.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if strings.EqualFold(names[t], s) {
			return t, nil
		}
	}

	return 0, fmt.Errorf("window: unknown type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if _, ok := names[t]; !ok {
		return nil, fmt.Errorf("window: unknown type %d", int(t))
	}

	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}

	*t = v

	return nil
}

// At evaluates the window at normalized position x in [0, 1].
// Positions outside the interval are clamped. Unknown types evaluate to 1.
func At(t Type, x float64) float64 {
	x = math.Min(math.Max(x, 0), 1)

	if t == TypeExponential {
		return math.Exp(-exponentialDecay * math.Abs(2*x-1))
	}

	terms, ok := cosineTerms[t]
	if !ok {
		return 1
	}

	phase := 2 * math.Pi * x
	sum := 0.0

	for k, c := range terms {
		sum += c * math.Cos(float64(k)*phase)
	}

	return sum
}

// Generate returns the periodic form of the window, w[n] = At(t, n/length).
func Generate(t Type, length int) []float64 {
	if length <= 0 {
		return nil
	}

	out := make([]float64, length)
	for i := range out {
		out[i] = At(t, float64(i)/float64(length))
	}

	return out
}

// Normalized returns Generate(t, length) divided by its coherent gain.
func Normalized(t Type, length int) []float64 {
	w := Generate(t, length)
	if g := CoherentGain(w); g != 0 {
		vecmath.ScaleBlock(w, w, 1/g)
	}

	return w
}

// Apply multiplies buf in place by the periodic window of its length.
func Apply(t Type, buf []float64) {
	if len(buf) == 0 {
		return
	}

	vecmath.MulBlockInPlace(buf, Generate(t, len(buf)))
}

// CoherentGain returns sum(w)/len(w), the DC response of the window.
func CoherentGain(w []float64) float64 {
	if len(w) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range w {
		sum += v
	}

	return sum / float64(len(w))
}
