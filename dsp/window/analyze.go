package window

import "math"

// Metadata holds numerically derived spectral properties of a window.
type Metadata struct {
	Name string
	// CoherentGain is sum(w[n]) / N.
	CoherentGain float64
	// ENBW is the equivalent noise bandwidth in bins.
	ENBW float64
	// Bandwidth3dB is the two-sided half-power main lobe width in bins.
	Bandwidth3dB float64
	// ScallopLossdB is the response half a bin away from the centre.
	ScallopLossdB float64
}

// infoLength is long enough for the bin-relative figures to settle.
const infoLength = 1024

// Info analyzes the periodic window of type t.
func Info(t Type) Metadata {
	m := Analyze(Generate(t, infoLength))
	m.Name = t.String()

	return m
}

// Analyze computes the spectral properties of arbitrary coefficients.
// Empty or zero-sum input yields a zero Metadata.
func Analyze(coeffs []float64) Metadata {
	n := float64(len(coeffs))

	sum, sumSq := 0.0, 0.0
	for _, c := range coeffs {
		sum += c
		sumSq += c * c
	}

	if sum == 0 {
		return Metadata{}
	}

	dc := sum * sum
	halfBin := response(coeffs, 0.5/n) / dc

	// Bisect for the normalized frequency where the power halves.
	lo, hi := 0.0, 0.5
	for range 64 {
		mid := (lo + hi) / 2
		if response(coeffs, mid)/dc > 0.5 {
			lo = mid
		} else {
			hi = mid
		}
	}

	return Metadata{
		CoherentGain:  sum / n,
		ENBW:          n * sumSq / dc,
		Bandwidth3dB:  2 * lo * n,
		ScallopLossdB: 10 * math.Log10(halfBin),
	}
}

// response returns |DFT(coeffs)|^2 at normalized frequency f.
func response(coeffs []float64, f float64) float64 {
	re, im := 0.0, 0.0
	w := 2 * math.Pi * f

	for k, c := range coeffs {
		s, co := math.Sincos(w * float64(k))
		re += c * co
		im -= c * s
	}

	return re*re + im*im
}
