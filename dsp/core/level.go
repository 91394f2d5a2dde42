package core

import "math"

// NoDataDB is reported by level accessors that have not yet seen enough
// input to produce a value.
var NoDataDB = math.Inf(-1)

// DBToLinear converts dB to linear amplitude (20*log10 convention).
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Zero maps to NoDataDB and negative values to NaN.
func LinearToDB(linear float64) float64 {
	if linear < 0 {
		return math.NaN()
	}

	if linear == 0 {
		return NoDataDB
	}

	return 20 * math.Log10(linear)
}

// PowerToDB converts linear power (a squared amplitude) to dB using the
// 10*log10 convention. Zero maps to NoDataDB and negative values to NaN.
func PowerToDB(power float64) float64 {
	if power < 0 {
		return math.NaN()
	}

	if power == 0 {
		return NoDataDB
	}

	return 10 * math.Log10(power)
}

// Finite returns x, or 0 when x is NaN or infinite.
func Finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}

	return x
}

// FiniteComplex returns z, or 0 when either component is not finite.
func FiniteComplex(z complex128) complex128 {
	if Finite(real(z)) != real(z) || Finite(imag(z)) != imag(z) {
		return 0
	}

	return z
}

// Clamp limits value to the inclusive range [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}

	return math.Min(math.Max(value, lo), hi)
}
