package measurement

import (
	"math/cmplx"

	"github.com/cwbudde/algo-rta/dsp/core"
	"github.com/cwbudde/algo-rta/dsp/filter/weighting"
	"github.com/cwbudde/algo-rta/measure/meter"
)

// FrequencyBin is the published state of one analyzer bin.
type FrequencyBin struct {
	Frequency float64
	// Module is the calibrated magnitude of the measured channel.
	Module float64
	// Magnitude is the linear transfer ratio measured/reference.
	Magnitude float64
	// Phase is the averaged phase vector. Its length drops below one when
	// the phase fluctuates between cycles.
	Phase       complex128
	Coherence   float64
	PeakSquared float64
	MeanSquared float64
}

// ImpulseSample is one point of the impulse response.
type ImpulseSample struct {
	// Time in milliseconds relative to the zero-lag sample.
	Time  float64
	Value float64
}

// Result is an immutable snapshot of one compute cycle.
type Result struct {
	Generation     uint64
	SampleRate     float64
	EstimatedDelay int
	Bins           []FrequencyBin
	Impulse        []ImpulseSample
}

// FrequencyDomainProvider is the read surface of per-bin results.
type FrequencyDomainProvider interface {
	Size() int
	Frequency(i int) float64
	Module(i int) float64
	Magnitude(i int) float64
	MagnitudeRaw(i int) float64
	Phase(i int) complex128
	Coherence(i int) float64
	PeakSquared(i int) float64
	MeanSquared(i int) float64
	CrestFactor(i int) float64
}

// TimeDomainProvider is the read surface of the impulse response.
type TimeDomainProvider interface {
	ImpulseSize() int
	ImpulseTime(i int) float64
	ImpulseValue(i int) float64
}

// LevelProvider is the read surface of the level meters.
type LevelProvider interface {
	Level(curve weighting.Type, t meter.Time) float64
	Peak(curve weighting.Type, t meter.Time) float64
	ReferenceLevel() float64
}

var (
	_ FrequencyDomainProvider = (*Result)(nil)
	_ TimeDomainProvider      = (*Result)(nil)
	_ LevelProvider           = (*Controller)(nil)
)

func (r *Result) bin(i int) FrequencyBin {
	if r == nil || i < 0 || i >= len(r.Bins) {
		return FrequencyBin{}
	}

	return r.Bins[i]
}

// Size returns the number of frequency bins.
func (r *Result) Size() int {
	if r == nil {
		return 0
	}

	return len(r.Bins)
}

// Frequency returns the centre of bin i in Hz.
func (r *Result) Frequency(i int) float64 { return r.bin(i).Frequency }

// Module returns the calibrated measured magnitude of bin i.
func (r *Result) Module(i int) float64 { return r.bin(i).Module }

// MagnitudeRaw returns the linear transfer ratio of bin i.
func (r *Result) MagnitudeRaw(i int) float64 { return r.bin(i).Magnitude }

// Magnitude returns the transfer ratio of bin i in dB.
func (r *Result) Magnitude(i int) float64 { return core.LinearToDB(r.bin(i).Magnitude) }

// Phase returns the unit phase vector of bin i, or 1 when undefined.
func (r *Result) Phase(i int) complex128 {
	return unit(r.bin(i).Phase)
}

// Coherence returns the coherence of bin i in [0, 1].
func (r *Result) Coherence(i int) float64 { return r.bin(i).Coherence }

// PeakSquared returns the recent peak power of bin i.
func (r *Result) PeakSquared(i int) float64 { return r.bin(i).PeakSquared }

// MeanSquared returns the recent mean power of bin i.
func (r *Result) MeanSquared(i int) float64 { return r.bin(i).MeanSquared }

// CrestFactor returns 10*log10(peak/mean) of bin i in dB, or 0 when
// the mean is zero.
func (r *Result) CrestFactor(i int) float64 {
	b := r.bin(i)

	return CrestFactor(b.PeakSquared, b.MeanSquared)
}

// ImpulseSize returns the number of impulse samples.
func (r *Result) ImpulseSize() int {
	if r == nil {
		return 0
	}

	return len(r.Impulse)
}

func (r *Result) impulse(i int) ImpulseSample {
	if r == nil || i < 0 || i >= len(r.Impulse) {
		return ImpulseSample{}
	}

	return r.Impulse[i]
}

// ImpulseTime returns the time of impulse sample i in milliseconds.
func (r *Result) ImpulseTime(i int) float64 { return r.impulse(i).Time }

// ImpulseValue returns impulse sample i.
func (r *Result) ImpulseValue(i int) float64 { return r.impulse(i).Value }

// CrestFactor converts a peak and mean power to dB.
func CrestFactor(peakSquared, meanSquared float64) float64 {
	if meanSquared <= 0 || peakSquared <= 0 {
		return 0
	}

	return core.PowerToDB(peakSquared / meanSquared)
}

func unit(z complex128) complex128 {
	a := cmplx.Abs(z)
	if a == 0 || core.FiniteComplex(z) != z {
		return 1
	}

	return z / complex(a, 0)
}
