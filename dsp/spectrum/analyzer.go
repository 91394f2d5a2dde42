package spectrum

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-rta/dsp/buffer"
	"github.com/cwbudde/algo-rta/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

// Mode selects the analyzer transform.
type Mode int

const (
	ModeFFT Mode = iota
	ModeLog
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeFFT:
		return "FFT"
	case ModeLog:
		return "LFT"
	default:
		return "Unknown"
	}
}

// FFT power bounds for ModeFFT.
const (
	MinPower = 10
	MaxPower = 16
)

// Log-mode layout.
const (
	LogPointsPerOctave = 24
	LogOctaves         = 11
	LogBins            = LogPointsPerOctave * LogOctaves
	// LogHistory is the longest log-mode window, used by the lowest bin.
	LogHistory = 1 << 16
	// logStartFrequency is the centre of bin 0 in Hz.
	logStartFrequency = 1344000.0 / LogHistory
)

var (
	// ErrInvalidConfig reports an unusable analyzer configuration.
	ErrInvalidConfig = errors.New("spectrum: invalid analyzer configuration")
	// ErrNotPrepared reports a transform on an analyzer whose configuration
	// changed without a following Prepare.
	ErrNotPrepared = errors.New("spectrum: analyzer not prepared")
)

// Config describes an analyzer.
type Config struct {
	Mode Mode
	// Power is log2 of the FFT size in ModeFFT. Ignored in ModeLog.
	Power      int
	Window     window.Type
	SampleRate float64
}

// Validate reports whether the configuration can be prepared.
func (c Config) Validate() error {
	if c.SampleRate <= 0 || math.IsNaN(c.SampleRate) || math.IsInf(c.SampleRate, 0) {
		return fmt.Errorf("%w: sample rate %g", ErrInvalidConfig, c.SampleRate)
	}

	switch c.Mode {
	case ModeFFT:
		if c.Power < MinPower || c.Power > MaxPower {
			return fmt.Errorf("%w: power %d outside [%d, %d]", ErrInvalidConfig, c.Power, MinPower, MaxPower)
		}
	case ModeLog:
	default:
		return fmt.Errorf("%w: mode %d", ErrInvalidConfig, int(c.Mode))
	}

	return nil
}

// logBin is one log-mode analysis point.
type logBin struct {
	length int
	// step rotates the DFT kernel by one sample.
	step complex128
	// taper holds the window scaled by 1/(length*coherentGain).
	taper []float32
}

// Analyzer is a dual-channel spectrum analyzer. It is not safe for
// concurrent use.
type Analyzer struct {
	cfg      Config
	prepared bool

	data, ref *buffer.Ring[float64]
	history   int

	frameData, frameRef []float64

	// ModeFFT state.
	plan           *algofft.Plan[complex128]
	taper          []float64
	inData, inRef  []complex128
	outData        []complex128
	outRef         []complex128
	re, im         []float64
	frequencies    []float64
	bins           []logBin
	frequencyCount int
}

// NewAnalyzer validates cfg and returns a prepared analyzer.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	a := &Analyzer{cfg: cfg}
	if err := a.Prepare(); err != nil {
		return nil, err
	}

	return a, nil
}

// Config returns the current configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// SetConfig replaces the configuration and prepares the analyzer for it.
// History and spectra are discarded.
func (a *Analyzer) SetConfig(cfg Config) error {
	a.cfg = cfg
	a.prepared = false

	return a.Prepare()
}

// Prepare derives every size-, window- and rate-dependent table for the
// current configuration and clears the history.
func (a *Analyzer) Prepare() error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	switch a.cfg.Mode {
	case ModeFFT:
		if err := a.prepareFFT(); err != nil {
			return err
		}
	case ModeLog:
		a.prepareLog()
	}

	a.data = buffer.NewRing[float64](a.history)
	a.ref = buffer.NewRing[float64](a.history)
	a.frameData = make([]float64, a.history)
	a.frameRef = make([]float64, a.history)
	a.prepared = true

	return nil
}

func (a *Analyzer) prepareFFT() error {
	n := 1 << a.cfg.Power

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return fmt.Errorf("spectrum: failed to create FFT plan: %w", err)
	}

	a.plan = plan
	a.history = n
	a.bins = nil
	a.taper = window.Normalized(a.cfg.Window, n)
	vecmath.ScaleBlock(a.taper, a.taper, 1/float64(n))

	a.inData = make([]complex128, n)
	a.inRef = make([]complex128, n)
	a.outData = make([]complex128, n)
	a.outRef = make([]complex128, n)

	a.frequencyCount = n / 2
	a.frequencies = make([]float64, a.frequencyCount)

	for i := range a.frequencies {
		a.frequencies[i] = float64(i) * a.cfg.SampleRate / float64(n)
	}

	a.re = make([]float64, a.frequencyCount)
	a.im = make([]float64, a.frequencyCount)

	return nil
}

func (a *Analyzer) prepareLog() {
	a.plan = nil
	a.taper = nil
	a.inData, a.inRef = nil, nil
	a.history = LogHistory
	a.frequencyCount = LogBins

	// Window length shrinks by wFactor per bin while the frequency grows by
	// fFactor, so the cycle count per window rises slowly with frequency.
	wFactor := math.Pow(10, -2.5/float64(LogBins))
	fFactor := math.Pow(1000, 1/float64(LogBins))

	a.bins = make([]logBin, LogBins)
	a.frequencies = make([]float64, LogBins)
	a.outData = make([]complex128, LogBins)
	a.outRef = make([]complex128, LogBins)
	a.re = make([]float64, LogBins)
	a.im = make([]float64, LogBins)

	for i := range a.bins {
		f := logStartFrequency * math.Pow(fFactor, float64(i))

		n := int(math.Round(LogHistory * math.Pow(wFactor, float64(i))))
		n = max(1, min(n, LogHistory))

		w := make([]float64, n)
		for j := range w {
			w[j] = window.At(a.cfg.Window, (float64(j)+0.5)/float64(n))
		}

		scale := 1 / (float64(n) * window.CoherentGain(w))

		taper := make([]float32, n)
		for j, v := range w {
			taper[j] = float32(v * scale)
		}

		a.frequencies[i] = f
		a.bins[i] = logBin{
			length: n,
			step:   cmplx.Exp(complex(0, -2*math.Pi*f/a.cfg.SampleRate)),
			taper:  taper,
		}
	}
}

// Reset clears the history and the last spectra without reallocating.
func (a *Analyzer) Reset() {
	if !a.prepared {
		return
	}

	a.data.Reset()
	a.ref.Reset()
	clear(a.outData)
	clear(a.outRef)
}

// Add appends one sample pair to the analysis history.
func (a *Analyzer) Add(data, reference float64) {
	a.data.Write(data)
	a.ref.Write(reference)
}

// Transform computes the spectra of both channels over the current history.
func (a *Analyzer) Transform() error {
	if !a.prepared {
		return ErrNotPrepared
	}

	a.data.Last(a.frameData)
	a.ref.Last(a.frameRef)

	if a.cfg.Mode == ModeLog {
		a.transformLog()

		return nil
	}

	for i, w := range a.taper {
		a.inData[i] = complex(a.frameData[i]*w, 0)
		a.inRef[i] = complex(a.frameRef[i]*w, 0)
	}

	if err := a.plan.Forward(a.outData, a.inData); err != nil {
		return fmt.Errorf("spectrum: forward FFT failed: %w", err)
	}

	if err := a.plan.Forward(a.outRef, a.inRef); err != nil {
		return fmt.Errorf("spectrum: forward FFT failed: %w", err)
	}

	return nil
}

func (a *Analyzer) transformLog() {
	for i := range a.bins {
		b := &a.bins[i]
		start := a.history - b.length

		var sumData, sumRef complex128

		kernel := complex(1, 0)

		for j, w := range b.taper {
			k := kernel * complex(float64(w), 0)
			sumData += k * complex(a.frameData[start+j], 0)
			sumRef += k * complex(a.frameRef[start+j], 0)
			kernel *= b.step
		}

		a.outData[i] = sumData
		a.outRef[i] = sumRef
	}
}

// Size returns the number of published frequency bins.
func (a *Analyzer) Size() int { return a.frequencyCount }

// FFTSize returns the full transform length in ModeFFT and 0 in ModeLog.
// SpectrumData and SpectrumReference accept indices up to FFTSize()-1 in
// ModeFFT, which covers the mirrored upper half of the spectrum.
func (a *Analyzer) FFTSize() int {
	if a.cfg.Mode != ModeFFT || !a.prepared {
		return 0
	}

	return a.history
}

// HistoryLength returns the number of samples each transform covers.
func (a *Analyzer) HistoryLength() int { return a.history }

// SpectrumData returns bin i of the measured channel, or 0 out of range.
func (a *Analyzer) SpectrumData(i int) complex128 {
	if i < 0 || i >= len(a.outData) {
		return 0
	}

	return a.outData[i]
}

// SpectrumReference returns bin i of the reference channel, or 0 out of
// range.
func (a *Analyzer) SpectrumReference(i int) complex128 {
	if i < 0 || i >= len(a.outRef) {
		return 0
	}

	return a.outRef[i]
}

// Frequencies returns the bin centre frequencies in Hz. The slice is owned
// by the analyzer and replaced by the next Prepare.
func (a *Analyzer) Frequencies() []float64 { return a.frequencies }

// Frequency returns the centre of bin i, or 0 out of range.
func (a *Analyzer) Frequency(i int) float64 {
	if i < 0 || i >= len(a.frequencies) {
		return 0
	}

	return a.frequencies[i]
}

// Magnitudes writes |SpectrumData(i)| and |SpectrumReference(i)| for every
// published bin into data and reference, which must hold Size() values.
func (a *Analyzer) Magnitudes(data, reference []float64) {
	n := a.frequencyCount
	split(a.re, a.im, a.outData[:n])
	vecmath.Magnitude(data[:n], a.re, a.im)
	split(a.re, a.im, a.outRef[:n])
	vecmath.Magnitude(reference[:n], a.re, a.im)
}

func split(re, im []float64, z []complex128) {
	for i, v := range z {
		re[i] = real(v)
		im[i] = imag(v)
	}
}
