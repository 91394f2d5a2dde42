package conv

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-rta/dsp/buffer"
	"github.com/cwbudde/algo-rta/dsp/core"
	"gonum.org/v1/gonum/floats"
)

// DefaultEpsilon is the relative regularization applied to the reference
// power spectrum.
const DefaultEpsilon = 1e-6

var (
	// ErrInvalidSize reports a transform size that is not a power of two >= 2.
	ErrInvalidSize = errors.New("conv: size must be a power of two >= 2")
	// ErrInvalidEpsilon reports a negative or non-finite regularization.
	ErrInvalidEpsilon = errors.New("conv: epsilon must be finite and >= 0")
)

// Spectra is a source of full-length complex spectra for both channels,
// typically a fixed-mode spectrum analyzer fed with the same samples.
type Spectra interface {
	// FFTSize returns the transform length, or 0 when the source does not
	// hold full-length spectra.
	FFTSize() int
	SpectrumData(i int) complex128
	SpectrumReference(i int) complex128
}

// DeconvOption configures a Deconvolver.
type DeconvOption func(*deconvConfig)

type deconvConfig struct {
	epsilon float64
}

// WithEpsilon sets the relative regularization. Default is DefaultEpsilon.
func WithEpsilon(eps float64) DeconvOption {
	return func(c *deconvConfig) { c.epsilon = eps }
}

// Deconvolver is a streaming impulse-response estimator. It is not safe
// for concurrent use.
type Deconvolver struct {
	size    int
	epsilon float64

	data, ref *buffer.Ring[float64]
	frame     []float64

	plan           *algofft.Plan[complex128]
	inData, inRef  []complex128
	outData        []complex128
	outRef         []complex128
	quotient       []complex128
	impulse        []complex128
	ir, magnitudes []float64
	maxIndex       int
}

// NewDeconvolver returns a Deconvolver with a window of size samples.
func NewDeconvolver(size int, opts ...DeconvOption) (*Deconvolver, error) {
	cfg := deconvConfig{epsilon: DefaultEpsilon}
	for _, o := range opts {
		o(&cfg)
	}

	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	if cfg.epsilon < 0 || math.IsNaN(cfg.epsilon) || math.IsInf(cfg.epsilon, 0) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidEpsilon, cfg.epsilon)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	return &Deconvolver{
		size:       size,
		epsilon:    cfg.epsilon,
		data:       buffer.NewRing[float64](size),
		ref:        buffer.NewRing[float64](size),
		frame:      make([]float64, size),
		plan:       plan,
		inData:     make([]complex128, size),
		inRef:      make([]complex128, size),
		outData:    make([]complex128, size),
		outRef:     make([]complex128, size),
		quotient:   make([]complex128, size),
		impulse:    make([]complex128, size),
		ir:         make([]float64, size),
		magnitudes: make([]float64, size),
	}, nil
}

// Size returns the window and impulse length.
func (d *Deconvolver) Size() int { return d.size }

// Add appends one sample pair to the window.
func (d *Deconvolver) Add(data, reference float64) {
	d.data.Write(data)
	d.ref.Write(reference)
}

// Reset clears the window and the last impulse response.
func (d *Deconvolver) Reset() {
	d.data.Reset()
	d.ref.Reset()
	clear(d.ir)
	d.maxIndex = 0
}

// Transform computes the impulse response from the deconvolver's own window.
func (d *Deconvolver) Transform() error {
	load(d.inData, d.frame, d.data)
	load(d.inRef, d.frame, d.ref)

	if err := d.plan.Forward(d.outData, d.inData); err != nil {
		return fmt.Errorf("conv: forward FFT failed: %w", err)
	}

	if err := d.plan.Forward(d.outRef, d.inRef); err != nil {
		return fmt.Errorf("conv: forward FFT failed: %w", err)
	}

	return d.divide(d.outData, d.outRef)
}

// TransformSpectra computes the impulse response from src when src holds
// spectra of the same length, and falls back to Transform otherwise.
func (d *Deconvolver) TransformSpectra(src Spectra) error {
	if src == nil || src.FFTSize() != d.size {
		return d.Transform()
	}

	for i := range d.size {
		d.outData[i] = src.SpectrumData(i)
		d.outRef[i] = src.SpectrumReference(i)
	}

	return d.divide(d.outData, d.outRef)
}

func load(dst []complex128, frame []float64, src *buffer.Ring[float64]) {
	src.Last(frame)

	for i, v := range frame {
		dst[i] = complex(v, 0)
	}
}

func (d *Deconvolver) divide(data, ref []complex128) error {
	peak := 0.0
	for _, r := range ref {
		peak = math.Max(peak, real(r)*real(r)+imag(r)*imag(r))
	}

	lambda := d.epsilon * peak

	for i := range data {
		r := ref[i]
		den := real(r)*real(r) + imag(r)*imag(r) + lambda

		if den == 0 {
			d.quotient[i] = 0

			continue
		}

		q := data[i] * complex(real(r), -imag(r)) / complex(den, 0)
		d.quotient[i] = core.FiniteComplex(q)
	}

	if err := d.plan.Inverse(d.impulse, d.quotient); err != nil {
		return fmt.Errorf("conv: inverse FFT failed: %w", err)
	}

	for i, v := range d.impulse {
		d.ir[i] = core.Finite(real(v))
		d.magnitudes[i] = math.Abs(d.ir[i])
	}

	d.maxIndex = floats.MaxIdx(d.magnitudes)

	return nil
}

// Get returns impulse sample i, or 0 out of range.
func (d *Deconvolver) Get(i int) float64 {
	if i < 0 || i >= d.size {
		return 0
	}

	return d.ir[i]
}

// Impulse returns the last impulse response. The slice is owned by the
// Deconvolver and overwritten by the next transform.
func (d *Deconvolver) Impulse() []float64 { return d.ir }

// MaxIndex returns the index of the largest impulse magnitude.
func (d *Deconvolver) MaxIndex() int { return d.maxIndex }
