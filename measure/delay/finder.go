// Package delay estimates the time offset between the measured and the
// reference channel from the peak of their long impulse response.
package delay

import (
	"fmt"

	"github.com/cwbudde/algo-rta/dsp/conv"
)

// DefaultSize is the window of the delay finder, about 1.4 s at 48 kHz.
const DefaultSize = 1 << 16

// Finder tracks the delay of the data channel relative to the reference.
// A positive delay means the data channel lags.
type Finder struct {
	deconv *conv.Deconvolver
}

// NewFinder returns a Finder over size samples. Size must be a power of two.
func NewFinder(size int) (*Finder, error) {
	d, err := conv.NewDeconvolver(size)
	if err != nil {
		return nil, fmt.Errorf("delay: %w", err)
	}

	return &Finder{deconv: d}, nil
}

// Size returns the analysis window.
func (f *Finder) Size() int { return f.deconv.Size() }

// Add appends one sample pair.
func (f *Finder) Add(data, reference float64) { f.deconv.Add(data, reference) }

// Reset clears the window.
func (f *Finder) Reset() { f.deconv.Reset() }

// Transform recomputes the impulse response.
func (f *Finder) Transform() error { return f.deconv.Transform() }

// MaxIndex returns the raw argmax of the impulse magnitude.
func (f *Finder) MaxIndex() int { return f.deconv.MaxIndex() }

// Delay returns the signed delay in samples. Peaks in the upper half of
// the circular impulse are negative lags.
func (f *Finder) Delay() int {
	i, n := f.deconv.MaxIndex(), f.deconv.Size()
	if i > n/2 {
		return i - n
	}

	return i
}
