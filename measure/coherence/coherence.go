// Package coherence estimates the magnitude-squared coherence between the
// reference and measured spectra over a short history of cycles.
package coherence

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-rta/dsp/core"
)

// DefaultDepth is the number of cycles the estimate spans.
const DefaultDepth = 21

// ErrInvalidDepth reports a depth below one.
var ErrInvalidDepth = errors.New("coherence: depth must be >= 1")

// Estimator keeps per-bin cross and auto spectra for the last Depth
// cycles. Call Advance once per cycle before updating the bins.
type Estimator struct {
	size, depth int
	cursor      int

	grr, gmm []float64
	grm      []complex128
}

// New returns an Estimator for size bins.
func New(size, depth int) (*Estimator, error) {
	if depth < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}

	e := &Estimator{depth: depth}
	e.Resize(size)

	return e, nil
}

// Size returns the bin count.
func (e *Estimator) Size() int { return e.size }

// Depth returns the history length in cycles.
func (e *Estimator) Depth() int { return e.depth }

// Resize changes the bin count and clears the history.
func (e *Estimator) Resize(size int) {
	e.size = max(size, 0)
	n := e.size * e.depth
	e.grr = make([]float64, n)
	e.gmm = make([]float64, n)
	e.grm = make([]complex128, n)
	e.cursor = 0
}

// Reset clears the history.
func (e *Estimator) Reset() {
	clear(e.grr)
	clear(e.gmm)
	clear(e.grm)
	e.cursor = 0
}

// Advance moves to the next history slot, overwriting the oldest cycle.
func (e *Estimator) Advance() {
	e.cursor = (e.cursor + 1) % e.depth
}

// Update stores the spectra of bin i for the current cycle and returns the
// coherence over the history, in [0, 1]. An all-zero history yields 0.
func (e *Estimator) Update(i int, reference, measured complex128) float64 {
	if i < 0 || i >= e.size {
		return 0
	}

	k := i*e.depth + e.cursor
	e.grr[k] = real(reference)*real(reference) + imag(reference)*imag(reference)
	e.gmm[k] = real(measured)*real(measured) + imag(measured)*imag(measured)
	e.grm[k] = complex(real(reference), -imag(reference)) * measured

	return e.Value(i)
}

// Value returns the coherence of bin i without updating it.
func (e *Estimator) Value(i int) float64 {
	if i < 0 || i >= e.size {
		return 0
	}

	lo := i * e.depth

	var (
		crr, cmm float64
		crm      complex128
	)

	for j := lo; j < lo+e.depth; j++ {
		crr += e.grr[j]
		cmm += e.gmm[j]
		crm += e.grm[j]
	}

	den := crr * cmm
	if den == 0 {
		return 0
	}

	num := real(crm)*real(crm) + imag(crm)*imag(crm)

	return core.Clamp(core.Finite(num/den), 0, 1)
}
