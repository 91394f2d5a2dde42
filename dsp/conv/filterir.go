package conv

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-rta/dsp/core"
)

// FilterImpulse returns n samples of the impulse response of the transfer
// function h, sampled on the n-point FFT grid at sampleRate.
//
// Bins 0..n/2 are taken from h; the DC and Nyquist bins keep only their
// real part and the upper half mirrors the conjugate of the lower half, so
// the inverse transform is real.
func FilterImpulse(n int, sampleRate float64, h func(freqHz, sampleRate float64) complex128) ([]float64, error) {
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}

	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("conv: sample rate must be positive: %g", sampleRate)
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	spectrum := make([]complex128, n)
	half := n / 2

	for k := 0; k <= half; k++ {
		v := core.FiniteComplex(h(float64(k)*sampleRate/float64(n), sampleRate))
		if k == 0 || k == half {
			v = complex(real(v), 0)
		}

		spectrum[k] = v
		if k > 0 && k < half {
			spectrum[n-k] = complex(real(v), -imag(v))
		}
	}

	out := make([]complex128, n)
	if err := plan.Inverse(out, spectrum); err != nil {
		return nil, fmt.Errorf("conv: inverse FFT failed: %w", err)
	}

	ir := make([]float64, n)
	for i, v := range out {
		ir[i] = real(v)
	}

	return ir, nil
}
