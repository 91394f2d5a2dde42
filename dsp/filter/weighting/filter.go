package weighting

import "github.com/cwbudde/algo-rta/dsp/filter/biquad"

// Filter is a weighting curve bound to a sample rate. It owns its delay
// lines, so one Filter serves exactly one signal path.
type Filter struct {
	curve      Type
	sampleRate float64
	chain      *biquad.Chain
}

// NewFilter returns a Filter for the curve at sampleRate.
//
// Panics under the same conditions as [New].
func NewFilter(t Type, sampleRate float64) *Filter {
	f := &Filter{curve: t, chain: biquad.NewChain(nil)}
	f.SetSampleRate(sampleRate)

	return f
}

// Curve returns the weighting curve.
func (f *Filter) Curve() Type { return f.curve }

// SampleRate returns the rate the coefficients were derived for.
func (f *Filter) SampleRate() float64 { return f.sampleRate }

// SetSampleRate re-derives the coefficients and zeroes the delay lines.
// Calling it with the current rate only clears the state.
func (f *Filter) SetSampleRate(sampleRate float64) {
	coeffs, gain := Design(f.curve, sampleRate)
	f.sampleRate = sampleRate
	f.chain.Reconfigure(coeffs, gain)
}

// ProcessSample filters one sample.
func (f *Filter) ProcessSample(x float64) float64 {
	return f.chain.ProcessSample(x)
}

// ProcessBlock filters buf in place.
func (f *Filter) ProcessBlock(buf []float64) {
	f.chain.ProcessBlock(buf)
}

// Reset zeroes the delay lines.
func (f *Filter) Reset() {
	f.chain.Reset()
}

// Chain exposes the underlying cascade for response queries.
func (f *Filter) Chain() *biquad.Chain { return f.chain }
