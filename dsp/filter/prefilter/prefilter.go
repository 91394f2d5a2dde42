// Package prefilter provides the optional input filter applied to both
// measurement channels before metering and analysis.
package prefilter

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-rta/dsp/conv"
	"github.com/cwbudde/algo-rta/dsp/filter/biquad"
	"github.com/cwbudde/algo-rta/dsp/filter/design"
	"github.com/cwbudde/algo-rta/dsp/filter/weighting"
)

// Kind selects an input filter. The zero value applies no filtering.
type Kind int

const (
	KindNone Kind = iota
	KindA
	KindC
	KindNotch1k
	KindBandPass100
	KindLowPass200
)

// Kinds lists every filter kind.
var Kinds = []Kind{KindNone, KindA, KindC, KindNotch1k, KindBandPass100, KindLowPass200}

var kindNames = map[Kind]string{
	KindNone:        "None",
	KindA:           "A",
	KindC:           "C",
	KindNotch1k:     "Notch1k",
	KindBandPass100: "BandPass100",
	KindLowPass200:  "LowPass200",
}

// String returns the filter name.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}

	return "Unknown"
}

// ParseKind resolves a case-insensitive filter name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(kindNames[k], s) {
			return k, nil
		}
	}

	return 0, fmt.Errorf("prefilter: unknown kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("prefilter: unknown kind %d", int(k))
	}

	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}

	*k = v

	return nil
}

// Design returns the sections and gain implementing kind at sampleRate.
func Design(kind Kind, sampleRate float64) ([]biquad.Coefficients, float64, error) {
	if sampleRate <= 0 {
		return nil, 0, fmt.Errorf("prefilter: sample rate must be positive: %g", sampleRate)
	}

	var (
		c   biquad.Coefficients
		err error
	)

	switch kind {
	case KindNone:
		return nil, 1, nil
	case KindA:
		coeffs, gain := weighting.Design(weighting.TypeA, sampleRate)
		return coeffs, gain, nil
	case KindC:
		coeffs, gain := weighting.Design(weighting.TypeC, sampleRate)
		return coeffs, gain, nil
	case KindNotch1k:
		c, err = design.Notch(1000, 3, sampleRate)
	case KindBandPass100:
		c, err = design.Bandpass(100, 5, sampleRate)
	case KindLowPass200:
		c, err = design.Lowpass(200, 0.5, sampleRate)
	default:
		return nil, 0, fmt.Errorf("prefilter: unknown kind %d", int(kind))
	}

	if err != nil {
		return nil, 0, fmt.Errorf("prefilter: %s: %w", kind, err)
	}

	return []biquad.Coefficients{c}, 1, nil
}

// Filter applies one input filter to one signal path.
type Filter struct {
	kind       Kind
	sampleRate float64
	chain      *biquad.Chain
}

// New returns a Filter of the given kind.
func New(kind Kind, sampleRate float64) (*Filter, error) {
	f := &Filter{kind: kind, chain: biquad.NewChain(nil)}
	if err := f.SetSampleRate(sampleRate); err != nil {
		return nil, err
	}

	return f, nil
}

// Kind returns the filter kind.
func (f *Filter) Kind() Kind { return f.kind }

// SetSampleRate re-derives the sections and clears the state.
func (f *Filter) SetSampleRate(sampleRate float64) error {
	coeffs, gain, err := Design(f.kind, sampleRate)
	if err != nil {
		return err
	}

	f.sampleRate = sampleRate
	f.chain.Reconfigure(coeffs, gain)

	return nil
}

// ProcessSample filters one sample. KindNone returns x unchanged.
func (f *Filter) ProcessSample(x float64) float64 {
	return f.chain.ProcessSample(x)
}

// Reset clears the filter state.
func (f *Filter) Reset() { f.chain.Reset() }

// Response returns the complex response at freqHz.
func (f *Filter) Response(freqHz float64) complex128 {
	return f.chain.Response(freqHz, f.sampleRate)
}

// Impulse returns n samples of the impulse response of kind at
// sampleRate, synthesized from its analytic response. n must be a power
// of two.
func Impulse(kind Kind, sampleRate float64, n int) ([]float64, error) {
	coeffs, gain, err := Design(kind, sampleRate)
	if err != nil {
		return nil, err
	}

	chain := biquad.NewChain(coeffs, biquad.WithGain(gain))

	return conv.FilterImpulse(n, sampleRate, chain.Response)
}
