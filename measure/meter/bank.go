package meter

import (
	"fmt"

	"github.com/cwbudde/algo-rta/dsp/core"
	"github.com/cwbudde/algo-rta/dsp/filter/prefilter"
	"github.com/cwbudde/algo-rta/dsp/filter/weighting"
)

// Time is a meter time constant.
type Time int

const (
	Fast Time = iota
	Slow
)

// Times lists the supported time constants.
var Times = [...]Time{Fast, Slow}

// Seconds returns the integration time.
func (t Time) Seconds() float64 {
	if t == Slow {
		return 1
	}

	return 0.125
}

func (t Time) String() string {
	switch t {
	case Fast:
		return "Fast"
	case Slow:
		return "Slow"
	default:
		return "Unknown"
	}
}

func (t Time) valid() bool { return t == Fast || t == Slow }

// Bank is the level meter grid of one measured channel plus a Z-weighted
// Slow meter on the reference channel.
//
// Bank is not safe for concurrent use.
type Bank struct {
	sampleRate float64
	input      *prefilter.Filter
	weights    [len(weighting.Types)]*weighting.Filter
	meters     [len(weighting.Types)][len(Times)]*Meter
	reference  *Meter
}

// NewBank returns a bank running at sampleRate with no input filter.
func NewBank(sampleRate float64) (*Bank, error) {
	input, err := prefilter.New(prefilter.KindNone, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("meter: %w", err)
	}

	b := &Bank{sampleRate: sampleRate, input: input}
	for _, c := range weighting.Types {
		b.weights[c] = weighting.NewFilter(c, sampleRate)
		for _, t := range Times {
			b.meters[c][t] = NewMeter(t.Seconds(), sampleRate)
		}
	}

	b.reference = NewMeter(Slow.Seconds(), sampleRate)

	return b, nil
}

// SampleRate returns the current rate.
func (b *Bank) SampleRate() float64 { return b.sampleRate }

// InputFilter returns the shared pre-filter kind.
func (b *Bank) InputFilter() prefilter.Kind { return b.input.Kind() }

// SetInputFilter replaces the shared pre-filter and resets the bank.
func (b *Bank) SetInputFilter(kind prefilter.Kind) error {
	f, err := prefilter.New(kind, b.sampleRate)
	if err != nil {
		return fmt.Errorf("meter: %w", err)
	}

	b.input = f
	b.Reset()

	return nil
}

// SetSampleRate re-derives every filter, resizes every meter and resets.
func (b *Bank) SetSampleRate(sampleRate float64) error {
	if err := b.input.SetSampleRate(sampleRate); err != nil {
		return fmt.Errorf("meter: %w", err)
	}

	b.sampleRate = sampleRate
	for _, c := range weighting.Types {
		b.weights[c].SetSampleRate(sampleRate)
		for _, t := range Times {
			b.meters[c][t].SetLength(int(t.Seconds()*sampleRate + 0.5))
		}
	}

	b.reference.SetLength(int(Slow.Seconds()*sampleRate + 0.5))

	return nil
}

// Add feeds one measured sample through the input filter, each weighting
// and both time constants.
func (b *Bank) Add(x float64) {
	x = b.input.ProcessSample(x)
	for c, w := range b.weights {
		y := w.ProcessSample(x)
		b.meters[c][Fast].Add(y)
		b.meters[c][Slow].Add(y)
	}
}

// AddToReference feeds one reference sample.
func (b *Bank) AddToReference(x float64) {
	b.reference.Add(x)
}

// Reset clears every filter and meter.
func (b *Bank) Reset() {
	b.input.Reset()
	for c := range b.weights {
		b.weights[c].Reset()
		for t := range b.meters[c] {
			b.meters[c][t].Reset()
		}
	}

	b.reference.Reset()
}

// Meter returns the meter for (curve, time), or nil when either is unknown.
func (b *Bank) Meter(curve weighting.Type, t Time) *Meter {
	if !curve.Valid() || !t.valid() {
		return nil
	}

	return b.meters[curve][t]
}

// Level returns the RMS level in dBFS, or core.NoDataDB when no value is
// available for (curve, time).
func (b *Bank) Level(curve weighting.Type, t Time) float64 {
	m := b.Meter(curve, t)
	if m == nil {
		return core.NoDataDB
	}

	return m.DB()
}

// Peak returns the windowed peak in dBFS, or core.NoDataDB.
func (b *Bank) Peak(curve weighting.Type, t Time) float64 {
	m := b.Meter(curve, t)
	if m == nil {
		return core.NoDataDB
	}

	return m.PeakDB()
}

// ReferenceLevel returns the Z-weighted Slow level of the reference channel.
func (b *Bank) ReferenceLevel() float64 {
	return b.reference.DB()
}
