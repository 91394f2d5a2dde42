package measurement

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cwbudde/algo-rta/dsp/filter/prefilter"
	"github.com/cwbudde/algo-rta/dsp/spectrum"
	"github.com/cwbudde/algo-rta/dsp/window"
	"github.com/cwbudde/algo-rta/measure/average"
)

// Sizes shared by every controller.
const (
	// RingCapacity is the per-channel backlog between ticks.
	RingCapacity = 1 << 16
	// MaxDelay bounds the compensation delay. Half of each ring stays
	// free for the samples that arrive during one tick.
	MaxDelay = RingCapacity / 2
	// ImpulseSize is the length of the published impulse response.
	ImpulseSize = 1 << 12
	// FinderInterval is the number of ticks between delay estimates.
	FinderInterval = 25
	// CoherenceDepth is the number of cycles the coherence spans.
	CoherenceDepth = 21
	// BinMeterDepth is the number of cycles the per-bin peak and mean span.
	BinMeterDepth = 16
	// DefaultTickInterval is the compute cycle period.
	DefaultTickInterval = 80 * time.Millisecond
)

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("measurement: invalid config")

// Mode selects the analyzer resolution.
type Mode int

const (
	FFT10 Mode = iota
	FFT11
	FFT12
	FFT13
	FFT14
	FFT15
	FFT16
	// LFT is the logarithmic-frequency transform with time windows that
	// shrink towards high frequencies.
	LFT
)

// Modes lists every mode.
var Modes = []Mode{FFT10, FFT11, FFT12, FFT13, FFT14, FFT15, FFT16, LFT}

func (m Mode) String() string {
	switch {
	case m == LFT:
		return "LFT"
	case m >= FFT10 && m <= FFT16:
		return fmt.Sprintf("FFT%d", m.Power())
	default:
		return "Unknown"
	}
}

// Power returns log2 of the FFT size, or 0 for LFT.
func (m Mode) Power() int {
	if m < FFT10 || m > FFT16 {
		return 0
	}

	return spectrum.MinPower + int(m)
}

// ParseMode resolves "FFT10".."FFT16" or "LFT", case-insensitively.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if strings.EqualFold(m.String(), s) {
			return m, nil
		}
	}

	return 0, fmt.Errorf("measurement: unknown mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !slices.Contains(Modes, m) {
		return nil, fmt.Errorf("measurement: unknown mode %d", int(m))
	}

	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}

	*m = v

	return nil
}

// Duration is a time.Duration that encodes as text, e.g. "80ms".
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("measurement: %w", err)
	}

	*d = Duration(v)

	return nil
}

// Config is the user-facing measurement setup. Enumerations encode as
// their names in JSON.
type Config struct {
	// SampleRate is replaced by the rate the input negotiates on open.
	SampleRate       float64 `json:"sampleRate"`
	DataChannel      int     `json:"dataChannel"`
	ReferenceChannel int     `json:"referenceChannel"`
	// GainDB scales the measured channel.
	GainDB float64 `json:"gain"`
	// OffsetDB scales the reference channel.
	OffsetDB float64 `json:"offset"`
	// Polarity inverts the measured channel.
	Polarity bool `json:"polarity"`
	// Delay in samples. Positive values delay the reference channel,
	// negative values delay the measured channel.
	Delay        int            `json:"delay"`
	Mode         Mode           `json:"mode"`
	Window       window.Type    `json:"window"`
	Average      average.Mode   `json:"averageType"`
	Depth        int            `json:"average"`
	Cutoff       float64        `json:"filtersFrequency"`
	InputFilter  prefilter.Kind `json:"inputFilter"`
	Calibration  bool           `json:"calibration"`
	TickInterval Duration       `json:"tickInterval"`
}

// DefaultConfig returns a 48 kHz FFT14 Hann measurement with 0.25 Hz
// low-pass averaging, measuring channel 0 against channel 1.
func DefaultConfig() Config {
	return Config{
		SampleRate:       48000,
		DataChannel:      0,
		ReferenceChannel: 1,
		Mode:             FFT14,
		Window:           window.TypeHann,
		Average:          average.LPF,
		Depth:            average.DefaultDepth,
		Cutoff:           average.DefaultCutoff,
		InputFilter:      prefilter.KindNone,
		TickInterval:     Duration(DefaultTickInterval),
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %g", ErrInvalidConfig, c.SampleRate)
	case c.DataChannel < 0 || c.ReferenceChannel < 0:
		return fmt.Errorf("%w: negative channel index", ErrInvalidConfig)
	case c.Delay < -MaxDelay || c.Delay > MaxDelay:
		return fmt.Errorf("%w: delay %d outside ±%d", ErrInvalidConfig, c.Delay, MaxDelay)
	case !slices.Contains(Modes, c.Mode):
		return fmt.Errorf("%w: mode %d", ErrInvalidConfig, int(c.Mode))
	case !slices.Contains(window.Types, c.Window):
		return fmt.Errorf("%w: window %d", ErrInvalidConfig, int(c.Window))
	case c.Average < average.Off || c.Average > average.FIFO:
		return fmt.Errorf("%w: average mode %d", ErrInvalidConfig, int(c.Average))
	case c.Depth < average.MinDepth || c.Depth > average.MaxDepth:
		return fmt.Errorf("%w: depth %d", ErrInvalidConfig, c.Depth)
	case !average.ValidCutoff(c.Cutoff):
		return fmt.Errorf("%w: cutoff %g Hz", ErrInvalidConfig, c.Cutoff)
	case !slices.Contains(prefilter.Kinds, c.InputFilter):
		return fmt.Errorf("%w: input filter %d", ErrInvalidConfig, int(c.InputFilter))
	case c.TickInterval < 0:
		return fmt.Errorf("%w: tick interval %s", ErrInvalidConfig, time.Duration(c.TickInterval))
	}

	return nil
}

func (c Config) analyzerConfig() spectrum.Config {
	ac := spectrum.Config{
		Mode:       spectrum.ModeFFT,
		Power:      c.Mode.Power(),
		Window:     c.Window,
		SampleRate: c.SampleRate,
	}
	if c.Mode == LFT {
		ac.Mode = spectrum.ModeLog
	}

	return ac
}

// averageInterval is the tick period the LPF coefficient is derived from.
// Manually ticked controllers assume the default period.
func (c Config) averageInterval() time.Duration {
	if c.TickInterval <= 0 {
		return DefaultTickInterval
	}

	return time.Duration(c.TickInterval)
}
