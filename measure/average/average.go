// Package average smooths per-bin complex results across measurement
// cycles.
package average

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Mode selects the averaging algorithm.
type Mode int

const (
	// Off passes values through.
	Off Mode = iota
	// LPF is a single-pole low-pass across cycles.
	LPF
	// FIFO is the arithmetic mean of the last Depth values.
	FIFO
)

var modeNames = [...]string{"Off", "LPF", "FIFO"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "Unknown"
	}

	return modeNames[m]
}

// ParseMode resolves a case-insensitive mode name.
func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(n, s) {
			return Mode(i), nil
		}
	}

	return 0, fmt.Errorf("average: unknown mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if m.String() == "Unknown" {
		return nil, fmt.Errorf("average: unknown mode %d", int(m))
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

// Supported LPF cutoffs in Hz.
const (
	Cutoff0p25 = 0.25
	Cutoff0p5  = 0.5
	Cutoff1    = 1.0
)

const (
	MinDepth     = 1
	MaxDepth     = 64
	DefaultDepth = 4

	DefaultCutoff   = Cutoff0p25
	DefaultInterval = 80 * time.Millisecond
)

var (
	// ErrInvalidDepth reports a FIFO depth outside [MinDepth, MaxDepth].
	ErrInvalidDepth = errors.New("average: depth out of range")
	// ErrInvalidCutoff reports an LPF cutoff other than 0.25, 0.5 or 1 Hz.
	ErrInvalidCutoff = errors.New("average: unsupported cutoff")
	// ErrInvalidInterval reports a non-positive update interval.
	ErrInvalidInterval = errors.New("average: interval must be positive")
)

// ValidCutoff reports whether hz is a supported LPF cutoff.
func ValidCutoff(hz float64) bool {
	return hz == Cutoff0p25 || hz == Cutoff0p5 || hz == Cutoff1
}

type config struct {
	mode     Mode
	depth    int
	cutoff   float64
	interval time.Duration
}

// Option configures an Averager.
type Option func(*config)

// WithMode sets the initial mode. Default is Off.
func WithMode(m Mode) Option { return func(c *config) { c.mode = m } }

// WithDepth sets the FIFO depth. Default is DefaultDepth.
func WithDepth(n int) Option { return func(c *config) { c.depth = n } }

// WithCutoff sets the LPF cutoff in Hz. Default is DefaultCutoff.
func WithCutoff(hz float64) Option { return func(c *config) { c.cutoff = hz } }

// WithInterval sets the time between Apply cycles. Default is
// DefaultInterval.
func WithInterval(d time.Duration) Option { return func(c *config) { c.interval = d } }

// Averager holds the per-slot state of one averaged quantity. It is not
// safe for concurrent use.
type Averager struct {
	size     int
	mode     Mode
	depth    int
	cutoff   float64
	interval time.Duration
	alpha    float64

	lpf []complex128

	fifo  []complex128 // size*depth values, slot-major
	mean  []complex128
	pos   []int
	count []int
}

// New returns an Averager with size slots.
func New(size int, opts ...Option) (*Averager, error) {
	cfg := config{mode: Off, depth: DefaultDepth, cutoff: DefaultCutoff, interval: DefaultInterval}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.mode < Off || cfg.mode > FIFO {
		return nil, fmt.Errorf("average: unknown mode %d", int(cfg.mode))
	}

	if cfg.depth < MinDepth || cfg.depth > MaxDepth {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, cfg.depth)
	}

	if !ValidCutoff(cfg.cutoff) {
		return nil, fmt.Errorf("%w: %g Hz", ErrInvalidCutoff, cfg.cutoff)
	}

	if cfg.interval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, cfg.interval)
	}

	a := &Averager{
		mode:     cfg.mode,
		depth:    cfg.depth,
		cutoff:   cfg.cutoff,
		interval: cfg.interval,
	}
	a.updateAlpha()
	a.Resize(size)

	return a, nil
}

// Size returns the number of slots.
func (a *Averager) Size() int { return a.size }

// Mode returns the active mode.
func (a *Averager) Mode() Mode { return a.mode }

// Depth returns the FIFO depth.
func (a *Averager) Depth() int { return a.depth }

// Cutoff returns the LPF cutoff in Hz.
func (a *Averager) Cutoff() float64 { return a.cutoff }

// Alpha returns the LPF smoothing coefficient per cycle.
func (a *Averager) Alpha() float64 { return a.alpha }

// Resize changes the slot count and clears all state.
func (a *Averager) Resize(size int) {
	a.size = max(size, 0)
	a.lpf = make([]complex128, a.size)
	a.fifo = make([]complex128, a.size*a.depth)
	a.mean = make([]complex128, a.size)
	a.pos = make([]int, a.size)
	a.count = make([]int, a.size)
}

// Reset clears all state without changing the configuration.
func (a *Averager) Reset() {
	clear(a.lpf)
	clear(a.fifo)
	clear(a.mean)
	clear(a.pos)
	clear(a.count)
}

// SetMode switches the algorithm. The newly selected mode starts from a
// clean state; values already produced are unaffected.
func (a *Averager) SetMode(m Mode) error {
	if m < Off || m > FIFO {
		return fmt.Errorf("average: unknown mode %d", int(m))
	}

	if m == a.mode {
		return nil
	}

	a.mode = m
	a.Reset()

	return nil
}

// SetDepth reallocates the FIFO and clears it.
func (a *Averager) SetDepth(n int) error {
	if n < MinDepth || n > MaxDepth {
		return fmt.Errorf("%w: %d", ErrInvalidDepth, n)
	}

	a.depth = n
	a.fifo = make([]complex128, a.size*n)
	clear(a.mean)
	clear(a.pos)
	clear(a.count)

	return nil
}

// SetCutoff changes the LPF cutoff. State is kept.
func (a *Averager) SetCutoff(hz float64) error {
	if !ValidCutoff(hz) {
		return fmt.Errorf("%w: %g Hz", ErrInvalidCutoff, hz)
	}

	a.cutoff = hz
	a.updateAlpha()

	return nil
}

// SetInterval changes the cycle time the LPF coefficient is derived from.
func (a *Averager) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, d)
	}

	a.interval = d
	a.updateAlpha()

	return nil
}

func (a *Averager) updateAlpha() {
	a.alpha = 1 - math.Exp(-2*math.Pi*a.cutoff*a.interval.Seconds())
}

// Apply feeds x into slot i and returns the averaged value. Out-of-range
// slots pass x through.
func (a *Averager) Apply(i int, x complex128) complex128 {
	if i < 0 || i >= a.size {
		return x
	}

	switch a.mode {
	case LPF:
		a.lpf[i] += complex(a.alpha, 0) * (x - a.lpf[i])

		return a.lpf[i]
	case FIFO:
		return a.push(i, x)
	default:
		return x
	}
}

// ApplyReal is Apply for real-valued quantities.
func (a *Averager) ApplyReal(i int, x float64) float64 {
	return real(a.Apply(i, complex(x, 0)))
}

func (a *Averager) push(i int, x complex128) complex128 {
	slot := a.fifo[i*a.depth : (i+1)*a.depth]
	p := a.pos[i]
	old := slot[p]
	slot[p] = x
	a.pos[i] = (p + 1) % a.depth

	if a.count[i] < a.depth {
		a.count[i]++
		a.mean[i] += (x - a.mean[i]) / complex(float64(a.count[i]), 0)
	} else {
		a.mean[i] += (x - old) / complex(float64(a.depth), 0)
	}
	if a.pos[i] == 0 {
		a.mean[i] = reanchor(slot, a.mean[i])
	}

	return a.mean[i]
}

// reanchor recomputes the mean of a full slot from its stored values so the
// incremental update cannot drift. The running mean m is the pivot, which
// keeps a constant slot exact.
func reanchor(slot []complex128, m complex128) complex128 {
	var sum, comp complex128
	for _, v := range slot {
		y := (v - m) - comp
		t := sum + y
		comp = (t - sum) - y
		sum = t
	}
	return m + sum/complex(float64(len(slot)), 0)
}
