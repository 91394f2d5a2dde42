package measurement

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-rta/dsp/buffer"
	"github.com/cwbudde/algo-rta/dsp/conv"
	"github.com/cwbudde/algo-rta/dsp/core"
	"github.com/cwbudde/algo-rta/dsp/filter/prefilter"
	"github.com/cwbudde/algo-rta/dsp/filter/weighting"
	"github.com/cwbudde/algo-rta/dsp/spectrum"
	"github.com/cwbudde/algo-rta/measure/average"
	"github.com/cwbudde/algo-rta/measure/calibration"
	"github.com/cwbudde/algo-rta/measure/coherence"
	"github.com/cwbudde/algo-rta/measure/delay"
	"github.com/cwbudde/algo-rta/measure/meter"
)

var (
	// ErrNoInput is returned by SetActive(true) without an Input.
	ErrNoInput = errors.New("measurement: no input configured")
	// ErrNoLevel is returned by ApplyAutoGain before the Slow A meter has
	// filled.
	ErrNoLevel = errors.New("measurement: no level available")
)

// Controller owns one measurement. All methods are safe for concurrent
// use.
type Controller struct {
	lifecycle sync.Mutex // serializes SetActive
	opened    bool
	stop      chan struct{}
	done      chan struct{}

	mu     sync.Mutex // guards everything below up to result
	cfg    Config
	format Format
	log    *zap.Logger
	input  Input
	loop   LoopbackSource

	data, ref  *buffer.Ring[float64]
	bank       *meter.Bank
	dataFilter *prefilter.Filter
	refFilter  *prefilter.Filter
	analyzer   *spectrum.Analyzer
	deconv     *conv.Deconvolver
	finder     *delay.Finder

	ticks        int
	appliedDelay int

	magnitudeAvg *average.Averager
	moduleAvg    *average.Averager
	phaseAvg     *average.Averager
	impulseAvg   *average.Averager
	coherence    *coherence.Estimator
	binMeters    []*meter.Meter
	dataMag      []float64
	refMag       []float64

	calTable  *calibration.Table
	corrector *calibration.Corrector

	result         atomic.Pointer[Result]
	generation     atomic.Uint64
	estimatedDelay atomic.Int64
	state          atomic.Int32
	resetting      atomic.Bool

	ready chan struct{}
	errs  chan error
}

// New returns an inactive controller.
func New(opts ...Option) (*Controller, error) {
	c := &Controller{
		cfg:   DefaultConfig(),
		log:   zap.NewNop(),
		data:  buffer.NewRing[float64](RingCapacity),
		ref:   buffer.NewRing[float64](RingCapacity),
		ready: make(chan struct{}, 1),
		errs:  make(chan error, 1),
	}

	for _, o := range opts {
		o(c)
	}

	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}

	c.format = Format{SampleRate: c.cfg.SampleRate, Channels: 2}

	bank, err := meter.NewBank(c.cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("measurement: %w", err)
	}

	c.bank = bank

	if c.deconv, err = conv.NewDeconvolver(ImpulseSize); err != nil {
		return nil, fmt.Errorf("measurement: %w", err)
	}

	if c.finder, err = delay.NewFinder(delay.DefaultSize); err != nil {
		return nil, fmt.Errorf("measurement: %w", err)
	}

	if err := c.rebuild(); err != nil {
		return nil, err
	}

	c.result.Store(&Result{SampleRate: c.cfg.SampleRate})

	return c, nil
}

// State returns the lifecycle state.
func (c *Controller) State() State { return State(c.state.Load()) }

// Errors delivers device failures. At most one undelivered error is kept.
func (c *Controller) Errors() <-chan error { return c.errs }

// Ready receives a value after a new Result is published. Notifications
// coalesce when the reader falls behind.
func (c *Controller) Ready() <-chan struct{} { return c.ready }

// Generation returns the number of results published so far.
func (c *Controller) Generation() uint64 { return c.generation.Load() }

// Result returns the latest published result. It is never nil and must
// not be modified.
func (c *Controller) Result() *Result { return c.result.Load() }

// EstimatedDelay returns the last delay estimate in samples, including
// the applied compensation delay.
func (c *Controller) EstimatedDelay() int { return int(c.estimatedDelay.Load()) }

// Format returns the negotiated stream format.
func (c *Controller) Format() Format {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.format
}

// SetActive opens or closes the input and starts or stops the tick.
// An open failure moves the controller to Error and is also delivered on
// Errors.
func (c *Controller) SetActive(active bool) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if active {
		return c.activate()
	}

	return c.deactivate()
}

func (c *Controller) activate() error {
	if c.State() == Active {
		return nil
	}

	// A runtime failure leaves the previous run and the input in place.
	if c.stop != nil || c.opened {
		c.stopRun()
		_ = c.closeInput()
	}

	if c.input == nil {
		c.fail(ErrNoInput)

		return ErrNoInput
	}

	format, err := c.input.Open(c)
	if err != nil {
		err = fmt.Errorf("measurement: open input: %w", err)
		c.fail(err)

		return err
	}

	c.opened = true

	c.mu.Lock()
	err = c.applyFormat(format)
	if err == nil {
		c.resetLocked()
	}
	interval := time.Duration(c.cfg.TickInterval)
	c.mu.Unlock()

	if err != nil {
		c.closeInput()
		c.fail(err)

		return err
	}

	c.state.Store(int32(Active))
	c.log.Info("measurement active",
		zap.Float64("sampleRate", format.SampleRate),
		zap.Int("channels", format.Channels),
		zap.Duration("tick", interval))

	if interval > 0 {
		c.stop = make(chan struct{})
		c.done = make(chan struct{})

		go c.run(interval, c.stop, c.done)
	}

	return nil
}

func (c *Controller) deactivate() error {
	c.stopRun()

	prev := c.State()
	c.state.Store(int32(Inactive))

	err := c.closeInput()

	c.mu.Lock()
	c.bank.Reset()
	c.mu.Unlock()

	if prev != Inactive {
		c.log.Info("measurement inactive", zap.Stringer("from", prev))
	}

	return err
}

// stopRun stops the ticker goroutine, if any, and waits for it to exit.
func (c *Controller) stopRun() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop, c.done = nil, nil
}

func (c *Controller) closeInput() error {
	if !c.opened {
		return nil
	}

	c.opened = false

	if err := c.input.Close(); err != nil {
		c.log.Warn("closing input failed", zap.Error(err))

		return fmt.Errorf("measurement: close input: %w", err)
	}

	return nil
}

// Fail implements Sink. The controller moves to Error and stops
// computing until SetActive is called again.
func (c *Controller) Fail(err error) {
	c.fail(err)
}

func (c *Controller) fail(err error) {
	c.state.Store(int32(Error))
	c.log.Error("measurement failed", zap.Error(err))

	select {
	case c.errs <- err:
	default:
	}

	c.mu.Lock()
	c.bank.Reset()
	c.mu.Unlock()
}

func (c *Controller) run(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.Transform(); err != nil {
				c.log.Warn("transform failed", zap.Error(err))
			}
		}
	}
}

// SetFormat implements Sink. A sample rate change re-derives every
// frequency-dependent component.
func (c *Controller) SetFormat(f Format) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyFormat(f); err != nil {
		c.log.Error("unusable input format", zap.Error(err))
	}
}

func (c *Controller) applyFormat(f Format) error {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return fmt.Errorf("%w: format %+v", ErrInvalidConfig, f)
	}

	prev := c.format
	c.format = f

	if f.SampleRate == c.cfg.SampleRate {
		return nil
	}

	old := c.cfg
	c.cfg.SampleRate = f.SampleRate

	if err := c.rebuild(); err != nil {
		c.cfg, c.format = old, prev

		return err
	}

	c.log.Info("sample rate changed",
		zap.Float64("from", old.SampleRate),
		zap.Float64("to", f.SampleRate))

	return nil
}

// WriteData implements Sink. It demultiplexes the configured channels
// into the ring buffers and the level meters, and returns without work
// while the controller is inactive or resetting.
func (c *Controller) WriteData(p []byte) {
	if c.State() != Active || c.resetting.Load() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	channels := c.format.Channels
	if channels <= 0 {
		return
	}

	dataCh, refCh := c.cfg.DataChannel, c.cfg.ReferenceChannel
	useLoop := c.loop != nil && (dataCh >= channels || refCh >= channels)

	gain := core.DBToLinear(c.cfg.GainDB)
	if c.cfg.Polarity {
		gain = -gain
	}

	offset := core.DBToLinear(c.cfg.OffsetDB)
	stride := 4 * channels

	for off := 0; off+stride <= len(p); off += stride {
		var loop float64
		if useLoop {
			loop = c.loop.Sample()
		}

		d, r := loop, loop
		if dataCh < channels {
			d = sampleAt(p, off+4*dataCh)
		}

		if refCh < channels {
			r = sampleAt(p, off+4*refCh)
		}

		d *= gain
		r *= offset

		c.data.Write(d)
		c.bank.Add(d)
		c.ref.Write(r)
		c.bank.AddToReference(r)
	}
}

func sampleAt(p []byte, off int) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(p[off:])))
}

// Level returns the measured-channel level for (curve, time) in dBFS.
func (c *Controller) Level(curve weighting.Type, t meter.Time) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.bank.Level(curve, t)
}

// Peak returns the measured-channel peak for (curve, time) in dBFS.
func (c *Controller) Peak(curve weighting.Type, t meter.Time) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.bank.Peak(curve, t)
}

// ReferenceLevel returns the Z-weighted Slow reference level in dBFS.
func (c *Controller) ReferenceLevel() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.bank.ReferenceLevel()
}
