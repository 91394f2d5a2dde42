package measurement

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-rta/dsp/filter/prefilter"
	"github.com/cwbudde/algo-rta/dsp/filter/weighting"
	"github.com/cwbudde/algo-rta/dsp/spectrum"
	"github.com/cwbudde/algo-rta/measure/average"
	"github.com/cwbudde/algo-rta/measure/calibration"
	"github.com/cwbudde/algo-rta/measure/coherence"
	"github.com/cwbudde/algo-rta/measure/meter"
)

// Config returns the current configuration.
func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cfg
}

// SetConfig validates and applies cfg. While active the negotiated sample
// rate is kept. Mode, window, input filter and sample rate changes rebuild
// the analysis chain and clear all history; averaging changes reset only
// the averagers; gain, offset, polarity and delay apply to the next
// samples and tick. A new TickInterval takes effect on the next
// activation.
func (c *Controller) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.cfg
	if c.State() == Active {
		cfg.SampleRate = old.SampleRate
	}

	c.cfg = cfg

	switch {
	case old.SampleRate != cfg.SampleRate, old.Mode != cfg.Mode,
		old.Window != cfg.Window, old.InputFilter != cfg.InputFilter:
		if err := c.rebuild(); err != nil {
			c.cfg = old

			return err
		}
	default:
		if err := c.applyAveraging(old); err != nil {
			c.cfg = old

			return err
		}

		if old.DataChannel != cfg.DataChannel || old.ReferenceChannel != cfg.ReferenceChannel {
			c.data.Reset()
			c.ref.Reset()
			c.appliedDelay = 0
		}
	}

	c.log.Info("measurement configured",
		zap.Stringer("mode", cfg.Mode),
		zap.Stringer("window", cfg.Window),
		zap.Stringer("average", cfg.Average),
		zap.Int("delay", cfg.Delay),
		zap.Float64("gain", cfg.GainDB))

	return nil
}

// rebuild derives every size- and rate-dependent component from c.cfg.
// On error nothing is replaced.
func (c *Controller) rebuild() error {
	cfg := c.cfg

	an, err := spectrum.NewAnalyzer(cfg.analyzerConfig())
	if err != nil {
		return fmt.Errorf("measurement: %w", err)
	}

	dataFilter, err := prefilter.New(cfg.InputFilter, cfg.SampleRate)
	if err != nil {
		return fmt.Errorf("measurement: %w", err)
	}

	refFilter, err := prefilter.New(cfg.InputFilter, cfg.SampleRate)
	if err != nil {
		return fmt.Errorf("measurement: %w", err)
	}

	n := an.Size()

	avgs := make([]*average.Averager, 4)
	for i := range avgs {
		size := n
		if i == 3 {
			size = ImpulseSize
		}

		avgs[i], err = average.New(size,
			average.WithMode(cfg.Average),
			average.WithDepth(cfg.Depth),
			average.WithCutoff(cfg.Cutoff),
			average.WithInterval(cfg.averageInterval()))
		if err != nil {
			return fmt.Errorf("measurement: %w", err)
		}
	}

	coh, err := coherence.New(n, CoherenceDepth)
	if err != nil {
		return fmt.Errorf("measurement: %w", err)
	}

	if c.bank.SampleRate() != cfg.SampleRate {
		if err := c.bank.SetSampleRate(cfg.SampleRate); err != nil {
			return fmt.Errorf("measurement: %w", err)
		}
	}

	if err := c.bank.SetInputFilter(cfg.InputFilter); err != nil {
		return fmt.Errorf("measurement: %w", err)
	}

	c.analyzer = an
	c.dataFilter, c.refFilter = dataFilter, refFilter
	c.magnitudeAvg, c.moduleAvg, c.phaseAvg, c.impulseAvg = avgs[0], avgs[1], avgs[2], avgs[3]
	c.coherence = coh

	c.binMeters = make([]*meter.Meter, n)
	for i := range c.binMeters {
		c.binMeters[i] = meter.NewMeterLength(BinMeterDepth)
	}

	c.dataMag = make([]float64, n)
	c.refMag = make([]float64, n)

	c.mapCalibration()

	c.data.Reset()
	c.ref.Reset()
	c.deconv.Reset()
	c.finder.Reset()
	c.appliedDelay = 0
	c.ticks = 0

	return nil
}

func (c *Controller) applyAveraging(old Config) error {
	cfg := c.cfg

	for _, a := range []*average.Averager{c.magnitudeAvg, c.moduleAvg, c.phaseAvg, c.impulseAvg} {
		if err := a.SetMode(cfg.Average); err != nil {
			return fmt.Errorf("measurement: %w", err)
		}

		if cfg.Depth != old.Depth {
			if err := a.SetDepth(cfg.Depth); err != nil {
				return fmt.Errorf("measurement: %w", err)
			}
		}

		if err := a.SetCutoff(cfg.Cutoff); err != nil {
			return fmt.Errorf("measurement: %w", err)
		}

		if err := a.SetInterval(cfg.averageInterval()); err != nil {
			return fmt.Errorf("measurement: %w", err)
		}
	}

	return nil
}

// ResetAverage clears every averager, meter, analyzer and ring buffer.
// Writes arriving meanwhile are dropped instead of waiting for the lock.
func (c *Controller) ResetAverage() {
	c.resetting.Store(true)
	defer c.resetting.Store(false)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	c.log.Debug("averages reset")
}

func (c *Controller) resetLocked() {
	c.magnitudeAvg.Reset()
	c.moduleAvg.Reset()
	c.phaseAvg.Reset()
	c.impulseAvg.Reset()
	c.coherence.Reset()

	for _, m := range c.binMeters {
		m.Reset()
	}

	c.bank.Reset()
	c.analyzer.Reset()
	c.deconv.Reset()
	c.finder.Reset()
	c.dataFilter.Reset()
	c.refFilter.Reset()
	c.data.Reset()
	c.ref.Reset()

	c.appliedDelay = 0
	c.ticks = 0
	c.estimatedDelay.Store(0)
}

// SetCalibration installs t, or removes the table when t is nil. Removing
// the table also disables calibration.
func (c *Controller) SetCalibration(t *calibration.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calTable = t
	if t == nil {
		c.cfg.Calibration = false
	}

	c.mapCalibration()
}

func (c *Controller) mapCalibration() {
	if c.calTable == nil {
		c.corrector = nil

		return
	}

	c.corrector = calibration.NewCorrector(c.calTable, c.analyzer.Frequencies())
}

// CalibrationTable returns the installed table, or nil.
func (c *Controller) CalibrationTable() *calibration.Table {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calTable
}

// LoadCalibration reads a calibration file and installs it. A file
// without usable points removes the table and disables calibration.
func (c *Controller) LoadCalibration(path string) error {
	t, err := calibration.Load(path)
	if err != nil {
		if errors.Is(err, calibration.ErrNoPoints) {
			c.SetCalibration(nil)
		}

		c.log.Warn("calibration not loaded", zap.String("path", path), zap.Error(err))

		return err
	}

	c.SetCalibration(t)
	c.log.Info("calibration loaded", zap.String("path", path), zap.Int("points", t.Len()))

	return nil
}

// ApplyAutoGain adjusts GainDB so that the A-weighted Slow level of the
// measured channel reads targetDB, and returns the new gain.
func (c *Controller) ApplyAutoGain(targetDB float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	level := c.bank.Level(weighting.TypeA, meter.Slow)
	if math.IsInf(level, 0) || math.IsNaN(level) {
		return c.cfg.GainDB, ErrNoLevel
	}

	c.cfg.GainDB += targetDB - level
	c.log.Info("auto gain applied", zap.Float64("level", level), zap.Float64("gain", c.cfg.GainDB))

	return c.cfg.GainDB, nil
}

// Notes summarizes the configuration for a stored measurement.
func (c *Controller) Notes() string {
	c.mu.Lock()
	cfg := c.cfg
	calibrated := cfg.Calibration && c.corrector != nil
	c.mu.Unlock()

	var b strings.Builder

	if cfg.Mode == LFT {
		b.WriteString("FT log time window")
	} else {
		fmt.Fprintf(&b, "FFT power %d", cfg.Mode.Power())
	}

	fmt.Fprintf(&b, "\tdelay: %.2fms gain: %.2fdB\n", 1000*float64(cfg.Delay)/cfg.SampleRate, cfg.GainDB)
	fmt.Fprintf(&b, "R: %d M: %d", cfg.ReferenceChannel+1, cfg.DataChannel+1)

	if cfg.Polarity {
		b.WriteString(" polarity inverted")
	}

	if calibrated {
		b.WriteString(" calibrated")
	}

	fmt.Fprintf(&b, "\nWindow: %s\tAverage: %s", cfg.Window, averageNote(cfg))

	return b.String()
}

func averageNote(cfg Config) string {
	switch cfg.Average {
	case average.LPF:
		return fmt.Sprintf("LPF %g Hz", cfg.Cutoff)
	case average.FIFO:
		return fmt.Sprintf("FIFO %d", cfg.Depth)
	default:
		return "none"
	}
}
