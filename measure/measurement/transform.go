package measurement

import (
	"fmt"
	"math/cmplx"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-rta/dsp/core"
)

// Transform runs one compute cycle: it applies delay changes, drains the
// ring buffers into the analyzers, averages the per-bin results and
// publishes a new Result. It does nothing unless the controller is
// Active.
func (c *Controller) Transform() error {
	if c.State() != Active {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.updateDelay()

	for c.data.Collected() > 0 && c.ref.Collected() > 0 {
		d := c.dataFilter.ProcessSample(c.data.Read())
		r := c.refFilter.ProcessSample(c.ref.Read())

		c.analyzer.Add(d, r)
		c.deconv.Add(d, r)
		c.finder.Add(d, r)
	}

	if err := c.analyzer.Transform(); err != nil {
		return fmt.Errorf("measurement: %w", err)
	}

	if err := c.deconv.TransformSpectra(c.analyzer); err != nil {
		return fmt.Errorf("measurement: %w", err)
	}

	c.ticks++
	if c.ticks >= FinderInterval {
		c.ticks = 0

		if err := c.finder.Transform(); err != nil {
			return fmt.Errorf("measurement: %w", err)
		}

		c.estimatedDelay.Store(int64(c.finder.Delay() + c.appliedDelay))
	}

	res := c.averaging()
	res.Generation = c.generation.Add(1)
	c.result.Store(res)

	select {
	case c.ready <- struct{}{}:
	default:
	}

	return nil
}

// updateDelay applies the difference between the configured and the
// applied delay by padding the lagging ring with zeros.
func (c *Controller) updateDelay() {
	delta := c.cfg.Delay - c.appliedDelay
	if delta == 0 {
		return
	}

	target := c.ref
	if delta < 0 {
		target = c.data
		delta = -delta
	}

	for range delta {
		target.Write(0)
	}

	c.log.Debug("delay applied", zap.Int("from", c.appliedDelay), zap.Int("to", c.cfg.Delay))
	c.appliedDelay = c.cfg.Delay
}

func (c *Controller) averaging() *Result {
	an := c.analyzer
	n := an.Size()
	an.Magnitudes(c.dataMag, c.refMag)
	c.coherence.Advance()

	calibrated := c.cfg.Calibration && c.corrector != nil
	bins := make([]FrequencyBin, n)

	for i := range n {
		d, r := an.SpectrumData(i), an.SpectrumReference(i)

		module := c.dataMag[i]
		phase := cmplx.Phase(d) - cmplx.Phase(r)

		if calibrated {
			module /= c.corrector.Gain(i)
			phase -= c.corrector.Phase(i)
		}

		module = core.Finite(module)
		magnitude := core.Finite(module / c.refMag[i])

		m := c.binMeters[i]
		m.AddSquared(module * module)

		bins[i] = FrequencyBin{
			Frequency:   an.Frequency(i),
			Module:      c.moduleAvg.ApplyReal(i, module),
			Magnitude:   c.magnitudeAvg.ApplyReal(i, magnitude),
			Phase:       c.phaseAvg.Apply(i, cmplx.Rect(1, phase)),
			Coherence:   c.coherence.Update(i, r, d),
			PeakSquared: m.PeakSquared(),
			MeanSquared: m.MeanSquared(),
		}
	}

	size := c.deconv.Size()
	half := size / 2
	kt := 1000 / c.cfg.SampleRate
	impulse := make([]ImpulseSample, size)

	// Slot i of the circular impulse is lag i for i <= size/2 and lag
	// i-size above; j reorders them by ascending lag.
	for i := range size {
		lag := i
		if lag > half {
			lag -= size
		}

		j := (i + half - 1) % size
		impulse[j] = ImpulseSample{
			Time:  float64(lag) * kt,
			Value: c.impulseAvg.ApplyReal(i, c.deconv.Get(i)),
		}
	}

	return &Result{
		SampleRate:     c.cfg.SampleRate,
		EstimatedDelay: int(c.estimatedDelay.Load()),
		Bins:           bins,
		Impulse:        impulse,
	}
}
