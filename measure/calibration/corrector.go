package calibration

import (
	"math"

	"github.com/cwbudde/algo-rta/dsp/core"
)

// Corrector holds a table resampled onto a fixed set of bin frequencies.
type Corrector struct {
	gain  []float64 // linear
	phase []float64 // radians
}

// NewCorrector maps t onto freqs, which must be ascending.
//
// A single cursor walks the table alongside the bins. Bins at or below
// the first point take the first point's values, bins between two points
// are interpolated linearly in frequency and bins beyond the last point
// take the last point's values.
func NewCorrector(t *Table, freqs []float64) *Corrector {
	c := &Corrector{
		gain:  make([]float64, len(freqs)),
		phase: make([]float64, len(freqs)),
	}

	pts := t.points
	last := Point{GainDB: pts[0].GainDB, PhaseDeg: pts[0].PhaseDeg}
	j := 0
	inside := false

	for i, f := range freqs {
		for f > pts[j].Frequency {
			last = pts[j]
			if j+1 >= len(pts) {
				inside = false

				break
			}

			j++
			inside = true
		}

		g, p := pts[j].GainDB, pts[j].PhaseDeg
		if inside && pts[j].Frequency != last.Frequency {
			k := (f - last.Frequency) / (pts[j].Frequency - last.Frequency)
			g = last.GainDB + k*(pts[j].GainDB-last.GainDB)
			p = last.PhaseDeg + k*(pts[j].PhaseDeg-last.PhaseDeg)
		}

		c.gain[i] = core.DBToLinear(g)
		c.phase[i] = p * math.Pi / 180
	}

	return c
}

// Size returns the number of mapped bins.
func (c *Corrector) Size() int { return len(c.gain) }

// Gain returns the linear gain of bin i, or 1 out of range.
func (c *Corrector) Gain(i int) float64 {
	if c == nil || i < 0 || i >= len(c.gain) {
		return 1
	}

	return c.gain[i]
}

// Phase returns the phase of bin i in radians, or 0 out of range.
func (c *Corrector) Phase(i int) float64 {
	if c == nil || i < 0 || i >= len(c.phase) {
		return 0
	}

	return c.phase[i]
}

// GainDB returns the gain of bin i in dB.
func (c *Corrector) GainDB(i int) float64 {
	return core.LinearToDB(c.Gain(i))
}
