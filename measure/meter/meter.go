package meter

import (
	"math"

	"github.com/cwbudde/algo-rta/dsp/buffer"
	"github.com/cwbudde/algo-rta/dsp/core"
)

// NoValue is returned by Meter.Value before the window has filled.
const NoValue = -math.MaxFloat64

// Meter is a sliding-window mean-square integrator.
//
// The running sum uses Kahan compensation on both the add and the
// subtract so that long runs do not drift. The peak is the exact maximum
// over the window, kept in a monotonic deque.
type Meter struct {
	squares *buffer.Ring[float64]

	sum  float64
	comp float64

	// deque of (sample index, square) with strictly decreasing squares
	dqIdx []int64
	dqVal []float64
	head  int
	count int

	n int64
}

// NewMeter returns a meter integrating over timeConstant seconds.
func NewMeter(timeConstant, sampleRate float64) *Meter {
	return NewMeterLength(int(math.Round(timeConstant * sampleRate)))
}

// NewMeterLength returns a meter integrating over length samples.
// Lengths below one are raised to one.
func NewMeterLength(length int) *Meter {
	m := &Meter{squares: buffer.NewRing[float64](1)}
	m.SetLength(length)

	return m
}

// SetLength resizes the window and clears the meter.
func (m *Meter) SetLength(length int) {
	length = max(length, 1)
	m.squares.Resize(length)
	m.dqIdx = make([]int64, length)
	m.dqVal = make([]float64, length)
	m.Reset()
}

// Length returns the window length in samples.
func (m *Meter) Length() int { return m.squares.Size() }

// Reset clears the window, the sum and the peak.
func (m *Meter) Reset() {
	m.squares.Reset()
	m.sum, m.comp = 0, 0
	m.head, m.count = 0, 0
	m.n = 0
}

// Add integrates one sample.
func (m *Meter) Add(x float64) {
	m.AddSquared(x * x)
}

// AddSquared integrates a value that is already a power.
func (m *Meter) AddSquared(s float64) {
	old, evicted := m.squares.Push(s)

	m.kahan(s)
	if evicted {
		m.kahan(-old)
	}

	m.pushPeak(s)
}

func (m *Meter) kahan(v float64) {
	y := v - m.comp
	t := m.sum + y
	m.comp = (t - m.sum) - y
	m.sum = t
}

func (m *Meter) pushPeak(s float64) {
	size := len(m.dqVal)

	for m.count > 0 && m.dqIdx[m.head] <= m.n-int64(size) {
		m.head = (m.head + 1) % size
		m.count--
	}

	for m.count > 0 {
		back := (m.head + m.count - 1) % size
		if m.dqVal[back] > s {
			break
		}

		m.count--
	}

	tail := (m.head + m.count) % size
	m.dqIdx[tail] = m.n
	m.dqVal[tail] = s
	m.count++
	m.n++
}

// Full reports whether the window holds length samples.
func (m *Meter) Full() bool {
	return m.squares.Collected() == m.squares.Size()
}

// PeakSquared returns the largest square in the window, or 0 when empty.
func (m *Meter) PeakSquared() float64 {
	if m.count == 0 {
		return 0
	}

	return m.dqVal[m.head]
}

// MeanSquared returns the mean of the squares currently held, clamped to
// [0, PeakSquared]. It is defined before the window fills.
func (m *Meter) MeanSquared() float64 {
	c := m.squares.Collected()
	if c == 0 {
		return 0
	}

	return core.Clamp(m.sum/float64(c), 0, m.PeakSquared())
}

// Value returns the mean square, or NoValue until the window is full.
func (m *Meter) Value() float64 {
	if !m.Full() {
		return NoValue
	}

	return m.MeanSquared()
}

// DB returns 10*log10 of the mean square, or core.NoDataDB until full.
func (m *Meter) DB() float64 {
	if !m.Full() {
		return core.NoDataDB
	}

	return core.PowerToDB(m.MeanSquared())
}

// PeakDB returns the windowed peak in dB, or core.NoDataDB until full.
func (m *Meter) PeakDB() float64 {
	if !m.Full() {
		return core.NoDataDB
	}

	return core.PowerToDB(m.PeakSquared())
}
