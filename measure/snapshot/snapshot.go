// Package snapshot persists measurement results as JSON row arrays or as
// Apache Parquet files.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-rta/dsp/core"
	"github.com/cwbudde/algo-rta/measure/calibration"
	"github.com/cwbudde/algo-rta/measure/measurement"
)

// ErrMalformedRow is returned when a JSON row has the wrong arity.
var ErrMalformedRow = errors.New("snapshot: malformed row")

// BinRow is one frequency bin. Magnitude is the linear transfer ratio and
// Phase is in radians.
type BinRow struct {
	Frequency   float64 `parquet:"frequency"`
	Module      float64 `parquet:"module"`
	Magnitude   float64 `parquet:"magnitude"`
	Phase       float64 `parquet:"phase"`
	Coherence   float64 `parquet:"coherence"`
	PeakSquared float64 `parquet:"peak_squared"`
	MeanSquared float64 `parquet:"mean_squared"`
}

// MarshalJSON encodes the row as
// [frequency, module, magnitude, phase, coherence, peakSquared, meanSquared].
func (b BinRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([7]float64{
		b.Frequency, b.Module, b.Magnitude, b.Phase,
		b.Coherence, b.PeakSquared, b.MeanSquared,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *BinRow) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	if len(v) != 7 {
		return fmt.Errorf("%w: bin row with %d values", ErrMalformedRow, len(v))
	}

	*b = BinRow{v[0], v[1], v[2], v[3], v[4], v[5], v[6]}

	return nil
}

// ImpulseRow is one impulse response sample. Time is in milliseconds.
type ImpulseRow struct {
	Time  float64 `parquet:"time_ms"`
	Value float64 `parquet:"value"`
}

// MarshalJSON encodes the row as [time, value].
func (r ImpulseRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Time, r.Value})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *ImpulseRow) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	if len(v) != 2 {
		return fmt.Errorf("%w: impulse row with %d values", ErrMalformedRow, len(v))
	}

	r.Time, r.Value = v[0], v[1]

	return nil
}

// Metadata describes how a snapshot was measured.
type Metadata struct {
	Generation     uint64             `json:"generation"`
	SampleRate     float64            `json:"sampleRate"`
	Delay          int                `json:"delay"`
	EstimatedDelay int                `json:"estimatedDelay"`
	GainDB         float64            `json:"gain"`
	Notes          string             `json:"notes"`
	Calibrated     bool               `json:"calibration"`
	Calibration    *calibration.Table `json:"calibrationTable,omitempty"`
}

// Snapshot is a stored measurement. It serves the same query surface as
// measurement.Result.
type Snapshot struct {
	Metadata
	Bins    []BinRow     `json:"bins"`
	Impulse []ImpulseRow `json:"impulse"`
}

var (
	_ measurement.FrequencyDomainProvider = (*Snapshot)(nil)
	_ measurement.TimeDomainProvider      = (*Snapshot)(nil)
)

// FromResult converts r. The phase vector is stored as its angle.
func FromResult(r *measurement.Result, meta Metadata) *Snapshot {
	s := &Snapshot{Metadata: meta}
	if r == nil {
		return s
	}

	s.Generation = r.Generation
	s.SampleRate = r.SampleRate
	s.EstimatedDelay = r.EstimatedDelay

	s.Bins = make([]BinRow, r.Size())
	for i, b := range r.Bins {
		s.Bins[i] = BinRow{
			Frequency:   b.Frequency,
			Module:      b.Module,
			Magnitude:   b.Magnitude,
			Phase:       cmplx.Phase(r.Phase(i)),
			Coherence:   b.Coherence,
			PeakSquared: b.PeakSquared,
			MeanSquared: b.MeanSquared,
		}
	}

	s.Impulse = make([]ImpulseRow, r.ImpulseSize())
	for i, p := range r.Impulse {
		s.Impulse[i] = ImpulseRow{Time: p.Time, Value: p.Value}
	}

	return s
}

// Capture snapshots the latest result of c together with its settings.
func Capture(c *measurement.Controller) *Snapshot {
	cfg := c.Config()

	return FromResult(c.Result(), Metadata{
		Delay:       cfg.Delay,
		GainDB:      cfg.GainDB,
		Notes:       c.Notes(),
		Calibrated:  cfg.Calibration,
		Calibration: c.CalibrationTable(),
	})
}

// WriteJSON encodes s to w.
func (s *Snapshot) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}

	return nil
}

// ReadJSON decodes a snapshot written by WriteJSON.
func ReadJSON(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}

	return &s, nil
}

func (s *Snapshot) bin(i int) BinRow {
	if s == nil || i < 0 || i >= len(s.Bins) {
		return BinRow{}
	}

	return s.Bins[i]
}

func (s *Snapshot) Size() int {
	if s == nil {
		return 0
	}

	return len(s.Bins)
}

func (s *Snapshot) Frequency(i int) float64    { return s.bin(i).Frequency }
func (s *Snapshot) Module(i int) float64       { return s.bin(i).Module }
func (s *Snapshot) MagnitudeRaw(i int) float64 { return s.bin(i).Magnitude }
func (s *Snapshot) Magnitude(i int) float64    { return core.LinearToDB(s.bin(i).Magnitude) }
func (s *Snapshot) Coherence(i int) float64    { return s.bin(i).Coherence }
func (s *Snapshot) PeakSquared(i int) float64  { return s.bin(i).PeakSquared }
func (s *Snapshot) MeanSquared(i int) float64  { return s.bin(i).MeanSquared }

// Phase returns the unit vector at the stored angle.
func (s *Snapshot) Phase(i int) complex128 {
	sin, cos := math.Sincos(s.bin(i).Phase)

	return complex(cos, sin)
}

func (s *Snapshot) CrestFactor(i int) float64 {
	b := s.bin(i)

	return measurement.CrestFactor(b.PeakSquared, b.MeanSquared)
}

func (s *Snapshot) ImpulseSize() int {
	if s == nil {
		return 0
	}

	return len(s.Impulse)
}

func (s *Snapshot) impulse(i int) ImpulseRow {
	if s == nil || i < 0 || i >= len(s.Impulse) {
		return ImpulseRow{}
	}

	return s.Impulse[i]
}

func (s *Snapshot) ImpulseTime(i int) float64  { return s.impulse(i).Time }
func (s *Snapshot) ImpulseValue(i int) float64 { return s.impulse(i).Value }
