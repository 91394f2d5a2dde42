package snapshot

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-rta/measure/calibration"
	"github.com/cwbudde/algo-rta/measure/measurement"
)

func sampleResult() *measurement.Result {
	return &measurement.Result{
		Generation:     7,
		SampleRate:     48000,
		EstimatedDelay: 12,
		Bins: []measurement.FrequencyBin{
			{Frequency: 0},
			{Frequency: 2.9296875, Module: 0.25, Magnitude: 0.5, Phase: complex(0, 2), Coherence: 0.8, PeakSquared: 0.1, MeanSquared: 0.05},
		},
		Impulse: []measurement.ImpulseSample{
			{Time: -0.02, Value: 0.001},
			{Time: 0, Value: 0.95},
		},
	}
}

func sampleSnapshot(t *testing.T) *Snapshot {
	t.Helper()

	tbl, err := calibration.NewTable([]calibration.Point{
		{Frequency: 100, GainDB: 1},
		{Frequency: 1000, GainDB: -0.5, PhaseDeg: 3},
	})
	require.NoError(t, err)

	return FromResult(sampleResult(), Metadata{
		Delay:       -4,
		GainDB:      3.5,
		Notes:       "FFT power 14",
		Calibrated:  true,
		Calibration: tbl,
	})
}

func TestFromResult(t *testing.T) {
	s := sampleSnapshot(t)

	assert.Equal(t, uint64(7), s.Generation)
	assert.Equal(t, 12, s.EstimatedDelay)
	assert.Equal(t, 2, s.Size())
	assert.InDelta(t, math.Pi/2, s.Bins[1].Phase, 1e-12)
	assert.InDelta(t, -6.0206, s.Magnitude(1), 1e-4)
	assert.InDelta(t, 0, real(s.Phase(1)), 1e-12)
	assert.InDelta(t, 1, imag(s.Phase(1)), 1e-12)
	assert.InDelta(t, 3.0103, s.CrestFactor(1), 1e-4)
	assert.True(t, math.IsInf(s.Magnitude(0), -1))
	assert.Equal(t, 2, s.ImpulseSize())
	assert.InDelta(t, 0.95, s.ImpulseValue(1), 0)
	assert.Zero(t, s.ImpulseTime(5))

	empty := FromResult(nil, Metadata{Notes: "x"})
	assert.Zero(t, empty.Size())
	assert.Equal(t, "x", empty.Notes)
}

func TestJSONRoundTrip(t *testing.T) {
	s := sampleSnapshot(t)

	var buf bytes.Buffer
	require.NoError(t, s.WriteJSON(&buf))

	out := buf.String()
	assert.Contains(t, out, `"impulse":[[-0.02,0.001],[0,0.95]]`)
	assert.Contains(t, out, `"calibrationTable":[[100,1,0],[1000,-0.5,3]]`)
	assert.Contains(t, out, `"gain":3.5`)

	back, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, s.Bins, back.Bins)
	assert.Equal(t, s.Impulse, back.Impulse)
	assert.Equal(t, s.Notes, back.Notes)
	assert.Equal(t, s.Calibration.Points(), back.Calibration.Points())
}

func TestJSONMalformedRow(t *testing.T) {
	_, err := ReadJSON(strings.NewReader(`{"bins":[[1,2,3]]}`))
	assert.ErrorIs(t, err, ErrMalformedRow)

	_, err = ReadJSON(strings.NewReader(`{"impulse":[[1]]}`))
	assert.ErrorIs(t, err, ErrMalformedRow)
}

func TestParquetRoundTrip(t *testing.T) {
	s := sampleSnapshot(t)

	var bins, impulse bytes.Buffer
	require.NoError(t, s.WriteParquet(&bins, &impulse))

	back, err := ReadParquet(bytes.NewReader(bins.Bytes()), int64(bins.Len()), bytes.NewReader(impulse.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, s.Bins, back.Bins)
	assert.Equal(t, s.Impulse, back.Impulse)
	assert.Equal(t, s.Delay, back.Delay)
	assert.Equal(t, s.Generation, back.Generation)
	assert.True(t, back.Calibrated)
	assert.Equal(t, s.Calibration.Points(), back.Calibration.Points())
}

func TestParquetWithoutMetadata(t *testing.T) {
	var bins, impulse bytes.Buffer
	require.NoError(t, writeRows(&bins, []BinRow{{Frequency: 1}}))
	require.NoError(t, writeRows(&impulse, []ImpulseRow{{Time: 1}}))

	_, err := ReadParquet(bytes.NewReader(bins.Bytes()), int64(bins.Len()), bytes.NewReader(impulse.Bytes()))
	assert.ErrorIs(t, err, ErrNoMetadata)
}

func TestCaptureController(t *testing.T) {
	c, err := measurement.New()
	require.NoError(t, err)

	s := Capture(c)
	assert.Zero(t, s.Size())
	assert.Contains(t, s.Notes, "FFT power 14")
	assert.Nil(t, s.Calibration)
	assert.InDelta(t, 48000, s.SampleRate, 0)
}
