package calibration

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = `"Sens Factor =-1.5dB, SERNO: 1234"
Frequency	Gain	Phase
1000	0.0	0
20	-1.5	10
bad line
10000,2.0,-5
500	oops	1
2000	0.5
`

func TestParse(t *testing.T) {
	tbl, err := Parse(strings.NewReader(sampleFile))
	require.NoError(t, err)

	want := []Point{
		{Frequency: 20, GainDB: -1.5, PhaseDeg: 10},
		{Frequency: 1000, GainDB: 0, PhaseDeg: 0},
		{Frequency: 2000, GainDB: 0.5},
		{Frequency: 10000, GainDB: 2, PhaseDeg: -5},
	}
	assert.Equal(t, want, tbl.Points())
	assert.Equal(t, 4, tbl.Len())
}

func TestParse_NoPoints(t *testing.T) {
	_, err := Parse(strings.NewReader("Frequency\tGain\n# nothing here\n100\n"))
	assert.ErrorIs(t, err, ErrNoPoints)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mic.cal")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0o600))

	tbl, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, tbl.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.cal"))
	assert.Error(t, err)
}

func TestCorrector_MidpointInterpolation(t *testing.T) {
	tbl, err := NewTable([]Point{
		{Frequency: 100, GainDB: 2, PhaseDeg: 30},
		{Frequency: 300, GainDB: 6, PhaseDeg: -10},
	})
	require.NoError(t, err)

	c := NewCorrector(tbl, []float64{200})
	assert.InDelta(t, 4, c.GainDB(0), 1e-12)
	assert.InDelta(t, 10*math.Pi/180, c.Phase(0), 1e-12)
}

func TestCorrector_Extrapolation(t *testing.T) {
	tbl, err := NewTable([]Point{
		{Frequency: 100, GainDB: 1, PhaseDeg: 5},
		{Frequency: 200, GainDB: 3, PhaseDeg: 15},
		{Frequency: 400, GainDB: -1, PhaseDeg: 0},
	})
	require.NoError(t, err)

	freqs := []float64{10, 100, 150, 200, 300, 400, 1000, 20000}
	wantDB := []float64{1, 1, 2, 3, 1, -1, -1, -1}
	wantDeg := []float64{5, 5, 10, 15, 7.5, 0, 0, 0}

	c := NewCorrector(tbl, freqs)
	require.Equal(t, len(freqs), c.Size())

	for i := range freqs {
		assert.InDelta(t, wantDB[i], c.GainDB(i), 1e-9, "gain @%g Hz", freqs[i])
		assert.InDelta(t, wantDeg[i]*math.Pi/180, c.Phase(i), 1e-12, "phase @%g Hz", freqs[i])
	}
}

func TestCorrector_DuplicateFrequency(t *testing.T) {
	tbl, err := NewTable([]Point{
		{Frequency: 100, GainDB: 1},
		{Frequency: 100, GainDB: 2},
		{Frequency: 200, GainDB: 4},
	})
	require.NoError(t, err)

	c := NewCorrector(tbl, []float64{100, 150})
	assert.False(t, math.IsNaN(c.Gain(0)))
	assert.InDelta(t, 3, c.GainDB(1), 1e-9)
}

func TestCorrector_OutOfRange(t *testing.T) {
	var c *Corrector
	assert.Equal(t, 1.0, c.Gain(3))
	assert.Zero(t, c.Phase(3))
}

func TestTable_JSON(t *testing.T) {
	tbl, err := NewTable([]Point{{Frequency: 2000, GainDB: 1, PhaseDeg: 2}, {Frequency: 20, GainDB: -3}})
	require.NoError(t, err)

	b, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.JSONEq(t, `[[20,-3,0],[2000,1,2]]`, string(b))

	var got Table
	require.NoError(t, json.Unmarshal([]byte(`[[5,1],[1,2,3]]`), &got))
	assert.Equal(t, []Point{{Frequency: 1, GainDB: 2, PhaseDeg: 3}, {Frequency: 5, GainDB: 1}}, got.Points())

	assert.Error(t, json.Unmarshal([]byte(`[[1]]`), &got))
	assert.ErrorIs(t, json.Unmarshal([]byte(`[]`), &got), ErrNoPoints)
}
