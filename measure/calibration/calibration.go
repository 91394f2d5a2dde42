// Package calibration loads microphone calibration curves and maps them
// onto analyzer bin frequencies.
//
// A calibration file is plain text with one point per line: frequency in
// Hz, gain in dB and an optional phase in degrees, separated by tabs or
// commas. Lines that do not start with a digit are headers or comments and
// are skipped, as are rows that fail to parse.
package calibration

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ErrNoPoints is returned when a source yields no usable rows.
var ErrNoPoints = errors.New("calibration: no valid points")

// Point is one calibration row.
type Point struct {
	Frequency float64
	GainDB    float64
	PhaseDeg  float64
}

// MarshalJSON encodes the point as [frequency, gain, phase].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.Frequency, p.GainDB, p.PhaseDeg})
}

// UnmarshalJSON decodes [frequency, gain] or [frequency, gain, phase].
func (p *Point) UnmarshalJSON(b []byte) error {
	var row []float64
	if err := json.Unmarshal(b, &row); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}

	if len(row) < 2 {
		return fmt.Errorf("calibration: row needs at least 2 values, got %d", len(row))
	}

	*p = Point{Frequency: row[0], GainDB: row[1]}
	if len(row) > 2 {
		p.PhaseDeg = row[2]
	}

	return nil
}

// Table is an immutable calibration curve sorted by ascending frequency.
type Table struct {
	points []Point
}

// NewTable sorts a copy of points, keeping the input order of equal
// frequencies. It returns ErrNoPoints when points is empty.
func NewTable(points []Point) (*Table, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}

	freqs := make([]float64, len(points))
	for i, p := range points {
		freqs[i] = p.Frequency
	}

	order := make([]int, len(points))
	floats.ArgsortStable(freqs, order)

	sorted := make([]Point, len(points))
	for i, j := range order {
		sorted[i] = points[j]
	}

	return &Table{points: sorted}, nil
}

// Parse reads a calibration table from r.
func Parse(r io.Reader) (*Table, error) {
	var points []Point

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if p, ok := parseLine(sc.Text()); ok {
			points = append(points, p)
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("calibration: read: %w", err)
	}

	return NewTable(points)
}

// Load reads a calibration table from the file at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return t, nil
}

func parseLine(line string) (Point, bool) {
	if line == "" || line[0] < '0' || line[0] > '9' {
		return Point{}, false
	}

	fields := strings.FieldsFunc(line, func(r rune) bool { return r == '\t' || r == ',' })
	if len(fields) < 2 {
		return Point{}, false
	}

	var vals [3]float64
	for i := 0; i < len(fields) && i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Point{}, false
		}

		vals[i] = v
	}

	return Point{Frequency: vals[0], GainDB: vals[1], PhaseDeg: vals[2]}, true
}

// Len returns the number of points.
func (t *Table) Len() int { return len(t.points) }

// Points returns a copy of the sorted points.
func (t *Table) Points() []Point {
	return append([]Point(nil), t.points...)
}

// MarshalJSON encodes the table as an array of point rows.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.points)
}

// UnmarshalJSON decodes an array of point rows and sorts it.
func (t *Table) UnmarshalJSON(b []byte) error {
	var points []Point
	if err := json.Unmarshal(b, &points); err != nil {
		return err
	}

	nt, err := NewTable(points)
	if err != nil {
		return err
	}

	*t = *nt

	return nil
}
