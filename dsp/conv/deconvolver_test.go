package conv

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-rta/internal/testutil"
)

func TestNewDeconvolver_Validation(t *testing.T) {
	if _, err := NewDeconvolver(1000); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("err = %v, want ErrInvalidSize", err)
	}
	if _, err := NewDeconvolver(1024, WithEpsilon(-1)); !errors.Is(err, ErrInvalidEpsilon) {
		t.Fatalf("err = %v, want ErrInvalidEpsilon", err)
	}
	if _, err := NewDeconvolver(1024, WithEpsilon(math.NaN())); !errors.Is(err, ErrInvalidEpsilon) {
		t.Fatalf("err = %v, want ErrInvalidEpsilon", err)
	}
}

func TestDeconvolver_IdenticalChannelsGiveUnitImpulse(t *testing.T) {
	d, err := NewDeconvolver(1024)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range testutil.DeterministicNoise(1, 1, 1024) {
		d.Add(v, v)
	}
	if err := d.Transform(); err != nil {
		t.Fatal(err)
	}
	if d.MaxIndex() != 0 {
		t.Fatalf("MaxIndex = %d, want 0", d.MaxIndex())
	}
	if got := d.Get(0); math.Abs(got-1) > 5e-3 {
		t.Fatalf("ir[0] = %v, want ~1", got)
	}
	for i := 1; i < d.Size(); i++ {
		if math.Abs(d.Get(i)) > 5e-3 {
			t.Fatalf("ir[%d] = %v, want ~0", i, d.Get(i))
		}
	}
}

func TestDeconvolver_FindsDelay(t *testing.T) {
	const (
		n     = 4096
		delay = 37
	)
	ref := testutil.DeterministicNoise(3, 1, n+delay)
	d, err := NewDeconvolver(n)
	if err != nil {
		t.Fatal(err)
	}
	for i := delay; i < len(ref); i++ {
		d.Add(ref[i-delay], ref[i])
	}
	if err := d.Transform(); err != nil {
		t.Fatal(err)
	}
	if d.MaxIndex() != delay {
		t.Fatalf("MaxIndex = %d, want %d", d.MaxIndex(), delay)
	}
}

func TestDeconvolver_SilentReferenceStaysFinite(t *testing.T) {
	d, err := NewDeconvolver(256)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range testutil.DeterministicNoise(5, 1, 256) {
		d.Add(v, 0)
	}
	if err := d.Transform(); err != nil {
		t.Fatal(err)
	}
	testutil.RequireFinite(t, d.Impulse())
	for i, v := range d.Impulse() {
		if v != 0 {
			t.Fatalf("ir[%d] = %v, want 0", i, v)
		}
	}
}

type fakeSpectra struct {
	size      int
	data, ref []complex128
}

func (f fakeSpectra) FFTSize() int                       { return f.size }
func (f fakeSpectra) SpectrumData(i int) complex128      { return f.data[i] }
func (f fakeSpectra) SpectrumReference(i int) complex128 { return f.ref[i] }

func TestDeconvolver_TransformSpectraReusesSource(t *testing.T) {
	const n = 64
	src := fakeSpectra{size: n, data: make([]complex128, n), ref: make([]complex128, n)}
	// H(k) = exp(-j*2*pi*k*5/n): a pure five-sample delay.
	for k := range n {
		src.ref[k] = 1
		src.data[k] = cmplx.Exp(complex(0, -2*math.Pi*float64(k)*5/n))
	}

	d, err := NewDeconvolver(n, WithEpsilon(0))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.TransformSpectra(src); err != nil {
		t.Fatal(err)
	}
	if d.MaxIndex() != 5 || math.Abs(d.Get(5)-1) > 1e-12 {
		t.Fatalf("MaxIndex = %d, ir[5] = %v", d.MaxIndex(), d.Get(5))
	}

	// A source of another size is ignored in favour of the own window.
	src.size = 2 * n
	if err := d.TransformSpectra(src); err != nil {
		t.Fatal(err)
	}
	if d.Get(5) != 0 {
		t.Fatalf("fallback used foreign spectra: ir[5] = %v", d.Get(5))
	}
}

func TestDeconvolver_ResetAndRange(t *testing.T) {
	d, err := NewDeconvolver(64)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range testutil.DeterministicNoise(9, 1, 64) {
		d.Add(v, v)
	}
	if err := d.Transform(); err != nil {
		t.Fatal(err)
	}
	d.Reset()
	if d.Get(0) != 0 || d.MaxIndex() != 0 {
		t.Fatal("Reset kept impulse data")
	}
	if d.Get(-1) != 0 || d.Get(64) != 0 {
		t.Fatal("out-of-range Get not zero")
	}
}
