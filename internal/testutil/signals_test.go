package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	sig := DeterministicSine(1000, 48000, 1.0, 48)
	if len(sig) != 48 {
		t.Fatalf("len = %d", len(sig))
	}
	if sig[0] != 0 {
		t.Fatalf("sig[0] = %v, want 0", sig[0])
	}
	if math.Abs(sig[12]-1) > 1e-12 {
		t.Fatalf("sig[12] = %v, want 1", sig[12])
	}
}

func TestDeterministicNoise(t *testing.T) {
	a := DeterministicNoise(42, 0.5, 1000)
	b := DeterministicNoise(42, 0.5, 1000)
	c := DeterministicNoise(43, 0.5, 1000)
	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("seed 42 not reproducible at %d", i)
		}
		if a[i] != c[i] {
			same = false
		}
		if math.Abs(a[i]) > 0.5 {
			t.Fatalf("sample %d out of range: %v", i, a[i])
		}
	}
	if same {
		t.Fatal("different seeds produced identical noise")
	}
}

func TestDelayed(t *testing.T) {
	x := []float64{0, 0, 1, 0, 0, 0, 0, 0}
	if y := Delayed(x, 3); y[5] != 1 || y[2] != 0 {
		t.Fatalf("Delayed(+3) = %v", y)
	}
	if y := Delayed(x, -2); y[0] != 1 || y[2] != 0 {
		t.Fatalf("Delayed(-2) = %v", y)
	}
	if y := Delayed(x, 9); y[0] != 0 || y[7] != 0 {
		t.Fatalf("Delayed(9) = %v", y)
	}
}

func TestDC(t *testing.T) {
	for i, v := range DC(0.5, 4) {
		if v != 0.5 {
			t.Fatalf("DC[%d] = %v", i, v)
		}
	}
	if got := Ones(3); len(got) != 3 || got[2] != 1 {
		t.Fatalf("Ones(3) = %v", got)
	}
}

func TestInterleaveFloat32(t *testing.T) {
	b := InterleaveFloat32([]float64{1, 2}, []float64{-1})
	if len(b) != 16 {
		t.Fatalf("len = %d, want 16", len(b))
	}
	want := []float32{1, -1, 2, 0}
	for i, w := range want {
		bits := uint32(b[4*i]) | uint32(b[4*i+1])<<8 | uint32(b[4*i+2])<<16 | uint32(b[4*i+3])<<24
		if got := math.Float32frombits(bits); got != w {
			t.Fatalf("sample %d = %v, want %v", i, got, w)
		}
	}
}
