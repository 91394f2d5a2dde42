package biquad

import (
	"math"
	"testing"
)

func twoSectionCoeffs() []Coefficients {
	return []Coefficients{
		{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04},
		{B0: 0.1, B1: 0.2, B2: 0.1, A1: -0.5, A2: 0.1},
	}
}

func TestChain_MatchesManualCascade(t *testing.T) {
	coeffs := twoSectionCoeffs()
	s1 := NewSection(coeffs[0])
	s2 := NewSection(coeffs[1])
	chain := NewChain(coeffs, WithGain(0.5))

	for i, x := range []float64{1, 0.5, -0.3, 0.7, 0, -1, 0.2, 0.8} {
		ref := s2.ProcessSample(s1.ProcessSample(0.5 * x))
		if got := chain.ProcessSample(x); !almostEqual(got, ref, eps) {
			t.Errorf("sample %d: chain=%.15f, ref=%.15f", i, got, ref)
		}
	}
}

func TestChain_ProcessBlockMatchesSample(t *testing.T) {
	input := []float64{1, 0.5, -0.3, 0.7, 0, -1, 0.2, 0.8}

	a := NewChain(twoSectionCoeffs(), WithGain(2))
	ref := make([]float64, len(input))
	for i, x := range input {
		ref[i] = a.ProcessSample(x)
	}

	b := NewChain(twoSectionCoeffs(), WithGain(2))
	block := append([]float64(nil), input...)
	b.ProcessBlock(block)

	for i := range block {
		if !almostEqual(block[i], ref[i], eps) {
			t.Errorf("sample %d: block=%.15f, sample=%.15f", i, block[i], ref[i])
		}
	}
}

func TestChain_EmptyPassesThroughWithGain(t *testing.T) {
	c := NewChain(nil, WithGain(3))
	if c.NumSections() != 0 {
		t.Fatalf("NumSections = %d", c.NumSections())
	}
	if got := c.ProcessSample(2); got != 6 {
		t.Fatalf("ProcessSample = %v, want 6", got)
	}
	if got := c.MagnitudeDB(1000, 48000); !almostEqual(got, 20*math.Log10(3), 1e-12) {
		t.Fatalf("MagnitudeDB = %v", got)
	}
}

func TestChain_ReconfigureResetsState(t *testing.T) {
	c := NewChain(twoSectionCoeffs())
	for range 50 {
		c.ProcessSample(1)
	}

	c.Reconfigure(twoSectionCoeffs()[:1], 1)
	if c.NumSections() != 1 {
		t.Fatalf("NumSections = %d, want 1", c.NumSections())
	}
	if c.Section(0).State() != [2]float64{} {
		t.Fatalf("state survived Reconfigure: %v", c.Section(0).State())
	}
	if y := c.ProcessSample(0); y != 0 {
		t.Fatalf("ProcessSample(0) after Reconfigure = %v", y)
	}
}

func TestChain_ResponseIsProductOfSections(t *testing.T) {
	coeffs := twoSectionCoeffs()
	c := NewChain(coeffs, WithGain(0.7))

	for _, f := range []float64{50, 1000, 12000} {
		want := complex(0.7, 0) * coeffs[0].Response(f, 48000) * coeffs[1].Response(f, 48000)
		got := c.Response(f, 48000)
		if !almostEqual(real(got), real(want), 1e-12) || !almostEqual(imag(got), imag(want), 1e-12) {
			t.Fatalf("Response(%g) = %v, want %v", f, got, want)
		}
	}
}

func TestChain_StabilityLongRun(t *testing.T) {
	c := NewChain(twoSectionCoeffs())
	for i := range 100000 {
		y := c.ProcessSample(math.Sin(float64(i) * 0.01))
		if math.IsNaN(y) || math.IsInf(y, 0) {
			t.Fatalf("non-finite output at %d", i)
		}
	}
}
