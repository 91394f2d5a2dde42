package spectrum

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-rta/dsp/window"
	"github.com/cwbudde/algo-rta/internal/testutil"
	"github.com/mjibson/go-dsp/fft"
)

const sampleRate = 48000.0

func feed(a *Analyzer, data, ref []float64) {
	for i := range data {
		a.Add(data[i], ref[i])
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"fft ok", Config{Mode: ModeFFT, Power: 12, SampleRate: sampleRate}, true},
		{"log ok", Config{Mode: ModeLog, SampleRate: sampleRate}, true},
		{"power low", Config{Mode: ModeFFT, Power: 9, SampleRate: sampleRate}, false},
		{"power high", Config{Mode: ModeFFT, Power: 17, SampleRate: sampleRate}, false},
		{"no rate", Config{Mode: ModeFFT, Power: 12}, false},
		{"bad mode", Config{Mode: Mode(7), SampleRate: sampleRate}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestAnalyzer_FFTFrequencies(t *testing.T) {
	a, err := NewAnalyzer(Config{Mode: ModeFFT, Power: 10, Window: window.TypeHann, SampleRate: sampleRate})
	if err != nil {
		t.Fatal(err)
	}
	if a.Size() != 512 || a.FFTSize() != 1024 || len(a.Frequencies()) != 512 {
		t.Fatalf("Size=%d FFTSize=%d len(freq)=%d", a.Size(), a.FFTSize(), len(a.Frequencies()))
	}
	if got := a.Frequency(1); math.Abs(got-sampleRate/1024) > 1e-9 {
		t.Fatalf("Frequency(1) = %v", got)
	}
	if a.Frequency(-1) != 0 || a.Frequency(512) != 0 {
		t.Fatal("out-of-range frequency not zero")
	}
}

func TestAnalyzer_FFTSineAmplitude(t *testing.T) {
	for _, w := range window.Types {
		t.Run(w.String(), func(t *testing.T) {
			a, err := NewAnalyzer(Config{Mode: ModeFFT, Power: 12, Window: w, SampleRate: sampleRate})
			if err != nil {
				t.Fatal(err)
			}
			n := a.FFTSize()
			bin := 100
			freq := float64(bin) * sampleRate / float64(n)
			sig := testutil.DeterministicSine(freq, sampleRate, 0.8, n)
			feed(a, sig, sig)
			if err := a.Transform(); err != nil {
				t.Fatal(err)
			}
			if got := cmplx.Abs(a.SpectrumData(bin)); math.Abs(got-0.4) > 1e-3 {
				t.Fatalf("|X[%d]| = %v, want 0.4", bin, got)
			}
			if a.SpectrumData(bin) != a.SpectrumReference(bin) {
				t.Fatal("identical channels produced different spectra")
			}
		})
	}
}

func TestAnalyzer_FFTMatchesReferenceFFT(t *testing.T) {
	a, err := NewAnalyzer(Config{Mode: ModeFFT, Power: 10, Window: window.TypeHamming, SampleRate: sampleRate})
	if err != nil {
		t.Fatal(err)
	}
	n := a.FFTSize()
	sig := testutil.DeterministicNoise(7, 1, n)
	feed(a, sig, sig)
	if err := a.Transform(); err != nil {
		t.Fatal(err)
	}

	w := window.Normalized(window.TypeHamming, n)
	frame := make([]float64, n)
	for i := range frame {
		frame[i] = sig[i] * w[i] / float64(n)
	}
	want := fft.FFTReal(frame)

	for i := range n {
		if cmplx.Abs(a.SpectrumData(i)-want[i]) > 1e-9 {
			t.Fatalf("bin %d: got %v, want %v", i, a.SpectrumData(i), want[i])
		}
	}
}

func TestAnalyzer_SlidingHistoryUsesLatestSamples(t *testing.T) {
	a, err := NewAnalyzer(Config{Mode: ModeFFT, Power: 10, Window: window.TypeRectangular, SampleRate: sampleRate})
	if err != nil {
		t.Fatal(err)
	}
	n := a.FFTSize()
	feed(a, testutil.DC(5, n), testutil.DC(5, n))
	feed(a, testutil.DC(1, n), testutil.DC(1, n))
	if err := a.Transform(); err != nil {
		t.Fatal(err)
	}
	if got := real(a.SpectrumData(0)); math.Abs(got-1) > 1e-12 {
		t.Fatalf("DC bin = %v, want 1 (old history leaked)", got)
	}
}

func TestAnalyzer_LogLayout(t *testing.T) {
	a, err := NewAnalyzer(Config{Mode: ModeLog, Window: window.TypeHann, SampleRate: sampleRate})
	if err != nil {
		t.Fatal(err)
	}
	if a.Size() != LogBins || a.FFTSize() != 0 || a.HistoryLength() != LogHistory {
		t.Fatalf("Size=%d FFTSize=%d history=%d", a.Size(), a.FFTSize(), a.HistoryLength())
	}
	f := a.Frequencies()
	if math.Abs(f[0]-20.5078125) > 1e-9 {
		t.Fatalf("first bin = %v", f[0])
	}
	if f[len(f)-1] < 19000 || f[len(f)-1] > 20500 {
		t.Fatalf("last bin = %v", f[len(f)-1])
	}
	for i := 1; i < len(f); i++ {
		if f[i] <= f[i-1] {
			t.Fatalf("frequencies not ascending at %d", i)
		}
	}
	if a.bins[0].length != LogHistory {
		t.Fatalf("lowest bin window = %d, want %d", a.bins[0].length, LogHistory)
	}
	if a.bins[LogBins-1].length >= a.bins[0].length/100 {
		t.Fatalf("highest bin window = %d, want much shorter", a.bins[LogBins-1].length)
	}
}

func TestAnalyzer_LogSineAmplitude(t *testing.T) {
	a, err := NewAnalyzer(Config{Mode: ModeLog, Window: window.TypeHann, SampleRate: sampleRate})
	if err != nil {
		t.Fatal(err)
	}
	bin := 120
	freq := a.Frequency(bin)
	sig := testutil.DeterministicSine(freq, sampleRate, 1, LogHistory)
	feed(a, sig, sig)
	if err := a.Transform(); err != nil {
		t.Fatal(err)
	}
	if got := cmplx.Abs(a.SpectrumData(bin)); math.Abs(got-0.5) > 0.005 {
		t.Fatalf("|X[%d]| at %.1f Hz = %v, want 0.5", bin, freq, got)
	}
	// Far-away bins see little of the tone.
	if got := cmplx.Abs(a.SpectrumData(bin + 48)); got > 0.01 {
		t.Fatalf("leakage two octaves up = %v", got)
	}
}

func TestAnalyzer_Magnitudes(t *testing.T) {
	a, err := NewAnalyzer(Config{Mode: ModeFFT, Power: 10, Window: window.TypeHann, SampleRate: sampleRate})
	if err != nil {
		t.Fatal(err)
	}
	n := a.FFTSize()
	feed(a, testutil.DeterministicNoise(1, 1, n), testutil.DeterministicNoise(2, 1, n))
	if err := a.Transform(); err != nil {
		t.Fatal(err)
	}
	d := make([]float64, a.Size())
	r := make([]float64, a.Size())
	a.Magnitudes(d, r)
	for i := range d {
		if math.Abs(d[i]-cmplx.Abs(a.SpectrumData(i))) > 1e-12 ||
			math.Abs(r[i]-cmplx.Abs(a.SpectrumReference(i))) > 1e-12 {
			t.Fatalf("bin %d magnitude mismatch", i)
		}
	}
}

func TestAnalyzer_SetConfigAndReset(t *testing.T) {
	a, err := NewAnalyzer(Config{Mode: ModeFFT, Power: 10, SampleRate: sampleRate})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SetConfig(Config{Mode: ModeFFT, Power: 11, SampleRate: 44100}); err != nil {
		t.Fatal(err)
	}
	if a.Size() != 1024 || a.Config().SampleRate != 44100 {
		t.Fatalf("SetConfig not applied: size=%d", a.Size())
	}

	feed(a, testutil.Ones(2048), testutil.Ones(2048))
	a.Reset()
	if err := a.Transform(); err != nil {
		t.Fatal(err)
	}
	if a.SpectrumData(0) != 0 {
		t.Fatalf("DC after Reset = %v", a.SpectrumData(0))
	}

	if err := a.SetConfig(Config{Mode: ModeFFT, Power: 3, SampleRate: 44100}); err == nil {
		t.Fatal("expected error for invalid power")
	}
	if err := a.Transform(); !errors.Is(err, ErrNotPrepared) {
		t.Fatalf("Transform after failed SetConfig = %v, want ErrNotPrepared", err)
	}
}
