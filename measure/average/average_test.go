package average

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverager_OffIsIdentity(t *testing.T) {
	a, err := New(4)
	require.NoError(t, err)

	for _, x := range []complex128{1 + 2i, -3, 0.5i} {
		assert.Equal(t, x, a.Apply(2, x))
	}
	assert.Equal(t, 7.0, a.ApplyReal(9, 7), "out-of-range slot passes through")
}

func TestAverager_FIFOConstantIsExact(t *testing.T) {
	for _, depth := range []int{1, 3, 4, 16, 64} {
		a, err := New(8, WithMode(FIFO), WithDepth(depth))
		require.NoError(t, err)

		const x = 0.1 + 0.3i
		for n := range 3 * depth {
			got := a.Apply(5, x)
			require.Equal(t, complex128(x), got, "depth %d cycle %d", depth, n)
		}
	}
}

func TestAverager_FIFOMeanOfLastN(t *testing.T) {
	a, err := New(1, WithMode(FIFO), WithDepth(4))
	require.NoError(t, err)

	seq := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	for n, x := range seq {
		got := a.ApplyReal(0, x)

		lo := max(0, n-3)
		want := 0.0
		for _, v := range seq[lo : n+1] {
			want += v
		}
		want /= float64(n + 1 - lo)

		assert.InDelta(t, want, got, 1e-12, "cycle %d", n)
	}
}

func TestAverager_FIFOMeanDoesNotDrift(t *testing.T) {
	const depth = 8
	a, err := New(1, WithMode(FIFO), WithDepth(depth))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for range 20000 * depth {
		a.Apply(0, complex(1e9*rng.Float64(), -1e9*rng.Float64()))
	}

	var got complex128
	for range depth {
		got = a.Apply(0, 0.25-0.5i)
	}
	assert.InDelta(t, 0.25, real(got), 1e-12)
	assert.InDelta(t, -0.5, imag(got), 1e-12)
}

func TestAverager_LPFConverges(t *testing.T) {
	a, err := New(2, WithMode(LPF), WithCutoff(Cutoff1), WithInterval(80*time.Millisecond))
	require.NoError(t, err)

	alpha := 1 - math.Exp(-2*math.Pi*0.08)
	assert.InDelta(t, alpha, a.Alpha(), 1e-15)

	assert.InDelta(t, alpha, a.ApplyReal(0, 1), 1e-15, "state starts at zero")

	var y float64
	for range 200 {
		y = a.ApplyReal(0, 1)
	}
	assert.InDelta(t, 1, y, 1e-9)

	assert.Zero(t, a.ApplyReal(1, 0), "slots are independent")
}

func TestAverager_SetModeStartsClean(t *testing.T) {
	a, err := New(1, WithMode(FIFO), WithDepth(2))
	require.NoError(t, err)

	a.ApplyReal(0, 10)
	a.ApplyReal(0, 10)

	require.NoError(t, a.SetMode(LPF))
	assert.InDelta(t, a.Alpha()*4, a.ApplyReal(0, 4), 1e-12)

	require.NoError(t, a.SetMode(FIFO))
	assert.InDelta(t, 4, a.ApplyReal(0, 4), 0)

	assert.Error(t, a.SetMode(Mode(7)))
}

func TestAverager_SetDepthResets(t *testing.T) {
	a, err := New(1, WithMode(FIFO), WithDepth(2))
	require.NoError(t, err)

	a.ApplyReal(0, 100)
	require.NoError(t, a.SetDepth(3))
	assert.Equal(t, 3, a.Depth())
	assert.InDelta(t, 1, a.ApplyReal(0, 1), 0)

	assert.ErrorIs(t, a.SetDepth(0), ErrInvalidDepth)
	assert.ErrorIs(t, a.SetDepth(65), ErrInvalidDepth)
}

func TestAverager_InvalidOptions(t *testing.T) {
	_, err := New(1, WithCutoff(0.3))
	assert.ErrorIs(t, err, ErrInvalidCutoff)

	_, err = New(1, WithDepth(100))
	assert.ErrorIs(t, err, ErrInvalidDepth)

	_, err = New(1, WithInterval(0))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	a, err := New(1)
	require.NoError(t, err)
	assert.ErrorIs(t, a.SetCutoff(2), ErrInvalidCutoff)
	require.NoError(t, a.SetCutoff(Cutoff0p5))
	assert.Equal(t, 0.5, a.Cutoff())
}

func TestAverager_Resize(t *testing.T) {
	a, err := New(2, WithMode(LPF))
	require.NoError(t, err)

	a.Resize(10)
	assert.Equal(t, 10, a.Size())
	assert.InDelta(t, a.Alpha(), a.ApplyReal(9, 1), 1e-15)
}

func TestMode_Text(t *testing.T) {
	for _, m := range []Mode{Off, LPF, FIFO} {
		b, err := m.MarshalText()
		require.NoError(t, err)

		var got Mode
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, m, got)
	}

	m, err := ParseMode("fifo")
	require.NoError(t, err)
	assert.Equal(t, FIFO, m)

	_, err = Mode(5).MarshalText()
	assert.Error(t, err)
}
