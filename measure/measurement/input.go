package measurement

import (
	"sync"

	"github.com/cwbudde/algo-rta/dsp/buffer"
)

// Format is the stream layout an input negotiated.
type Format struct {
	SampleRate float64
	Channels   int
}

// Sink receives audio from an Input.
type Sink interface {
	// WriteData takes little-endian float32 interleaved PCM. It must not
	// block on analysis work.
	WriteData(p []byte)
	// SetFormat reports a sample rate or channel count change.
	SetFormat(f Format)
	// Fail reports a runtime device error.
	Fail(err error)
}

// Input is an audio source. Open starts delivering to sink and returns
// the negotiated format; it may call sink before it returns.
type Input interface {
	Open(sink Sink) (Format, error)
	Close() error
}

// LoopbackSource supplies the sample used for a channel index the input
// does not provide, typically the generator output.
type LoopbackSource interface {
	// Sample returns the next sample, or 0 when none is buffered.
	Sample() float64
}

// Loopback is a LoopbackSource fed by a generator through Push. Samples
// pushed beyond its capacity overwrite the oldest ones.
type Loopback struct {
	mu   sync.Mutex
	ring *buffer.Ring[float64]
}

// NewLoopback returns a Loopback holding at most capacity samples.
func NewLoopback(capacity int) *Loopback {
	return &Loopback{ring: buffer.NewRing[float64](capacity)}
}

// Push buffers generator output.
func (l *Loopback) Push(samples ...float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, v := range samples {
		l.ring.Write(v)
	}
}

// Sample implements LoopbackSource.
func (l *Loopback) Sample() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.ring.Read()
}

// Buffered returns the number of samples waiting.
func (l *Loopback) Buffered() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.ring.Collected()
}

// Reset drops every buffered sample.
func (l *Loopback) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ring.Reset()
}
