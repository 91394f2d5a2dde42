package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-rta/measure/measurement"
)

const wavFormatFloat = 3

var errNotOpen = errors.New("wav input not open")

// wavInput plays a PCM WAV file into a measurement. Open only negotiates
// the format; Play delivers the samples.
type wavInput struct {
	path  string
	block int
	speed float64
	// afterBlock runs after every delivered block.
	afterBlock func()

	f      *os.File
	dec    *wav.Decoder
	sink   measurement.Sink
	format measurement.Format
	frames int
}

func newWAVInput(path string, block int, speed float64) *wavInput {
	return &wavInput{path: path, block: block, speed: speed}
}

// Open implements measurement.Input.
func (w *wavInput) Open(sink measurement.Sink) (measurement.Format, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return measurement.Format{}, err
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		_ = f.Close()

		return measurement.Format{}, fmt.Errorf("%s: not a valid WAV file", w.path)
	}

	if dec.WavAudioFormat == wavFormatFloat {
		_ = f.Close()

		return measurement.Format{}, fmt.Errorf("%s: floating point WAV is not supported", w.path)
	}

	w.f, w.dec, w.sink = f, dec, sink
	w.format = measurement.Format{SampleRate: float64(dec.SampleRate), Channels: int(dec.NumChans)}
	w.frames = 0

	return w.format, nil
}

// Close implements measurement.Input.
func (w *wavInput) Close() error {
	if w.f == nil {
		return nil
	}

	err := w.f.Close()
	w.f, w.dec, w.sink = nil, nil, nil

	return err
}

// Play streams the file to the sink, paced at speed times real time, or
// as fast as possible when speed is 0. A read error is reported to the
// sink and returned.
func (w *wavInput) Play(ctx context.Context) error {
	if w.dec == nil {
		return errNotOpen
	}

	channels := w.format.Channels
	buf := &audio.IntBuffer{Data: make([]int, w.block*channels)}
	pcm := make([]byte, 0, 4*len(buf.Data))

	var tick <-chan time.Time
	if w.speed > 0 {
		period := time.Duration(float64(time.Second) * float64(w.block) / (w.format.SampleRate * w.speed))
		t := time.NewTicker(period)
		defer t.Stop()
		tick = t.C
	}

	for {
		n, err := w.dec.PCMBuffer(buf)
		if err != nil {
			err = fmt.Errorf("%s: %w", w.path, err)
			w.sink.Fail(err)

			return err
		}

		n -= n % channels
		if n == 0 {
			return nil
		}

		pcm = appendFloat32(pcm[:0], buf.Data[:n], buf.SourceBitDepth)
		w.sink.WriteData(pcm)
		w.frames += n / channels

		if w.afterBlock != nil {
			w.afterBlock()
		}

		if tick == nil {
			if err := ctx.Err(); err != nil {
				return err
			}

			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
	}
}

// appendFloat32 converts integer PCM to the little-endian float32 frames a
// measurement.Sink takes. 8-bit WAV samples are unsigned.
func appendFloat32(dst []byte, samples []int, bitDepth int) []byte {
	scale := 1 / float64(int64(1)<<(bitDepth-1))

	for _, v := range samples {
		x := float64(v)
		if bitDepth == 8 {
			x -= 128
		}

		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(x*scale)))
	}

	return dst
}
