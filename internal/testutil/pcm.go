package testutil

import (
	"encoding/binary"
	"math"
)

// InterleaveFloat32 encodes equal-length channels as little-endian float32
// interleaved PCM, the layout audio inputs deliver to a sink.
func InterleaveFloat32(channels ...[]float64) []byte {
	if len(channels) == 0 {
		return nil
	}

	frames := len(channels[0])
	out := make([]byte, 0, frames*len(channels)*4)
	for i := range frames {
		for _, ch := range channels {
			var v float64
			if i < len(ch) {
				v = ch[i]
			}
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(v)))
		}
	}
	return out
}
