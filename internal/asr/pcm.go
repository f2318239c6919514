package asr

import (
	"encoding/binary"
	"math"
)

// pcm16FromFloat converts float32 samples in [-1, 1] to little-endian
// 16-bit PCM, clamping out-of-range values.
func pcm16FromFloat(samples []float32) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, sample := range samples {
		if sample > 1 {
			sample = 1
		} else if sample < -1 {
			sample = -1
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(sample*math.MaxInt16)))
	}
	return pcm
}

// floatFromPCM16 is the inverse conversion, used by backends that
// operate on float samples internally.
func floatFromPCM16(pcm []byte) []float32 {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / math.MaxInt16
	}
	return samples
}
