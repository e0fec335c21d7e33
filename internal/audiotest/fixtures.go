// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"encoding/binary"
	"math"
)

// WAV16 builds a canonical 44-byte header PCM 16-bit WAV file.
func WAV16(sampleRate, channels int, samples []int16) []byte {
	dataSize := len(samples) * 2
	out := make([]byte, 44+dataSize)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1)
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(sampleRate*channels*2))
	binary.LittleEndian.PutUint16(out[32:34], uint16(channels*2))
	binary.LittleEndian.PutUint16(out[34:36], 16)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[44+2*i:], uint16(s))
	}
	return out
}

// SineWAV16 builds a WAV of frames frames of a sine at frequency, same signal
// on every channel, at half amplitude.
func SineWAV16(sampleRate, channels, frames int, frequency float64) []byte {
	samples := make([]int16, frames*channels)
	for f := range frames {
		v := int16(float64(Sine(sampleRate, frequency, f)) * 0.5 * math.MaxInt16)
		for ch := range channels {
			samples[f*channels+ch] = v
		}
	}
	return WAV16(sampleRate, channels, samples)
}

// PCM16 encodes constant 16-bit frames as raw little-endian bytes.
func PCM16(channels, frames int, value int16) []byte {
	out := make([]byte, frames*channels*2)
	for i := 0; i < len(out); i += 2 {
		binary.LittleEndian.PutUint16(out[i:], uint16(value))
	}
	return out
}
