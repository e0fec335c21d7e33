// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"encoding/binary"
	"math"
)

// SampleFormat is the storage format of one PCM sample.
type SampleFormat int

const (
	PCM16 SampleFormat = iota
	PCM8
	Float32
)

// Size returns the number of bytes of one sample.
func (f SampleFormat) Size() int {
	switch f {
	case PCM8:
		return 1
	case Float32:
		return 4
	default:
		return 2
	}
}

// Float32ToInt16 clamps x to [-1, 1] and scales it to int16.
func Float32ToInt16(x float32) int16 {
	// 32767 keeps +1.0 from overflowing
	return int16(Clamp(x) * 32767.0)
}

// Int16ToFloat32 scales v into [-1, 1).
func Int16ToFloat32(v int16) float32 {
	return float32(v) / 32768.0
}

// IntToFloat32 scales a signed sample of the given bit depth into [-1, 1).
func IntToFloat32(v, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return float32(v) / 128.0
	case 24:
		return float32(v) / 8388608.0
	case 32:
		return float32(v) / 2147483648.0
	default:
		return float32(v) / 32768.0
	}
}

// EncodePCM writes src into dst in format f and returns the number of bytes
// written. Only whole samples that fit into dst are written.
func EncodePCM(dst []byte, src []float32, f SampleFormat) int {
	size := f.Size()
	n := min(len(src), len(dst)/size)

	switch f {
	case PCM8:
		for i := range n {
			// 8-bit PCM is unsigned
			dst[i] = byte(int(Clamp(src[i])*127.0) + 128)
		}
	case Float32:
		for i := range n {
			binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(src[i]))
		}
	default:
		for i := range n {
			binary.LittleEndian.PutUint16(dst[2*i:], uint16(Float32ToInt16(src[i])))
		}
	}

	return n * size
}

// DecodePCM reads samples in format f from src into dst and returns the number
// of samples decoded.
func DecodePCM(dst []float32, src []byte, f SampleFormat) int {
	size := f.Size()
	n := min(len(dst), len(src)/size)

	switch f {
	case PCM8:
		for i := range n {
			dst[i] = float32(int(src[i])-128) / 128.0
		}
	case Float32:
		for i := range n {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:]))
		}
	default:
		for i := range n {
			dst[i] = Int16ToFloat32(int16(binary.LittleEndian.Uint16(src[2*i:])))
		}
	}

	return n
}
