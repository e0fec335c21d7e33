// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/ik5/audbind/utils"
)

// HeaderSize is the size of the canonical header written by PutHeader.
const HeaderSize = 44

// UnknownSize marks the data size of a stream whose length is not known when
// the header is written.
const UnknownSize = 0xFFFFFFFF

// Header describes a canonical PCM WAV header.
type Header struct {
	SampleRate int
	Channels   int
	BitDepth   int
	// DataSize is the size of the data chunk in bytes, or UnknownSize.
	DataSize uint32
}

// PutHeader writes the 44-byte header into b, which must be at least
// HeaderSize long.
func (h Header) PutHeader(b []byte) {
	blockAlign := h.Channels * h.BitDepth / 8
	riffSize := h.DataSize
	if riffSize != UnknownSize {
		riffSize += 36
	}

	copy(b[0:4], "RIFF")
	binary.LittleEndian.PutUint32(b[4:8], riffSize)
	copy(b[8:12], "WAVE")

	copy(b[12:16], "fmt ")
	binary.LittleEndian.PutUint32(b[16:20], 16)
	binary.LittleEndian.PutUint16(b[20:22], formatPCM)
	binary.LittleEndian.PutUint16(b[22:24], uint16(h.Channels))
	binary.LittleEndian.PutUint32(b[24:28], uint32(h.SampleRate))
	binary.LittleEndian.PutUint32(b[28:32], uint32(h.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(b[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(b[34:36], uint16(h.BitDepth))

	copy(b[36:40], "data")
	binary.LittleEndian.PutUint32(b[40:44], h.DataSize)
}

// Bytes returns the encoded header.
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	h.PutHeader(b)
	return b
}

// WriteWAV16 writes a mono 16-bit PCM WAV at sampleRate.
func WriteWAV16(w io.Writer, sampleRate int, samples []int16) error {
	h := Header{SampleRate: sampleRate, Channels: 1, BitDepth: 16, DataSize: uint32(len(samples) * 2)}
	if _, err := w.Write(h.Bytes()); err != nil {
		return fmt.Errorf("%w", err)
	}

	const chunkSize = 8192
	buf := make([]byte, min(len(samples), chunkSize)*2)

	for i := 0; i < len(samples); i += chunkSize {
		chunk := samples[i:min(i+chunkSize, len(samples))]
		buf = buf[:len(chunk)*2]
		for j, s := range chunk {
			binary.LittleEndian.PutUint16(buf[j*2:], uint16(s))
		}

		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("%w", err)
		}
	}

	return nil
}

// FileWriter writes float samples to a seekable WAV file. The header sizes
// are patched on Close.
type FileWriter struct {
	enc      *gowav.Encoder
	format   *goaudio.Format
	bitDepth int
	ints     []int
}

// NewFileWriter starts a PCM WAV on ws.
func NewFileWriter(ws io.WriteSeeker, sampleRate, channels, bitDepth int) *FileWriter {
	return &FileWriter{
		enc:      gowav.NewEncoder(ws, sampleRate, bitDepth, channels, formatPCM),
		format:   &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
		bitDepth: bitDepth,
	}
}

// WriteSamples appends interleaved float samples.
func (f *FileWriter) WriteSamples(samples []float32) error {
	if cap(f.ints) < len(samples) {
		f.ints = make([]int, len(samples))
	}
	f.ints = f.ints[:len(samples)]

	scale := float32(int(1)<<(f.bitDepth-1) - 1)
	for i, v := range samples {
		f.ints[i] = int(utils.Clamp(v) * scale)
	}

	buf := &goaudio.IntBuffer{Data: f.ints, Format: f.format, SourceBitDepth: f.bitDepth}
	if err := f.enc.Write(buf); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// Close finalizes the header. It does not close the underlying writer.
func (f *FileWriter) Close() error {
	if err := f.enc.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}
