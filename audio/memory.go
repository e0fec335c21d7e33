// SPDX-License-Identifier: EPL-2.0

package audio

import "io"

// MemorySource replays decoded samples held in memory. It can be rewound,
// which decoders reading from an io.Reader cannot.
type MemorySource struct {
	sampleRate int
	channels   int
	data       []float32
	pos        int
}

func NewMemorySource(sampleRate, channels int, data []float32) *MemorySource {
	return &MemorySource{
		sampleRate: sampleRate,
		channels:   channels,
		data:       data,
	}
}

func (m *MemorySource) SampleRate() int { return m.sampleRate }
func (m *MemorySource) Channels() int   { return m.channels }
func (m *MemorySource) BufSize() int    { return 4096 }
func (m *MemorySource) Close() error    { return nil }

// Frames returns the total length in frames.
func (m *MemorySource) Frames() int { return len(m.data) / m.channels }

// Position returns the read position in frames.
func (m *MemorySource) Position() int { return m.pos / m.channels }

// Seek moves the read position to frame, clamped to the data.
func (m *MemorySource) Seek(frame int) {
	m.pos = min(max(frame, 0), m.Frames()) * m.channels
}

func (m *MemorySource) ReadSamples(dst []float32) (int, error) {
	if len(dst)%m.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if m.pos >= len(m.data) {
		return 0, io.EOF
	}

	n := copy(dst, m.data[m.pos:])
	m.pos += n

	if m.pos >= len(m.data) {
		return n, io.EOF
	}
	return n, nil
}
