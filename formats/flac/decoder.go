// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ik5/audbind/audio"
	"github.com/ik5/audbind/utils"
	"github.com/tphakala/flac"
)

// frameReader is the part of flac.Decoder the source needs, for testing.
type frameReader interface {
	Next() ([]byte, error)
}

// source turns decoded FLAC frames, interleaved little-endian integers, into
// float samples.
type source struct {
	dec        frameReader
	sampleRate int
	channels   int
	bitDepth   int
	frames     int64

	pending []byte
	eof     bool
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 4096 }
func (s *source) Frames() int64   { return s.frames }

func (s *source) sampleBytes() int { return s.bitDepth / 8 }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	size := s.sampleBytes()
	n := 0
	for n < len(dst) {
		if len(s.pending) < size {
			if s.eof {
				break
			}
			frame, err := s.dec.Next()
			if err == io.EOF {
				s.eof = true
				continue
			}
			if err != nil {
				return n, fmt.Errorf("decoding flac frame: %w", err)
			}
			s.pending = frame
			continue
		}

		m := min(len(dst)-n, len(s.pending)/size)
		for i := range m {
			dst[n+i] = utils.IntToFloat32(sampleAt(s.pending[i*size:], size), s.bitDepth)
		}
		s.pending = s.pending[m*size:]
		n += m
	}

	if n == 0 {
		return 0, io.EOF
	}
	if s.eof && len(s.pending) < size {
		return n, io.EOF
	}
	return n, nil
}

// sampleAt reads one sign-extended little-endian sample of size bytes.
func sampleAt(b []byte, size int) int {
	switch size {
	case 1:
		return int(int8(b[0]))
	case 2:
		return int(int16(uint16(b[0]) | uint16(b[1])<<8))
	case 3:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		return int(v<<8) >> 8
	default:
		return int(int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24))
	}
}

type Decoder struct{}

// Sniff accepts streams starting with the fLaC marker.
func (Decoder) Sniff(header []byte) bool {
	return len(header) >= 4 && bytes.Equal(header[:4], []byte("fLaC"))
}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := flac.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("reading flac stream: %w", err)
	}
	return newSource(dec, dec.SampleRate, dec.NChannels, dec.BitsPerSample, int64(dec.TotalSamples))
}

func newSource(dec frameReader, rate, channels, bitDepth int, frames int64) (*source, error) {
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, ErrUnsupportedBitDepth
	}
	if rate <= 0 || channels <= 0 {
		return nil, ErrInvalidStreamInfo
	}
	return &source{
		dec:        dec,
		sampleRate: rate,
		channels:   channels,
		bitDepth:   bitDepth,
		frames:     frames,
	}, nil
}
