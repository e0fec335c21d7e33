// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"errors"
	"io"
	"testing"

	goaudio "github.com/go-audio/audio"
)

type fakeAiff struct {
	samples []int
	err     error
}

func (f *fakeAiff) Format() *goaudio.Format {
	return &goaudio.Format{SampleRate: 8000, NumChannels: 1}
}

func (f *fakeAiff) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n := copy(buf.Data, f.samples)
	f.samples = f.samples[n:]
	return n, nil
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bitDepth int
		value    int
		want     float32
	}{
		{"8-bit", 8, 64, 0.5},
		{"16-bit", 16, 16384, 0.5},
		{"24-bit", 24, 4194304, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := &source{dec: &fakeAiff{samples: []int{tt.value, -tt.value}}, channels: 1, bitDepth: tt.bitDepth}

			buf := make([]float32, 4)
			n, err := s.ReadSamples(buf)
			if n != 2 || err != io.EOF {
				t.Fatalf("ReadSamples() = (%d, %v), want (2, io.EOF)", n, err)
			}
			if buf[0] != tt.want || buf[1] != -tt.want {
				t.Errorf("samples = %v, want ±%v", buf[:2], tt.want)
			}
		})
	}
}

func TestSource_Error(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	s := &source{dec: &fakeAiff{err: boom}, channels: 1, bitDepth: 16}
	if _, err := s.ReadSamples(make([]float32, 2)); !errors.Is(err, boom) {
		t.Errorf("ReadSamples() error = %v, want %v", err, boom)
	}
}

func TestDecoder(t *testing.T) {
	t.Parallel()

	d := Decoder{}
	if !d.Sniff([]byte("FORM\x00\x00\x00\x10AIFC")) {
		t.Error("Sniff() rejected AIFF-C")
	}
	if d.Sniff([]byte("FORM\x00\x00\x00\x108SVX")) {
		t.Error("Sniff() accepted 8SVX")
	}
	if _, err := d.Decode(bytes.NewReader([]byte("RIFF....WAVE"))); !errors.Is(err, ErrNotAiffFile) {
		t.Errorf("Decode() error = %v, want ErrNotAiffFile", err)
	}
}
