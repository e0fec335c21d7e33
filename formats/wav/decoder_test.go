// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/ik5/audbind/internal/audiotest"
)

// onlyReader hides io.Seeker.
type onlyReader struct{ r io.Reader }

func (o onlyReader) Read(p []byte) (int, error) { return o.r.Read(p) }

func TestDecoder_Decode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rate     int
		channels int
		seekable bool
	}{
		{"mono 8k", 8000, 1, true},
		{"stereo 44.1k", 44100, 2, true},
		{"stereo from plain reader", 48000, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := audiotest.WAV16(tt.rate, tt.channels, []int16{16384, -16384, 0, 8192})
			var r io.Reader = bytes.NewReader(data)
			if !tt.seekable {
				r = onlyReader{r}
			}

			src, err := Decoder{}.Decode(r)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			defer src.Close()

			if src.SampleRate() != tt.rate || src.Channels() != tt.channels {
				t.Errorf("format = %d Hz / %d ch, want %d Hz / %d ch",
					src.SampleRate(), src.Channels(), tt.rate, tt.channels)
			}

			buf := make([]float32, 8)
			n, err := src.ReadSamples(buf)
			if err != nil {
				t.Fatalf("ReadSamples() error = %v", err)
			}
			want := []float32{0.5, -0.5, 0, 0.25}
			if n != len(want) {
				t.Fatalf("ReadSamples() n = %d, want %d", n, len(want))
			}
			for i := range want {
				if math.Abs(float64(buf[i]-want[i])) > 0.0001 {
					t.Errorf("buf[%d] = %v, want %v", i, buf[i], want[i])
				}
			}

			if n, err := src.ReadSamples(buf); n != 0 || err != io.EOF {
				t.Errorf("ReadSamples() at end = (%d, %v), want (0, io.EOF)", n, err)
			}
		})
	}
}

func TestDecoder_Frames(t *testing.T) {
	t.Parallel()

	src, err := Decoder{}.Decode(bytes.NewReader(audiotest.SineWAV16(8000, 2, 800, 440)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	lengther, ok := src.(interface{ Frames() int64 })
	if !ok {
		t.Fatal("source does not report its length")
	}
	if got := lengther.Frames(); got != 800 {
		t.Errorf("Frames() = %d, want 800", got)
	}
}

func TestDecoder_Rejects(t *testing.T) {
	t.Parallel()

	float := audiotest.WAV16(8000, 1, []int16{1, 2})
	binary.LittleEndian.PutUint16(float[20:22], 3)

	eightBit := audiotest.WAV16(8000, 1, []int16{1, 2})
	binary.LittleEndian.PutUint16(eightBit[34:36], 8)
	binary.LittleEndian.PutUint16(eightBit[32:34], 1)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"not riff", []byte("ID3\x04 not a wave file at all"), ErrNotWavFile},
		{"truncated", []byte("RIFF"), ErrNotWavFile},
		{"float format", float, ErrOnlyPCMSupported},
		{"8-bit", eightBit, ErrUnsupportedBitDepth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := (Decoder{}).Decode(bytes.NewReader(tt.data)); !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecoder_Sniff(t *testing.T) {
	t.Parallel()

	d := Decoder{}
	if !d.Sniff(audiotest.WAV16(8000, 1, nil)) {
		t.Error("Sniff() rejected a WAV header")
	}
	if d.Sniff([]byte("RIFF\x00\x00\x00\x00AVI ")) {
		t.Error("Sniff() accepted a RIFF/AVI header")
	}
	if d.Sniff([]byte("RIFF")) {
		t.Error("Sniff() accepted a short header")
	}
}
