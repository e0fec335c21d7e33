// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestHeader_Bytes(t *testing.T) {
	t.Parallel()

	h := Header{SampleRate: 44100, Channels: 2, BitDepth: 16, DataSize: 400}.Bytes()

	if len(h) != HeaderSize {
		t.Fatalf("len = %d, want %d", len(h), HeaderSize)
	}
	checks := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"riff size", binary.LittleEndian.Uint32(h[4:8]), 436},
		{"channels", uint32(binary.LittleEndian.Uint16(h[22:24])), 2},
		{"rate", binary.LittleEndian.Uint32(h[24:28]), 44100},
		{"byte rate", binary.LittleEndian.Uint32(h[28:32]), 176400},
		{"block align", uint32(binary.LittleEndian.Uint16(h[32:34])), 4},
		{"data size", binary.LittleEndian.Uint32(h[40:44]), 400},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}

	open := Header{SampleRate: 8000, Channels: 1, BitDepth: 16, DataSize: UnknownSize}.Bytes()
	if got := binary.LittleEndian.Uint32(open[4:8]); got != UnknownSize {
		t.Errorf("open ended riff size = %#x, want %#x", got, uint32(UnknownSize))
	}
}

func TestWriteWAV16_RoundTrip(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 20000)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}

	var buf bytes.Buffer
	if err := WriteWAV16(&buf, 8000, samples); err != nil {
		t.Fatalf("WriteWAV16() error = %v", err)
	}
	if buf.Len() != HeaderSize+len(samples)*2 {
		t.Fatalf("wrote %d bytes, want %d", buf.Len(), HeaderSize+len(samples)*2)
	}

	src, err := Decoder{}.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	got := make([]float32, len(samples))
	total := 0
	for total < len(got) {
		n, err := src.ReadSamples(got[total:])
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
	if total != len(samples) {
		t.Fatalf("decoded %d samples, want %d", total, len(samples))
	}
	if want := float32(999) / 32768; got[999] != want {
		t.Errorf("sample 999 = %v, want %v", got[999], want)
	}
}

func TestWriteWAV16_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteWAV16(&buf, 8000, nil); err != nil {
		t.Fatalf("WriteWAV16() error = %v", err)
	}
	if buf.Len() != HeaderSize {
		t.Errorf("wrote %d bytes, want header only", buf.Len())
	}
}

func TestFileWriter(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	w := NewFileWriter(f, 16000, 2, 16)
	in := []float32{0.5, -0.5, 0.25, -0.25}
	if err := w.WriteSamples(in); err != nil {
		t.Fatalf("WriteSamples() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	src, err := Decoder{}.Decode(r)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if src.SampleRate() != 16000 || src.Channels() != 2 {
		t.Fatalf("format = %d/%d, want 16000/2", src.SampleRate(), src.Channels())
	}

	out := make([]float32, 4)
	n, err := src.ReadSamples(out)
	if err != nil || n != 4 {
		t.Fatalf("ReadSamples() = (%d, %v)", n, err)
	}
	for i := range in {
		if math.Abs(float64(out[i]-in[i])) > 0.001 {
			t.Errorf("sample %d = %v, want %v", i, out[i], in[i])
		}
	}
}
