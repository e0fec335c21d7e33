// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"io"
	"testing"
)

// fakeReader serves 16-bit PCM in chunks of at most chunk bytes.
type fakeReader struct {
	pcm   []byte
	chunk int
}

func (f *fakeReader) SampleRate() int { return 22050 }
func (f *fakeReader) Length() int64   { return int64(len(f.pcm)) }

func (f *fakeReader) Read(p []byte) (int, error) {
	if len(f.pcm) == 0 {
		return 0, io.EOF
	}
	n := copy(p[:min(len(p), f.chunk)], f.pcm)
	f.pcm = f.pcm[n:]
	return n, nil
}

func pcm(values ...int16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	s := &source{dec: &fakeReader{pcm: pcm(16384, -16384, 8192, 0), chunk: 1024}}
	if s.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", s.Frames())
	}

	buf := make([]float32, 4)
	n, err := s.ReadSamples(buf)
	if err != nil || n != 4 {
		t.Fatalf("ReadSamples() = (%d, %v), want (4, nil)", n, err)
	}
	want := []float32{0.5, -0.5, 0.25, 0}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("buf[%d] = %v, want %v", i, buf[i], want[i])
		}
	}

	if n, err := s.ReadSamples(buf); n != 0 || err != io.EOF {
		t.Errorf("ReadSamples() at end = (%d, %v), want (0, io.EOF)", n, err)
	}
}

func TestSource_OddByteReads(t *testing.T) {
	t.Parallel()

	// the decoder may split a sample across two reads
	s := &source{dec: &fakeReader{pcm: pcm(100, 200, 300), chunk: 3}}

	var got []float32
	buf := make([]float32, 2)
	for {
		n, err := s.ReadSamples(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}

	want := []float32{100.0 / 32768, 200.0 / 32768, 300.0 / 32768}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecoder_Sniff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header []byte
		want   bool
	}{
		{[]byte("ID3\x04\x00"), true},
		{[]byte{0xFF, 0xFB, 0x90, 0x64}, true},
		{[]byte("RIFF"), false},
		{[]byte{0xFF}, false},
	}
	for _, tt := range tests {
		if got := (Decoder{}).Sniff(tt.header); got != tt.want {
			t.Errorf("Sniff(% x) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	if _, err := (Decoder{}).Decode(io.LimitReader(zeroReader{}, 16)); err == nil {
		t.Error("Decode() accepted garbage")
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}
