// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"io"
	"testing"
)

type fakeOgg struct {
	channels int
	data     []float32
}

func (f *fakeOgg) SampleRate() int { return 44100 }
func (f *fakeOgg) Channels() int   { return f.channels }
func (f *fakeOgg) Length() int64   { return int64(len(f.data) / f.channels) }

func (f *fakeOgg) Read(p []float32) (int, error) {
	if len(f.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	s := &source{dec: &fakeOgg{channels: 2, data: []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}}}
	if s.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", s.Frames())
	}

	// 5 slots only hold 2 whole stereo frames
	buf := make([]float32, 5)
	n, err := s.ReadSamples(buf)
	if err != nil || n != 4 {
		t.Fatalf("ReadSamples() = (%d, %v), want (4, nil)", n, err)
	}
	if buf[3] != 0.4 {
		t.Errorf("buf[3] = %v, want 0.4", buf[3])
	}

	n, _ = s.ReadSamples(buf)
	if n != 2 || buf[1] != 0.6 {
		t.Errorf("second read = %d samples ending in %v", n, buf[1])
	}

	if n, err := s.ReadSamples(buf); n != 0 || err != io.EOF {
		t.Errorf("ReadSamples() at end = (%d, %v), want (0, io.EOF)", n, err)
	}
}

func TestDecoder(t *testing.T) {
	t.Parallel()

	if !(Decoder{}).Sniff([]byte("OggS\x00\x02")) {
		t.Error("Sniff() rejected an Ogg page")
	}
	if (Decoder{}).Sniff([]byte("fLaC")) {
		t.Error("Sniff() accepted FLAC")
	}
	if _, err := (Decoder{}).Decode(bytes.NewReader([]byte("OggS but not really"))); err == nil {
		t.Error("Decode() accepted a broken stream")
	}
}
