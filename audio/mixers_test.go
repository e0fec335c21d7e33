// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"math"
	"testing"

	"github.com/ik5/audbind/internal/audiotest"
)

func TestMonoMixer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels int
		want     float32
	}{
		{"mono passthrough", 1, 0},
		{"stereo", 2, 0.5},
		{"quad", 4, 1.5},
		{"5.1", 6, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := audiotest.NewMockSource(8000, tt.channels, 100, func(_ int, ch int) float32 {
				return float32(ch)
			})
			mixer := NewMonoMixer(src)

			buf := make([]float32, 10)
			n, err := mixer.ReadSamples(buf)
			if err != nil {
				t.Fatalf("ReadSamples() error = %v", err)
			}
			if n != 10 {
				t.Fatalf("ReadSamples() n = %d, want 10", n)
			}
			for i := range n {
				if math.Abs(float64(buf[i]-tt.want)) > 0.001 {
					t.Errorf("buf[%d] = %v, want %v", i, buf[i], tt.want)
				}
			}
		})
	}
}

func TestMonoMixer_EOF(t *testing.T) {
	t.Parallel()

	mixer := NewMonoMixer(audiotest.NewSilentSource(8000, 2, 5))

	buf := make([]float32, 10)
	n, err := mixer.ReadSamples(buf)
	if err != io.EOF || n != 5 {
		t.Errorf("ReadSamples() = (%d, %v), want (5, io.EOF)", n, err)
	}

	n, err = mixer.ReadSamples(buf)
	if err != io.EOF || n != 0 {
		t.Errorf("second ReadSamples() = (%d, %v), want (0, io.EOF)", n, err)
	}

	if n, err := mixer.ReadSamples(nil); n != 0 || err != nil {
		t.Errorf("ReadSamples(nil) = (%d, %v), want (0, nil)", n, err)
	}
}

func TestMapChannels(t *testing.T) {
	t.Parallel()

	mono := audiotest.NewConstantSource(8000, 1, 4, 0.5)
	up, err := MapChannels(mono, 2)
	if err != nil {
		t.Fatalf("MapChannels() error = %v", err)
	}

	buf := make([]float32, 8)
	n, err := up.ReadSamples(buf)
	if err != io.EOF || n != 8 {
		t.Fatalf("ReadSamples() = (%d, %v), want (8, io.EOF)", n, err)
	}
	for i, v := range buf {
		if v != 0.5 {
			t.Errorf("buf[%d] = %v, want 0.5", i, v)
		}
	}

	stereo := audiotest.NewMockSource(8000, 2, 4, func(_ int, ch int) float32 {
		return float32(ch + 1)
	})
	quad, err := MapChannels(stereo, 4)
	if err != nil {
		t.Fatalf("MapChannels() error = %v", err)
	}
	buf = make([]float32, 8)
	if _, err := quad.ReadSamples(buf); err != nil {
		t.Fatalf("ReadSamples() error = %v", err)
	}
	want := []float32{1, 2, 0, 0, 1, 2, 0, 0}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("buf[%d] = %v, want %v", i, buf[i], want[i])
		}
	}

	same := audiotest.NewSilentSource(8000, 2, 1)
	if got, _ := MapChannels(same, 2); got != Source(same) {
		t.Error("MapChannels() wrapped a source that already matched")
	}
	if _, ok := mustMap(t, audiotest.NewSilentSource(8000, 2, 1), 1).(*MonoMixer); !ok {
		t.Error("MapChannels(..., 1) did not return a MonoMixer")
	}
	if _, err := MapChannels(same, 0); err != ErrInvalidChannels {
		t.Errorf("MapChannels(..., 0) error = %v, want ErrInvalidChannels", err)
	}
}

func mustMap(t *testing.T, src Source, channels int) Source {
	t.Helper()

	out, err := MapChannels(src, channels)
	if err != nil {
		t.Fatalf("MapChannels() error = %v", err)
	}
	return out
}

func TestMemorySource(t *testing.T) {
	t.Parallel()

	m := NewMemorySource(8000, 2, []float32{1, 2, 3, 4, 5, 6})
	if m.Frames() != 3 {
		t.Fatalf("Frames() = %d, want 3", m.Frames())
	}

	buf := make([]float32, 4)
	if n, err := m.ReadSamples(buf); n != 4 || err != nil {
		t.Fatalf("ReadSamples() = (%d, %v)", n, err)
	}
	if m.Position() != 2 {
		t.Errorf("Position() = %d, want 2", m.Position())
	}
	if n, err := m.ReadSamples(buf); n != 2 || err != io.EOF {
		t.Fatalf("ReadSamples() = (%d, %v), want (2, io.EOF)", n, err)
	}

	m.Seek(1)
	if n, _ := m.ReadSamples(buf); n != 4 || buf[0] != 3 {
		t.Errorf("after Seek(1) read %d samples starting at %v", n, buf[0])
	}

	m.Seek(99)
	if m.Position() != 3 {
		t.Errorf("Seek past end Position() = %d, want 3", m.Position())
	}
	if _, err := m.ReadSamples(make([]float32, 3)); err != ErrInvalidDstSize {
		t.Errorf("odd dst error = %v, want ErrInvalidDstSize", err)
	}
}
