// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/ik5/audbind/internal/audiotest"
)

// prefixDecoder recognizes input starting with magic.
type prefixDecoder struct {
	magic string
}

func (d prefixDecoder) Sniff(header []byte) bool {
	return bytes.HasPrefix(header, []byte(d.magic))
}

func (d prefixDecoder) Decode(r io.Reader) (Source, error) {
	head := make([]byte, len(d.magic))
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}
	if string(head) != d.magic {
		return nil, errors.New("decoder handed data it did not sniff")
	}
	return audiotest.NewSilentSource(44100, 2, 100), nil
}

type plainDecoder struct{}

func (plainDecoder) Decode(io.Reader) (Source, error) {
	return nil, errors.New("should never be probed")
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register("wav", prefixDecoder{magic: "RIFF"})
	registry.Register("wav", prefixDecoder{magic: "RIFX"})

	got, ok := registry.Get("wav")
	if !ok {
		t.Fatal("Registry.Get() failed to retrieve registered decoder")
	}
	if got.(prefixDecoder).magic != "RIFX" {
		t.Error("Registry.Register() did not overwrite the previous decoder")
	}

	if _, ok := registry.Get("flac"); ok {
		t.Error("Registry.Get() returned ok=true for non-existent format")
	}
}

func TestRegistry_Formats(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	for _, f := range []string{"ogg", "aiff", "wav", "mp3"} {
		registry.Register(f, plainDecoder{})
	}

	want := []string{"aiff", "mp3", "ogg", "wav"}
	got := registry.Formats()
	if len(got) != len(want) {
		t.Fatalf("Formats() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Formats()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegistry_Probe(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register("plain", plainDecoder{})
	registry.Register("wav", prefixDecoder{magic: "RIFF"})
	registry.Register("ogg", prefixDecoder{magic: "OggS"})

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"wav", "RIFF....WAVE", "wav", nil},
		{"ogg", "OggS\x00\x02", "ogg", nil},
		{"unknown", "ID3\x04garbage", "", ErrUnknownFormat},
		{"empty", "", "", ErrUnknownFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			format, src, err := registry.Probe(bytes.NewReader([]byte(tt.input)))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Probe() error = %v, want %v", err, tt.wantErr)
			}
			if format != tt.want {
				t.Errorf("Probe() format = %q, want %q", format, tt.want)
			}
			if tt.wantErr == nil && src == nil {
				t.Error("Probe() returned nil source")
			}
		})
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Register(string(rune('a'+i)), plainDecoder{})
			_, _ = registry.Get("a")
			_ = registry.Formats()
		}()
	}
	wg.Wait()

	if n := len(registry.Formats()); n != 16 {
		t.Errorf("Formats() has %d entries, want 16", n)
	}
}

func TestReadAll(t *testing.T) {
	t.Parallel()

	src := audiotest.NewConstantSource(8000, 2, 5000, 0.25)
	data, err := ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(data) != 10000 {
		t.Fatalf("ReadAll() returned %d samples, want 10000", len(data))
	}
	for i, v := range data {
		if v != 0.25 {
			t.Fatalf("data[%d] = %v, want 0.25", i, v)
		}
	}
}

func TestErrors(t *testing.T) {
	t.Parallel()

	for _, err := range []error{ErrInvalidDstSize, ErrUnknownFormat, ErrInvalidChannels} {
		if err == nil || err.Error() == "" {
			t.Errorf("sentinel %v has no message", err)
		}
	}
	if errors.Is(ErrUnknownFormat, ErrInvalidDstSize) {
		t.Error("distinct sentinels compare equal")
	}
}
