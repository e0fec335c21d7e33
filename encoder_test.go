// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ik5/audbind/formats/wav"
	"github.com/ik5/audbind/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoder_File(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	d := h.device(t)
	data := wav1000()
	path := filepath.Join(t.TempDir(), "out.wav")

	s, err := d.StreamFromMemory(data, 0, len(data), native.StreamDecode)
	require.NoError(t, err)

	enc, err := s.StartEncoder(path, native.EncodePCM, nil)
	require.NoError(t, err)

	var mu sync.Mutex
	var statuses []native.EncodeNotify
	enc.SetNotify(func(_ context.Context, status native.EncodeNotify) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, status)
	})

	state, err := enc.IsActive()
	require.NoError(t, err)
	assert.Equal(t, native.ActivePlaying, state)

	_, err = s.GetData(make([]byte, 4096))
	require.NoError(t, err)
	require.NoError(t, s.Free())

	mu.Lock()
	assert.Equal(t, []native.EncodeNotify{native.EncodeNotifyFree}, statuses)
	mu.Unlock()

	_, err = enc.IsActive()
	require.ErrorIs(t, err, ErrInvalidHandle, "the encoder went away with its channel")
	require.ErrorIs(t, enc.Stop(), ErrInvalidHandle)
	assert.Zero(t, h.b.table.Len())
	assert.Zero(t, h.metric(t, "audbind_handles_open", kindEncoder))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	src, err := wav.Decoder{}.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 44100, src.SampleRate())
	assert.Equal(t, 1, src.Channels())
	assert.Equal(t, int64(478), src.(interface{ Frames() int64 }).Frames())
}

func TestEncoder_Proc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		flags native.EncodeFlags
		want  int
	}{
		{"with header", native.EncodePCM, 44 + 956},
		{"headless", native.EncodePCM | native.EncodeNoHead, 956},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			d := h.device(t)
			data := wav1000()

			s, err := d.StreamFromMemory(data, 0, len(data), native.StreamDecode)
			require.NoError(t, err)

			var got []byte
			enc, err := s.StartEncoder("", tt.flags, func(_ context.Context, buf []byte) {
				got = append(got, buf...)
			})
			require.NoError(t, err)

			_, err = s.GetData(make([]byte, 4096))
			require.NoError(t, err)
			assert.Len(t, got, tt.want)

			require.NoError(t, enc.Stop())
			_, err = enc.IsActive()
			require.ErrorIs(t, err, ErrInvalidHandle)
			assert.Equal(t, 1, h.b.table.Len(), "only the stream's lifecycle sync is left")
		})
	}
}

func TestEncoder_StopDoesNotNotify(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	d := h.device(t)

	s, err := d.CreatePushStream(44100, 2, native.StreamDecode)
	require.NoError(t, err)
	enc, err := s.StartEncoder(filepath.Join(t.TempDir(), "out.wav"), native.EncodePCM, nil)
	require.NoError(t, err)

	notified := false
	enc.SetNotify(func(context.Context, native.EncodeNotify) { notified = true })
	require.NoError(t, enc.Stop())
	require.NoError(t, s.Free())
	assert.False(t, notified)
}

func TestEncoder_Errors(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	d := h.device(t)

	s, err := d.CreatePushStream(44100, 2, native.StreamDecode)
	require.NoError(t, err)
	before := h.b.table.Len()

	_, err = s.StartEncoder("lame - out.mp3", 0, nil)
	require.ErrorIs(t, err, ErrNotAvailable)
	_, err = s.StartEncoder("", native.EncodePCM, nil)
	require.ErrorIs(t, err, ErrIllegalParam)
	_, err = s.StartEncoder(filepath.Join(t.TempDir(), "missing", "out.wav"), native.EncodePCM, nil)
	require.ErrorIs(t, err, ErrCreate)
	assert.Equal(t, before, h.b.table.Len())

	require.NoError(t, s.Free())
	_, err = s.StartEncoder("", native.EncodePCM, func(context.Context, []byte) {})
	require.ErrorIs(t, err, ErrInvalidHandle)
}
