// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ik5/audbind/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

// order records callback labels in invocation order.
type order struct {
	mu  sync.Mutex
	got []string
}

func (o *order) add(label string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.got = append(o.got, label)
}

func (o *order) list() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]string(nil), o.got...)
}

func TestDSP_Priority(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	d := h.device(t)
	data := wav1000()

	s, err := d.StreamFromMemory(data, 0, len(data), native.StreamDecode)
	require.NoError(t, err)

	var o order
	for _, tt := range []struct {
		label    string
		priority int32
	}{
		{"p10", 10},
		{"p5", 5},
		{"p10-later", 10},
		{"p-1", -1},
	} {
		_, err := s.SetDSP(func(context.Context, []byte) { o.add(tt.label) }, tt.priority)
		require.NoError(t, err)
	}

	_, err = s.GetData(make([]byte, 100))
	require.NoError(t, err)
	assert.Equal(t, []string{"p10", "p10-later", "p5", "p-1"}, o.list())
}

func TestDSP_ProcessesInPlace(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	d := h.device(t)

	s, err := d.CreateStream(44100, 1, native.StreamDecode, func(_ context.Context, buf []byte) (int, bool) {
		return len(buf), false
	})
	require.NoError(t, err)

	_, err = s.SetDSP(func(_ context.Context, buf []byte) {
		for i := range buf {
			buf[i] = 0x7f
		}
	}, 0)
	require.NoError(t, err)

	buf := make([]byte, 64)
	_, err = s.GetData(buf)
	require.NoError(t, err)
	assert.Equal(t, byte(0x7f), buf[0])
	assert.Equal(t, byte(0x7f), buf[63])
}

func TestRemove_NoLateCallback(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	d := h.device(t)
	data := wav1000()

	// looping, so the POS sync at 0 fires on every pass
	s, err := d.StreamFromMemory(data, 0, len(data), native.StreamDecode|native.StreamSampleLoop)
	require.NoError(t, err)

	stop := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		buf := make([]byte, 4096)
		for {
			select {
			case <-stop:
				return nil
			default:
			}
			if _, err := s.GetData(buf); err != nil {
				return err
			}
		}
	})

	var late atomic.Int32
	for range 50 {
		var removed atomic.Bool
		dsp, err := s.SetDSP(func(context.Context, []byte) {
			if removed.Load() {
				late.Add(1)
			}
		}, 0)
		require.NoError(t, err)
		sy, err := s.SetSync(native.SyncPos, 0, func(context.Context, uint32) {
			if removed.Load() {
				late.Add(1)
			}
		})
		require.NoError(t, err)

		require.NoError(t, dsp.Remove(context.Background()))
		require.NoError(t, sy.Remove(context.Background()))
		removed.Store(true)
	}

	close(stop)
	require.NoError(t, g.Wait())
	assert.Zero(t, late.Load())
	assert.Equal(t, 1, h.b.table.Len(), "only the lifecycle sync is left")
}

func TestRemove_FromOwnCallback(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	d := h.device(t)
	data := wav1000()

	s, err := d.StreamFromMemory(data, 0, len(data), native.StreamDecode|native.StreamSampleLoop)
	require.NoError(t, err)

	var sy atomic.Pointer[Sync]
	var dsp atomic.Pointer[DSP]
	var syncCalls, dspCalls atomic.Int32
	errs := make(chan error, 2)

	sync, err := s.SetSync(native.SyncPos, 0, func(ctx context.Context, _ uint32) {
		syncCalls.Add(1)
		errs <- sy.Load().Remove(ctx)
	})
	require.NoError(t, err)
	sy.Store(sync)

	tap, err := s.SetDSP(func(ctx context.Context, _ []byte) {
		if dspCalls.Add(1) == 1 {
			errs <- dsp.Load().Remove(ctx)
		}
	}, 0)
	require.NoError(t, err)
	dsp.Store(tap)

	buf := make([]byte, 4096)
	for range 3 {
		_, err = s.GetData(buf)
		require.NoError(t, err)
	}

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Equal(t, int32(1), syncCalls.Load())
	assert.Equal(t, int32(1), dspCalls.Load())
}

func TestSync_OneShot(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	d := h.device(t)
	data := wav1000()

	s, err := d.StreamFromMemory(data, 0, len(data), native.StreamDecode)
	require.NoError(t, err)

	var calls atomic.Int32
	sy, err := s.SetSync(native.SyncEnd|native.SyncOnetime, 0, func(context.Context, uint32) {
		calls.Add(1)
	})
	require.NoError(t, err)

	// rewinding lets the stream reach its end again
	buf := make([]byte, 4096)
	for range 3 {
		_, _ = s.GetData(buf)
		require.NoError(t, s.SetPosition(0, native.PosByte))
	}
	assert.Equal(t, int32(1), calls.Load())
	require.ErrorIs(t, sy.Remove(context.Background()), ErrInvalidHandle, "fired syncs are gone")
}

func TestSync_OneShotConcurrentTriggers(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	d := h.device(t)

	s, err := d.CreatePushStream(44100, 2, native.StreamDecode)
	require.NoError(t, err)

	var calls atomic.Int32
	sy, err := s.SetSync(native.SyncEnd|native.SyncOnetime, 0, func(context.Context, uint32) {
		calls.Add(1)
	})
	require.NoError(t, err)

	// trigger the trampoline directly from many threads at once
	disp := dispatcher{table: h.b.table}
	start := make(chan struct{})
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			disp.SyncProc(sy.Handle(), s.Handle(), 0, sy.reg.Token())
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, sy.reg.Live())
}

func TestSync_UserFreeSyncFires(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	d := h.device(t)
	data := wav1000()

	s, err := d.StreamFromMemory(data, 0, len(data), 0)
	require.NoError(t, err)

	var calls atomic.Int32
	_, err = s.SetSync(native.SyncFree, 0, func(context.Context, uint32) { calls.Add(1) })
	require.NoError(t, err)

	require.NoError(t, s.Free())
	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, h.pins.Active())
	assert.Zero(t, h.b.table.Len())
}

func TestSync_AfterFree(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	d := h.device(t)

	s, err := d.CreatePushStream(44100, 2, native.StreamDecode)
	require.NoError(t, err)
	dsp, err := s.SetDSP(func(context.Context, []byte) {}, 0)
	require.NoError(t, err)
	require.NoError(t, s.Free())

	_, err = s.SetDSP(func(context.Context, []byte) {}, 0)
	require.ErrorIs(t, err, ErrInvalidHandle)
	_, err = s.SetSync(native.SyncEnd, 0, func(context.Context, uint32) {})
	require.ErrorIs(t, err, ErrInvalidHandle)
	require.ErrorIs(t, dsp.Remove(context.Background()), ErrInvalidHandle)
	assert.Zero(t, h.b.table.Len())
}

func TestCallback_PanicIsContained(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	h := newHarnessWith(t, []Option{WithLogger(zap.New(core))})
	d := h.device(t)

	s, err := d.CreateStream(44100, 1, native.StreamDecode, func(context.Context, []byte) (int, bool) {
		panic("producer bug")
	})
	require.NoError(t, err)

	n, err := s.GetData(make([]byte, 64))
	require.NoError(t, err)
	assert.Zero(t, n, "a panicking producer produces nothing")

	data := wav1000()
	m, err := d.StreamFromMemory(data, 0, len(data), native.StreamDecode)
	require.NoError(t, err)
	_, err = m.SetDSP(func(context.Context, []byte) { panic("dsp bug") }, 0)
	require.NoError(t, err)

	n, err = m.GetData(make([]byte, 64))
	require.NoError(t, err)
	assert.Equal(t, 64, n, "data flows past a panicking DSP")

	entries := logs.FilterMessage("callback panicked").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "producer bug", entries[0].ContextMap()["panic"])
	assert.InDelta(t, 1, h.metric(t, "audbind_callback_invocations_total", "stream", "panic"), 0)
	assert.InDelta(t, 1, h.metric(t, "audbind_callback_invocations_total", "dsp", "panic"), 0)
}

func TestCallback_ContextCanceledOnClose(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	d := h.device(t)

	var got context.Context
	s, err := d.CreateStream(44100, 1, native.StreamDecode, func(ctx context.Context, buf []byte) (int, bool) {
		got = ctx
		return len(buf), false
	})
	require.NoError(t, err)
	_, err = s.GetData(make([]byte, 64))
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.NoError(t, got.Err())
	require.NoError(t, h.b.Close())
	assert.ErrorIs(t, got.Err(), context.Canceled)
}
