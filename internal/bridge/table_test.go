// SPDX-License-Identifier: EPL-2.0

package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ik5/audbind/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func call(fn func()) func(context.Context, any) {
	return func(context.Context, any) { fn() }
}

func TestTable_Tokens(t *testing.T) {
	t.Parallel()

	tbl := NewTable(nil, nil)
	a := tbl.Register(KindDSP, func() {}, false)
	b := tbl.Register(KindSync, func() {}, true)

	assert.NotZero(t, a.Token())
	assert.Greater(t, b.Token(), a.Token())
	assert.Equal(t, 2, tbl.Len())

	got, ok := tbl.Lookup(a.Token())
	require.True(t, ok)
	assert.Same(t, a, got)

	a.Revoke()
	c := tbl.Register(KindDSP, func() {}, false)
	assert.Greater(t, c.Token(), b.Token(), "tokens are never reused")

	_, ok = tbl.Lookup(a.Token())
	assert.False(t, ok)
	assert.Equal(t, 2, tbl.Len())
}

func TestTable_RevokeOnce(t *testing.T) {
	t.Parallel()

	tbl := NewTable(nil, nil)
	r := tbl.Register(KindDSP, nil, false)

	assert.True(t, r.Revoke())
	assert.False(t, r.Revoke())
	assert.False(t, r.Live())
	assert.Equal(t, 0, tbl.Len())
}

func TestInvoke(t *testing.T) {
	t.Parallel()

	tbl := NewTable(nil, nil)
	var got string
	r := tbl.Register(KindSync, "payload", false)

	ok := tbl.Invoke(r.Token(), KindSync, func(ctx context.Context, fn any) {
		got = fn.(string)
		assert.True(t, Invoking(ctx, r))
		assert.Equal(t, 1, r.InFlight())
	})

	assert.True(t, ok)
	assert.Equal(t, "payload", got)
	assert.Equal(t, 0, r.InFlight())
}

func TestInvoke_Gone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token func(tbl *Table) uintptr
		kind  Kind
	}{
		{
			name:  "unknown token",
			token: func(*Table) uintptr { return 99 },
			kind:  KindDSP,
		},
		{
			name: "revoked",
			token: func(tbl *Table) uintptr {
				r := tbl.Register(KindDSP, nil, false)
				r.Revoke()
				return r.Token()
			},
			kind: KindDSP,
		},
		{
			name: "kind mismatch",
			token: func(tbl *Table) uintptr {
				return tbl.Register(KindSync, nil, false).Token()
			},
			kind: KindDSP,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tbl := NewTable(nil, nil)
			called := false
			ok := tbl.Invoke(tt.token(tbl), tt.kind, call(func() { called = true }))

			assert.False(t, ok)
			assert.False(t, called)
		})
	}
}

func TestInvoke_PanicRecovered(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	tbl := NewTable(zap.New(core), m)
	r := tbl.Register(KindStream, nil, false)

	var ok bool
	assert.NotPanics(t, func() {
		ok = tbl.Invoke(r.Token(), KindStream, call(func() { panic("boom") }))
	})

	assert.False(t, ok)
	assert.Equal(t, 0, r.InFlight(), "gate released after panic")
	assert.True(t, r.Live(), "a panic does not revoke")

	entries := logs.FilterMessage("callback panicked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].ContextMap()["panic"])
	assert.Equal(t, "stream", entries[0].ContextMap()["kind"])
}

func TestOneShot_FiresOnce(t *testing.T) {
	t.Parallel()

	tbl := NewTable(nil, nil)
	r := tbl.Register(KindSync, nil, true)

	var fired atomic.Int32
	var g errgroup.Group
	for range 64 {
		g.Go(func() error {
			tbl.Invoke(r.Token(), KindSync, func(context.Context, any) {
				fired.Add(1)
				_, found := tbl.Lookup(r.Token())
				assert.False(t, found, "removed before the callback runs")
				assert.False(t, r.Live())
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, 0, tbl.Len())
}

func TestOneShot_ReentrantTrigger(t *testing.T) {
	t.Parallel()

	tbl := NewTable(nil, nil)
	r := tbl.Register(KindSync, nil, true)

	fired := 0
	var fire func()
	fire = func() {
		tbl.Invoke(r.Token(), KindSync, func(context.Context, any) {
			fired++
			fire()
		})
	}
	fire()

	assert.Equal(t, 1, fired)
}

func TestDetach_NoLateCallback(t *testing.T) {
	t.Parallel()

	for range 20 {
		tbl := NewTable(nil, nil)
		r := tbl.Register(KindDSP, nil, false)

		var detached atomic.Bool
		var late atomic.Int32
		stop := make(chan struct{})

		var g errgroup.Group
		for range 4 {
			g.Go(func() error {
				for {
					select {
					case <-stop:
						return nil
					default:
					}
					tbl.Invoke(r.Token(), KindDSP, func(context.Context, any) {
						if detached.Load() {
							late.Add(1)
						}
					})
				}
			})
		}

		time.Sleep(time.Millisecond)
		require.NoError(t, r.Detach(context.Background(), nil))
		detached.Store(true)

		time.Sleep(time.Millisecond)
		close(stop)
		require.NoError(t, g.Wait())

		assert.Zero(t, late.Load())
	}
}

func TestDetach_WaitsForInFlight(t *testing.T) {
	t.Parallel()

	tbl := NewTable(nil, nil)
	r := tbl.Register(KindDSP, nil, false)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		tbl.Invoke(r.Token(), KindDSP, call(func() {
			close(entered)
			<-release
		}))
	}()
	<-entered

	var removed atomic.Bool
	detached := make(chan error, 1)
	go func() {
		detached <- r.Detach(context.Background(), func() { removed.Store(true) })
	}()

	select {
	case <-detached:
		t.Fatal("detach returned while a callback was running")
	case <-time.After(20 * time.Millisecond):
	}
	assert.True(t, removed.Load())

	close(release)
	require.NoError(t, <-detached)
	<-done
}

func TestDetach_FromOwnCallback(t *testing.T) {
	t.Parallel()

	tbl := NewTable(nil, nil)
	r := tbl.Register(KindSync, nil, false)

	var err error
	ok := tbl.Invoke(r.Token(), KindSync, func(ctx context.Context, _ any) {
		err = r.Detach(ctx, nil)
	})

	assert.True(t, ok)
	require.NoError(t, err)
	assert.False(t, r.Live())
}

func TestFence_ContextCanceled(t *testing.T) {
	t.Parallel()

	tbl := NewTable(nil, nil)
	r := tbl.Register(KindDSP, nil, false)

	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tbl.Invoke(r.Token(), KindDSP, call(func() {
			close(entered)
			<-release
		}))
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := r.Detach(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	wg.Wait()
}

func TestTable_Close(t *testing.T) {
	t.Parallel()

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	tbl := NewTable(nil, m)
	r := tbl.Register(KindRecord, nil, false)
	tbl.Register(KindDSP, nil, false)

	var cbCtx context.Context
	tbl.Invoke(r.Token(), KindRecord, func(ctx context.Context, _ any) { cbCtx = ctx })

	tbl.Close()

	assert.Error(t, cbCtx.Err())
	assert.Equal(t, 0, tbl.Len())
	assert.False(t, tbl.Invoke(r.Token(), KindRecord, call(func() {})))
	assert.Equal(t, 2, testutil.CollectAndCount(m, "audbind_callback_registrations"),
		"one series per kind")
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dsp", KindDSP.String())
	assert.Equal(t, "lifecycle", KindLifecycle.String())
	assert.Equal(t, "unknown", Kind(200).String())
}

func BenchmarkInvoke(b *testing.B) {
	tbl := NewTable(nil, nil)
	r := tbl.Register(KindDSP, nil, false)
	fn := func(context.Context, any) {}

	b.ReportAllocs()
	for b.Loop() {
		tbl.Invoke(r.Token(), KindDSP, fn)
	}
}
