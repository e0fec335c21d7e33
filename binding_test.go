// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/ik5/audbind/audio"
	"github.com/ik5/audbind/internal/audiotest"
	"github.com/ik5/audbind/internal/softengine"
	"github.com/ik5/audbind/native"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// harness is a Binding over the soft engine with a counting pinner, a
// manually rendered output and its own metrics registry.
type harness struct {
	b       *Binding
	engine  *softengine.Engine
	out     *softengine.ManualOutput
	pins    *audiotest.CountingPinner
	metrics *prometheus.Registry
}

func newHarness(t *testing.T, opts ...softengine.Option) *harness {
	t.Helper()
	return newHarnessWith(t, nil, opts...)
}

// newHarnessWith is newHarness with extra binding options.
func newHarnessWith(t *testing.T, bopts []Option, opts ...softengine.Option) *harness {
	t.Helper()

	h := &harness{
		out:     softengine.NewManualOutput(),
		pins:    audiotest.NewCountingPinner(),
		metrics: prometheus.NewRegistry(),
	}
	opts = append([]softengine.Option{
		softengine.WithOutput(func(int) softengine.Output { return h.out }),
	}, opts...)
	h.engine = softengine.New(opts...)

	bopts = append([]Option{WithPinner(h.pins), WithMetrics(h.metrics)}, bopts...)
	b, err := New(h.engine, bopts...)
	require.NoError(t, err)
	h.b = b
	t.Cleanup(func() { assert.NoError(t, b.Close()) })
	return h
}

// device initializes output device 1.
func (h *harness) device(t *testing.T) Device {
	t.Helper()

	d, err := h.b.Device(1).Init(44100, 0)
	require.NoError(t, err)
	require.Equal(t, 1, d.Index())
	return d
}

// metric returns the value of the gauge or counter name with the given
// label values, 0 when it has not been recorded.
func (h *harness) metric(t *testing.T, name string, labels ...string) float64 {
	t.Helper()

	families, err := h.metrics.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if matchLabels(m.GetLabel(), labels) {
				if g := m.GetGauge(); g != nil {
					return g.GetValue()
				}
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(pairs []*dto.LabelPair, values []string) bool {
	if len(pairs) != len(values) {
		return false
	}
	for i, p := range pairs {
		if p.GetValue() != values[i] {
			return false
		}
	}
	return true
}

// wav1000 is a 1,000 byte mono WAV file: a 44 byte header and 956 bytes of
// silence.
func wav1000() []byte {
	return audiotest.WAV16(44100, 1, make([]int16, 478))
}

func TestBinding_Close(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	d := h.device(t)

	data := wav1000()
	s, err := d.StreamFromMemory(data, 0, len(data), native.StreamDecode)
	require.NoError(t, err)
	_, err = s.SetDSP(func(context.Context, []byte) {}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, h.pins.Active())

	require.NoError(t, h.b.Close())
	require.NoError(t, h.b.Close(), "close is idempotent")

	assert.Zero(t, h.pins.Active())
	assert.Zero(t, h.pins.DoubleReleases())
	assert.Zero(t, h.b.table.Len())

	_, err = d.Volume()
	require.ErrorIs(t, err, ErrClosed)
	_, err = d.CreatePushStream(44100, 2, 0)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, s.Play(false), ErrInvalidHandle)
}

// unloadWatch records what is still live when the engine is unloaded.
type unloadWatch struct {
	*softengine.Engine

	dispatcher     native.Dispatcher
	inited         []string
	withDispatcher bool
}

func (u *unloadWatch) SetDispatcher(d native.Dispatcher) {
	u.dispatcher = d
	u.Engine.SetDispatcher(d)
}

func (u *unloadWatch) Close() error {
	u.Engine.Call(func(t native.Thread) {
		var info native.DeviceInfo
		for i := uint32(0); t.GetDeviceInfo(i, &info); i++ {
			if info.Flags&native.DeviceInited != 0 {
				u.inited = append(u.inited, fmt.Sprintf("output %d", i))
			}
		}
		for i := uint32(0); t.RecordGetDeviceInfo(i, &info); i++ {
			if info.Flags&native.DeviceInited != 0 {
				u.inited = append(u.inited, fmt.Sprintf("record %d", i))
			}
		}
	})
	u.withDispatcher = u.dispatcher != nil
	return u.Engine.Close()
}

func TestBinding_CloseFreesDevicesFirst(t *testing.T) {
	t.Parallel()

	lib := &unloadWatch{Engine: softengine.New(
		softengine.WithDevices("a", "b"),
		softengine.WithInput("Mic", func() (audio.Source, error) {
			return audiotest.NewConstantSource(44100, 2, 44100, 0.5), nil
		}),
	)}
	pins := audiotest.NewCountingPinner()
	b, err := New(lib, WithPinner(pins))
	require.NoError(t, err)

	for _, i := range []int{1, 2} {
		_, err := b.Device(i).Init(44100, 0)
		require.NoError(t, err)
	}
	_, err = b.RecordDevice(0).Init()
	require.NoError(t, err)

	data := wav1000()
	s, err := b.Device(2).StreamFromMemory(data, 0, len(data), 0)
	require.NoError(t, err)
	var freed atomic.Bool
	_, err = s.SetSync(native.SyncFree, 0, func(context.Context, uint32) { freed.Store(true) })
	require.NoError(t, err)
	_, err = b.RecordDevice(0).Start(44100, 2, 0, func(context.Context, []byte) bool { return true })
	require.NoError(t, err)

	require.NoError(t, b.Close())
	assert.Empty(t, lib.inited, "devices left running while unloading")
	assert.False(t, lib.withDispatcher, "dispatcher still installed while unloading")
	assert.True(t, freed.Load(), "FREE syncs delivered before unloading")
	assert.Zero(t, pins.Active())
	assert.Zero(t, pins.DoubleReleases())
	assert.Zero(t, b.table.Len())
}

func TestBinding_Config(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	require.NoError(t, h.b.SetConfig(native.ConfigBuffer, 300))
	v, err := h.b.Config(native.ConfigBuffer)
	require.NoError(t, err)
	assert.Equal(t, uint32(300), v)

	_, err = h.b.Config(native.ConfigOption(999))
	require.ErrorIs(t, err, ErrIllegalType)

	var e *Error
	require.ErrorAs(t, h.b.SetConfig(native.ConfigOption(999), 1), &e)
	assert.Equal(t, "SetConfig", e.Op)
	assert.Equal(t, native.ErrorIllType, e.Code)
}

func TestBinding_Devices(t *testing.T) {
	t.Parallel()

	h := newHarness(t, softengine.WithDevices("speakers", "headphones"))

	devices, err := h.b.Devices()
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, "No sound", devices[0].Name)
	assert.Equal(t, "speakers", devices[1].Name)
	assert.Equal(t, "soft", devices[1].Driver)
	assert.False(t, devices[2].Inited())

	_, err = h.b.Device(2).Init(48000, 0)
	require.NoError(t, err)

	info, err := h.b.DeviceInfo(2)
	require.NoError(t, err)
	assert.Equal(t, "headphones", info.Name)
	assert.True(t, info.Inited())

	_, err = h.b.DeviceInfo(7)
	require.ErrorIs(t, err, ErrIllegalDevice)

	records, err := h.b.RecordDevices()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBinding_NativeFailureMetrics(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := h.b.Device(3).CreatePushStream(44100, 2, 0)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = h.b.Device(3).CreatePushStream(44100, 2, 0)
	require.Error(t, err)

	assert.InDelta(t, 2, h.metric(t, "audbind_native_failures_total", native.ErrorInit.String(), "StreamCreate"), 0)
	assert.Zero(t, h.b.table.Len(), "failed creations leave no registrations")
}
