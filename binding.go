// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ik5/audbind/internal/bridge"
	"github.com/ik5/audbind/internal/metrics"
	"github.com/ik5/audbind/native"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type options struct {
	log         *zap.Logger
	pinner      Pinner
	registerer  prometheus.Registerer
	wide        bool
	encoderPath string
}

// Option configures a Binding.
type Option func(*options)

// WithLogger sets the binding's logger. The default is Logger().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithPinner replaces the runtime.Pinner backed default.
func WithPinner(p Pinner) Option {
	return func(o *options) {
		o.pinner = p
	}
}

// WithMetrics registers the binding's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithWideStrings passes every string as UTF-16 and sets the matching unicode
// flag on each string taking call.
func WithWideStrings() Option {
	return func(o *options) {
		o.wide = true
	}
}

// WithEncoder makes Open load the encoder add-on from path as well.
func WithEncoder(path string) Option {
	return func(o *options) {
		o.encoderPath = path
	}
}

// Binding is a loaded engine together with the Go side state of every handle
// created through it.
type Binding struct {
	lib     native.Library
	table   *bridge.Table
	reg     *registry
	pinner  Pinner
	metrics *metrics.Metrics
	log     *zap.Logger
	wide    bool

	// devices a negative index resolves to, -1 when none is initialized
	outDefault atomic.Int32
	recDefault atomic.Int32

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open loads the engine library at path and binds to it.
func Open(path string, opts ...Option) (*Binding, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var libOpts []native.OpenOption
	if o.encoderPath != "" {
		libOpts = append(libOpts, native.WithEncoder(o.encoderPath))
	}
	lib, err := native.Open(path, libOpts...)
	if err != nil {
		return nil, fmt.Errorf("opening engine: %w", err)
	}

	b, err := New(lib, opts...)
	if err != nil {
		return nil, errors.Join(err, lib.Close())
	}
	return b, nil
}

// New binds to lib and installs the callback dispatcher. The Binding owns lib
// from then on: Close closes it.
func New(lib native.Library, opts ...Option) (*Binding, error) {
	o := options{pinner: RuntimePinner()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = Logger()
	}

	m, err := metrics.New(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	b := &Binding{
		lib:     lib,
		table:   bridge.NewTable(o.log, m),
		pinner:  o.pinner,
		metrics: m,
		log:     o.log,
		wide:    o.wide,
	}
	b.reg = newRegistry(m)
	b.outDefault.Store(-1)
	b.recDefault.Store(-1)
	lib.SetDispatcher(dispatcher{table: b.table})
	return b, nil
}

// Close frees every initialized device, unloads the engine, revokes every
// callback and releases every pin still held. Handles created through b are
// invalid afterwards.
func (b *Binding) Close() error {
	b.closeOnce.Do(func() {
		b.closed.Store(true)

		// engine threads end with their devices; their FREE syncs still
		// reach the registry
		b.lib.Call(freeDevices)
		b.lib.SetDispatcher(nil)
		if err := b.lib.Close(); err != nil {
			b.closeErr = fmt.Errorf("closing engine: %w", err)
		}
		b.table.Close()
		b.reg.drain()
		b.log.Debug("binding closed")
	})
	return b.closeErr
}

// freeDevices frees every initialized output and recording device.
func freeDevices(t native.Thread) {
	var info native.DeviceInfo
	for i := uint32(0); t.GetDeviceInfo(i, &info); i++ {
		if info.Flags&native.DeviceInited != 0 && t.SetDevice(i) {
			t.Free()
		}
	}
	for i := uint32(0); t.RecordGetDeviceInfo(i, &info); i++ {
		if info.Flags&native.DeviceInited != 0 && t.RecordSetDevice(i) {
			t.RecordFree()
		}
	}
}

// call runs fn in one call frame. fn reports failure by returning false right
// after the failing engine call, and the last error is read on the same
// thread before anything else reaches the engine.
func (b *Binding) call(op string, fn func(t native.Thread) bool) error {
	if b.closed.Load() {
		return ErrClosed
	}

	var code native.Code
	failed := false
	b.lib.Call(func(t native.Thread) {
		if !fn(t) {
			failed = true
			code = t.ErrorGetCode()
		}
	})
	if !failed {
		return nil
	}
	return b.fail(op, code)
}

func (b *Binding) fail(op string, code native.Code) error {
	if code == native.ErrorOK {
		code = native.ErrorUnknown
	}
	b.metrics.NativeFailure(op, code.String())
	b.log.Debug("engine call failed", zap.String("op", op), zap.Stringer("code", code))
	return newError(op, code)
}

// invalid reports a handle the binding already knows to be destroyed.
func (b *Binding) invalid(op string) error {
	return newError(op, native.ErrorHandle)
}

// encode prepares s for the engine in the binding's string mode.
func (b *Binding) encode(s string) []byte {
	return native.EncodeString(s, b.wide)
}

// SetConfig sets a global engine option.
func (b *Binding) SetConfig(option native.ConfigOption, value uint32) error {
	return b.call("SetConfig", func(t native.Thread) bool {
		return t.SetConfig(option, value)
	})
}

// Config reads a global engine option.
func (b *Binding) Config(option native.ConfigOption) (uint32, error) {
	var v uint32
	err := b.call("GetConfig", func(t native.Thread) bool {
		v = t.GetConfig(option)
		return v != native.FailDWORD
	})
	return v, err
}
