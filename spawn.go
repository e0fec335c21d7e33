// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"context"

	"github.com/ik5/audbind/internal/bridge"
	"github.com/ik5/audbind/native"
)

// spawn describes a channel creation.
type spawn struct {
	op     string
	kind   string
	record bool
	index  int
	pins   []Pin
	regs   []*bridge.Registration
	create func(t native.Thread) uint32
	// free undoes create when the lifecycle sync cannot be set
	free func(t native.Thread, h uint32)
}

// spawn creates a channel on a device and tracks it. Every channel gets a
// FREE sync so that destruction the binding did not ask for still releases
// its pins and registrations. On failure everything passed in is released,
// also when the engine call panics.
func (b *Binding) spawn(s spawn) (*entry, error) {
	e := &entry{kind: s.kind, pins: s.pins, regs: s.regs}

	release := func() {
		if e.lifecycle != nil {
			e.lifecycle.Revoke()
		}
		for _, reg := range s.regs {
			reg.Revoke()
		}
		for _, p := range s.pins {
			p.Release()
			b.metrics.PinReleased()
		}
	}
	if b.closed.Load() {
		release()
		return nil, ErrClosed
	}

	e.lifecycle = b.table.Register(bridge.KindLifecycle, SyncFunc(func(context.Context, uint32) {
		b.reg.destroyed(e)
	}), true)

	dev, code := b.create(s, e, release)
	if e.handle == 0 {
		release()
		return nil, b.fail(s.op, code)
	}

	e.owner = owner{record: s.record, index: dev}
	b.reg.track(e)
	return e, nil
}

// create runs the creation frame of s, leaving the handle in e. A panic is
// passed on once a handle it left behind is freed and release has run.
func (b *Binding) create(s spawn, e *entry, release func()) (dev uint32, code native.Code) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if h := e.handle; h != 0 {
			e.handle = 0
			e.lifecycle.Revoke()
			b.lib.Call(func(t native.Thread) { s.free(t, h) })
		}
		release()
		panic(r)
	}()

	dev = uint32(s.index)
	b.lib.Call(func(t native.Thread) {
		if s.record {
			b.selectRecordDevice(t, s.index)
		} else {
			b.selectDevice(t, s.index)
		}

		h := s.create(t)
		if h == 0 {
			code = t.ErrorGetCode()
			return
		}
		e.handle = h
		if t.ChannelSetSync(h, native.SyncFree, 0, e.lifecycle.Token()) == 0 {
			code = t.ErrorGetCode()
			s.free(t, h)
			e.handle = 0
			return
		}
		if d := t.ChannelGetDevice(h); d != native.FailDWORD {
			dev = d
		}
	})
	return dev, code
}
