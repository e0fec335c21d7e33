// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"context"

	"github.com/ik5/audbind/internal/bridge"
	"github.com/ik5/audbind/internal/pin"
	"github.com/ik5/audbind/native"
)

// Sample is sample data loaded into the engine. It plays through the
// channels it hands out.
type Sample struct {
	b *Binding
	e *entry
}

func (s *Sample) Handle() uint32 { return s.e.handle }

// LoadSample loads a sample from memory that allows max simultaneous
// channels. The engine copies buf, which is pinned for the duration of the
// call only.
func (d Device) LoadSample(buf []byte, max uint32, flags native.SampleFlags) (*Sample, error) {
	p := pin.Once(d.b.pinner.Pin(buf))
	d.b.metrics.PinAcquired()
	defer func() {
		p.Release()
		d.b.metrics.PinReleased()
	}()

	return d.loadSample(func(t native.Thread) uint32 {
		return t.SampleLoad(true, p.Pointer(0), 0, uint32(len(buf)), max, flags)
	})
}

// LoadSampleFile loads a sample from a file.
func (d Device) LoadSampleFile(path string, max uint32, flags native.SampleFlags) (*Sample, error) {
	if d.b.wide {
		flags |= native.SampleUnicode
	}
	name := d.b.encode(path)
	return d.loadSample(func(t native.Thread) uint32 {
		return t.SampleLoad(false, native.StringPtr(name), 0, 0, max, flags)
	})
}

func (d Device) loadSample(load func(t native.Thread) uint32) (*Sample, error) {
	e := &entry{kind: kindSample}
	dev := uint32(d.index)
	err := d.call("SampleLoad", func(t native.Thread) bool {
		if e.handle = load(t); e.handle == 0 {
			return false
		}
		if cur := t.GetDevice(); cur != native.FailDWORD {
			dev = cur
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	e.owner = owner{index: dev}
	d.b.reg.track(e)
	return &Sample{b: d.b, e: e}, nil
}

// Channel returns a channel to play the sample on. Unless flags asks for a
// new channel a stopped one is reused, in which case the result carries the
// existing channel's state.
func (s *Sample) Channel(flags native.SampleFlags) (*SampleChannel, error) {
	const op = "SampleGetChannel"

	if s.b.closed.Load() {
		return nil, ErrClosed
	}
	if s.e.dead.Load() {
		return nil, s.b.invalid(op)
	}

	e := &entry{kind: kindSampleChannel, owner: s.e.owner}
	e.lifecycle = s.b.table.Register(bridge.KindLifecycle, SyncFunc(func(context.Context, uint32) {
		s.b.reg.destroyed(e)
	}), true)

	reused, code := s.getChannel(e, flags)
	if reused != nil {
		e.lifecycle.Revoke()
		return &SampleChannel{channel{b: s.b, e: reused}}, nil
	}
	if e.handle == 0 {
		e.lifecycle.Revoke()
		return nil, s.b.fail(op, code)
	}

	s.b.reg.track(e)
	if !s.b.reg.adopt(s.e, e) {
		s.b.reg.destroyed(e)
		return nil, s.b.invalid(op)
	}
	return &SampleChannel{channel{b: s.b, e: e}}, nil
}

// getChannel asks the engine for a channel of s. A channel s already tracks
// is returned as reused; a new one is left in e with its FREE sync set. e
// keeps no handle when the engine fails, and code says why.
func (s *Sample) getChannel(e *entry, flags native.SampleFlags) (reused *entry, code native.Code) {
	defer func() {
		if r := recover(); r != nil {
			e.lifecycle.Revoke()
			panic(r)
		}
	}()

	s.b.lib.Call(func(t native.Thread) {
		h := t.SampleGetChannel(s.e.handle, flags)
		if h == 0 {
			code = t.ErrorGetCode()
			return
		}
		if old, ok := s.b.reg.lookup(h); ok && old.parent == s.e && !old.dead.Load() {
			reused = old
			return
		}
		if t.ChannelSetSync(h, native.SyncFree, 0, e.lifecycle.Token()) == 0 {
			code = t.ErrorGetCode()
			t.ChannelStop(h)
			return
		}
		e.handle = h
	})
	return reused, code
}

// Free frees the sample and its channels.
func (s *Sample) Free() error {
	const op = "SampleFree"

	if s.e.dead.Load() {
		return s.b.invalid(op)
	}
	err := s.b.call(op, func(t native.Thread) bool {
		return t.SampleFree(s.e.handle)
	})
	if err != nil {
		return err
	}
	s.b.reg.destroyed(s.e)
	return nil
}

// SampleChannel is a playing instance of a Sample. It goes away with its
// sample.
type SampleChannel struct {
	channel
}
