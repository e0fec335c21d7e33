// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"context"
	"unsafe"

	"github.com/ik5/audbind/internal/bridge"
	"github.com/ik5/audbind/native"
)

// ChannelInfo describes a channel.
type ChannelInfo struct {
	Freq     uint32
	Chans    uint32
	Flags    uint32
	Type     native.ChannelType
	OrigRes  uint32
	Sample   uint32
	Filename string
}

// Decode reports whether the channel is decode-only.
func (i ChannelInfo) Decode() bool { return i.Flags&uint32(native.StreamDecode) != 0 }

// Channel is implemented by every playable or decodable handle: streams,
// push streams, sample channels, music and recordings.
type Channel interface {
	Handle() uint32
	Device() (Device, error)
	Play(restart bool) error
	Pause() error
	Stop() error
	IsActive() (native.ActiveState, error)
	Info() (ChannelInfo, error)
	Position(mode native.PosMode) (uint64, error)
	SetPosition(pos uint64, mode native.PosMode) error
	Length(mode native.PosMode) (uint64, error)
	Attribute(attrib native.Attribute) (float32, error)
	SetAttribute(attrib native.Attribute, value float32) error
	Flags() (native.ChannelFlags, error)
	SetFlags(flags, mask native.ChannelFlags) (native.ChannelFlags, error)
	GetData(buf []byte) (int, error)
	SetDSP(fn DSPFunc, priority int32) (*DSP, error)
	SetSync(typ native.SyncType, param uint64, fn SyncFunc) (*Sync, error)
	StartEncoder(cmdline string, flags native.EncodeFlags, fn EncodeFunc) (*Encoder, error)

	base() *channel
}

// channel implements Channel for every handle kind.
type channel struct {
	b *Binding
	e *entry
}

func (c *channel) base() *channel { return c }

// Handle is the engine's handle value. It may have been reissued to another
// channel once this one is gone.
func (c *channel) Handle() uint32 { return c.e.handle }

// do runs fn unless the handle is already known to be gone.
func (c *channel) do(op string, fn func(t native.Thread, h uint32) bool) error {
	if c.e.dead.Load() {
		return c.b.invalid(op)
	}
	return c.b.call(op, func(t native.Thread) bool {
		return fn(t, c.e.handle)
	})
}

// Device is the device the channel plays on.
func (c *channel) Device() (Device, error) {
	var dev uint32
	err := c.do("ChannelGetDevice", func(t native.Thread, h uint32) bool {
		dev = t.ChannelGetDevice(h)
		return dev != native.FailDWORD
	})
	if err != nil {
		return Device{}, err
	}
	return c.b.Device(int(dev)), nil
}

// Play starts or resumes playback, from the start when restart is set.
func (c *channel) Play(restart bool) error {
	return c.do("ChannelPlay", func(t native.Thread, h uint32) bool {
		return t.ChannelPlay(h, restart)
	})
}

func (c *channel) Pause() error {
	return c.do("ChannelPause", func(t native.Thread, h uint32) bool {
		return t.ChannelPause(h)
	})
}

// Stop stops playback. Recordings and auto-free channels are freed by it.
func (c *channel) Stop() error {
	return c.do("ChannelStop", func(t native.Thread, h uint32) bool {
		return t.ChannelStop(h)
	})
}

func (c *channel) IsActive() (native.ActiveState, error) {
	state := native.ActiveStopped
	err := c.do("ChannelIsActive", func(t native.Thread, h uint32) bool {
		state = t.ChannelIsActive(h)
		return state != native.ActiveStopped || t.ErrorGetCode() == native.ErrorOK
	})
	return state, err
}

// Info describes the channel. The result is cached until the channel's flags
// change or the channel is gone.
func (c *channel) Info() (ChannelInfo, error) {
	if info, ok := c.b.reg.cachedInfo(c.e); ok {
		return info, nil
	}

	var raw native.ChannelInfo
	var name string
	err := c.do("ChannelGetInfo", func(t native.Thread, h uint32) bool {
		if !t.ChannelGetInfo(h, &raw) {
			return false
		}
		// the name lives in engine memory, copy it inside the frame
		name = native.DecodeString(unsafe.Pointer(raw.Filename), raw.Flags&uint32(native.StreamUnicode) != 0)
		return true
	})
	if err != nil {
		return ChannelInfo{}, err
	}

	info := ChannelInfo{
		Freq:     raw.Freq,
		Chans:    raw.Chans,
		Flags:    raw.Flags,
		Type:     raw.CType,
		OrigRes:  raw.OrigRes,
		Sample:   raw.Sample,
		Filename: name,
	}
	c.b.reg.storeInfo(c.e, info)
	return info, nil
}

func (c *channel) Position(mode native.PosMode) (uint64, error) {
	var pos uint64
	err := c.do("ChannelGetPosition", func(t native.Thread, h uint32) bool {
		pos = t.ChannelGetPosition(h, mode)
		return pos != native.FailQWORD
	})
	return pos, err
}

func (c *channel) SetPosition(pos uint64, mode native.PosMode) error {
	return c.do("ChannelSetPosition", func(t native.Thread, h uint32) bool {
		return t.ChannelSetPosition(h, pos, mode)
	})
}

// Length is the channel length in mode's units.
func (c *channel) Length(mode native.PosMode) (uint64, error) {
	var n uint64
	err := c.do("ChannelGetLength", func(t native.Thread, h uint32) bool {
		n = t.ChannelGetLength(h, mode)
		return n != native.FailQWORD
	})
	return n, err
}

func (c *channel) Attribute(attrib native.Attribute) (float32, error) {
	var v float32
	err := c.do("ChannelGetAttribute", func(t native.Thread, h uint32) bool {
		return t.ChannelGetAttribute(h, attrib, &v)
	})
	return v, err
}

func (c *channel) SetAttribute(attrib native.Attribute, value float32) error {
	return c.do("ChannelSetAttribute", func(t native.Thread, h uint32) bool {
		return t.ChannelSetAttribute(h, attrib, value)
	})
}

func (c *channel) Flags() (native.ChannelFlags, error) {
	return c.SetFlags(0, 0)
}

// SetFlags changes the flags selected by mask and returns the new flags.
func (c *channel) SetFlags(flags, mask native.ChannelFlags) (native.ChannelFlags, error) {
	var v uint32
	err := c.do("ChannelFlags", func(t native.Thread, h uint32) bool {
		v = t.ChannelFlags(h, flags, mask)
		return v != native.FailDWORD
	})
	if err != nil {
		return 0, err
	}
	if mask != 0 {
		c.b.reg.dropInfo(c.e)
	}
	return native.ChannelFlags(v), nil
}

// GetData reads sample data: it consumes data from decoding channels and
// recordings and copies the latest output of playing ones.
func (c *channel) GetData(buf []byte) (int, error) {
	var n uint32
	err := c.do("ChannelGetData", func(t native.Thread, h uint32) bool {
		n = t.ChannelGetData(h, unsafe.Pointer(unsafe.SliceData(buf)), uint32(len(buf)))
		return n != native.FailDWORD
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// SetDSP adds fn to the channel's DSP chain. Higher priorities run first.
func (c *channel) SetDSP(fn DSPFunc, priority int32) (*DSP, error) {
	const op = "ChannelSetDSP"

	reg := c.b.table.Register(bridge.KindDSP, fn, false)
	if !c.e.addReg(reg) {
		return nil, c.b.invalid(op)
	}

	var h uint32
	err := c.do(op, func(t native.Thread, ch uint32) bool {
		h = t.ChannelSetDSP(ch, reg.Token(), priority)
		return h != 0
	})
	if err != nil {
		reg.Revoke()
		c.e.dropReg(reg)
		return nil, err
	}
	return &DSP{b: c.b, ch: c.e, handle: h, reg: reg}, nil
}

// SetSync calls fn when typ's condition is met. One-time syncs fire at most
// once and are gone before fn runs.
func (c *channel) SetSync(typ native.SyncType, param uint64, fn SyncFunc) (*Sync, error) {
	const op = "ChannelSetSync"

	reg := c.b.table.Register(bridge.KindSync, fn, typ.OneTime() || typ.Condition() == native.SyncFree)
	attached := false
	if typ.Condition() == native.SyncFree {
		attached = c.e.addFreeSync(reg)
	} else {
		attached = c.e.addReg(reg)
	}
	if !attached {
		return nil, c.b.invalid(op)
	}

	var h uint32
	err := c.do(op, func(t native.Thread, ch uint32) bool {
		h = t.ChannelSetSync(ch, typ, param, reg.Token())
		return h != 0
	})
	if err != nil {
		reg.Revoke()
		c.e.dropReg(reg)
		return nil, err
	}
	return &Sync{b: c.b, ch: c.e, handle: h, reg: reg}, nil
}

// StartEncoder encodes the channel's output. cmdline is the encoder command
// line, or the output file for PCM encoders; fn receives the encoded data and
// may be nil. The encoder is freed with the channel.
func (c *channel) StartEncoder(cmdline string, flags native.EncodeFlags, fn EncodeFunc) (*Encoder, error) {
	const op = "EncodeStart"

	if c.e.dead.Load() {
		return nil, c.b.invalid(op)
	}
	if c.b.wide {
		flags |= native.EncodeUnicode
	}

	enc := &Encoder{b: c.b, e: &entry{kind: kindEncoder, owner: c.e.owner}}
	var data *bridge.Registration
	var token uintptr
	if fn != nil {
		data = c.b.table.Register(bridge.KindEncode, fn, false)
		token = data.Token()
		enc.e.regs = append(enc.e.regs, data)
	}
	notify := c.b.table.Register(bridge.KindNotify, NotifyFunc(enc.notified), false)
	enc.e.regs = append(enc.e.regs, notify)

	cmd := c.b.encode(cmdline)
	err := c.do(op, func(t native.Thread, ch uint32) bool {
		h := t.EncodeStart(ch, native.StringPtr(cmd), flags, fn != nil, token)
		if h == 0 {
			return false
		}
		enc.e.handle = h
		// encoders without notification support still work
		t.EncodeSetNotify(h, true, notify.Token())
		return true
	})
	if err != nil {
		for _, reg := range enc.e.regs {
			reg.Revoke()
		}
		return nil, err
	}

	c.b.metrics.HandleOpened(kindEncoder)
	if !c.b.reg.adopt(c.e, enc.e) {
		// the channel, and with it the encoder, went away meanwhile
		c.b.reg.kill(enc.e)
		return nil, c.b.invalid(op)
	}
	return enc, nil
}

// free runs the kind specific free and forgets the entry. Pins stay until
// the engine's FREE sync confirms it is done with them.
func (c *channel) free(op string, fn func(t native.Thread, h uint32) bool) error {
	if err := c.do(op, fn); err != nil {
		return err
	}
	c.b.reg.kill(c.e)
	return nil
}

// detach is DSP.Remove and Sync.Remove.
func detach(ctx context.Context, b *Binding, op string, ch *entry, reg *bridge.Registration, remove func(t native.Thread) bool) error {
	var err error
	switch {
	case !reg.Revoke():
		// removed already, fired as a one-time sync, or died with the channel
		err = b.invalid(op)
	case ch.dead.Load():
		err = b.invalid(op)
	default:
		ch.dropReg(reg)
		err = b.call(op, remove)
	}

	if ferr := reg.Fence(ctx); ferr != nil && err == nil {
		err = ferr
	}
	return err
}
