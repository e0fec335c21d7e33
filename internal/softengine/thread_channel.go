// SPDX-License-Identifier: EPL-2.0

package softengine

import (
	"os"
	"unsafe"

	"github.com/ik5/audbind/formats/wav"
	"github.com/ik5/audbind/native"
)

const (
	mutableFlags = native.ChannelLoop | native.ChannelAutoFree | native.ChannelMuteMax
	posFlags     = native.PosDecode | native.PosReset | native.PosRelative
	dataFlags    = 0xF0000000
)

// lookup resolves handle to a channel and runs fn with e.mu held. fn returns
// deferred events.
func (t *thread) lookup(handle uint32, fn func(c *channel) events) bool {
	e := t.e
	e.mu.Lock()
	c, code := e.channel(handle)
	if code != native.ErrorOK {
		e.mu.Unlock()
		return t.fail(code)
	}

	t.code = native.ErrorOK
	ev := fn(c)
	e.mu.Unlock()

	ev.run()
	return t.code == native.ErrorOK
}

func (t *thread) ChannelPlay(handle uint32, restart bool) bool {
	var start Output
	var d *device
	ok := t.lookup(handle, func(c *channel) events {
		switch {
		case c.decode:
			t.code = native.ErrorDecode
			return nil
		case c.kind == kindDummy:
			t.code = native.ErrorNotAvail
			return nil
		case c.kind == kindRecord:
			if c.state == native.ActivePaused {
				c.state = native.ActivePlaying
			}
			return nil
		}

		var ev events
		if (restart || c.ended) && c.requestSeek(0) {
			ev = append(ev, t.e.fireSyncs(c, native.SyncSetPos, 0)...)
		}
		c.state = native.ActivePlaying
		if !c.dev.running && c.dev.out != nil {
			c.dev.running = true
			start, d = c.dev.out, c.dev
		}
		return ev
	})

	if ok && start != nil {
		if err := start.Start(d.freq, d.chans, func(dst []float32) { t.e.mix(d, dst) }); err != nil {
			return t.fail(native.ErrorStart)
		}
	}
	return ok
}

// ChannelStop stops a channel. Recordings and auto-free channels are freed.
func (t *thread) ChannelStop(handle uint32) bool {
	return t.lookup(handle, func(c *channel) events {
		if c.kind == kindRecord || c.autoFree() {
			return t.e.freeChannel(c)
		}
		if !c.decode {
			c.state = native.ActiveStopped
		}
		return nil
	})
}

func (t *thread) ChannelPause(handle uint32) bool {
	return t.lookup(handle, func(c *channel) events {
		switch {
		case c.decode:
			t.code = native.ErrorDecode
		case c.state != native.ActivePlaying:
			t.code = native.ErrorNoPlay
		default:
			c.state = native.ActivePaused
		}
		return nil
	})
}

func (t *thread) ChannelIsActive(handle uint32) native.ActiveState {
	state := native.ActiveStopped
	t.lookup(handle, func(c *channel) events {
		state = c.state
		if c.decode && c.ended {
			state = native.ActiveStopped
		}
		if state == native.ActivePlaying && c.dev != nil && !c.dev.running {
			state = native.ActivePausedDevice
		}
		if state == native.ActivePlaying && c.kind == kindPush {
			if p, ok := c.prod.(*pushProducer); ok && p.queued() == 0 {
				state = native.ActiveStalled
			}
		}
		return nil
	})
	return state
}

func (t *thread) ChannelGetInfo(handle uint32, info *native.ChannelInfo) bool {
	return t.lookup(handle, func(c *channel) events {
		if info == nil {
			t.code = native.ErrorIllParam
			return nil
		}

		*info = native.ChannelInfo{
			Freq:    uint32(c.freq),
			Chans:   uint32(c.chans),
			Flags:   c.flags,
			CType:   c.ctype,
			OrigRes: uint32(c.format.Size() * 8),
		}
		if c.decode {
			info.Flags |= uint32(native.StreamDecode)
		}
		if c.sample != nil {
			info.Sample = c.sample.handle
		}
		if len(c.filename) > 0 {
			info.Filename = &c.filename[0]
		}
		return nil
	})
}

func (t *thread) ChannelGetDevice(handle uint32) uint32 {
	dev := native.FailDWORD
	t.lookup(handle, func(c *channel) events {
		switch {
		case c.dev != nil:
			dev = c.dev.index
		case c.rec != nil:
			dev = c.rec.index
		}
		return nil
	})
	return dev
}

// ChannelGetData consumes data from decoding channels and recordings. For a
// playing channel it copies the most recently rendered block.
func (t *thread) ChannelGetData(handle uint32, buf unsafe.Pointer, length uint32) uint32 {
	e := t.e
	if length&dataFlags != 0 {
		t.fail(native.ErrorNotAvail)
		return native.FailDWORD
	}

	var c *channel
	var peek []byte
	ok := t.lookup(handle, func(ch *channel) events {
		c = ch
		switch {
		case ch.kind == kindDummy:
			t.code = native.ErrorNotAvail
		case !ch.decode && ch.kind != kindRecord:
			peek = ch.peek
		}
		return nil
	})
	if !ok {
		return native.FailDWORD
	}
	if length > 0 && buf == nil {
		t.fail(native.ErrorIllParam)
		return native.FailDWORD
	}

	dst := unsafe.Slice((*byte)(buf), int(length))
	if length == 0 {
		dst = nil
	}

	switch {
	case c.kind == kindRecord:
		e.mu.Lock()
		prod := c.prod
		e.mu.Unlock()
		if prod == nil {
			t.fail(native.ErrorHandle)
			return native.FailDWORD
		}
		n, _ := prod.read(dst)
		t.ok()
		return uint32(n)
	case !c.decode:
		e.mu.Lock()
		n := copy(dst, peek)
		e.mu.Unlock()
		t.ok()
		return uint32(n)
	}

	n, ended := e.pull(c, dst)
	if n == 0 && ended {
		t.fail(native.ErrorEnded)
		return native.FailDWORD
	}
	t.ok()
	return uint32(n)
}

func (t *thread) ChannelGetPosition(handle uint32, mode native.PosMode) uint64 {
	pos := native.FailQWORD
	t.lookup(handle, func(c *channel) events {
		if mode&^posFlags != native.PosByte {
			t.code = native.ErrorNotAvail
			return nil
		}
		pos = uint64(c.pos)
		return nil
	})
	return pos
}

func (t *thread) ChannelSetPosition(handle uint32, pos uint64, mode native.PosMode) bool {
	return t.lookup(handle, func(c *channel) events {
		if mode&^posFlags != native.PosByte {
			t.code = native.ErrorNotAvail
			return nil
		}
		switch c.kind {
		case kindUser, kindPush, kindDummy, kindRecord:
			t.code = native.ErrorNotFile
			return nil
		}

		target := int64(pos)
		if mode&native.PosRelative != 0 {
			target += c.pos
		}
		if !c.requestSeek(target) {
			t.code = native.ErrorPosition
			return nil
		}
		return t.e.fireSyncs(c, native.SyncSetPos, 0)
	})
}

func (t *thread) ChannelGetLength(handle uint32, mode native.PosMode) uint64 {
	length := native.FailQWORD
	t.lookup(handle, func(c *channel) events {
		if mode&^posFlags != native.PosByte {
			t.code = native.ErrorNotAvail
			return nil
		}
		if c.prod == nil || c.prod.length() < 0 {
			t.code = native.ErrorNotAvail
			return nil
		}
		length = uint64(c.prod.length())
		return nil
	})
	return length
}

func (t *thread) ChannelGetAttribute(handle uint32, attrib native.Attribute, value *float32) bool {
	return t.lookup(handle, func(c *channel) events {
		if value == nil {
			t.code = native.ErrorIllParam
			return nil
		}

		switch attrib {
		case native.AttribVol:
			*value = c.volume
		case native.AttribPan:
			*value = c.pan
		case native.AttribFreq:
			*value = float32(c.freq)
			if c.rateAttr > 0 {
				*value = c.rateAttr
			}
		case native.AttribNoBuffer, native.AttribCPU, native.AttribBuffer:
			*value = 0
		default:
			t.code = native.ErrorIllType
		}
		return nil
	})
}

func (t *thread) ChannelSetAttribute(handle uint32, attrib native.Attribute, value float32) bool {
	return t.lookup(handle, func(c *channel) events {
		switch attrib {
		case native.AttribVol:
			if value < 0 {
				t.code = native.ErrorIllParam
				return nil
			}
			c.volume = value
		case native.AttribPan:
			if value < -1 || value > 1 {
				t.code = native.ErrorIllParam
				return nil
			}
			c.pan = value
		case native.AttribFreq:
			if value != 0 && (value < 100 || value > 1000000) {
				t.code = native.ErrorIllParam
				return nil
			}
			c.rateAttr = value
			c.player = nil
		case native.AttribNoBuffer, native.AttribCPU, native.AttribBuffer:
		default:
			t.code = native.ErrorIllType
		}
		return nil
	})
}

func (t *thread) ChannelFlags(handle uint32, flags, mask native.ChannelFlags) uint32 {
	result := native.FailDWORD
	t.lookup(handle, func(c *channel) events {
		m := uint32(mask & mutableFlags)
		c.flags = c.flags&^m | uint32(flags)&m
		result = c.flags
		if c.decode {
			result |= uint32(native.ChannelDecode)
		}
		return nil
	})
	return result
}

func (t *thread) ChannelSetDSP(handle uint32, user uintptr, priority int32) uint32 {
	var h uint32
	t.lookup(handle, func(c *channel) events {
		h = t.e.addDSP(c, user, priority)
		return nil
	})
	return h
}

func (t *thread) ChannelRemoveDSP(handle, dsp uint32) bool {
	return t.lookup(handle, func(c *channel) events {
		d, ok := t.e.objects[dsp].(*dspEntry)
		if !ok || d.ch != c {
			t.code = native.ErrorHandle
			return nil
		}
		t.e.removeDSP(c, d)
		return nil
	})
}

func (t *thread) ChannelSetSync(handle uint32, typ native.SyncType, param uint64, user uintptr) uint32 {
	var h uint32
	t.lookup(handle, func(c *channel) events {
		switch typ.Condition() {
		case native.SyncPos, native.SyncEnd, native.SyncFree, native.SyncSetPos,
			native.SyncStall, native.SyncMeta, native.SyncDownload, native.SyncDevFail:
		default:
			t.code = native.ErrorIllType
			return nil
		}

		s := &syncEntry{ch: c, typ: typ, param: param, user: user}
		s.handle = t.e.alloc(s)
		c.syncs = append(c.syncs, s)
		h = s.handle
		return nil
	})
	return h
}

func (t *thread) ChannelRemoveSync(handle, sync uint32) bool {
	return t.lookup(handle, func(c *channel) events {
		s, ok := t.e.objects[sync].(*syncEntry)
		if !ok || s.ch != c {
			t.code = native.ErrorHandle
			return nil
		}
		t.e.dropSync(c, s)
		return nil
	})
}

// EncodeStart supports PCM output only: cmdline names the WAV file to write,
// and may be empty when the data goes to the EncodeProc.
func (t *thread) EncodeStart(handle uint32, cmdline unsafe.Pointer, flags native.EncodeFlags, proc bool, user uintptr) uint32 {
	if flags&native.EncodePCM == 0 {
		t.fail(native.ErrorNotAvail)
		return 0
	}
	path := native.DecodeString(cmdline, flags&native.EncodeUnicode != 0)
	if path == "" && !proc {
		t.fail(native.ErrorIllParam)
		return 0
	}

	var h uint32
	t.lookup(handle, func(c *channel) events {
		if c.kind == kindDummy {
			t.code = native.ErrorNotAvail
			return nil
		}

		enc := &encoder{ch: c, flags: flags, chans: c.chans, proc: proc, user: user}
		if flags&native.EncodeMono != 0 {
			enc.chans = 1
		}
		if path != "" {
			f, err := os.Create(path)
			if err != nil {
				t.code = native.ErrorCreate
				return nil
			}
			enc.file = f
			enc.writer = wav.NewFileWriter(f, c.freq, enc.chans, 16)
		}

		enc.handle = t.e.alloc(enc)
		c.encoders = append(c.encoders, enc)
		h = enc.handle
		return nil
	})
	return h
}

// encoders resolves an encoder handle or every encoder of a channel handle.
// Called with e.mu held.
func (t *thread) encoders(handle uint32) []*encoder {
	switch o := t.e.objects[handle].(type) {
	case *encoder:
		return []*encoder{o}
	case *channel:
		if !o.freed && len(o.encoders) > 0 {
			return append([]*encoder(nil), o.encoders...)
		}
	}
	return nil
}

func (t *thread) EncodeStop(handle uint32) bool {
	e := t.e
	e.mu.Lock()
	encs := t.encoders(handle)
	if len(encs) == 0 {
		e.mu.Unlock()
		return t.fail(native.ErrorHandle)
	}
	var ev events
	for _, enc := range encs {
		ev = append(ev, e.freeEncoder(enc, false)...)
	}
	e.mu.Unlock()

	ev.run()
	return t.ok()
}

func (t *thread) EncodeSetNotify(handle uint32, notify bool, user uintptr) bool {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	encs := t.encoders(handle)
	if len(encs) == 0 {
		return t.fail(native.ErrorHandle)
	}
	for _, enc := range encs {
		enc.notify, enc.notifyUser = notify, user
	}
	return t.ok()
}

func (t *thread) EncodeIsActive(handle uint32) native.ActiveState {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	if len(t.encoders(handle)) == 0 {
		t.fail(native.ErrorHandle)
		return native.ActiveStopped
	}
	t.ok()
	return native.ActivePlaying
}
