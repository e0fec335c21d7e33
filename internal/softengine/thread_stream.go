// SPDX-License-Identifier: EPL-2.0

package softengine

import (
	"fmt"
	"unsafe"

	"github.com/ik5/audbind/audio"
	"github.com/ik5/audbind/native"
)

const creationMask = uint32(native.StreamSampleLoop | native.StreamAutoFree | native.StreamDecode |
	native.StreamSampleFloat | native.StreamSample8Bits | native.StreamSampleMono)

func (t *thread) StreamCreate(freq, chans uint32, flags native.StreamFlags, proc native.StreamProc, user uintptr) uint32 {
	e := t.e
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := t.dev()
	if !ok {
		return 0
	}
	if proc != native.StreamProcDummy && (freq == 0 || chans == 0) {
		t.fail(native.ErrorIllParam)
		return 0
	}

	c := &channel{
		dev:    d,
		ctype:  native.CTypeStream,
		freq:   int(freq),
		chans:  max(1, int(chans)),
		flags:  uint32(flags) & creationMask,
		decode: flags&native.StreamDecode != 0,
	}
	c.format = formatOf(c.flags)

	switch proc {
	case native.StreamProcDummy:
		c.kind = kindDummy
		c.ctype = native.CTypeStreamDummy
	case native.StreamProcPush:
		c.kind = kindPush
		c.prod = &pushProducer{}
	case native.StreamProcUser:
		c.kind = kindUser
		c.prod = &userProducer{e: e, user: user}
	default:
		t.fail(native.ErrorNotAvail)
		return 0
	}

	h := e.newChannel(c)
	if up, ok := c.prod.(*userProducer); ok {
		up.handle = h
	}
	t.ok()
	return h
}

func (t *thread) StreamCreateFile(mem bool, file unsafe.Pointer, offset, length uint64, flags native.StreamFlags) uint32 {
	e := t.e

	e.mu.Lock()
	d, ok := t.dev()
	e.mu.Unlock()
	if !ok {
		return 0
	}

	in, code := openInput(mem, file, offset, length, flags&native.StreamUnicode != 0)
	if code != native.ErrorOK {
		t.fail(code)
		return 0
	}

	mono := flags&native.StreamSampleMono != 0
	format, src, code := e.decode(in, mono)
	if code != native.ErrorOK {
		in.close()
		t.fail(code)
		return 0
	}

	return t.addDecoded(d, in, mono, format, src, flags)
}

// addDecoded registers a stream that decodes src lazily and reopens the input
// to seek.
func (t *thread) addDecoded(d *device, in *input, mono bool, format string, src audio.Source, flags native.StreamFlags) uint32 {
	e := t.e
	c := &channel{
		kind:     kindFile,
		dev:      d,
		ctype:    ctypeOf(format),
		freq:     src.SampleRate(),
		chans:    src.Channels(),
		flags:    uint32(flags) & creationMask,
		decode:   flags&native.StreamDecode != 0,
		filename: in.filename,
	}
	c.format = formatOf(c.flags)

	reopen := func() (audio.Source, error) {
		_, s, code := e.decode(in, mono)
		if code != native.ErrorOK {
			return nil, fmt.Errorf("reopening input: %v", code)
		}
		return s, nil
	}
	c.prod = newDecoderProducer(reopen, in.closer, src, c.format)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !d.inited {
		c.prod.close()
		t.fail(native.ErrorInit)
		return 0
	}
	h := e.newChannel(c)
	t.ok()
	return h
}

func (t *thread) StreamPutData(handle uint32, buf unsafe.Pointer, length uint32) uint32 {
	e := t.e
	e.mu.Lock()
	c, code := e.channel(handle)
	if code != native.ErrorOK {
		e.mu.Unlock()
		t.fail(code)
		return native.FailDWORD
	}
	p, ok := c.prod.(*pushProducer)
	e.mu.Unlock()
	if !ok {
		t.fail(native.ErrorNotAvail)
		return native.FailDWORD
	}

	end := length&native.StreamEnd != 0
	n := int(length &^ native.StreamEnd)
	if n > 0 && buf == nil {
		t.fail(native.ErrorIllParam)
		return native.FailDWORD
	}

	var data []byte
	if n > 0 {
		// the engine copies, buf is only read during the call
		data = unsafe.Slice((*byte)(buf), n)
	}
	queued, ok := p.put(data, end)
	if !ok {
		t.fail(native.ErrorEnded)
		return native.FailDWORD
	}
	t.ok()
	return uint32(queued)
}

func (t *thread) StreamFree(handle uint32) bool {
	e := t.e
	e.mu.Lock()
	c, code := e.channel(handle)
	if code != native.ErrorOK {
		e.mu.Unlock()
		return t.fail(code)
	}
	switch c.kind {
	case kindSample, kindMusic, kindRecord:
		e.mu.Unlock()
		return t.fail(native.ErrorHandle)
	}
	ev := e.freeChannel(c)
	e.mu.Unlock()

	ev.run()
	return t.ok()
}

func (t *thread) SampleLoad(mem bool, file unsafe.Pointer, offset uint64, length, maxChans uint32, flags native.SampleFlags) uint32 {
	e := t.e
	e.mu.Lock()
	d, ok := t.dev()
	e.mu.Unlock()
	if !ok {
		return 0
	}
	if maxChans < 1 || maxChans > 65535 {
		t.fail(native.ErrorIllParam)
		return 0
	}

	in, code := openInput(mem, file, offset, uint64(length), flags&native.SampleUnicode != 0)
	if code != native.ErrorOK {
		t.fail(code)
		return 0
	}
	defer in.close()

	data, freq, chans, code := e.decodeAll(in, flags&native.SampleMono != 0, 0)
	if code != native.ErrorOK {
		t.fail(code)
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !d.inited {
		t.fail(native.ErrorInit)
		return 0
	}
	s := &sample{dev: d, data: data, freq: freq, chans: chans, flags: flags, max: int(maxChans)}
	s.handle = e.alloc(s)
	t.ok()
	return s.handle
}

func (t *thread) SampleGetChannel(handle uint32, flags native.SampleFlags) uint32 {
	e := t.e
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.objects[handle].(*sample)
	if !ok {
		t.fail(native.ErrorHandle)
		return 0
	}

	decode := flags&native.SampleChanDecode != 0
	if !decode && flags&native.SampleChanNew == 0 {
		for _, c := range s.channels {
			if !c.decode && c.state == native.ActiveStopped && c.requestSeek(0) {
				t.ok()
				return c.handle
			}
		}
	}
	if len(s.channels) >= s.max {
		t.fail(native.ErrorNoChan)
		return 0
	}

	c := &channel{
		kind:   kindSample,
		dev:    s.dev,
		sample: s,
		ctype:  native.CTypeSample,
		freq:   s.freq,
		chans:  s.chans,
		flags:  uint32(s.flags) & creationMask,
		decode: decode,
	}
	c.format = formatOf(c.flags)
	c.prod = newPCMProducer(s.data, s.freq, s.chans, c.format)
	h := e.newChannel(c)
	s.channels = append(s.channels, c)
	t.ok()
	return h
}

func (t *thread) SampleFree(handle uint32) bool {
	e := t.e
	e.mu.Lock()
	s, ok := e.objects[handle].(*sample)
	if !ok {
		e.mu.Unlock()
		return t.fail(native.ErrorHandle)
	}
	ev := e.freeSample(s)
	e.mu.Unlock()

	ev.run()
	return t.ok()
}

func (t *thread) MusicLoad(mem bool, file unsafe.Pointer, offset uint64, length uint32, flags native.MusicFlags, freq uint32) uint32 {
	e := t.e
	e.mu.Lock()
	d, ok := t.dev()
	devFreq := 0
	if ok {
		devFreq = d.freq
	}
	e.mu.Unlock()
	if !ok {
		return 0
	}
	if freq == 0 {
		freq = uint32(devFreq)
	}

	in, code := openInput(mem, file, offset, uint64(length), flags&native.MusicUnicode != 0)
	if code != native.ErrorOK {
		t.fail(code)
		return 0
	}
	defer in.close()

	data, rate, chans, code := e.decodeAll(in, flags&native.MusicMono != 0, int(freq))
	if code != native.ErrorOK {
		t.fail(code)
		return 0
	}

	c := &channel{
		kind:   kindMusic,
		dev:    d,
		ctype:  native.CTypeMusicMod,
		freq:   rate,
		chans:  chans,
		flags:  uint32(flags) & creationMask,
		decode: flags&native.MusicDecode != 0,
	}
	c.format = formatOf(c.flags)
	c.prod = newPCMProducer(data, rate, chans, c.format)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !d.inited {
		t.fail(native.ErrorInit)
		return 0
	}
	h := e.newChannel(c)
	t.ok()
	return h
}

func (t *thread) MusicFree(handle uint32) bool {
	e := t.e
	e.mu.Lock()
	c, code := e.channel(handle)
	if code != native.ErrorOK || c.kind != kindMusic {
		e.mu.Unlock()
		return t.fail(native.ErrorHandle)
	}
	ev := e.freeChannel(c)
	e.mu.Unlock()

	ev.run()
	return t.ok()
}
