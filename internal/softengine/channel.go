// SPDX-License-Identifier: EPL-2.0

package softengine

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ik5/audbind/audio"
	"github.com/ik5/audbind/native"
	"github.com/ik5/audbind/utils"
	"go.uber.org/zap"
)

type channelKind uint8

const (
	kindUser channelKind = iota
	kindPush
	kindDummy
	kindFile
	kindSample
	kindMusic
	kindRecord
)

type channel struct {
	handle   uint32
	kind     channelKind
	dev      *device
	rec      *recordDevice
	sample   *sample
	ctype    native.ChannelType
	freq     int
	chans    int
	format   utils.SampleFormat
	flags    uint32
	decode   bool
	filename []byte

	state     native.ActiveState
	ended     bool
	freed     bool
	finalized bool
	// pulls in progress; the last one out finalizes a freed channel
	busy int
	pos  int64
	// seeks are applied by the data path
	seekTo      int64
	seekPending bool

	volume   float32
	pan      float32
	rateAttr float32
	player   audio.Source
	peek     []byte

	prod     producer
	dsps     []*dspEntry
	syncs    []*syncEntry
	encoders []*encoder

	// serializes the data path
	readMu sync.Mutex
}

type dspEntry struct {
	handle   uint32
	ch       *channel
	user     uintptr
	priority int32
	removed  atomic.Bool
}

type syncEntry struct {
	handle uint32
	ch     *channel
	typ    native.SyncType
	param  uint64
	user   uintptr
}

func formatOf(flags uint32) utils.SampleFormat {
	switch {
	case flags&uint32(native.StreamSampleFloat) != 0:
		return utils.Float32
	case flags&uint32(native.StreamSample8Bits) != 0:
		return utils.PCM8
	}
	return utils.PCM16
}

func (c *channel) frameBytes() int { return c.chans * c.format.Size() }

func (c *channel) loops() bool {
	return c.flags&uint32(native.ChannelLoop) != 0
}

func (c *channel) autoFree() bool {
	return c.flags&uint32(native.ChannelAutoFree) != 0
}

// newChannel registers a channel. Called with e.mu held.
func (e *Engine) newChannel(c *channel) uint32 {
	c.volume = 1
	if c.decode {
		c.state = native.ActivePlaying
	}
	c.handle = e.alloc(c)
	return c.handle
}

// pull runs the data path: producer, DSP chain, encoders, position and syncs.
func (e *Engine) pull(c *channel, buf []byte) (int, bool) {
	c.readMu.Lock()

	e.mu.Lock()
	if c.freed || c.prod == nil || c.ended {
		e.mu.Unlock()
		c.readMu.Unlock()
		return 0, true
	}
	c.busy++
	prod := c.prod
	fb := c.frameBytes()
	seek, target := c.seekPending, c.seekTo
	c.seekPending = false
	e.mu.Unlock()

	if seek && !prod.seek(target) {
		e.log.Debug("seek failed", zap.Uint32("channel", c.handle), zap.Int64("pos", target))
	}

	buf = buf[:len(buf)-len(buf)%fb]

	var ev events
	n := 0
	ended := false
	for n < len(buf) {
		m, end := prod.read(buf[n:])
		n += m

		e.mu.Lock()
		ev = append(ev, e.advance(c, int64(m))...)
		if !end {
			e.mu.Unlock()
			if m == 0 {
				break
			}
			continue
		}

		ev = append(ev, e.fireSyncs(c, native.SyncEnd, 0)...)
		loop := c.loops() && c.pos > 0
		e.mu.Unlock()

		if loop && prod.seek(0) {
			e.mu.Lock()
			c.pos = 0
			e.mu.Unlock()
			continue
		}
		ended = true
		break
	}

	data := buf[:n]
	if n > 0 {
		e.process(c, data)
	}

	e.mu.Lock()
	if n > 0 && !c.decode {
		c.peek = append(c.peek[:0], data...)
	}
	if ended {
		c.ended = true
		c.state = native.ActiveStopped
		if c.autoFree() {
			ev = append(ev, e.freeChannel(c)...)
		}
	}
	c.busy--
	if c.freed && c.busy == 0 && !c.finalized {
		ev = append(ev, e.finalize(c)...)
	}
	e.mu.Unlock()
	c.readMu.Unlock()

	ev.run()
	return n, ended
}

// requestSeek validates pos and queues it for the data path. Called with e.mu
// held.
func (c *channel) requestSeek(pos int64) bool {
	if c.prod == nil || pos < 0 {
		return false
	}
	if l := c.prod.length(); l >= 0 && pos > l {
		return false
	}

	pos -= pos % int64(c.frameBytes())
	c.seekTo, c.seekPending = pos, true
	c.pos, c.ended = pos, false
	c.player = nil
	return true
}

// process runs the DSP chain and feeds encoders.
func (e *Engine) process(c *channel, data []byte) {
	e.mu.Lock()
	dsps := slices.Clone(c.dsps)
	encs := slices.Clone(c.encoders)
	e.mu.Unlock()

	if d := e.dispatcher(); d != nil {
		for _, dsp := range dsps {
			if !dsp.removed.Load() {
				d.DSPProc(dsp.handle, c.handle, data, dsp.user)
			}
		}
	}

	for _, enc := range encs {
		enc.feed(e, c, data)
	}
}

// advance moves the position by n bytes and collects the POS syncs crossed.
// Called with e.mu held.
func (e *Engine) advance(c *channel, n int64) events {
	if n <= 0 {
		return nil
	}

	from, to := c.pos, c.pos+n
	c.pos = to

	var ev events
	for _, s := range slices.Clone(c.syncs) {
		if s.typ.Condition() == native.SyncPos && int64(s.param) >= from && int64(s.param) < to {
			ev = append(ev, e.fire(c, s, 0))
		}
	}
	return ev
}

// fireSyncs collects the syncs of c waiting for cond. Called with e.mu held.
func (e *Engine) fireSyncs(c *channel, cond native.SyncType, data uint32) events {
	var ev events
	for _, s := range slices.Clone(c.syncs) {
		if s.typ.Condition() == cond {
			ev = append(ev, e.fire(c, s, data))
		}
	}
	return ev
}

// fire removes one-time syncs before they are delivered.
func (e *Engine) fire(c *channel, s *syncEntry, data uint32) func() {
	if s.typ.OneTime() {
		e.dropSync(c, s)
	}

	handle, ch, user := s.handle, c.handle, s.user
	return func() {
		if d := e.dispatcher(); d != nil {
			d.SyncProc(handle, ch, data, user)
		}
	}
}

func (e *Engine) dropSync(c *channel, s *syncEntry) {
	if i := slices.Index(c.syncs, s); i >= 0 {
		c.syncs = slices.Delete(c.syncs, i, i+1)
		e.release(s.handle, s)
	}
}

func (e *Engine) addDSP(c *channel, user uintptr, priority int32) uint32 {
	d := &dspEntry{ch: c, user: user, priority: priority}
	d.handle = e.alloc(d)

	// descending priority, equal priorities keep registration order
	i := slices.IndexFunc(c.dsps, func(o *dspEntry) bool { return o.priority < priority })
	if i < 0 {
		i = len(c.dsps)
	}
	c.dsps = slices.Insert(c.dsps, i, d)
	return d.handle
}

func (e *Engine) removeDSP(c *channel, d *dspEntry) {
	if i := slices.Index(c.dsps, d); i >= 0 {
		c.dsps = slices.Delete(c.dsps, i, i+1)
	}
	d.removed.Store(true)
	e.release(d.handle, d)
}

// freeChannel destroys c. The producer is closed and FREE syncs fire once no
// pull is running. Called with e.mu held.
func (e *Engine) freeChannel(c *channel) events {
	if c.freed {
		return nil
	}
	c.freed = true
	c.state = native.ActiveStopped
	c.player = nil
	c.peek = nil
	e.release(c.handle, c)

	for _, d := range c.dsps {
		d.removed.Store(true)
		e.release(d.handle, d)
	}
	c.dsps = nil

	if s := c.sample; s != nil {
		if i := slices.Index(s.channels, c); i >= 0 {
			s.channels = slices.Delete(s.channels, i, i+1)
		}
	}

	if c.busy > 0 {
		return nil
	}
	return e.finalize(c)
}

// finalize is the second half of freeChannel. Called with e.mu held.
func (e *Engine) finalize(c *channel) events {
	c.finalized = true

	var ev events
	if prod := c.prod; prod != nil {
		ev = append(ev, prod.close)
		c.prod = nil
	}

	for _, enc := range slices.Clone(c.encoders) {
		ev = append(ev, e.freeEncoder(enc, true)...)
	}
	c.encoders = nil

	// FREE syncs go last so everything above is done when they run
	for _, s := range slices.Clone(c.syncs) {
		if s.typ.Condition() == native.SyncFree {
			ev = append(ev, e.fire(c, s, 0))
		}
	}
	for _, s := range c.syncs {
		e.release(s.handle, s)
	}
	c.syncs = nil
	return ev
}
