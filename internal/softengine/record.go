// SPDX-License-Identifier: EPL-2.0

package softengine

import (
	"sync"
	"time"

	"github.com/ik5/audbind/audio"
	"github.com/ik5/audbind/native"
	"github.com/ik5/audbind/utils"
	"go.uber.org/zap"
)

var emptyString = []byte{0}

type recordDevice struct {
	index  uint32
	name   []byte
	open   Input
	inited bool
}

func (r *recordDevice) info(info *native.DeviceInfo) {
	info.Name = &r.name[0]
	info.Driver = &emptyString[0]
	info.Flags = native.DeviceEnabled
	if r.index == 0 {
		info.Flags |= native.DeviceDefault
	}
	if r.inited {
		info.Flags |= native.DeviceInited
	}
}

// freeRecordDevice frees the device's recordings. Called with e.mu held.
func (e *Engine) freeRecordDevice(r *recordDevice) events {
	var ev events
	for _, obj := range e.snapshot() {
		if c, ok := obj.(*channel); ok && c.rec == r {
			ev = append(ev, e.freeChannel(c)...)
		}
	}
	r.inited = false

	if e.lastRecInit == r.index {
		e.lastRecInit = noDevice
		for _, other := range e.records {
			if other.inited {
				e.lastRecInit = other.index
				break
			}
		}
	}
	return ev
}

// recordProducer holds captured data for ChannelGetData when the recording
// has no RecordProc.
type recordProducer struct {
	mu    sync.Mutex
	queue []byte
	limit int

	stop chan struct{}
	once sync.Once
}

func (p *recordProducer) push(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.queue = append(p.queue, data...)
	if over := len(p.queue) - p.limit; p.limit > 0 && over > 0 {
		p.queue = p.queue[over:]
	}
}

func (p *recordProducer) read(buf []byte) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := copy(buf, p.queue)
	p.queue = p.queue[n:]
	return n, false
}

func (p *recordProducer) seek(int64) bool { return false }
func (p *recordProducer) length() int64   { return -1 }

func (p *recordProducer) close() {
	p.once.Do(func() { close(p.stop) })
}

// openRecording builds the capture pipeline for freq and chans.
func openRecording(open Input, freq, chans int) (audio.Source, native.Code) {
	src, err := open()
	if err != nil {
		return nil, native.ErrorNotAvail
	}
	if src, err = audio.MapChannels(src, chans); err != nil {
		return nil, native.ErrorFormat
	}
	if src.SampleRate() != freq {
		src = audio.NewResampler(src, freq)
	}
	return src, native.ErrorOK
}

func (e *Engine) record(c *channel, src audio.Source, prod *recordProducer, proc bool, user uintptr) {
	defer e.wg.Done()
	defer src.Close()

	ticker := time.NewTicker(e.recordPeriod)
	defer ticker.Stop()

	frames := max(1, int(int64(c.freq)*int64(e.recordPeriod)/int64(time.Second)))
	floats := make([]float32, frames*c.chans)
	buf := make([]byte, len(floats)*c.format.Size())

	for {
		select {
		case <-prod.stop:
			return
		case <-ticker.C:
		}

		e.mu.Lock()
		freed, state := c.freed, c.state
		e.mu.Unlock()
		if freed {
			return
		}
		if state != native.ActivePlaying {
			continue
		}

		n, err := src.ReadSamples(floats)
		size := utils.EncodePCM(buf, floats[:n], c.format)
		more := true
		if size > 0 {
			more = e.deliver(c, buf[:size], prod, proc, user)
		}
		if err != nil || !more {
			if err != nil {
				e.log.Debug("recording input ended", zap.Uint32("channel", c.handle), zap.Error(err))
			}
			e.mu.Lock()
			c.state = native.ActiveStopped
			e.mu.Unlock()
			return
		}
	}
}

// deliver runs captured data through the channel and hands it to the
// RecordProc or the queue. It reports whether recording continues.
func (e *Engine) deliver(c *channel, data []byte, prod *recordProducer, proc bool, user uintptr) bool {
	e.mu.Lock()
	if c.freed {
		e.mu.Unlock()
		return false
	}
	c.busy++
	e.mu.Unlock()

	e.process(c, data)

	more := true
	if proc {
		if d := e.dispatcher(); d != nil {
			more = d.RecordProc(c.handle, data, user)
		}
	} else {
		prod.push(data)
	}

	e.mu.Lock()
	ev := e.advance(c, int64(len(data)))
	c.busy--
	if c.freed && c.busy == 0 && !c.finalized {
		ev = append(ev, e.finalize(c)...)
	}
	e.mu.Unlock()

	ev.run()
	return more
}
