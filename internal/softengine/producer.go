// SPDX-License-Identifier: EPL-2.0

package softengine

import (
	"errors"
	"io"
	"sync"

	"github.com/ik5/audbind/audio"
	"github.com/ik5/audbind/native"
	"github.com/ik5/audbind/utils"
)

// producer is the source of a channel's data in the channel's own format.
type producer interface {
	// read fills buf with whole samples. end reports that no more data will
	// follow the returned bytes.
	read(buf []byte) (n int, end bool)
	// seek moves to a byte position. It reports false when the producer
	// cannot seek or pos is out of range.
	seek(pos int64) bool
	// length in bytes, or -1 when unknown.
	length() int64
	close()
}

// userProducer pulls data from the dispatcher's StreamProc.
type userProducer struct {
	e      *Engine
	handle uint32
	user   uintptr
	done   bool
}

func (p *userProducer) read(buf []byte) (int, bool) {
	if p.done {
		return 0, true
	}

	d := p.e.dispatcher()
	if d == nil {
		return 0, false
	}

	ret := d.StreamProc(p.handle, buf, p.user)
	n := int(ret &^ native.StreamEnd)
	if ret == native.FailDWORD || n > len(buf) {
		n = len(buf)
	}
	if ret&native.StreamEnd != 0 && ret != native.FailDWORD {
		p.done = true
	}
	return n, p.done
}

func (p *userProducer) seek(int64) bool { return false }
func (p *userProducer) length() int64   { return -1 }
func (p *userProducer) close()          {}

// pushProducer plays data queued with StreamPutData.
type pushProducer struct {
	mu    sync.Mutex
	queue []byte
	ended bool
}

func (p *pushProducer) put(data []byte, end bool) (queued int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ended {
		return 0, false
	}
	p.queue = append(p.queue, data...)
	p.ended = end
	return len(p.queue), true
}

func (p *pushProducer) queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.queue)
}

func (p *pushProducer) read(buf []byte) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := copy(buf, p.queue)
	p.queue = p.queue[n:]
	return n, p.ended && len(p.queue) == 0
}

func (p *pushProducer) seek(int64) bool { return false }
func (p *pushProducer) length() int64   { return -1 }
func (p *pushProducer) close()          {}

// decoderProducer decodes lazily. Seeking reopens the decoder and skips ahead.
type decoderProducer struct {
	open      func() (audio.Source, error)
	closer    io.Closer
	src       audio.Source
	format    utils.SampleFormat
	chans     int
	frames    int64
	floatBuf  []float32
	exhausted bool
}

func newDecoderProducer(open func() (audio.Source, error), closer io.Closer, src audio.Source, format utils.SampleFormat) *decoderProducer {
	return &decoderProducer{
		open:   open,
		closer: closer,
		src:    src,
		format: format,
		chans:  src.Channels(),
		frames: sourceFrames(src),
	}
}

// sourceFrames asks src for its length when it knows it.
func sourceFrames(src audio.Source) int64 {
	switch s := src.(type) {
	case interface{ Frames() int64 }:
		return s.Frames()
	case interface{ Frames() int }:
		return int64(s.Frames())
	}
	return -1
}

func (p *decoderProducer) read(buf []byte) (int, bool) {
	if p.exhausted {
		return 0, true
	}

	samples := len(buf) / p.format.Size()
	samples -= samples % p.chans
	if cap(p.floatBuf) < samples {
		p.floatBuf = make([]float32, samples)
	}

	n, err := p.src.ReadSamples(p.floatBuf[:samples])
	written := utils.EncodePCM(buf, p.floatBuf[:n], p.format)
	if err != nil {
		// decoding errors end the stream like the end of the file does
		p.exhausted = true
	}
	return written, p.exhausted
}

func (p *decoderProducer) seek(pos int64) bool {
	frameBytes := int64(p.chans * p.format.Size())
	pos -= pos % frameBytes
	if pos < 0 || p.frames >= 0 && pos > p.frames*frameBytes {
		return false
	}

	src, err := p.open()
	if err != nil {
		return false
	}
	_ = p.src.Close()
	p.src = src
	p.exhausted = false

	skip := int(pos/frameBytes) * p.chans
	buf := make([]float32, min(skip, 4096*p.chans))
	for skip > 0 {
		n, err := src.ReadSamples(buf[:min(skip, len(buf))])
		skip -= n
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			p.exhausted = skip > 0
			break
		}
		if err != nil {
			return false
		}
	}
	return true
}

func (p *decoderProducer) length() int64 {
	if p.frames < 0 {
		return -1
	}
	return p.frames * int64(p.chans*p.format.Size())
}

func (p *decoderProducer) close() {
	_ = p.src.Close()
	if p.closer != nil {
		_ = p.closer.Close()
	}
}

// pcmProducer replays fully decoded samples, shared by samples and music.
type pcmProducer struct {
	src     *audio.MemorySource
	format  utils.SampleFormat
	scratch []float32
}

func newPCMProducer(data []float32, freq, chans int, format utils.SampleFormat) *pcmProducer {
	return &pcmProducer{src: audio.NewMemorySource(freq, chans, data), format: format}
}

func (p *pcmProducer) frameBytes() int { return p.src.Channels() * p.format.Size() }

func (p *pcmProducer) read(buf []byte) (int, bool) {
	samples := len(buf) / p.frameBytes() * p.src.Channels()
	if cap(p.scratch) < samples {
		p.scratch = make([]float32, samples)
	}

	n, _ := p.src.ReadSamples(p.scratch[:samples])
	size := utils.EncodePCM(buf, p.scratch[:n], p.format)
	return size, p.src.Position() >= p.src.Frames()
}

func (p *pcmProducer) seek(pos int64) bool {
	frame := pos / int64(p.frameBytes())
	if frame < 0 || frame > int64(p.src.Frames()) {
		return false
	}
	p.src.Seek(int(frame))
	return true
}

func (p *pcmProducer) length() int64 { return int64(p.src.Frames() * p.frameBytes()) }
func (p *pcmProducer) close()        {}
