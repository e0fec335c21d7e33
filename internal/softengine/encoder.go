// SPDX-License-Identifier: EPL-2.0

package softengine

import (
	"os"
	"slices"
	"sync"

	"github.com/ik5/audbind/formats/wav"
	"github.com/ik5/audbind/native"
	"github.com/ik5/audbind/utils"
	"go.uber.org/zap"
)

// encoder writes a channel's processed data as 16-bit PCM WAV, to a file, to
// the dispatcher's EncodeProc, or both.
type encoder struct {
	handle uint32
	ch     *channel
	flags  native.EncodeFlags
	chans  int
	proc   bool
	user   uintptr

	notify     bool
	notifyUser uintptr

	mu         sync.Mutex
	file       *os.File
	writer     *wav.FileWriter
	headerSent bool
	closed     bool
	floats     []float32
	out        []byte
}

func (enc *encoder) feed(e *Engine, c *channel, data []byte) {
	enc.mu.Lock()
	if enc.closed {
		enc.mu.Unlock()
		return
	}

	if cap(enc.floats) < len(data) {
		enc.floats = make([]float32, len(data))
	}
	n := utils.DecodePCM(enc.floats[:cap(enc.floats)], data, c.format)
	floats := enc.floats[:n]
	if enc.chans == 1 && c.chans > 1 {
		floats = downmix(floats, c.chans)
	}

	if enc.writer != nil {
		if err := enc.writer.WriteSamples(floats); err != nil {
			e.log.Warn("encoder write", zap.Uint32("encoder", enc.handle), zap.Error(err))
		}
	}

	var out []byte
	if enc.proc {
		enc.out = enc.out[:0]
		if !enc.headerSent && enc.flags&native.EncodeNoHead == 0 {
			h := wav.Header{SampleRate: c.freq, Channels: enc.chans, BitDepth: 16, DataSize: wav.UnknownSize}
			enc.out = append(enc.out, h.Bytes()...)
		}
		enc.headerSent = true

		start := len(enc.out)
		enc.out = slices.Grow(enc.out, len(floats)*2)[:start+len(floats)*2]
		utils.EncodePCM(enc.out[start:], floats, utils.PCM16)
		out = enc.out
	}
	enc.mu.Unlock()

	if out != nil {
		if d := e.dispatcher(); d != nil {
			d.EncodeProc(enc.handle, c.handle, out, enc.user)
		}
	}
}

func downmix(in []float32, chans int) []float32 {
	frames := len(in) / chans
	for f := range frames {
		var sum float32
		for c := range chans {
			sum += in[f*chans+c]
		}
		in[f] = sum / float32(chans)
	}
	return in[:frames]
}

func (enc *encoder) close(e *Engine) {
	enc.mu.Lock()
	defer enc.mu.Unlock()

	if enc.closed {
		return
	}
	enc.closed = true

	if enc.writer != nil {
		if err := enc.writer.Close(); err != nil {
			e.log.Warn("finishing encoder output", zap.Uint32("encoder", enc.handle), zap.Error(err))
		}
	}
	if enc.file != nil {
		_ = enc.file.Close()
	}
}

// freeEncoder removes enc. Only encoders freed along with their channel send
// the FREE notification. Called with e.mu held.
func (e *Engine) freeEncoder(enc *encoder, auto bool) events {
	if i := slices.Index(enc.ch.encoders, enc); i >= 0 {
		enc.ch.encoders = slices.Delete(enc.ch.encoders, i, i+1)
	}
	e.release(enc.handle, enc)

	ev := events{func() { enc.close(e) }}
	if auto && enc.notify {
		handle, user := enc.handle, enc.notifyUser
		ev = append(ev, func() {
			if d := e.dispatcher(); d != nil {
				d.EncodeNotifyProc(handle, native.EncodeNotifyFree, user)
			}
		})
	}
	return ev
}
