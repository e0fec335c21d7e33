// SPDX-License-Identifier: EPL-2.0

package softengine

import (
	"errors"
	"io"

	"github.com/ik5/audbind/audio"
	"github.com/ik5/audbind/native"
	"github.com/ik5/audbind/utils"
	"go.uber.org/zap"
)

const defaultFreq = 44100

type device struct {
	index  uint32
	name   []byte
	driver []byte

	inited  bool
	running bool
	freq    int
	chans   int
	flags   native.InitFlags
	volume  float32
	factors [3]float32
	out     Output
}

func newDevice(index uint32, name, driver string) *device {
	return &device{
		index:  index,
		name:   native.EncodeString(name, false),
		driver: native.EncodeString(driver, false),
	}
}

func (d *device) info(info *native.DeviceInfo) {
	info.Name = &d.name[0]
	info.Driver = &d.driver[0]
	info.Flags = native.DeviceEnabled
	if d.index == 1 {
		info.Flags |= native.DeviceDefault
	}
	if d.inited {
		info.Flags |= native.DeviceInited
	}
}

// freeDevice releases every channel and sample of d. Called with e.mu held.
func (e *Engine) freeDevice(d *device) events {
	var ev events

	if out := d.out; out != nil && d.running {
		ev = append(ev, func() {
			if err := out.Stop(); err != nil {
				e.log.Warn("stopping output", zap.Uint32("device", d.index), zap.Error(err))
			}
		})
	}

	for _, obj := range e.snapshot() {
		switch o := obj.(type) {
		case *channel:
			if o.dev == d && o.sample == nil {
				ev = append(ev, e.freeChannel(o)...)
			}
		case *sample:
			if o.dev == d {
				ev = append(ev, e.freeSample(o)...)
			}
		}
	}

	d.inited = false
	d.running = false
	d.out = nil

	if e.lastInit == d.index {
		e.lastInit = noDevice
		for _, other := range e.devices {
			if other.inited {
				e.lastInit = other.index
				break
			}
		}
	}
	return ev
}

// snapshot lists live objects in handle order.
func (e *Engine) snapshot() []any {
	objs := make([]any, 0, len(e.objects))
	for h := uint32(1); h <= e.next; h++ {
		if o, ok := e.objects[h]; ok {
			objs = append(objs, o)
		}
	}
	return objs
}

// mix renders the device's playing channels into dst.
func (e *Engine) mix(d *device, dst []float32) {
	clear(dst)

	e.mu.Lock()
	if !d.inited || !d.running {
		e.mu.Unlock()
		return
	}
	var playing []*channel
	for _, obj := range e.snapshot() {
		if c, ok := obj.(*channel); ok && c.dev == d && !c.decode && c.state == native.ActivePlaying {
			playing = append(playing, c)
		}
	}
	volume := d.volume
	chans := d.chans
	freq := d.freq
	e.mu.Unlock()

	tmp := make([]float32, len(dst))
	for _, c := range playing {
		e.mixChannel(c, tmp, freq, chans, dst)
	}

	for i := range dst {
		dst[i] = utils.Clamp(dst[i] * volume)
	}
}

func (e *Engine) mixChannel(c *channel, tmp []float32, freq, chans int, dst []float32) {
	e.mu.Lock()
	player := c.player
	if player == nil {
		p, err := e.newPlayer(c, freq, chans)
		if err != nil {
			e.mu.Unlock()
			e.log.Warn("building channel pipeline", zap.Uint32("channel", c.handle), zap.Error(err))
			return
		}
		c.player = p
		player = p
	}
	vol, pan := c.volume, c.pan
	muted := c.flags&uint32(native.ChannelMuteMax) != 0
	e.mu.Unlock()

	n, err := player.ReadSamples(tmp)
	if errors.Is(err, io.EOF) {
		e.mu.Lock()
		if c.player == player {
			// a starved push stream ends the pipeline but not the channel
			c.player = nil
		}
		e.mu.Unlock()
	} else if err != nil {
		e.log.Warn("mixing channel", zap.Uint32("channel", c.handle), zap.Error(err))
	}
	if muted {
		return
	}

	left, right := utils.Pan(pan)
	for i := range n {
		g := vol
		if chans == 2 {
			if i%2 == 0 {
				g *= left
			} else {
				g *= right
			}
		}
		dst[i] += tmp[i] * g
	}
}

// newPlayer adapts c to the device format. Called with e.mu held.
func (e *Engine) newPlayer(c *channel, freq, chans int) (audio.Source, error) {
	rate := c.freq
	if c.rateAttr > 0 {
		rate = int(c.rateAttr)
	}

	var src audio.Source = &channelSource{e: e, c: c, rate: rate}
	src, err := audio.MapChannels(src, chans)
	if err != nil {
		return nil, err
	}
	if rate != freq {
		src = audio.NewResampler(src, freq)
	}
	return src, nil
}

// channelSource reads a channel's data path as float32.
type channelSource struct {
	e    *Engine
	c    *channel
	rate int
	buf  []byte
}

func (s *channelSource) SampleRate() int { return s.rate }
func (s *channelSource) Channels() int   { return s.c.chans }
func (s *channelSource) BufSize() int    { return 1024 * s.c.chans }
func (s *channelSource) Close() error    { return nil }

func (s *channelSource) ReadSamples(dst []float32) (int, error) {
	samples := len(dst) - len(dst)%s.c.chans
	size := samples * s.c.format.Size()
	if cap(s.buf) < size {
		s.buf = make([]byte, size)
	}

	n, ended := s.e.pull(s.c, s.buf[:size])
	got := utils.DecodePCM(dst, s.buf[:n], s.c.format)
	if got == 0 && ended {
		return 0, io.EOF
	}
	return got, nil
}
