// SPDX-License-Identifier: EPL-2.0

//go:build cgo

// Package malgoout plays a soft engine device through miniaudio.
package malgoout

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/ik5/audbind/internal/softengine"
)

// Output is a softengine.Output backed by the system's default playback
// device.
type Output struct {
	backends []malgo.Backend

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	buf    []float32
}

var _ softengine.Output = (*Output)(nil)

// New returns an Output. With no backends miniaudio picks one.
func New(backends ...malgo.Backend) *Output {
	return &Output{backends: backends}
}

func (o *Output) Start(freq, chans int, render softengine.RenderFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.device != nil {
		return nil
	}

	ctx, err := malgo.InitContext(o.backends, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init context: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = uint32(chans)
	cfg.SampleRate = uint32(freq)

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frames uint32) {
			n := int(frames) * chans
			if cap(o.buf) < n {
				o.buf = make([]float32, n)
			}
			buf := o.buf[:n]
			render(buf)
			for i, v := range buf {
				binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
			}
		},
	}

	device, err := malgo.InitDevice(ctx.Context, cfg, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("init device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("start device: %w", err)
	}

	o.ctx, o.device = ctx, device
	return nil
}

func (o *Output) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.device == nil {
		return nil
	}

	err := o.device.Stop()
	o.device.Uninit()
	if uerr := o.ctx.Uninit(); err == nil {
		err = uerr
	}
	o.ctx.Free()
	o.ctx, o.device = nil, nil

	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}
