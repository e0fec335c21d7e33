// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"sync/atomic"

	"github.com/ik5/audbind/native"
	"go.uber.org/zap"
)

// DeviceInfo describes an output or recording device.
type DeviceInfo struct {
	Index  int
	Name   string
	Driver string
	Flags  native.DeviceFlags
}

// Inited reports whether the device is initialized.
func (i DeviceInfo) Inited() bool { return i.Flags&native.DeviceInited != 0 }

func deviceInfo(index int, raw *native.DeviceInfo) DeviceInfo {
	return DeviceInfo{
		Index:  index,
		Name:   native.GoString(raw.Name),
		Driver: native.GoString(raw.Driver),
		Flags:  raw.Flags,
	}
}

// DeviceInfo describes output device index.
func (b *Binding) DeviceInfo(index int) (DeviceInfo, error) {
	var raw native.DeviceInfo
	err := b.call("GetDeviceInfo", func(t native.Thread) bool {
		return t.GetDeviceInfo(uint32(index), &raw)
	})
	if err != nil {
		return DeviceInfo{}, err
	}
	return deviceInfo(index, &raw), nil
}

// Devices lists the output devices, "no sound" (0) included.
func (b *Binding) Devices() ([]DeviceInfo, error) {
	return b.enumerate("GetDeviceInfo", func(t native.Thread, i uint32, raw *native.DeviceInfo) bool {
		return t.GetDeviceInfo(i, raw)
	})
}

// RecordDevices lists the recording devices.
func (b *Binding) RecordDevices() ([]DeviceInfo, error) {
	return b.enumerate("RecordGetDeviceInfo", func(t native.Thread, i uint32, raw *native.DeviceInfo) bool {
		return t.RecordGetDeviceInfo(i, raw)
	})
}

func (b *Binding) enumerate(op string, get func(t native.Thread, i uint32, raw *native.DeviceInfo) bool) ([]DeviceInfo, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	var infos []DeviceInfo
	var code native.Code
	b.lib.Call(func(t native.Thread) {
		for i := uint32(0); ; i++ {
			var raw native.DeviceInfo
			if !get(t, i, &raw) {
				code = t.ErrorGetCode()
				return
			}
			infos = append(infos, deviceInfo(int(i), &raw))
		}
	})

	// running off the end of the list is how enumeration stops
	if code != native.ErrorDevice && code != native.ErrorOK {
		return infos, b.fail(op, code)
	}
	return infos, nil
}

// lowestInited is the lowest numbered initialized output device.
func (b *Binding) lowestInited() (int, bool) {
	return firstInited(b.Devices())
}

func firstInited(devices []DeviceInfo, err error) (int, bool) {
	if err != nil {
		return 0, false
	}
	for _, d := range devices {
		if d.Inited() {
			return d.Index, true
		}
	}
	return 0, false
}

// Device is an output device by index. Every call made through it selects
// the device and runs on the same locked OS thread as that selection. Index
// 0 is "no sound". -1 is the default device for Init. Otherwise it is the
// device most recently initialized through the binding, or the lowest
// numbered one still initialized once that device is freed.
type Device struct {
	b     *Binding
	index int
}

// Device returns output device index. Nothing is checked until the device is
// used.
func (b *Binding) Device(index int) Device {
	return Device{b: b, index: index}
}

func (d Device) Index() int { return d.index }

// call runs fn with d selected. A failing selection is not reported on its
// own: the engine reports it from fn's call, which is what consults it.
func (d Device) call(op string, fn func(t native.Thread) bool) error {
	return d.b.call(op, func(t native.Thread) bool {
		d.b.selectDevice(t, d.index)
		return fn(t)
	})
}

// selectDevice makes index the frame's device. A negative index selects the
// default device explicitly: the OS thread may still carry the selection of
// an earlier frame made by another goroutine.
func (b *Binding) selectDevice(t native.Thread, index int) {
	if index < 0 {
		index = int(b.outDefault.Load())
	}
	if index >= 0 {
		t.SetDevice(uint32(index))
	}
}

// initialized makes index the default device.
func initialized(def *atomic.Int32, index int) {
	if index >= 0 {
		def.Store(int32(index))
	}
}

// released moves the default off a freed device, to the lowest numbered
// device still initialized.
func released(def *atomic.Int32, index uint32, lowest func() (int, bool)) {
	if def.Load() != int32(index) {
		return
	}
	next := int32(-1)
	if i, ok := lowest(); ok {
		next = int32(i)
	}
	def.CompareAndSwap(int32(index), next)
}

// Init initializes the device. The returned Device carries the index the
// engine picked when d is the default device.
func (d Device) Init(freq uint32, flags native.InitFlags) (Device, error) {
	index := d.index
	err := d.b.call("Init", func(t native.Thread) bool {
		if !t.Init(int32(d.index), freq, flags) {
			return false
		}
		if cur := t.GetDevice(); cur != native.FailDWORD {
			index = int(cur)
		}
		return true
	})
	if err != nil {
		return d, err
	}
	initialized(&d.b.outDefault, index)
	d.b.log.Debug("device initialized", zap.Int("device", index))
	return Device{b: d.b, index: index}, nil
}

// Free frees the device and every sample, stream and music created on it.
func (d Device) Free() error {
	index := uint32(d.index)
	err := d.call("Free", func(t native.Thread) bool {
		if cur := t.GetDevice(); cur != native.FailDWORD {
			index = cur
		}
		return t.Free()
	})
	if err != nil {
		return err
	}
	d.b.reg.destroyOwned(owner{index: index})
	released(&d.b.outDefault, index, d.b.lowestInited)
	return nil
}

// Info is the state of an initialized output device.
type Info struct {
	Freq      uint32
	Speakers  uint32
	MinRate   uint32
	MaxRate   uint32
	MinBuf    uint32
	Latency   uint32
	InitFlags native.InitFlags
}

func (d Device) Info() (Info, error) {
	var raw native.Info
	err := d.call("GetInfo", func(t native.Thread) bool { return t.GetInfo(&raw) })
	if err != nil {
		return Info{}, err
	}
	return Info{
		Freq:      raw.Freq,
		Speakers:  raw.Speakers,
		MinRate:   raw.MinRate,
		MaxRate:   raw.MaxRate,
		MinBuf:    raw.MinBuf,
		Latency:   raw.Latency,
		InitFlags: native.InitFlags(raw.InitFlags),
	}, nil
}

// SetVolume sets the output volume, 0 to 1.
func (d Device) SetVolume(volume float32) error {
	return d.call("SetVolume", func(t native.Thread) bool { return t.SetVolume(volume) })
}

func (d Device) Volume() (float32, error) {
	var v float32
	err := d.call("GetVolume", func(t native.Thread) bool {
		v = t.GetVolume()
		return v >= 0
	})
	return v, err
}

func (d Device) Start() error {
	return d.call("Start", func(t native.Thread) bool { return t.Start() })
}

// Stop stops the output and every channel playing on it.
func (d Device) Stop() error {
	return d.call("Stop", func(t native.Thread) bool { return t.Stop() })
}

// Pause pauses the output. Start resumes it.
func (d Device) Pause() error {
	return d.call("Pause", func(t native.Thread) bool { return t.Pause() })
}

// Factors3D are the device's 3D distance, rolloff and doppler factors.
type Factors3D struct {
	Distance float32
	Rolloff  float32
	Doppler  float32
}

// Set3DFactors applies f. A negative factor is left unchanged. The device
// must have been initialized with native.Device3D.
func (d Device) Set3DFactors(f Factors3D) error {
	return d.call("Set3DFactors", func(t native.Thread) bool {
		return t.Set3DFactors(f.Distance, f.Rolloff, f.Doppler)
	})
}

func (d Device) Get3DFactors() (Factors3D, error) {
	var f Factors3D
	err := d.call("Get3DFactors", func(t native.Thread) bool {
		return t.Get3DFactors(&f.Distance, &f.Rolloff, &f.Doppler)
	})
	return f, err
}

// Apply3D applies pending 3D changes.
func (d Device) Apply3D() error {
	return d.call("Apply3D", func(t native.Thread) bool {
		t.Apply3D()
		return true
	})
}

// SetEAXParameters sets the EAX environment. Engines without EAX report
// ErrNoEAX.
func (d Device) SetEAXParameters(env int32, vol, decay, damp float32) error {
	return d.call("SetEAXParameters", func(t native.Thread) bool {
		return t.SetEAXParameters(env, vol, decay, damp)
	})
}
