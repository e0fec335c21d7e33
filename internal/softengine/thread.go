// SPDX-License-Identifier: EPL-2.0

package softengine

import (
	"github.com/ik5/audbind/native"
	"go.uber.org/zap"
)

// thread is the state of one call frame: the selected devices and the last
// error, which is only ever read back on the same frame.
type thread struct {
	e      *Engine
	device uint32
	record uint32
	code   native.Code
}

var _ native.Thread = (*thread)(nil)

func (t *thread) fail(code native.Code) bool {
	t.code = code
	return false
}

func (t *thread) ok() bool {
	t.code = native.ErrorOK
	return true
}

func (t *thread) ErrorGetCode() native.Code { return t.code }

// dev resolves the frame's device. Nothing initialized at all is reported as
// such before the selection is judged. Called with e.mu held.
func (t *thread) dev() (*device, bool) {
	switch {
	case t.device == noDevice || !t.e.anyInited():
		return nil, t.fail(native.ErrorInit)
	case int(t.device) >= len(t.e.devices) || !t.e.devices[t.device].inited:
		return nil, t.fail(native.ErrorDevice)
	}
	return t.e.devices[t.device], true
}

func (t *thread) Init(device int32, freq uint32, flags native.InitFlags) bool {
	e := t.e
	e.mu.Lock()

	if device == -1 {
		device = 1
	}
	if device < 0 || int(device) >= len(e.devices) {
		e.mu.Unlock()
		return t.fail(native.ErrorDevice)
	}

	d := e.devices[device]
	if d.inited {
		e.mu.Unlock()
		return t.fail(native.ErrorAlready)
	}

	d.inited = true
	d.freq = defaultFreq
	if freq > 0 {
		d.freq = int(freq)
	}
	d.chans = 2
	if flags&native.DeviceMono != 0 {
		d.chans = 1
	}
	d.flags = flags
	d.volume = 1
	d.factors = [3]float32{1, 1, 1}

	var out Output
	if d.index != 0 {
		out = e.newOutput(int(d.index))
	}
	d.out = out
	d.running = true

	t.device = d.index
	e.lastInit = d.index
	freqHz, chans := d.freq, d.chans
	e.mu.Unlock()

	if out != nil {
		if err := out.Start(freqHz, chans, func(dst []float32) { e.mix(d, dst) }); err != nil {
			e.log.Warn("starting output", zap.Int32("device", device), zap.Error(err))
			e.mu.Lock()
			d.inited, d.running, d.out = false, false, nil
			e.mu.Unlock()
			return t.fail(native.ErrorDriver)
		}
	}
	return t.ok()
}

func (t *thread) Free() bool {
	e := t.e
	e.mu.Lock()
	d, ok := t.dev()
	if !ok {
		e.mu.Unlock()
		return false
	}
	ev := e.freeDevice(d)
	e.mu.Unlock()

	ev.run()
	return t.ok()
}

// SetDevice records the selection even when it is unusable, so the failure
// also surfaces from the next call that consults it.
func (t *thread) SetDevice(device uint32) bool {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	t.device = device
	if _, ok := t.dev(); !ok {
		return false
	}
	return t.ok()
}

func (t *thread) GetDevice() uint32 {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	d, ok := t.dev()
	if !ok {
		return native.FailDWORD
	}
	t.ok()
	return d.index
}

func (t *thread) GetDeviceInfo(device uint32, info *native.DeviceInfo) bool {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	if int(device) >= len(t.e.devices) {
		return t.fail(native.ErrorDevice)
	}
	if info == nil {
		return t.fail(native.ErrorIllParam)
	}
	t.e.devices[device].info(info)
	return t.ok()
}

func (t *thread) GetInfo(info *native.Info) bool {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	d, ok := t.dev()
	if !ok {
		return false
	}
	if info == nil {
		return t.fail(native.ErrorIllParam)
	}

	*info = native.Info{
		MinRate:   8000,
		MaxRate:   192000,
		MinBuf:    t.e.config[native.ConfigDevBuffer],
		Latency:   t.e.config[native.ConfigDevBuffer],
		InitFlags: uint32(d.flags),
		Speakers:  uint32(d.chans),
		Freq:      uint32(d.freq),
	}
	return t.ok()
}

// Start resumes a device stopped by Stop or Pause.
func (t *thread) Start() bool {
	e := t.e
	e.mu.Lock()
	d, ok := t.dev()
	if !ok {
		e.mu.Unlock()
		return false
	}
	if d.running || d.out == nil {
		d.running = true
		e.mu.Unlock()
		return t.ok()
	}
	d.running = true
	out, freq, chans := d.out, d.freq, d.chans
	e.mu.Unlock()

	if err := out.Start(freq, chans, func(dst []float32) { e.mix(d, dst) }); err != nil {
		return t.fail(native.ErrorStart)
	}
	return t.ok()
}

func (t *thread) Stop() bool { return t.halt() }

func (t *thread) Pause() bool { return t.halt() }

func (t *thread) halt() bool {
	e := t.e
	e.mu.Lock()
	d, ok := t.dev()
	if !ok {
		e.mu.Unlock()
		return false
	}
	wasRunning := d.running
	d.running = false
	out := d.out
	e.mu.Unlock()

	if wasRunning && out != nil {
		if err := out.Stop(); err != nil {
			e.log.Warn("stopping output", zap.Uint32("device", d.index), zap.Error(err))
		}
	}
	return t.ok()
}

func (t *thread) SetVolume(volume float32) bool {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	d, ok := t.dev()
	if !ok {
		return false
	}
	if volume < 0 || volume > 1 {
		return t.fail(native.ErrorIllParam)
	}
	d.volume = volume
	return t.ok()
}

func (t *thread) GetVolume() float32 {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	d, ok := t.dev()
	if !ok {
		return -1
	}
	t.ok()
	return d.volume
}

func (t *thread) Set3DFactors(distf, rollf, doppf float32) bool {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	d, ok := t.dev()
	if !ok {
		return false
	}
	if d.flags&native.Device3D == 0 {
		return t.fail(native.ErrorNo3D)
	}

	// negative values leave a factor unchanged
	for i, v := range [3]float32{distf, rollf, doppf} {
		if v >= 0 {
			d.factors[i] = v
		}
	}
	return t.ok()
}

func (t *thread) Get3DFactors(distf, rollf, doppf *float32) bool {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	d, ok := t.dev()
	if !ok {
		return false
	}
	if d.flags&native.Device3D == 0 {
		return t.fail(native.ErrorNo3D)
	}

	for i, p := range [3]*float32{distf, rollf, doppf} {
		if p != nil {
			*p = d.factors[i]
		}
	}
	return t.ok()
}

func (t *thread) Apply3D() {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	if _, ok := t.dev(); ok {
		t.ok()
	}
}

// SetEAXParameters always fails: there is no EAX support.
func (t *thread) SetEAXParameters(int32, float32, float32, float32) bool {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	if _, ok := t.dev(); !ok {
		return false
	}
	return t.fail(native.ErrorNoEAX)
}

func (t *thread) SetConfig(option native.ConfigOption, value uint32) bool {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	if _, ok := t.e.config[option]; !ok {
		return t.fail(native.ErrorIllType)
	}
	t.e.config[option] = value
	return t.ok()
}

func (t *thread) GetConfig(option native.ConfigOption) uint32 {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	v, ok := t.e.config[option]
	if !ok {
		t.fail(native.ErrorIllType)
		return native.FailDWORD
	}
	t.ok()
	return v
}

func (t *thread) RecordInit(device int32) bool {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	if device == -1 {
		device = 0
	}
	if device < 0 || int(device) >= len(t.e.records) {
		return t.fail(native.ErrorDevice)
	}

	r := t.e.records[device]
	if r.inited {
		return t.fail(native.ErrorAlready)
	}
	r.inited = true
	t.record = r.index
	t.e.lastRecInit = r.index
	return t.ok()
}

// rec resolves the frame's recording device. Called with e.mu held.
func (t *thread) rec() (*recordDevice, bool) {
	switch {
	case t.record == noDevice:
		return nil, t.fail(native.ErrorInit)
	case int(t.record) >= len(t.e.records):
		return nil, t.fail(native.ErrorDevice)
	}

	r := t.e.records[t.record]
	if !r.inited {
		return nil, t.fail(native.ErrorInit)
	}
	return r, true
}

func (t *thread) RecordFree() bool {
	e := t.e
	e.mu.Lock()
	r, ok := t.rec()
	if !ok {
		e.mu.Unlock()
		return false
	}
	ev := e.freeRecordDevice(r)
	e.mu.Unlock()

	ev.run()
	return t.ok()
}

func (t *thread) RecordSetDevice(device uint32) bool {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	t.record = device
	if _, ok := t.rec(); !ok {
		return false
	}
	return t.ok()
}

func (t *thread) RecordGetDevice() uint32 {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	r, ok := t.rec()
	if !ok {
		return native.FailDWORD
	}
	t.ok()
	return r.index
}

func (t *thread) RecordGetDeviceInfo(device uint32, info *native.DeviceInfo) bool {
	t.e.mu.Lock()
	defer t.e.mu.Unlock()

	if int(device) >= len(t.e.records) {
		return t.fail(native.ErrorDevice)
	}
	if info == nil {
		return t.fail(native.ErrorIllParam)
	}
	t.e.records[device].info(info)
	return t.ok()
}

func (t *thread) RecordStart(freq, chans uint32, flags native.RecordFlags, proc bool, user uintptr) uint32 {
	e := t.e
	e.mu.Lock()
	r, ok := t.rec()
	if !ok {
		e.mu.Unlock()
		return 0
	}
	if freq == 0 {
		freq = defaultFreq
	}
	if chans == 0 {
		chans = 2
	}
	if chans > 8 {
		e.mu.Unlock()
		t.fail(native.ErrorFormat)
		return 0
	}
	open := r.open
	limitMs := e.config[native.ConfigRecBuffer]
	e.mu.Unlock()

	src, code := openRecording(open, int(freq), int(chans))
	if code != native.ErrorOK {
		t.fail(code)
		return 0
	}

	c := &channel{
		kind:  kindRecord,
		rec:   r,
		ctype: native.CTypeRecord,
		freq:  int(freq),
		chans: int(chans),
		flags: uint32(flags),
		state: native.ActivePlaying,
	}
	c.format = formatOf(c.flags)
	prod := &recordProducer{
		stop:  make(chan struct{}),
		limit: int(int64(limitMs) * int64(freq) / 1000 * int64(c.frameBytes())),
	}
	c.prod = prod
	if flags&native.RecordPause != 0 {
		c.state = native.ActivePaused
	}

	e.mu.Lock()
	if !r.inited || e.closed {
		e.mu.Unlock()
		_ = src.Close()
		t.fail(native.ErrorInit)
		return 0
	}
	h := e.newChannel(c)
	e.wg.Add(1)
	e.mu.Unlock()

	go e.record(c, src, prod, proc, user)

	t.ok()
	return h
}
