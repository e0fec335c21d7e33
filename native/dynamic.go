// SPDX-License-Identifier: EPL-2.0

//go:build darwin || linux

package native

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/purego"
)

// ErrNotLoaded is returned by Open when the engine library cannot be loaded.
var ErrNotLoaded = errors.New("native: engine library not loaded")

type openOptions struct {
	encoderPath string
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

// WithEncoder also loads the encoder add-on from path. Without it the Encode*
// entry points fail with ErrorNotAvail.
func WithEncoder(path string) OpenOption {
	return func(o *openOptions) {
		o.encoderPath = path
	}
}

type dispatcherBox struct {
	d Dispatcher
}

// The engine only ever sees these function pointers. They are created once per
// process and route to whichever Dispatcher was installed last.
var (
	current     atomic.Pointer[dispatcherBox]
	trampOnce   sync.Once
	streamTramp uintptr
	dspTramp    uintptr
	syncTramp   uintptr
	dlTramp     uintptr
	recTramp    uintptr
	encTramp    uintptr
	notifyTramp uintptr
)

func dispatcher() Dispatcher {
	if b := current.Load(); b != nil {
		return b.d
	}
	return nil
}

func bytesAt(p unsafe.Pointer, n uintptr) []byte {
	if p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(p), int(n))
}

func initTrampolines() {
	trampOnce.Do(func() {
		streamTramp = purego.NewCallback(func(h uintptr, buf unsafe.Pointer, length, user uintptr) uintptr {
			d := dispatcher()
			if d == nil {
				return 0
			}
			return uintptr(d.StreamProc(uint32(h), bytesAt(buf, length), user))
		})
		dspTramp = purego.NewCallback(func(h, ch uintptr, buf unsafe.Pointer, length, user uintptr) uintptr {
			if d := dispatcher(); d != nil {
				d.DSPProc(uint32(h), uint32(ch), bytesAt(buf, length), user)
			}
			return 0
		})
		syncTramp = purego.NewCallback(func(h, ch, data, user uintptr) uintptr {
			if d := dispatcher(); d != nil {
				d.SyncProc(uint32(h), uint32(ch), uint32(data), user)
			}
			return 0
		})
		dlTramp = purego.NewCallback(func(buf unsafe.Pointer, length, user uintptr) uintptr {
			if d := dispatcher(); d != nil {
				d.DownloadProc(bytesAt(buf, length), user)
			}
			return 0
		})
		recTramp = purego.NewCallback(func(h uintptr, buf unsafe.Pointer, length, user uintptr) uintptr {
			d := dispatcher()
			if d == nil || d.RecordProc(uint32(h), bytesAt(buf, length), user) {
				return 1
			}
			return 0
		})
		encTramp = purego.NewCallback(func(h, ch uintptr, buf unsafe.Pointer, length, user uintptr) uintptr {
			if d := dispatcher(); d != nil {
				d.EncodeProc(uint32(h), uint32(ch), bytesAt(buf, length), user)
			}
			return 0
		})
		notifyTramp = purego.NewCallback(func(h, status, user uintptr) uintptr {
			if d := dispatcher(); d != nil {
				d.EncodeNotifyProc(uint32(h), EncodeNotify(status), user)
			}
			return 0
		})
	})
}

type dynLib struct {
	handle    uintptr
	encHandle uintptr

	errorGetCode     func() int32
	init             func(device int32, freq, flags uint32, win, clsid uintptr) int32
	free             func() int32
	setDevice        func(device uint32) int32
	getDevice        func() uint32
	getDeviceInfo    func(device uint32, info *DeviceInfo) int32
	getInfo          func(info *Info) int32
	start            func() int32
	stop             func() int32
	pause            func() int32
	setVolume        func(v float32) int32
	getVolume        func() float32
	set3DFactors     func(distf, rollf, doppf float32) int32
	get3DFactors     func(distf, rollf, doppf *float32) int32
	apply3D          func()
	setEAXParameters func(env int32, vol, decay, damp float32) int32
	setConfig        func(option, value uint32) int32
	getConfig        func(option uint32) uint32

	streamCreate     func(freq, chans, flags uint32, proc, user uintptr) uint32
	streamCreateFile func(mem int32, file unsafe.Pointer, offset, length uint64, flags uint32) uint32
	streamCreateURL  func(url unsafe.Pointer, offset, flags uint32, proc, user uintptr) uint32
	streamPutData    func(h uint32, buf unsafe.Pointer, length uint32) uint32
	streamFree       func(h uint32) int32

	sampleLoad       func(mem int32, file unsafe.Pointer, offset uint64, length, max, flags uint32) uint32
	sampleGetChannel func(h, flags uint32) uint32
	sampleFree       func(h uint32) int32
	musicLoad        func(mem int32, file unsafe.Pointer, offset uint64, length, flags, freq uint32) uint32
	musicFree        func(h uint32) int32

	recordInit          func(device int32) int32
	recordFree          func() int32
	recordSetDevice     func(device uint32) int32
	recordGetDevice     func() uint32
	recordGetDeviceInfo func(device uint32, info *DeviceInfo) int32
	recordStart         func(freq, chans, flags uint32, proc, user uintptr) uint32

	channelPlay         func(h uint32, restart int32) int32
	channelStop         func(h uint32) int32
	channelPause        func(h uint32) int32
	channelIsActive     func(h uint32) uint32
	channelGetInfo      func(h uint32, info *ChannelInfo) int32
	channelGetDevice    func(h uint32) uint32
	channelGetData      func(h uint32, buf unsafe.Pointer, length uint32) uint32
	channelGetPosition  func(h, mode uint32) uint64
	channelSetPosition  func(h uint32, pos uint64, mode uint32) int32
	channelGetLength    func(h, mode uint32) uint64
	channelGetAttribute func(h, attrib uint32, value *float32) int32
	channelSetAttribute func(h, attrib uint32, value float32) int32
	channelFlags        func(h, flags, mask uint32) uint32
	channelSetDSP       func(h uint32, proc, user uintptr, priority int32) uint32
	channelRemoveDSP    func(h, dsp uint32) int32
	channelSetSync      func(h, typ uint32, param uint64, proc, user uintptr) uint32
	channelRemoveSync   func(h, sync uint32) int32

	encodeStart     func(h uint32, cmdline unsafe.Pointer, flags uint32, proc, user uintptr) uint32
	encodeStop      func(h uint32) int32
	encodeSetNotify func(h uint32, proc, user uintptr) int32
	encodeIsActive  func(h uint32) uint32
}

// Open loads the engine shared library at path and binds its entry points.
func Open(path string, opts ...OpenOption) (Library, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotLoaded, path, err)
	}

	initTrampolines()

	l := &dynLib{handle: handle}
	l.bindCore()

	if o.encoderPath != "" {
		enc, err := purego.Dlopen(o.encoderPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			_ = purego.Dlclose(handle)
			return nil, fmt.Errorf("%w: %s: %w", ErrNotLoaded, o.encoderPath, err)
		}
		l.encHandle = enc
		l.bindEncoder()
	}

	return l, nil
}

func (l *dynLib) bindCore() {
	h := l.handle
	purego.RegisterLibFunc(&l.errorGetCode, h, "BASS_ErrorGetCode")
	purego.RegisterLibFunc(&l.init, h, "BASS_Init")
	purego.RegisterLibFunc(&l.free, h, "BASS_Free")
	purego.RegisterLibFunc(&l.setDevice, h, "BASS_SetDevice")
	purego.RegisterLibFunc(&l.getDevice, h, "BASS_GetDevice")
	purego.RegisterLibFunc(&l.getDeviceInfo, h, "BASS_GetDeviceInfo")
	purego.RegisterLibFunc(&l.getInfo, h, "BASS_GetInfo")
	purego.RegisterLibFunc(&l.start, h, "BASS_Start")
	purego.RegisterLibFunc(&l.stop, h, "BASS_Stop")
	purego.RegisterLibFunc(&l.pause, h, "BASS_Pause")
	purego.RegisterLibFunc(&l.setVolume, h, "BASS_SetVolume")
	purego.RegisterLibFunc(&l.getVolume, h, "BASS_GetVolume")
	purego.RegisterLibFunc(&l.set3DFactors, h, "BASS_Set3DFactors")
	purego.RegisterLibFunc(&l.get3DFactors, h, "BASS_Get3DFactors")
	purego.RegisterLibFunc(&l.apply3D, h, "BASS_Apply3D")
	purego.RegisterLibFunc(&l.setEAXParameters, h, "BASS_SetEAXParameters")
	purego.RegisterLibFunc(&l.setConfig, h, "BASS_SetConfig")
	purego.RegisterLibFunc(&l.getConfig, h, "BASS_GetConfig")

	purego.RegisterLibFunc(&l.streamCreate, h, "BASS_StreamCreate")
	purego.RegisterLibFunc(&l.streamCreateFile, h, "BASS_StreamCreateFile")
	purego.RegisterLibFunc(&l.streamCreateURL, h, "BASS_StreamCreateURL")
	purego.RegisterLibFunc(&l.streamPutData, h, "BASS_StreamPutData")
	purego.RegisterLibFunc(&l.streamFree, h, "BASS_StreamFree")

	purego.RegisterLibFunc(&l.sampleLoad, h, "BASS_SampleLoad")
	purego.RegisterLibFunc(&l.sampleGetChannel, h, "BASS_SampleGetChannel")
	purego.RegisterLibFunc(&l.sampleFree, h, "BASS_SampleFree")
	purego.RegisterLibFunc(&l.musicLoad, h, "BASS_MusicLoad")
	purego.RegisterLibFunc(&l.musicFree, h, "BASS_MusicFree")

	purego.RegisterLibFunc(&l.recordInit, h, "BASS_RecordInit")
	purego.RegisterLibFunc(&l.recordFree, h, "BASS_RecordFree")
	purego.RegisterLibFunc(&l.recordSetDevice, h, "BASS_RecordSetDevice")
	purego.RegisterLibFunc(&l.recordGetDevice, h, "BASS_RecordGetDevice")
	purego.RegisterLibFunc(&l.recordGetDeviceInfo, h, "BASS_RecordGetDeviceInfo")
	purego.RegisterLibFunc(&l.recordStart, h, "BASS_RecordStart")

	purego.RegisterLibFunc(&l.channelPlay, h, "BASS_ChannelPlay")
	purego.RegisterLibFunc(&l.channelStop, h, "BASS_ChannelStop")
	purego.RegisterLibFunc(&l.channelPause, h, "BASS_ChannelPause")
	purego.RegisterLibFunc(&l.channelIsActive, h, "BASS_ChannelIsActive")
	purego.RegisterLibFunc(&l.channelGetInfo, h, "BASS_ChannelGetInfo")
	purego.RegisterLibFunc(&l.channelGetDevice, h, "BASS_ChannelGetDevice")
	purego.RegisterLibFunc(&l.channelGetData, h, "BASS_ChannelGetData")
	purego.RegisterLibFunc(&l.channelGetPosition, h, "BASS_ChannelGetPosition")
	purego.RegisterLibFunc(&l.channelSetPosition, h, "BASS_ChannelSetPosition")
	purego.RegisterLibFunc(&l.channelGetLength, h, "BASS_ChannelGetLength")
	purego.RegisterLibFunc(&l.channelGetAttribute, h, "BASS_ChannelGetAttribute")
	purego.RegisterLibFunc(&l.channelSetAttribute, h, "BASS_ChannelSetAttribute")
	purego.RegisterLibFunc(&l.channelFlags, h, "BASS_ChannelFlags")
	purego.RegisterLibFunc(&l.channelSetDSP, h, "BASS_ChannelSetDSP")
	purego.RegisterLibFunc(&l.channelRemoveDSP, h, "BASS_ChannelRemoveDSP")
	purego.RegisterLibFunc(&l.channelSetSync, h, "BASS_ChannelSetSync")
	purego.RegisterLibFunc(&l.channelRemoveSync, h, "BASS_ChannelRemoveSync")
}

// bindEncoder binds the add-on entry points that exist. Older add-on builds
// lack some of them.
func (l *dynLib) bindEncoder() {
	bind := func(fptr any, name string) {
		sym, err := purego.Dlsym(l.encHandle, name)
		if err != nil || sym == 0 {
			return
		}
		purego.RegisterFunc(fptr, sym)
	}
	bind(&l.encodeStart, "BASS_Encode_Start")
	bind(&l.encodeStop, "BASS_Encode_Stop")
	bind(&l.encodeSetNotify, "BASS_Encode_SetNotify")
	bind(&l.encodeIsActive, "BASS_Encode_IsActive")
}

func (l *dynLib) Call(fn func(t Thread)) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	fn(&dynThread{l: l})
}

func (l *dynLib) SetDispatcher(d Dispatcher) {
	if d == nil {
		current.Store(nil)
		return
	}
	current.Store(&dispatcherBox{d: d})
}

func (l *dynLib) Close() error {
	var err error
	if l.encHandle != 0 {
		err = purego.Dlclose(l.encHandle)
	}
	return errors.Join(err, purego.Dlclose(l.handle))
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func procOf(ok bool, tramp uintptr) uintptr {
	if ok {
		return tramp
	}
	return 0
}

// dynThread forwards to the engine. override replaces the next ErrorGetCode
// result when a call failed before reaching the engine.
type dynThread struct {
	l        *dynLib
	override Code
}

func (t *dynThread) ErrorGetCode() Code {
	if c := t.override; c != ErrorOK {
		t.override = ErrorOK
		return c
	}
	return Code(t.l.errorGetCode())
}

func (t *dynThread) Init(device int32, freq uint32, flags InitFlags) bool {
	return t.l.init(device, freq, uint32(flags), 0, 0) != 0
}

func (t *dynThread) Free() bool                { return t.l.free() != 0 }
func (t *dynThread) SetDevice(dev uint32) bool { return t.l.setDevice(dev) != 0 }
func (t *dynThread) GetDevice() uint32         { return t.l.getDevice() }

func (t *dynThread) GetDeviceInfo(dev uint32, info *DeviceInfo) bool {
	return t.l.getDeviceInfo(dev, info) != 0
}

func (t *dynThread) GetInfo(info *Info) bool         { return t.l.getInfo(info) != 0 }
func (t *dynThread) Start() bool                     { return t.l.start() != 0 }
func (t *dynThread) Stop() bool                      { return t.l.stop() != 0 }
func (t *dynThread) Pause() bool                     { return t.l.pause() != 0 }
func (t *dynThread) SetVolume(v float32) bool        { return t.l.setVolume(v) != 0 }
func (t *dynThread) GetVolume() float32              { return t.l.getVolume() }
func (t *dynThread) Apply3D()                        { t.l.apply3D() }
func (t *dynThread) GetConfig(o ConfigOption) uint32 { return t.l.getConfig(uint32(o)) }

func (t *dynThread) Set3DFactors(distf, rollf, doppf float32) bool {
	return t.l.set3DFactors(distf, rollf, doppf) != 0
}

func (t *dynThread) Get3DFactors(distf, rollf, doppf *float32) bool {
	return t.l.get3DFactors(distf, rollf, doppf) != 0
}

func (t *dynThread) SetEAXParameters(env int32, vol, decay, damp float32) bool {
	return t.l.setEAXParameters(env, vol, decay, damp) != 0
}

func (t *dynThread) SetConfig(o ConfigOption, value uint32) bool {
	return t.l.setConfig(uint32(o), value) != 0
}

func (t *dynThread) StreamCreate(freq, chans uint32, flags StreamFlags, proc StreamProc, user uintptr) uint32 {
	p := uintptr(int(proc))
	if proc == StreamProcUser {
		p = streamTramp
	}
	return t.l.streamCreate(freq, chans, uint32(flags), p, user)
}

func (t *dynThread) StreamCreateFile(mem bool, file unsafe.Pointer, offset, length uint64, flags StreamFlags) uint32 {
	return t.l.streamCreateFile(b2i(mem), file, offset, length, uint32(flags))
}

func (t *dynThread) StreamCreateURL(url unsafe.Pointer, offset uint32, flags StreamFlags, download bool, user uintptr) uint32 {
	return t.l.streamCreateURL(url, offset, uint32(flags), procOf(download, dlTramp), user)
}

func (t *dynThread) StreamPutData(h uint32, buf unsafe.Pointer, length uint32) uint32 {
	return t.l.streamPutData(h, buf, length)
}

func (t *dynThread) StreamFree(h uint32) bool { return t.l.streamFree(h) != 0 }

func (t *dynThread) SampleLoad(mem bool, file unsafe.Pointer, offset uint64, length, max uint32, flags SampleFlags) uint32 {
	return t.l.sampleLoad(b2i(mem), file, offset, length, max, uint32(flags))
}

func (t *dynThread) SampleGetChannel(h uint32, flags SampleFlags) uint32 {
	return t.l.sampleGetChannel(h, uint32(flags))
}

func (t *dynThread) SampleFree(h uint32) bool { return t.l.sampleFree(h) != 0 }

func (t *dynThread) MusicLoad(mem bool, file unsafe.Pointer, offset uint64, length uint32, flags MusicFlags, freq uint32) uint32 {
	return t.l.musicLoad(b2i(mem), file, offset, length, uint32(flags), freq)
}

func (t *dynThread) MusicFree(h uint32) bool            { return t.l.musicFree(h) != 0 }
func (t *dynThread) RecordInit(device int32) bool       { return t.l.recordInit(device) != 0 }
func (t *dynThread) RecordFree() bool                   { return t.l.recordFree() != 0 }
func (t *dynThread) RecordSetDevice(device uint32) bool { return t.l.recordSetDevice(device) != 0 }
func (t *dynThread) RecordGetDevice() uint32            { return t.l.recordGetDevice() }

func (t *dynThread) RecordGetDeviceInfo(dev uint32, info *DeviceInfo) bool {
	return t.l.recordGetDeviceInfo(dev, info) != 0
}

func (t *dynThread) RecordStart(freq, chans uint32, flags RecordFlags, proc bool, user uintptr) uint32 {
	return t.l.recordStart(freq, chans, uint32(flags), procOf(proc, recTramp), user)
}

func (t *dynThread) ChannelPlay(h uint32, restart bool) bool {
	return t.l.channelPlay(h, b2i(restart)) != 0
}

func (t *dynThread) ChannelStop(h uint32) bool  { return t.l.channelStop(h) != 0 }
func (t *dynThread) ChannelPause(h uint32) bool { return t.l.channelPause(h) != 0 }

func (t *dynThread) ChannelIsActive(h uint32) ActiveState {
	return ActiveState(t.l.channelIsActive(h))
}

func (t *dynThread) ChannelGetInfo(h uint32, info *ChannelInfo) bool {
	return t.l.channelGetInfo(h, info) != 0
}

func (t *dynThread) ChannelGetDevice(h uint32) uint32 { return t.l.channelGetDevice(h) }

func (t *dynThread) ChannelGetData(h uint32, buf unsafe.Pointer, length uint32) uint32 {
	return t.l.channelGetData(h, buf, length)
}

func (t *dynThread) ChannelGetPosition(h uint32, mode PosMode) uint64 {
	return t.l.channelGetPosition(h, uint32(mode))
}

func (t *dynThread) ChannelSetPosition(h uint32, pos uint64, mode PosMode) bool {
	return t.l.channelSetPosition(h, pos, uint32(mode)) != 0
}

func (t *dynThread) ChannelGetLength(h uint32, mode PosMode) uint64 {
	return t.l.channelGetLength(h, uint32(mode))
}

func (t *dynThread) ChannelGetAttribute(h uint32, attrib Attribute, value *float32) bool {
	return t.l.channelGetAttribute(h, uint32(attrib), value) != 0
}

func (t *dynThread) ChannelSetAttribute(h uint32, attrib Attribute, value float32) bool {
	return t.l.channelSetAttribute(h, uint32(attrib), value) != 0
}

func (t *dynThread) ChannelFlags(h uint32, flags, mask ChannelFlags) uint32 {
	return t.l.channelFlags(h, uint32(flags), uint32(mask))
}

func (t *dynThread) ChannelSetDSP(h uint32, user uintptr, priority int32) uint32 {
	return t.l.channelSetDSP(h, dspTramp, user, priority)
}

func (t *dynThread) ChannelRemoveDSP(h, dsp uint32) bool {
	return t.l.channelRemoveDSP(h, dsp) != 0
}

func (t *dynThread) ChannelSetSync(h uint32, typ SyncType, param uint64, user uintptr) uint32 {
	return t.l.channelSetSync(h, uint32(typ), param, syncTramp, user)
}

func (t *dynThread) ChannelRemoveSync(h, sync uint32) bool {
	return t.l.channelRemoveSync(h, sync) != 0
}

func (t *dynThread) EncodeStart(h uint32, cmdline unsafe.Pointer, flags EncodeFlags, proc bool, user uintptr) uint32 {
	if t.l.encodeStart == nil {
		t.override = ErrorNotAvail
		return 0
	}
	return t.l.encodeStart(h, cmdline, uint32(flags), procOf(proc, encTramp), user)
}

func (t *dynThread) EncodeStop(h uint32) bool {
	if t.l.encodeStop == nil {
		t.override = ErrorNotAvail
		return false
	}
	return t.l.encodeStop(h) != 0
}

func (t *dynThread) EncodeSetNotify(h uint32, notify bool, user uintptr) bool {
	if t.l.encodeSetNotify == nil {
		t.override = ErrorNotAvail
		return false
	}
	return t.l.encodeSetNotify(h, procOf(notify, notifyTramp), user) != 0
}

func (t *dynThread) EncodeIsActive(h uint32) ActiveState {
	if t.l.encodeIsActive == nil {
		t.override = ErrorNotAvail
		return ActiveStopped
	}
	return ActiveState(t.l.encodeIsActive(h))
}
