// SPDX-License-Identifier: EPL-2.0

package native

import "unsafe"

// Library is a loaded engine.
type Library interface {
	// Call runs fn with a Thread bound to one OS thread. Every engine call that
	// depends on the current device or reads the last error must happen inside
	// a single frame.
	Call(fn func(t Thread))
	// SetDispatcher installs the receiver of engine callbacks. Callbacks that
	// arrive while no dispatcher is installed take their benign result.
	SetDispatcher(d Dispatcher)
	// Close unloads the engine. The Library must not be used afterwards.
	Close() error
}

// Thread exposes the engine's entry points for the duration of a call frame.
// Methods follow the engine's conventions: a false bool, a zero handle or a
// FailDWORD/FailQWORD value signal failure, and ErrorGetCode tells why.
type Thread interface {
	ErrorGetCode() Code

	Init(device int32, freq uint32, flags InitFlags) bool
	Free() bool
	SetDevice(device uint32) bool
	GetDevice() uint32
	GetDeviceInfo(device uint32, info *DeviceInfo) bool
	GetInfo(info *Info) bool
	Start() bool
	Stop() bool
	Pause() bool
	SetVolume(volume float32) bool
	GetVolume() float32
	Set3DFactors(distf, rollf, doppf float32) bool
	Get3DFactors(distf, rollf, doppf *float32) bool
	Apply3D()
	SetEAXParameters(env int32, vol, decay, damp float32) bool
	SetConfig(option ConfigOption, value uint32) bool
	GetConfig(option ConfigOption) uint32

	StreamCreate(freq, chans uint32, flags StreamFlags, proc StreamProc, user uintptr) uint32
	// StreamCreateFile opens a file (mem false, file is an encoded path) or a
	// memory block (mem true, file points at the data). The engine keeps
	// reading memory blocks for the lifetime of the stream.
	StreamCreateFile(mem bool, file unsafe.Pointer, offset, length uint64, flags StreamFlags) uint32
	StreamCreateURL(url unsafe.Pointer, offset uint32, flags StreamFlags, download bool, user uintptr) uint32
	StreamPutData(handle uint32, buf unsafe.Pointer, length uint32) uint32
	StreamFree(handle uint32) bool

	// SampleLoad copies the data, memory blocks can be released on return.
	SampleLoad(mem bool, file unsafe.Pointer, offset uint64, length, max uint32, flags SampleFlags) uint32
	SampleGetChannel(handle uint32, flags SampleFlags) uint32
	SampleFree(handle uint32) bool
	// MusicLoad copies the data, memory blocks can be released on return.
	MusicLoad(mem bool, file unsafe.Pointer, offset uint64, length uint32, flags MusicFlags, freq uint32) uint32
	MusicFree(handle uint32) bool

	RecordInit(device int32) bool
	RecordFree() bool
	RecordSetDevice(device uint32) bool
	RecordGetDevice() uint32
	RecordGetDeviceInfo(device uint32, info *DeviceInfo) bool
	RecordStart(freq, chans uint32, flags RecordFlags, proc bool, user uintptr) uint32

	ChannelPlay(handle uint32, restart bool) bool
	ChannelStop(handle uint32) bool
	ChannelPause(handle uint32) bool
	ChannelIsActive(handle uint32) ActiveState
	ChannelGetInfo(handle uint32, info *ChannelInfo) bool
	ChannelGetDevice(handle uint32) uint32
	ChannelGetData(handle uint32, buf unsafe.Pointer, length uint32) uint32
	ChannelGetPosition(handle uint32, mode PosMode) uint64
	ChannelSetPosition(handle uint32, pos uint64, mode PosMode) bool
	ChannelGetLength(handle uint32, mode PosMode) uint64
	ChannelGetAttribute(handle uint32, attrib Attribute, value *float32) bool
	ChannelSetAttribute(handle uint32, attrib Attribute, value float32) bool
	ChannelFlags(handle uint32, flags, mask ChannelFlags) uint32
	ChannelSetDSP(handle uint32, user uintptr, priority int32) uint32
	ChannelRemoveDSP(handle, dsp uint32) bool
	ChannelSetSync(handle uint32, typ SyncType, param uint64, user uintptr) uint32
	ChannelRemoveSync(handle, sync uint32) bool

	EncodeStart(handle uint32, cmdline unsafe.Pointer, flags EncodeFlags, proc bool, user uintptr) uint32
	EncodeStop(handle uint32) bool
	EncodeSetNotify(handle uint32, notify bool, user uintptr) bool
	EncodeIsActive(handle uint32) ActiveState
}

// Dispatcher receives engine callbacks. Methods run on engine owned threads,
// possibly concurrently, and must not panic. Buffers are only valid for the
// duration of the call.
type Dispatcher interface {
	// StreamProc fills buf and returns the number of bytes written, optionally
	// OR'd with StreamEnd.
	StreamProc(handle uint32, buf []byte, user uintptr) uint32
	DSPProc(dsp, channel uint32, buf []byte, user uintptr)
	SyncProc(sync, channel, data uint32, user uintptr)
	// DownloadProc receives downloaded data, a nil buf marks the end.
	DownloadProc(buf []byte, user uintptr)
	// RecordProc returns false to stop recording.
	RecordProc(handle uint32, buf []byte, user uintptr) bool
	EncodeProc(encoder, channel uint32, buf []byte, user uintptr)
	EncodeNotifyProc(encoder uint32, status EncodeNotify, user uintptr)
}
