// SPDX-License-Identifier: EPL-2.0

package native

// DeviceInfo mirrors the engine's device description. Name and Driver point
// into engine owned memory and stay valid until the engine is unloaded.
type DeviceInfo struct {
	Name   *byte
	Driver *byte
	Flags  DeviceFlags
}

// Info mirrors the engine's description of the current output device.
type Info struct {
	Flags     uint32
	HWSize    uint32
	HWFree    uint32
	FreeSam   uint32
	Free3D    uint32
	MinRate   uint32
	MaxRate   uint32
	EAX       uint32
	MinBuf    uint32
	DSVer     uint32
	Latency   uint32
	InitFlags uint32
	Speakers  uint32
	Freq      uint32
}

// ChannelInfo mirrors the engine's description of a channel. Flags holds the
// creation flags of whichever family created the channel, so it is left as a
// raw value.
type ChannelInfo struct {
	Freq     uint32
	Chans    uint32
	Flags    uint32
	CType    ChannelType
	OrigRes  uint32
	Plugin   uint32
	Sample   uint32
	Filename *byte
}
