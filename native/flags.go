// SPDX-License-Identifier: EPL-2.0

package native

// InitFlags are accepted by Thread.Init.
type InitFlags uint32

const (
	Device8Bits   InitFlags = 1
	DeviceMono    InitFlags = 2
	Device3D      InitFlags = 4
	Device16Bits  InitFlags = 8
	DeviceReinit  InitFlags = 128
	DeviceLatency InitFlags = 0x100
	DeviceFreq    InitFlags = 0x4000
	DeviceStereo  InitFlags = 0x8000
	DeviceHog     InitFlags = 0x10000
)

// DeviceFlags describe a device in DeviceInfo.
type DeviceFlags uint32

const (
	DeviceEnabled  DeviceFlags = 1
	DeviceDefault  DeviceFlags = 2
	DeviceInited   DeviceFlags = 4
	DeviceLoopback DeviceFlags = 8
)

// StreamFlags are accepted by the stream creation calls.
type StreamFlags uint32

const (
	StreamSample8Bits StreamFlags = 1
	StreamSampleMono  StreamFlags = 2
	StreamSampleLoop  StreamFlags = 4
	StreamSample3D    StreamFlags = 8
	StreamSampleFloat StreamFlags = 256
	StreamPrescan     StreamFlags = 0x20000
	StreamAutoFree    StreamFlags = 0x40000
	StreamRestRate    StreamFlags = 0x80000
	StreamBlock       StreamFlags = 0x100000
	StreamDecode      StreamFlags = 0x200000
	StreamStatus      StreamFlags = 0x800000
	StreamUnicode     StreamFlags = 0x80000000
)

// SampleFlags are accepted by SampleLoad and SampleGetChannel.
type SampleFlags uint32

const (
	Sample8Bits      SampleFlags = 1
	SampleMono       SampleFlags = 2
	SampleLoop       SampleFlags = 4
	Sample3D         SampleFlags = 8
	SampleSoftware   SampleFlags = 16
	SampleMuteMax    SampleFlags = 32
	SampleFloat      SampleFlags = 256
	SampleOverVol    SampleFlags = 0x10000
	SampleOverPos    SampleFlags = 0x20000
	SampleChanNew    SampleFlags = 1
	SampleChanDecode SampleFlags = 0x200000
	SampleUnicode    SampleFlags = 0x80000000
)

// MusicFlags are accepted by MusicLoad.
type MusicFlags uint32

const (
	MusicMono     MusicFlags = 2
	MusicLoop     MusicFlags = 4
	Music3D       MusicFlags = 8
	MusicFloat    MusicFlags = 256
	MusicRamp     MusicFlags = 0x200
	MusicPrescan  MusicFlags = 0x20000
	MusicAutoFree MusicFlags = 0x40000
	MusicDecode   MusicFlags = 0x200000
	MusicUnicode  MusicFlags = 0x80000000
)

// RecordFlags are accepted by RecordStart.
type RecordFlags uint32

const (
	Record8Bits RecordFlags = 1
	RecordMono  RecordFlags = 2
	RecordFloat RecordFlags = 256
	RecordPause RecordFlags = 0x8000
)

// ChannelFlags are the mutable subset toggled through ChannelFlags.
type ChannelFlags uint32

const (
	ChannelLoop     ChannelFlags = 4
	ChannelMuteMax  ChannelFlags = 32
	ChannelAutoFree ChannelFlags = 0x40000
	ChannelDecode   ChannelFlags = 0x200000
)

// SyncType selects the condition a sync fires on. Modifier bits can be OR'd
// with a condition.
type SyncType uint32

const (
	SyncPos      SyncType = 0
	SyncEnd      SyncType = 2
	SyncMeta     SyncType = 4
	SyncStall    SyncType = 6
	SyncDownload SyncType = 7
	SyncFree     SyncType = 8
	SyncSetPos   SyncType = 11
	SyncDevFail  SyncType = 14

	SyncThread   SyncType = 0x20000000
	SyncMixtime  SyncType = 0x40000000
	SyncOnetime  SyncType = 0x80000000
	syncModifier SyncType = SyncThread | SyncMixtime | SyncOnetime
)

// Condition strips the modifier bits.
func (s SyncType) Condition() SyncType { return s &^ syncModifier }

// OneTime reports whether the sync removes itself after firing.
func (s SyncType) OneTime() bool { return s&SyncOnetime != 0 }

// EncodeFlags are accepted by EncodeStart.
type EncodeFlags uint32

const (
	EncodeNoHead   EncodeFlags = 1
	EncodeFP16Bit  EncodeFlags = 4
	EncodeFP32Bit  EncodeFlags = 8
	EncodeBigEnd   EncodeFlags = 16
	EncodePause    EncodeFlags = 32
	EncodePCM      EncodeFlags = 64
	EncodeMono     EncodeFlags = 0x100
	EncodeQueue    EncodeFlags = 0x200
	EncodeAutoFree EncodeFlags = 0x40000
	EncodeUnicode  EncodeFlags = 0x80000000
)

// EncodeNotify is the status delivered to an encoder notification.
type EncodeNotify uint32

const (
	EncodeNotifyEncoder     EncodeNotify = 1
	EncodeNotifyCast        EncodeNotify = 2
	EncodeNotifyServer      EncodeNotify = 3
	EncodeNotifyFree        EncodeNotify = 5
	EncodeNotifyCastTimeout EncodeNotify = 0x10000
	EncodeNotifyQueueFull   EncodeNotify = 0x10001
)

// ActiveState is returned by ChannelIsActive and EncodeIsActive.
type ActiveState uint32

const (
	ActiveStopped      ActiveState = 0
	ActivePlaying      ActiveState = 1
	ActiveStalled      ActiveState = 2
	ActivePaused       ActiveState = 3
	ActivePausedDevice ActiveState = 4
)

func (s ActiveState) String() string {
	switch s {
	case ActiveStopped:
		return "stopped"
	case ActivePlaying:
		return "playing"
	case ActiveStalled:
		return "stalled"
	case ActivePaused:
		return "paused"
	case ActivePausedDevice:
		return "paused (device)"
	}
	return "unknown"
}

// Attribute identifies a channel attribute.
type Attribute uint32

const (
	AttribFreq     Attribute = 1
	AttribVol      Attribute = 2
	AttribPan      Attribute = 3
	AttribNoBuffer Attribute = 5
	AttribCPU      Attribute = 7
	AttribBuffer   Attribute = 13
)

// PosMode selects the unit of a position.
type PosMode uint32

const (
	PosByte       PosMode = 0
	PosMusicOrder PosMode = 1
	PosOgg        PosMode = 3
	PosReset      PosMode = 0x2000000
	PosRelative   PosMode = 0x4000000
	PosDecode     PosMode = 0x10000000
)

// ConfigOption identifies a global engine option.
type ConfigOption uint32

const (
	ConfigBuffer        ConfigOption = 0
	ConfigUpdatePeriod  ConfigOption = 1
	ConfigGVolSample    ConfigOption = 4
	ConfigGVolStream    ConfigOption = 5
	ConfigGVolMusic     ConfigOption = 6
	ConfigFloatDSP      ConfigOption = 9
	ConfigNetTimeout    ConfigOption = 11
	ConfigNetBuffer     ConfigOption = 12
	ConfigPauseNoPlay   ConfigOption = 13
	ConfigNetPrebuf     ConfigOption = 15
	ConfigRecBuffer     ConfigOption = 19
	ConfigVerify        ConfigOption = 23
	ConfigUpdateThreads ConfigOption = 24
	ConfigDevBuffer     ConfigOption = 27
)

// ChannelType is the ctype member of ChannelInfo.
type ChannelType uint32

const (
	CTypeSample       ChannelType = 1
	CTypeRecord       ChannelType = 2
	CTypeStream       ChannelType = 0x10000
	CTypeStreamVorbis ChannelType = 0x10002
	CTypeStreamMP3    ChannelType = 0x10005
	CTypeStreamAIFF   ChannelType = 0x10006
	CTypeStreamFLAC   ChannelType = 0x10900
	CTypeStreamDummy  ChannelType = 0x18000
	CTypeStreamWAVPCM ChannelType = 0x50001
	CTypeMusicMod     ChannelType = 0x20000
)

// StreamProc selects how a stream created by StreamCreate obtains its data.
type StreamProc int32

const (
	// StreamProcUser pulls data through the Dispatcher's StreamProc.
	StreamProcUser StreamProc = 1
	// StreamProcDummy creates a stream that produces nothing.
	StreamProcDummy StreamProc = 0
	// StreamProcPush creates a stream fed with StreamPutData.
	StreamProcPush StreamProc = -1
	// StreamProcDevice creates a stream carrying the device's final mix.
	StreamProcDevice StreamProc = -2
)

// StreamEnd is OR'd into a StreamProc return value or a StreamPutData length
// to mark the end of the stream.
const StreamEnd uint32 = 0x80000000

// Failure sentinels returned by calls that do not report success as a bool.
const (
	// FailDWORD is returned by DWORD producing calls (-1 as DWORD).
	FailDWORD uint32 = 0xFFFFFFFF
	// FailQWORD is returned by QWORD producing calls (-1 as QWORD).
	FailQWORD uint64 = 0xFFFFFFFFFFFFFFFF
)
