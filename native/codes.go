// SPDX-License-Identifier: EPL-2.0

package native

import "strconv"

// Code is a value reported by the engine's ErrorGetCode.
type Code int32

const (
	ErrorOK           Code = 0
	ErrorMem          Code = 1
	ErrorFileOpen     Code = 2
	ErrorDriver       Code = 3
	ErrorBufLost      Code = 4
	ErrorHandle       Code = 5
	ErrorFormat       Code = 6
	ErrorPosition     Code = 7
	ErrorInit         Code = 8
	ErrorStart        Code = 9
	ErrorSSL          Code = 10
	ErrorReinit       Code = 11
	ErrorAlready      Code = 14
	ErrorNotAudio     Code = 17
	ErrorNoChan       Code = 18
	ErrorIllType      Code = 19
	ErrorIllParam     Code = 20
	ErrorNo3D         Code = 21
	ErrorNoEAX        Code = 22
	ErrorDevice       Code = 23
	ErrorNoPlay       Code = 24
	ErrorFreq         Code = 25
	ErrorNotFile      Code = 27
	ErrorNoHW         Code = 29
	ErrorEmpty        Code = 31
	ErrorNoNet        Code = 32
	ErrorCreate       Code = 33
	ErrorNoFX         Code = 34
	ErrorNotAvail     Code = 37
	ErrorDecode       Code = 38
	ErrorDX           Code = 39
	ErrorTimeout      Code = 40
	ErrorFileForm     Code = 41
	ErrorSpeaker      Code = 42
	ErrorVersion      Code = 43
	ErrorCodec        Code = 44
	ErrorEnded        Code = 45
	ErrorBusy         Code = 46
	ErrorUnstreamable Code = 47
	ErrorProtocol     Code = 48
	ErrorDenied       Code = 49
	ErrorUnknown      Code = -1

	// encoder add-on
	ErrorACMCancel  Code = 2000
	ErrorCastDenied Code = 2100
	ErrorServerCert Code = 2101
)

var codeNames = map[Code]string{
	ErrorOK:           "ok",
	ErrorMem:          "memory",
	ErrorFileOpen:     "file open",
	ErrorDriver:       "driver",
	ErrorBufLost:      "buffer lost",
	ErrorHandle:       "invalid handle",
	ErrorFormat:       "unsupported sample format",
	ErrorPosition:     "invalid position",
	ErrorInit:         "not initialized",
	ErrorStart:        "not started",
	ErrorSSL:          "ssl unavailable",
	ErrorReinit:       "device needs reinitialization",
	ErrorAlready:      "already",
	ErrorNotAudio:     "not audio",
	ErrorNoChan:       "no free channel",
	ErrorIllType:      "illegal type",
	ErrorIllParam:     "illegal parameter",
	ErrorNo3D:         "no 3D support",
	ErrorNoEAX:        "no EAX support",
	ErrorDevice:       "illegal device",
	ErrorNoPlay:       "not playing",
	ErrorFreq:         "illegal sample rate",
	ErrorNotFile:      "not a file stream",
	ErrorNoHW:         "no hardware voices",
	ErrorEmpty:        "empty",
	ErrorNoNet:        "no internet connection",
	ErrorCreate:       "cannot create",
	ErrorNoFX:         "effects unavailable",
	ErrorNotAvail:     "not available",
	ErrorDecode:       "decoding channel",
	ErrorDX:           "directx unavailable",
	ErrorTimeout:      "timeout",
	ErrorFileForm:     "unsupported file format",
	ErrorSpeaker:      "unavailable speaker",
	ErrorVersion:      "invalid version",
	ErrorCodec:        "codec unavailable",
	ErrorEnded:        "ended",
	ErrorBusy:         "busy",
	ErrorUnstreamable: "unstreamable",
	ErrorProtocol:     "unsupported protocol",
	ErrorDenied:       "access denied",
	ErrorUnknown:      "unknown",
	ErrorACMCancel:    "codec dialog canceled",
	ErrorCastDenied:   "cast denied",
	ErrorServerCert:   "server certificate rejected",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "code " + strconv.Itoa(int(c))
}
