// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"errors"
	"strings"

	"github.com/ik5/audbind/native"
)

// ErrorKind classifies engine failures.
type ErrorKind string

const (
	KindInvalidHandle  ErrorKind = "invalid_handle"
	KindIllegalDevice  ErrorKind = "illegal_device"
	KindIllegalParam   ErrorKind = "illegal_parameter"
	KindIllegalType    ErrorKind = "illegal_type"
	KindNotInitialized ErrorKind = "not_initialized"
	KindAlready        ErrorKind = "already"
	KindBusy           ErrorKind = "busy"
	KindFormat         ErrorKind = "format"
	KindDecode         ErrorKind = "decode"
	KindNoChannel      ErrorKind = "no_channel"
	KindNotAvailable   ErrorKind = "not_available"
	KindTimeout        ErrorKind = "timeout"
	KindNo3D           ErrorKind = "no_3d"
	KindNoEAX          ErrorKind = "no_eax"
	KindMemory         ErrorKind = "memory"
	KindFileOpen       ErrorKind = "file_open"
	KindEnded          ErrorKind = "ended"
	KindPosition       ErrorKind = "position"
	KindNotFile        ErrorKind = "not_file"
	KindNotPlaying     ErrorKind = "not_playing"
	KindNetwork        ErrorKind = "network"
	KindCreate         ErrorKind = "create"
	KindDriver         ErrorKind = "driver"
	KindUnknown        ErrorKind = "unknown"
)

var codeKinds = map[native.Code]ErrorKind{
	native.ErrorHandle:   KindInvalidHandle,
	native.ErrorDevice:   KindIllegalDevice,
	native.ErrorIllParam: KindIllegalParam,
	native.ErrorIllType:  KindIllegalType,
	native.ErrorInit:     KindNotInitialized,
	native.ErrorAlready:  KindAlready,
	native.ErrorBusy:     KindBusy,
	native.ErrorFormat:   KindFormat,
	native.ErrorFileForm: KindFormat,
	native.ErrorNotAudio: KindFormat,
	native.ErrorFreq:     KindFormat,
	native.ErrorDecode:   KindDecode,
	native.ErrorNoChan:   KindNoChannel,
	native.ErrorNoHW:     KindNoChannel,
	native.ErrorNotAvail: KindNotAvailable,
	native.ErrorTimeout:  KindTimeout,
	native.ErrorNo3D:     KindNo3D,
	native.ErrorNoEAX:    KindNoEAX,
	native.ErrorMem:      KindMemory,
	native.ErrorFileOpen: KindFileOpen,
	native.ErrorEnded:    KindEnded,
	native.ErrorPosition: KindPosition,
	native.ErrorNotFile:  KindNotFile,
	native.ErrorNoPlay:   KindNotPlaying,
	native.ErrorNoNet:    KindNetwork,
	native.ErrorProtocol: KindNetwork,
	native.ErrorSSL:      KindNetwork,
	native.ErrorCreate:   KindCreate,
	native.ErrorDriver:   KindDriver,
	native.ErrorStart:    KindDriver,
	native.ErrorReinit:   KindDriver,
}

// KindOf maps an engine error code to its kind.
func KindOf(code native.Code) ErrorKind {
	if k, ok := codeKinds[code]; ok {
		return k
	}
	return KindUnknown
}

// Error is a failed engine call. Code is the engine's last-error value read
// on the failing call's thread, or the code the binding reports for a check it
// made locally.
type Error struct {
	Op   string
	Code native.Code
	Kind ErrorKind
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("audbind: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Code.String())
	return b.String()
}

// Is matches errors of the same kind, so errors.Is(err, ErrInvalidHandle)
// holds for every invalid handle failure.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func newError(op string, code native.Code) *Error {
	return &Error{Op: op, Code: code, Kind: KindOf(code)}
}

// Sentinels for errors.Is.
var (
	ErrInvalidHandle  = &Error{Code: native.ErrorHandle, Kind: KindInvalidHandle}
	ErrIllegalDevice  = &Error{Code: native.ErrorDevice, Kind: KindIllegalDevice}
	ErrIllegalParam   = &Error{Code: native.ErrorIllParam, Kind: KindIllegalParam}
	ErrIllegalType    = &Error{Code: native.ErrorIllType, Kind: KindIllegalType}
	ErrNotInitialized = &Error{Code: native.ErrorInit, Kind: KindNotInitialized}
	ErrAlready        = &Error{Code: native.ErrorAlready, Kind: KindAlready}
	ErrBusy           = &Error{Code: native.ErrorBusy, Kind: KindBusy}
	ErrFormat         = &Error{Code: native.ErrorFormat, Kind: KindFormat}
	ErrDecode         = &Error{Code: native.ErrorDecode, Kind: KindDecode}
	ErrNoChannel      = &Error{Code: native.ErrorNoChan, Kind: KindNoChannel}
	ErrNotAvailable   = &Error{Code: native.ErrorNotAvail, Kind: KindNotAvailable}
	ErrTimeout        = &Error{Code: native.ErrorTimeout, Kind: KindTimeout}
	ErrNo3D           = &Error{Code: native.ErrorNo3D, Kind: KindNo3D}
	ErrNoEAX          = &Error{Code: native.ErrorNoEAX, Kind: KindNoEAX}
	ErrMemory         = &Error{Code: native.ErrorMem, Kind: KindMemory}
	ErrFileOpen       = &Error{Code: native.ErrorFileOpen, Kind: KindFileOpen}
	ErrEnded          = &Error{Code: native.ErrorEnded, Kind: KindEnded}
	ErrPosition       = &Error{Code: native.ErrorPosition, Kind: KindPosition}
	ErrNotFile        = &Error{Code: native.ErrorNotFile, Kind: KindNotFile}
	ErrNotPlaying     = &Error{Code: native.ErrorNoPlay, Kind: KindNotPlaying}
	ErrNetwork        = &Error{Code: native.ErrorNoNet, Kind: KindNetwork}
	ErrCreate         = &Error{Code: native.ErrorCreate, Kind: KindCreate}
	ErrDriver         = &Error{Code: native.ErrorDriver, Kind: KindDriver}
	ErrUnknown        = &Error{Code: native.ErrorUnknown, Kind: KindUnknown}
)

// ErrClosed is returned by calls on a closed Binding.
var ErrClosed = errors.New("audbind: binding closed")
