// SPDX-License-Identifier: EPL-2.0

package native

import (
	"unicode/utf16"
	"unsafe"
)

// EncodeString returns s as a NUL terminated buffer in the engine's narrow
// (UTF-8) or wide (UTF-16, native byte order) encoding. The caller passes
// unsafe.Pointer(&buf[0]) to the engine and must keep buf alive for the call.
func EncodeString(s string, wide bool) []byte {
	if !wide {
		buf := make([]byte, len(s)+1)
		copy(buf, s)
		return buf
	}

	units := utf16.Encode([]rune(s))
	buf := make([]byte, (len(units)+1)*2)
	dst := unsafe.Slice((*uint16)(unsafe.Pointer(&buf[0])), len(units)+1)
	copy(dst, units)
	return buf
}

// DecodeString reads a NUL terminated string from p in the encoding selected
// by wide. A nil p yields "".
func DecodeString(p unsafe.Pointer, wide bool) string {
	if p == nil {
		return ""
	}
	if !wide {
		return GoString((*byte)(p))
	}

	var units []uint16
	for q := (*uint16)(p); *q != 0; q = (*uint16)(unsafe.Add(unsafe.Pointer(q), 2)) {
		units = append(units, *q)
	}
	return string(utf16.Decode(units))
}

// GoString copies a NUL terminated narrow string owned by the engine.
func GoString(p *byte) string {
	if p == nil {
		return ""
	}

	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

// StringPtr returns a pointer suitable for a string argument, or nil for an
// empty buffer.
func StringPtr(buf []byte) unsafe.Pointer {
	if len(buf) == 0 {
		return nil
	}
	return unsafe.Pointer(&buf[0])
}
