// SPDX-License-Identifier: EPL-2.0

// Package pin keeps caller memory in place while native code holds a raw
// pointer into it.
package pin

import (
	"runtime"
	"sync"
	"unsafe"
)

// Pin is a pinned buffer. Release may be called any number of times; only the
// first call unpins.
type Pin interface {
	// Pointer returns the address of byte offset of the pinned buffer. offset
	// may equal the buffer length.
	Pointer(offset int) unsafe.Pointer
	Release()
}

// Pinner pins buffers.
type Pinner interface {
	Pin(buf []byte) Pin
}

// Runtime returns the Pinner backed by runtime.Pinner.
func Runtime() Pinner { return runtimePinner{} }

type runtimePinner struct{}

func (runtimePinner) Pin(buf []byte) Pin {
	p := &runtimePin{buf: buf}
	if cap(buf) > 0 {
		p.pinner.Pin(unsafe.SliceData(buf))
	}
	return p
}

type runtimePin struct {
	pinner runtime.Pinner
	buf    []byte
	once   sync.Once
}

func (p *runtimePin) Pointer(offset int) unsafe.Pointer {
	return address(p.buf, offset)
}

func (p *runtimePin) Release() {
	p.once.Do(p.pinner.Unpin)
}

// Once wraps p so that only the first Release reaches it.
func Once(p Pin) Pin {
	if _, ok := p.(*runtimePin); ok {
		return p
	}
	return &oncePin{Pin: p}
}

type oncePin struct {
	Pin
	once sync.Once
}

func (o *oncePin) Release() {
	o.once.Do(o.Pin.Release)
}

func address(buf []byte, offset int) unsafe.Pointer {
	if cap(buf) == 0 {
		return nil
	}
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(buf)), offset)
}

// Address is the pointer arithmetic shared by Pinner implementations.
func Address(buf []byte, offset int) unsafe.Pointer { return address(buf, offset) }
