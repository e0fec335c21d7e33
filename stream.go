// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"io"
	"unsafe"

	"github.com/ik5/audbind/internal/bridge"
	"github.com/ik5/audbind/internal/pin"
	"github.com/ik5/audbind/native"
)

// Stream is a user, dummy, file, memory or URL stream.
type Stream struct {
	channel
}

// Free frees the stream. A memory stream's buffer stays pinned until the
// engine reports the stream gone.
func (s *Stream) Free() error {
	return s.free("StreamFree", freeStream)
}

func freeStream(t native.Thread, h uint32) bool { return t.StreamFree(h) }

func undoStream(t native.Thread, h uint32) { t.StreamFree(h) }

// CreateStream creates a stream fed by fn.
func (d Device) CreateStream(freq, chans uint32, flags native.StreamFlags, fn StreamFunc) (*Stream, error) {
	reg := d.b.table.Register(bridge.KindStream, fn, false)
	e, err := d.b.spawn(spawn{
		op:    "StreamCreate",
		kind:  kindStream,
		index: d.index,
		regs:  []*bridge.Registration{reg},
		create: func(t native.Thread) uint32 {
			return t.StreamCreate(freq, chans, flags, native.StreamProcUser, reg.Token())
		},
		free: undoStream,
	})
	if err != nil {
		return nil, err
	}
	return &Stream{channel{b: d.b, e: e}}, nil
}

// CreateDummyStream creates a decode-only stream without data, a carrier for
// DSP and encoders.
func (d Device) CreateDummyStream(freq, chans uint32, flags native.StreamFlags) (*Stream, error) {
	e, err := d.b.spawn(spawn{
		op:    "StreamCreate",
		kind:  kindStream,
		index: d.index,
		create: func(t native.Thread) uint32 {
			return t.StreamCreate(freq, chans, flags, native.StreamProcDummy, 0)
		},
		free: undoStream,
	})
	if err != nil {
		return nil, err
	}
	return &Stream{channel{b: d.b, e: e}}, nil
}

// StreamFromFile opens a file stream. length 0 means up to the end of the
// file.
func (d Device) StreamFromFile(path string, offset, length uint64, flags native.StreamFlags) (*Stream, error) {
	if d.b.wide {
		flags |= native.StreamUnicode
	}
	name := d.b.encode(path)

	e, err := d.b.spawn(spawn{
		op:    "StreamCreateFile",
		kind:  kindStream,
		index: d.index,
		create: func(t native.Thread) uint32 {
			return t.StreamCreateFile(false, native.StringPtr(name), offset, length, flags)
		},
		free: undoStream,
	})
	if err != nil {
		return nil, err
	}
	return &Stream{channel{b: d.b, e: e}}, nil
}

// StreamFromMemory opens a stream over buf[offset:offset+length]. The engine
// reads buf for the lifetime of the stream: buf is pinned until the engine
// reports the stream freed, and must not be modified meanwhile.
func (d Device) StreamFromMemory(buf []byte, offset, length int, flags native.StreamFlags) (*Stream, error) {
	const op = "StreamCreateFile"

	if offset < 0 || length < 0 || offset > len(buf) || length > len(buf)-offset {
		return nil, newError(op, native.ErrorIllParam)
	}

	p := pin.Once(d.b.pinner.Pin(buf))
	d.b.metrics.PinAcquired()
	// spawn owns p once called, panics included
	settled := false
	defer func() {
		if !settled {
			p.Release()
			d.b.metrics.PinReleased()
		}
	}()

	ptr := p.Pointer(offset)
	settled = true
	e, err := d.b.spawn(spawn{
		op:    op,
		kind:  kindStream,
		index: d.index,
		pins:  []Pin{p},
		create: func(t native.Thread) uint32 {
			return t.StreamCreateFile(true, ptr, 0, uint64(length), flags)
		},
		free: undoStream,
	})
	if err != nil {
		return nil, err
	}
	return &Stream{channel{b: d.b, e: e}}, nil
}

// StreamFromURL opens an internet stream. The call blocks until the
// connection is made; fn, when set, receives the downloaded data.
func (d Device) StreamFromURL(url string, offset uint32, flags native.StreamFlags, fn DownloadFunc) (*Stream, error) {
	if d.b.wide {
		flags |= native.StreamUnicode
	}
	name := d.b.encode(url)

	var regs []*bridge.Registration
	var token uintptr
	if fn != nil {
		reg := d.b.table.Register(bridge.KindDownload, fn, false)
		regs, token = append(regs, reg), reg.Token()
	}

	e, err := d.b.spawn(spawn{
		op:    "StreamCreateURL",
		kind:  kindStream,
		index: d.index,
		regs:  regs,
		create: func(t native.Thread) uint32 {
			return t.StreamCreateURL(native.StringPtr(name), offset, flags, fn != nil, token)
		},
		free: undoStream,
	})
	if err != nil {
		return nil, err
	}
	return &Stream{channel{b: d.b, e: e}}, nil
}

// PushStream is a stream fed by writes.
type PushStream struct {
	channel
}

var _ io.WriteCloser = (*PushStream)(nil)

// CreatePushStream creates a stream that plays what is written to it.
func (d Device) CreatePushStream(freq, chans uint32, flags native.StreamFlags) (*PushStream, error) {
	e, err := d.b.spawn(spawn{
		op:    "StreamCreate",
		kind:  kindPushStream,
		index: d.index,
		create: func(t native.Thread) uint32 {
			return t.StreamCreate(freq, chans, flags, native.StreamProcPush, 0)
		},
		free: undoStream,
	})
	if err != nil {
		return nil, err
	}
	return &PushStream{channel{b: d.b, e: e}}, nil
}

// Write queues p. The engine copies the data.
func (s *PushStream) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	err := s.do("StreamPutData", func(t native.Thread, h uint32) bool {
		return t.StreamPutData(h, unsafe.Pointer(unsafe.SliceData(p)), uint32(len(p))) != native.FailDWORD
	})
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// Queued is the amount of data queued and not yet played.
func (s *PushStream) Queued() (int, error) {
	var n uint32
	err := s.do("StreamPutData", func(t native.Thread, h uint32) bool {
		n = t.StreamPutData(h, nil, 0)
		return n != native.FailDWORD
	})
	return int(n), err
}

// Close marks the end of the data. The stream ends once the queue is played;
// it is not freed.
func (s *PushStream) Close() error {
	return s.do("StreamPutData", func(t native.Thread, h uint32) bool {
		return t.StreamPutData(h, nil, native.StreamEnd) != native.FailDWORD
	})
}

func (s *PushStream) Free() error {
	return s.free("StreamFree", freeStream)
}

// Music is a MOD music.
type Music struct {
	channel
}

func (m *Music) Free() error {
	return m.free("MusicFree", func(t native.Thread, h uint32) bool { return t.MusicFree(h) })
}

// LoadMusic loads music from memory. The engine copies buf, which is pinned
// for the duration of the call only.
func (d Device) LoadMusic(buf []byte, flags native.MusicFlags, freq uint32) (*Music, error) {
	p := pin.Once(d.b.pinner.Pin(buf))
	d.b.metrics.PinAcquired()
	defer func() {
		p.Release()
		d.b.metrics.PinReleased()
	}()

	return d.loadMusic(func(t native.Thread) uint32 {
		return t.MusicLoad(true, p.Pointer(0), 0, uint32(len(buf)), flags, freq)
	})
}

// LoadMusicFile loads music from a file.
func (d Device) LoadMusicFile(path string, flags native.MusicFlags, freq uint32) (*Music, error) {
	if d.b.wide {
		flags |= native.MusicUnicode
	}
	name := d.b.encode(path)
	return d.loadMusic(func(t native.Thread) uint32 {
		return t.MusicLoad(false, native.StringPtr(name), 0, 0, flags, freq)
	})
}

func (d Device) loadMusic(load func(t native.Thread) uint32) (*Music, error) {
	e, err := d.b.spawn(spawn{
		op:     "MusicLoad",
		kind:   kindMusic,
		index:  d.index,
		create: load,
		free:   func(t native.Thread, h uint32) { t.MusicFree(h) },
	})
	if err != nil {
		return nil, err
	}
	return &Music{channel{b: d.b, e: e}}, nil
}
