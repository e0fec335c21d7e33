// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/ik5/audbind/internal/bridge"
	"github.com/ik5/audbind/native"
	"github.com/smallnest/ringbuffer"
)

const recordPoll = 50 * time.Millisecond

// RecordDevice is a recording device by index. -1 is the default device for
// Init and otherwise follows the same rule as Device.
type RecordDevice struct {
	b     *Binding
	index int
}

// RecordDevice returns recording device index.
func (b *Binding) RecordDevice(index int) RecordDevice {
	return RecordDevice{b: b, index: index}
}

func (d RecordDevice) Index() int { return d.index }

func (d RecordDevice) call(op string, fn func(t native.Thread) bool) error {
	return d.b.call(op, func(t native.Thread) bool {
		d.b.selectRecordDevice(t, d.index)
		return fn(t)
	})
}

func (b *Binding) selectRecordDevice(t native.Thread, index int) {
	if index < 0 {
		index = int(b.recDefault.Load())
	}
	if index >= 0 {
		t.RecordSetDevice(uint32(index))
	}
}

// lowestRecordInited is the lowest numbered initialized recording device.
func (b *Binding) lowestRecordInited() (int, bool) {
	return firstInited(b.RecordDevices())
}

// Init initializes the device. The returned RecordDevice carries the index
// the engine picked when d is the default device.
func (d RecordDevice) Init() (RecordDevice, error) {
	index := d.index
	err := d.b.call("RecordInit", func(t native.Thread) bool {
		if !t.RecordInit(int32(d.index)) {
			return false
		}
		if cur := t.RecordGetDevice(); cur != native.FailDWORD {
			index = int(cur)
		}
		return true
	})
	if err != nil {
		return d, err
	}
	initialized(&d.b.recDefault, index)
	return RecordDevice{b: d.b, index: index}, nil
}

// Free frees the device and its recordings.
func (d RecordDevice) Free() error {
	index := uint32(d.index)
	err := d.call("RecordFree", func(t native.Thread) bool {
		if cur := t.RecordGetDevice(); cur != native.FailDWORD {
			index = cur
		}
		return t.RecordFree()
	})
	if err != nil {
		return err
	}
	d.b.reg.destroyOwned(owner{record: true, index: index})
	released(&d.b.recDefault, index, d.b.lowestRecordInited)
	return nil
}

func (d RecordDevice) Info() (DeviceInfo, error) {
	var raw native.DeviceInfo
	err := d.b.call("RecordGetDeviceInfo", func(t native.Thread) bool {
		return t.RecordGetDeviceInfo(uint32(d.index), &raw)
	})
	if err != nil {
		return DeviceInfo{}, err
	}
	return deviceInfo(d.index, &raw), nil
}

// Record is a recording channel.
type Record struct {
	channel
}

// Free stops and frees the recording.
func (r *Record) Free() error {
	return r.free("ChannelStop", func(t native.Thread, h uint32) bool { return t.ChannelStop(h) })
}

// Start starts recording. fn receives the captured data and stops the
// recording by returning false; without fn the data is read with GetData.
func (d RecordDevice) Start(freq, chans uint32, flags native.RecordFlags, fn RecordFunc) (*Record, error) {
	var regs []*bridge.Registration
	var token uintptr
	if fn != nil {
		reg := d.b.table.Register(bridge.KindRecord, fn, false)
		regs, token = append(regs, reg), reg.Token()
	}

	e, err := d.b.spawn(spawn{
		op:     "RecordStart",
		kind:   kindRecord,
		record: true,
		index:  d.index,
		regs:   regs,
		create: func(t native.Thread) uint32 {
			return t.RecordStart(freq, chans, flags, fn != nil, token)
		},
		free: func(t native.Thread, h uint32) { t.ChannelStop(h) },
	})
	if err != nil {
		return nil, err
	}
	return &Record{channel{b: d.b, e: e}}, nil
}

// StartBuffered starts recording into a ring buffer of size bytes. Data that
// does not fit is dropped.
func (d RecordDevice) StartBuffered(freq, chans uint32, flags native.RecordFlags, size int) (*RecordBuffer, error) {
	rb := &RecordBuffer{
		ring:  ringbuffer.New(size),
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	rec, err := d.Start(freq, chans, flags, rb.write)
	if err != nil {
		return nil, err
	}
	rb.rec = rec

	// a recording freed by the engine ends the reader too
	if _, err := rec.SetSync(native.SyncFree, 0, func(context.Context, uint32) { rb.stop() }); err != nil {
		return nil, errors.Join(err, rec.Free())
	}
	return rb, nil
}

// RecordBuffer is an io.ReadCloser over a recording.
type RecordBuffer struct {
	rec  *Record
	ring *ringbuffer.RingBuffer

	ready chan struct{}

	mu      sync.Mutex
	done    chan struct{}
	stopped bool
	dropped int
}

var _ io.ReadCloser = (*RecordBuffer)(nil)

// Record is the underlying recording.
func (rb *RecordBuffer) Record() *Record { return rb.rec }

func (rb *RecordBuffer) write(_ context.Context, buf []byte) bool {
	n, err := rb.ring.Write(buf)
	if errors.Is(err, ringbuffer.ErrIsFull) || n < len(buf) {
		rb.mu.Lock()
		rb.dropped += len(buf) - n
		rb.mu.Unlock()
	}

	select {
	case rb.ready <- struct{}{}:
	default:
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()
	return !rb.stopped
}

// Dropped is the number of bytes lost to a full buffer.
func (rb *RecordBuffer) Dropped() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	return rb.dropped
}

func (rb *RecordBuffer) stop() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if !rb.stopped {
		rb.stopped = true
		close(rb.done)
	}
}

// Read blocks until recorded data is available. It returns io.EOF once the
// recording is stopped and the buffer drained.
func (rb *RecordBuffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := rb.ring.Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
			return 0, err
		}

		select {
		case <-rb.ready:
		case <-rb.done:
			if rb.ring.Length() == 0 {
				return 0, io.EOF
			}
		case <-time.After(recordPoll):
			// an input that runs dry stops the recording without a sync
			if state, err := rb.rec.IsActive(); err != nil || state == native.ActiveStopped {
				rb.stop()
			}
		}
	}
}

// Close stops and frees the recording. Data still buffered can be read.
func (rb *RecordBuffer) Close() error {
	rb.stop()
	err := rb.rec.Free()
	if errors.Is(err, ErrInvalidHandle) {
		return nil
	}
	return err
}
