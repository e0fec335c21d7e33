// SPDX-License-Identifier: EPL-2.0

package audbind

import "github.com/ik5/audbind/native"

// Session is a goroutine's device selection: the engine's per-thread current
// device made explicit. A Session must not be shared between goroutines;
// each goroutine of control uses its own and never sees another's selection.
type Session struct {
	b *Binding

	selected    int
	hasSelected bool
	lastInit    int
	hasInit     bool

	record    int
	hasRecord bool
}

// NewSession returns a session with nothing selected.
func (b *Binding) NewSession() *Session {
	return &Session{b: b}
}

// SetDevice selects output device index. It never fails: an unusable
// selection is reported by the next call made through Device.
func (s *Session) SetDevice(index int) {
	s.selected, s.hasSelected = index, true
}

// Device returns the selected device. Without a selection it falls back to
// the device last initialized through s, then to the lowest numbered
// initialized device, then to -1.
func (s *Session) Device() Device {
	switch {
	case s.hasSelected:
		return s.b.Device(s.selected)
	case s.hasInit:
		return s.b.Device(s.lastInit)
	}
	if i, ok := s.b.lowestInited(); ok {
		return s.b.Device(i)
	}
	return s.b.Device(-1)
}

// Init initializes device index and makes it the session's fallback device.
func (s *Session) Init(index int, freq uint32, flags native.InitFlags) (Device, error) {
	d, err := s.b.Device(index).Init(freq, flags)
	if err != nil {
		return d, err
	}
	s.lastInit, s.hasInit = d.Index(), true
	return d, nil
}

// SetRecordDevice selects recording device index, independently of the
// output selection.
func (s *Session) SetRecordDevice(index int) {
	s.record, s.hasRecord = index, true
}

// RecordDevice returns the selected recording device, or the default (-1).
func (s *Session) RecordDevice() RecordDevice {
	if s.hasRecord {
		return s.b.RecordDevice(s.record)
	}
	return s.b.RecordDevice(-1)
}
