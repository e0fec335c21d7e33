// SPDX-License-Identifier: EPL-2.0

package softengine

import (
	"sync"

	"github.com/ik5/audbind/native"
)

type syncCall struct {
	sync    uint32
	channel uint32
	user    uintptr
}

// fakeDispatcher records engine callbacks.
type fakeDispatcher struct {
	mu sync.Mutex

	stream func(handle uint32, buf []byte, user uintptr) uint32
	record func(handle uint32, buf []byte, user uintptr) bool

	dsps       []uintptr
	syncs      []syncCall
	downloaded []byte
	chunks     int
	dlEnded    bool
	recorded   []byte
	encoded    []byte
	notifies   []native.EncodeNotify
}

func (f *fakeDispatcher) StreamProc(handle uint32, buf []byte, user uintptr) uint32 {
	if f.stream == nil {
		return native.StreamEnd
	}
	return f.stream(handle, buf, user)
}

func (f *fakeDispatcher) DSPProc(_, _ uint32, _ []byte, user uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dsps = append(f.dsps, user)
}

func (f *fakeDispatcher) SyncProc(sync, channel, _ uint32, user uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.syncs = append(f.syncs, syncCall{sync: sync, channel: channel, user: user})
}

func (f *fakeDispatcher) DownloadProc(buf []byte, _ uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if buf == nil {
		f.dlEnded = true
		return
	}
	f.chunks++
	f.downloaded = append(f.downloaded, buf...)
}

func (f *fakeDispatcher) RecordProc(handle uint32, buf []byte, user uintptr) bool {
	f.mu.Lock()
	f.recorded = append(f.recorded, buf...)
	fn := f.record
	f.mu.Unlock()

	if fn == nil {
		return true
	}
	return fn(handle, buf, user)
}

func (f *fakeDispatcher) EncodeProc(_, _ uint32, buf []byte, _ uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.encoded = append(f.encoded, buf...)
}

func (f *fakeDispatcher) EncodeNotifyProc(_ uint32, status native.EncodeNotify, _ uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.notifies = append(f.notifies, status)
}

func (f *fakeDispatcher) syncUsers() []uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()

	users := make([]uintptr, 0, len(f.syncs))
	for _, s := range f.syncs {
		users = append(users, s.user)
	}
	return users
}

func (f *fakeDispatcher) dspUsers() []uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]uintptr(nil), f.dsps...)
}

func (f *fakeDispatcher) recordedLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.recorded)
}
