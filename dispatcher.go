// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"context"

	"github.com/ik5/audbind/internal/bridge"
	"github.com/ik5/audbind/native"
)

// Callbacks run on engine threads, possibly a real-time audio thread, and may
// run concurrently with each other. ctx is canceled when the Binding closes
// and identifies the invocation: pass it to Remove to detach a DSP or sync
// from inside its own callback. Buffers are only valid during the call.
type (
	// StreamFunc fills buf and returns the number of bytes written. end marks
	// the last data of the stream.
	StreamFunc func(ctx context.Context, buf []byte) (n int, end bool)
	// DSPFunc processes buf in place.
	DSPFunc func(ctx context.Context, buf []byte)
	// SyncFunc is called when the sync's condition is met. data depends on
	// the sync type.
	SyncFunc func(ctx context.Context, data uint32)
	// DownloadFunc receives a URL stream's data as it is downloaded. A nil
	// buf marks the end of the download.
	DownloadFunc func(ctx context.Context, buf []byte)
	// RecordFunc receives captured data and returns false to stop recording.
	RecordFunc func(ctx context.Context, buf []byte) bool
	// EncodeFunc receives encoded data.
	EncodeFunc func(ctx context.Context, buf []byte)
	// NotifyFunc receives encoder status changes.
	NotifyFunc func(ctx context.Context, status native.EncodeNotify)
)

// dispatcher routes engine callbacks to registrations. A registration that is
// gone, or a callback that panics, yields the benign result: no data for a
// stream, keep going for a recording, nothing for the rest.
type dispatcher struct {
	table *bridge.Table
}

var _ native.Dispatcher = dispatcher{}

func (d dispatcher) StreamProc(_ uint32, buf []byte, user uintptr) uint32 {
	var ret uint32
	d.table.Invoke(user, bridge.KindStream, func(ctx context.Context, fn any) {
		n, end := fn.(StreamFunc)(ctx, buf)
		n = min(max(n, 0), len(buf))
		ret = uint32(n)
		if end {
			ret |= native.StreamEnd
		}
	})
	return ret
}

func (d dispatcher) DSPProc(_, _ uint32, buf []byte, user uintptr) {
	d.table.Invoke(user, bridge.KindDSP, func(ctx context.Context, fn any) {
		fn.(DSPFunc)(ctx, buf)
	})
}

// SyncProc serves user syncs and the binding's own lifecycle syncs.
func (d dispatcher) SyncProc(_, _ uint32, data uint32, user uintptr) {
	kind := bridge.KindSync
	if r, ok := d.table.Lookup(user); ok && r.Kind() == bridge.KindLifecycle {
		kind = bridge.KindLifecycle
	}
	d.table.Invoke(user, kind, func(ctx context.Context, fn any) {
		fn.(SyncFunc)(ctx, data)
	})
}

func (d dispatcher) DownloadProc(buf []byte, user uintptr) {
	d.table.Invoke(user, bridge.KindDownload, func(ctx context.Context, fn any) {
		fn.(DownloadFunc)(ctx, buf)
	})
}

func (d dispatcher) RecordProc(_ uint32, buf []byte, user uintptr) bool {
	more := true
	d.table.Invoke(user, bridge.KindRecord, func(ctx context.Context, fn any) {
		more = fn.(RecordFunc)(ctx, buf)
	})
	return more
}

func (d dispatcher) EncodeProc(_, _ uint32, buf []byte, user uintptr) {
	d.table.Invoke(user, bridge.KindEncode, func(ctx context.Context, fn any) {
		fn.(EncodeFunc)(ctx, buf)
	})
}

func (d dispatcher) EncodeNotifyProc(_ uint32, status native.EncodeNotify, user uintptr) {
	d.table.Invoke(user, bridge.KindNotify, func(ctx context.Context, fn any) {
		fn.(NotifyFunc)(ctx, status)
	})
}
