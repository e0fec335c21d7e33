// SPDX-License-Identifier: EPL-2.0

package bridge

import (
	"context"
	"sync"
	"sync/atomic"
)

// Kind identifies the callback signature a registration serves.
type Kind uint8

const (
	KindStream Kind = iota + 1
	KindDSP
	KindSync
	KindDownload
	KindRecord
	KindEncode
	KindNotify
	// KindLifecycle marks the binding's own FREE syncs.
	KindLifecycle
)

var kindNames = [...]string{
	KindStream:    "stream",
	KindDSP:       "dsp",
	KindSync:      "sync",
	KindDownload:  "download",
	KindRecord:    "record",
	KindEncode:    "encode",
	KindNotify:    "notify",
	KindLifecycle: "lifecycle",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

const revokedBit = int64(1) << 62

// Registration is one callback known to the engine by its token.
type Registration struct {
	table   *Table
	token   uintptr
	kind    Kind
	fn      any
	oneShot bool

	// revoked bit | in-flight count
	gate  atomic.Int64
	fired atomic.Bool

	mu      sync.Mutex
	drained chan struct{}
}

func (r *Registration) Token() uintptr { return r.token }
func (r *Registration) Kind() Kind     { return r.kind }
func (r *Registration) OneShot() bool  { return r.oneShot }

// Func returns the registered function.
func (r *Registration) Func() any { return r.fn }

// Live reports whether the registration has not been revoked.
func (r *Registration) Live() bool { return r.gate.Load()&revokedBit == 0 }

// InFlight is the number of invocations currently running.
func (r *Registration) InFlight() int { return int(r.gate.Load() &^ revokedBit) }

func (r *Registration) enter() bool {
	for {
		v := r.gate.Load()
		if v&revokedBit != 0 {
			return false
		}
		if r.gate.CompareAndSwap(v, v+1) {
			return true
		}
	}
}

func (r *Registration) leave() {
	if v := r.gate.Add(-1); v&revokedBit != 0 {
		r.broadcast()
	}
}

func (r *Registration) broadcast() {
	r.mu.Lock()
	close(r.drained)
	r.drained = make(chan struct{})
	r.mu.Unlock()
}

func (r *Registration) changed() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.drained
}

// Revoke stops new invocations and removes the registration from its table.
// It does not wait for invocations already running, see Fence. It reports
// whether this call did the revoking.
func (r *Registration) Revoke() bool {
	old := r.gate.Or(revokedBit)
	if old&revokedBit != 0 {
		return false
	}

	r.table.remove(r)
	return true
}

// Fence blocks until no invocation of r other than the caller's own is in
// flight. r must have been revoked first. ctx is also how the caller's own
// invocation is recognized: pass the context the callback received.
func (r *Registration) Fence(ctx context.Context) error {
	self := int64(0)
	if inv, ok := ctx.Value(invocationKey{}).(*invocation); ok && inv.reg == r {
		self = 1
	}

	for {
		ch := r.changed()
		if r.gate.Load()&^revokedBit <= self {
			return nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Detach revokes r and waits for its in-flight invocations. remove runs
// between the two and is where the engine side registration is dropped.
func (r *Registration) Detach(ctx context.Context, remove func()) error {
	r.Revoke()
	if remove != nil {
		remove()
	}
	return r.Fence(ctx)
}

type invocationKey struct{}

type invocation struct {
	reg *Registration
}

// Invoking reports whether ctx belongs to an invocation of r.
func Invoking(ctx context.Context, r *Registration) bool {
	inv, ok := ctx.Value(invocationKey{}).(*invocation)
	return ok && inv.reg == r
}
