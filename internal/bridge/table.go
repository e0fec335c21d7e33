// SPDX-License-Identifier: EPL-2.0

package bridge

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/ik5/audbind/internal/metrics"
	"go.uber.org/zap"
)

// Table maps tokens to registrations.
type Table struct {
	next atomic.Uintptr
	regs sync.Map
	size atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewTable returns an empty table. log and m may be nil.
func NewTable(log *zap.Logger, m *metrics.Metrics) *Table {
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Table{
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
		metrics: m,
	}
}

// Register stores fn and returns its registration. Tokens start at 1, 0 is
// never handed out.
func (t *Table) Register(kind Kind, fn any, oneShot bool) *Registration {
	r := &Registration{
		table:   t,
		token:   t.next.Add(1),
		kind:    kind,
		fn:      fn,
		oneShot: oneShot,
		drained: make(chan struct{}),
	}

	t.regs.Store(r.token, r)
	t.size.Add(1)
	t.metrics.RegistrationAdded(kind.String())
	return r
}

// Lookup resolves a token.
func (t *Table) Lookup(token uintptr) (*Registration, bool) {
	v, ok := t.regs.Load(token)
	if !ok {
		return nil, false
	}
	return v.(*Registration), true
}

// Len is the number of registrations not yet revoked.
func (t *Table) Len() int { return int(t.size.Load()) }

func (t *Table) remove(r *Registration) {
	if t.regs.CompareAndDelete(r.token, r) {
		t.size.Add(-1)
		t.metrics.RegistrationRemoved(r.kind.String())
	}
}

// Context is canceled by Close. Callback contexts derive from it.
func (t *Table) Context() context.Context { return t.ctx }

// Close cancels callback contexts and revokes every registration.
func (t *Table) Close() {
	t.cancel()
	t.regs.Range(func(_, v any) bool {
		v.(*Registration).Revoke()
		return true
	})
}

// Invoke runs call for the registration behind token. It returns false when
// the registration is gone or the call panicked; the caller then returns its
// benign result. call must not retain ctx beyond its own return.
func (t *Table) Invoke(token uintptr, kind Kind, call func(ctx context.Context, fn any)) (ok bool) {
	r, found := t.Lookup(token)
	if !found || r.kind != kind || !r.enter() {
		t.metrics.CallbackInvoked(kind.String(), metrics.ResultGone)
		return false
	}
	defer r.leave()

	if r.oneShot {
		if !r.fired.CompareAndSwap(false, true) {
			t.metrics.CallbackInvoked(kind.String(), metrics.ResultGone)
			return false
		}
		r.Revoke()
	}

	defer func() {
		if p := recover(); p != nil {
			t.log.Error("callback panicked",
				zap.Stringer("kind", kind),
				zap.Uint64("token", uint64(token)),
				zap.String("panic", fmt.Sprint(p)),
				zap.ByteString("stack", debug.Stack()))
			t.metrics.CallbackInvoked(kind.String(), metrics.ResultPanic)
			ok = false
		}
	}()

	ctx := context.WithValue(t.ctx, invocationKey{}, &invocation{reg: r})
	call(ctx, r.fn)

	t.metrics.CallbackInvoked(kind.String(), metrics.ResultOK)
	return true
}
