// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"context"
	"sync/atomic"

	"github.com/ik5/audbind/native"
)

// Encoder encodes a channel's output.
type Encoder struct {
	b      *Binding
	e      *entry
	notify atomic.Pointer[NotifyFunc]
}

func (enc *Encoder) Handle() uint32 { return enc.e.handle }

// SetNotify sets the function told about status changes, nil to stop.
func (enc *Encoder) SetNotify(fn NotifyFunc) {
	if fn == nil {
		enc.notify.Store(nil)
		return
	}
	enc.notify.Store(&fn)
}

func (enc *Encoder) notified(ctx context.Context, status native.EncodeNotify) {
	if status == native.EncodeNotifyFree {
		enc.b.reg.kill(enc.e)
	}
	if fn := enc.notify.Load(); fn != nil {
		(*fn)(ctx, status)
	}
}

func (enc *Encoder) do(op string, fn func(t native.Thread, h uint32) bool) error {
	if enc.e.dead.Load() {
		return enc.b.invalid(op)
	}
	return enc.b.call(op, func(t native.Thread) bool {
		return fn(t, enc.e.handle)
	})
}

// Stop stops and frees the encoder.
func (enc *Encoder) Stop() error {
	err := enc.do("EncodeStop", func(t native.Thread, h uint32) bool {
		return t.EncodeStop(h)
	})
	if err != nil {
		return err
	}
	enc.b.reg.kill(enc.e)
	return nil
}

func (enc *Encoder) IsActive() (native.ActiveState, error) {
	state := native.ActiveStopped
	err := enc.do("EncodeIsActive", func(t native.Thread, h uint32) bool {
		state = t.EncodeIsActive(h)
		return state != native.ActiveStopped || t.ErrorGetCode() == native.ErrorOK
	})
	return state, err
}
