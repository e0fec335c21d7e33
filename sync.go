// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"context"

	"github.com/ik5/audbind/internal/bridge"
	"github.com/ik5/audbind/native"
)

// DSP is a function in a channel's DSP chain.
type DSP struct {
	b      *Binding
	ch     *entry
	handle uint32
	reg    *bridge.Registration
}

func (d *DSP) Handle() uint32 { return d.handle }

// Remove takes the DSP out of the chain and waits until no invocation of it
// is running, other than the one ctx belongs to when called from the DSP
// itself. ctx bounds the wait.
func (d *DSP) Remove(ctx context.Context) error {
	return detach(ctx, d.b, "ChannelRemoveDSP", d.ch, d.reg, func(t native.Thread) bool {
		return t.ChannelRemoveDSP(d.ch.handle, d.handle)
	})
}

// Sync is a callback on a channel event.
type Sync struct {
	b      *Binding
	ch     *entry
	handle uint32
	reg    *bridge.Registration
}

func (s *Sync) Handle() uint32 { return s.handle }

// Remove removes the sync and waits as DSP.Remove does. A one-time sync that
// has fired is already gone and reports an invalid handle.
func (s *Sync) Remove(ctx context.Context) error {
	return detach(ctx, s.b, "ChannelRemoveSync", s.ch, s.reg, func(t native.Thread) bool {
		return t.ChannelRemoveSync(s.ch.handle, s.handle)
	})
}
