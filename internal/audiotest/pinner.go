// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"sync"
	"unsafe"

	"github.com/ik5/audbind/internal/pin"
)

// CountingPinner is a pin.Pinner that records every pin and release. It does
// not actually pin; tests keep their buffers reachable themselves.
type CountingPinner struct {
	mu       sync.Mutex
	pinned   int
	released int
	double   int
	active   map[*countedPin]struct{}
}

func NewCountingPinner() *CountingPinner {
	return &CountingPinner{active: make(map[*countedPin]struct{})}
}

func (c *CountingPinner) Pin(buf []byte) pin.Pin {
	p := &countedPin{owner: c, buf: buf}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pinned++
	c.active[p] = struct{}{}
	return p
}

// Active is the number of pins not yet released.
func (c *CountingPinner) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.active)
}

// Pinned is the number of Pin calls.
func (c *CountingPinner) Pinned() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pinned
}

// Released is the number of first releases.
func (c *CountingPinner) Released() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.released
}

// DoubleReleases counts releases of an already released pin.
func (c *CountingPinner) DoubleReleases() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.double
}

type countedPin struct {
	owner *CountingPinner
	buf   []byte
}

func (p *countedPin) Pointer(offset int) unsafe.Pointer {
	return pin.Address(p.buf, offset)
}

func (p *countedPin) Release() {
	c := p.owner
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.active[p]; !ok {
		c.double++
		return
	}
	delete(c.active, p)
	c.released++
}
