// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/ik5/audbind/internal/bridge"
	"github.com/ik5/audbind/internal/metrics"
	"github.com/patrickmn/go-cache"
)

// Handle kinds, as reported in metrics.
const (
	kindStream        = "stream"
	kindPushStream    = "push_stream"
	kindSample        = "sample"
	kindSampleChannel = "sample_channel"
	kindMusic         = "music"
	kindRecord        = "record"
	kindEncoder       = "encoder"
)

// owner is the device an entry was created on.
type owner struct {
	record bool
	index  uint32
}

// entry is the Go side state of one engine handle. Wrappers hold their entry,
// never just the handle value, so a wrapper outliving its handle keeps
// reporting invalid handle after the value has been reissued.
type entry struct {
	handle uint32
	kind   string
	owner  owner
	parent *entry

	dead atomic.Bool

	// lifecycle is the engine FREE sync. It outlives an explicit free when
	// the entry holds pins, since only the engine knows when it stopped
	// reading them.
	lifecycle *bridge.Registration

	mu   sync.Mutex
	regs []*bridge.Registration
	// freeSyncs are user FREE syncs. They fire after the lifecycle sync, so
	// killing the entry leaves them to the engine.
	freeSyncs []*bridge.Registration
	pins      []Pin
	children  []*entry
}

// addReg attaches reg to e, or revokes it when e is already gone.
func (e *entry) addReg(reg *bridge.Registration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dead.Load() {
		reg.Revoke()
		return false
	}
	e.regs = append(e.regs, reg)
	return true
}

// addFreeSync attaches a one-shot FREE sync registration to e.
func (e *entry) addFreeSync(reg *bridge.Registration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dead.Load() {
		reg.Revoke()
		return false
	}
	e.freeSyncs = append(e.freeSyncs, reg)
	return true
}

func (e *entry) dropReg(reg *bridge.Registration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i := slices.Index(e.regs, reg); i >= 0 {
		e.regs = slices.Delete(e.regs, i, i+1)
	}
	if i := slices.Index(e.freeSyncs, reg); i >= 0 {
		e.freeSyncs = slices.Delete(e.freeSyncs, i, i+1)
	}
}

func (e *entry) addChild(c *entry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dead.Load() {
		return false
	}
	e.children = append(e.children, c)
	return true
}

func (e *entry) dropChild(c *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i := slices.Index(e.children, c); i >= 0 {
		e.children = slices.Delete(e.children, i, i+1)
	}
}

type cachedInfo struct {
	e    *entry
	info ChannelInfo
}

// registry tracks live entries by handle value. Removal is identity checked:
// a late cleanup for a value the engine has already reissued leaves the new
// entry alone.
type registry struct {
	mu      sync.Mutex
	entries map[uint32]*entry
	pinned  map[*entry]struct{}
	info    *cache.Cache
	metrics *metrics.Metrics
}

func newRegistry(m *metrics.Metrics) *registry {
	return &registry{
		entries: make(map[uint32]*entry),
		pinned:  make(map[*entry]struct{}),
		// no janitor: entries leave the cache when their handle dies
		info:    cache.New(cache.NoExpiration, 0),
		metrics: m,
	}
}

// track registers a freshly created handle. An entry still filed under the
// same value belongs to a handle the engine has destroyed and reissued; its
// pins wait for its own FREE sync.
func (r *registry) track(e *entry) {
	r.mu.Lock()
	old := r.entries[e.handle]
	if !e.dead.Load() {
		r.entries[e.handle] = e
	}
	// the FREE sync may already have taken the pins
	e.mu.Lock()
	holdsPins := len(e.pins) > 0
	e.mu.Unlock()
	if holdsPins {
		r.pinned[e] = struct{}{}
	}
	r.mu.Unlock()

	if old != nil {
		r.kill(old)
	}
	r.metrics.HandleOpened(e.kind)
}

// adopt makes e die with parent. Encoders live in their own value space and
// are only ever adopted; sample channels are tracked and adopted.
func (r *registry) adopt(parent, e *entry) bool {
	e.parent = parent
	return parent.addChild(e)
}

func (r *registry) lookup(handle uint32) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[handle]
	return e, ok
}

func cacheKey(handle uint32) string { return strconv.FormatUint(uint64(handle), 10) }

func (r *registry) cachedInfo(e *entry) (ChannelInfo, bool) {
	v, ok := r.info.Get(cacheKey(e.handle))
	if !ok {
		return ChannelInfo{}, false
	}
	c := v.(cachedInfo)
	if c.e != e || e.dead.Load() {
		return ChannelInfo{}, false
	}
	return c.info, true
}

func (r *registry) storeInfo(e *entry, info ChannelInfo) {
	if !e.dead.Load() {
		r.info.Set(cacheKey(e.handle), cachedInfo{e: e, info: info}, cache.NoExpiration)
	}
}

func (r *registry) dropInfo(e *entry) {
	key := cacheKey(e.handle)
	if v, ok := r.info.Get(key); ok && v.(cachedInfo).e == e {
		r.info.Delete(key)
	}
}

// kill invalidates e and everything attached to it. Pins stay until the
// engine confirms it is done with them, see destroyed.
func (r *registry) kill(e *entry) {
	if !e.dead.CompareAndSwap(false, true) {
		return
	}

	r.mu.Lock()
	if r.entries[e.handle] == e {
		delete(r.entries, e.handle)
	}
	r.mu.Unlock()
	r.dropInfo(e)
	if e.parent != nil {
		e.parent.dropChild(e)
	}

	e.mu.Lock()
	regs, children := e.regs, e.children
	e.regs, e.children, e.freeSyncs = nil, nil, nil
	holdsPins := len(e.pins) > 0
	e.mu.Unlock()

	for _, reg := range regs {
		reg.Revoke()
	}
	if e.lifecycle != nil && !holdsPins {
		e.lifecycle.Revoke()
	}
	for _, c := range children {
		r.destroyed(c)
	}
	r.metrics.HandleClosed(e.kind)
}

// destroyed handles a handle the engine has freed: e is invalidated and its
// pins released.
func (r *registry) destroyed(e *entry) {
	r.kill(e)

	e.mu.Lock()
	pins := e.pins
	e.pins = nil
	e.mu.Unlock()

	if e.lifecycle != nil {
		e.lifecycle.Revoke()
	}
	if len(pins) == 0 {
		return
	}

	r.mu.Lock()
	delete(r.pinned, e)
	r.mu.Unlock()

	for _, p := range pins {
		p.Release()
		r.metrics.PinReleased()
	}
}

// destroyOwned handles a device free: every entry created on the device is
// gone on the engine side.
func (r *registry) destroyOwned(o owner) {
	r.mu.Lock()
	var gone []*entry
	for _, e := range r.entries {
		if e.owner == o {
			gone = append(gone, e)
		}
	}
	// freed by the caller, still holding pins the engine has now let go of
	for e := range r.pinned {
		if e.owner == o && e.dead.Load() {
			gone = append(gone, e)
		}
	}
	r.mu.Unlock()

	for _, e := range gone {
		r.destroyed(e)
	}
}

// drain releases everything once the engine is unloaded.
func (r *registry) drain() {
	r.mu.Lock()
	gone := make([]*entry, 0, len(r.entries)+len(r.pinned))
	for _, e := range r.entries {
		gone = append(gone, e)
	}
	for e := range r.pinned {
		gone = append(gone, e)
	}
	r.mu.Unlock()

	for _, e := range gone {
		r.destroyed(e)
	}
}
