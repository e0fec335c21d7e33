// SPDX-License-Identifier: EPL-2.0

package softengine

import (
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audbind/audio"
	"github.com/ik5/audbind/formats/aiff"
	"github.com/ik5/audbind/formats/flac"
	"github.com/ik5/audbind/formats/mp3"
	"github.com/ik5/audbind/formats/vorbis"
	"github.com/ik5/audbind/formats/wav"
	"github.com/ik5/audbind/native"
	"go.uber.org/zap"
)

const noDevice = native.FailDWORD

// Registry format keys.
const (
	FormatWAV    = "wav"
	FormatMP3    = "mp3"
	FormatVorbis = "ogg"
	FormatAIFF   = "aiff"
	FormatFLAC   = "flac"
)

// DefaultRegistry returns a registry with every decoder of the formats
// packages.
func DefaultRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register(FormatWAV, wav.Decoder{})
	r.Register(FormatMP3, mp3.Decoder{})
	r.Register(FormatVorbis, vorbis.Decoder{})
	r.Register(FormatAIFF, aiff.Decoder{})
	r.Register(FormatFLAC, flac.Decoder{})
	return r
}

// Input opens the capture source of a recording device.
type Input func() (audio.Source, error)

type inputSpec struct {
	name string
	open Input
}

// Option configures an Engine.
type Option func(*Engine)

// WithDevices replaces the output devices. Device 0, "No sound", is always
// present in front of them.
func WithDevices(names ...string) Option {
	return func(e *Engine) {
		e.deviceNames = names
	}
}

// WithInput adds a recording device.
func WithInput(name string, open Input) Option {
	return func(e *Engine) {
		e.inputs = append(e.inputs, inputSpec{name: name, open: open})
	}
}

// WithOutput sets how a device renders once initialized.
func WithOutput(newOutput func(device int) Output) Option {
	return func(e *Engine) {
		e.newOutput = newOutput
	}
}

// WithHTTPClient sets the client used by URL streams.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		e.client = c
	}
}

// WithRegistry sets the decoders used by file, memory, URL, sample and music
// loading.
func WithRegistry(r *audio.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithRecordPeriod sets how often recordings deliver data.
func WithRecordPeriod(d time.Duration) Option {
	return func(e *Engine) {
		e.recordPeriod = d
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

type dispatcherBox struct {
	d native.Dispatcher
}

// Engine implements native.Library.
type Engine struct {
	mu      sync.Mutex
	closed  bool
	devices []*device
	records []*recordDevice
	objects map[uint32]any
	free    []uint32
	next    uint32
	config  map[native.ConfigOption]uint32

	lastInit    uint32
	lastRecInit uint32

	disp atomic.Pointer[dispatcherBox]
	wg   sync.WaitGroup

	deviceNames  []string
	inputs       []inputSpec
	newOutput    func(device int) Output
	client       *http.Client
	registry     *audio.Registry
	recordPeriod time.Duration
	log          *zap.Logger
}

var _ native.Library = (*Engine)(nil)

// New returns an engine with one output device and no recording device unless
// configured otherwise.
func New(opts ...Option) *Engine {
	e := &Engine{
		objects:      make(map[uint32]any),
		config:       defaultConfig(),
		lastInit:     noDevice,
		lastRecInit:  noDevice,
		deviceNames:  []string{"Default"},
		newOutput:    func(int) Output { return NewManualOutput() },
		client:       http.DefaultClient,
		recordPeriod: 10 * time.Millisecond,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = DefaultRegistry()
	}

	e.devices = append(e.devices, newDevice(0, "No sound", ""))
	for i, name := range e.deviceNames {
		e.devices = append(e.devices, newDevice(uint32(i+1), name, "soft"))
	}
	for i, in := range e.inputs {
		e.records = append(e.records, &recordDevice{
			index: uint32(i),
			name:  native.EncodeString(in.name, false),
			open:  in.open,
		})
	}
	return e
}

func defaultConfig() map[native.ConfigOption]uint32 {
	return map[native.ConfigOption]uint32{
		native.ConfigBuffer:        500,
		native.ConfigUpdatePeriod:  10,
		native.ConfigGVolSample:    10000,
		native.ConfigGVolStream:    10000,
		native.ConfigGVolMusic:     10000,
		native.ConfigFloatDSP:      0,
		native.ConfigNetTimeout:    5000,
		native.ConfigNetBuffer:     5000,
		native.ConfigPauseNoPlay:   0,
		native.ConfigNetPrebuf:     75,
		native.ConfigRecBuffer:     2000,
		native.ConfigVerify:        0x4000,
		native.ConfigUpdateThreads: 1,
		native.ConfigDevBuffer:     30,
	}
}

// Call runs fn on a locked OS thread with fresh frame state. The frame starts
// on the most recently initialized device.
func (e *Engine) Call(fn func(t native.Thread)) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.mu.Lock()
	t := &thread{e: e, device: e.lastInit, record: e.lastRecInit}
	e.mu.Unlock()

	fn(t)
}

func (e *Engine) SetDispatcher(d native.Dispatcher) {
	e.disp.Store(&dispatcherBox{d: d})
}

func (e *Engine) dispatcher() native.Dispatcher {
	if b := e.disp.Load(); b != nil {
		return b.d
	}
	return nil
}

// Close frees every device and waits for background work to stop.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true

	var ev events
	for _, d := range e.devices {
		if d.inited {
			ev = append(ev, e.freeDevice(d)...)
		}
	}
	for _, r := range e.records {
		if r.inited {
			ev = append(ev, e.freeRecordDevice(r)...)
		}
	}
	e.mu.Unlock()

	ev.run()
	e.wg.Wait()
	return nil
}

// alloc hands out the most recently freed handle value first.
func (e *Engine) alloc(obj any) uint32 {
	var h uint32
	if n := len(e.free); n > 0 {
		h = e.free[n-1]
		e.free = e.free[:n-1]
	} else {
		e.next++
		h = e.next
	}
	e.objects[h] = obj
	return h
}

// release frees h if it still refers to obj.
func (e *Engine) release(h uint32, obj any) {
	if cur, ok := e.objects[h]; !ok || cur != obj {
		return
	}
	delete(e.objects, h)
	e.free = append(e.free, h)
}

func (e *Engine) channel(h uint32) (*channel, native.Code) {
	c, ok := e.objects[h].(*channel)
	if !ok || c.freed {
		return nil, native.ErrorHandle
	}
	return c, native.ErrorOK
}

func (e *Engine) anyInited() bool {
	for _, d := range e.devices {
		if d.inited {
			return true
		}
	}
	return false
}

// events are deferred side effects run after the engine lock is released.
type events []func()

func (ev events) run() {
	for _, fn := range ev {
		fn()
	}
}
