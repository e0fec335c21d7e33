// SPDX-License-Identifier: EPL-2.0

package softengine

import (
	"sync"
	"time"
)

// RenderFunc fills dst with interleaved float32 frames of the device mix.
type RenderFunc func(dst []float32)

// Output drives a device's mix.
type Output interface {
	Start(freq, chans int, render RenderFunc) error
	Stop() error
}

// ManualOutput renders only when asked to.
type ManualOutput struct {
	mu     sync.Mutex
	chans  int
	render RenderFunc
}

func NewManualOutput() *ManualOutput { return &ManualOutput{} }

func (m *ManualOutput) Start(_, chans int, render RenderFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.chans = chans
	m.render = render
	return nil
}

func (m *ManualOutput) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.render = nil
	return nil
}

// Running reports whether the output is started.
func (m *ManualOutput) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.render != nil
}

// Render mixes frames frames. A stopped output renders nothing.
func (m *ManualOutput) Render(frames int) []float32 {
	m.mu.Lock()
	render, chans := m.render, m.chans
	m.mu.Unlock()

	if render == nil {
		return nil
	}

	dst := make([]float32, frames*chans)
	render(dst)
	return dst
}

// TickerOutput renders in real time and discards the result.
type TickerOutput struct {
	period time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewTickerOutput(period time.Duration) *TickerOutput {
	return &TickerOutput{period: period}
}

func (t *TickerOutput) Start(freq, chans int, render RenderFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stop != nil {
		return nil
	}

	frames := max(1, int(int64(freq)*int64(t.period)/int64(time.Second)))
	stop := make(chan struct{})
	done := make(chan struct{})
	t.stop, t.done = stop, done

	go func() {
		defer close(done)

		ticker := time.NewTicker(t.period)
		defer ticker.Stop()

		buf := make([]float32, frames*chans)
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				render(buf)
			}
		}
	}()
	return nil
}

func (t *TickerOutput) Stop() error {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}
