// SPDX-License-Identifier: EPL-2.0

package audbind

import (
	"testing"

	"github.com/ik5/audbind/internal/audiotest"
	"github.com/ik5/audbind/internal/metrics"
	"github.com/ik5/audbind/internal/pin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// A FREE sync can fire between the engine call that created a handle and the
// registry learning about it.
func TestRegistry_TrackRacesFreeSync(t *testing.T) {
	t.Parallel()

	m, err := metrics.New(nil)
	require.NoError(t, err)
	r := newRegistry(m)
	pins := audiotest.NewCountingPinner()

	for i := range 200 {
		e := &entry{
			kind:   kindStream,
			handle: uint32(i + 1),
			pins:   []Pin{pin.Once(pins.Pin(make([]byte, 8)))},
		}

		var g errgroup.Group
		g.Go(func() error {
			r.track(e)
			return nil
		})
		g.Go(func() error {
			r.destroyed(e)
			return nil
		})
		require.NoError(t, g.Wait())
	}

	assert.Zero(t, pins.Active())
	assert.Zero(t, pins.DoubleReleases())
	assert.Empty(t, r.entries)
	assert.Empty(t, r.pinned, "entries kept for pins already released")
}
