// SPDX-License-Identifier: EPL-2.0

package audbind

import "github.com/ik5/audbind/internal/pin"

// Pinner pins caller buffers handed to the engine. The default is backed by
// runtime.Pinner; tests substitute a counting implementation.
type Pinner = pin.Pinner

// Pin is one pinned buffer.
type Pin = pin.Pin

// RuntimePinner returns the default Pinner.
func RuntimePinner() Pinner { return pin.Runtime() }
