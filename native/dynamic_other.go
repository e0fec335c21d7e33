// SPDX-License-Identifier: EPL-2.0

//go:build !darwin && !linux

package native

import (
	"errors"
	"runtime"
)

// ErrNotLoaded is returned by Open when the engine library cannot be loaded.
var ErrNotLoaded = errors.New("native: engine library not loaded")

// OpenOption configures Open.
type OpenOption func()

// WithEncoder is accepted for API compatibility.
func WithEncoder(string) OpenOption { return func() {} }

// Open is not supported on this platform.
func Open(string, ...OpenOption) (Library, error) {
	return nil, errors.Join(ErrNotLoaded, errors.New("dynamic loading unsupported on "+runtime.GOOS))
}
