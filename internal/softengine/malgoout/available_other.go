// SPDX-License-Identifier: EPL-2.0

//go:build !cgo

// Package malgoout plays a soft engine device through miniaudio. Without cgo
// it is empty.
package malgoout

import (
	"errors"

	"github.com/ik5/audbind/internal/softengine"
)

// Available reports whether playback through miniaudio was compiled in.
const Available = false

// ErrUnavailable is returned by Start on builds without cgo.
var ErrUnavailable = errors.New("malgoout: built without cgo")

// Output is a placeholder that fails to start.
type Output struct{}

func New() *Output { return &Output{} }

func (*Output) Start(int, int, softengine.RenderFunc) error { return ErrUnavailable }
func (*Output) Stop() error                                 { return nil }
