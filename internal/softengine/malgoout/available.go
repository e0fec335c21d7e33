// SPDX-License-Identifier: EPL-2.0

//go:build cgo

package malgoout

// Available reports whether playback through miniaudio was compiled in.
const Available = true
