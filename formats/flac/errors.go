// SPDX-License-Identifier: EPL-2.0

package flac

import "errors"

var (
	// ErrUnsupportedBitDepth indicates a sample size other than 8, 16, 24 or 32 bits
	ErrUnsupportedBitDepth = errors.New("unsupported FLAC bit depth")

	// ErrInvalidStreamInfo indicates a stream without channels or sample rate
	ErrInvalidStreamInfo = errors.New("invalid FLAC stream info")
)
