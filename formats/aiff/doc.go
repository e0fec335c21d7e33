// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF and AIFF-C files with integer PCM samples through
// github.com/go-audio/aiff. Readers that cannot seek are buffered in memory
// first.
package aiff
