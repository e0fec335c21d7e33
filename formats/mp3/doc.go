// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1/2 Layer III audio through
// github.com/hajimehoshi/go-mp3. Output is always stereo at the stream's
// sample rate.
//
//	src, err := mp3.Decoder{}.Decode(file)
package mp3
