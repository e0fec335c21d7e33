// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes PCM WAV files.
//
// Decoding goes through github.com/go-audio/wav and supports integer PCM at
// 16, 24 and 32 bits with any channel count and sample rate:
//
//	src, err := wav.Decoder{}.Decode(file)
//
// Decoder also implements audio.Sniffer, so it can be registered for
// audio.Registry.Probe.
//
// Header produces the canonical 44-byte header, including the open ended
// variant used when streaming to a writer that cannot seek back. FileWriter
// writes seekable files and patches the sizes on Close.
package wav
