// SPDX-License-Identifier: EPL-2.0

// Package audio is the float32 sample pipeline of the soft engine.
//
// Every decoder in formats/ yields a Source of interleaved samples in
// [-1, 1]. The engine builds on it:
//
//   - Registry.Probe picks the decoder for file, memory and URL streams,
//     samples and music by sniffing the header.
//   - MapChannels and Resampler bring a decoded source to a device's channel
//     count and rate when it is mixed, and a recording input to the requested
//     format.
//   - ReadAll decodes samples and music up front; MemorySource replays the
//     result for each channel and seeks within it.
//
// A Source signals its end with io.EOF, possibly together with the last
// samples:
//
//	for {
//		n, err := src.ReadSamples(buf)
//		process(buf[:n])
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			return err
//		}
//	}
package audio
