// SPDX-License-Identifier: EPL-2.0

/*
Package softengine is a pure Go implementation of native.Library.

It follows the engine's calling conventions closely enough to stand in for the
shared library: per call frame device and last-error state, handle values that
are recycled as soon as they are freed, callbacks delivered through the
installed native.Dispatcher, and FREE syncs fired for every way a channel can
die (explicit free, auto-free at the end, stop, sample free and device free).

Decoding goes through an audio.Registry, so streams, samples and music can be
created from anything the formats packages read. Devices render through an
Output: ManualOutput for tests, TickerOutput as a null device and the malgoout
package for real playback.

Callbacks are never invoked while the engine's lock is held. A channel's data
path is serialized, so a stream or DSP callback must not pull data from its own
channel.
*/
package softengine
