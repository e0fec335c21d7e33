// SPDX-License-Identifier: EPL-2.0

// Package audbind binds Go to a BASS style native audio engine.
//
// The engine keeps a "current device" per OS thread and reports failures
// through a per thread last-error value. Both are hidden here: every call
// runs inside one locked call frame that selects the device, makes the call
// and reads the error code before anything else reaches the engine.
//
// # Devices and sessions
//
// A Device names an output device explicitly:
//
//	b, _ := audbind.Open("libbass.so")
//	defer b.Close()
//
//	dev, _ := b.Device(-1).Init(44100, 0)
//	stream, _ := dev.StreamFromFile("song.ogg", 0, 0, 0)
//	stream.Play(false)
//
// A Session carries a goroutine's selection for code written around the
// engine's implicit current device:
//
//	s := b.NewSession()
//	s.SetDevice(2)
//	s.Device().SetVolume(0.5)
//
// # Handles
//
// Streams, samples, music, recordings and encoders are typed wrappers. A
// wrapper keeps reporting ErrInvalidHandle once its handle is gone, even after
// the engine has handed the same value to a new channel. Handles die when
// freed, when their device is freed, when their sample is freed and when the
// engine frees them on its own (auto-free channels).
//
// # Callbacks
//
// Stream, DSP, sync, download, record and encoder callbacks run on engine
// threads. A callback that panics is logged and treated as if it produced
// nothing. DSP.Remove and Sync.Remove return once no invocation is running;
// pass the callback's own context to remove it from inside itself.
//
// # Memory
//
// StreamFromMemory keeps the caller's buffer pinned for as long as the
// engine reads it, which is until the engine reports the stream freed.
// LoadSample and LoadMusic copy their input and pin it only during the call.
//
// New binds to any native.Library, which is how the pure Go engine in
// internal/softengine stands in for the shared library.
package audbind
