// SPDX-License-Identifier: EPL-2.0

// Package native describes the ABI boundary of the audio engine.
//
// The engine is a closed-source shared library with a C calling convention.
// This package holds everything that has to match that library exactly:
//
//   - error codes reported through the thread-local last-error side channel
//   - flag bitmasks, one distinct type per call family
//   - structure layouts, byte for byte
//   - the Library, Thread and Dispatcher interfaces the binding talks to
//   - a purego based loader (Open) that binds the real library at runtime
//
// # Call frames
//
// The engine keeps two pieces of state per OS thread: the current device and
// the last error. A Go goroutine may migrate between OS threads at any time, so
// every interaction goes through Library.Call, which pins the goroutine to one
// OS thread for the duration of the frame:
//
//	lib.Call(func(t native.Thread) {
//	    if !t.SetDevice(1) || !t.SetVolume(0.5) {
//	        code = t.ErrorGetCode()
//	    }
//	})
//
// Reading ErrorGetCode inside the same frame, right after the failing call, is
// the only reliable way to learn why the call failed.
//
// # Callbacks
//
// Native callbacks never carry Go pointers. Each registration is represented by
// an opaque uintptr token that the engine hands back verbatim; the Dispatcher
// maps the token back to Go state. Exactly one trampoline per callback
// signature exists per process.
//
// # Flags
//
// Numeric flag values are reused by the engine across call families. Each family
// therefore gets its own type (InitFlags, StreamFlags, SampleFlags, ...) so a
// flag meant for one call cannot be passed to another without a conversion.
// Only the subset of each catalog used by this module is declared.
package native
