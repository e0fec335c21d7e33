// SPDX-License-Identifier: EPL-2.0

/*
Package bridge routes engine callbacks to Go functions.

The engine never sees a Go pointer. Each callback is stored in a Table under a
token, a monotonically increasing integer that is never reused, and the token
is what the engine hands back as its user data. When the engine calls back,
the trampoline resolves the token and enters the registration's gate:

	r, ok := table.Lookup(token)
	// r.enter() fails once r is revoked

The gate is a single atomic word holding a revoked bit and the number of
invocations in flight, so an invocation either sees the registration live and
is counted, or sees it gone and takes the benign path. Revoke flips the bit and
Fence waits until the count drains, which is how a detach guarantees that no
callback runs after it returns. A Fence issued from inside the registration's
own callback, using the callback's context, does not wait for itself.

One-shot registrations fire at most once: the first invocation wins a CAS,
revokes the registration and removes it from the table before the Go function
runs.

Panics never cross back into the engine. They are recovered at the boundary,
logged, counted and reported to the caller as a failed invocation so it can
return its benign result.
*/
package bridge
