// Package correlator matches asynchronous completion messages on the response
// queue to the gateway requests waiting for them.
//
// Every waiting request drives the same shared cache: it first tries to
// consume its own result, and otherwise performs one bounded receive from the
// response queue, caching whatever arrives for whoever is waiting on it. A
// cached record stays visible until its message is deleted, and the entry is
// claimed under the cache lock before the delete is issued, so concurrent
// waiters can never return the same result twice. The lock is never held
// across queue I/O.
package correlator
