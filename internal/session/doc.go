// Package session keeps conversations in memory for the lifetime of the
// process.
//
// A Session is exclusively owned by one agent loop at a time. The Store hands
// out that ownership as a lease: Acquire fails with *api.SessionBusyError while
// another request holds the session, and Release hands it back. Cancel flags a
// leased session so its loop aborts at the next iteration boundary.
//
// Idle sessions are evicted by a janitor goroutine once they have not been
// touched for the configured TTL.
package session
