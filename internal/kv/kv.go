// Package kv defines the key-value substrate the cart manager persists
// through: a synchronous string store plus a change subscription, so state
// written by another process (or another session over the same store) can be
// observed and re-read.
package kv

// Store is a durable key→string store with change notification.
//
// Get, Set and Remove are synchronous. Set and Remove failures are returned
// to the caller but the substrate stays usable; callers decide whether a
// failed write is fatal (the cart manager treats it as best-effort).
//
// Subscribe registers a callback invoked after any key changes. The
// notification carries the changed key only as a hint; observers are
// expected to re-read whatever state they depend on rather than trust it.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
	Subscribe(fn func(key string)) (unsubscribe func())
}
