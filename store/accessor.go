// Package store provides the single mutex-guarded entry point every
// mutating station call serializes through, per spec.md §5's "single
// logical per-task mutex" concurrency model. It is a thin accessor rather
// than a free global, the same shape storage.Database already uses for the
// underlying KV handle.
package store

import "sync"

// Accessor serializes access to the station's mutable state. One Accessor
// is shared by api/httpapi's mutating handlers and the scheduler's
// background jobs, so a request's creation/approval/execution never
// interleaves with a concurrent scheduler batch touching the same rows.
type Accessor struct {
	mu sync.Mutex
}

// New constructs an Accessor.
func New() *Accessor { return &Accessor{} }

// Do runs fn while holding the accessor's lock, returning fn's error.
func (a *Accessor) Do(fn func() error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn()
}
