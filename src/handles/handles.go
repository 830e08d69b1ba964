/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package handles implements the minimal per-VM capability handle map called
// for in spec §5 ("File and network handles...registered with a per-VM
// handle map keyed by a platform-appropriate identifier"). It models the
// capability only; the OS-specific intrinsics that would populate it
// (java.io/java.nio native methods) are external collaborators, out of core
// scope per spec §1, and are not implemented here -- see
// ristretto_vm/src/handles.rs, which this package is grounded on.
package handles

import (
	"sync"
	"sync/atomic"
)

// Handle is an opaque, platform-appropriate identifier for an open OS
// resource (file descriptor, socket, etc.). The zero value is never valid.
type Handle uint64

// Table is a single-writer/many-reader registry of open handles, scoped so
// that a frame unwind can release everything it opened (spec §5,
// try-with-resources idiom at the class-format level).
type Table struct {
	mu      sync.RWMutex
	next    uint64
	entries map[Handle]any
}

func NewTable() *Table {
	return &Table{entries: make(map[Handle]any)}
}

// Register adds a new resource and returns the handle that names it.
func (t *Table) Register(resource any) Handle {
	h := Handle(atomic.AddUint64(&t.next, 1))
	t.mu.Lock()
	t.entries[h] = resource
	t.mu.Unlock()
	return h
}

// Lookup returns the resource registered under h, or false if it is unknown
// or already released.
func (t *Table) Lookup(h Handle) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[h]
	return v, ok
}

// Release removes a handle. It is idempotent: releasing an already-released
// or unknown handle is a no-op, matching how a finally-block frame unwind
// may race a normal close().
func (t *Table) Release(h Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, h)
}

// ReleaseAll drops every handle in handles -- called when a frame holding a
// try-with-resources block unwinds via an uncaught exception.
func (t *Table) ReleaseAll(toRelease []Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, h := range toRelease {
		delete(t.entries, h)
	}
}

// Len reports the number of live handles, used by tests and diagnostics.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
