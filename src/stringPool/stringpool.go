/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2023-6 by the Jacobin authors. Consult jacobin.org.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0) All rights reserved.
 */

// Package stringPool interns class, field, and method names so the rest of
// the runtime can pass around a uint32 index instead of copying strings.
// Every Class, once loaded, refers to its own name and its superclass's
// name through this pool (spec §3, "Class" and "Lifecycle").
package stringPool

import (
	"sync"

	"jacobin/types"
)

type pool struct {
	mu    sync.RWMutex
	byIdx []string
	byStr map[string]uint32
}

var p = newPool()

func newPool() *pool {
	pl := &pool{byStr: make(map[string]uint32)}
	// index 0 and 1 are reserved for java/lang/Object and java/lang/String,
	// per types.ObjectPoolStringIndex / types.StringPoolStringIndex.
	pl.byIdx = append(pl.byIdx, "java/lang/Object", "java/lang/String")
	pl.byStr["java/lang/Object"] = 0
	pl.byStr["java/lang/String"] = 1
	return pl
}

// Reset clears the pool back to its two reserved entries. Tests use this to
// avoid cross-test index leakage.
func Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p = newPool()
}

// GetStringIndex interns str if it is not already present and returns its
// (stable, never-reused) index.
func GetStringIndex(str string) uint32 {
	p.mu.RLock()
	if idx, ok := p.byStr[str]; ok {
		p.mu.RUnlock()
		return idx
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	// re-check: another goroutine may have inserted it while we waited for the write lock
	if idx, ok := p.byStr[str]; ok {
		return idx
	}
	idx := uint32(len(p.byIdx))
	p.byIdx = append(p.byIdx, str)
	p.byStr[str] = idx
	return idx
}

// GetStringPointer returns a pointer to the interned string at index, or nil
// if the index is out of range.
func GetStringPointer(index uint32) *string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if int(index) >= len(p.byIdx) {
		return nil
	}
	return &p.byIdx[index]
}

// GetStringPoolSize reports the number of interned strings, used by callers
// that bounds-check an index before dereferencing it (e.g.
// object.JavaByteArrayFromStringPoolIndex).
func GetStringPoolSize() uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return uint32(len(p.byIdx))
}

// IsObjectIndex and IsStringIndex are convenience checks against the two
// reserved indices, used when deciding whether a superclass reference is
// already java/lang/Object and needn't be loaded further (spec §4, class
// loader LoadClassFromNameOnly).
func IsObjectIndex(index uint32) bool { return index == types.ObjectPoolStringIndex }
func IsStringIndex(index uint32) bool { return index == types.StringPoolStringIndex }
