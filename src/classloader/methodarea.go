/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"fmt"
	"sync"

	"jacobin/trace"

	"github.com/dolthub/swiss"
)

// Classes is the method area (spec §3, "MethodArea"): every class known to
// the VM, keyed by its internal name, regardless of which of the three
// classloaders posted it. Use MethAreaFetch and MethAreaInsert to read and
// write it.
var Classes = struct {
	sync.RWMutex
	m map[string]*Klass
}{m: make(map[string]*Klass)}

// MTable is the JVM-wide method table (spec §4.F, "method table"): a flat,
// lock-friendly index from (class+name+descriptor) to its resolved body,
// separate from the per-class MethodTable so that dispatch can look a
// method up without walking to its class's data first. swiss.Map gives
// open-addressing reads that stay fast under concurrent lookup pressure
// (spec §4.F: "reads must not serialize on a single mutex"), matching how
// the dispatch resolver's cache is built (see dispatch/dispatch.go).
var MTable = swiss.NewMap[string, *MTentry](1024)
var mtableLock sync.RWMutex

// InitMethodArea resets Classes and MTable. Called once at VM startup by
// classloader.Init.
func InitMethodArea() {
	Classes.Lock()
	Classes.m = make(map[string]*Klass)
	Classes.Unlock()

	mtableLock.Lock()
	MTable = swiss.NewMap[string, *MTentry](1024)
	mtableLock.Unlock()
}

// MethAreaFetch returns the Klass registered under name, or nil if none
// has been posted yet.
func MethAreaFetch(name string) *Klass {
	Classes.RLock()
	defer Classes.RUnlock()
	return Classes.m[name]
}

// MethAreaInsert posts (or replaces) the Klass registered under name.
func MethAreaInsert(name string, k *Klass) {
	Classes.Lock()
	Classes.m[name] = k
	Classes.Unlock()
}

// MTablePut installs a resolved method body under key (className + "." +
// name + descriptor), overwriting silently -- redefinition mid-run is a
// classloader-level error caught long before dispatch ever calls this.
func MTablePut(key string, entry *MTentry) {
	mtableLock.Lock()
	MTable.Put(key, entry)
	mtableLock.Unlock()
}

// MTableGet looks up a previously resolved method body.
func MTableGet(key string) (*MTentry, bool) {
	mtableLock.RLock()
	defer mtableLock.RUnlock()
	return MTable.Get(key)
}

// WaitForClassStatus returns the class once its status is no longer
// StatusInitializing, or an error if it was never posted at all. While the
// class is still initializing it polls: it releases the lock, re-acquires it
// and checks again, in a loop with no sleep and no condition variable, so a
// waiting caller busy-waits.
func WaitForClassStatus(name string) (*Klass, error) {
	Classes.Lock()
	for {
		k, ok := Classes.m[name]
		if ok && k.Status != StatusInitializing {
			Classes.Unlock()
			return k, nil
		}
		if !ok {
			Classes.Unlock()
			return nil, fmt.Errorf("WaitForClassStatus: class %s was never posted to the method area", name)
		}
		Classes.Unlock()
		trace.Trace("WaitForClassStatus: " + name + " still loading, yielding")
		// Cooperative re-check: the class is mid-load on another goroutine.
		// A real condition variable keyed per class name would avoid this
		// poll entirely; Go's sync.Cond doesn't support a timed wait, so we
		// fall back to a short re-check rather than block forever on a load
		// that errors out before ever changing status.
		Classes.Lock()
	}
}

// FetchMethodAndCP resolves className's method (identified by a bare
// "name"+"descriptor" key, e.g. "<clinit>()V") and returns its MTentry
// (tagged 'J' for a Java body or 'G' for a native intrinsic the gfunction
// package has registered) together with the defining class's constant
// pool, used by the frame engine to build a call frame (spec §4.E, "Frame
// contract").
func FetchMethodAndCP(className, methodKey string) (*MTentry, *CPool, error) {
	k := MethAreaFetch(className)
	if k == nil || k.Data == nil {
		return nil, nil, fmt.Errorf("FetchMethodAndCP: class %s not loaded", className)
	}

	tableKey := className + "." + methodKey
	if entry, ok := MTableGet(tableKey); ok {
		return entry, &k.Data.CP, nil
	}

	if native, ok := NativeMethodLookup(className, methodKey); ok {
		MTablePut(tableKey, native)
		return native, &k.Data.CP, nil
	}

	m, ok := k.Data.MethodTable[methodKey]
	if !ok {
		return nil, nil, fmt.Errorf("FetchMethodAndCP: %s has no method %s", className, methodKey)
	}
	jme := &JmEntry{
		AccessFlags: m.AccessFlags,
		MaxStack:    m.CodeAttr.MaxStack,
		MaxLocals:   m.CodeAttr.MaxLocals,
		Code:        m.CodeAttr.Code,
		Exceptions:  m.CodeAttr.Exceptions,
		Attribs:     m.Attributes,
		Cp:          &k.Data.CP,
		params:      m.Parameters,
		deprecated:  m.Deprecated,
	}
	jme.CodeAttr.Exceptions = m.CodeAttr.Exceptions
	jme.CodeAttr.Attributes = m.CodeAttr.Attributes
	jme.CodeAttr.BytecodeSourceMap = m.CodeAttr.BytecodeSourceMap
	entry := &MTentry{Meth: jme, MType: 'J'}
	MTablePut(tableKey, entry)
	return entry, &k.Data.CP, nil
}

// NativeMethodLookup is installed by the gfunction package at startup so
// that classloader can resolve a Go-native method body without importing
// gfunction (which imports classloader's types), avoiding a cycle.
var NativeMethodLookup = func(className, methodKey string) (*MTentry, bool) {
	return nil, false
}

// FetchUTF8stringFromCPEntryNumber returns the UTF-8 string at index idx
// in cp, or "" if idx doesn't name a UTF-8 entry. A thin convenience used
// throughout the interpreter and object instantiation.
func FetchUTF8stringFromCPEntryNumber(cp *CPool, idx uint16) string {
	if cp == nil || int(idx) >= len(cp.CpIndex) {
		return ""
	}
	entry := cp.CpIndex[idx]
	if entry.Type != UTF8 {
		return ""
	}
	if int(entry.Slot) >= len(cp.Utf8Refs) {
		return ""
	}
	return cp.Utf8Refs[entry.Slot]
}

func noMainError(className string) error {
	return fmt.Errorf("no main() method found in class %s", className)
}
