/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2023-6 by  the Jacobin authors. Consult jacobin.org.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0) All rights reserved.
 */

// Package gfunction is the external collaborator that implements a
// curated slice of the JDK's native methods directly in Go instead of
// running them as interpreted bytecode (spec §1, "native/intrinsic method
// bodies... are external collaborators, out of core scope"). It is kept
// intentionally small -- a handful of java.lang/java.io/java.util methods
// the frame engine's tests exercise -- rather than grown into a full
// standard-library reimplementation.
package gfunction

import (
	"jacobin/classloader"
)

// GMeth is one native method's registration: ParamSlots is how many
// operand-stack slots the frame engine must pop (and pass, in order) to
// GFunction before it runs.
type GMeth struct {
	ParamSlots int
	GFunction  func([]interface{}) interface{}
}

// GErrBlk is the structured-error return value a GFunction uses in place
// of a Go error, since every GFunction must return interface{} so the
// same call site handles both success values and thrown exceptions (spec
// §7, failure taxonomy applies equally to native methods).
type GErrBlk struct {
	ExceptionType int
	ErrMsg        string
}

func getGErrBlk(exceptionType int, msg string) *GErrBlk {
	return &GErrBlk{ExceptionType: exceptionType, ErrMsg: msg}
}

// justReturn is the GFunction body for native methods whose real
// implementation is a JVM-internal no-op from this VM's point of view
// (registerNatives and friends).
func justReturn([]interface{}) interface{} { return nil }

// MethodSignatures maps "class/path/ClassName.methodName(descriptor)" to
// its native implementation. Every Load_* function in this package adds
// its own entries; MethodSignatures itself is populated once by Load().
var MethodSignatures = make(map[string]GMeth)

var loaded bool

// Load populates MethodSignatures and wires classloader's dispatch path
// to it, so that FetchMethodAndCP can resolve a native method without
// classloader importing this package back (that would be a cycle, since
// this package already depends on classloader for object/CP types).
func Load() {
	if loaded {
		return
	}
	loaded = true

	Load_Lang_Thread()
	Load_Lang_String()
	Load_Util_HashMap()
	Load_Io_InputStreamReader()
	Load_Lang_StringBuilder()
	Load_Jdk_Internal_Misc_ScopedMemoryAccess()

	classloader.NativeMethodLookup = lookupNative
}

func lookupNative(className, methodKey string) (*classloader.MTentry, bool) {
	gm, ok := MethodSignatures[className+"."+methodKey]
	if !ok {
		return nil, false
	}
	return &classloader.MTentry{Meth: gm, MType: 'G'}, true
}
