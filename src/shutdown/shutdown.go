/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package shutdown centralizes the VM's process-exit codes so that every
// subsystem reports failures the same way.
package shutdown

import "os"

// Exit codes. JVM_EXCEPTION mirrors the code the teacher uses for any
// uncaught internal error that aborts the VM (spec §7, "internal errors").
const (
	OK           = 0
	JVM_EXCEPTION = 1
	APP_EXCEPTION = 2
	UNSUPPORTED  = 3
)

var exitFunc = os.Exit // overridable by tests

// Exit terminates the process with the given code. Internal errors (spec
// §7 kind 6) funnel through here rather than through Go panics, so that a
// VM embedding jacobin can substitute its own exitFunc.
func Exit(code int) {
	exitFunc(code)
}

// SetExitFunc lets tests observe a requested exit without killing the test
// binary.
func SetExitFunc(f func(int)) (restore func()) {
	prev := exitFunc
	exitFunc = f
	return func() { exitFunc = prev }
}
