/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jit

import "fmt"

// Error reports why Compile rejected a method or why codegen/linking
// failed, mirroring ristretto_jit::Error's messages being surfaced back to
// the caller (original_source/ristretto_jit/src/instruction/object.rs
// returns an Error::InternalError the same way). The interpreter never
// treats a jit.Error as a throwable: spec §4.E says a failed compile just
// leaves the method blacklisted and interpreted.
type Error struct {
	Method string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("jit: cannot compile %s: %s", e.Method, e.Reason)
}

func unsupported(method, format string, args ...interface{}) error {
	return &Error{Method: method, Reason: fmt.Sprintf(format, args...)}
}
