/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

//go:build amd64

package jit

// callAsm is implemented in trampoline_amd64.s: it loads the four integer
// arguments into the System V AMD64 argument registers, calls the code
// pointer, and returns the single result word in rax. This is the "link"
// half of spec §4.G step 4 -- the interpreter has no other way to jump
// into raw mapped machine code without cgo, so a short hand-written Go
// assembly stub does it, the same shape tetratelabs-wazero's compiler
// engine uses to enter its own JIT-compiled functions (see
// other_examples/manifests/tetratelabs-wazero).
func callAsm(code uintptr, a0, a1, a2, a3 int64) int64
