/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

//go:build !amd64

package jit

// compileNative on aarch64, s390x, and riscv64 (spec §4.G "platform
// dispatch") always declines: this repository's codegen backend only
// targets amd64 today. Declining is not an error condition the spec treats
// specially -- "if compilation fails, the entry remains interpreted and
// the method is blacklisted for JIT retry" (spec §4.E) applies uniformly
// whether the reason is an unsupported opcode or an unsupported host.
func compileNative(req *Request) (*Function, error) {
	return nil, unsupported(req.MethodName, "no JIT backend for this architecture; running interpreted")
}
