/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jit

import (
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

// Request is everything the JIT needs to compile one method, decoupled
// from jacobin/classloader's types so this package stays a leaf the way
// spec §1 treats the JIT as an optional accelerator the interpreter calls
// into, never the other way around.
type Request struct {
	MethodName    string
	Code          []byte
	MaxLocals     int
	IsStatic      bool
	HasHandlers   bool // exception table non-empty
	UsesMonitors  bool // code contains monitorenter/monitorexit
	IsDynamicSite bool // code contains invokedynamic
	ParamKinds    []Kind
	ReturnKind    Kind
	LongConstants map[uint16]int64 // LDC2_W index -> resolved constant-pool value
}

// Function is a compiled method body, callable in place of interpreting
// the bytecode it was built from (spec §4.G step 4, "a callable function
//...that the interpreter knows how to invoke").
type Function struct {
	mapping    mmap.MMap
	method     string
	returnKind Kind
}

// nativeCall is the architecture-specific trampoline that invokes a
// Function's machine code with up to four integer/long arguments and
// returns its single-word result (spec step 4's calling convention). It is
// installed by the platform file compiled for GOARCH; on an unsupported
// architecture it stays nil, which Compile never needs to notice because
// compileNative itself always rejects the method there first.
var nativeCall func(code uintptr, a0, a1, a2, a3 int64) int64

// Compile lowers req to native code (spec §4.G's full pipeline) or reports
// why it couldn't, per the scope spec §4.G and ristretto_jit's own
// documented limitations narrow the JIT to (see the package doc comment
// in value.go): no objects, no exception handlers, no monitors, no
// invokedynamic, static methods only.
func Compile(req *Request) (*Function, error) {
	if !req.IsStatic {
		return nil, unsupported(req.MethodName, "instance methods are outside the JIT's scope (spec §9 Design Notes; ristretto_jit compiles static methods/constructors only)")
	}
	if req.HasHandlers {
		return nil, unsupported(req.MethodName, "exception-handling methods fall back to the interpreter (spec §4.G Limitations of scope)")
	}
	if req.UsesMonitors {
		return nil, unsupported(req.MethodName, "monitorenter/monitorexit fall back to the interpreter (spec §4.G Limitations of scope)")
	}
	if req.IsDynamicSite {
		return nil, unsupported(req.MethodName, "invokedynamic falls back to the interpreter (spec §4.G Limitations of scope)")
	}
	return compileNative(req)
}

// Execute invokes the compiled function with args in Java parameter order.
// Only int/long-category values are accepted; see the package doc comment
// for why float/double and reference types never reach this path.
func (f *Function) Execute(args []Value) (Value, error) {
	var raw [4]uint64
	for i, v := range args {
		if i >= len(raw) {
			break
		}
		raw[i] = v.raw()
	}
	if nativeCall == nil {
		return Value{}, unsupported(f.method, "no native call trampoline installed for this architecture")
	}
	codePtr := uintptr(unsafe.Pointer(&f.mapping[0]))
	result := nativeCall(codePtr, int64(raw[0]), int64(raw[1]), int64(raw[2]), int64(raw[3]))
	return valueFromRaw(f.ReturnKindHint(), uint64(result)), nil
}

// ReturnKindHint lets Execute narrow the raw result word the same way the
// interpreter's own *return opcodes do, without Function needing to carry
// the whole Request back (only ReturnKind survives past Compile).
func (f *Function) ReturnKindHint() Kind { return f.returnKind }

// Release unmaps the compiled code. The interpreter never calls this today
// (compiled entries live for the method's process lifetime, same as every
// other method-area entry -- spec §3 "Lifecycle"); it exists so tests can
// clean up mappings they create directly.
func (f *Function) Release() error { return f.mapping.Unmap() }
