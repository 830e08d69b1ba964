/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package jit implements the accelerator of spec §4.G: it lowers a
// verified method's bytecode to a control-flow graph (reusing jacobin/cfg),
// virtualizes the operand stack as a stack-slot region the way
// ristretto_jit's operand_stack.rs does (see original_source/ristretto_jit),
// selects native instructions per opcode, and links the result into a
// callable native function the interpreter invokes in place of running the
// method through jvm/run.go's dispatch loop.
//
// Scope mirrors ristretto_jit's own stated limitations (see
// original_source/ristretto_jit/src/lib.rs doc comment): only static
// methods are compiled, there is no object/array support, no GC
// integration, and no exception-handler compilation -- any method outside
// that shape fails Compile and the interpreter keeps running it, exactly
// as spec §4.G's "Limitations of scope" describes.
package jit

// Kind is the JVM primitive category a Value carries. Only the integer
// categories are compiled (the JIT scope note in DESIGN.md
// narrows ristretto_jit's own int/long/float/double support down to
// int/long, to keep codegen a single machine word wide throughout).
type Kind int

const (
	KindInt Kind = iota
	KindLong
)

// Value is the JIT's boundary type for arguments and return values,
// mirroring ristretto_jit::Value's tagged representation (original_source/
// does not retrieve value.rs itself, but jit_value.rs/operand_stack.rs
// make the shape -- one tag per JVM category -- unambiguous).
type Value struct {
	Kind Kind
	I32  int32
	I64  int64
}

// IntValue constructs an int-category Value.
func IntValue(v int32) Value { return Value{Kind: KindInt, I32: v} }

// LongValue constructs a long-category Value.
func LongValue(v int64) Value { return Value{Kind: KindLong, I64: v} }

// raw returns the value's bits widened to a 64-bit word, the form the
// native calling convention passes arguments in (spec §4.G step 4:
// "calling convention... parameter slots").
func (v Value) raw() uint64 {
	switch v.Kind {
	case KindInt:
		return uint64(uint32(v.I32))
	default:
		return uint64(v.I64)
	}
}

func valueFromRaw(k Kind, raw uint64) Value {
	switch k {
	case KindInt:
		return IntValue(int32(uint32(raw)))
	default:
		return LongValue(int64(raw))
	}
}
