/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jit

import (
	"testing"

	"jacobin/opcodes"
)

func lload(n int) []byte {
	if n <= 3 {
		return []byte{byte(opcodes.LLOAD_0 + n)}
	}
	return []byte{opcodes.LLOAD, byte(n)}
}

func lstore(n int) []byte {
	if n <= 3 {
		return []byte{byte(opcodes.LSTORE_0 + n)}
	}
	return []byte{opcodes.LSTORE, byte(n)}
}

func bipush(v int8) []byte { return []byte{opcodes.BIPUSH, byte(v)} }

func ldc2w(idx uint16) []byte { return []byte{opcodes.LDC2_W, byte(idx >> 8), byte(idx)} }

func op(b byte) []byte { return []byte{b} }

func join(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// TestCompileAndExecuteSimpleAdd is a minimal sanity check of the codegen
// pipeline: a static int method `(II)I { return a + b; }`.
func TestCompileAndExecuteSimpleAdd(t *testing.T) {
	code := join(
		op(opcodes.ILOAD_0),
		op(opcodes.ILOAD_1),
		op(opcodes.IADD),
		op(opcodes.IRETURN),
	)
	req := &Request{
		MethodName: "add(II)I",
		Code:       code,
		MaxLocals:  2,
		IsStatic:   true,
		ParamKinds: []Kind{KindInt, KindInt},
		ReturnKind: KindInt,
	}
	fn, err := Compile(req)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer fn.Release()

	result, err := fn.Execute([]Value{IntValue(20), IntValue(22)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Kind != KindInt || result.I32 != 42 {
		t.Errorf("add(20,22) = %+v, want 42", result)
	}
}

// TestCompileAndExecuteMultiplyHigh reproduces the long/shift/mask
// algorithm from the S5 end-to-end scenario (spec §8), the same bytecode
// shape as original_source/ristretto_jit/tests/compiler.rs's test_compile:
// Math.multiplyHigh(4, 8) == 0.
func TestCompileAndExecuteMultiplyHigh(t *testing.T) {
	const mask32 = 7 // constant-pool index carrying 4294967295L
	code := join(
		lload(0), bipush(32), op(opcodes.LSHR), lstore(4),
		lload(0), ldc2w(mask32), op(opcodes.LAND), lstore(6),
		lload(2), bipush(32), op(opcodes.LSHR), lstore(8),
		lload(2), ldc2w(mask32), op(opcodes.LAND), lstore(10),
		lload(6), lload(10), op(opcodes.LMUL), lstore(12),
		lload(4), lload(10), op(opcodes.LMUL),
		lload(12), bipush(32), op(opcodes.LUSHR), op(opcodes.LADD), lstore(14),
		lload(14), ldc2w(mask32), op(opcodes.LAND), lstore(16),
		lload(14), bipush(32), op(opcodes.LSHR), lstore(18),
		lload(16), lload(6), lload(8), op(opcodes.LMUL), op(opcodes.LADD), lstore(16),
		lload(4), lload(8), op(opcodes.LMUL),
		lload(18), op(opcodes.LADD),
		lload(16), bipush(32), op(opcodes.LSHR), op(opcodes.LADD),
		op(opcodes.LRETURN),
	)

	req := &Request{
		MethodName:    "multiplyHigh(JJ)J",
		Code:          code,
		MaxLocals:     20,
		IsStatic:      true,
		ParamKinds:    []Kind{KindLong, KindLong},
		ReturnKind:    KindLong,
		LongConstants: map[uint16]int64{mask32: 4294967295},
	}
	fn, err := Compile(req)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer fn.Release()

	result, err := fn.Execute([]Value{LongValue(4), LongValue(8)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Kind != KindLong || result.I64 != 0 {
		t.Errorf("multiplyHigh(4, 8) = %+v, want I64(0)", result)
	}
}

// TestCompileRejectsExceptionHandlers exercises spec §4.G's "Limitations
// of scope": methods with a handler table always fall back to the
// interpreter rather than attempt compilation.
func TestCompileRejectsExceptionHandlers(t *testing.T) {
	req := &Request{
		MethodName:  "risky()V",
		Code:        join(op(opcodes.RETURN)),
		IsStatic:    true,
		HasHandlers: true,
	}
	if _, err := Compile(req); err == nil {
		t.Error("expected Compile to reject a method with an exception table")
	}
}

func TestCompileRejectsInstanceMethods(t *testing.T) {
	req := &Request{
		MethodName: "instanceMethod()V",
		Code:       join(op(opcodes.RETURN)),
		IsStatic:   false,
	}
	if _, err := Compile(req); err == nil {
		t.Error("expected Compile to reject an instance method")
	}
}
