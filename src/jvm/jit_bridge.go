/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jvm

import (
	"jacobin/classloader"
	"jacobin/jit"
	"jacobin/opcodes"
	"jacobin/trace"
)

// jitCompileThreshold is the call count (spec §4.G "call-count triggered
// compilation") at which invoke() attempts a JIT compile of a 'J' entry
// instead of interpreting it one more time. Chosen the way the teacher
// picks its own constants -- small enough that unit tests exercise the
// JIT path without looping thousands of times, large enough that a method
// called once or twice during class init never pays the compile cost.
const jitCompileThreshold = 50

// tryJitExecute attempts to run meth's compiled native entry if one
// already exists, compiling it first if meth has just crossed
// jitCompileThreshold calls. ok reports whether the call was actually
// handled natively; when ok is false the caller should fall back to
// interpreting the frame as usual (spec §4.E: a failed or not-yet-ready
// compile never blocks execution, it only skips the shortcut).
func tryJitExecute(meth *classloader.JmEntry, className, methName, desc string, params []interface{}) (result interface{}, ok bool, err error) {
	if fn, isFn := meth.Compiled.(*jit.Function); isFn {
		paramKinds, _, err := descriptorKinds(desc)
		if err != nil {
			return nil, false, nil
		}
		return runJitFunction(fn, paramKinds, params)
	}

	meth.CallCount++
	if meth.JitBlacklist || meth.CallCount < jitCompileThreshold {
		return nil, false, nil
	}

	req, buildErr := buildJitRequest(meth, className, methName, desc)
	if buildErr != nil {
		meth.JitBlacklist = true
		trace.Trace(buildErr.Error())
		return nil, false, nil
	}

	fn, compileErr := jit.Compile(req)
	if compileErr != nil {
		meth.JitBlacklist = true
		trace.Trace(compileErr.Error())
		return nil, false, nil
	}

	meth.Compiled = fn
	return runJitFunction(fn, req.ParamKinds, params)
}

// runJitFunction converts the interpreter's operand-stack values (every
// category, int or long, represented as a Go int64 -- see run.go's
// ICONST_0/LCONST_0 cases) into typed jit.Value arguments using the
// descriptor-derived kinds already validated by buildJitRequest, runs the
// compiled function, and converts its result back the same way.
func runJitFunction(fn *jit.Function, paramKinds []jit.Kind, params []interface{}) (interface{}, bool, error) {
	if len(paramKinds) != len(params) {
		return nil, false, nil
	}
	args := make([]jit.Value, len(params))
	for i, p := range params {
		v, ok := p.(int64)
		if !ok {
			// A value outside the int/long categories (spec §4.G's scope
			// restriction) reaching here means buildJitRequest mis-profiled
			// the method; refuse the shortcut rather than misinterpret it.
			return nil, false, nil
		}
		if paramKinds[i] == jit.KindLong {
			args[i] = jit.LongValue(v)
		} else {
			args[i] = jit.IntValue(int32(v))
		}
	}
	result, err := fn.Execute(args)
	if err != nil {
		return nil, false, err
	}
	if result.Kind == jit.KindLong {
		return result.I64, true, nil
	}
	return int64(result.I32), true, nil
}

// buildJitRequest translates a method-area entry plus its descriptor into
// a jit.Request, resolving every LDC2_W site's constant-pool index to its
// actual long value up front (the JIT has no constant pool of its own --
// spec §4.G keeps the compiled function a leaf with no classloader
// dependency).
func buildJitRequest(meth *classloader.JmEntry, className, methName, desc string) (*jit.Request, error) {
	paramKinds, returnKind, err := descriptorKinds(desc)
	if err != nil {
		return nil, err
	}

	longConsts, hasMonitor, hasDynamic, scanErr := scanMethodBody(meth.Code)
	if scanErr != nil {
		return nil, scanErr
	}

	resolved := make(map[uint16]int64, len(longConsts))
	for _, idx := range longConsts {
		if int(idx) >= len(meth.Cp.CpIndex) {
			return nil, jitScanError(className, methName, desc, "ldc2_w index out of range")
		}
		entry := meth.Cp.CpIndex[idx]
		if entry.Type != classloader.LongConst {
			continue // a double constant; this method falls outside int/long scope below
		}
		resolved[idx] = meth.Cp.LongConsts[entry.Slot]
	}

	return &jit.Request{
		MethodName:    className + "." + methName + desc,
		Code:          meth.Code,
		MaxLocals:     meth.MaxLocals,
		IsStatic:      meth.AccessFlags&classloader.MethodAccStatic != 0,
		HasHandlers:   len(meth.Exceptions) > 0,
		UsesMonitors:  hasMonitor,
		IsDynamicSite: hasDynamic,
		ParamKinds:    paramKinds,
		ReturnKind:    returnKind,
		LongConstants: resolved,
	}, nil
}

func jitScanError(className, methName, desc, reason string) error {
	return &jitScanErr{msg: className + "." + methName + desc + ": " + reason}
}

type jitScanErr struct{ msg string }

func (e *jitScanErr) Error() string { return e.msg }

// descriptorKinds maps a method descriptor to the JIT's int/long-only
// Kind vocabulary, rejecting anything else (floats, doubles, references,
// arrays) the same way jit.Compile's own scope checks do for method
// shape -- done here, before Compile is even called, so a rejected
// descriptor never allocates a Request.
func descriptorKinds(desc string) ([]jit.Kind, jit.Kind, error) {
	var kinds []jit.Kind
	i := 1
	for i < len(desc) && desc[i] != ')' {
		switch desc[i] {
		case 'I':
			kinds = append(kinds, jit.KindInt)
			i++
		case 'J':
			kinds = append(kinds, jit.KindLong)
			i++
		default:
			return nil, 0, jitScanError("", "", desc, "parameter type outside the JIT's int/long scope")
		}
	}
	i++ // skip ')'
	switch {
	case i >= len(desc):
		return nil, 0, jitScanError("", "", desc, "malformed descriptor")
	case desc[i] == 'I':
		return kinds, jit.KindInt, nil
	case desc[i] == 'J':
		return kinds, jit.KindLong, nil
	default:
		return nil, 0, jitScanError("", "", desc, "return type outside the JIT's int/long scope")
	}
}

// scanMethodBody walks code once to collect every LDC2_W constant-pool
// index and report whether a monitor or invokedynamic instruction is
// present, mirroring jacobin/cfg's per-opcode operand-length table (kept
// separate from cfg.Build since this scan only needs a flat pass, not a
// graph).
func scanMethodBody(code []byte) (longConstIdx []uint16, hasMonitor, hasDynamic bool, err error) {
	pc := 0
	for pc < len(code) {
		op := code[pc]
		switch op {
		case opcodes.MONITORENTER, opcodes.MONITOREXIT:
			hasMonitor = true
			pc++
		case opcodes.INVOKEDYNAMIC:
			hasDynamic = true
			pc += 5
		case opcodes.LDC2_W:
			idx := uint16(code[pc+1])<<8 | uint16(code[pc+2])
			longConstIdx = append(longConstIdx, idx)
			pc += 3
		case opcodes.TABLESWITCH:
			p := pc + 1
			for p%4 != 0 { // padding aligns to the method's code start
				p++
			}
			low := readI32(code, p+4)
			high := readI32(code, p+8)
			pc = p + 12 + (high-low+1)*4
		case opcodes.LOOKUPSWITCH:
			p := pc + 1
			for p%4 != 0 { // padding aligns to the method's code start
				p++
			}
			n := readI32(code, p+4)
			pc = p + 8 + n*8
		case opcodes.WIDE:
			if pc+1 < len(code) && code[pc+1] == opcodes.IINC {
				pc += 6
			} else {
				pc += 4
			}
		default:
			l, lerr := opcodeLength(op)
			if lerr != nil {
				return nil, false, false, lerr
			}
			pc += l
		}
	}
	return longConstIdx, hasMonitor, hasDynamic, nil
}

func readI32(code []byte, p int) int {
	return int(int32(uint32(code[p])<<24 | uint32(code[p+1])<<16 | uint32(code[p+2])<<8 | uint32(code[p+3])))
}

// opcodeLength is the fixed-length table for every opcode scanMethodBody
// doesn't already special-case above.
func opcodeLength(op byte) (int, error) {
	switch op {
	case opcodes.BIPUSH, opcodes.LDC, opcodes.NEWARRAY,
		opcodes.ILOAD, opcodes.LLOAD, opcodes.FLOAD, opcodes.DLOAD, opcodes.ALOAD,
		opcodes.ISTORE, opcodes.LSTORE, opcodes.FSTORE, opcodes.DSTORE, opcodes.ASTORE,
		opcodes.RET:
		return 2, nil
	case opcodes.SIPUSH, opcodes.LDC_W,
		opcodes.GETSTATIC, opcodes.PUTSTATIC, opcodes.GETFIELD, opcodes.PUTFIELD,
		opcodes.INVOKEVIRTUAL, opcodes.INVOKESPECIAL, opcodes.INVOKESTATIC,
		opcodes.NEW, opcodes.ANEWARRAY, opcodes.CHECKCAST, opcodes.INSTANCEOF,
		opcodes.IINC,
		opcodes.GOTO, opcodes.JSR,
		opcodes.IFEQ, opcodes.IFNE, opcodes.IFLT, opcodes.IFGE, opcodes.IFGT, opcodes.IFLE,
		opcodes.IF_ICMPEQ, opcodes.IF_ICMPNE, opcodes.IF_ICMPLT, opcodes.IF_ICMPGE, opcodes.IF_ICMPGT, opcodes.IF_ICMPLE,
		opcodes.IF_ACMPEQ, opcodes.IF_ACMPNE, opcodes.IFNULL, opcodes.IFNONNULL:
		return 3, nil
	case opcodes.INVOKEINTERFACE, opcodes.MULTIANEWARRAY:
		return 5, nil
	case opcodes.GOTO_W, opcodes.JSR_W:
		return 5, nil
	default:
		return 1, nil
	}
}
