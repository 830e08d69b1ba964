/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

//go:build amd64

package jit

import (
	"os"

	"jacobin/cfg"
	"jacobin/opcodes"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"
)

// compileNative is spec §4.G's "codegen and linking" step for the amd64
// target: translate req.Code to machine code, map it executable, and wrap
// it in a Function the interpreter can call like any other compiled entry.
func compileNative(req *Request) (*Function, error) {
	if len(req.ParamKinds) > len(argRegs) {
		return nil, unsupported(req.MethodName, "too many parameters (%d) for the amd64 JIT's register-passed args", len(req.ParamKinds))
	}

	// Step 1: CFG construction (spec §4.G step 1), reused from jacobin/cfg
	// rather than re-implementing leader-finding here. Build also doubles
	// as a cheap well-formedness check on req.Code before translation.
	if _, err := cfg.Build(req.Code, nil); err != nil {
		return nil, unsupported(req.MethodName, "cfg construction failed: %v", err)
	}

	a := newAssembler()
	localsBytes := int32(req.MaxLocals * 8)

	// Prologue: a fixed-size frame the way a cranelift StackSlot would be
	// (spec step 2's "operand stack...a fixed-size stack slot"); here the
	// locals portion is fixed and the operand-stack portion is the
	// ordinary hardware stack below it.
	a.pushR(rbp)
	a.movRegReg(rbp, rsp)
	if localsBytes > 0 {
		a.subRSPImm32(localsBytes) // sub rsp, localsBytes
	}
	slot := 0
	for i, k := range req.ParamKinds {
		a.storeLocal(int32(-8*(slot+1)), argRegs[i])
		if k == KindLong {
			slot += 2
		} else {
			slot++
		}
	}

	if err := translateBody(a, req); err != nil {
		return nil, err
	}
	if err := a.patch(); err != nil {
		return nil, err
	}

	m, err := mapExecutable(a.code)
	if err != nil {
		return nil, unsupported(req.MethodName, "mapping compiled code executable: %v", err)
	}
	return &Function{mapping: m, method: req.MethodName, returnKind: req.ReturnKind}, nil
}

// translateBody walks req.Code linearly (every opcode in this restricted
// set has a statically known length, so a linear scan suffices; cfg.Build
// already validated branch targets above) emitting one x86-64 sequence per
// JVM instruction (spec §4.G step 3, "Instruction selection").
func translateBody(a *assembler, req *Request) error {
	code := req.Code
	pc := 0
	for pc < len(code) {
		a.markPC(pc)
		op := code[pc]
		switch op {
		case opcodes.NOP:
			pc++
		case opcodes.ICONST_M1, opcodes.ICONST_0, opcodes.ICONST_1, opcodes.ICONST_2,
			opcodes.ICONST_3, opcodes.ICONST_4, opcodes.ICONST_5:
			a.pushImm32(int32(int(op) - opcodes.ICONST_0))
			pc++
		case opcodes.LCONST_0, opcodes.LCONST_1:
			a.movRegImm64(rax, int64(op-opcodes.LCONST_0))
			a.pushR(rax)
			pc++
		case opcodes.BIPUSH:
			a.pushImm32(int32(int8(code[pc+1])))
			pc += 2
		case opcodes.SIPUSH:
			v := int16(uint16(code[pc+1])<<8 | uint16(code[pc+2]))
			a.pushImm32(int32(v))
			pc += 3
		case opcodes.LDC2_W:
			idx := uint16(code[pc+1])<<8 | uint16(code[pc+2])
			v, ok := req.LongConstants[idx]
			if !ok {
				return unsupported(req.MethodName, "ldc2_w index %d has no resolved long constant", idx)
			}
			a.movRegImm64(rax, v)
			a.pushR(rax)
			pc += 3
		case opcodes.ILOAD, opcodes.LLOAD:
			a.loadLocal(rax, int32(-8*(int(code[pc+1])+1)))
			a.pushR(rax)
			pc += 2
		case opcodes.ILOAD_0, opcodes.ILOAD_1, opcodes.ILOAD_2, opcodes.ILOAD_3:
			a.loadLocal(rax, int32(-8*(int(op-opcodes.ILOAD_0)+1)))
			a.pushR(rax)
			pc++
		case opcodes.LLOAD_0, opcodes.LLOAD_1, opcodes.LLOAD_2, opcodes.LLOAD_3:
			a.loadLocal(rax, int32(-8*(int(op-opcodes.LLOAD_0)+1)))
			a.pushR(rax)
			pc++
		case opcodes.ISTORE, opcodes.LSTORE:
			a.popR(rax)
			a.storeLocal(int32(-8*(int(code[pc+1])+1)), rax)
			pc += 2
		case opcodes.ISTORE_0, opcodes.ISTORE_1, opcodes.ISTORE_2, opcodes.ISTORE_3:
			a.popR(rax)
			a.storeLocal(int32(-8*(int(op-opcodes.ISTORE_0)+1)), rax)
			pc++
		case opcodes.LSTORE_0, opcodes.LSTORE_1, opcodes.LSTORE_2, opcodes.LSTORE_3:
			a.popR(rax)
			a.storeLocal(int32(-8*(int(op-opcodes.LSTORE_0)+1)), rax)
			pc++
		case opcodes.IADD, opcodes.LADD:
			a.popR(rbx)
			a.popR(rax)
			a.addRR(rax, rbx)
			a.pushR(rax)
			pc++
		case opcodes.ISUB, opcodes.LSUB:
			a.popR(rbx)
			a.popR(rax)
			a.subRR(rax, rbx)
			a.pushR(rax)
			pc++
		case opcodes.IMUL, opcodes.LMUL:
			a.popR(rbx)
			a.popR(rax)
			a.imulRR(rax, rbx)
			a.pushR(rax)
			pc++
		case opcodes.IAND, opcodes.LAND:
			a.popR(rbx)
			a.popR(rax)
			a.andRR(rax, rbx)
			a.pushR(rax)
			pc++
		case opcodes.IOR, opcodes.LOR:
			a.popR(rbx)
			a.popR(rax)
			a.orRR(rax, rbx)
			a.pushR(rax)
			pc++
		case opcodes.IXOR, opcodes.LXOR:
			a.popR(rbx)
			a.popR(rax)
			a.xorRR(rax, rbx)
			a.pushR(rax)
			pc++
		case opcodes.ISHL, opcodes.LSHL:
			a.popR(rbx)
			a.popR(rax)
			a.movRegReg(rcx, rbx)
			a.shlRCL(rax)
			a.pushR(rax)
			pc++
		case opcodes.ISHR, opcodes.LSHR:
			a.popR(rbx)
			a.popR(rax)
			a.movRegReg(rcx, rbx)
			a.sarRCL(rax)
			a.pushR(rax)
			pc++
		case opcodes.IUSHR, opcodes.LUSHR:
			a.popR(rbx)
			a.popR(rax)
			a.movRegReg(rcx, rbx)
			a.shrRCL(rax)
			a.pushR(rax)
			pc++
		case opcodes.INEG, opcodes.LNEG:
			a.popR(rax)
			a.negR(rax)
			a.pushR(rax)
			pc++
		case opcodes.GOTO:
			target := branchTarget(code, pc)
			a.jmp(target)
			pc += 3
		case opcodes.IFEQ, opcodes.IFNE, opcodes.IFLT, opcodes.IFGE, opcodes.IFGT, opcodes.IFLE:
			target := branchTarget(code, pc)
			a.popR(rax)
			a.cmpRImm32(rax, 0)
			a.jcc(ifCC(op), target)
			pc += 3
		case opcodes.IF_ICMPEQ, opcodes.IF_ICMPNE, opcodes.IF_ICMPLT,
			opcodes.IF_ICMPGE, opcodes.IF_ICMPGT, opcodes.IF_ICMPLE:
			target := branchTarget(code, pc)
			a.popR(rbx)
			a.popR(rax)
			a.cmpRR(rax, rbx)
			a.jcc(icmpCC(op), target)
			pc += 3
		case opcodes.IRETURN, opcodes.LRETURN:
			a.popR(rax)
			a.movRegReg(rsp, rbp)
			a.popR(rbp)
			a.ret()
			pc++
		case opcodes.RETURN:
			a.movRegReg(rsp, rbp)
			a.popR(rbp)
			a.ret()
			pc++
		default:
			return unsupported(req.MethodName, "opcode 0x%02X at pc %d is outside the JIT's instruction subset", op, pc)
		}
	}
	return nil
}

func branchTarget(code []byte, pc int) int {
	off := int16(uint16(code[pc+1])<<8 | uint16(code[pc+2]))
	return pc + int(off)
}

func ifCC(op byte) byte {
	switch op {
	case opcodes.IFEQ:
		return ccEQ
	case opcodes.IFNE:
		return ccNE
	case opcodes.IFLT:
		return ccLT
	case opcodes.IFGE:
		return ccGE
	case opcodes.IFGT:
		return ccGT
	default: // IFLE
		return ccLE
	}
}

func icmpCC(op byte) byte {
	switch op {
	case opcodes.IF_ICMPEQ:
		return ccEQ
	case opcodes.IF_ICMPNE:
		return ccNE
	case opcodes.IF_ICMPLT:
		return ccLT
	case opcodes.IF_ICMPGE:
		return ccGE
	case opcodes.IF_ICMPGT:
		return ccGT
	default: // IF_ICMPLE
		return ccLE
	}
}

// mapExecutable writes code into a file-backed mapping (grounded on
// classloader/archive.go's mmap.Map(f, ...) usage -- this package never
// calls an anonymous-mapping API no retrieved example demonstrates) and
// flips it from writable to executable with a real mprotect, the W^X
// discipline spec §4.G's platform dispatch implies for emitted code.
// The backing file is unlinked immediately after mapping; the mapping
// stays valid until Unmap is called (or the process exits).
func mapExecutable(code []byte) (mmap.MMap, error) {
	f, err := os.CreateTemp("", "jacobin-jit-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if _, err := f.Write(code); err != nil {
		return nil, err
	}
	if err := f.Sync(); err != nil {
		return nil, err
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.Mprotect(m, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = m.Unmap()
		return nil, err
	}
	return m, nil
}

func init() {
	nativeCall = callAsm
}
