/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

//go:build amd64

package jit

// This file is the instruction-selection/encoding half of spec §4.G step
// 3-4 ("Instruction selection", "Codegen and linking"): a minimal x86-64
// assembler restricted to the eight legacy GPRs (no REX.R/B extension
// bits needed), which is all the register pressure our stack-slot model
// (spec step 2) ever asks for. Byte-level encoding is grounded on
// other_examples/d3df6e54_tinyrange-rtg__std-compiler-backend_x64.go's
// CodeGen (direct machine-code emission into a []byte, two-pass fixups
// for forward branches) and other_examples/ba2dc950_IntuitionAmiga-
// IntuitionEngine__cpu_x86.go.go's opcode-table conventions; it
// deliberately never reaches for an assembler library (golang-asm's
// obj.Prog API is x86_64-only cmd/internal/obj plumbing not meant for
// external callers, and isn't used this way anywhere in the retrieved
// pack) -- see DESIGN.md for why this one corner of the JIT is grounded
// on raw-byte emission rather than a dependency.

const (
	rax = 0
	rcx = 1
	rdx = 2
	rbx = 3
	rsp = 4
	rbp = 5
	rsi = 6
	rdi = 7
)

// argRegs is the System V AMD64 integer argument order for the first four
// integer parameters, matching the four slots trampoline_amd64.s passes
// through to the generated function (spec step 4's "calling convention").
var argRegs = [4]byte{rdi, rsi, rdx, rcx}

type fixup struct {
	pos    int // byte offset of the rel32 field to patch
	target int // bytecode PC the branch targets
}

// assembler accumulates machine code for one compiled method body.
type assembler struct {
	code      []byte
	pcOffsets map[int]int // bytecode PC -> offset of the first byte emitted for it
	fixups    []fixup
}

func newAssembler() *assembler {
	return &assembler{pcOffsets: make(map[int]int)}
}

func (a *assembler) markPC(pc int) { a.pcOffsets[pc] = len(a.code) }

func (a *assembler) emit(b ...byte) { a.code = append(a.code, b...) }

func modrmReg(mod, reg, rm byte) byte { return (mod << 6) | ((reg & 7) << 3) | (rm & 7) }

// --- stack ---

func (a *assembler) pushR(r byte) { a.emit(0x50 + r) }
func (a *assembler) popR(r byte)  { a.emit(0x58 + r) }

func (a *assembler) pushImm32(v int32) {
	a.emit(0x68, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// --- data movement ---

func (a *assembler) movRegImm64(r byte, v int64) {
	a.emit(0x48, 0xB8+r)
	uv := uint64(v)
	for i := 0; i < 8; i++ {
		a.emit(byte(uv >> (8 * i)))
	}
}

// movRegReg: dst <- src
func (a *assembler) movRegReg(dst, src byte) {
	a.emit(0x48, 0x89, modrmReg(3, src, dst))
}

func emitDisp32(a *assembler, v int32) {
	a.emit(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// loadLocal: dst <- [rbp+disp32]. A disp32 (rather than disp8) addressing
// mode is used unconditionally so the locals area size is never bounded
// by what fits a signed byte -- methods with wide local-variable tables
// (e.g. the heavily-unrolled multiplyHigh shape in this package's test)
// compile exactly like small ones.
func (a *assembler) loadLocal(dst byte, disp int32) {
	a.emit(0x48, 0x8B, modrmReg(2, dst, rbp))
	emitDisp32(a, disp)
}

// storeLocal: [rbp+disp32] <- src
func (a *assembler) storeLocal(disp int32, src byte) {
	a.emit(0x48, 0x89, modrmReg(2, src, rbp))
	emitDisp32(a, disp)
}

// --- arithmetic (dst op= src) ---

func (a *assembler) addRR(dst, src byte) { a.emit(0x48, 0x01, modrmReg(3, src, dst)) }
func (a *assembler) subRR(dst, src byte) { a.emit(0x48, 0x29, modrmReg(3, src, dst)) }
func (a *assembler) andRR(dst, src byte) { a.emit(0x48, 0x21, modrmReg(3, src, dst)) }
func (a *assembler) orRR(dst, src byte)  { a.emit(0x48, 0x09, modrmReg(3, src, dst)) }
func (a *assembler) xorRR(dst, src byte) { a.emit(0x48, 0x31, modrmReg(3, src, dst)) }
func (a *assembler) imulRR(dst, src byte) {
	a.emit(0x48, 0x0F, 0xAF, modrmReg(3, dst, src))
}
func (a *assembler) negR(r byte) { a.emit(0x48, 0xF7, modrmReg(3, 3, r)) }

// shifts always shift by CL, per the ISHL/ISHR/IUSHR family's runtime
// shift-count operand (spec §4.E opcode semantics).
func (a *assembler) shlRCL(r byte) { a.emit(0x48, 0xD3, modrmReg(3, 4, r)) }
func (a *assembler) sarRCL(r byte) { a.emit(0x48, 0xD3, modrmReg(3, 7, r)) }
func (a *assembler) shrRCL(r byte) { a.emit(0x48, 0xD3, modrmReg(3, 5, r)) }

func (a *assembler) cmpRR(lhs, rhs byte) { a.emit(0x48, 0x39, modrmReg(3, rhs, lhs)) }
func (a *assembler) cmpRImm32(r byte, v int32) {
	a.emit(0x48, 0x81, modrmReg(3, 7, r), byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// subRSPImm32 emits `sub rsp, n` with a 32-bit immediate, for the same
// reason loadLocal/storeLocal use disp32: a locals area is never bounded
// by what an imm8 can hold.
func (a *assembler) subRSPImm32(n int32) {
	a.emit(0x48, 0x81, modrmReg(3, 5, rsp))
	a.emit(byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
}

func (a *assembler) ret() { a.emit(0xC3) }

// --- control flow (forward and backward, patched in a second pass) ---

const (
	ccEQ = 0x84
	ccNE = 0x85
	ccLT = 0x8C
	ccGE = 0x8D
	ccGT = 0x8F
	ccLE = 0x8E
)

func (a *assembler) jmp(target int) {
	a.emit(0xE9, 0, 0, 0, 0)
	a.fixups = append(a.fixups, fixup{pos: len(a.code) - 4, target: target})
}

func (a *assembler) jcc(cc byte, target int) {
	a.emit(0x0F, cc, 0, 0, 0, 0)
	a.fixups = append(a.fixups, fixup{pos: len(a.code) - 4, target: target})
}

// patch resolves every recorded branch against the final PC->offset table.
// Mirrors the two-pass "compile, then patch" shape of the tinyrange-rtg
// CodeGen this file is grounded on (callFixups/patchRel32At).
func (a *assembler) patch() error {
	for _, fx := range a.fixups {
		off, ok := a.pcOffsets[fx.target]
		if !ok {
			return unsupported("", "branch target pc=%d has no emitted instruction", fx.target)
		}
		rel := int32(off - (fx.pos + 4))
		a.code[fx.pos] = byte(rel)
		a.code[fx.pos+1] = byte(rel >> 8)
		a.code[fx.pos+2] = byte(rel >> 16)
		a.code[fx.pos+3] = byte(rel >> 24)
	}
	return nil
}
