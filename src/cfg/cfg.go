/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package cfg builds the basic-block control-flow graph spec §4.G step 1
// describes for the JIT, and that the verifier's slow (type-inference)
// path of spec §4.C also needs for its per-block dataflow fixpoint. It is
// grounded on the teacher's bytecode-walking conventions already present
// in classloader/codeCheck.go (linear scan, per-opcode operand-length
// table) and on opcodes.go's canonical opcode vocabulary, factored out so
// neither consumer duplicates leader-finding logic.
package cfg

import "jacobin/opcodes"

// Block is a maximal straight-line instruction run entered only at Start
// and exited only at the instruction ending at End-1 (spec GLOSSARY,
// "Basic block"). Succs holds the bytecode offsets of every block this one
// can transfer control to, in the order discovered (fall-through last,
// when the terminating instruction can fall through).
type Block struct {
	Start, End int
	Succs      []int
}

// Graph is a method's control-flow graph, indexed by each block's Start
// offset.
type Graph struct {
	Blocks map[int]*Block
	Order  []int // block start offsets in ascending order, for deterministic iteration
}

// BlockAt returns the block whose leader (first instruction) is at pc, or
// nil if pc is not a block leader; an offset inside a block returns nil.
func (g *Graph) BlockAt(pc int) *Block { return g.Blocks[pc] }

// Build scans code and constructs its CFG (spec §4.G step 1): "leaders are
// instruction 0, every branch target, every instruction after a
// conditional or unconditional transfer, and every exception handler PC."
// handlerPCs is the set of exception-table handler offsets to additionally
// seed as leaders.
func Build(code []byte, handlerPCs []int) (*Graph, error) {
	leaders := map[int]bool{0: true}
	for _, h := range handlerPCs {
		leaders[h] = true
	}

	// First pass: find every leader (branch target or post-transfer PC).
	pc := 0
	for pc < len(code) {
		op := code[pc]
		length, targets, isTransfer, falls, err := instructionInfo(code, pc)
		if err != nil {
			return nil, err
		}
		for _, t := range targets {
			leaders[t] = true
		}
		next := pc + length
		if isTransfer && next < len(code) {
			leaders[next] = true
		}
		_ = op
		_ = falls
		pc = next
	}

	var order []int
	for l := range leaders {
		if l >= 0 && l < len(code) {
			order = append(order, l)
		}
	}
	insertionSort(order)

	g := &Graph{Blocks: make(map[int]*Block), Order: order}
	for i, start := range order {
		end := len(code)
		if i+1 < len(order) {
			end = order[i+1]
		}
		g.Blocks[start] = &Block{Start: start, End: end}
	}

	// Second pass: compute each block's successors from its terminating
	// instruction.
	for i, start := range order {
		end := g.Blocks[start].End
		termPC, err := lastInstructionStart(code, start, end)
		if err != nil {
			return nil, err
		}
		_, targets, isTransfer, falls, err := instructionInfo(code, termPC)
		if err != nil {
			return nil, err
		}
		succs := append([]int(nil), targets...)
		if !isTransfer || falls {
			if i+1 < len(order) {
				succs = append(succs, order[i+1])
			}
		}
		g.Blocks[start].Succs = succs
	}

	return g, nil
}

func insertionSort(a []int) {
	for i := 1; i < len(a); i++ {
		v := a[i]
		j := i - 1
		for j >= 0 && a[j] > v {
			a[j+1] = a[j]
			j--
		}
		a[j+1] = v
	}
}

// lastInstructionStart re-walks [start,end) to find the offset of the last
// instruction in the block (needed since instructions are variable-length,
// so end-1 generally isn't a valid instruction start).
func lastInstructionStart(code []byte, start, end int) (int, error) {
	pc := start
	last := start
	for pc < end {
		last = pc
		length, _, _, _, err := instructionInfo(code, pc)
		if err != nil {
			return 0, err
		}
		pc += length
	}
	return last, nil
}

// instructionInfo reports, for the instruction at pc: its total byte
// length (opcode + operands), the absolute bytecode offsets it can branch
// to, whether it is any kind of control transfer (branch/switch/return/
// athrow/ret), and whether control can also fall through to the next
// instruction (false for goto/goto_w/tableswitch/lookupswitch/*return/
// athrow/ret).
func instructionInfo(code []byte, pc int) (length int, targets []int, isTransfer bool, falls bool, err error) {
	op := code[pc]
	switch op {
	case opcodes.GOTO:
		off := int(int16(uint16(code[pc+1])<<8 | uint16(code[pc+2])))
		return 3, []int{pc + off}, true, false, nil
	case opcodes.GOTO_W:
		off := int(int32(uint32(code[pc+1])<<24 | uint32(code[pc+2])<<16 | uint32(code[pc+3])<<8 | uint32(code[pc+4])))
		return 5, []int{pc + off}, true, false, nil
	case opcodes.JSR:
		off := int(int16(uint16(code[pc+1])<<8 | uint16(code[pc+2])))
		return 3, []int{pc + off}, true, true, nil
	case opcodes.JSR_W:
		off := int(int32(uint32(code[pc+1])<<24 | uint32(code[pc+2])<<16 | uint32(code[pc+3])<<8 | uint32(code[pc+4])))
		return 5, []int{pc + off}, true, true, nil
	case opcodes.RET:
		return 2, nil, true, false, nil
	case opcodes.IFEQ, opcodes.IFNE, opcodes.IFLT, opcodes.IFGE, opcodes.IFGT, opcodes.IFLE,
		opcodes.IF_ICMPEQ, opcodes.IF_ICMPNE, opcodes.IF_ICMPLT, opcodes.IF_ICMPGE, opcodes.IF_ICMPGT, opcodes.IF_ICMPLE,
		opcodes.IF_ACMPEQ, opcodes.IF_ACMPNE, opcodes.IFNULL, opcodes.IFNONNULL:
		off := int(int16(uint16(code[pc+1])<<8 | uint16(code[pc+2])))
		return 3, []int{pc + off}, true, true, nil
	case opcodes.TABLESWITCH:
		return tableswitchInfo(code, pc)
	case opcodes.LOOKUPSWITCH:
		return lookupswitchInfo(code, pc)
	case opcodes.IRETURN, opcodes.LRETURN, opcodes.FRETURN, opcodes.DRETURN, opcodes.ARETURN, opcodes.RETURN, opcodes.ATHROW:
		return 1, nil, true, false, nil
	case opcodes.WIDE:
		return wideLength(code, pc), nil, false, true, nil
	default:
		l, e := fixedLength(op)
		if e != nil {
			return 0, nil, false, false, e
		}
		return l, nil, false, true, nil
	}
}

func tableswitchInfo(code []byte, pc int) (int, []int, bool, bool, error) {
	p := pc + 1
	for p%4 != 0 { // padding aligns to the method's code start
		p++
	}
	def := readI32(code, p)
	low := readI32(code, p+4)
	high := readI32(code, p+8)
	p += 12
	var targets []int
	targets = append(targets, pc+def)
	for v := low; v <= high; v++ {
		targets = append(targets, pc+readI32(code, p))
		p += 4
	}
	return p - pc, targets, true, false, nil
}

func lookupswitchInfo(code []byte, pc int) (int, []int, bool, bool, error) {
	p := pc + 1
	for p%4 != 0 { // padding aligns to the method's code start
		p++
	}
	def := readI32(code, p)
	n := readI32(code, p+4)
	p += 8
	targets := []int{pc + def}
	for i := 0; i < n; i++ {
		targets = append(targets, pc+readI32(code, p+4))
		p += 8
	}
	return p - pc, targets, true, false, nil
}

func readI32(code []byte, p int) int {
	return int(int32(uint32(code[p])<<24 | uint32(code[p+1])<<16 | uint32(code[p+2])<<8 | uint32(code[p+3])))
}

func wideLength(code []byte, pc int) int {
	if pc+1 >= len(code) {
		return 2
	}
	if code[pc+1] == opcodes.IINC {
		return 6
	}
	return 4
}

// fixedLength returns the total instruction length (including the opcode
// byte) for every opcode not handled specially above.
func fixedLength(op byte) (int, error) {
	switch op {
	case opcodes.NOP, opcodes.ACONST_NULL,
		opcodes.ICONST_M1, opcodes.ICONST_0, opcodes.ICONST_1, opcodes.ICONST_2, opcodes.ICONST_3, opcodes.ICONST_4, opcodes.ICONST_5,
		opcodes.LCONST_0, opcodes.LCONST_1,
		opcodes.FCONST_0, opcodes.FCONST_1, opcodes.FCONST_2,
		opcodes.DCONST_0, opcodes.DCONST_1,
		opcodes.ILOAD_0, opcodes.ILOAD_1, opcodes.ILOAD_2, opcodes.ILOAD_3,
		opcodes.LLOAD_0, opcodes.LLOAD_1, opcodes.LLOAD_2, opcodes.LLOAD_3,
		opcodes.FLOAD_0, opcodes.FLOAD_1, opcodes.FLOAD_2, opcodes.FLOAD_3,
		opcodes.DLOAD_0, opcodes.DLOAD_1, opcodes.DLOAD_2, opcodes.DLOAD_3,
		opcodes.ALOAD_0, opcodes.ALOAD_1, opcodes.ALOAD_2, opcodes.ALOAD_3,
		opcodes.ISTORE_0, opcodes.ISTORE_1, opcodes.ISTORE_2, opcodes.ISTORE_3,
		opcodes.LSTORE_0, opcodes.LSTORE_1, opcodes.LSTORE_2, opcodes.LSTORE_3,
		opcodes.FSTORE_0, opcodes.FSTORE_1, opcodes.FSTORE_2, opcodes.FSTORE_3,
		opcodes.DSTORE_0, opcodes.DSTORE_1, opcodes.DSTORE_2, opcodes.DSTORE_3,
		opcodes.ASTORE_0, opcodes.ASTORE_1, opcodes.ASTORE_2, opcodes.ASTORE_3,
		opcodes.IALOAD, opcodes.LALOAD, opcodes.FALOAD, opcodes.DALOAD, opcodes.AALOAD, opcodes.BALOAD, opcodes.CALOAD, opcodes.SALOAD,
		opcodes.IASTORE, opcodes.LASTORE, opcodes.FASTORE, opcodes.DASTORE, opcodes.AASTORE, opcodes.BASTORE, opcodes.CASTORE, opcodes.SASTORE,
		opcodes.POP, opcodes.POP2, opcodes.DUP, opcodes.DUP_X1, opcodes.DUP_X2, opcodes.DUP2, opcodes.DUP2_X1, opcodes.DUP2_X2, opcodes.SWAP,
		opcodes.IADD, opcodes.LADD, opcodes.FADD, opcodes.DADD,
		opcodes.ISUB, opcodes.LSUB, opcodes.FSUB, opcodes.DSUB,
		opcodes.IMUL, opcodes.LMUL, opcodes.FMUL, opcodes.DMUL,
		opcodes.IDIV, opcodes.LDIV, opcodes.FDIV, opcodes.DDIV,
		opcodes.IREM, opcodes.LREM, opcodes.FREM, opcodes.DREM,
		opcodes.INEG, opcodes.LNEG, opcodes.FNEG, opcodes.DNEG,
		opcodes.ISHL, opcodes.LSHL, opcodes.ISHR, opcodes.LSHR, opcodes.IUSHR, opcodes.LUSHR,
		opcodes.IAND, opcodes.LAND, opcodes.IOR, opcodes.LOR, opcodes.IXOR, opcodes.LXOR,
		opcodes.I2L, opcodes.I2F, opcodes.I2D, opcodes.L2I, opcodes.L2F, opcodes.L2D,
		opcodes.F2I, opcodes.F2L, opcodes.F2D, opcodes.D2I, opcodes.D2L, opcodes.D2F,
		opcodes.I2B, opcodes.I2C, opcodes.I2S,
		opcodes.LCMP, opcodes.FCMPL, opcodes.FCMPG, opcodes.DCMPL, opcodes.DCMPG,
		opcodes.ARRAYLENGTH, opcodes.MONITORENTER, opcodes.MONITOREXIT:
		return 1, nil
	case opcodes.BIPUSH, opcodes.LDC, opcodes.NEWARRAY:
		return 2, nil
	case opcodes.ILOAD, opcodes.LLOAD, opcodes.FLOAD, opcodes.DLOAD, opcodes.ALOAD,
		opcodes.ISTORE, opcodes.LSTORE, opcodes.FSTORE, opcodes.DSTORE, opcodes.ASTORE:
		return 2, nil
	case opcodes.SIPUSH, opcodes.LDC_W, opcodes.LDC2_W,
		opcodes.GETSTATIC, opcodes.PUTSTATIC, opcodes.GETFIELD, opcodes.PUTFIELD,
		opcodes.INVOKEVIRTUAL, opcodes.INVOKESPECIAL, opcodes.INVOKESTATIC,
		opcodes.NEW, opcodes.ANEWARRAY, opcodes.CHECKCAST, opcodes.INSTANCEOF,
		opcodes.IINC:
		return 3, nil
	case opcodes.INVOKEINTERFACE, opcodes.INVOKEDYNAMIC, opcodes.MULTIANEWARRAY:
		return 5, nil
	default:
		return 1, nil // unrecognized opcodes are treated as single-byte no-ops rather than aborting CFG construction
	}
}
