/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

// This file implements parse(), the raw class-file byte decoder of spec
// §4.B ("Class-file model") and spec §6 ("class-file format"): magic number,
// version, constant pool, access flags, this/super class, interfaces,
// fields, methods (including the Code attribute), and class attributes. It
// populates the in-progress ParsedClass that formatCheckClass and
// convertToPostableClass (classloader.go) both consume.

import (
	"encoding/binary"
	"math"
	"strings"

	"jacobin/stringPool"
	"jacobin/types"
)

const classFileMagic = 0xCAFEBABE

// classReader is a bounds-checked cursor over a class file's raw bytes.
type classReader struct {
	data []byte
	pos  int
}

func newClassReader(data []byte) *classReader {
	return &classReader{data: data}
}

func (r *classReader) remaining() int { return len(r.data) - r.pos }

func (r *classReader) u1() (int, error) {
	if r.remaining() < 1 {
		return 0, cfe("unexpected end of class file")
	}
	b := r.data[r.pos]
	r.pos++
	return int(b), nil
}

func (r *classReader) u2() (int, error) {
	if r.remaining() < 2 {
		return 0, cfe("unexpected end of class file")
	}
	v := int(binary.BigEndian.Uint16(r.data[r.pos:]))
	r.pos += 2
	return v, nil
}

func (r *classReader) u4() (uint32, error) {
	if r.remaining() < 4 {
		return 0, cfe("unexpected end of class file")
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *classReader) bytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, cfe("unexpected end of class file")
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// readRawAttr reads one generic {name_index, length, info[]} attribute
// header, common to every attribute kind in the class-file format.
func readRawAttr(r *classReader) (nameIdx int, content []byte, err error) {
	nameIdx, err = r.u2()
	if err != nil {
		return 0, nil, err
	}
	length, err := r.u4()
	if err != nil {
		return 0, nil, err
	}
	content, err = r.bytes(int(length))
	return nameIdx, content, err
}

// utf8Slot resolves a raw constant-pool index to its position in
// pc.utf8Refs, failing if the index doesn't name a UTF8 entry.
func (pc *ParsedClass) utf8Slot(cpIdx int) (int, error) {
	if cpIdx <= 0 || cpIdx >= len(pc.cpIndex) || pc.cpIndex[cpIdx].entryType != UTF8 {
		return 0, cfe("expected a UTF8 constant pool entry")
	}
	return pc.cpIndex[cpIdx].slot, nil
}

// utf8At resolves a raw constant-pool index directly to its string content,
// returning "" for any index that doesn't resolve (used only where the
// caller has already validated the index, e.g. rendering an attribute name
// it already bounds-checked when the attribute's length was read).
func (pc *ParsedClass) utf8At(cpIdx int) string {
	slot, err := pc.utf8Slot(cpIdx)
	if err != nil {
		return ""
	}
	return pc.utf8Refs[slot].content
}

// resolveConstantValue resolves a ConstantValue field attribute's CP index
// to its Go-native literal.
func resolveConstantValue(pc *ParsedClass, idx int) interface{} {
	if idx <= 0 || idx >= len(pc.cpIndex) {
		return nil
	}
	e := pc.cpIndex[idx]
	switch e.entryType {
	case IntConst:
		return int32(pc.intConsts[e.slot])
	case FloatConst:
		return pc.floats[e.slot]
	case LongConst:
		return pc.longConsts[e.slot]
	case DoubleConst:
		return pc.doubles[e.slot]
	case StringConst:
		return pc.utf8At(pc.stringRefs[e.slot].index)
	default:
		return nil
	}
}

// parse decodes rawBytes as a .class file into a ParsedClass. It performs no
// format checking beyond what is required to keep the byte stream aligned
// (e.g. a constant-pool tag it doesn't recognize is still a hard error,
// since there would be no way to know how many bytes to skip); semantic
// validation is formatCheckClass's job.
func parse(rawBytes []byte) (ParsedClass, error) {
	pc := ParsedClass{}
	r := newClassReader(rawBytes)

	magic, err := r.u4()
	if err != nil {
		return pc, cfe("could not read magic number")
	}
	if magic != classFileMagic {
		return pc, cfe("invalid magic number")
	}

	if _, err = r.u2(); err != nil { // minor version, not tracked
		return pc, err
	}
	major, err := r.u2()
	if err != nil {
		return pc, err
	}
	pc.javaVersion = major

	cpCount, err := r.u2()
	if err != nil {
		return pc, err
	}
	if cpCount < 1 {
		return pc, cfe("invalid constant pool count")
	}
	pc.cpCount = cpCount
	pc.cpIndex = make([]cpEntry, cpCount)

	type pendingClassRef struct{ idx, nameIdx int }
	var pendingClasses []pendingClassRef

	for i := 1; i < cpCount; i++ {
		tag, err := r.u1()
		if err != nil {
			return pc, err
		}
		switch tag {
		case UTF8:
			length, err := r.u2()
			if err != nil {
				return pc, err
			}
			raw, err := r.bytes(length)
			if err != nil {
				return pc, err
			}
			pc.utf8Refs = append(pc.utf8Refs, utf8Entry{content: string(raw)})
			pc.cpIndex[i] = cpEntry{entryType: UTF8, slot: len(pc.utf8Refs) - 1}
		case IntConst:
			v, err := r.u4()
			if err != nil {
				return pc, err
			}
			pc.intConsts = append(pc.intConsts, int(int32(v)))
			pc.cpIndex[i] = cpEntry{entryType: IntConst, slot: len(pc.intConsts) - 1}
		case FloatConst:
			v, err := r.u4()
			if err != nil {
				return pc, err
			}
			pc.floats = append(pc.floats, math.Float32frombits(v))
			pc.cpIndex[i] = cpEntry{entryType: FloatConst, slot: len(pc.floats) - 1}
		case LongConst:
			hi, err := r.u4()
			if err != nil {
				return pc, err
			}
			lo, err := r.u4()
			if err != nil {
				return pc, err
			}
			pc.longConsts = append(pc.longConsts, int64(hi)<<32|int64(lo))
			pc.cpIndex[i] = cpEntry{entryType: LongConst, slot: len(pc.longConsts) - 1}
			if i+1 < cpCount {
				pc.cpIndex[i+1] = cpEntry{entryType: Dummy}
			}
			i++
		case DoubleConst:
			hi, err := r.u4()
			if err != nil {
				return pc, err
			}
			lo, err := r.u4()
			if err != nil {
				return pc, err
			}
			bits := uint64(hi)<<32 | uint64(lo)
			pc.doubles = append(pc.doubles, math.Float64frombits(bits))
			pc.cpIndex[i] = cpEntry{entryType: DoubleConst, slot: len(pc.doubles) - 1}
			if i+1 < cpCount {
				pc.cpIndex[i+1] = cpEntry{entryType: Dummy}
			}
			i++
		case ClassRef:
			nameIdx, err := r.u2()
			if err != nil {
				return pc, err
			}
			pendingClasses = append(pendingClasses, pendingClassRef{idx: i, nameIdx: nameIdx})
		case StringConst:
			strIdx, err := r.u2()
			if err != nil {
				return pc, err
			}
			pc.stringRefs = append(pc.stringRefs, stringConstantEntry{index: strIdx})
			pc.cpIndex[i] = cpEntry{entryType: StringConst, slot: len(pc.stringRefs) - 1}
		case FieldRef:
			ci, err := r.u2()
			if err != nil {
				return pc, err
			}
			ni, err := r.u2()
			if err != nil {
				return pc, err
			}
			pc.fieldRefs = append(pc.fieldRefs, fieldRefEntry{classIndex: ci, nameAndTypeIndex: ni})
			pc.cpIndex[i] = cpEntry{entryType: FieldRef, slot: len(pc.fieldRefs) - 1}
		case MethodRef:
			ci, err := r.u2()
			if err != nil {
				return pc, err
			}
			ni, err := r.u2()
			if err != nil {
				return pc, err
			}
			pc.methodRefs = append(pc.methodRefs, methodRefEntry{classIndex: ci, nameAndTypeIndex: ni})
			pc.cpIndex[i] = cpEntry{entryType: MethodRef, slot: len(pc.methodRefs) - 1}
		case Interface:
			ci, err := r.u2()
			if err != nil {
				return pc, err
			}
			ni, err := r.u2()
			if err != nil {
				return pc, err
			}
			pc.interfaceRefs = append(pc.interfaceRefs, interfaceRefEntry{classIndex: ci, nameAndTypeIndex: ni})
			pc.cpIndex[i] = cpEntry{entryType: Interface, slot: len(pc.interfaceRefs) - 1}
		case NameAndType:
			ni, err := r.u2()
			if err != nil {
				return pc, err
			}
			di, err := r.u2()
			if err != nil {
				return pc, err
			}
			pc.nameAndTypes = append(pc.nameAndTypes, nameAndTypeEntry{nameIndex: ni, descriptorIndex: di})
			pc.cpIndex[i] = cpEntry{entryType: NameAndType, slot: len(pc.nameAndTypes) - 1}
		case MethodHandle:
			rk, err := r.u1()
			if err != nil {
				return pc, err
			}
			ri, err := r.u2()
			if err != nil {
				return pc, err
			}
			pc.methodHandles = append(pc.methodHandles, methodHandleEntry{referenceKind: rk, referenceIndex: ri})
			pc.cpIndex[i] = cpEntry{entryType: MethodHandle, slot: len(pc.methodHandles) - 1}
		case MethodType:
			di, err := r.u2()
			if err != nil {
				return pc, err
			}
			pc.methodTypes = append(pc.methodTypes, di)
			pc.cpIndex[i] = cpEntry{entryType: MethodType, slot: len(pc.methodTypes) - 1}
		case Dynamic:
			bi, err := r.u2()
			if err != nil {
				return pc, err
			}
			ni, err := r.u2()
			if err != nil {
				return pc, err
			}
			pc.dynamics = append(pc.dynamics, dynamic{bootstrapIndex: bi, nameAndType: ni})
			pc.cpIndex[i] = cpEntry{entryType: Dynamic, slot: len(pc.dynamics) - 1}
		case InvokeDynamic:
			bi, err := r.u2()
			if err != nil {
				return pc, err
			}
			ni, err := r.u2()
			if err != nil {
				return pc, err
			}
			pc.invokeDynamics = append(pc.invokeDynamics, invokeDynamic{bootstrapIndex: bi, nameAndType: ni})
			pc.cpIndex[i] = cpEntry{entryType: InvokeDynamic, slot: len(pc.invokeDynamics) - 1}
		case Module, Package:
			// Module/Package CP entries carry a single name index. This VM
			// tracks only the unnamed module (see modgraph), so the value is
			// read to keep the byte stream aligned and otherwise discarded.
			if _, err := r.u2(); err != nil {
				return pc, err
			}
			pc.cpIndex[i] = cpEntry{entryType: tag}
		default:
			return pc, cfe("unrecognized constant pool tag")
		}
	}

	// Second pass: resolve class references now that every UTF8 entry's
	// position is known, regardless of whether it appeared before or after
	// the class reference that names it.
	for _, p := range pendingClasses {
		slot, err := pc.utf8Slot(p.nameIdx)
		if err != nil {
			return pc, cfe("class reference does not point to a UTF8 entry")
		}
		name := pc.utf8Refs[slot].content
		pc.classRefs = append(pc.classRefs, stringPool.GetStringIndex(name))
		pc.cpIndex[p.idx] = cpEntry{entryType: ClassRef, slot: len(pc.classRefs) - 1}
	}

	// ---- access_flags, this_class, super_class ----
	af, err := r.u2()
	if err != nil {
		return pc, err
	}
	pc.accessFlags = af
	pc.classIsPublic = af&ClassAccPublic != 0
	pc.classIsFinal = af&ClassAccFinal != 0
	pc.classIsSuper = af&ClassAccSuper != 0
	pc.classIsInterface = af&ClassAccInterface != 0
	pc.classIsAbstract = af&ClassAccAbstract != 0
	pc.classIsSynthetic = af&ClassAccSynthetic != 0
	pc.classIsAnnotation = af&ClassAccAnnotation != 0
	pc.classIsEnum = af&ClassAccEnum != 0
	pc.classIsModule = af&ClassAccModule != 0

	thisClassIdx, err := r.u2()
	if err != nil {
		return pc, err
	}
	if thisClassIdx <= 0 || thisClassIdx >= cpCount || pc.cpIndex[thisClassIdx].entryType != ClassRef {
		return pc, cfe("this_class does not point to a class reference")
	}
	pc.classNameIndex = pc.classRefs[pc.cpIndex[thisClassIdx].slot]
	if p := stringPool.GetStringPointer(pc.classNameIndex); p != nil {
		pc.className = *p
	}
	if slash := strings.LastIndex(pc.className, "/"); slash >= 0 {
		pc.packageName = pc.className[:slash]
	}

	superClassIdx, err := r.u2()
	if err != nil {
		return pc, err
	}
	if superClassIdx == 0 {
		pc.superClassIndex = types.ObjectPoolStringIndex
	} else {
		if superClassIdx >= cpCount || pc.cpIndex[superClassIdx].entryType != ClassRef {
			return pc, cfe("super_class does not point to a class reference")
		}
		pc.superClassIndex = pc.classRefs[pc.cpIndex[superClassIdx].slot]
	}

	// ---- interfaces ----
	ifaceCount, err := r.u2()
	if err != nil {
		return pc, err
	}
	pc.interfaceCount = ifaceCount
	for k := 0; k < ifaceCount; k++ {
		idx, err := r.u2()
		if err != nil {
			return pc, err
		}
		if idx <= 0 || idx >= cpCount || pc.cpIndex[idx].entryType != ClassRef {
			return pc, cfe("interface entry does not point to a class reference")
		}
		pc.interfaces = append(pc.interfaces, pc.classRefs[pc.cpIndex[idx].slot])
	}

	// ---- fields ----
	fieldCount, err := r.u2()
	if err != nil {
		return pc, err
	}
	pc.fieldCount = fieldCount
	for k := 0; k < fieldCount; k++ {
		afv, err := r.u2()
		if err != nil {
			return pc, err
		}
		nameIdx, err := r.u2()
		if err != nil {
			return pc, err
		}
		descIdx, err := r.u2()
		if err != nil {
			return pc, err
		}
		nameSlot, err := pc.utf8Slot(nameIdx)
		if err != nil {
			return pc, err
		}
		descSlot, err := pc.utf8Slot(descIdx)
		if err != nil {
			return pc, err
		}
		attrCount, err := r.u2()
		if err != nil {
			return pc, err
		}
		fld := field{accessFlags: afv, isStatic: afv&FieldAccStatic != 0, name: nameSlot, description: descSlot}
		if err := parseFieldAttrs(r, &pc, attrCount, &fld); err != nil {
			return pc, err
		}
		pc.fields = append(pc.fields, fld)
	}

	// ---- methods ----
	methodCount, err := r.u2()
	if err != nil {
		return pc, err
	}
	pc.methodCount = methodCount
	for k := 0; k < methodCount; k++ {
		afv, err := r.u2()
		if err != nil {
			return pc, err
		}
		nameIdx, err := r.u2()
		if err != nil {
			return pc, err
		}
		descIdx, err := r.u2()
		if err != nil {
			return pc, err
		}
		nameSlot, err := pc.utf8Slot(nameIdx)
		if err != nil {
			return pc, err
		}
		descSlot, err := pc.utf8Slot(descIdx)
		if err != nil {
			return pc, err
		}
		attrCount, err := r.u2()
		if err != nil {
			return pc, err
		}
		m := method{accessFlags: afv, name: nameSlot, description: descSlot}
		if err := parseMethodAttrs(r, &pc, attrCount, &m); err != nil {
			return pc, err
		}
		pc.methods = append(pc.methods, m)
	}

	// ---- class attributes ----
	attrCount, err := r.u2()
	if err != nil {
		return pc, err
	}
	pc.attribCount = attrCount
	for k := 0; k < attrCount; k++ {
		nameIdx, content, err := readRawAttr(r)
		if err != nil {
			return pc, err
		}
		name := pc.utf8At(nameIdx)
		switch name {
		case "SourceFile":
			if len(content) >= 2 {
				pc.sourceFile = pc.utf8At(int(binary.BigEndian.Uint16(content)))
			}
		case "Deprecated":
			pc.deprecated = true
		case "BootstrapMethods":
			cr := newClassReader(content)
			n, err := cr.u2()
			if err != nil {
				return pc, err
			}
			pc.bootstrapCount = n
			for i := 0; i < n; i++ {
				mref, err := cr.u2()
				if err != nil {
					return pc, err
				}
				argc, err := cr.u2()
				if err != nil {
					return pc, err
				}
				bm := bootstrapMethod{methodRef: mref}
				for j := 0; j < argc; j++ {
					a, err := cr.u2()
					if err != nil {
						return pc, err
					}
					bm.args = append(bm.args, a)
				}
				pc.bootstraps = append(pc.bootstraps, bm)
			}
		default:
			pc.attributes = append(pc.attributes, attr{attrName: nameIdx, attrSize: len(content), attrContent: content})
		}
	}

	return pc, nil
}

// parseFieldAttrs reads count field-level attributes, extracting
// ConstantValue specially and keeping everything else as a raw attr.
func parseFieldAttrs(r *classReader, pc *ParsedClass, count int, fld *field) error {
	for a := 0; a < count; a++ {
		nameIdx, content, err := readRawAttr(r)
		if err != nil {
			return err
		}
		name := pc.utf8At(nameIdx)
		if name == "ConstantValue" && len(content) >= 2 {
			fld.constValue = resolveConstantValue(pc, int(binary.BigEndian.Uint16(content)))
			continue
		}
		fld.attributes = append(fld.attributes, attr{attrName: nameIdx, attrSize: len(content), attrContent: content})
	}
	return nil
}

// parseMethodAttrs reads count method-level attributes, extracting Code,
// Exceptions, Deprecated, and MethodParameters specially.
func parseMethodAttrs(r *classReader, pc *ParsedClass, count int, m *method) error {
	for a := 0; a < count; a++ {
		nameIdx, content, err := readRawAttr(r)
		if err != nil {
			return err
		}
		switch pc.utf8At(nameIdx) {
		case "Code":
			ca, err := parseCodeAttribute(pc, content)
			if err != nil {
				return err
			}
			m.codeAttr = ca
		case "Exceptions":
			cr := newClassReader(content)
			n, err := cr.u2()
			if err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				idx, err := cr.u2()
				if err != nil {
					return err
				}
				m.exceptions = append(m.exceptions, uint32(idx))
			}
		case "Deprecated":
			m.deprecated = true
		case "MethodParameters":
			cr := newClassReader(content)
			n, err := cr.u1()
			if err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				nameIdx2, err := cr.u2()
				if err != nil {
					return err
				}
				flags, err := cr.u2()
				if err != nil {
					return err
				}
				pname := ""
				if nameIdx2 != 0 {
					pname = pc.utf8At(nameIdx2)
				}
				m.parameters = append(m.parameters, paramAttrib{name: pname, accessFlags: flags})
			}
		default:
			m.attributes = append(m.attributes, attr{attrName: nameIdx, attrSize: len(content), attrContent: content})
		}
	}
	return nil
}

// parseCodeAttribute decodes a method's Code attribute body: max_stack,
// max_locals, the raw bytecode, the exception table, and its own
// sub-attributes (of which only LineNumberTable is interpreted).
func parseCodeAttribute(pc *ParsedClass, content []byte) (codeAttrib, error) {
	ca := codeAttrib{}
	cr := newClassReader(content)

	maxStack, err := cr.u2()
	if err != nil {
		return ca, err
	}
	maxLocals, err := cr.u2()
	if err != nil {
		return ca, err
	}
	codeLen, err := cr.u4()
	if err != nil {
		return ca, err
	}
	code, err := cr.bytes(int(codeLen))
	if err != nil {
		return ca, err
	}
	ca.maxStack = maxStack
	ca.maxLocals = maxLocals
	ca.code = append([]byte(nil), code...)

	excCount, err := cr.u2()
	if err != nil {
		return ca, err
	}
	for i := 0; i < excCount; i++ {
		sp, err := cr.u2()
		if err != nil {
			return ca, err
		}
		ep, err := cr.u2()
		if err != nil {
			return ca, err
		}
		hp, err := cr.u2()
		if err != nil {
			return ca, err
		}
		ct, err := cr.u2()
		if err != nil {
			return ca, err
		}
		ca.exceptions = append(ca.exceptions, exception{startPc: sp, endPc: ep, handlerPc: hp, catchType: ct})
	}

	attrCount, err := cr.u2()
	if err != nil {
		return ca, err
	}
	for i := 0; i < attrCount; i++ {
		nameIdx, acontent, err := readRawAttr(cr)
		if err != nil {
			return ca, err
		}
		if pc.utf8At(nameIdx) == "LineNumberTable" {
			lr := newClassReader(acontent)
			n, err := lr.u2()
			if err != nil {
				return ca, err
			}
			table := make([]BytecodeToSourceLine, 0, n)
			for j := 0; j < n; j++ {
				bcPc, err := lr.u2()
				if err != nil {
					return ca, err
				}
				ln, err := lr.u2()
				if err != nil {
					return ca, err
				}
				table = append(table, BytecodeToSourceLine{Bytecode: bcPc, SourceLine: ln})
			}
			ca.sourceLineTable = &table
			continue
		}
		ca.attributes = append(ca.attributes, attr{attrName: nameIdx, attrSize: len(acontent), attrContent: acontent})
	}

	return ca, nil
}
