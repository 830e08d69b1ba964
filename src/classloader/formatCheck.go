/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

// This file implements formatCheckClass, the semantic validation pass of
// spec §4.B ("Class-file model") that parse() does not perform: constant
// pool cross-reference validity, name/descriptor syntax, and the
// access-flag cross-checks of spec §4.C ("Access-flag cross-checks"). It
// runs after parse() succeeds and before convertToPostableClass narrows the
// result for posting to the method area.

import (
	"fmt"
	"os"
	"strings"
)

// formatErr reports a format-check failure. It writes directly to the
// current os.Stderr (so tests that redirect os.Stderr around a single call
// capture it) in addition to going through cfe()'s usual class-format-error
// bookkeeping (caller file/line, trace logging, and the returned error).
func formatErr(msg string) error {
	fmt.Fprintln(os.Stderr, msg)
	return cfe(msg)
}

// formatCheckClass runs every structural check this loader performs on a
// freshly parsed class before it is eligible for posting to the method
// area.
func formatCheckClass(klass *ParsedClass) error {
	if err := formatCheckConstantPool(klass); err != nil {
		return err
	}
	if err := formatCheckAccessFlags(klass); err != nil {
		return err
	}
	if err := formatCheckFieldsAndMethods(klass); err != nil {
		return err
	}
	return nil
}

// formatCheckConstantPool validates every constant-pool entry's internal
// consistency and cross-references, per spec §4.B "ConstantPool" and the
// class-file format's constant_pool table (spec §6).
func formatCheckConstantPool(klass *ParsedClass) error {
	if klass.cpCount != len(klass.cpIndex) {
		return formatErr("Error in size of constant pool: cpCount does not match the number of entries")
	}
	if len(klass.cpIndex) == 0 {
		return formatErr("empty constant pool")
	}
	if klass.cpIndex[0].entryType != Dummy {
		return formatErr("Missing dummy entry in first slot of constant pool")
	}

	for i := 1; i < len(klass.cpIndex); i++ {
		entry := klass.cpIndex[i]
		switch entry.entryType {
		case Dummy:
			// the slot following a Long/Double entry; never independently
			// examined.
			continue
		case UTF8:
			if entry.slot < 0 || entry.slot >= len(klass.utf8Refs) {
				return formatErr("CP entry points to invalid UTF8 entry")
			}
			if !isValidModifiedUTF8(klass.utf8Refs[entry.slot].content) {
				return formatErr("UTF8 entry contains an invalid character")
			}
		case IntConst:
			if entry.slot < 0 || entry.slot >= len(klass.intConsts) {
				return formatErr("invalid entry in CP intConsts")
			}
		case FloatConst:
			if entry.slot < 0 || entry.slot >= len(klass.floats) {
				return formatErr("invalid entry in CP floats")
			}
		case LongConst:
			if entry.slot < 0 || entry.slot >= len(klass.longConsts) {
				return formatErr("invalid entry in CP longConsts")
			}
			if i+1 >= len(klass.cpIndex) || klass.cpIndex[i+1].entryType != Dummy {
				return formatErr("Missing dummy entry after 8-byte constant (long)")
			}
		case DoubleConst:
			if entry.slot < 0 || entry.slot >= len(klass.doubles) {
				return formatErr("invalid entry in CP doubles")
			}
			if i+1 >= len(klass.cpIndex) || klass.cpIndex[i+1].entryType != Dummy {
				return formatErr("Missing dummy entry after 8-byte constant (double)")
			}
		case StringConst:
			if entry.slot < 0 || entry.slot >= len(klass.stringRefs) {
				return formatErr("invalid entry in CP utf8Refs (string constant)")
			}
			utf8Idx := klass.stringRefs[entry.slot].index
			if utf8Idx <= 0 || utf8Idx >= len(klass.cpIndex) || klass.cpIndex[utf8Idx].entryType != UTF8 {
				return formatErr("StringConst points to invalid UTF8 entry")
			}
		case ClassRef:
			if entry.slot < 0 || entry.slot >= len(klass.classRefs) {
				return formatErr("CP entry points to an invalid entry in ClassRefs")
			}
		case FieldRef:
			if entry.slot < 0 || entry.slot >= len(klass.fieldRefs) {
				return formatErr("invalid entry in CP fieldRefs")
			}
			fr := klass.fieldRefs[entry.slot]
			if err := checkClassIndex(klass, fr.classIndex); err != nil {
				return err
			}
			if err := checkNameAndType(klass, fr.nameAndTypeIndex, false); err != nil {
				return err
			}
		case MethodRef:
			if entry.slot < 0 || entry.slot >= len(klass.methodRefs) {
				return formatErr("invalid entry in CP methodRefs")
			}
			mr := klass.methodRefs[entry.slot]
			if err := checkClassIndex(klass, mr.classIndex); err != nil {
				return err
			}
			if err := checkMethodNameAndType(klass, mr.nameAndTypeIndex); err != nil {
				return err
			}
		case Interface:
			if entry.slot < 0 || entry.slot >= len(klass.interfaceRefs) {
				return formatErr("invalid entry in CP interfaceRefs")
			}
			ir := klass.interfaceRefs[entry.slot]
			if err := checkClassIndex(klass, ir.classIndex); err != nil {
				return err
			}
			if err := checkMethodNameAndType(klass, ir.nameAndTypeIndex); err != nil {
				return err
			}
		case NameAndType:
			if entry.slot < 0 || entry.slot >= len(klass.nameAndTypes) {
				return formatErr("CP entry points to an invalid entry in nameAndType")
			}
			nt := klass.nameAndTypes[entry.slot]
			if _, err := klass.utf8Slot(nt.nameIndex); err != nil {
				return formatErr("NameAndType points to an invalid entry in nameAndType")
			}
			if _, err := klass.utf8Slot(nt.descriptorIndex); err != nil {
				return formatErr("NameAndType points to an invalid entry in nameAndType")
			}
		case MethodHandle:
			if entry.slot < 0 || entry.slot >= len(klass.methodHandles) {
				return formatErr("invalid entry in CP methodHandles")
			}
			if err := checkMethodHandle(klass, klass.methodHandles[entry.slot]); err != nil {
				return err
			}
		case MethodType:
			if entry.slot < 0 || entry.slot >= len(klass.methodTypes) {
				return formatErr("invalid entry in CP methodTypes")
			}
			desc := klass.utf8At(klass.methodTypes[entry.slot])
			if !strings.HasPrefix(desc, "(") {
				return formatErr("MethodType does not point to a type that starts with an open parenthesis")
			}
		case Dynamic:
			if entry.slot < 0 || entry.slot >= len(klass.dynamics) {
				return formatErr("invalid entry in CP dynamics")
			}
			if err := checkNameAndType(klass, klass.dynamics[entry.slot].nameAndType, false); err != nil {
				return err
			}
		case InvokeDynamic:
			if entry.slot < 0 || entry.slot >= len(klass.invokeDynamics) {
				return formatErr("CP entry points to a non-existent invokeDynamic slot")
			}
			if err := checkMethodNameAndType(klass, klass.invokeDynamics[entry.slot].nameAndType); err != nil {
				return err
			}
		case Module, Package:
			// module/package CP entries carry no further validatable data in
			// this VM (see parser.go).
			continue
		default:
			return formatErr("unrecognized constant pool entry type")
		}
	}
	return nil
}

// checkClassIndex validates that cpIdx names a resolvable class reference.
func checkClassIndex(klass *ParsedClass, cpIdx int) error {
	if cpIdx <= 0 || cpIdx >= len(klass.cpIndex) || klass.cpIndex[cpIdx].entryType != ClassRef {
		return formatErr("reference points to an invalid entry in ClassRefs (not a ClassRef entry)")
	}
	slot := klass.cpIndex[cpIdx].slot
	if slot < 0 || slot >= len(klass.classRefs) {
		return formatErr("reference points to an invalid entry in ClassRefs")
	}
	return nil
}

// checkNameAndType validates that cpIdx names a resolvable NameAndType
// entry whose descriptor is syntactically valid. methodDesc requests
// method-descriptor syntax (leading '(') rather than field-descriptor
// syntax.
func checkNameAndType(klass *ParsedClass, cpIdx int, methodDesc bool) error {
	if cpIdx <= 0 || cpIdx >= len(klass.cpIndex) || klass.cpIndex[cpIdx].entryType != NameAndType {
		return formatErr("reference points to an invalid entry in nameAndType")
	}
	slot := klass.cpIndex[cpIdx].slot
	if slot < 0 || slot >= len(klass.nameAndTypes) {
		return formatErr("reference points to an invalid entry in nameAndType")
	}
	nt := klass.nameAndTypes[slot]
	name := klass.utf8At(nt.nameIndex)
	if name == "" {
		return formatErr("NameAndType entry has an invalid name")
	}
	desc := klass.utf8At(nt.descriptorIndex)
	if methodDesc && !strings.HasPrefix(desc, "(") {
		return formatErr("descriptor does not point to a type that starts with an open parenthesis")
	}
	if !methodDesc && !isValidFieldDescriptor(desc) {
		return formatErr("NameAndType entry has an invalid field descriptor: " + desc)
	}
	return nil
}

// checkMethodNameAndType additionally rejects method names containing
// characters the JVM forbids in a method name (spec §6 unqualified names,
// plus '<' and '>' outside <init> and <clinit>), and requires a
// method-shaped descriptor.
func checkMethodNameAndType(klass *ParsedClass, cpIdx int) error {
	if cpIdx <= 0 || cpIdx >= len(klass.cpIndex) || klass.cpIndex[cpIdx].entryType != NameAndType {
		return formatErr("reference points to an invalid entry in nameAndType")
	}
	nt := klass.nameAndTypes[klass.cpIndex[cpIdx].slot]
	name := klass.utf8At(nt.nameIndex)
	if name != "<init>" && name != "<clinit>" &&
		(!isValidUnqualifiedName(name) || strings.ContainsAny(name, "<>")) {
		return formatErr("CP entry points to an entry with an invalid method name: " + name)
	}
	return checkNameAndType(klass, cpIdx, true)
}

// checkMethodHandle validates a MethodHandle's reference kind against the
// kind of CP entry it points to (spec §6, "reference_kind").
func checkMethodHandle(klass *ParsedClass, mh methodHandleEntry) error {
	idx := mh.referenceIndex
	if idx <= 0 || idx >= len(klass.cpIndex) {
		return formatErr("MethodHandle reference_index is out of range")
	}
	kind := klass.cpIndex[idx].entryType
	switch mh.referenceKind {
	case 1, 2, 3, 4: // REF_getField, REF_getStatic, REF_putField, REF_putStatic
		if kind != FieldRef {
			return formatErr("MethodHandle with reference kind of 1-4 which does not point to a FieldRef")
		}
	case 5, 8: // REF_invokeVirtual, REF_newInvokeSpecial
		if kind != MethodRef {
			return formatErr("MethodHandle with reference kind of 5 or 8 which does not point to a MethodRef")
		}
	case 6, 7: // REF_invokeStatic, REF_invokeSpecial
		if kind != MethodRef && !(kind == Interface && klass.javaVersion >= 52) {
			return formatErr("MethodHandle with reference kind of 6 or 7 which does not point to a MethodRef " +
				"or in Java version 52 or later, an InterfaceMethodRef")
		}
	case 9: // REF_invokeInterface
		if kind != Interface {
			return formatErr("MethodHandle with reference kind  of 9 which does not point to an interface method reference")
		}
	default:
		return formatErr("MethodHandle has an invalid reference kind")
	}
	return nil
}

// formatCheckAccessFlags cross-checks class-level access flags for
// mutually exclusive or required combinations (spec §4.C, "Access-flag
// cross-checks").
func formatCheckAccessFlags(klass *ParsedClass) error {
	if klass.classIsInterface && !klass.classIsAbstract {
		return formatErr("a class with ACC_INTERFACE set must also have ACC_ABSTRACT set")
	}
	if klass.classIsInterface && klass.classIsFinal {
		return formatErr("a class may not have both ACC_INTERFACE and ACC_FINAL set")
	}
	if klass.classIsAbstract && klass.classIsFinal {
		return formatErr("a class may not have both ACC_ABSTRACT and ACC_FINAL set")
	}
	if klass.classIsAnnotation && !klass.classIsInterface {
		return formatErr("a class with ACC_ANNOTATION set must also have ACC_INTERFACE set")
	}
	return nil
}

// formatCheckFieldsAndMethods validates field/method names and descriptor
// syntax (spec §6, unqualified names and field/method descriptors).
func formatCheckFieldsAndMethods(klass *ParsedClass) error {
	// field and method names/descriptors are utf8Refs slots, not CP indexes
	utf8 := func(slot int) string {
		if slot < 0 || slot >= len(klass.utf8Refs) {
			return ""
		}
		return klass.utf8Refs[slot].content
	}
	for _, f := range klass.fields {
		name := utf8(f.name)
		if !isValidUnqualifiedName(name) {
			return formatErr("field has an invalid name: " + name)
		}
		desc := utf8(f.description)
		if !isValidFieldDescriptor(desc) {
			return formatErr("field has an invalid descriptor: " + desc)
		}
	}
	for _, m := range klass.methods {
		name := utf8(m.name)
		if name != "<init>" && name != "<clinit>" && !isValidUnqualifiedName(name) {
			return formatErr("method has an invalid name: " + name)
		}
		desc := utf8(m.description)
		if !strings.HasPrefix(desc, "(") {
			return formatErr("method descriptor does not point to a type that starts with an open parenthesis")
		}
		if !isValidMethodDescriptor(desc) {
			return formatErr("method has an invalid descriptor: " + desc)
		}
	}
	return nil
}

// isValidModifiedUTF8 rejects the byte values the class-file format's
// modified UTF-8 never contains: 0x00 (modified UTF-8 encodes NUL as two
// bytes) and any byte in the range 0xF0-0xFF (spec §6 refers to the class
// file's string encoding as "modified UTF-8").
func isValidModifiedUTF8(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 || s[i] >= 0xF0 {
			return false
		}
	}
	return true
}

// isValidUnqualifiedName rejects the four characters the class-file format
// forbids in unqualified names: '.', ';', '[', and '/' (the last is
// permitted only in binary class names, not in field/method names).
func isValidUnqualifiedName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsAny(name, ".;[/")
}

// isValidFieldDescriptor performs a light structural check of a field
// descriptor: it must be a base type letter, an array, or a class type of
// the form "Lname;".
func isValidFieldDescriptor(desc string) bool {
	if desc == "" {
		return false
	}
	for len(desc) > 0 && desc[0] == '[' {
		desc = desc[1:]
	}
	if desc == "" {
		return false
	}
	switch desc[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return len(desc) == 1
	case 'L':
		return strings.HasSuffix(desc, ";") && len(desc) > 2
	default:
		return false
	}
}

// isValidMethodDescriptor performs a light structural check of a method
// descriptor: "(" parameterDescriptors ")" returnDescriptor.
func isValidMethodDescriptor(desc string) bool {
	if !strings.HasPrefix(desc, "(") {
		return false
	}
	closeParen := strings.Index(desc, ")")
	if closeParen < 0 {
		return false
	}
	params := desc[1:closeParen]
	ret := desc[closeParen+1:]
	for len(params) > 0 {
		consumed := consumeFieldDescriptor(params)
		if consumed == 0 {
			return false
		}
		params = params[consumed:]
	}
	if ret == "V" {
		return true
	}
	return consumeFieldDescriptor(ret) == len(ret)
}

// consumeFieldDescriptor returns the byte length of one field descriptor at
// the start of s, or 0 if s doesn't start with a valid one.
func consumeFieldDescriptor(s string) int {
	n := 0
	for n < len(s) && s[n] == '[' {
		n++
	}
	if n >= len(s) {
		return 0
	}
	switch s[n] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return n + 1
	case 'L':
		end := strings.IndexByte(s[n:], ';')
		if end < 0 {
			return 0
		}
		return n + end + 1
	default:
		return 0
	}
}
