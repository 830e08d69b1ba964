/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

// Constant-pool entry tags, per spec §3 ("ConstantPool") and the class-file
// byte format of spec §6. Dummy occupies the invalid slot that follows a
// Long/Double entry (spec: "Long/Double consume the following index slot
// which must be unusable").
const (
	Dummy       = 0
	UTF8        = 1
	IntConst    = 3
	FloatConst  = 4
	LongConst   = 5
	DoubleConst = 6
	ClassRef    = 7
	StringConst = 8
	FieldRef    = 9
	MethodRef   = 10
	Interface   = 11 // InterfaceMethodRef
	NameAndType = 12
	MethodHandle = 15
	MethodType   = 16
	Dynamic      = 17
	InvokeDynamic = 18
	Module       = 19
	Package      = 20
)

// CPool is the postable (post-parse, post-format-check) form of a class's
// constant pool: every index has been narrowed to uint16 and every entry
// type has its own flat slice, so that resolving an entry is an O(1) slice
// index rather than a discriminated-union allocation (spec §9, Design
// Notes: "Heavy polymorphism in...constant-pool entries: prefer tagged
// variants with an exhaustive dispatch on the tag").
type CPool struct {
	CpIndex        []CpEntry
	ClassRefs      []uint32 // index into stringPool holding the class name
	Doubles        []float64
	Dynamics       []DynamicEntry
	FieldRefs      []FieldRefEntry
	Floats         []float32
	IntConsts      []int32
	InterfaceRefs  []InterfaceRefEntry
	InvokeDynamics []InvokeDynamicEntry
	LongConsts     []int64
	MethodHandles  []MethodHandleEntry
	MethodRefs     []MethodRefEntry
	MethodTypes    []uint16
	NameAndTypes   []NameAndTypeEntry
	Utf8Refs       []string
}

// CpEntry is the tagged-index form stored in CPool.CpIndex: Type names
// which slice Slot indexes into.
type CpEntry struct {
	Type uint16
	Slot uint16
}

type FieldRefEntry struct {
	ClassIndex  uint16
	NameAndType uint16
}

type MethodRefEntry struct {
	ClassIndex  uint16
	NameAndType uint16
}

type InterfaceRefEntry struct {
	ClassIndex  uint16
	NameAndType uint16
}

type NameAndTypeEntry struct {
	NameIndex uint16
	DescIndex uint16
}

type MethodHandleEntry struct {
	RefKind  uint16
	RefIndex uint16
}

type DynamicEntry struct {
	BootstrapIndex uint16
	NameAndType    uint16
}

type InvokeDynamicEntry struct {
	BootstrapIndex uint16
	NameAndType    uint16
}

// parse-time mirrors of the above, used only while parsing a class file
// (before indexes are narrowed to uint16). cpEntry mirrors CpEntry but with
// entryType/slot named for parse-time readability; see parser.go.
type cpEntry struct {
	entryType int
	slot      int
}

type fieldRefEntry struct {
	classIndex       int
	nameAndTypeIndex int
}

type methodRefEntry struct {
	classIndex       int
	nameAndTypeIndex int
}

type interfaceRefEntry struct {
	classIndex       int
	nameAndTypeIndex int
}

type nameAndTypeEntry struct {
	nameIndex       int
	descriptorIndex int
}

type methodHandleEntry struct {
	referenceKind  int
	referenceIndex int
}

type dynamic struct {
	bootstrapIndex int
	nameAndType    int
}

type invokeDynamic struct {
	bootstrapIndex int
	nameAndType    int
}

type stringConstantEntry struct {
	index int // index into utf8Refs
}

type utf8Entry struct {
	content string
}
