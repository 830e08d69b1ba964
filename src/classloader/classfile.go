/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

// This file holds the postable, post-format-check representation of a
// loaded class (spec §3 "Class", "Method", "Instruction") -- the form handed
// to the method area once parse() and formatCheckClass() have both
// succeeded. It mirrors, and narrows the index widths of, the in-progress
// parsedClass type that classloader.go/parser.go build up while reading raw
// bytes.

// Klass is the method-area entry for a loaded class: its load/link/verify
// status plus a pointer to its data once parsing has completed far enough
// to have data at all.
type Klass struct {
	Status byte // 'I'=initializing load, 'F'=format-checked, 'V'=verified, 'L'=linked, 'N'=instantiated, 'E'=erroneous
	Loader string
	Data   *ClData
}

const (
	StatusInitializing = 'I'
	StatusFormatChecked = 'F'
	StatusVerified      = 'V'
	StatusLinked        = 'L'
	StatusInstantiated  = 'N'
	StatusErroneous     = 'E'
)

// ClData is the class's data proper (spec §3 "Class"): name, superclass,
// module/package, fields, a flattened method table, attributes, and the
// narrowed constant pool.
type ClData struct {
	Name            string
	NameIndex       uint32 // index into stringPool
	Superclass      string
	SuperclassIndex uint32

	Module string
	Pkg    string

	Interfaces  []uint16
	Fields      []Field
	MethodTable map[string]*Method // key: name+descriptor
	Attributes  []Attr
	SourceFile  string
	Bootstraps  []BootstrapMethod
	CP          CPool
	Access      AccessFlags
	ClInit      byte // types.NoClinit / ClInitNotRun / ClInitInProgress / ClInitRun
}

type AccessFlags struct {
	ClassIsPublic     bool
	ClassIsFinal      bool
	ClassIsSuper      bool
	ClassIsInterface  bool
	ClassIsAbstract   bool
	ClassIsSynthetic  bool
	ClassIsAnnotation bool
	ClassIsEnum       bool
	ClassIsModule     bool
}

// Class access-flag bit values (spec §6).
const (
	ClassAccPublic     = 0x0001
	ClassAccFinal      = 0x0010
	ClassAccSuper      = 0x0020
	ClassAccInterface  = 0x0200
	ClassAccAbstract   = 0x0400
	ClassAccSynthetic  = 0x1000
	ClassAccAnnotation = 0x2000
	ClassAccEnum       = 0x4000
	ClassAccModule     = 0x8000
)

// Field access-flag bit values (spec §6).
const (
	FieldAccPublic    = 0x0001
	FieldAccPrivate   = 0x0002
	FieldAccProtected = 0x0004
	FieldAccStatic    = 0x0008
	FieldAccFinal     = 0x0010
	FieldAccVolatile  = 0x0040
	FieldAccTransient = 0x0080
	FieldAccSynthetic = 0x1000
	FieldAccEnum      = 0x4000
)

// Method access-flag bit values, reusing field-style public/private/etc.
// plus method-only bits.
const (
	MethodAccPublic       = 0x0001
	MethodAccPrivate      = 0x0002
	MethodAccProtected    = 0x0004
	MethodAccStatic       = 0x0008
	MethodAccFinal        = 0x0010
	MethodAccSynchronized = 0x0020
	MethodAccBridge       = 0x0040
	MethodAccVarargs      = 0x0080
	MethodAccNative       = 0x0100
	MethodAccAbstract     = 0x0400
	MethodAccStrict       = 0x0800
	MethodAccSynthetic    = 0x1000
)

type Field struct {
	AccessFlags int
	Name        uint16
	Desc        uint16
	IsStatic    bool
	ConstValue  interface{}
	Attributes  []Attr
}

// Method is the postable representation of a method, including its Code
// attribute (spec §3 "Method", "Code block").
type Method struct {
	AccessFlags int
	Name        uint16
	Desc        uint16
	CodeAttr    CodeAttrib
	Attributes  []Attr
	Exceptions  []uint16
	Parameters  []ParamAttrib
	Deprecated  bool
}

type CodeAttrib struct {
	MaxStack          int
	MaxLocals         int
	Code              []byte
	Exceptions        []CodeException
	Attributes        []Attr
	BytecodeSourceMap []BytecodeToSourceLine
}

type BytecodeToSourceLine struct {
	Bytecode   int
	SourceLine int
}

type ParamAttrib struct {
	Name        string
	AccessFlags int
}

type Attr struct {
	AttrName    uint16
	AttrSize    int
	AttrContent []byte
}

type CodeException struct {
	StartPc   int
	EndPc     int
	HandlerPc int
	CatchType uint16 // 0 means "any" (a finally-style handler, spec §4.E)
}

type BootstrapMethod struct {
	MethodRef uint16
	Args      []uint16
}

// MData is the interface implemented by both Java (JmEntry) and native
// (MTentry's Go-function form lives in the gfunction package) method
// bodies, so that the global method table (MTable) can hold either kind
// behind one lookup without a type switch at every call site (spec §4.F
// "dispatch selection").
type MData interface{}

// JmEntry is a Java method's entry in MTable: enough of Method plus a
// pointer back to its class's constant pool to execute it without walking
// the method area again (spec §4.E "Frame contract").
type JmEntry struct {
	AccessFlags int
	MaxStack    int
	MaxLocals   int
	Code        []byte
	Exceptions  []CodeException
	Attribs     []Attr
	CodeAttr    struct {
		Exceptions        []CodeException
		Attributes        []Attr
		BytecodeSourceMap []BytecodeToSourceLine
	}
	Cp         *CPool
	params     []ParamAttrib
	deprecated bool

	// CallCount, JitBlacklist, and Compiled support spec §4.G's call-count
	// triggered JIT compilation: jvm/run.go's invoke() increments CallCount
	// on every interpreted call to this entry, and once it crosses the
	// threshold attempts jit.Compile, caching the result in Compiled (a
	// *jit.Function behind interface{} so this package never imports jit --
	// the same avoid-the-import-cycle trick NativeMethodLookup below uses).
	// JitBlacklist is set on a failed compile so invoke() stops retrying.
	CallCount    uint32
	JitBlacklist bool
	Compiled     interface{}
}

// MTentry is one slot in the global method table: MType distinguishes a
// Java method body ('J', a JmEntry) from a Go-native intrinsic ('G', an
// entry owned by the gfunction package and stored here as an MData so that
// classloader need not import gfunction).
type MTentry struct {
	Meth  MData
	MType byte
}
