/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package types holds the handful of shared value types and sentinel
// constants that would otherwise create import cycles between classloader,
// object, and vtype.
package types

// JavaByte is a signed 8-bit value used to represent the elements of a Java
// byte array without colliding with Go's unsigned byte/uint8.
type JavaByte int8

// Defined-type prefixes used in field and method descriptors.
const (
	RefArray = "[L" // array-of-object prefix, e.g. [Ljava/lang/String;
	Array    = "["  // any array prefix
	ByteArray = "[B"
	IntArray  = "[I"
)

// Single-letter field/method descriptor codes (JVMS §4.3.2), named for
// readability at gfunction call sites that switch on a field's Ftype.
const (
	Bool   = "Z"
	Byte   = "B"
	Char   = "C"
	Double = "D"
	Float  = "F"
	Int    = "I"
	Long   = "J"
	Short  = "S"
)

// JavaBoolTrue/JavaBoolFalse are the int64 encoding the interpreter uses
// for boolean values on the operand stack (the JVM has no boolean opcode
// family distinct from int).
const (
	JavaBoolFalse = int64(0)
	JavaBoolTrue  = int64(1)
)

// StringClassName is the internal name of java/lang/String, used whenever
// code needs to refer to the class without a literal scattered around.
const StringClassName = "java/lang/String"

// Sentinel string-pool indices.
const (
	InvalidStringIndex      = ^uint32(0)
	ObjectPoolStringIndex   = uint32(0) // java/lang/Object is always interned at index 0
	StringPoolStringIndex   = uint32(1) // java/lang/String, interned at index 1
)

// ClInit states, tracked per loaded class.
const (
	NoClinit       = byte(0) // class has no <clinit> method
	ClInitNotRun   = byte(1) // class has a <clinit>, not yet run
	ClInitInProgress = byte(2)
	ClInitRun      = byte(3) // <clinit> has completed
)

// Array type codes, per the class-file newarray instruction (JVMS Table 6.5-newarray).
const (
	NewArrayBoolean = 4
	NewArrayChar    = 5
	NewArrayFloat   = 6
	NewArrayDouble  = 7
	NewArrayByte    = 8
	NewArrayShort   = 9
	NewArrayInt     = 10
	NewArrayLong    = 11
)

// Reference-kind tags used in CONSTANT_MethodHandle_info entries.
const (
	RefGetField         = 1
	RefGetStatic        = 2
	RefPutField         = 3
	RefPutStatic        = 4
	RefInvokeVirtual    = 5
	RefInvokeStatic     = 6
	RefInvokeSpecial    = 7
	RefNewInvokeSpecial = 8
	RefInvokeInterface  = 9
)
