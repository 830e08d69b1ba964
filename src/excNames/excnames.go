/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2022-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package excNames is the catalog of throwable class names the runtime can
// raise internally (spec §7). It intentionally holds names only, not
// behavior: turning a name into a heap Throwable object is the job of the
// jvm package's exception-dispatch code (spec §4.E), so that excNames stays
// leaf-level and importable from every other package without cycles.
package excNames

// JVMExceptionType distinguishes the error categories of spec §7 so callers
// can decide whether a failure is fatal-to-load, fatal-to-VM, or an ordinary
// throwable to dispatch through the frame's exception table.
type JVMExceptionType int

const (
	ClassFormatErrorType JVMExceptionType = iota
	VerifyErrorType
	LinkageErrorType
	RuntimeExceptionType
	ConcurrencyErrorType
	InternalErrorType
)

// Throwable class names, in internal (slash-separated) form.
const (
	// Parse errors (spec §7.1)
	ClassFormatError    = "java/lang/ClassFormatError"
	ClassNotFoundException = "java/lang/ClassNotFoundException"
	UnsupportedClassVersionError = "java/lang/UnsupportedClassVersionError"

	// Verification errors (spec §7.2)
	VerifyError = "java/lang/VerifyError"

	// Linkage errors (spec §7.3)
	NoClassDefFoundError        = "java/lang/NoClassDefFoundError"
	NoSuchMethodError           = "java/lang/NoSuchMethodError"
	NoSuchFieldError            = "java/lang/NoSuchFieldError"
	IncompatibleClassChangeError = "java/lang/IncompatibleClassChangeError"
	IllegalAccessError          = "java/lang/IllegalAccessError"
	AbstractMethodError         = "java/lang/AbstractMethodError"
	ExceptionInInitializerError = "java/lang/ExceptionInInitializerError"

	// Runtime errors (spec §7.4)
	NullPointerException          = "java/lang/NullPointerException"
	ClassCastException             = "java/lang/ClassCastException"
	ArrayIndexOutOfBoundsException = "java/lang/ArrayIndexOutOfBoundsException"
	ArrayStoreException            = "java/lang/ArrayStoreException"
	ArithmeticException            = "java/lang/ArithmeticException"
	StackOverflowError              = "java/lang/StackOverflowError"
	OutOfMemoryError                = "java/lang/OutOfMemoryError"
	NegativeArraySizeException      = "java/lang/NegativeArraySizeException"
	IOException                     = "java/io/IOException"
	IllegalArgumentException        = "java/lang/IllegalArgumentException"
	IndexOutOfBoundsException       = "java/lang/IndexOutOfBoundsException"
	StringIndexOutOfBoundsException = "java/lang/StringIndexOutOfBoundsException"
	UnsupportedOperationException   = "java/lang/UnsupportedOperationException"
	PatternSyntaxException          = "java/util/regex/PatternSyntaxException"
	ClassNotLoadedException         = "java/lang/ClassNotLoadedException"

	// Concurrency errors (spec §7.5)
	IllegalMonitorStateException = "java/lang/IllegalMonitorStateException"
	InterruptedException          = "java/lang/InterruptedException"
)

// Kind reports which of the six spec §7 error kinds a throwable name belongs
// to. Unknown names are treated as ordinary runtime exceptions.
func Kind(name string) JVMExceptionType {
	switch name {
	case ClassFormatError, ClassNotFoundException, UnsupportedClassVersionError:
		return ClassFormatErrorType
	case VerifyError:
		return VerifyErrorType
	case NoClassDefFoundError, NoSuchMethodError, NoSuchFieldError,
		IncompatibleClassChangeError, IllegalAccessError, AbstractMethodError,
		ExceptionInInitializerError:
		return LinkageErrorType
	case IllegalMonitorStateException, InterruptedException:
		return ConcurrencyErrorType
	default:
		return RuntimeExceptionType
	}
}
