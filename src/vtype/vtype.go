/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package vtype implements the verification-type lattice of spec §4.A: the
// value categories the verifier reasons about, assignability between them,
// and least-upper-bound merging at control-flow confluence points. It is
// grounded on ristretto_classfile/src/verifiers/types.rs and
// ristretto_types/src/assignable.rs (see original_source/).
package vtype

// Kind enumerates the sum-of-cases VerificationType described in spec §3.
type Kind int

const (
	Top Kind = iota
	Integer
	Float
	Long
	Double
	Null
	UninitializedThis
	Object
	Uninitialized
)

// Well-known object type names used throughout the verifier.
const (
	ClassObject       = "java/lang/Object"
	ClassCloneable    = "java/lang/Cloneable"
	ClassSerializable = "java/io/Serializable"
	ClassThrowable    = "java/lang/Throwable"
)

// Type is a verification-time value: for Object it carries a class name,
// for Uninitialized it carries the offset of the `new` instruction that
// produced it.
type Type struct {
	Kind      Kind
	ClassName string // valid when Kind == Object
	NewOffset int    // valid when Kind == Uninitialized
}

func TopType() Type               { return Type{Kind: Top} }
func IntegerType() Type           { return Type{Kind: Integer} }
func FloatType() Type             { return Type{Kind: Float} }
func LongType() Type              { return Type{Kind: Long} }
func DoubleType() Type            { return Type{Kind: Double} }
func NullType() Type              { return Type{Kind: Null} }
func UninitializedThisType() Type { return Type{Kind: UninitializedThis} }
func ObjectType(class string) Type {
	return Type{Kind: Object, ClassName: class}
}
func UninitializedType(newOffset int) Type {
	return Type{Kind: Uninitialized, NewOffset: newOffset}
}

// ArrayType returns the Object-kind representation of the array whose
// descriptor is descriptor (e.g. "[I", "[Ljava/lang/String;"), expressed
// the way the verifier treats arrays: as an Object type named by the array's
// own descriptor so that assignability can special-case it (see IsAssignable).
func ArrayType(descriptor string) Type {
	return Type{Kind: Object, ClassName: descriptor}
}

func (t Type) IsArray() bool {
	return t.Kind == Object && len(t.ClassName) > 0 && t.ClassName[0] == '['
}

func (t Type) String() string {
	switch t.Kind {
	case Top:
		return "Top"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case Long:
		return "Long"
	case Double:
		return "Double"
	case Null:
		return "Null"
	case UninitializedThis:
		return "UninitializedThis"
	case Object:
		return "Object(" + t.ClassName + ")"
	case Uninitialized:
		return "Uninitialized(" + itoa(t.NewOffset) + ")"
	}
	return "?"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// SupertypeResolver answers whether `sub` is a (transitive) subclass of or
// implements `super`, and returns the nearest common supertype of two
// classes. The verifier doesn't own class hierarchy data -- that's the
// classloader's -- so it depends on this seam instead of importing
// classloader directly; the verifier package supplies the implementation.
type SupertypeResolver interface {
	IsSubtype(sub, super string) bool
	CommonSupertype(a, b string) string
}

// Category reports the verification-slot category of t: 1 for everything
// except Long/Double, which are category 2 and occupy two slots with the
// upper slot reading as Top (spec §3, "VerificationType").
func Category(t Type) int {
	if t.Kind == Long || t.Kind == Double {
		return 2
	}
	return 1
}

// SizeInSlots is an alias for Category kept for call-site readability where
// the caller is about to advance a slot cursor rather than branch on kind.
func SizeInSlots(t Type) int { return Category(t) }

// IsAssignable implements spec §4.A's assignability rules. resolver is
// nil-safe for primitive-only checks; it is required whenever an Object
// comparison needs real class-hierarchy knowledge.
func IsAssignable(from, to Type, resolver SupertypeResolver) bool {
	if to.Kind == Top {
		return true // every type assigns to Top
	}

	switch from.Kind {
	case Null:
		return to.Kind == Object || to.Kind == Null // Null assigns to Null and to any Object(_) or array type (arrays are Object-kind here)

	case UninitializedThis, Uninitialized:
		// assign only to themselves (and Top, already handled above)
		return from.Kind == to.Kind && from.NewOffset == to.NewOffset

	case Integer, Float, Long, Double:
		return from.Kind == to.Kind // primitives assign only to themselves

	case Object:
		if to.Kind != Object {
			return false
		}
		if from.IsArray() {
			return arrayAssignable(from, to, resolver)
		}
		if to.IsArray() {
			return false // non-array object never assigns to an array type
		}
		if from.ClassName == to.ClassName {
			return true
		}
		if resolver == nil {
			return false
		}
		return resolver.IsSubtype(from.ClassName, to.ClassName)
	}
	return false
}

func arrayAssignable(from, to Type, resolver SupertypeResolver) bool {
	if !to.IsArray() {
		// Array(_) also assigns to Object, Cloneable, and Serializable.
		return to.ClassName == ClassObject || to.ClassName == ClassCloneable || to.ClassName == ClassSerializable
	}
	fromComp := componentOf(from.ClassName)
	toComp := componentOf(to.ClassName)
	if isPrimitiveDescriptor(fromComp) || isPrimitiveDescriptor(toComp) {
		return fromComp == toComp
	}
	// both reference component types: recurse, stripping one leading '['
	// and, for a class component, its L...; wrapper
	if len(fromComp) > 1 && fromComp[0] == 'L' {
		fromComp = fromComp[1 : len(fromComp)-1]
	}
	if len(toComp) > 1 && toComp[0] == 'L' {
		toComp = toComp[1 : len(toComp)-1]
	}
	return IsAssignable(ObjectType(fromComp), ObjectType(toComp), resolver)
}

func componentOf(arrayDescriptor string) string {
	if len(arrayDescriptor) > 0 && arrayDescriptor[0] == '[' {
		return arrayDescriptor[1:]
	}
	return arrayDescriptor
}

func isPrimitiveDescriptor(d string) bool {
	if len(d) != 1 {
		return false
	}
	switch d[0] {
	case 'I', 'J', 'F', 'D', 'B', 'C', 'S', 'Z':
		return true
	}
	return false
}

// Merge computes the least upper bound of a and b (spec §4.A). Incompatible
// combinations collapse to Top; Null unifies with any reference type.
func Merge(a, b Type, resolver SupertypeResolver) Type {
	if a == b {
		return a
	}
	if a.Kind == Null && isReference(b) {
		return b
	}
	if b.Kind == Null && isReference(a) {
		return a
	}
	if isReference(a) && isReference(b) {
		if resolver == nil {
			return TopType()
		}
		common := resolver.CommonSupertype(classNameOf(a), classNameOf(b))
		if common == "" {
			return TopType()
		}
		return ObjectType(common)
	}
	return TopType()
}

func isReference(t Type) bool {
	return t.Kind == Object || t.Kind == Null
}

func classNameOf(t Type) string {
	if t.Kind == Object {
		return t.ClassName
	}
	return ClassObject
}
