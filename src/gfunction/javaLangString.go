/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2023-6 by  the Jacobin authors. Consult jacobin.org.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0) All rights reserved.
 */

package gfunction

import (
	"strings"

	"jacobin/classloader"
	"jacobin/excNames"
	"jacobin/object"
	"jacobin/types"
)

// We don't run String's static initializer block because the initialization
// effect it would have is already handled at String-object creation time.

// Load_Lang_String registers the handful of java/lang/String natives this
// VM implements directly in Go rather than interpreting String.java's
// bytecode.
func Load_Lang_String() {

	MethodSignatures["java/lang/String.<clinit>()V"] =
		GMeth{ParamSlots: 0, GFunction: stringClinit}

	MethodSignatures["java/lang/String.length()I"] =
		GMeth{ParamSlots: 0, GFunction: stringLength}

	MethodSignatures["java/lang/String.isEmpty()Z"] =
		GMeth{ParamSlots: 0, GFunction: stringIsEmpty}

	MethodSignatures["java/lang/String.charAt(I)C"] =
		GMeth{ParamSlots: 1, GFunction: stringCharAt}

	MethodSignatures["java/lang/String.concat(Ljava/lang/String;)Ljava/lang/String;"] =
		GMeth{ParamSlots: 1, GFunction: stringConcat}

	MethodSignatures["java/lang/String.equals(Ljava/lang/Object;)Z"] =
		GMeth{ParamSlots: 1, GFunction: stringEquals}

	MethodSignatures["java/lang/String.equalsIgnoreCase(Ljava/lang/String;)Z"] =
		GMeth{ParamSlots: 1, GFunction: stringEqualsIgnoreCase}

	MethodSignatures["java/lang/String.hashCode()I"] =
		GMeth{ParamSlots: 0, GFunction: stringHashCode}

	MethodSignatures["java/lang/String.toUpperCase()Ljava/lang/String;"] =
		GMeth{ParamSlots: 0, GFunction: stringToUpperCase}

	MethodSignatures["java/lang/String.toLowerCase()Ljava/lang/String;"] =
		GMeth{ParamSlots: 0, GFunction: stringToLowerCase}

	MethodSignatures["java/lang/String.trim()Ljava/lang/String;"] =
		GMeth{ParamSlots: 0, GFunction: stringTrim}

	MethodSignatures["java/lang/String.compareTo(Ljava/lang/String;)I"] =
		GMeth{ParamSlots: 1, GFunction: stringCompareTo}

	MethodSignatures["java/lang/String.contains(Ljava/lang/CharSequence;)Z"] =
		GMeth{ParamSlots: 1, GFunction: stringContains}

	MethodSignatures["java/lang/String.indexOf(Ljava/lang/String;)I"] =
		GMeth{ParamSlots: 1, GFunction: stringIndexOf}

	MethodSignatures["java/lang/String.toString()Ljava/lang/String;"] =
		GMeth{ParamSlots: 0, GFunction: stringToString}
}

// stringClinit marks java/lang/String's static initializer run. It has no
// externally observable effect in this VM: every String object already
// carries its own compact byte array from the moment it's created, so
// there is no class-level state for <clinit> to set up.
func stringClinit([]interface{}) interface{} {
	klass := classloader.MethAreaFetch(types.StringClassName)
	if klass == nil {
		return getGErrBlk(excNames.ClassNotLoadedException,
			"could not find class "+types.StringClassName+" in the method area")
	}
	klass.Data.ClInit = types.ClInitRun
	return nil
}

func stringLength(params []interface{}) interface{} {
	return int64(len(object.GoStringFromStringObject(params[0].(*object.Object))))
}

func stringIsEmpty(params []interface{}) interface{} {
	if len(object.GoStringFromStringObject(params[0].(*object.Object))) == 0 {
		return types.JavaBoolTrue
	}
	return types.JavaBoolFalse
}

func stringCharAt(params []interface{}) interface{} {
	str := object.GoStringFromStringObject(params[0].(*object.Object))
	idx := params[1].(int64)
	if idx < 0 || idx >= int64(len(str)) {
		return getGErrBlk(excNames.StringIndexOutOfBoundsException,
			"String.charAt: index out of range")
	}
	return int64(str[idx])
}

func stringConcat(params []interface{}) interface{} {
	a := object.GoStringFromStringObject(params[0].(*object.Object))
	b := object.GoStringFromStringObject(params[1].(*object.Object))
	return object.StringObjectFromGoString(a + b)
}

func stringEquals(params []interface{}) interface{} {
	other, ok := params[1].(*object.Object)
	if !ok {
		return types.JavaBoolFalse
	}
	if object.GoStringFromStringObject(params[0].(*object.Object)) ==
		object.GoStringFromStringObject(other) {
		return types.JavaBoolTrue
	}
	return types.JavaBoolFalse
}

func stringEqualsIgnoreCase(params []interface{}) interface{} {
	a := strings.ToLower(object.GoStringFromStringObject(params[0].(*object.Object)))
	b := strings.ToLower(object.GoStringFromStringObject(params[1].(*object.Object)))
	if a == b {
		return types.JavaBoolTrue
	}
	return types.JavaBoolFalse
}

// stringHashCode reproduces java.lang.String's documented hash function,
// s[0]*31^(n-1) + ... + s[n-1], since some callers rely on its exact value
// (e.g. as a HashMap bucket key) rather than just its identity.
func stringHashCode(params []interface{}) interface{} {
	str := object.GoStringFromStringObject(params[0].(*object.Object))
	var h int32
	for _, c := range str {
		h = 31*h + int32(c)
	}
	return int64(h)
}

func stringToUpperCase(params []interface{}) interface{} {
	str := object.GoStringFromStringObject(params[0].(*object.Object))
	return object.StringObjectFromGoString(strings.ToUpper(str))
}

func stringToLowerCase(params []interface{}) interface{} {
	str := object.GoStringFromStringObject(params[0].(*object.Object))
	return object.StringObjectFromGoString(strings.ToLower(str))
}

func stringTrim(params []interface{}) interface{} {
	str := object.GoStringFromStringObject(params[0].(*object.Object))
	return object.StringObjectFromGoString(strings.TrimSpace(str))
}

func stringCompareTo(params []interface{}) interface{} {
	a := object.GoStringFromStringObject(params[0].(*object.Object))
	b := object.GoStringFromStringObject(params[1].(*object.Object))
	return int64(strings.Compare(a, b))
}

func stringContains(params []interface{}) interface{} {
	a := object.GoStringFromStringObject(params[0].(*object.Object))
	b := object.GoStringFromStringObject(params[1].(*object.Object))
	if strings.Contains(a, b) {
		return types.JavaBoolTrue
	}
	return types.JavaBoolFalse
}

func stringIndexOf(params []interface{}) interface{} {
	a := object.GoStringFromStringObject(params[0].(*object.Object))
	b := object.GoStringFromStringObject(params[1].(*object.Object))
	return int64(strings.Index(a, b))
}

func stringToString(params []interface{}) interface{} {
	return params[0]
}
