/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2023-6 by  the Jacobin Authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)  Consult jacobin.org.
 */

package object

import "jacobin/types"

// GoStringFromStringObject extracts the Go string backing a java/lang/String
// object's compact byte-array representation (spec §3, "String"): the
// "value" field holds bytes rather than UTF-16 code units, as in the JDK's
// compact strings since JEP 254, but with no separate coder field.
func GoStringFromStringObject(obj *Object) string {
	if obj == nil {
		return ""
	}
	fld, ok := obj.FieldTable["value"]
	if !ok {
		return ""
	}
	switch v := fld.Fvalue.(type) {
	case []types.JavaByte:
		return GoStringFromJavaByteArray(v)
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return ""
	}
}

// StringObjectFromGoString is an alias kept for call sites that read more
// naturally constructing "a String object" than "a compact string".
func StringObjectFromGoString(s string) *Object {
	return CreateCompactStringFromGoString(&s)
}

// UpdateStringObjectFromBytes replaces obj's backing bytes in place --
// used by StringBuilder-style mutators that build up a result and then
// hand it back as the same String object the caller passed in.
func UpdateStringObjectFromBytes(obj *Object, bytes []byte) {
	obj.FieldTable["value"] = Field{Ftype: types.ByteArray, Fvalue: bytes}
}
