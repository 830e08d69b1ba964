/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2022-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jvm

import (
	"unsafe"

	"jacobin/classloader"
	"jacobin/object"
	"jacobin/trace"
)

// instantiating a class is a two-part process:
// 1) the class needs to be loaded, so that its details and its methods are knowable
// 2) the instance fields are allocated with their zero values, ready for <init> to fill in.
//
// Waiting for a concurrent load of the same class used to be a goto-based
// spin on classloader.Classes[classname].Status; it now blocks on
// classloader.WaitForClassStatus, which owns the condition instead of every
// caller re-implementing the poll (spec §4.E, class initialization linkage).
func instantiateClass(classname string) (*object.Object, error) {
	trace.Trace("Instantiating class: " + classname)

	k := classloader.MethAreaFetch(classname)
	if k == nil {
		if err := classloader.LoadClassFromNameOnly(classname); err != nil {
			trace.Error("Error loading class: " + classname + ": " + err.Error())
			return nil, err
		}
	}

	k, err := classloader.WaitForClassStatus(classname)
	if err != nil {
		return nil, err
	}

	obj := Heap.Allocate(classname)

	// the object's mark field contains the lower 32-bits of the object's
	// address, which serves as the hash code for the object
	uintp := uintptr(unsafe.Pointer(obj))
	obj.Mark.Hash = uint32(uintp)

	for i := 0; i < len(k.Data.Fields); i++ {
		initializeField(k.Data.Fields[i], &k.Data.CP, classname, obj)
	}
	return obj, nil
}

// the only fields allocated during class instantiation are instance fields--
// method-local variables are created on the operand stack during method execution.
func initializeField(f classloader.Field, cp *classloader.CPool, cn string, obj *object.Object) {
	if f.IsStatic {
		return // static fields live in Statics, not on the instance
	}
	// Field.Name and Field.Desc are Utf8Refs slots, not CP indexes
	if int(f.Name) >= len(cp.Utf8Refs) || int(f.Desc) >= len(cp.Utf8Refs) {
		trace.Error("initializeField: " + cn + " has a field name or descriptor out of range")
		return
	}
	name := cp.Utf8Refs[f.Name]
	ftype := cp.Utf8Refs[f.Desc]

	fld := object.Field{Ftype: ftype}
	switch ftype[0:1] {
	case "L", "[":
		fld.Fvalue = nil
	case "B", "C", "I", "J", "S", "Z":
		fld.Fvalue = int64(0)
	case "D", "F":
		fld.Fvalue = 0.0
	default:
		trace.Error("initializeField: " + cn + "." + name + " has unrecognized type " + ftype)
		return
	}
	obj.FieldTable[name] = fld
}
