/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package verifier

import (
	"fmt"

	"jacobin/classloader"
	"jacobin/vtype"
)

// stackMapFrame is one decoded entry of a method's StackMapTable attribute
// (JVMS §4.7.4), expanded to an absolute bytecode offset and full
// locals/stack verification-type lists (the delta/compact frame kinds are
// resolved against the previous frame during decode, so callers never see
// the wire encoding).
type stackMapFrame struct {
	Offset int
	Locals []vtype.Type
	Stack  []vtype.Type
}

// verificationTypeInfo tags, JVMS §4.7.4 Table 4.7.4-A.
const (
	itemTop               = 0
	itemInteger           = 1
	itemFloat             = 2
	itemDouble            = 3
	itemLong              = 4
	itemNull              = 5
	itemUninitializedThis = 6
	itemObject            = 7
	itemUninitialized     = 8
)

type smReader struct {
	b   []byte
	pos int
}

func (r *smReader) u1() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, fmt.Errorf("truncated StackMapTable")
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

func (r *smReader) u2() (uint16, error) {
	if r.pos+2 > len(r.b) {
		return 0, fmt.Errorf("truncated StackMapTable")
	}
	v := uint16(r.b[r.pos])<<8 | uint16(r.b[r.pos+1])
	r.pos += 2
	return v, nil
}

// decodeStackMapTable parses the raw attribute bytes of a method's
// StackMapTable attribute into a sequence of absolute-offset frames,
// expanding each frame's deltas/implicit locals against the running
// "current frame" per JVMS §4.7.4's frame-type rules. initLocals is the
// method's initial local-variable verification types (receiver + formal
// parameters), the implicit frame_number == 0 predecessor.
func decodeStackMapTable(cp *classloader.CPool, raw []byte, initLocals []vtype.Type) ([]stackMapFrame, error) {
	r := &smReader{b: raw}
	count, err := r.u2()
	if err != nil {
		return nil, err
	}

	var frames []stackMapFrame
	curLocals := append([]vtype.Type(nil), initLocals...)
	curOffset := -1 // so the first frame's offset_delta is used as-is (JVMS: first frame's offset is offset_delta, not +1)

	for i := 0; i < int(count); i++ {
		tag, err := r.u1()
		if err != nil {
			return nil, err
		}

		var offsetDelta uint16
		var stack []vtype.Type

		switch {
		case tag <= 63: // same_frame
			offsetDelta = uint16(tag)

		case tag <= 127: // same_locals_1_stack_item_frame
			offsetDelta = uint16(tag - 64)
			item, err := readVerificationType(r, cp)
			if err != nil {
				return nil, err
			}
			stack = []vtype.Type{item}

		case tag < 247:
			return nil, fmt.Errorf("reserved StackMapTable frame tag %d", tag)

		case tag == 247: // same_locals_1_stack_item_frame_extended
			offsetDelta, err = r.u2()
			if err != nil {
				return nil, err
			}
			item, err := readVerificationType(r, cp)
			if err != nil {
				return nil, err
			}
			stack = []vtype.Type{item}

		case tag <= 250: // chop_frame: tag in [248,250], chops (251-tag) locals
			offsetDelta, err = r.u2()
			if err != nil {
				return nil, err
			}
			chop := int(251 - tag)
			if chop > len(curLocals) {
				chop = len(curLocals)
			}
			curLocals = curLocals[:len(curLocals)-chop]

		case tag == 251: // same_frame_extended
			offsetDelta, err = r.u2()
			if err != nil {
				return nil, err
			}

		case tag <= 254: // append_frame: tag in [252,254], appends (tag-251) locals
			offsetDelta, err = r.u2()
			if err != nil {
				return nil, err
			}
			n := int(tag - 251)
			for j := 0; j < n; j++ {
				t, err := readVerificationType(r, cp)
				if err != nil {
					return nil, err
				}
				curLocals = append(curLocals, t)
			}

		case tag == 255: // full_frame
			offsetDelta, err = r.u2()
			if err != nil {
				return nil, err
			}
			numLocals, err := r.u2()
			if err != nil {
				return nil, err
			}
			locals := make([]vtype.Type, 0, numLocals)
			for j := 0; j < int(numLocals); j++ {
				t, err := readVerificationType(r, cp)
				if err != nil {
					return nil, err
				}
				locals = append(locals, t)
			}
			numStack, err := r.u2()
			if err != nil {
				return nil, err
			}
			stack = make([]vtype.Type, 0, numStack)
			for j := 0; j < int(numStack); j++ {
				t, err := readVerificationType(r, cp)
				if err != nil {
					return nil, err
				}
				stack = append(stack, t)
			}
			curLocals = locals
		}

		if curOffset < 0 {
			curOffset = int(offsetDelta)
		} else {
			curOffset = curOffset + int(offsetDelta) + 1
		}

		frames = append(frames, stackMapFrame{
			Offset: curOffset,
			Locals: append([]vtype.Type(nil), curLocals...),
			Stack:  stack,
		})
	}

	return frames, nil
}

func readVerificationType(r *smReader, cp *classloader.CPool) (vtype.Type, error) {
	tag, err := r.u1()
	if err != nil {
		return vtype.Type{}, err
	}
	switch tag {
	case itemTop:
		return vtype.TopType(), nil
	case itemInteger:
		return vtype.IntegerType(), nil
	case itemFloat:
		return vtype.FloatType(), nil
	case itemDouble:
		return vtype.DoubleType(), nil
	case itemLong:
		return vtype.LongType(), nil
	case itemNull:
		return vtype.NullType(), nil
	case itemUninitializedThis:
		return vtype.UninitializedThisType(), nil
	case itemObject:
		idx, err := r.u2()
		if err != nil {
			return vtype.Type{}, err
		}
		className := classNameFromClassRef(cp, idx)
		return vtype.ObjectType(className), nil
	case itemUninitialized:
		offset, err := r.u2()
		if err != nil {
			return vtype.Type{}, err
		}
		return vtype.UninitializedType(int(offset)), nil
	}
	return vtype.Type{}, fmt.Errorf("unknown verification_type_info tag %d", tag)
}

func classNameFromClassRef(cp *classloader.CPool, cpIdx uint16) string {
	if cp == nil || int(cpIdx) >= len(cp.CpIndex) {
		return vtype.ClassObject
	}
	entry := cp.CpIndex[cpIdx]
	if entry.Type != classloader.ClassRef || int(entry.Slot) >= len(cp.ClassRefs) {
		return vtype.ClassObject
	}
	// ClassRefs holds a stringPool index; classNameFromStringPoolIndex
	// (resolver.go) turns it into the class name.
	return classNameFromStringPoolIndex(cp.ClassRefs[entry.Slot])
}

// findStackMapTable returns the raw bytes of m's StackMapTable attribute,
// if present, per JVMS §4.7.4 (nested within the Code attribute).
func findStackMapTable(cp *classloader.CPool, attrs []classloader.Attr) []byte {
	for _, a := range attrs {
		if classloader.FetchUTF8stringFromCPEntryNumber(cp, a.AttrName) == "StackMapTable" {
			return a.AttrContent
		}
	}
	return nil
}
