/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package jvm is the interpreter and frame-engine core (spec §4.E): it
// turns a loaded class's bytecode into running frames, dispatches
// invokes either to another Java frame or to a gfunction native method,
// and drives class initialization before a class's first active use.
package jvm

import (
	"container/list"
	"errors"
	"fmt"
	"sync"

	"jacobin/classloader"
	"jacobin/dispatch"
	"jacobin/frames"
	"jacobin/gc"
	"jacobin/gfunction"
	"jacobin/globals"
	"jacobin/modgraph"
	"jacobin/object"
	"jacobin/stringPool"
	"jacobin/thread"
	"jacobin/trace"
)

// moduleGraph backs the module access checks invokevirtual/invokeinterface
// run through the dispatch resolver (spec §4.F step 2). Classes report
// their module via ClData.Module at load time; nothing populates explicit
// reads/exports for it yet, so every module behaves as unnamed-and-open
// until the module system grows a real descriptor loader.
var moduleGraph = modgraph.NewGraph()

func classModule(className string) string {
	k := classloader.MethAreaFetch(className)
	if k == nil || k.Data == nil || k.Data.Module == "" {
		return modgraph.Unnamed
	}
	return k.Data.Module
}

// methodResolver is the shared dispatch resolver for invokevirtual and
// invokeinterface, the two invocation kinds whose target depends on the
// receiver's runtime class rather than the constant pool's static
// reference (spec §4.F). invokestatic and invokespecial never need
// override re-selection, so run.go keeps resolving those directly against
// the method area.
var methodResolver = dispatch.NewResolver(moduleGraph, classModule, nil)

// Heap is the VM's single object heap (spec §4.D). It is handed
// throwException directly, which surfaces an allocation failure by
// panicking with the exception name and message; the heap does not run
// an athrow-style handler search itself.
var Heap = gc.NewHeap(throwException)

func throwException(exceptionType, message string) {
	panic(fmt.Sprintf("%s: %s", exceptionType, message))
}

func init() {
	globals.GetGlobalRef().FuncThrowException = throwException
	Heap.RegisterRootProvider(frameStackRoots)
}

// frameStackRoots walks every frame currently on MainThread.Stack and
// returns every *object.Object reachable from a local variable or operand
// stack slot (spec §4.D, "Active frames' locals and operand stacks" as a
// root source).
func frameStackRoots() []*object.Object {
	var roots []*object.Object
	if MainThread.Stack == nil {
		return roots
	}
	for e := MainThread.Stack.Front(); e != nil; e = e.Next() {
		fr, ok := e.Value.(*frames.Frame)
		if !ok {
			continue
		}
		for _, v := range fr.Locals {
			if obj, ok := v.(*object.Object); ok && obj != nil {
				roots = append(roots, obj)
			}
		}
		for i := 0; i <= fr.TOS && i < len(fr.OpStack); i++ {
			if obj, ok := fr.OpStack[i].(*object.Object); ok && obj != nil {
				roots = append(roots, obj)
			}
		}
	}
	return roots
}

// MainThread is the thread context StartExec runs the application's
// initial frame stack on. Trace gates the method-entry traces in
// runGmethod and initializerBlock.go, checked at method entry rather than
// per-instruction to keep the hot loop cheap; no CLI flag sets it.
var MainThread = thread.CreateThread()

// Statics holds the value of every static field that has been touched by
// getstatic/putstatic, keyed by "class.field" -- the same shortcut the
// original interpreter used (an append-only side table instead of a
// slot directly on the class), since ClData has no static storage of its
// own yet.
var Statics = struct {
	sync.RWMutex
	m map[string]*object.Field
}{m: make(map[string]*object.Field)}

// loadThisClass ensures name is loaded and linked far enough to run,
// blocking on a concurrent load of the same class rather than
// re-implementing the wait itself (spec §4.E, class initialization
// linkage; see classloader.WaitForClassStatus).
func loadThisClass(name string) error {
	if classloader.MethAreaFetch(name) == nil {
		if err := classloader.LoadClassFromNameOnly(name); err != nil {
			trace.Error("loadThisClass: " + name + ": " + err.Error())
			return err
		}
	}
	_, err := classloader.WaitForClassStatus(name)
	return err
}

// StartExec finds className's main() method, builds its frame, and runs
// it to completion on MainThread.
func StartExec(className string) error {
	if err := loadThisClass(className); err != nil {
		return err
	}

	mt, cp, err := classloader.FetchMethodAndCP(className, "main([Ljava/lang/String;)V")
	if err != nil {
		return fmt.Errorf("StartExec: class %s has no main() method: %w", className, err)
	}
	if mt.MType != 'J' {
		return fmt.Errorf("StartExec: %s.main() is not a Java method", className)
	}
	meth := mt.Meth.(*classloader.JmEntry)

	f := frames.CreateFrame(meth.MaxStack + 2)
	f.MethName = "main"
	f.MethType = "([Ljava/lang/String;)V"
	f.ClName = className
	f.CP = cp
	f.Meth = append(f.Meth, meth.Code...)
	f.ExceptionTable = meth.Exceptions
	for j := 0; j < meth.MaxLocals; j++ {
		f.Locals = append(f.Locals, int64(0))
	}

	MainThread.Stack = frames.CreateFrameStack()
	if err := frames.PushFrame(MainThread.Stack, f); err != nil {
		return err
	}

	return runFrame(MainThread.Stack)
}

// runFrame interprets the frame at the top of fs until it returns,
// throws, or its bytecode runs past a terminal instruction. A method
// call pushes a new frame and control returns here once that frame pops
// itself off, so runFrame only ever drives the single frame at fs's
// front at any one time.
func runFrame(fs *list.List) error {
	f := frames.PeekFrame(fs)
	if f == nil {
		return errors.New("runFrame: empty frame stack")
	}

	for f.PC = 0; f.PC < len(f.Meth); f.PC++ {
		op := f.Meth[f.PC]
		switch op {
		case NOP:
			// no-op

		case ACONST_NULL:
			f.Push(nil)

		case ICONST_M1, ICONST_0, ICONST_1, ICONST_2, ICONST_3, ICONST_4, ICONST_5:
			f.Push(int64(op) - int64(ICONST_0))

		case LCONST_0:
			f.Push(int64(0))
		case LCONST_1:
			f.Push(int64(1))

		case FCONST_0:
			f.Push(float64(0))
		case FCONST_1:
			f.Push(float64(1))
		case FCONST_2:
			f.Push(float64(2))

		case DCONST_0:
			f.Push(float64(0))
		case DCONST_1:
			f.Push(float64(1))

		case BIPUSH:
			f.PC++
			f.Push(int64(int8(f.Meth[f.PC])))

		case SIPUSH:
			val := int16(f.Meth[f.PC+1])<<8 | int16(f.Meth[f.PC+2])
			f.PC += 2
			f.Push(int64(val))

		case LDC:
			f.PC++
			f.Push(loadConstant(f.CP, uint16(f.Meth[f.PC])))

		case LDC_W, LDC2_W:
			idx := uint16(f.Meth[f.PC+1])<<8 | uint16(f.Meth[f.PC+2])
			f.PC += 2
			f.Push(loadConstant(f.CP, idx))

		case ILOAD, FLOAD, ALOAD:
			f.PC++
			f.Push(f.Locals[f.Meth[f.PC]])
		case LLOAD, DLOAD:
			f.PC++
			f.Push(f.Locals[f.Meth[f.PC]])

		case ILOAD_0, ALOAD_0:
			f.Push(f.Locals[0])
		case ILOAD_1, ALOAD_1:
			f.Push(f.Locals[1])
		case ILOAD_2, ALOAD_2:
			f.Push(f.Locals[2])
		case ILOAD_3, ALOAD_3:
			f.Push(f.Locals[3])
		case LLOAD_0:
			f.Push(f.Locals[0])
		case LLOAD_1:
			f.Push(f.Locals[1])
		case LLOAD_2:
			f.Push(f.Locals[2])
		case LLOAD_3:
			f.Push(f.Locals[3])

		case ISTORE, FSTORE, ASTORE, LSTORE, DSTORE:
			f.PC++
			storeLocal(f, int(f.Meth[f.PC]), f.Pop())

		case ISTORE_0, ASTORE_0:
			storeLocal(f, 0, f.Pop())
		case ISTORE_1, ASTORE_1:
			storeLocal(f, 1, f.Pop())
		case ISTORE_2, ASTORE_2:
			storeLocal(f, 2, f.Pop())
		case ISTORE_3, ASTORE_3:
			storeLocal(f, 3, f.Pop())

		case POP:
			f.Pop()
		case DUP:
			v := f.Pop()
			f.Push(v)
			f.Push(v)
		case SWAP:
			a := f.Pop()
			b := f.Pop()
			f.Push(a)
			f.Push(b)

		case IADD, LADD:
			b := f.Pop().(int64)
			a := f.Pop().(int64)
			f.Push(a + b)
		case FADD, DADD:
			b := f.Pop().(float64)
			a := f.Pop().(float64)
			f.Push(a + b)
		case ISUB, LSUB:
			b := f.Pop().(int64)
			a := f.Pop().(int64)
			f.Push(a - b)
		case IMUL, LMUL:
			b := f.Pop().(int64)
			a := f.Pop().(int64)
			f.Push(a * b)
		case IDIV, LDIV:
			b := f.Pop().(int64)
			a := f.Pop().(int64)
			if b == 0 {
				return errors.New("runFrame: division by zero")
			}
			f.Push(a / b)
		case INEG, LNEG:
			f.Push(-f.Pop().(int64))

		case IINC:
			idx := int(f.Meth[f.PC+1])
			delta := int64(int8(f.Meth[f.PC+2]))
			f.PC += 2
			f.Locals[idx] = f.Locals[idx].(int64) + delta

		case I2L, I2F, I2D:
			v := f.Pop().(int64)
			if op == I2L {
				f.Push(v)
			} else {
				f.Push(float64(v))
			}
		case L2I:
			f.Push(f.Pop().(int64))

		case IFEQ, IFNE, IFLT, IFGE, IFGT, IFLE:
			v := f.Pop().(int64)
			if branchTaken(op, v, 0) {
				jumpRelative(f)
			} else {
				f.PC += 2
			}

		case IF_ICMPEQ, IF_ICMPNE, IF_ICMPLT, IF_ICMPGE, IF_ICMPGT, IF_ICMPLE:
			b := f.Pop().(int64)
			a := f.Pop().(int64)
			if branchTaken(op-(IF_ICMPEQ-IFEQ), a, b) {
				jumpRelative(f)
			} else {
				f.PC += 2
			}

		case GOTO:
			jumpRelative(f)

		case IRETURN, FRETURN, ARETURN, LRETURN, DRETURN:
			frames.PopFrame(fs)
			return nil
		case RETURN:
			frames.PopFrame(fs)
			return nil

		case GETSTATIC:
			idx := cpIndexAt(f)
			className, fieldName, ftype := resolveFieldRef(f.CP, idx)
			f.Push(getStatic(className, fieldName, ftype))

		case PUTSTATIC:
			idx := cpIndexAt(f)
			className, fieldName, ftype := resolveFieldRef(f.CP, idx)
			putStatic(className, fieldName, ftype, f.Pop())

		case GETFIELD:
			idx := cpIndexAt(f)
			_, fieldName, _ := resolveFieldRef(f.CP, idx)
			obj := f.Pop().(*object.Object)
			if obj == nil {
				return errors.New("runFrame: getfield on null reference")
			}
			fld := obj.FieldTable[fieldName]
			f.Push(fld.Fvalue)

		case PUTFIELD:
			idx := cpIndexAt(f)
			_, fieldName, ftype := resolveFieldRef(f.CP, idx)
			val := f.Pop()
			obj := f.Pop().(*object.Object)
			if obj == nil {
				return errors.New("runFrame: putfield on null reference")
			}
			obj.FieldTable[fieldName] = object.Field{Ftype: ftype, Fvalue: val}

		case INVOKESTATIC, INVOKEVIRTUAL, INVOKESPECIAL, INVOKEINTERFACE:
			idx := cpIndexAt(f)
			className, methName, desc := resolveMethodRef(f.CP, idx)
			if err := loadThisClass(className); err != nil {
				return err
			}

			var mt *classloader.MTentry
			var cp *classloader.CPool

			if op == INVOKEVIRTUAL || op == INVOKEINTERFACE {
				kind := dispatch.Virtual
				if op == INVOKEINTERFACE {
					kind = dispatch.Interface
				}
				receiver, _ := peekReceiver(f, desc).(*object.Object)
				res, rerr := methodResolver.Resolve(f.ClName, f.CP, idx, kind, receiver)
				if rerr != nil {
					return rerr
				}
				className = res.ResolvedClass
				mt = res.ResolvedMethod
				if k := classloader.MethAreaFetch(className); k != nil && k.Data != nil {
					cp = &k.Data.CP
				}
			}

			if mt == nil {
				var err error
				mt, cp, err = classloader.FetchMethodAndCP(className, methName+desc)
				if err != nil {
					return err
				}
			}

			if err := invoke(fs, f, mt, cp, className, methName, desc, op != INVOKESTATIC); err != nil {
				return err
			}

		case NEW:
			idx := cpIndexAt(f)
			className := resolveClassRef(f.CP, idx)
			obj, err := instantiateClass(className)
			if err != nil {
				return err
			}
			f.Push(obj)

		case NEWARRAY:
			f.PC++
			atype := f.Meth[f.PC]
			length, _ := f.Pop().(int64)
			arr := Heap.AllocateArray(primitiveArrayComponent(atype), int(length))
			f.Push(arr)

		case ANEWARRAY:
			idx := cpIndexAt(f)
			className := resolveClassRef(f.CP, idx)
			length, _ := f.Pop().(int64)
			arr := Heap.AllocateArray("L"+className+";", int(length))
			f.Push(arr)

		case ARRAYLENGTH:
			arr, _ := f.Pop().(*object.Object)
			if arr == nil {
				return errors.New("runFrame: arraylength on null reference")
			}
			f.Push(int64(len(arr.Elements)))

		case IALOAD, AALOAD:
			idx, _ := f.Pop().(int64)
			arr, _ := f.Pop().(*object.Object)
			if arr == nil {
				return errors.New("runFrame: array load on null reference")
			}
			if idx < 0 || int(idx) >= len(arr.Elements) {
				return fmt.Errorf("runFrame: array index %d out of bounds for length %d", idx, len(arr.Elements))
			}
			f.Push(arr.Elements[idx])

		case IASTORE, AASTORE:
			val := f.Pop()
			idx, _ := f.Pop().(int64)
			arr, _ := f.Pop().(*object.Object)
			if arr == nil {
				return errors.New("runFrame: array store on null reference")
			}
			if idx < 0 || int(idx) >= len(arr.Elements) {
				return fmt.Errorf("runFrame: array index %d out of bounds for length %d", idx, len(arr.Elements))
			}
			arr.Elements[idx] = val
			if obj, ok := val.(*object.Object); ok {
				Heap.WriteBarrier(obj)
			}

		case CHECKCAST:
			idx := cpIndexAt(f)
			className := resolveClassRef(f.CP, idx)
			obj, _ := f.OpStack[f.TOS].(*object.Object)
			if obj != nil && !isInstanceOf(obj, className) {
				return fmt.Errorf("runFrame: ClassCastException: object of class %s is not assignable to %s",
					runtimeClassName(obj), className)
			}

		case INSTANCEOF:
			idx := cpIndexAt(f)
			className := resolveClassRef(f.CP, idx)
			obj, _ := f.Pop().(*object.Object)
			if obj == nil {
				f.Push(int64(0))
			} else if isInstanceOf(obj, className) {
				f.Push(int64(1))
			} else {
				f.Push(int64(0))
			}

		case MONITORENTER:
			obj, _ := f.Pop().(*object.Object)
			if obj != nil {
				f.Monitors = append(f.Monitors, &frames.Monitor{ObjHash: obj.Mark.Hash, Count: 1})
			}

		case MONITOREXIT:
			obj, _ := f.Pop().(*object.Object)
			if obj != nil && len(f.Monitors) > 0 {
				f.Monitors = f.Monitors[:len(f.Monitors)-1]
			}

		case ATHROW:
			throwable, _ := f.Pop().(*object.Object)
			if throwable == nil {
				return errors.New("runFrame: athrow with null reference")
			}
			if handlerPc, ok := findHandler(f, throwable); ok {
				f.TOS = -1
				f.Push(throwable)
				f.PC = handlerPc - 1
			} else {
				frames.PopFrame(fs)
				return &thrownException{throwable: throwable}
			}

		default:
			return fmt.Errorf("runFrame: unimplemented bytecode 0x%02X at PC=%d in %s.%s",
				op, f.PC, f.ClName, f.MethName)
		}
	}
	frames.PopFrame(fs)
	return nil
}

func storeLocal(f *frames.Frame, idx int, v interface{}) {
	for len(f.Locals) <= idx {
		f.Locals = append(f.Locals, int64(0))
	}
	f.Locals[idx] = v
}

func branchTaken(op byte, a, b int64) bool {
	switch op {
	case IFEQ:
		return a == b
	case IFNE:
		return a != b
	case IFLT:
		return a < b
	case IFGE:
		return a >= b
	case IFGT:
		return a > b
	case IFLE:
		return a <= b
	}
	return false
}

func jumpRelative(f *frames.Frame) {
	offset := int16(f.Meth[f.PC+1])<<8 | int16(f.Meth[f.PC+2])
	f.PC += int(offset) - 1
}

func cpIndexAt(f *frames.Frame) uint16 {
	idx := uint16(f.Meth[f.PC+1])<<8 | uint16(f.Meth[f.PC+2])
	f.PC += 2
	return idx
}

func loadConstant(cp *classloader.CPool, idx uint16) interface{} {
	if cp == nil || int(idx) >= len(cp.CpIndex) {
		return nil
	}
	entry := cp.CpIndex[idx]
	switch entry.Type {
	case classloader.IntConst:
		return int64(cp.IntConsts[entry.Slot])
	case classloader.LongConst:
		return cp.LongConsts[entry.Slot]
	case classloader.FloatConst:
		return float64(cp.Floats[entry.Slot])
	case classloader.DoubleConst:
		return cp.Doubles[entry.Slot]
	case classloader.StringConst, classloader.UTF8: // the postable CP stores string constants as UTF8 entries
		return object.StringObjectFromGoString(cp.Utf8Refs[entry.Slot])
	default:
		return nil
	}
}

// resolveFieldRef decodes a field-ref CP entry into its owning class name,
// field name, and descriptor.
func resolveFieldRef(cp *classloader.CPool, idx uint16) (className, fieldName, ftype string) {
	entry := cp.CpIndex[idx]
	fr := cp.FieldRefs[entry.Slot]
	return classAndNameAndType(cp, fr.ClassIndex, fr.NameAndType)
}

func resolveMethodRef(cp *classloader.CPool, idx uint16) (className, methName, desc string) {
	entry := cp.CpIndex[idx]
	switch entry.Type {
	case classloader.Interface:
		ir := cp.InterfaceRefs[entry.Slot]
		return classAndNameAndType(cp, ir.ClassIndex, ir.NameAndType)
	default:
		mr := cp.MethodRefs[entry.Slot]
		return classAndNameAndType(cp, mr.ClassIndex, mr.NameAndType)
	}
}

func resolveClassRef(cp *classloader.CPool, idx uint16) string {
	entry := cp.CpIndex[idx]
	return classNameFromClassIndex(cp, entry.Slot)
}

func classNameFromClassIndex(cp *classloader.CPool, slot uint16) string {
	if int(slot) >= len(cp.ClassRefs) {
		return ""
	}
	sp := stringPool.GetStringPointer(cp.ClassRefs[slot])
	if sp == nil {
		return ""
	}
	return *sp
}

func classAndNameAndType(cp *classloader.CPool, classIdx, natIdx uint16) (className, name, desc string) {
	classEntry := cp.CpIndex[classIdx]
	className = classNameFromClassIndex(cp, classEntry.Slot)

	natEntry := cp.CpIndex[natIdx]
	nat := cp.NameAndTypes[natEntry.Slot]
	name = classloader.FetchUTF8stringFromCPEntryNumber(cp, nat.NameIndex)
	desc = classloader.FetchUTF8stringFromCPEntryNumber(cp, nat.DescIndex)
	return
}

func getStatic(className, fieldName, ftype string) interface{} {
	key := className + "." + fieldName
	Statics.RLock()
	fld, ok := Statics.m[key]
	Statics.RUnlock()
	if ok {
		return fld.Fvalue
	}
	zero := zeroValueFor(ftype)
	putStatic(className, fieldName, ftype, zero)
	return zero
}

func putStatic(className, fieldName, ftype string, v interface{}) {
	key := className + "." + fieldName
	Statics.Lock()
	Statics.m[key] = &object.Field{Ftype: ftype, Fvalue: v}
	Statics.Unlock()
}

func zeroValueFor(ftype string) interface{} {
	if len(ftype) == 0 {
		return nil
	}
	switch ftype[0:1] {
	case "D", "F":
		return float64(0)
	case "L", "[":
		return nil
	default:
		return int64(0)
	}
}

// invoke resolves mt to either a Java frame (pushed and run recursively)
// or a gfunction native body (run inline via runGmethod), popping args
// plus (for a non-static call) the receiver off the caller's stack first.
func invoke(fs *list.List, caller *frames.Frame, mt *classloader.MTentry, cp *classloader.CPool,
	className, methName, desc string, hasReceiver bool) error {

	nargs := countParams(desc)
	if hasReceiver {
		nargs++
	}
	params := make([]interface{}, nargs)
	for i := nargs - 1; i >= 0; i-- {
		params[i] = caller.Pop()
	}

	switch mt.MType {
	case 'G':
		ret, err := runGmethod(*mt, fs, className, methName, desc, params, false)
		if err != nil {
			return err
		}
		if ret != nil {
			caller.Push(ret)
		}
		return nil
	case 'J':
		meth := mt.Meth.(*classloader.JmEntry)
		if !hasReceiver {
			if result, handled, jitErr := tryJitExecute(meth, className, methName, desc, params); handled {
				if jitErr != nil {
					return jitErr
				}
				caller.Push(result)
				return nil
			}
		}
		nf := frames.CreateFrame(meth.MaxStack + 2)
		nf.MethName = methName
		nf.MethType = desc
		nf.ClName = className
		nf.CP = cp
		nf.Meth = append(nf.Meth, meth.Code...)
		nf.ExceptionTable = meth.Exceptions
		for _, p := range params {
			nf.Locals = append(nf.Locals, p)
		}
		for j := len(params); j < meth.MaxLocals; j++ {
			nf.Locals = append(nf.Locals, int64(0))
		}
		if err := frames.PushFrame(fs, nf); err != nil {
			return err
		}
		if err := runFrame(fs); err != nil {
			return err
		}
		if nf.TOS >= 0 {
			caller.Push(nf.OpStack[nf.TOS])
		}
		return nil
	default:
		return fmt.Errorf("invoke: unrecognized method type %q for %s.%s%s", mt.MType, className, methName, desc)
	}
}

// peekReceiver returns the not-yet-popped receiver object for a pending
// invokevirtual/invokeinterface call, i.e. the operand stack slot beneath
// desc's argument slots, without disturbing the stack.
func peekReceiver(f *frames.Frame, desc string) interface{} {
	n := countParams(desc)
	idx := f.TOS - n
	if idx < 0 || idx >= len(f.OpStack) {
		return nil
	}
	return f.OpStack[idx]
}

// countParams counts the argument slots in a method descriptor, e.g.
// "(ILjava/lang/String;)V" has 2.
func countParams(desc string) int {
	count := 0
	i := 1 // skip leading '('
	for i < len(desc) && desc[i] != ')' {
		switch desc[i] {
		case 'L':
			for i < len(desc) && desc[i] != ';' {
				i++
			}
		case '[':
			for i < len(desc) && desc[i] == '[' {
				i++
			}
			continue
		}
		count++
		i++
	}
	return count
}

// runGmethod invokes a gfunction-registered native method body. async is
// reserved for the rare native methods (e.g. Thread.start) that must not
// block the calling frame; every current native method runs synchronously.
func runGmethod(mt classloader.MTentry, fs *list.List, className, methName, desc string,
	params []interface{}, async bool) (interface{}, error) {

	gm, ok := mt.Meth.(gfunction.GMeth)
	if !ok {
		return nil, fmt.Errorf("runGmethod: %s.%s%s has no native function body", className, methName, desc)
	}
	if MainThread.Trace {
		trace.Trace(fmt.Sprintf("runGmethod: %s.%s%s", className, methName, desc))
	}
	ret := gm.GFunction(params)
	if gerr, ok := ret.(*gfunction.GErrBlk); ok {
		return nil, fmt.Errorf("%s.%s%s: %s", className, methName, desc, gerr.ErrMsg)
	}
	return ret, nil
}
