/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2023-6 by  the Jacobin authors. Consult jacobin.org.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0) All rights reserved.
 */

package jvm

import (
	"container/list"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"jacobin/classloader"
	"jacobin/frames"
	"jacobin/trace"
	"jacobin/types"
)

// Initialization blocks are code blocks that for all intents are methods. They're gathered up by the
// Java compiler into a method called <clinit>, which must be run at class instantiation--that is,
// before any constructor. Because that code might well call other methods, it will need to be run
// just like a regular method with stack frames, depending on the interpreter in run.go.
// In addition, we have to make sure that the initialization blocks of superclasses have been
// previously executed.
//
// Two goroutines can race to instantiate the same class concurrently; both would see
// ClInitNotRun and both would try to run <clinit>. clinitGroup.Do collapses concurrent
// callers for the same class name into a single run, the way runJavaInitializer's ad hoc
// ClInitInProgress flag used to approximate by itself.
var clinitGroup singleflight.Group

func runInitializationBlock(k *classloader.Klass, superClasses []string, fs *list.List) error {
	if superClasses == nil || len(superClasses) == 0 {
		// if no superclasses were previously looked up, get the list of
		// superclasses up to but not including java.lang.Object
		var superclasses []string

		// put the present class at the bottom of the list of superclasses,
		// because we'll need to run its clinit() code, if any
		superclasses = append(superclasses, k.Data.Name)

		superclass := k.Data.Superclass
		for {
			if superclass == "java/lang/Object" || superclass == "" {
				break
			}

			if err := loadThisClass(superclass); err != nil {
				return err
			}

			loadedSuperclass := classloader.MethAreaFetch(superclass)
			if loadedSuperclass.Data.ClInit == types.ClInitNotRun {
				superclasses = append(superclasses, superclass)
			}

			superclass = loadedSuperclass.Data.Superclass
		}
		superClasses = superclasses
	}

	// now execute any encountered <clinit> code in this class, bottom (most
	// distant superclass) first
	for i := len(superClasses) - 1; i >= 0; i-- {
		className := superClasses[i]
		_, err, _ := clinitGroup.Do(className, func() (interface{}, error) {
			return nil, runOneClinit(className, fs)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// runOneClinit runs className's own <clinit>, if it has one and hasn't
// already run. It is only ever called from inside clinitGroup.Do, so
// concurrent callers for the same class never reach this twice.
func runOneClinit(className string, fs *list.List) error {
	k := classloader.MethAreaFetch(className)
	if k == nil {
		return fmt.Errorf("runOneClinit: class %s not found in method area", className)
	}
	if k.Data.ClInit == types.ClInitRun {
		return nil
	}

	mt, _, err := classloader.FetchMethodAndCP(className, "<clinit>()V")
	if err != nil {
		// no <clinit> method: nothing to run, and nothing to flag as run
		// (classes without one stay at types.NoClinit)
		return nil
	}

	switch mt.MType {
	case 'J': // it's a Java initializer (the most common case)
		return runJavaInitializer(mt.Meth, k, fs)
	case 'G': // it's a golang implementation of the initializer
		return runNativeInitializer(*mt, k, fs)
	default:
		return fmt.Errorf("runOneClinit: %s.<clinit> has unrecognized method type %q", className, mt.MType)
	}
}

// runJavaInitializer runs the <clinit>() code as a Java method. This
// duplicates the frame-building logic in run.go's invoke(), because this
// is run against its own frame stack -- a clinit triggered mid-instantiation
// shouldn't be confused with the application's own call stack. (This design
// might be revised at a later point and the two frame stacks combined into one.)
func runJavaInitializer(m classloader.MData, k *classloader.Klass, fs *list.List) error {
	meth := m.(*classloader.JmEntry)
	f := frames.CreateFrame(meth.MaxStack + 2) // +2 for headroom the verifier doesn't give us here
	f.MethName = "<clinit>"
	f.MethType = "()V"
	f.ClName = k.Data.Name
	f.CP = meth.Cp
	f.Meth = append(f.Meth, meth.Code...)

	for j := 0; j < meth.MaxLocals; j++ {
		f.Locals = append(f.Locals, int64(0))
	}

	k.Data.ClInit = types.ClInitInProgress

	if frames.PushFrame(fs, f) != nil {
		errMsg := "memory exception allocating frame in runJavaInitializer()"
		trace.Error(errMsg)
		return errors.New(errMsg)
	}

	if MainThread.Trace {
		traceInfo := fmt.Sprintf("Start init: class=%s, meth=%s, maxStack=%d, maxLocals=%d, code size=%d",
			f.ClName, f.MethName, meth.MaxStack, meth.MaxLocals, len(meth.Code))
		trace.Trace(traceInfo)
	}

	err := runFrame(fs)
	k.Data.ClInit = types.ClInitRun // flag showing we've run this class's <clinit>
	return err
}

func runNativeInitializer(mt classloader.MTentry, k *classloader.Klass, fs *list.List) error {
	_, err := runGmethod(mt, fs, k.Data.Name, "<clinit>", "()V", nil, false)
	k.Data.ClInit = types.ClInitRun // flag showing we've run this class's <clinit>
	return err
}
