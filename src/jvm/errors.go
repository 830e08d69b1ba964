/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jvm

import (
	"fmt"
	"os"

	"jacobin/frames"
	"jacobin/globals"
	"jacobin/thread"
)

// showFrameStack prints the frame stack of th to stdout, once per fatal
// error (spec §7, "uncaught exceptions print a diagnostic frame stack").
// Guarded by Globals.JvmFrameStackShown so a panic unwinding through
// multiple handlers doesn't print it repeatedly.
func showFrameStack(th *thread.ExecThread) {
	g := globals.GetGlobalRef()
	if g.JvmFrameStackShown {
		return
	}
	g.JvmFrameStackShown = true

	if th.Stack == nil || th.Stack.Len() == 0 {
		fmt.Fprintln(os.Stdout, "no further data available")
		return
	}

	for e := th.Stack.Front(); e != nil; e = e.Next() {
		f, ok := e.Value.(*frames.Frame)
		if !ok {
			continue
		}
		qualifiedName := f.ClName + "." + f.MethName
		fmt.Fprintf(os.Stdout, "Method: %-41sPC: %03d\n", qualifiedName, f.PC)
	}
}

// showGoStackTrace prints the captured Go panic stack trace once (spec
// §7: a Go-level panic, as opposed to a JVM exception, is a VM bug and
// gets its native stack dumped for the maintainers). err is the caller's
// recover() result; after the globally captured stack text, a non-nil err
// is printed on a "go panic:" line.
func showGoStackTrace(err interface{}) {
	g := globals.GetGlobalRef()
	if g.GoStackShown {
		return
	}
	g.GoStackShown = true
	fmt.Fprintln(os.Stdout, g.ErrorGoStack)
	if err != nil {
		fmt.Fprintf(os.Stdout, "go panic: %v\n", err)
	}
}

// showPanicCause prints the recovered panic value, or a generic message
// if the cause is unknown (recover() returned nil, which can happen with
// certain runtime-originated panics).
func showPanicCause(cause interface{}) {
	g := globals.GetGlobalRef()
	if g.PanicCauseShown {
		return
	}
	g.PanicCauseShown = true

	if cause == nil {
		fmt.Fprintln(os.Stdout, "error: go panic -- cause unknown")
		return
	}
	fmt.Fprintf(os.Stdout, "error: go panic -- cause: %v\n", cause)
}
