/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2023-6 by  the Jacobin authors. Consult jacobin.org.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0) All rights reserved.
 */

package jvm

import (
	"errors"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"testing"

	"jacobin/frames"
	"jacobin/globals"
	"jacobin/thread"
	"jacobin/trace"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	normalStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = normalStdout
	msg, _ := io.ReadAll(r)
	return string(msg)
}

func freshGlobals() {
	globals.InitGlobals("test")
	g := globals.GetGlobalRef()
	g.StrictJDK = false
	trace.Init()
}

func TestShowFrameStackWhenPreviouslyShown(t *testing.T) {
	freshGlobals()
	th := thread.ExecThread{}
	globals.GetGlobalRef().JvmFrameStackShown = true // should prevent any output

	out := captureStdout(t, func() { showFrameStack(&th) })
	if out != "" {
		t.Errorf("Got following output when expecting none: %s", out)
	}
}

func TestShowFrameStackWithEmptyStack(t *testing.T) {
	freshGlobals()
	th := thread.CreateThread()
	globals.GetGlobalRef().JvmFrameStackShown = false

	out := captureStdout(t, func() { showFrameStack(&th) })
	if out != "no further data available\n" {
		t.Errorf("Got this when expecting 'no further data available': %s", out)
	}
}

func TestShowFrameStackWithOneEntry(t *testing.T) {
	freshGlobals()
	f := frames.CreateFrame(1)
	f.MethName = "main"
	f.ClName = "testClass"
	f.PC = 42

	th := thread.CreateThread()
	th.Stack = frames.CreateFrameStack()
	_ = frames.PushFrame(th.Stack, f)

	globals.GetGlobalRef().JvmFrameStackShown = false
	out := captureStdout(t, func() { showFrameStack(&th) })

	want := "Method: testClass.main                           PC: 042\n"
	if out != want {
		t.Errorf("Got this when expecting %q: %q", want, out)
	}
}

func TestShowGoStackWhenPreviouslyCaptured(t *testing.T) {
	freshGlobals()
	g := globals.GetGlobalRef()
	g.GoStackShown = false
	capturedGoStack := debug.Stack()
	stackAsString := string(capturedGoStack)
	g.ErrorGoStack = stackAsString
	entries := strings.Split(stackAsString, "\n")
	firstEntry := entries[0]

	out := captureStdout(t, func() { showGoStackTrace(nil) })
	if !strings.Contains(out, firstEntry) {
		t.Errorf("Go stack did not contain expected entry: %s", out)
	}
}

func TestShowGoStackWhenPreviouslyShown(t *testing.T) {
	freshGlobals()
	g := globals.GetGlobalRef()
	g.GoStackShown = true
	g.ErrorGoStack = string(debug.Stack())

	out := captureStdout(t, func() { showGoStackTrace(nil) })
	if len(out) != 0 {
		t.Errorf("Expected empty string, got: %s", out)
	}
}

func TestShowPanicCause(t *testing.T) {
	freshGlobals()
	globals.GetGlobalRef().PanicCauseShown = false
	cause := errors.New("error causing panic")

	out := captureStdout(t, func() { showPanicCause(cause) })
	if !strings.Contains(out, "error causing panic") {
		t.Errorf("Got unexpected message re panic cause: %s", out)
	}
}

func TestShowPanicCauseAfterAlreadyShown(t *testing.T) {
	freshGlobals()
	globals.GetGlobalRef().PanicCauseShown = true // should prevent showing
	cause := errors.New("error causing panic")

	out := captureStdout(t, func() { showPanicCause(cause) })
	if out != "" {
		t.Errorf("Expected empty string, got: %s", out)
	}
}

func TestShowPanicCauseNil(t *testing.T) {
	freshGlobals()
	globals.GetGlobalRef().PanicCauseShown = false

	out := captureStdout(t, func() { showPanicCause(nil) })
	if !strings.Contains(out, "error: go panic -- cause unknown") {
		t.Errorf("Got unexpected message for nil panic cause: %s", out)
	}
}
