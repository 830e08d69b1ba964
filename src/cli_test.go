/* Jacobin VM -- A Java virtual machine
 * © Copyright 2021-6 by the Jacobin authors. All rights reserved
 * Licensed under Mozilla Public License 2.0 (MPL-2.0)
 */

package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"jacobin/globals"
)

// unset all of the JVM environment variables and make sure
// collecting them results in no args at all
func TestGetJVMenvVariablesWhenAbsent(t *testing.T) {
	os.Unsetenv("JAVA_TOOL_OPTIONS")
	os.Unsetenv("_JAVA_OPTIONS")
	os.Unsetenv("JDK_JAVA_OPTIONS")

	javaEnvVars := getEnvArgs()
	if len(javaEnvVars) != 0 {
		t.Error("getting non-existent Java environment options failed: " + strings.Join(javaEnvVars, " "))
	}
}

// set two of the JVM environment variables and make sure they are both
// fetched correctly
func TestGetJVMenvVariablesWhenTwoArePresent(t *testing.T) {
	os.Unsetenv("JAVA_TOOL_OPTIONS")
	os.Setenv("_JAVA_OPTIONS", "Hello,")
	os.Setenv("JDK_JAVA_OPTIONS", "Jacobin!")
	defer func() {
		os.Unsetenv("_JAVA_OPTIONS")
		os.Unsetenv("JDK_JAVA_OPTIONS")
	}()

	javaEnvVars := getEnvArgs()
	joined := strings.Join(javaEnvVars, " ")
	if joined != "Hello, Jacobin!" {
		t.Error("getting two set Java environment options failed: " + joined)
	}
}

// verify the output to stderr when only usage info is requested (i.e., jacobin -help)
func TestHandleUsageMessage(t *testing.T) {
	// set the logger to low granularity, so that logging messages are not also captured in this test
	globals.InitGlobals(os.Args[0])

	var stdout, stderr bytes.Buffer
	args := []string{"jacobin", "-help"}
	if err := HandleCli(args, &stdout, &stderr); err != nil {
		t.Fatalf("HandleCli returned an error: %v", err)
	}

	msg := stderr.String()
	if !strings.Contains(msg, "Usage:") ||
		!strings.Contains(msg, "where options include") {
		t.Error("jacobin -help did not generate the usage message to stderr. msg was: " + msg)
	}

	g := globals.GetGlobalRef()
	if g.ExitNow != true {
		t.Error("'jacobin -help' should have set Global.ExitNow to true to signal end of processing")
	}
}

func TestHandleShowVersionMessage(t *testing.T) {
	globals.InitGlobals(os.Args[0])

	var stdout, stderr bytes.Buffer
	args := []string{"jacobin", "-showversion", "SomeClass"}
	if err := HandleCli(args, &stdout, &stderr); err != nil {
		t.Fatalf("HandleCli returned an error: %v", err)
	}

	msg := stdout.String()
	if !strings.Contains(msg, "Jacobin VM v.") {
		t.Error("jacobin -showversion did not generate the correct message to stdout. msg was: " + msg)
	}
}

func TestShowCopyright(t *testing.T) {
	globals.InitGlobals(os.Args[0])

	normalStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	showCopyright()

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	os.Stdout = normalStdout

	msg := buf.String()

	if !strings.Contains(msg, "All rights reserved.") ||
		!strings.Contains(msg, "2021") {
		t.Error("Copyright does not contain expected terms")
	}
}
