/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import (
	"fmt"
	"os"

	"jacobin/globals"
	"jacobin/jvm"
	"jacobin/trace"
)

// main is the jacobin executable's entry point: initialize the one global
// state struct, configure tracing, parse the command line, then either
// exit immediately (--help/--showversion asked for that) or load and run
// the named class (spec §6 "External interfaces").
func main() {
	g := globals.InitGlobals(os.Args[0])
	trace.Init()
	trace.SetLevel(trace.WARNING)

	if err := HandleCli(os.Args, os.Stdout, os.Stderr); err != nil {
		trace.Error(err.Error())
		os.Exit(1)
	}
	if g.ExitNow {
		return
	}

	if g.StartingJar == "" {
		fmt.Fprintln(os.Stderr, "jacobin: no class or jar specified")
		os.Exit(1)
	}
	if err := jvm.StartExec(g.StartingJar); err != nil {
		trace.Error(err.Error())
		os.Exit(1)
	}
}
