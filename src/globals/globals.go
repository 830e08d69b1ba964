/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-6 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package globals holds the one struct of VM-wide mutable state every other
// package is handed a pointer to, instead of reaching for hidden singletons
// (spec §9, Design Notes: "Global mutable state...encapsulate behind a
// single VM struct passed explicitly").
package globals

import (
	"sync"
)

// Package-level trace switches, checked on the hot path of class loading and
// resolution without indirecting through GetGlobalRef. They default off and
// are set by the CLI's -trace and --verbose flags (see cli.go).
var (
	TraceClass  bool // trace class-loading events
	TraceCloadi bool // trace class-loading initialization detail
	TraceInst   bool // trace instruction execution
	TraceVerbose bool
)

// LoaderWg lets class-loading goroutines (see LoadFromLoaderChannel) signal
// completion to whatever started them.
var LoaderWg sync.WaitGroup

// VerifierMode selects how the two verification paths of spec §4.C interact.
type VerifierMode int

const (
	Standard VerifierMode = iota
	Permissive
	Disabled
)

// VerifierFallback controls when the slow (type-inference) path runs.
type VerifierFallback int

const (
	FallbackNone VerifierFallback = iota
	FallbackOnStackMapAbsent                // spec §9 Open Questions: the chosen default
	FallbackOnAnyFailure
)

// VerifierFlags is a bitset of optional checks (spec §6 "flags bitset
// selecting optional checks").
type VerifierFlags uint32

const (
	CheckUnusedLocals VerifierFlags = 1 << iota
	CheckDeprecatedUsage
)

// VMConfig bundles every tunable the spec calls out as externally
// configurable (spec §6), following ristretto_vm's single configuration
// object (see SPEC_FULL.md §3, Supplemented Features).
type VMConfig struct {
	VerifierMode     VerifierMode
	VerifierFallback VerifierFallback
	VerifierFlags    VerifierFlags

	MaxJavaVersion    int // e.g. 17
	MaxJavaVersionRaw int // the raw major-version number in the class file, e.g. 61

	JavaHome    string
	StartingJar string

	// --add-reads source=target and --add-exports source/pkg=target
	// overrides collected from the command line (spec §6).
	ExtraReads   []ModuleReadOverride
	ExtraExports []ModuleExportOverride

	StrictJDK bool
}

type ModuleReadOverride struct {
	Source, Target string // Target may be "ALL-UNNAMED"
}

type ModuleExportOverride struct {
	Source, Package, Target string
}

// ThrowFunc is how the classloader and dispatch resolver hand an
// already-named throwable back to the interpreter without importing jvm
// (which would create an import cycle). The jvm package installs its real
// implementation into Globals.FuncThrowException during startup, and
// InitGlobals carries it over when it recreates the instance.
type ThrowFunc func(exceptionType string, message string)

// Globals is the VM-wide state struct. Exactly one instance exists per VM
// (see GetGlobalRef), but it is never referenced through package-level
// globals by other packages -- it is always passed or fetched explicitly.
type Globals struct {
	JacobinName string
	VMConfig

	JvmFrameStackShown bool
	GoStackShown       bool
	ErrorGoStack       string
	PanicCauseShown    bool
	ExitNow            bool

	FuncThrowException ThrowFunc

	mu sync.Mutex
}

var (
	instanceMu sync.Mutex
	instance   *Globals
)

// InitGlobals (re)creates the single Globals instance, named after the
// running program (argv[0]), matching the teacher's globals.InitGlobals.
// A FuncThrowException already installed on the previous instance is kept.
func InitGlobals(jacobinName string) *Globals {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	throw := ThrowFunc(func(string, string) {}) // replaced once jvm wires itself in
	if instance != nil && instance.FuncThrowException != nil {
		throw = instance.FuncThrowException
	}
	instance = &Globals{
		JacobinName: jacobinName,
		VMConfig: VMConfig{
			VerifierMode:      Standard,
			VerifierFallback:  FallbackOnStackMapAbsent,
			MaxJavaVersion:    17,
			MaxJavaVersionRaw: 61,
		},
		FuncThrowException: throw,
	}
	return instance
}

// GetGlobalRef returns the process-wide Globals, creating a default one if
// InitGlobals has not yet been called (e.g. from a package init-order test).
func GetGlobalRef() *Globals {
	instanceMu.Lock()
	g := instance
	instanceMu.Unlock()
	if g == nil {
		g = InitGlobals("jacobin")
	}
	return g
}

// Lock/Unlock guard fields that the concurrent VM mutates after startup
// (e.g. ExitNow, JvmFrameStackShown).
func (g *Globals) Lock()   { g.mu.Lock() }
func (g *Globals) Unlock() { g.mu.Unlock() }
