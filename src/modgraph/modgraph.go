/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package modgraph implements the module data model of spec §3 ("Module")
// and the module-access-control checks spec §4.F's dispatch resolver
// depends on: read edges between modules, export maps from a module's
// packages to the modules (or ALL/ALL-UNNAMED) permitted to see them, and
// the --add-reads/--add-exports command-line surface of spec §6. It is
// grounded on the teacher's module-bookkeeping conventions (Classes is the
// method area's registry pattern, see classloader/methodarea.go) and on
// ristretto_types/src/module_access.rs's explicit decision enum (see
// SPEC_FULL.md §3, "module_access.rs-style explicit access decision type").
package modgraph

import (
	"sync"

	"jacobin/globals"
)

// Special export targets, per spec §3 ("Module") and §6 ("ALL-UNNAMED
// targets all unnamed modules").
const (
	All         = "<all-modules>"
	AllUnnamed  = "ALL-UNNAMED"
	Unnamed     = "" // the unnamed module's own name
)

// Export records that Package is visible to Target (a module name, All, or
// AllUnnamed). Open marks a qualified-opens edge, which is required before
// reflective access is granted in addition to ordinary export visibility.
type Export struct {
	Package string
	Target  string
	Open    bool
}

// Module is the runtime representation of spec §3's Module: { name; open
// flag; packages; read set; export map }. The associated module object
// (java.lang.Module instance) is tracked by the heap, not here -- this
// package only owns the graph structure dispatch consults.
type Module struct {
	Name    string
	Open    bool // an open module exports every package for reflection implicitly
	Packages map[string]bool
	Reads    map[string]bool   // set of module names this module can read
	Exports  map[string][]Export // package -> list of (target, open) edges
}

func newModule(name string, open bool) *Module {
	return &Module{
		Name:     name,
		Open:     open,
		Packages: make(map[string]bool),
		Reads:    make(map[string]bool),
		Exports:  make(map[string][]Export),
	}
}

// Graph is the VM-wide module graph: every named module plus the implicit
// unnamed module, which reads everything and is read by nothing unless
// another module explicitly adds ALL-UNNAMED as an export/read target
// (spec §6, "--add-reads source=target", "ALL-UNNAMED").
type Graph struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

// NewGraph returns an empty module graph with just the unnamed module
// registered.
func NewGraph() *Graph {
	g := &Graph{modules: make(map[string]*Module)}
	g.modules[Unnamed] = newModule(Unnamed, true)
	return g
}

// DefineModule registers a new module. Re-defining an existing name
// replaces it, matching how a class loader re-posting a module descriptor
// during a test run is expected to behave.
func (g *Graph) DefineModule(name string, open bool) *Module {
	g.mu.Lock()
	defer g.mu.Unlock()
	m := newModule(name, open)
	g.modules[name] = m
	return m
}

func (g *Graph) get(name string) *Module {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.modules[name]
}

// AddPackage records that pkg is defined in module name.
func (g *Graph) AddPackage(name, pkg string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m := g.modules[name]
	if m == nil {
		m = newModule(name, false)
		g.modules[name] = m
	}
	m.Packages[pkg] = true
}

// AddRead creates a directed read edge: source can read target (spec §6,
// "--add-reads source=target creates a directed read edge").
func (g *Graph) AddRead(source, target string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m := g.modules[source]
	if m == nil {
		m = newModule(source, false)
		g.modules[source] = m
	}
	m.Reads[target] = true
}

// AddExport grants source/pkg export access to target, optionally as an
// opens edge (spec §6, "--add-exports source/package=target").
func (g *Graph) AddExport(source, pkg, target string, open bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m := g.modules[source]
	if m == nil {
		m = newModule(source, false)
		g.modules[source] = m
	}
	m.Exports[pkg] = append(m.Exports[pkg], Export{Package: pkg, Target: target, Open: open})
}

// ApplyCommandLineOverrides adds every --add-reads/--add-exports entry
// collected by the CLI in cfg to g, the exports as non-open edges (spec
// §6). Neither main nor jvm calls it.
func (g *Graph) ApplyCommandLineOverrides(cfg *globals.VMConfig) {
	for _, r := range cfg.ExtraReads {
		g.AddRead(r.Source, r.Target)
	}
	for _, e := range cfg.ExtraExports {
		g.AddExport(e.Source, e.Package, e.Target, false)
	}
}

// Reads reports whether module `from` can read module `to` (spec §4.F step
// 5, "the caller module must be able to read the target module"). Every
// module implicitly reads itself, and the unnamed module reads every
// module.
func (g *Graph) Reads(from, to string) bool {
	if from == to || from == Unnamed {
		return true
	}
	m := g.get(from)
	if m == nil {
		return false
	}
	return m.Reads[to] || m.Reads[All]
}

// AccessDecision is the typed outcome of CanAccess, mirroring
// ristretto_types/src/module_access.rs so the dispatch resolver's
// IllegalAccessError can report the specific reason a check failed
// (SPEC_FULL.md §3).
type AccessDecision int

const (
	Granted AccessDecision = iota
	DeniedNoRead
	DeniedNotExported
	DeniedNotOpen
	DeniedUnknownModule
)

func (d AccessDecision) Granted() bool { return d == Granted }

// String renders a human-readable reason, used when building the
// IllegalAccessError message (see dispatch package).
func (d AccessDecision) String() string {
	switch d {
	case Granted:
		return "granted"
	case DeniedNoRead:
		return "caller module does not read target module"
	case DeniedNotExported:
		return "package is not exported to caller module"
	case DeniedNotOpen:
		return "package is not open for reflective access to caller module"
	case DeniedUnknownModule:
		return "target module is unknown"
	}
	return "unknown"
}

// CanAccess implements spec §4.F step 5: the caller module must read the
// target module, and the target module must export pkg to the caller (or
// to ALL/ALL-UNNAMED). reflective additionally requires the export to be
// `opens` (or the whole target module to be open, spec §3 "open flag").
func (g *Graph) CanAccess(callerModule, targetModule, pkg string, reflective bool) AccessDecision {
	target := g.get(targetModule)
	if target == nil {
		return DeniedUnknownModule
	}
	if !g.Reads(callerModule, targetModule) {
		return DeniedNoRead
	}
	if target.Open {
		return Granted // an open module exports (and opens) every package
	}
	for _, exp := range target.Exports[pkg] {
		if !exportTargets(exp.Target, callerModule) {
			continue
		}
		if reflective && !exp.Open {
			continue
		}
		return Granted
	}
	if reflective {
		return DeniedNotOpen
	}
	return DeniedNotExported
}

// exportTargets reports whether an export naming `target` covers caller.
func exportTargets(target, caller string) bool {
	if target == All {
		return true
	}
	if target == AllUnnamed {
		return caller == Unnamed
	}
	return target == caller
}
