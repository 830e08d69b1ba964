/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package modgraph

import "testing"

func TestUnnamedModuleReadsItself(t *testing.T) {
	g := NewGraph()
	if !g.Reads(Unnamed, Unnamed) {
		t.Errorf("unnamed module should read itself")
	}
}

func TestModuleAlwaysReadsItself(t *testing.T) {
	g := NewGraph()
	g.DefineModule("java.base", false)
	if !g.Reads("java.base", "java.base") {
		t.Errorf("a module should always read itself")
	}
}

func TestCanAccessDeniedWhenUnknownModule(t *testing.T) {
	g := NewGraph()
	d := g.CanAccess("caller", "nosuch", "a/b", false)
	if d != DeniedUnknownModule {
		t.Errorf("CanAccess to unknown module = %v, want DeniedUnknownModule", d)
	}
}

func TestCanAccessDeniedWhenNoRead(t *testing.T) {
	g := NewGraph()
	g.DefineModule("java.base", false)
	g.AddPackage("java.base", "java/lang")
	g.AddExport("java.base", "java/lang", All, false)

	d := g.CanAccess("app", "java.base", "java/lang", false)
	if d != DeniedNoRead {
		t.Errorf("CanAccess without a read edge = %v, want DeniedNoRead", d)
	}
}

func TestCanAccessGrantedViaExportToAll(t *testing.T) {
	g := NewGraph()
	g.DefineModule("java.base", false)
	g.AddPackage("java.base", "java/lang")
	g.AddExport("java.base", "java/lang", All, false)
	g.AddRead("app", "java.base")

	d := g.CanAccess("app", "java.base", "java/lang", false)
	if d != Granted {
		t.Errorf("CanAccess = %v, want Granted", d)
	}
}

func TestCanAccessDeniedNotExported(t *testing.T) {
	g := NewGraph()
	g.DefineModule("java.base", false)
	g.AddPackage("java.base", "java/lang/internal")
	g.AddRead("app", "java.base")

	d := g.CanAccess("app", "java.base", "java/lang/internal", false)
	if d != DeniedNotExported {
		t.Errorf("CanAccess to unexported package = %v, want DeniedNotExported", d)
	}
}

func TestCanAccessReflectiveRequiresOpen(t *testing.T) {
	g := NewGraph()
	g.DefineModule("java.base", false)
	g.AddExport("java.base", "java/lang", All, false) // exported, not opened
	g.AddRead("app", "java.base")

	if d := g.CanAccess("app", "java.base", "java/lang", true); d != DeniedNotOpen {
		t.Errorf("reflective CanAccess on a non-open export = %v, want DeniedNotOpen", d)
	}
	if d := g.CanAccess("app", "java.base", "java/lang", false); d != Granted {
		t.Errorf("ordinary CanAccess on an exported package = %v, want Granted", d)
	}
}

func TestCanAccessOpenModuleGrantsReflectiveAccessToAnyPackage(t *testing.T) {
	g := NewGraph()
	g.DefineModule("app.open", true)
	g.AddRead("caller", "app.open")

	if d := g.CanAccess("caller", "app.open", "some/internal/pkg", true); d != Granted {
		t.Errorf("open module reflective access = %v, want Granted", d)
	}
}

func TestCanAccessExportToAllUnnamedOnlyCoversUnnamedCaller(t *testing.T) {
	g := NewGraph()
	g.DefineModule("java.base", false)
	g.AddExport("java.base", "java/lang", AllUnnamed, false)
	g.AddRead(Unnamed, "java.base")
	g.AddRead("app", "java.base")

	if d := g.CanAccess(Unnamed, "java.base", "java/lang", false); d != Granted {
		t.Errorf("unnamed caller via ALL-UNNAMED export = %v, want Granted", d)
	}
	if d := g.CanAccess("app", "java.base", "java/lang", false); d != DeniedNotExported {
		t.Errorf("named caller via ALL-UNNAMED export = %v, want DeniedNotExported", d)
	}
}

func TestCanAccessExportToSpecificModule(t *testing.T) {
	g := NewGraph()
	g.DefineModule("java.base", false)
	g.AddExport("java.base", "java/lang", "app", false)
	g.AddRead("app", "java.base")
	g.AddRead("other", "java.base")

	if d := g.CanAccess("app", "java.base", "java/lang", false); d != Granted {
		t.Errorf("qualified export to named target = %v, want Granted", d)
	}
	if d := g.CanAccess("other", "java.base", "java/lang", false); d != DeniedNotExported {
		t.Errorf("qualified export denies an unlisted module = %v, want DeniedNotExported", d)
	}
}
