/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package verifier

import (
	"jacobin/classloader"
	"jacobin/stringPool"
	"jacobin/vtype"
)

// classHierarchyResolver implements vtype.SupertypeResolver against the
// live method area, the same superchain/interface walk dispatch.go already
// uses for override re-selection, so the verifier and the dispatcher agree
// on what "subtype of" means.
type classHierarchyResolver struct{}

var hierarchyResolver vtype.SupertypeResolver = classHierarchyResolver{}

func (classHierarchyResolver) IsSubtype(sub, super string) bool {
	if sub == super || super == vtype.ClassObject {
		return true
	}
	class := sub
	seen := map[string]bool{}
	for class != "" && !seen[class] {
		seen[class] = true
		if class == super {
			return true
		}
		k := classloader.MethAreaFetch(class)
		if k == nil || k.Data == nil {
			return false
		}
		if implementsInterface(k, super, map[string]bool{}) {
			return true
		}
		if k.Data.Superclass == class {
			return false
		}
		class = k.Data.Superclass
	}
	return false
}

func classNameFromStringPoolIndex(idx uint32) string {
	if p := stringPool.GetStringPointer(idx); p != nil {
		return *p
	}
	return vtype.ClassObject
}

func implementsInterface(k *classloader.Klass, target string, seen map[string]bool) bool {
	for _, idx := range k.Data.Interfaces {
		name := stringPool.GetStringPointer(uint32(idx))
		if name == nil || seen[*name] {
			continue
		}
		seen[*name] = true
		if *name == target {
			return true
		}
		ik := classloader.MethAreaFetch(*name)
		if ik != nil && ik.Data != nil && implementsInterface(ik, target, seen) {
			return true
		}
	}
	return false
}

// CommonSupertype walks a's superclass chain collecting ancestors, then
// walks b's chain until it hits one already seen. Absent any shared
// ancestor (shouldn't happen once java/lang/Object is reachable from both),
// it falls back to Object.
func (r classHierarchyResolver) CommonSupertype(a, b string) string {
	if a == b {
		return a
	}
	ancestors := map[string]bool{}
	class := a
	for class != "" && !ancestors[class] {
		ancestors[class] = true
		k := classloader.MethAreaFetch(class)
		if k == nil || k.Data == nil || k.Data.Superclass == class {
			break
		}
		class = k.Data.Superclass
	}
	class = b
	seen := map[string]bool{}
	for class != "" && !seen[class] {
		seen[class] = true
		if ancestors[class] {
			return class
		}
		k := classloader.MethAreaFetch(class)
		if k == nil || k.Data == nil || k.Data.Superclass == class {
			break
		}
		class = k.Data.Superclass
	}
	return vtype.ClassObject
}
