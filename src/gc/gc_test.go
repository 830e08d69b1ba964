/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2026 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package gc

import (
	"testing"

	"jacobin/object"
)

func TestAllocateTracksObject(t *testing.T) {
	h := NewHeap(nil)
	obj := h.Allocate("java/lang/Object")
	if obj == nil {
		t.Fatalf("Allocate returned nil")
	}
	if h.Live() != 1 {
		t.Errorf("Live() = %d, want 1", h.Live())
	}
}

func TestAllocateArrayZeroInitializes(t *testing.T) {
	h := NewHeap(nil)
	arr := h.AllocateArray("I", 3)
	if len(arr.Elements) != 3 {
		t.Fatalf("AllocateArray length = %d, want 3", len(arr.Elements))
	}
	for i, e := range arr.Elements {
		if e != int64(0) {
			t.Errorf("element %d = %v, want int64(0)", i, e)
		}
	}
}

func TestAllocateArrayNegativeLengthThrows(t *testing.T) {
	var thrown string
	h := NewHeap(func(exceptionType, message string) { thrown = exceptionType })
	arr := h.AllocateArray("I", -1)
	if arr != nil {
		t.Errorf("AllocateArray(-1) = %v, want nil", arr)
	}
	if thrown == "" {
		t.Errorf("expected NegativeArraySizeException to be thrown")
	}
}

func TestCollectSweepsUnreachableObjects(t *testing.T) {
	h := NewHeap(nil)
	kept := h.Allocate("java/lang/Object")
	_ = h.Allocate("java/lang/Object") // unreachable, should be swept

	h.RegisterRootProvider(func() []*object.Object {
		return []*object.Object{kept}
	})

	if err := h.Collect(); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if h.Live() != 1 {
		t.Errorf("Live() after collect = %d, want 1", h.Live())
	}
}

func TestCollectTracesStrongFieldEdges(t *testing.T) {
	h := NewHeap(nil)
	child := h.Allocate("java/lang/Object")
	parent := h.Allocate("java/lang/Object")
	parent.FieldTable["child"] = object.Field{Ftype: "Ljava/lang/Object;", Fvalue: child}

	h.RegisterRootProvider(func() []*object.Object {
		return []*object.Object{parent}
	})

	if err := h.Collect(); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if h.Live() != 2 {
		t.Errorf("Live() after collect = %d, want 2 (parent + child kept alive transitively)", h.Live())
	}
}

func TestExternalRootSurvivesCollection(t *testing.T) {
	h := NewHeap(nil)
	obj := h.Allocate("java/lang/Object")
	h.RegisterExternalRoot(obj)

	if err := h.Collect(); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if h.Live() != 1 {
		t.Errorf("Live() after collect = %d, want 1 (external root kept alive)", h.Live())
	}

	h.UnregisterExternalRoot(obj)
	if err := h.Collect(); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if h.Live() != 0 {
		t.Errorf("Live() after unregister+collect = %d, want 0", h.Live())
	}
}

func TestWeakRefClearedWhenTargetUnreachable(t *testing.T) {
	h := NewHeap(nil)
	obj := h.Allocate("java/lang/Object")
	w := h.NewWeakRef(obj)

	if err := h.Collect(); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if w.Target != nil {
		t.Errorf("weak ref target = %v, want nil after unreachable object was swept", w.Target)
	}
}

func TestWeakRefSurvivesWhenTargetReachable(t *testing.T) {
	h := NewHeap(nil)
	obj := h.Allocate("java/lang/Object")
	w := h.NewWeakRef(obj)
	h.RegisterRootProvider(func() []*object.Object { return []*object.Object{obj} })

	if err := h.Collect(); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if w.Target != obj {
		t.Errorf("weak ref target = %v, want %v (object was reachable from a root)", w.Target, obj)
	}
}

func TestStatisticsCountsCollections(t *testing.T) {
	h := NewHeap(nil)
	h.Allocate("java/lang/Object")

	if err := h.Collect(); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if err := h.Collect(); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	stats := h.Statistics()
	if stats.CollectionCount != 2 {
		t.Errorf("CollectionCount = %d, want 2", stats.CollectionCount)
	}
	if stats.BytesAllocated == 0 {
		t.Errorf("BytesAllocated = 0, want > 0")
	}
}

func TestWriteBarrierIsNoopOutsideMark(t *testing.T) {
	h := NewHeap(nil)
	obj := h.Allocate("java/lang/Object")
	obj.Mark.Color = object.Black
	h.WriteBarrier(obj) // not mid-collection: must not touch color
	if obj.Mark.Color != object.Black {
		t.Errorf("WriteBarrier outside mark changed color to %v", obj.Mark.Color)
	}
}
