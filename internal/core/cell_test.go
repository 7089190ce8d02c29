package core

import (
	"testing"

	"oovm-go/internal/arena"
)

func TestCellConstructorsAndBool(t *testing.T) {
	if !Nil().IsNil() {
		t.Fatal("Nil() is not IsNil()")
	}
	if Nil().Bool() {
		t.Fatal("Nil().Bool() = true, want false")
	}
	if !FromBool(true).Bool() {
		t.Fatal("FromBool(true).Bool() = false")
	}
	if FromBool(false).Bool() {
		t.Fatal("FromBool(false).Bool() = true")
	}
	if FromInt(0).Kind != KInt || FromInt(5).I != 5 {
		t.Fatal("FromInt did not set KInt/I correctly")
	}
	// Every non-bool, non-nil cell is truthy, including zero-valued ones.
	zero := FromInt(0)
	if !zero.Bool() {
		t.Fatal("FromInt(0).Bool() = false, want true (only KBool/KNil are ever falsy)")
	}
}

func TestAssignObjectRetainsAndReleases(t *testing.T) {
	h := NewHeap(arena.New())
	class := h.NewObject(nil, nil, 0)
	a := h.NewObject(class, nil, 0)
	b := h.NewObject(class, nil, 0)

	var dst Cell
	h.AssignObject(&dst, a)
	if a.RefCount() != 2 {
		t.Fatalf("RefCount after AssignObject(a) = %d, want 2", a.RefCount())
	}

	h.AssignObject(&dst, b)
	if a.RefCount() != 1 {
		t.Fatalf("RefCount(a) after reassigning dst = %d, want 1 (released)", a.RefCount())
	}
	if b.RefCount() != 2 {
		t.Fatalf("RefCount(b) after AssignObject(b) = %d, want 2", b.RefCount())
	}

	h.Release(&dst)
	if b.RefCount() != 1 {
		t.Fatalf("RefCount(b) after Release = %d, want 1", b.RefCount())
	}
	if !dst.IsNil() {
		t.Fatal("dst is not nil after Release")
	}
}

func TestAssignCellCopiesScalarWithoutRetain(t *testing.T) {
	h := NewHeap(arena.New())
	var dst Cell
	h.AssignCell(&dst, FromInt(7))
	if dst.Kind != KInt || dst.I != 7 {
		t.Fatalf("AssignCell scalar copy = %+v, want Integer 7", dst)
	}
}

func TestSetHashCachedHash(t *testing.T) {
	var c Cell
	if _, ok := c.CachedHash(); ok {
		t.Fatal("CachedHash ok on a fresh cell, want false")
	}
	c.SetHash(42)
	v, ok := c.CachedHash()
	if !ok || v != 42 {
		t.Fatalf("CachedHash after SetHash(42) = (%d, %v), want (42, true)", v, ok)
	}
}
