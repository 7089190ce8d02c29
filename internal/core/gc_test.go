package core

import (
	"testing"

	"oovm-go/internal/arena"
)

// testPayload is a minimal Payload that traces a single owned cell, enough
// to build a reference cycle for Collect to break.
type testPayload struct {
	ref       Cell
	finalized *bool
}

func (p *testPayload) Trace(visit func(*Cell)) { visit(&p.ref) }
func (p *testPayload) Finalize()               { *p.finalized = true }
func (p *testPayload) KindName() string        { return "test" }

func TestCollectReclaimsUnreachableCycle(t *testing.T) {
	h := NewHeap(arena.New())
	class := h.NewObject(nil, nil, 0)

	aFinalized, bFinalized := false, false
	a := h.NewObject(class, &testPayload{finalized: &aFinalized}, 0)
	b := h.NewObject(class, &testPayload{finalized: &bFinalized}, 0)

	// a -> b -> a, a genuine reference cycle with no external holder.
	a.Payload.(*testPayload).ref = FromObject(b)
	b.Payload.(*testPayload).ref = FromObject(a)
	h.Retain(b)
	h.Retain(a)

	// Drop the only roots the caller held; nothing external reaches either
	// object anymore, but the cycle still holds a mutual refcount of 1
	// each, so naive refcounting alone would leak them.
	h.ReleaseObject(a)
	h.ReleaseObject(b)

	h.Roots = func(visit func(*Cell)) {} // no external roots
	h.Collect()

	if !aFinalized || !bFinalized {
		t.Fatalf("Collect did not reclaim the cycle: aFinalized=%v bFinalized=%v", aFinalized, bFinalized)
	}
}

func TestCollectKeepsRootReachableObjects(t *testing.T) {
	h := NewHeap(arena.New())
	class := h.NewObject(nil, nil, 0)

	finalized := false
	o := h.NewObject(class, &testPayload{finalized: &finalized}, 0)

	root := FromObject(o)
	h.Roots = func(visit func(*Cell)) { visit(&root) }
	h.Collect()

	if finalized {
		t.Fatal("Collect finalized an object still reachable from Roots")
	}
	if o.RefCount() != 1 {
		t.Fatalf("RefCount after Collect = %d, want 1 (rebuilt from the root scan)", o.RefCount())
	}
}

func TestOnCollectReportsCounts(t *testing.T) {
	h := NewHeap(arena.New())
	class := h.NewObject(nil, nil, 0)
	finalized := false
	h.NewObject(class, &testPayload{finalized: &finalized}, 0)

	var gotAllocated, gotFreed, gotLive int64
	calls := 0
	h.OnCollect = func(allocated, freed, live int64) {
		calls++
		gotAllocated, gotFreed, gotLive = allocated, freed, live
	}
	h.Roots = func(visit func(*Cell)) {}
	h.Collect()

	if calls != 1 {
		t.Fatalf("OnCollect called %d times, want 1", calls)
	}
	if gotFreed < 1 {
		t.Fatalf("OnCollect freed = %d, want at least 1", gotFreed)
	}
	if gotLive != 0 {
		t.Fatalf("OnCollect live = %d, want 0 (no roots)", gotLive)
	}
	if gotAllocated < 1 {
		t.Fatalf("OnCollect allocated = %d, want at least 1", gotAllocated)
	}
}
