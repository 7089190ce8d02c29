// Package core implements the object graph, the tagged value cell, the
// concrete value kinds, the frame stack, method dispatch, exception
// machinery, and the thread model — spec §4 components B, C, D, E, F, H, I.
//
// Every heap object begins with the same header (spec §3.2): a GC list
// link, its size, a back-pointer to its class, a reference count, and a
// per-object recursive-capable mutex. The header's actual Go representation
// lets the runtime's own garbage collector reclaim the struct once nothing
// references it; Object's RefCount/GC-list bookkeeping implements the
// VM-level object graph *on top of* that, because spec invariants (cycle
// collection, deterministic Finalize ordering, cross-thread visibility
// under one lock) are contracts the host GC alone does not provide.
package core

import "sync/atomic"

// Payload is implemented by each concrete value kind (String, Pair, List,
// ...). Trace visits every Cell the payload owns, for both GC marking and
// reference release. Finalize runs once, when the object is about to be
// reclaimed (by refcount reaching zero or by the collector sweeping an
// unreached object), and releases resources outside the managed heap
// (file handles, loaded-library handles) — spec §3.4's "cleanup callback".
type Payload interface {
	Trace(visit func(*Cell))
	Finalize()
	KindName() string
}

// Object is the common header every heap value shares (spec §3.2).
type Object struct {
	// listPrev/listNext/onWhite form the intrusive GC list node (spec
	// §3.4: "two doubly-linked lists form the GC workspace").
	listPrev, listNext *Object
	onWhite            bool

	Size     int     // accounting only; the payload owns its real storage
	Class    *Object // back-pointer to this object's class; immutable after creation
	refCount int32   // guarded by Heap.mu; see Heap.Retain/ReleaseObject

	lock    objLock
	Payload Payload
}

// NewObject allocates an object with refCount 1 and links it onto h's
// white (live) list, per spec §3.4: "a new object is placed on the global
// live list with reference count 1."
func (h *Heap) NewObject(class *Object, p Payload, size int) *Object {
	o := &Object{Class: class, refCount: 1, Size: size, Payload: p}
	h.mu.Lock()
	h.linkWhite(o)
	h.mu.Unlock()
	return o
}

// RefCount returns the object's current reference count.
func (o *Object) RefCount() int32 { return atomic.LoadInt32(&o.refCount) }

// KindName reports the payload's concrete kind, e.g. "string" or "pair".
func (o *Object) KindName() string {
	if o.Payload == nil {
		return "object"
	}
	return o.Payload.KindName()
}
