package core

import (
	"sync"
	"sync/atomic"

	"oovm-go/internal/arena"
)

// Heap owns the two GC worklists (white = live, grey = candidate garbage)
// and the global object lock that serializes every reference-count
// update, cell assignment, and GC-list mutation (spec §4.B, §5).
type Heap struct {
	mu sync.Mutex // the "object lock" (spec §4.I)

	white, grey *Object // list heads; nil when empty
	collecting  bool
	deferred    bool // a release fired mid-collection; rerun the sweep

	// Roots supplies every thread-local root cell during a collection
	// (spec §4.B: "the constants table ..., the main namespace, and, for
	// each thread, every instance on its value stack"). Set once during
	// VM bootstrap.
	Roots func(visit func(*Cell))

	// Arena backs arena-allocated payloads (String, ByteArray). StringClass
	// lets internal helpers (e.g. dictionary string-keyed convenience
	// wrappers) mint String objects without importing the builtin
	// package; both are wired by builtin bootstrap.
	Arena       *arena.Arena
	StringClass *Object

	allocatedObjects int64 // observability only

	// OnCollect, if set, is called after each sweep with the allocation
	// counter, the number of objects freed this cycle, and the number
	// still live. Wired by pkg/vm to internal/obs.GCCycle; core stays
	// independent of the logging package, the same seam as Roots.
	OnCollect func(allocated, freed, live int64)
}

// NewHeap creates a heap backed by a, with its collector wired to a's
// allocation-pressure trigger (spec §4.A: the arena asks for a collection
// after CollectTrigger allocations or a failed page map).
func NewHeap(a *arena.Arena) *Heap {
	h := &Heap{Arena: a}
	a.Collect = h.Collect
	return h
}

func (h *Heap) linkWhite(o *Object) {
	o.onWhite = true
	o.listNext = h.white
	if h.white != nil {
		h.white.listPrev = o
	}
	o.listPrev = nil
	h.white = o
	atomic.AddInt64(&h.allocatedObjects, 1)
}

func (h *Heap) linkGrey(o *Object) {
	o.onWhite = false
	o.listNext = h.grey
	if h.grey != nil {
		h.grey.listPrev = o
	}
	o.listPrev = nil
	h.grey = o
}

func (h *Heap) unlink(o *Object) {
	if o.listPrev != nil {
		o.listPrev.listNext = o.listNext
	} else if o.onWhite {
		h.white = o.listNext
	} else {
		h.grey = o.listNext
	}
	if o.listNext != nil {
		o.listNext.listPrev = o.listPrev
	}
	o.listPrev, o.listNext = nil, nil
}

// Retain increments o's reference count.
func (h *Heap) Retain(o *Object) {
	if o == nil {
		return
	}
	h.mu.Lock()
	o.refCount++
	h.mu.Unlock()
}

// ReleaseObject decrements o's reference count. On reaching zero it
// finalizes and frees the object immediately, unless a collection is in
// progress, in which case the release is deferred (spec §4.B: "a
// collect-again flag is set and the finalization is deferred ... so
// objects transiently unreachable by raw count but still referenced from
// a grey list are not double-freed").
func (h *Heap) ReleaseObject(o *Object) {
	if o == nil {
		return
	}
	h.mu.Lock()
	o.refCount--
	rc := o.refCount
	collecting := h.collecting
	if collecting {
		h.deferred = true
	}
	h.mu.Unlock()

	if rc <= 0 && !collecting {
		h.finalizeAndFree(o)
	}
}

func (h *Heap) finalizeAndFree(o *Object) {
	if o.Payload != nil {
		o.Payload.Finalize()
		o.Payload.Trace(func(c *Cell) { h.releaseCell(*c) })
	}
	h.mu.Lock()
	h.unlink(o)
	h.mu.Unlock()
}

// Collect runs a full mark-and-sweep pass (spec §4.B). It is stop-the-
// world: callers are expected to hold off other threads' mutation before
// invoking it. Collect itself does not pause other threads; Heap.Collecting
// reports whether a pass is in progress.
func (h *Heap) Collect() {
	h.mu.Lock()
	if h.collecting {
		h.mu.Unlock()
		return
	}
	h.collecting = true
	h.mu.Unlock()

	for {
		h.mu.Lock()
		h.deferred = false
		// Swap: everything live moves to grey, to be proven reachable
		// again. refCounts are rebuilt entirely from the root scan.
		h.grey, h.white = h.white, nil
		for o := h.grey; o != nil; o = o.listNext {
			o.onWhite = false
			o.refCount = 0
		}
		h.mu.Unlock()

		if h.Roots != nil {
			h.Roots(func(c *Cell) { h.mark(c) })
		}

		h.mu.Lock()
		garbage := h.grey
		h.grey = nil
		h.mu.Unlock()

		var freed int64
		for o := garbage; o != nil; {
			next := o.listNext
			if o.Payload != nil {
				o.Payload.Finalize()
			}
			o.listPrev, o.listNext = nil, nil
			o = next
			freed++
		}

		if h.OnCollect != nil {
			h.mu.Lock()
			var live int64
			for o := h.white; o != nil; o = o.listNext {
				live++
			}
			allocated := atomic.LoadInt64(&h.allocatedObjects)
			h.mu.Unlock()
			h.OnCollect(allocated, freed, live)
		}

		h.mu.Lock()
		again := h.deferred
		if !again {
			h.collecting = false
		}
		h.mu.Unlock()
		if !again {
			return
		}
	}
}

// mark visits c; if it references an object not yet proven reachable this
// cycle, the object moves white and its own outgoing references are
// marked recursively. An object already on white this cycle is simply
// bumped, which is what keeps legitimate cycles from recursing forever
// while still producing a correct final reference count (spec invariant
// 1 in §8).
func (h *Heap) mark(c *Cell) {
	if c == nil || c.Kind != KObject || c.Obj == nil {
		return
	}
	o := c.Obj

	h.mu.Lock()
	if o.onWhite {
		o.refCount++
		h.mu.Unlock()
		return
	}
	h.unlink(o)
	h.linkWhite(o)
	o.refCount = 1
	h.mu.Unlock()

	if o.Class != nil {
		h.mark(&Cell{Kind: KObject, Obj: o.Class})
	}
	if o.Payload != nil {
		o.Payload.Trace(func(ref *Cell) { h.mark(ref) })
	}
}

// Collecting reports whether a collection is currently in progress.
func (h *Heap) Collecting() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.collecting
}

// LiveObjects walks every object currently on the white (live) list.
// Exposed for tests and for diagnostics; not used on the hot path.
func (h *Heap) LiveObjects(visit func(*Object)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for o := h.white; o != nil; o = o.listNext {
		visit(o)
	}
}
