// Package arena implements the VM's page-backed size-class allocator.
//
// Objects of similar size share a page; a page holds uniformly sized slots
// tracked by a free-slot index list. Allocations above the largest size
// class are served directly by anonymous page mapping. This mirrors spec
// §4.A: alloc never returns a partial buffer, and a failed map is retried
// once after a collection before it is treated as fatal.
package arena

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// PageSize is the unit of raw mapping. Real page sizes vary by platform;
// the VM only needs pages to be a multiple of the OS page size, so a fixed
// 4K keeps size-class math simple and portable.
const PageSize = 4096

// MinSizeClass and MaxSizeClass bound the power-of-two size classes the
// arena buckets allocations into. Above MaxSizeClass, alloc falls back to
// a dedicated mapping sized to the request, rounded up to PageSize.
const (
	MinSizeClass = 16
	MaxSizeClass = PageSize / 4
)

// CollectTrigger is the number of allocations after which the arena asks
// its configured collector callback to run (spec §4.A: "a global counter
// of allocations triggers a collection after one million allocations").
const CollectTrigger = 1_000_000

// page holds one size class's worth of uniformly-sized slots. The free
// list is a plain Go slice of slot indices, kept alongside the mapped
// memory rather than threaded through it: objects living in a page still
// carry ordinary Go pointers (to their Class object, owned cells, etc.),
// so the mapped bytes hold only the object's own payload, never a
// same-page free-list pointer.
type page struct {
	next, prev *page
	base       uintptr
	slotSize   int
	mem        []byte
	free       []int32
	inUse      int
}

func (p *page) owns(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	addr := uintptr(unsafe.Pointer(&buf[0]))
	return addr >= p.base && addr < p.base+uintptr(len(p.mem))
}

// Arena is the process-wide (or VM-wide, for embedding multiple VMs)
// allocator. All operations are serialized by mu, matching spec §4.A:
// "all arena operations are serialized by a single mutex."
type Arena struct {
	mu         sync.Mutex
	heads      []*page
	allocCount uint64

	// Collect is invoked with the arena lock released when the allocation
	// counter trips or a fresh page fails to map. After a failed mapping,
	// Alloc calls it and then retries the mapping once; a counter trip
	// needs no retry, since that allocation has already succeeded.
	Collect func()
}

// New creates an arena with size classes from MinSizeClass to MaxSizeClass
// (inclusive), doubling each step.
func New() *Arena {
	n := 0
	for sz := MinSizeClass; sz <= MaxSizeClass; sz *= 2 {
		n++
	}
	return &Arena{heads: make([]*page, n)}
}

func classIndex(size int) (int, int) {
	if size < MinSizeClass {
		size = MinSizeClass
	}
	cls, sz := 0, MinSizeClass
	for sz < size {
		sz *= 2
		cls++
	}
	return cls, sz
}

// Alloc returns a buffer of at least size bytes, drawn from the matching
// size class (or a dedicated mapping above MaxSizeClass). zero requests
// the memory be cleared before use; mmap already zero-fills fresh pages,
// so this only matters for reused slots.
func (a *Arena) Alloc(size int, zero bool) ([]byte, error) {
	if size > MaxSizeClass {
		return a.allocPages(size)
	}
	return a.allocClass(size, zero)
}

func (a *Arena) allocClass(size int, zero bool) ([]byte, error) {
	a.mu.Lock()
	cls, slotSize := classIndex(size)

	p := a.heads[cls]
	for p != nil && len(p.free) == 0 {
		p = p.next
	}
	if p == nil {
		np, err := mapPage(slotSize)
		if err != nil {
			a.mu.Unlock()
			a.runCollect()
			a.mu.Lock()
			np, err = mapPage(slotSize)
			if err != nil {
				a.mu.Unlock()
				return nil, fmt.Errorf("arena: fatal: cannot map page for class %d: %w", cls, err)
			}
		}
		np.next = a.heads[cls]
		if np.next != nil {
			np.next.prev = np
		}
		a.heads[cls] = np
		p = np
	}

	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.inUse++
	off := int(idx) * p.slotSize
	buf := p.mem[off : off+size : off+slotSize]
	a.countAlloc()
	a.mu.Unlock()

	if zero {
		for i := range buf {
			buf[i] = 0
		}
	}
	return buf, nil
}

func mapPage(slotSize int) (*page, error) {
	mem, err := unix.Mmap(-1, 0, PageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	n := PageSize / slotSize
	p := &page{
		base:     uintptr(unsafe.Pointer(&mem[0])),
		slotSize: slotSize,
		mem:      mem,
		free:     make([]int32, 0, n),
	}
	for i := n - 1; i >= 0; i-- {
		p.free = append(p.free, int32(i))
	}
	return p, nil
}

func (a *Arena) allocPages(size int) ([]byte, error) {
	n := (size + PageSize - 1) / PageSize * PageSize
	buf, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		a.runCollect()
		buf, err = unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
		if err != nil {
			return nil, fmt.Errorf("arena: fatal: cannot mmap %d bytes: %w", n, err)
		}
	}
	a.mu.Lock()
	a.countAlloc()
	a.mu.Unlock()
	return buf[:size], nil
}

// Free returns a previously allocated buffer to its size class, or unmaps
// it directly if it came from allocPages. Callers must pass the same size
// given to Alloc.
func (a *Arena) Free(buf []byte, size int) {
	if size > MaxSizeClass {
		n := (size + PageSize - 1) / PageSize * PageSize
		unix.Munmap(buf[:n:n])
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	cls, slotSize := classIndex(size)
	var owner *page
	for p := a.heads[cls]; p != nil; p = p.next {
		if p.owns(buf) {
			owner = p
			break
		}
	}
	if owner == nil {
		return // double free or foreign buffer; nothing safe to do
	}

	addr := uintptr(unsafe.Pointer(&buf[0]))
	off := int(addr - owner.base)
	idx := int32(off / slotSize)
	owner.free = append(owner.free, idx)
	owner.inUse--
	if owner.inUse == 0 {
		a.unlinkPage(cls, owner)
		unix.Munmap(owner.mem)
	}
}

func (a *Arena) unlinkPage(cls int, p *page) {
	if p.prev != nil {
		p.prev.next = p.next
	} else {
		a.heads[cls] = p.next
	}
	if p.next != nil {
		p.next.prev = p.prev
	}
}

func (a *Arena) countAlloc() {
	a.allocCount++
	if a.allocCount >= CollectTrigger {
		a.allocCount = 0
		cb := a.Collect
		if cb != nil {
			a.mu.Unlock()
			cb()
			a.mu.Lock()
		}
	}
}

func (a *Arena) runCollect() {
	if a.Collect != nil {
		a.Collect()
	}
}
