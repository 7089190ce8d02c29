package core

import "sync"

// DefaultValueStackSize is the default cell count of a new thread's value
// stack (spec §4.I: "default 8192 cells").
const DefaultValueStackSize = 8192

// Thread is one VM thread: its own value stack and frame stack, current
// frame pointers, byte-code PC, and fault-reporting state (spec §4.I).
// Heap objects are shared across all threads; only the stacks below are
// thread-owned.
type Thread struct {
	ID       int
	IsMain   bool
	Frames   *FrameStack
	Name     string

	PC         int // byte-code program counter
	PCStart    int // instruction-start cursor, for fault reporting
	ExceptFlag bool
	Errno      int

	excNesting int // spec §4.H "double-exception guard"

	cancelRequested bool
	mu              sync.Mutex

	Rt *Runtime
}

// NewThread creates a thread with the default stack sizes, registers it
// on rt's global thread list (spec §4.I: "Threads are linked into a
// global list so that GC can root-scan them all"), and returns it.
func (rt *Runtime) NewThread(name string, isMain bool) *Thread {
	th := &Thread{
		ID:     rt.nextThreadID(),
		IsMain: isMain,
		Name:   name,
		Frames: NewFrameStack(DefaultValueStackSize),
		Rt:     rt,
	}
	rt.registerThread(th)
	return th
}

// RequestCancel marks the thread for asynchronous cancellation (spec §4.I
// "cancel is asynchronous"); the interpreter loop observes it between
// instructions.
func (th *Thread) RequestCancel() {
	th.mu.Lock()
	th.cancelRequested = true
	th.mu.Unlock()
}

func (th *Thread) CancelRequested() bool {
	th.mu.Lock()
	defer th.mu.Unlock()
	return th.cancelRequested
}

// Runtime ties together the heap, the class/constant table, the root
// namespace, and the set of live threads — everything Heap.Roots needs
// to walk for a collection (spec §4.B roots: "the constants table, the
// main namespace, and, for each thread, every instance on its value
// stack").
type Runtime struct {
	Heap *Heap

	// RunByteMethod executes a compiled byte-code method. It is wired in by
	// internal/interp at startup, keeping core independent of the
	// interpreter package (the same seam pattern as Arena.Collect and
	// Heap.Roots).
	RunByteMethod func(th *Thread, m *ByteMethod, argp []Cell, dest *Cell) error

	mu            sync.Mutex
	constants     map[string]*Object // interned built-in classes, by name
	mainNamespace *Object
	threads       []*Thread
	nextID        int
}

func NewRuntime(h *Heap) *Runtime {
	rt := &Runtime{Heap: h, constants: make(map[string]*Object)}
	h.Roots = rt.walkRoots
	return rt
}

func (rt *Runtime) nextThreadID() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.nextID++
	return rt.nextID
}

func (rt *Runtime) registerThread(th *Thread) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.threads = append(rt.threads, th)
}

// RemoveThread unregisters a finished thread so GC stops scanning it.
func (rt *Runtime) RemoveThread(th *Thread) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for i, t := range rt.threads {
		if t == th {
			rt.threads = append(rt.threads[:i], rt.threads[i+1:]...)
			return
		}
	}
}

func (rt *Runtime) SetConstant(name string, class *Object) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.constants[name] = class
}

func (rt *Runtime) Constant(name string) *Object {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.constants[name]
}

func (rt *Runtime) SetMainNamespace(ns *Object) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.mainNamespace = ns
}

func (rt *Runtime) MainNamespace() *Object {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.mainNamespace
}

// walkRoots visits every GC root: interned constants, the main namespace,
// and each live thread's value stack and the namespaces on its
// namespace-frame stack.
func (rt *Runtime) walkRoots(visit func(*Cell)) {
	rt.mu.Lock()
	consts := make([]*Object, 0, len(rt.constants))
	for _, c := range rt.constants {
		consts = append(consts, c)
	}
	main := rt.mainNamespace
	threads := make([]*Thread, len(rt.threads))
	copy(threads, rt.threads)
	rt.mu.Unlock()

	for _, c := range consts {
		v := FromObject(c)
		visit(&v)
	}
	if main != nil {
		v := FromObject(main)
		visit(&v)
	}
	for _, th := range threads {
		for i := range th.Frames.Values {
			visit(&th.Frames.Values[i])
		}
		for ns := th.Frames.ns; ns != nil; ns = ns.Prev {
			if ns.Namespace != nil {
				v := FromObject(ns.Namespace)
				visit(&v)
			}
		}
	}
}
