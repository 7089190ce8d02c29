package core

// Frame kinds stacked on a thread's frame stack (spec §4.E). The original
// C runtime packs these onto one byte buffer growing downward; here each
// thread keeps three parallel typed stacks instead; over/underflow is
// checked against the same MaxFrameDepth limit the byte-buffer version
// would have enforced via its page size, preserving the "frame underflow
// and overflow are fatal" contract (spec §4.E) without needing manual
// layout.

// MaxFrameDepth bounds each of a thread's three frame stacks (spec §4.I
// default: "a frame stack (default one system page)" — sized here in
// frame *count* rather than bytes, which is the Go-idiomatic analogue).
const MaxFrameDepth = 4096

// NamespaceFrame links to an enclosing namespace frame and names the
// namespace currently in scope for environment lookup (spec §4.E).
type NamespaceFrame struct {
	Prev      *NamespaceFrame
	Namespace *Object
}

// CallFrame records one active method dispatch (spec §4.E
// "Method-call frame").
type CallFrame struct {
	Prev      *CallFrame
	Class     *Object // class currently dispatching through (privacy rule, spec §4.F)
	Method    Cell    // KCodeMethod or KByteMethod
	Dest      *Cell   // caller's destination cell for the return value
	StackBase int     // value-stack depth at entry
	Argc      int
	Argp      []Cell // the argument window, argp[0] is the receiver
	PC        int    // byte-code program counter, meaningful for KByteMethod only
}

// ExceptionFrame is a catch point (spec §4.E "Exception frame"). ResumePC
// is the byte-code offset the interpreter resumes at after a catch;
// native code-methods instead recover a raiseSignal directly in Go and
// never consult ResumePC (see exception.go).
type ExceptionFrame struct {
	Prev       *ExceptionFrame
	Dest       *Cell
	Valid      bool // true once an exception has actually landed here
	StackDepth int  // value-stack depth snapshot to restore on catch
	ResumePC   int
	CallFrame  *CallFrame // call frame active when the catch was pushed
}

// FrameStack is the per-thread collection of the three frame kinds plus
// the value stack used for arguments and scratch cells (spec §4.E, §6
// "Stack operations").
type FrameStack struct {
	ns       *NamespaceFrame
	call     *CallFrame
	exc      *ExceptionFrame
	nsDepth  int
	callDepth int
	excDepth int

	Values []Cell // downward-growing conceptually; indexed 0..len(Values)
}

func NewFrameStack(valueStackSize int) *FrameStack {
	return &FrameStack{Values: make([]Cell, 0, valueStackSize)}
}

func (fs *FrameStack) PushNamespace(ns *Object) (*NamespaceFrame, error) {
	if fs.nsDepth >= MaxFrameDepth {
		return nil, NewFatal(FatalFrameOverflow, "namespace frame stack")
	}
	f := &NamespaceFrame{Prev: fs.ns, Namespace: ns}
	fs.ns = f
	fs.nsDepth++
	return f, nil
}

func (fs *FrameStack) PopNamespace() error {
	if fs.ns == nil {
		return NewFatal(FatalFrameUnderflow, "namespace frame stack")
	}
	fs.ns = fs.ns.Prev
	fs.nsDepth--
	return nil
}

func (fs *FrameStack) CurrentNamespace() *Object {
	if fs.ns == nil {
		return nil
	}
	return fs.ns.Namespace
}

func (fs *FrameStack) PushCall(class *Object, method Cell, dest *Cell, argp []Cell) (*CallFrame, error) {
	if fs.callDepth >= MaxFrameDepth {
		return nil, NewFatal(FatalFrameOverflow, "call frame stack")
	}
	f := &CallFrame{
		Prev:      fs.call,
		Class:     class,
		Method:    method,
		Dest:      dest,
		StackBase: len(fs.Values),
		Argc:      len(argp),
		Argp:      argp,
	}
	fs.call = f
	fs.callDepth++
	return f, nil
}

func (fs *FrameStack) PopCall() error {
	if fs.call == nil {
		return NewFatal(FatalFrameUnderflow, "call frame stack")
	}
	fs.call = fs.call.Prev
	fs.callDepth--
	return nil
}

func (fs *FrameStack) CurrentCall() *CallFrame {
	return fs.call
}

func (fs *FrameStack) PushException(dest *Cell, resumePC int) (*ExceptionFrame, error) {
	if fs.excDepth >= MaxFrameDepth {
		return nil, NewFatal(FatalFrameOverflow, "exception frame stack")
	}
	f := &ExceptionFrame{
		Prev:       fs.exc,
		Dest:       dest,
		StackDepth: len(fs.Values),
		ResumePC:   resumePC,
		CallFrame:  fs.call,
	}
	fs.exc = f
	fs.excDepth++
	return f, nil
}

// PopExceptions pops n exception frames (spec §6 "pop-catch by count").
func (fs *FrameStack) PopExceptions(n int) error {
	for i := 0; i < n; i++ {
		if fs.exc == nil {
			return NewFatal(FatalFrameUnderflow, "exception frame stack")
		}
		fs.exc = fs.exc.Prev
		fs.excDepth--
	}
	return nil
}

// PopExceptionsThrough discards ef and every exception frame pushed after
// it (LIFO), leaving fs.exc at ef.Prev. Used when a raise lands on ef:
// any catch frames pushed by calls nested between the raise site and ef
// are abandoned along with those calls' own unwound stacks.
func (fs *FrameStack) PopExceptionsThrough(ef *ExceptionFrame) {
	for fs.exc != nil {
		cur := fs.exc
		fs.exc = cur.Prev
		fs.excDepth--
		if cur == ef {
			return
		}
	}
}

func (fs *FrameStack) CurrentException() *ExceptionFrame {
	return fs.exc
}

// -- value stack operations (spec §6 "Stack operations") --

func (fs *FrameStack) Push(c Cell) error {
	if len(fs.Values) >= cap(fs.Values) {
		return NewFatal(FatalStackOverflow, "value stack")
	}
	fs.Values = append(fs.Values, c)
	return nil
}

func (fs *FrameStack) Pop() (Cell, error) {
	if len(fs.Values) == 0 {
		return Cell{}, NewFatal(FatalStackUnderflow, "value stack")
	}
	c := fs.Values[len(fs.Values)-1]
	fs.Values = fs.Values[:len(fs.Values)-1]
	return c, nil
}

// Allocate reserves n fresh nil cells on the value stack.
func (fs *FrameStack) Allocate(n int) error {
	if len(fs.Values)+n > cap(fs.Values) {
		return NewFatal(FatalStackOverflow, "value stack")
	}
	for i := 0; i < n; i++ {
		fs.Values = append(fs.Values, Cell{})
	}
	return nil
}

// FreeN pops and discards n cells (releasing any object references is the
// caller's job via Heap.Release before calling FreeN, matching the
// "free-then-allocate" opcode's atomic free+reserve semantics).
func (fs *FrameStack) FreeN(n int) error {
	if len(fs.Values) < n {
		return NewFatal(FatalStackUnderflow, "value stack")
	}
	fs.Values = fs.Values[:len(fs.Values)-n]
	return nil
}

// At returns a pointer to the cell at absolute stack index i, bounds
// checked against the live stack, not its capacity (spec §4.G: "all
// opcode decoding is bounds-checked against frame and stack limits").
func (fs *FrameStack) At(i int) (*Cell, error) {
	if i < 0 || i >= len(fs.Values) {
		return nil, NewFatal(FatalStackRange, "value stack index out of range")
	}
	return &fs.Values[i], nil
}

func (fs *FrameStack) Depth() int { return len(fs.Values) }

// Unwind truncates the value stack back to depth, releasing every cell
// above it (spec §6 "unwind").
func (fs *FrameStack) Unwind(h *Heap, depth int) {
	for len(fs.Values) > depth {
		c := fs.Values[len(fs.Values)-1]
		fs.Values = fs.Values[:len(fs.Values)-1]
		h.releaseCell(c)
	}
}
