// Package interp implements the byte-code interpreter: opcode decoding
// and the per-thread dispatch loop that walks a compiled ByteMethod's
// instruction stream (spec §4.G).
package interp

// Op is a one-byte opcode (spec §4.G: "a compact one-byte opcode followed
// by variable-length operands").
type Op byte

const (
	OpNop Op = iota

	// Stack.
	OpAllocate     // allocate N: reserve N nil cells
	OpFree         // free N: pop and release N cells
	OpFreeAlloc    // free M, allocate N atomically
	OpPushFrom     // push a copy of the cell at a signed offset from a base
	OpAssign       // pop TOS into the cell at a signed offset from a base

	// Control.
	OpCall         // dispatch: dest offset, selector, precomputed hash, argc
	OpReturn       // return TOS (or nil) to the caller's destination cell
	OpReturnArg0   // return the receiver (argp[0]) without touching TOS

	// Exceptions.
	OpPushCatch    // push an exception frame; operand names the cell that receives the exception; resumes after this instruction
	OpRaise        // raise the object named by a stack offset
	OpReraise      // reraise the innermost active exception
	OpPopCatch     // pop N exception frames

	// Branches.
	OpJump         // unconditional
	OpJumpIfFalse  // conditional on TOS, consuming it
	OpJumpIfTrue   // conditional on TOS, consuming it
	OpJumpIfExcept // conditional on the thread's exception-pending flag

	// Literals.
	OpPushNil
	OpPushBool
	OpPushInt
	OpPushFloat
	OpPushMethod   // push the call frame class's own method for a selector name (hash operand read, unused); nil if absent
	OpPushString   // sized string, with or without a precomputed hash

	// Environment.
	OpLookup       // by name (with hash); raises no-variable if unbound; pushes nothing
	OpLookupPush   // lookup and push in one step

	// Arity.
	OpCheckArity   // raises num-args if the argument window size is out of [min,max]
	OpCollectVarArgs // gather the tail of the argument window into an Array
)

// Base selects which pointer a signed stack offset is relative to (spec
// §4.G "a signed stack offset (base = argument pointer / local base /
// destination of enclosing frame)").
type Base byte

const (
	BaseArgp Base = iota // relative to the current call frame's Argp[0]
	BaseLocal            // relative to the current call frame's StackBase
	BaseDest             // the enclosing frame's Dest cell (offset unused)
)

func (o Op) String() string {
	switch o {
	case OpNop:
		return "nop"
	case OpAllocate:
		return "allocate"
	case OpFree:
		return "free"
	case OpFreeAlloc:
		return "free-alloc"
	case OpPushFrom:
		return "push-from"
	case OpAssign:
		return "assign"
	case OpCall:
		return "call"
	case OpReturn:
		return "return"
	case OpReturnArg0:
		return "return-arg0"
	case OpPushCatch:
		return "push-catch"
	case OpRaise:
		return "raise"
	case OpReraise:
		return "reraise"
	case OpPopCatch:
		return "pop-catch"
	case OpJump:
		return "jump"
	case OpJumpIfFalse:
		return "jump-if-false"
	case OpJumpIfTrue:
		return "jump-if-true"
	case OpJumpIfExcept:
		return "jump-if-except"
	case OpPushNil:
		return "push-nil"
	case OpPushBool:
		return "push-bool"
	case OpPushInt:
		return "push-int"
	case OpPushFloat:
		return "push-float"
	case OpPushMethod:
		return "push-method"
	case OpPushString:
		return "push-string"
	case OpLookup:
		return "lookup"
	case OpLookupPush:
		return "lookup-push"
	case OpCheckArity:
		return "check-arity"
	case OpCollectVarArgs:
		return "collect-var-args"
	default:
		return "illegal"
	}
}
