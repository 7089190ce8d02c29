package interp

import (
	"strconv"

	"oovm-go/internal/core"
)

// Install wires the byte-code interpreter into rt, completing the seam
// left by internal/core's dispatch.go (core calls rt.RunByteMethod
// without depending on this package, the same pattern as Heap.Roots and
// Arena.Collect).
func Install(rt *core.Runtime) {
	rt.RunByteMethod = func(th *core.Thread, m *core.ByteMethod, argp []core.Cell, dest *core.Cell) error {
		return Run(rt, th, m, argp, dest)
	}
}

// Run executes a compiled byte-code method to completion (spec §4.G).
// argp is the argument window (argp[0] is the receiver); dest receives
// the return value. The caller (core.Runtime.Call) has already pushed
// the owning CallFrame before calling Run and pops it on return.
func Run(rt *core.Runtime, th *core.Thread, m *core.ByteMethod, argp []core.Cell, dest *core.Cell) error {
	callFrame := th.Frames.CurrentCall()
	pc := 0
	for {
		next, done, err := runSegment(rt, th, m, argp, dest, pc, callFrame)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		pc = next
	}
}

// runSegment decodes and executes opcodes starting at pc until the
// method returns (done=true), a Fatal aborts the thread (err != nil), or
// an exception raised during this segment is caught by one of this
// call's own push-catch frames, in which case it reports where to
// resume (resumePC, done=false) and Run's outer loop restarts the
// segment there.
//
// A raiseSignal caught by a frame belonging to an *enclosing* call is
// re-panicked so it keeps unwinding the Go call stack — Go's own defers
// (core.Runtime.Call's Unwind/PopCall) tear down everything in between,
// exactly mirroring the C runtime's longjmp across intervening C stack
// frames.
func runSegment(rt *core.Runtime, th *core.Thread, m *core.ByteMethod, argp []core.Cell, dest *core.Cell, startPC int, callFrame *core.CallFrame) (resumePC int, done bool, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if fatal, isFatal := r.(*core.Fatal); isFatal {
			err = fatal
			return
		}
		exc, ok := core.AsRaise(r)
		if !ok {
			panic(r)
		}
		ef := th.Frames.CurrentException()
		if ef == nil || ef.CallFrame != callFrame {
			panic(r)
		}
		ef.Valid = true
		th.Frames.Unwind(rt.Heap, ef.StackDepth)
		th.Frames.PopExceptionsThrough(ef)
		if ef.Dest != nil {
			rt.Heap.AssignObject(ef.Dest, exc)
		}
		resumePC = ef.ResumePC
		done = false
	}()

	pc := startPC
	fs := th.Frames
	base := argp

	for {
		th.PC = pc
		th.PCStart = pc
		d := newDecoder(m.Code, pc)
		op := d.Op()

		switch op {
		case OpNop:
			// no-op

		case OpAllocate:
			n := int(d.UVarint())
			if err := fs.Allocate(n); err != nil {
				panic(err)
			}

		case OpFree:
			n := int(d.UVarint())
			if err := freeTopN(rt, fs, n); err != nil {
				panic(err)
			}

		case OpFreeAlloc:
			freeN := int(d.UVarint())
			allocN := int(d.UVarint())
			if err := freeTopN(rt, fs, freeN); err != nil {
				panic(err)
			}
			if err := fs.Allocate(allocN); err != nil {
				panic(err)
			}

		case OpPushFrom:
			b := Base(d.Byte())
			off := d.Offset()
			cell := resolveOperand(fs, base, b, off)
			v := *cell
			if v.Kind == core.KObject && v.Obj != nil {
				rt.Heap.Retain(v.Obj)
			}
			if err := fs.Push(v); err != nil {
				panic(err)
			}

		case OpAssign:
			b := Base(d.Byte())
			off := d.Offset()
			v, err := fs.Pop()
			if err != nil {
				panic(err)
			}
			dstCell := resolveOperand(fs, base, b, off)
			moveCell(rt.Heap, dstCell, v)

		case OpCall:
			destBase := Base(d.Byte())
			destOff := d.Offset()
			selector := d.String()
			_ = d.Hash() // precomputed selector hash: accepted, not required for correctness
			argc := int(d.UVarint())
			args := make([]core.Cell, argc)
			for i := argc - 1; i >= 0; i-- {
				v, err := fs.Pop()
				if err != nil {
					panic(err)
				}
				args[i] = v
			}
			if len(args) == 0 {
				panic(core.NewFatal(core.FatalInvalidInstruction, "call with no receiver on the stack"))
			}
			receiver := args[0]
			rest := args[1:]
			var result core.Cell
			dispatchErr := rt.Dispatch(th, receiver, selector, rest, &result)
			// Build (but don't yet raise) the exception before releasing the
			// argument window below, so its Fields map can take its own
			// retained copy of receiver while the call's reference is still
			// live (spec §4.H "receiver"/"selector" fields on no-method).
			var exc *core.Object
			var fatalErr error
			if dispatchErr != nil {
				if _, ok := dispatchErr.(*core.Fatal); ok {
					fatalErr = dispatchErr
				} else {
					fields := map[string]core.Cell{"receiver": receiver}
					if selObj, serr := rt.Heap.NewString(rt.Heap.StringClass, selector); serr == nil {
						fields["selector"] = core.FromObject(selObj)
						exc = rt.NewExceptionType(th, core.ClassifyError(dispatchErr), dispatchErr.Error(), core.Nil(), fields)
						rt.Heap.ReleaseObject(selObj)
					} else {
						exc = rt.NewExceptionType(th, core.ClassifyError(dispatchErr), dispatchErr.Error(), core.Nil(), fields)
					}
				}
			}
			// The call consumes its argument window: whatever the callee
			// needed to keep alive past return it retained itself (e.g.
			// storing an argument into a field via AssignCell).
			for _, a := range args {
				releaseValue(rt.Heap, a)
			}
			if fatalErr != nil {
				panic(fatalErr)
			}
			if exc != nil {
				th.Raise(exc)
			}
			destCell := resolveOperand(fs, base, destBase, destOff)
			moveCell(rt.Heap, destCell, result)

		case OpReturn:
			v, perr := fs.Pop()
			if perr != nil {
				v = core.Nil()
			}
			if dest != nil {
				moveCell(rt.Heap, dest, v)
			} else {
				releaseValue(rt.Heap, v)
			}
			done = true
			return

		case OpReturnArg0:
			if dest != nil {
				rt.Heap.AssignCell(dest, argp[0])
			}
			done = true
			return

		case OpPushCatch:
			b := Base(d.Byte())
			off := d.Offset()
			destCell := resolveOperand(fs, base, b, off)
			resume := d.pos // setjmp-style: resumes right after this instruction's operands
			if _, err := fs.PushException(destCell, resume); err != nil {
				panic(err)
			}

		case OpRaise:
			b := Base(d.Byte())
			off := d.Offset()
			v := *resolveOperand(fs, base, b, off)
			if v.Kind != core.KObject || v.Obj == nil {
				panic(core.NewFatal(core.FatalInvalidInstruction, "raise of a non-object cell"))
			}
			th.Raise(v.Obj)

		case OpReraise:
			th.Reraise()

		case OpPopCatch:
			n := int(d.UVarint())
			if err := fs.PopExceptions(n); err != nil {
				panic(err)
			}

		case OpJump:
			target := pc + d.BranchOffset()
			pc = target
			continue

		case OpJumpIfFalse:
			target := pc
			off := d.BranchOffset()
			v, err := fs.Pop()
			if err != nil {
				panic(err)
			}
			releaseValue(rt.Heap, v)
			if !v.Bool() {
				pc = target + off
				continue
			}

		case OpJumpIfTrue:
			target := pc
			off := d.BranchOffset()
			v, err := fs.Pop()
			if err != nil {
				panic(err)
			}
			releaseValue(rt.Heap, v)
			if v.Bool() {
				pc = target + off
				continue
			}

		case OpJumpIfExcept:
			target := pc
			off := d.BranchOffset()
			if th.ExceptFlag {
				pc = target + off
				continue
			}

		case OpPushNil:
			if err := fs.Push(core.Nil()); err != nil {
				panic(err)
			}

		case OpPushBool:
			v := d.Byte()
			if err := fs.Push(core.FromBool(v != 0)); err != nil {
				panic(err)
			}

		case OpPushInt:
			v := d.Varint()
			if err := fs.Push(core.FromInt(v)); err != nil {
				panic(err)
			}

		case OpPushFloat:
			text := d.String()
			f, perr := strconv.ParseFloat(text, 64)
			if perr != nil {
				panic(core.NewFatal(core.FatalInvalidInstruction, "malformed float literal: "+text))
			}
			if err := fs.Push(core.FromFloat(f)); err != nil {
				panic(err)
			}

		case OpPushMethod:
			selector := d.String()
			_ = d.Hash()
			m := lookupOwnMethod(callFrame.Class, selector)
			if err := fs.Push(m); err != nil {
				panic(err)
			}

		case OpPushString:
			s := d.String()
			hash := d.Hash()
			obj, serr := rt.Heap.NewString(rt.Heap.StringClass, s)
			if serr != nil {
				panic(core.NewFatal(core.FatalInvalidInstruction, "string literal allocation failed: "+serr.Error()))
			}
			cell := core.FromObject(obj)
			cell.SetHash(hash)
			if err := fs.Push(cell); err != nil {
				panic(err)
			}

		case OpLookup, OpLookupPush:
			name := d.String()
			_ = d.Hash()
			ns := fs.CurrentNamespace()
			v, ok := rt.Heap.NamespaceLookup(ns, name)
			if !ok {
				var fields map[string]core.Cell
				var nameObj *core.Object
				if obj, nerr := rt.Heap.NewString(rt.Heap.StringClass, name); nerr == nil {
					nameObj = obj
					fields = map[string]core.Cell{"attribute": core.FromObject(nameObj)}
				}
				exc := rt.NewExceptionType(th, core.TypeNoVariable, "no such variable: "+name, core.Nil(), fields)
				if nameObj != nil {
					rt.Heap.ReleaseObject(nameObj)
				}
				th.Raise(exc)
			}
			if op == OpLookupPush {
				if v.Kind == core.KObject && v.Obj != nil {
					rt.Heap.Retain(v.Obj)
				}
				if err := fs.Push(v); err != nil {
					panic(err)
				}
			}

		case OpCheckArity:
			min := int(d.UVarint())
			max := int(d.Varint())
			if err := core.CheckArgs(len(argp), min, max); err != nil {
				rt.RaiseTypeFields(th, core.TypeNumArgs, err.Error(), core.Nil(), core.ArityFields(err))
			}

		case OpCollectVarArgs:
			from := int(d.UVarint())
			var elems []core.Cell
			if from < len(argp) {
				elems = append(elems, argp[from:]...)
			}
			arr := rt.Heap.NewArray(rt.Constant("Array"), elems, false)
			if err := fs.Push(core.FromObject(arr)); err != nil {
				panic(err)
			}

		default:
			panic(core.NewFatal(core.FatalInvalidInstruction, "illegal opcode"))
		}

		pc = d.pos
	}
}

// releaseValue drops the reference v holds, if any, without needing a
// live Cell slot to call Heap.Release through.
func releaseValue(h *core.Heap, v core.Cell) {
	h.Release(&v)
}

// moveCell stores an already-owned value v into dst, releasing dst's
// previous contents, without taking a second reference on v's object the
// way Heap.AssignCell does — for the common case where v's only owner is
// a value-stack slot that has just been popped, or a destination cell
// that has just been freshly computed and is otherwise about to be
// dropped.
func moveCell(h *core.Heap, dst *core.Cell, v core.Cell) {
	prev := *dst
	*dst = v
	h.Release(&prev)
}

// freeTopN pops and releases the top n value-stack cells.
func freeTopN(rt *core.Runtime, fs *core.FrameStack, n int) error {
	for i := 0; i < n; i++ {
		v, err := fs.Pop()
		if err != nil {
			return err
		}
		releaseValue(rt.Heap, v)
	}
	return nil
}

// resolveOperand maps a (base, offset) operand pair to the cell it names
// (spec §4.G operand form: "a signed stack offset (base = argument
// pointer / local base / destination of enclosing frame)").
func resolveOperand(fs *core.FrameStack, argp []core.Cell, b Base, off int) *core.Cell {
	switch b {
	case BaseArgp:
		i := off
		if i < 0 || i >= len(argp) {
			panic(core.NewFatal(core.FatalStackRange, "argp-relative operand out of range"))
		}
		return &argp[i]
	case BaseLocal:
		cur := fs.CurrentCall()
		idx := cur.StackBase + off
		cell, err := fs.At(idx)
		if err != nil {
			panic(err)
		}
		return cell
	case BaseDest:
		cur := fs.CurrentCall()
		if cur.Dest == nil {
			panic(core.NewFatal(core.FatalNoFrame, "no enclosing destination cell"))
		}
		return cur.Dest
	default:
		panic(core.NewFatal(core.FatalInvalidInstruction, "illegal operand base"))
	}
}

// lookupOwnMethod finds selector on class's own instance-method table
// without walking the parent chain, for OpPushMethod's "method pointer"
// literal (spec §4.G "Literals: ... method pointer").
func lookupOwnMethod(class *core.Object, selector string) core.Cell {
	m, ok := core.OwnInstanceMethod(class, selector)
	if !ok {
		return core.Nil()
	}
	return m
}

