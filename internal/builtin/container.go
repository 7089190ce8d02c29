package builtin

import (
	"errors"
	"strings"

	"oovm-go/internal/core"
)

// installContainerMethods wires up Pair, List, Array/constant-Array,
// ByteArray/constant-ByteArray, Slice/constant-Slice, Set/constant-Set,
// and Dictionary/constant-Dictionary (spec §4.D).
func installContainerMethods(reg *Registry) {
	installPairMethods(reg)
	installListMethods(reg)
	installArrayMethods(reg)
	installByteArrayMethods(reg)
	installSliceMethods(reg)
	installSetMethods(reg)
	installDictionaryMethods(reg)
}

func installPairMethods(reg *Registry) {
	rt := reg.rt
	reg.addInstanceMethod("Pair", "first", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		first, _, ok := core.PairParts(argp[0].Obj)
		if !ok {
			raiseInvalid(rt, th, "first: receiver is not a Pair")
			return
		}
		rt.Heap.AssignCell(dest, first)
	})
	reg.addInstanceMethod("Pair", "second", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		_, second, ok := core.PairParts(argp[0].Obj)
		if !ok {
			raiseInvalid(rt, th, "second: receiver is not a Pair")
			return
		}
		rt.Heap.AssignCell(dest, second)
	})
	reg.addClassMethod("Pair", "new:with:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 3, 3)) {
			return
		}
		p := rt.Heap.NewPair(reg.class("Pair"), argp[1], argp[2])
		moveObjectInto(rt, dest, p)
	})
	reg.addInstanceMethod("Pair", "copy", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		first, second, ok := core.PairParts(argp[0].Obj)
		if !ok {
			raiseInvalid(rt, th, "copy: receiver is not a Pair")
			return
		}
		p := rt.Heap.NewPair(argp[0].Obj.Class, first, second)
		moveObjectInto(rt, dest, p)
	})
	reg.addInstanceMethod("Pair", "deepCopy", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		first, second, ok := core.PairParts(argp[0].Obj)
		if !ok {
			raiseInvalid(rt, th, "deepCopy: receiver is not a Pair")
			return
		}
		df, err := deepCopyCell(rt, th, reg, first)
		if err != nil {
			raiseInvalid(rt, th, "deepCopy: %v", err)
			return
		}
		ds, err := deepCopyCell(rt, th, reg, second)
		if err != nil {
			rt.Heap.Release(&df)
			raiseInvalid(rt, th, "deepCopy: %v", err)
			return
		}
		p := rt.Heap.NewPair(argp[0].Obj.Class, df, ds)
		rt.Heap.Release(&df)
		rt.Heap.Release(&ds)
		moveObjectInto(rt, dest, p)
	})
	reg.addInstanceMethod("Pair", "hash", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		first, second, ok := core.PairParts(argp[0].Obj)
		if !ok {
			raiseInvalid(rt, th, "hash: receiver is not a Pair")
			return
		}
		h := hashOrdered(rt, th, []core.Cell{first, second})
		rt.Heap.AssignCell(dest, core.FromInt(int64(h)))
	})
}

func installListMethods(reg *Registry) {
	rt := reg.rt

	reg.addClassMethod("List", "cons:with:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 3, 3)) {
			return
		}
		result := rt.Heap.Cons(reg.class("List"), argp[1], argp[2])
		moveCellInto(rt, dest, result)
	})

	reg.addInstanceMethod("List", "head", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		head, _, ok := core.ListHeadTail(argp[0])
		if !ok {
			raiseInvalid(rt, th, "head: receiver is not a non-empty List")
			return
		}
		rt.Heap.AssignCell(dest, head)
	})
	reg.addInstanceMethod("List", "tail", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		_, tail, ok := core.ListHeadTail(argp[0])
		if !ok {
			raiseInvalid(rt, th, "tail: receiver is not a non-empty List")
			return
		}
		rt.Heap.AssignCell(dest, tail)
	})
	reg.addInstanceMethod("List", "length", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		rt.Heap.AssignCell(dest, core.FromInt(int64(core.ListLen(argp[0]))))
	})
	reg.addInstanceMethod("List", "reverse", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		moveCellInto(rt, dest, rt.Heap.ListReverse(reg.class("List"), argp[0]))
	})
	reg.addInstanceMethod("List", "concat:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		moveCellInto(rt, dest, rt.Heap.ListConcat(reg.class("List"), argp[0], argp[1]))
	})
	reg.addInstanceMethod("List", "copy", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		result, _ := rt.Heap.ListMap(reg.class("List"), argp[0], func(h core.Cell) (core.Cell, error) {
			if h.Kind == core.KObject && h.Obj != nil {
				rt.Heap.Retain(h.Obj)
			}
			return h, nil
		})
		moveCellInto(rt, dest, result)
	})
	reg.addInstanceMethod("List", "deepCopy", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		result, err := rt.Heap.ListMap(reg.class("List"), argp[0], func(h core.Cell) (core.Cell, error) {
			return deepCopyCell(rt, th, reg, h)
		})
		if err != nil {
			raiseInvalid(rt, th, "deepCopy: %v", err)
			return
		}
		moveCellInto(rt, dest, result)
	})
	reg.addInstanceMethod("List", "hash", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		elems := make([]core.Cell, 0, core.ListLen(argp[0]))
		for cur := argp[0]; !cur.IsNil(); {
			head, tail, ok := core.ListHeadTail(cur)
			if !ok {
				break
			}
			elems = append(elems, head)
			cur = tail
		}
		rt.Heap.AssignCell(dest, core.FromInt(int64(hashOrdered(rt, th, elems))))
	})

	// write builds a printable representation of the list spine. writeList
	// remembers every node it has written, and a tail that leads back to
	// one of them raises system.descent-loop (spec §4.B, testable scenario
	// §8) instead of looping, since a list's own tail can point back into
	// an ancestor node if user code built it that way.
	reg.addInstanceMethod("List", "write", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		var sb strings.Builder
		if err := writeList(rt, th, argp[0], &sb); err != nil {
			if errors.Is(err, core.ErrDescentLoop) {
				rt.RaiseTypeFields(th, core.TypeDescentLoop, "write: self-referential list", core.Nil(), map[string]core.Cell{
					"instance": argp[0],
				})
				return
			}
			raiseInvalid(rt, th, "write: %v", err)
			return
		}
		s, serr := rt.Heap.NewString(rt.Heap.StringClass, sb.String())
		if serr != nil {
			raiseInvalid(rt, th, "write: %v", serr)
			return
		}
		moveObjectInto(rt, dest, s)
	})
}

func writeList(rt *core.Runtime, th *core.Thread, l core.Cell, sb *strings.Builder) error {
	sb.WriteByte('(')
	first := true
	seen := make(map[*core.Object]bool)
	cur := l
	for !cur.IsNil() {
		if cur.Kind != core.KObject || cur.Obj == nil {
			break
		}
		if seen[cur.Obj] {
			return core.ErrDescentLoop
		}
		seen[cur.Obj] = true
		var head, tail core.Cell
		err := cur.Obj.WithLock(th, func() error {
			h, t, ok := core.ListHeadTail(cur)
			if !ok {
				return nil
			}
			head, tail = h, t
			return nil
		})
		if err != nil {
			return err
		}
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		writeCell(rt, th, head, sb)
		cur = tail
	}
	sb.WriteByte(')')
	return nil
}

func writeCell(rt *core.Runtime, th *core.Thread, c core.Cell, sb *strings.Builder) {
	switch c.Kind {
	case core.KNil:
		sb.WriteString("()")
	case core.KBool:
		if c.Bool() {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case core.KInt:
		sb.WriteString(intToString(c.I))
	case core.KFloat:
		sb.WriteString(floatToString(c.F))
	case core.KObject:
		if sd := core.StringOf(c.Obj); sd != nil {
			sb.WriteString(sd.String())
			return
		}
		sb.WriteString("#<object>")
	default:
		sb.WriteString("#<value>")
	}
}

func installArrayMethods(reg *Registry) {
	rt := reg.rt
	forEach := func(className string) {
		reg.addInstanceMethod(className, "length", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			rt.Heap.AssignCell(dest, core.FromInt(int64(core.ArrayLen(argp[0].Obj))))
		})
		reg.addInstanceMethod(className, "at:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
				return
			}
			if argp[1].Kind != core.KInt {
				raiseInvalid(rt, th, "at:: index must be an Integer")
				return
			}
			v, err := core.ArrayGet(argp[0].Obj, int(argp[1].I))
			if err != nil {
				rt.RaiseTypeFields(th, core.ClassifyError(err), err.Error(), core.Nil(), map[string]core.Cell{
					"instance": argp[0],
					"index":    argp[1],
				})
				return
			}
			rt.Heap.AssignCell(dest, v)
		})
		reg.addInstanceMethod(className, "copy", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			elems := core.ArrayElems(argp[0].Obj)
			arr := rt.Heap.NewArray(argp[0].Obj.Class, elems, core.ArrayConstant(argp[0].Obj))
			moveObjectInto(rt, dest, arr)
		})
		reg.addInstanceMethod(className, "deepCopy", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			elems := core.ArrayElems(argp[0].Obj)
			out := make([]core.Cell, 0, len(elems))
			for _, e := range elems {
				v, err := deepCopyCell(rt, th, reg, e)
				if err != nil {
					releaseAll(rt, out)
					raiseInvalid(rt, th, "deepCopy: %v", err)
					return
				}
				out = append(out, v)
			}
			arr := rt.Heap.NewArray(argp[0].Obj.Class, out, core.ArrayConstant(argp[0].Obj))
			releaseAll(rt, out)
			moveObjectInto(rt, dest, arr)
		})
		reg.addInstanceMethod(className, "hash", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			h := hashOrdered(rt, th, core.ArrayElems(argp[0].Obj))
			rt.Heap.AssignCell(dest, core.FromInt(int64(h)))
		})
	}
	forEach("Array")
	forEach("constant-Array")

	reg.addInstanceMethod("Array", "at:put:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 3, 3)) {
			return
		}
		if argp[1].Kind != core.KInt {
			raiseInvalid(rt, th, "at:put:: index must be an Integer")
			return
		}
		if err := rt.Heap.ArraySet(argp[0].Obj, int(argp[1].I), argp[2]); err != nil {
			rt.RaiseTypeFields(th, core.ClassifyError(err), err.Error(), core.Nil(), map[string]core.Cell{
				"instance": argp[0],
				"index":    argp[1],
			})
			return
		}
		rt.Heap.AssignCell(dest, core.Nil())
	})

	reg.addInstanceMethod("Array", "==", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		if argp[1].Kind != core.KObject {
			rt.Heap.AssignCell(dest, core.FromBool(false))
			return
		}
		eq := core.ArrayEqual(th, argp[0].Obj, argp[1].Obj, rt.EqualCells)
		rt.Heap.AssignCell(dest, core.FromBool(eq))
	})
}

func installByteArrayMethods(reg *Registry) {
	rt := reg.rt
	forEach := func(className string) {
		reg.addInstanceMethod(className, "length", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			rt.Heap.AssignCell(dest, core.FromInt(int64(core.ByteArrayLen(argp[0].Obj))))
		})
		reg.addInstanceMethod(className, "at:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
				return
			}
			if argp[1].Kind != core.KInt {
				raiseInvalid(rt, th, "at:: index must be an Integer")
				return
			}
			v, err := core.ByteArrayGet(argp[0].Obj, int(argp[1].I))
			if err != nil {
				rt.RaiseTypeFields(th, core.ClassifyError(err), err.Error(), core.Nil(), map[string]core.Cell{
					"instance": argp[0],
					"index":    argp[1],
				})
				return
			}
			rt.Heap.AssignCell(dest, core.FromInt(int64(v)))
		})
		// copy and deepCopy coincide for byte arrays: bytes hold no nested
		// object references, so there is nothing a deep copy would recurse
		// into (spec §4.D "copy (shallow), deep-copy (recursive)").
		byteArrayCopy := func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			bd, ok := argp[0].Obj.Payload.(*core.ByteArrayData)
			if !ok {
				raiseInvalid(rt, th, "copy: receiver is not a ByteArray")
				return
			}
			obj, err := rt.Heap.NewByteArray(rt.Heap.Arena, argp[0].Obj.Class, bd.Bytes(), bd.Constant)
			if err != nil {
				raiseInvalid(rt, th, "copy: %v", err)
				return
			}
			moveObjectInto(rt, dest, obj)
		}
		reg.addInstanceMethod(className, "copy", byteArrayCopy)
		reg.addInstanceMethod(className, "deepCopy", byteArrayCopy)
		reg.addInstanceMethod(className, "hash", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			bd, ok := argp[0].Obj.Payload.(*core.ByteArrayData)
			if !ok {
				raiseInvalid(rt, th, "hash: receiver is not a ByteArray")
				return
			}
			rt.Heap.AssignCell(dest, core.FromInt(int64(hashBytes(bd.Bytes()))))
		})
	}
	forEach("ByteArray")
	forEach("constant-ByteArray")

	reg.addInstanceMethod("ByteArray", "at:put:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 3, 3)) {
			return
		}
		if argp[1].Kind != core.KInt || argp[2].Kind != core.KInt {
			raiseInvalid(rt, th, "at:put:: index and value must be Integer")
			return
		}
		if err := core.ByteArraySet(argp[0].Obj, int(argp[1].I), byte(argp[2].I)); err != nil {
			rt.RaiseTypeFields(th, core.ClassifyError(err), err.Error(), core.Nil(), map[string]core.Cell{
				"instance": argp[0],
				"index":    argp[1],
			})
			return
		}
		rt.Heap.AssignCell(dest, core.Nil())
	})
}

func installSliceMethods(reg *Registry) {
	rt := reg.rt
	forEach := func(className string) {
		reg.addInstanceMethod(className, "length", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			rt.Heap.AssignCell(dest, core.FromInt(int64(core.SliceLen(argp[0].Obj))))
		})
		reg.addInstanceMethod(className, "at:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
				return
			}
			if argp[1].Kind != core.KInt {
				raiseInvalid(rt, th, "at:: index must be an Integer")
				return
			}
			v, err := core.SliceGet(argp[0].Obj, int(argp[1].I))
			if err != nil {
				rt.RaiseTypeFields(th, core.ClassifyError(err), err.Error(), core.Nil(), map[string]core.Cell{
					"instance": argp[0],
					"index":    argp[1],
				})
				return
			}
			rt.Heap.AssignCell(dest, v)
		})
		reg.addInstanceMethod(className, "copy", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			underlying, offset, length, constant, ok := core.SliceParts(argp[0].Obj)
			if !ok {
				raiseInvalid(rt, th, "copy: receiver is not a Slice")
				return
			}
			obj, err := rt.Heap.NewSlice(argp[0].Obj.Class, underlying, offset, length, constant)
			if err != nil {
				raiseInvalid(rt, th, "copy: %v", err)
				return
			}
			moveObjectInto(rt, dest, obj)
		})
		// deepCopy materializes a standalone Array of deep-copied elements:
		// a Slice only ever borrows its underlying container, so a faithful
		// deep copy cannot still be a view onto the original.
		reg.addInstanceMethod(className, "deepCopy", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			n := core.SliceLen(argp[0].Obj)
			if n < 0 {
				raiseInvalid(rt, th, "deepCopy: receiver is not a Slice")
				return
			}
			out := make([]core.Cell, 0, n)
			for i := 0; i < n; i++ {
				e, err := core.SliceGet(argp[0].Obj, i)
				if err != nil {
					releaseAll(rt, out)
					raiseInvalid(rt, th, "deepCopy: %v", err)
					return
				}
				v, err := deepCopyCell(rt, th, reg, e)
				if err != nil {
					releaseAll(rt, out)
					raiseInvalid(rt, th, "deepCopy: %v", err)
					return
				}
				out = append(out, v)
			}
			arr := rt.Heap.NewArray(reg.class("Array"), out, false)
			releaseAll(rt, out)
			moveObjectInto(rt, dest, arr)
		})
		reg.addInstanceMethod(className, "hash", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			n := core.SliceLen(argp[0].Obj)
			elems := make([]core.Cell, 0, n)
			for i := 0; i < n; i++ {
				e, err := core.SliceGet(argp[0].Obj, i)
				if err != nil {
					break
				}
				elems = append(elems, e)
			}
			rt.Heap.AssignCell(dest, core.FromInt(int64(hashOrdered(rt, th, elems))))
		})
	}
	forEach("Slice")
	forEach("constant-Slice")
}

func installSetMethods(reg *Registry) {
	rt := reg.rt
	forEach := func(className string) {
		reg.addInstanceMethod(className, "length", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			rt.Heap.AssignCell(dest, core.FromInt(int64(core.SetLen(argp[0].Obj))))
		})
		reg.addInstanceMethod(className, "contains:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
				return
			}
			ok := rt.Heap.SetContains(th, argp[0].Obj, argp[1], hashFn(rt), equalFn(rt))
			rt.Heap.AssignCell(dest, core.FromBool(ok))
		})
		reg.addInstanceMethod(className, "copy", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			newSet, err := buildSet(rt, th, reg, argp[0].Obj, core.SetElements(argp[0].Obj), false)
			if err != nil {
				raiseInvalid(rt, th, "copy: %v", err)
				return
			}
			moveObjectInto(rt, dest, newSet)
		})
		reg.addInstanceMethod(className, "deepCopy", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			newSet, err := buildSet(rt, th, reg, argp[0].Obj, core.SetElements(argp[0].Obj), true)
			if err != nil {
				raiseInvalid(rt, th, "deepCopy: %v", err)
				return
			}
			moveObjectInto(rt, dest, newSet)
		})
		reg.addInstanceMethod(className, "hash", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			h := hashUnordered(rt, th, core.SetElements(argp[0].Obj))
			rt.Heap.AssignCell(dest, core.FromInt(int64(h)))
		})
	}
	forEach("Set")
	forEach("constant-Set")

	reg.addInstanceMethod("Set", "add:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		if err := rt.Heap.SetAdd(th, argp[0].Obj, argp[1], hashFn(rt), equalFn(rt)); err != nil {
			rt.RaiseTypeFields(th, core.ClassifyError(err), err.Error(), core.Nil(), map[string]core.Cell{
				"instance": argp[0],
			})
			return
		}
		rt.Heap.AssignCell(dest, core.Nil())
	})
}

// buildSet constructs a fresh Set object holding elems (optionally deep-
// copying each one first), matching the class and constant-ness of orig —
// used by Set#copy and Set#deepCopy (spec §4.D).
func buildSet(rt *core.Runtime, th *core.Thread, reg *Registry, orig *core.Object, elems []core.Cell, deep bool) (*core.Object, error) {
	newSet := rt.Heap.NewSet(orig.Class, reg.class("List"), false)
	for _, e := range elems {
		v := e
		if deep {
			var err error
			v, err = deepCopyCell(rt, th, reg, e)
			if err != nil {
				rt.Heap.ReleaseObject(newSet)
				return nil, err
			}
		}
		err := rt.Heap.SetAdd(th, newSet, v, hashFn(rt), equalFn(rt))
		if deep {
			rt.Heap.Release(&v)
		}
		if err != nil {
			rt.Heap.ReleaseObject(newSet)
			return nil, err
		}
	}
	if sd, ok := newSet.Payload.(*core.SetData); ok {
		sd.Constant = core.SetConstant(orig)
	}
	return newSet, nil
}

func installDictionaryMethods(reg *Registry) {
	rt := reg.rt
	forEach := func(className string) {
		reg.addInstanceMethod(className, "length", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			rt.Heap.AssignCell(dest, core.FromInt(int64(core.DictLen(argp[0].Obj))))
		})
		reg.addInstanceMethod(className, "at:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
				return
			}
			v, ok := rt.Heap.DictGet(th, argp[0].Obj, argp[1], hashFn(rt), equalFn(rt))
			if !ok {
				rt.RaiseTypeFields(th, core.TypeKeyNotFound, "at:: key not found", core.Nil(), map[string]core.Cell{
					"instance": argp[0],
					"key":      argp[1],
				})
				return
			}
			rt.Heap.AssignCell(dest, v)
		})
		reg.addInstanceMethod(className, "copy", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			newDict, err := buildDict(rt, th, reg, argp[0].Obj, core.DictEntries(argp[0].Obj), false)
			if err != nil {
				raiseInvalid(rt, th, "copy: %v", err)
				return
			}
			moveObjectInto(rt, dest, newDict)
		})
		reg.addInstanceMethod(className, "deepCopy", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			newDict, err := buildDict(rt, th, reg, argp[0].Obj, core.DictEntries(argp[0].Obj), true)
			if err != nil {
				raiseInvalid(rt, th, "deepCopy: %v", err)
				return
			}
			moveObjectInto(rt, dest, newDict)
		})
		reg.addInstanceMethod(className, "hash", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			h := hashDictPairs(rt, th, core.DictEntries(argp[0].Obj))
			rt.Heap.AssignCell(dest, core.FromInt(int64(h)))
		})
	}
	forEach("Dictionary")
	forEach("constant-Dictionary")

	reg.addInstanceMethod("Dictionary", "at:put:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 3, 3)) {
			return
		}
		if err := rt.Heap.DictSet(th, argp[0].Obj, argp[1], argp[2], hashFn(rt), equalFn(rt)); err != nil {
			rt.RaiseTypeFields(th, core.ClassifyError(err), err.Error(), core.Nil(), map[string]core.Cell{
				"instance": argp[0],
				"key":      argp[1],
			})
			return
		}
		rt.Heap.AssignCell(dest, core.Nil())
	})
}

// buildDict constructs a fresh Dictionary object holding the (key, value)
// pairs, optionally deep-copying both the key and value of each, matching
// the class and constant-ness of orig — used by Dictionary#copy and
// Dictionary#deepCopy (spec §4.D).
func buildDict(rt *core.Runtime, th *core.Thread, reg *Registry, orig *core.Object, pairs []core.Cell, deep bool) (*core.Object, error) {
	newDict := rt.Heap.NewDict(orig.Class, reg.class("List"), reg.class("Pair"), false)
	for _, pr := range pairs {
		k, v, ok := core.PairParts(pr.Obj)
		if !ok {
			continue
		}
		if deep {
			var err error
			k, err = deepCopyCell(rt, th, reg, k)
			if err != nil {
				rt.Heap.ReleaseObject(newDict)
				return nil, err
			}
			v, err = deepCopyCell(rt, th, reg, v)
			if err != nil {
				rt.Heap.Release(&k)
				rt.Heap.ReleaseObject(newDict)
				return nil, err
			}
		}
		err := rt.Heap.DictSet(th, newDict, k, v, hashFn(rt), equalFn(rt))
		if deep {
			rt.Heap.Release(&k)
			rt.Heap.Release(&v)
		}
		if err != nil {
			rt.Heap.ReleaseObject(newDict)
			return nil, err
		}
	}
	if dd, ok := newDict.Payload.(*core.DictData); ok {
		dd.Constant = core.DictConstant(orig)
	}
	return newDict, nil
}

// moveObjectInto stores a freshly constructed, solely-owned object (refCount
// 1 from NewObject/NewPair/...) into dest without the extra retain
// AssignObject would perform — the constructor's reference *is* the one
// dest now owns.
func moveObjectInto(rt *core.Runtime, dest *core.Cell, o *core.Object) {
	prev := *dest
	*dest = core.FromObject(o)
	rt.Heap.Release(&prev)
}

// moveCellInto is moveObjectInto's counterpart for an already-owned Cell
// (e.g. ListMap's or deepCopyCell's result, which may be the nil cell for
// an empty list) rather than a bare *Object.
func moveCellInto(rt *core.Runtime, dest *core.Cell, c core.Cell) {
	prev := *dest
	*dest = c
	rt.Heap.Release(&prev)
}

// releaseAll drops every owned reference in cells, for unwinding a
// partially-built deep copy after a mid-way error.
func releaseAll(rt *core.Runtime, cells []core.Cell) {
	for i := range cells {
		c := cells[i]
		rt.Heap.Release(&c)
	}
}

// deepCopyCell is the shared recursive dispatcher behind every kind's
// deepCopy method (spec §4.D "deep-copy (recursive via method call)").
// Scalars and nil pass through unchanged; Strings are immutable and so are
// shared rather than duplicated; known container kinds recurse through
// their own elements via the matching per-kind builder; anything else
// (Exception, File, a plain user instance, ...) is asked to deep-copy or
// copy itself, falling back to sharing the same reference if it does
// neither. The returned cell is always one the caller owns.
func deepCopyCell(rt *core.Runtime, th *core.Thread, reg *Registry, c core.Cell) (core.Cell, error) {
	if c.Kind != core.KObject || c.Obj == nil {
		return c, nil
	}
	switch p := c.Obj.Payload.(type) {
	case *core.StringData:
		rt.Heap.Retain(c.Obj)
		return c, nil
	case *core.PairData:
		first, second, _ := core.PairParts(c.Obj)
		df, err := deepCopyCell(rt, th, reg, first)
		if err != nil {
			return core.Cell{}, err
		}
		ds, err := deepCopyCell(rt, th, reg, second)
		if err != nil {
			rt.Heap.Release(&df)
			return core.Cell{}, err
		}
		pair := rt.Heap.NewPair(c.Obj.Class, df, ds)
		rt.Heap.Release(&df)
		rt.Heap.Release(&ds)
		return core.FromObject(pair), nil
	case *core.ListData:
		return rt.Heap.ListMap(c.Obj.Class, c, func(h core.Cell) (core.Cell, error) {
			return deepCopyCell(rt, th, reg, h)
		})
	case *core.ArrayData:
		elems := core.ArrayElems(c.Obj)
		out := make([]core.Cell, 0, len(elems))
		for _, e := range elems {
			v, err := deepCopyCell(rt, th, reg, e)
			if err != nil {
				releaseAll(rt, out)
				return core.Cell{}, err
			}
			out = append(out, v)
		}
		arr := rt.Heap.NewArray(c.Obj.Class, out, p.Constant)
		releaseAll(rt, out)
		return core.FromObject(arr), nil
	case *core.ByteArrayData:
		obj, err := rt.Heap.NewByteArray(rt.Heap.Arena, c.Obj.Class, p.Bytes(), p.Constant)
		if err != nil {
			return core.Cell{}, err
		}
		return core.FromObject(obj), nil
	case *core.SliceData:
		n := core.SliceLen(c.Obj)
		out := make([]core.Cell, 0, n)
		for i := 0; i < n; i++ {
			e, err := core.SliceGet(c.Obj, i)
			if err != nil {
				releaseAll(rt, out)
				return core.Cell{}, err
			}
			v, err := deepCopyCell(rt, th, reg, e)
			if err != nil {
				releaseAll(rt, out)
				return core.Cell{}, err
			}
			out = append(out, v)
		}
		arr := rt.Heap.NewArray(reg.class("Array"), out, false)
		releaseAll(rt, out)
		return core.FromObject(arr), nil
	case *core.SetData:
		newSet, err := buildSet(rt, th, reg, c.Obj, core.SetElements(c.Obj), true)
		if err != nil {
			return core.Cell{}, err
		}
		return core.FromObject(newSet), nil
	case *core.DictData:
		newDict, err := buildDict(rt, th, reg, c.Obj, core.DictEntries(c.Obj), true)
		if err != nil {
			return core.Cell{}, err
		}
		return core.FromObject(newDict), nil
	default:
		var out core.Cell
		if err := rt.Dispatch(th, c, "deepCopy", nil, &out); err == nil {
			return out, nil
		} else if !errors.Is(err, core.ErrNoMethod) {
			return core.Cell{}, err
		}
		if err := rt.Dispatch(th, c, "copy", nil, &out); err == nil {
			return out, nil
		} else if !errors.Is(err, core.ErrNoMethod) {
			return core.Cell{}, err
		}
		rt.Heap.Retain(c.Obj)
		return c, nil
	}
}

// hashOrdered folds element hashes in sequence (FNV-1a style), used by
// ordered containers (Array, Slice) where permuting the elements must
// change the hash (spec §4.D "hash").
func hashOrdered(rt *core.Runtime, th *core.Thread, elems []core.Cell) uint32 {
	h := uint32(2166136261)
	for _, e := range elems {
		h ^= rt.HashCell(th, e)
		h *= 16777619
	}
	return h
}

// hashUnordered sums element hashes, used by Set where bucket order carries
// no meaning and permuting the elements must not change the hash.
func hashUnordered(rt *core.Runtime, th *core.Thread, elems []core.Cell) uint32 {
	var h uint32
	for _, e := range elems {
		h += rt.HashCell(th, e)
	}
	return h
}

// hashDictPairs is hashUnordered's counterpart for Dictionary, combining
// each pair's key and value hash before summing across pairs.
func hashDictPairs(rt *core.Runtime, th *core.Thread, pairs []core.Cell) uint32 {
	var h uint32
	for _, pr := range pairs {
		k, v, ok := core.PairParts(pr.Obj)
		if !ok {
			continue
		}
		h += rt.HashCell(th, k)*31 + rt.HashCell(th, v)
	}
	return h
}

// hashBytes is DefaultHash's FNV-1a byte-vector counterpart, used by
// ByteArray#hash.
func hashBytes(b []byte) uint32 {
	h := uint32(2166136261)
	for _, c := range b {
		h ^= uint32(c)
		h *= 16777619
	}
	return h
}
