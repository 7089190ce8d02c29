package builtin

import (
	"oovm-go/internal/core"
)

// installStringMethods wires up String's instance methods (spec §4.D
// "String", §9 supplemented feature 1 "Integer()" parse).
func installStringMethods(reg *Registry) {
	rt := reg.rt

	reg.addInstanceMethod("String", "length", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		sd := core.StringOf(argp[0].Obj)
		if sd == nil {
			raiseInvalid(rt, th, "length: receiver is not a String")
			return
		}
		rt.Heap.AssignCell(dest, core.FromInt(int64(sd.Len())))
	})

	reg.addInstanceMethod("String", "at:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		sd := core.StringOf(argp[0].Obj)
		if sd == nil || argp[1].Kind != core.KInt {
			raiseInvalid(rt, th, "at:: bad receiver or index")
			return
		}
		i := int(argp[1].I)
		if i < 0 || i >= sd.Len() {
			rt.RaiseType(th, core.TypeIndexRange, "String#at: index out of range", core.Nil())
			return
		}
		rt.Heap.AssignCell(dest, core.FromInt(int64(sd.String()[i])))
	})

	reg.addInstanceMethod("String", "slice:length:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 3, 3)) {
			return
		}
		sd := core.StringOf(argp[0].Obj)
		if sd == nil || argp[1].Kind != core.KInt || argp[2].Kind != core.KInt {
			raiseInvalid(rt, th, "slice:length:: bad receiver or arguments")
			return
		}
		sub, err := sd.Slice(int(argp[1].I), int(argp[2].I))
		if err != nil {
			rt.RaiseType(th, core.ClassifyError(err), err.Error(), core.Nil())
			return
		}
		s, serr := rt.Heap.NewString(rt.Heap.StringClass, sub)
		if serr != nil {
			raiseInvalid(rt, th, "slice:length:: %v", serr)
			return
		}
		moveObjectInto(rt, dest, s)
	})

	reg.addInstanceMethod("String", "+", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		a := core.StringOf(argp[0].Obj)
		b := core.StringOf(argp[1].Obj)
		if a == nil || b == nil {
			raiseInvalid(rt, th, "+: both operands must be String")
			return
		}
		s, err := rt.Heap.NewString(rt.Heap.StringClass, a.String()+b.String())
		if err != nil {
			raiseInvalid(rt, th, "+: %v", err)
			return
		}
		moveObjectInto(rt, dest, s)
	})

	reg.addInstanceMethod("String", "==", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		rt.Heap.AssignCell(dest, core.FromBool(core.DefaultEqual(argp[0], argp[1])))
	})

	reg.addInstanceMethod("String", "hash", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		rt.Heap.AssignCell(dest, core.FromInt(int64(core.DefaultHash(argp[0]))))
	})

	reg.addInstanceMethod("String", "Integer", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 2)) {
			return
		}
		sd := core.StringOf(argp[0].Obj)
		if sd == nil {
			raiseInvalid(rt, th, "Integer: receiver is not a String")
			return
		}
		base := 0
		if argc == 2 {
			if argp[1].Kind != core.KInt {
				raiseInvalid(rt, th, "Integer: base must be an Integer")
				return
			}
			base = int(argp[1].I)
		}
		v, err := sd.ParseInteger(base)
		if err != nil {
			rt.RaiseType(th, core.ClassifyError(err), err.Error(), core.Nil())
			return
		}
		rt.Heap.AssignCell(dest, core.FromInt(v))
	})
}
