package builtin

import "oovm-go/internal/core"

// installSystemMethods wires up System's process-control class methods
// (spec §4.J "System exposes exit, abort, assert").
func installSystemMethods(reg *Registry) {
	rt := reg.rt

	reg.addClassMethod("System", "exit:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		code := 0
		if argp[1].Kind == core.KInt {
			code = int(argp[1].I)
		}
		panic(core.NewFatal(core.FatalAborted, "System.exit:"+intToString(int64(code))))
	})

	reg.addClassMethod("System", "abort", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		panic(core.NewFatal(core.FatalAborted, "System.abort"))
	})

	reg.addClassMethod("System", "assert:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		if !argp[1].Bool() {
			panic(core.NewFatal(core.FatalAssertion, "System.assert: failed"))
		}
		rt.Heap.AssignCell(dest, core.Nil())
	})

	reg.addClassMethod("System", "backtrace", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		var names []byte
		for cf := th.Frames.CurrentCall(); cf != nil; cf = cf.Prev {
			if cf.Class != nil {
				names = append(names, []byte(classData(cf.Class).Name)...)
				names = append(names, '\n')
			}
		}
		s, err := rt.Heap.NewString(rt.Heap.StringClass, string(names))
		if err != nil {
			raiseInvalid(rt, th, "backtrace: %v", err)
			return
		}
		moveObjectInto(rt, dest, s)
	})
}
