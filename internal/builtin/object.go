package builtin

import (
	"fmt"

	"oovm-go/internal/core"
)

// classVarsOf lazily attaches a real Dictionary-backed class-variable
// store to a class the first time one is needed, working around the
// bootstrap-order gap left by Bootstrap (see its doc comment).
func classVarsOf(reg *Registry, class *core.Object) *core.Object {
	cd := classData(class)
	if cv := cd.ClassVars(); cv != nil {
		return cv
	}
	cv := reg.rt.Heap.NewDict(reg.class("Dictionary"), reg.class("List"), reg.class("Pair"), false)
	cd.SetClassVars(cv)
	return cv
}

func equalFn(rt *core.Runtime) core.EqualFn {
	return func(th *core.Thread, a, b core.Cell) bool { return rt.EqualCells(th, a, b) }
}

func hashFn(rt *core.Runtime) core.HashFn {
	return func(th *core.Thread, c core.Cell) uint32 { return rt.HashCell(th, c) }
}

func installObjectMethods(reg *Registry) {
	rt := reg.rt

	reg.addInstanceMethod("Object", "class", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		recv := argp[0]
		var cls *core.Object
		if recv.Kind == core.KObject && recv.Obj != nil {
			cls = core.ResolvedClass(recv.Obj)
		} else {
			cls = rt.Constant(scalarClassName(recv))
		}
		rt.Heap.AssignObject(dest, cls)
	})

	reg.addInstanceMethod("Object", "isKindOf:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		target := argp[1]
		if target.Kind != core.KObject || target.Obj == nil {
			rt.Heap.AssignCell(dest, core.FromBool(false))
			return
		}
		var cls *core.Object
		if argp[0].Kind == core.KObject && argp[0].Obj != nil {
			cls = core.ResolvedClass(argp[0].Obj)
		} else {
			cls = rt.Constant(scalarClassName(argp[0]))
		}
		rt.Heap.AssignCell(dest, core.FromBool(core.IsSubclassOf(cls, target.Obj)))
	})

	reg.addInstanceMethod("Object", "==", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		rt.Heap.AssignCell(dest, core.FromBool(core.DefaultEqual(argp[0], argp[1])))
	})

	reg.addInstanceMethod("Object", "equal:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		rt.Heap.AssignCell(dest, core.FromBool(core.DefaultEqual(argp[0], argp[1])))
	})

	reg.addInstanceMethod("Object", "hash", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		rt.Heap.AssignCell(dest, core.FromInt(int64(core.DefaultHash(argp[0]))))
	})
}

func scalarClassName(c core.Cell) string {
	switch c.Kind {
	case core.KBool:
		return "Boolean"
	case core.KInt:
		return "Integer"
	case core.KFloat:
		return "Float"
	case core.KCodeMethod:
		return "Codemethod"
	case core.KByteMethod:
		return "Method"
	default:
		return "Object"
	}
}

func raiseArity(rt *core.Runtime, th *core.Thread, err error) bool {
	if err != nil {
		rt.RaiseTypeFields(th, core.TypeNumArgs, err.Error(), core.Nil(), core.ArityFields(err))
		return true
	}
	return false
}

func raiseInvalid(rt *core.Runtime, th *core.Thread, format string, args ...any) {
	rt.RaiseType(th, core.TypeInvalidValue, fmt.Sprintf(format, args...), core.Nil())
}
