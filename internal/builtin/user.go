package builtin

import (
	"oovm-go/internal/core"
)

// installUserMethods wires up the generic user-instance constructor and
// field accessors (spec §3.1 "User instance: dictionary whose reserved
// key __instanceof__ holds its class; accessed via the generic user
// constructor").
func installUserMethods(reg *Registry) {
	rt := reg.rt

	// new is installed on Object's class-method table, not User's: a user
	// class's parent chain runs Point -> ... -> Object, never through the
	// User built-in class (User only names the *raw* Class field of the
	// resulting instances, spec §3.1). Every class inherits it by walking
	// that chain (spec §4.F step 3). The receiver argp[0] is the class
	// object being instantiated.
	reg.addClassMethod("Object", "new", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		class := argp[0].Obj
		fields := rt.Heap.NewDict(reg.class("Dictionary"), reg.class("List"), reg.class("Pair"), false)
		inst := rt.Heap.NewInstance(reg.class("User"), class, fields)
		moveObjectInto(rt, dest, inst)
	})

	reg.addInstanceMethod("User", "at:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		fields := core.InstanceFields(argp[0].Obj)
		if fields == nil {
			raiseInvalid(rt, th, "at:: receiver is not a User instance")
			return
		}
		v, ok := rt.Heap.DictGet(th, fields, argp[1], hashFn(rt), equalFn(rt))
		if !ok {
			rt.RaiseType(th, core.TypeNoAttribute, "at:: no such field", core.Nil())
			return
		}
		rt.Heap.AssignCell(dest, v)
	})

	reg.addInstanceMethod("User", "atput:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 3, 3)) {
			return
		}
		fields := core.InstanceFields(argp[0].Obj)
		if fields == nil {
			raiseInvalid(rt, th, "atput:: receiver is not a User instance")
			return
		}
		if err := rt.Heap.DictSet(th, fields, argp[1], argp[2], hashFn(rt), equalFn(rt)); err != nil {
			rt.RaiseType(th, core.ClassifyError(err), err.Error(), core.Nil())
			return
		}
		rt.Heap.AssignCell(dest, core.Nil())
	})
}
