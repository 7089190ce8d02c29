package builtin

import "oovm-go/internal/core"

// installNamespaceMethods wires up Namespace and Module instance methods
// (spec §3.3 "Namespace", "Module").
func installNamespaceMethods(reg *Registry) {
	rt := reg.rt

	reg.addInstanceMethod("Namespace", "lookup:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		nameData := core.StringOf(argp[1].Obj)
		if nameData == nil {
			raiseInvalid(rt, th, "lookup:: name must be a String")
			return
		}
		v, ok := rt.Heap.NamespaceLookup(argp[0].Obj, nameData.String())
		if !ok {
			rt.RaiseType(th, core.TypeNoVariable, "lookup:: "+nameData.String()+" is not bound", core.Nil())
			return
		}
		rt.Heap.AssignCell(dest, v)
	})

	reg.addInstanceMethod("Namespace", "define:value:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 3, 3)) {
			return
		}
		nameData := core.StringOf(argp[1].Obj)
		if nameData == nil {
			raiseInvalid(rt, th, "define:value:: name must be a String")
			return
		}
		if err := rt.Heap.NamespaceDefine(th, argp[0].Obj, nameData.String(), argp[2]); err != nil {
			raiseInvalid(rt, th, "define:value:: %v", err)
			return
		}
		rt.Heap.AssignCell(dest, core.Nil())
	})

	reg.addInstanceMethod("Namespace", "parent", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		p := core.NamespaceParent(argp[0].Obj)
		if p == nil {
			rt.Heap.AssignCell(dest, core.Nil())
			return
		}
		rt.Heap.AssignObject(dest, p)
	})

	reg.addInstanceMethod("Namespace", "name", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		s, err := rt.Heap.NewString(rt.Heap.StringClass, core.NamespaceName(argp[0].Obj))
		if err != nil {
			raiseInvalid(rt, th, "name: %v", err)
			return
		}
		moveObjectInto(rt, dest, s)
	})

	reg.addInstanceMethod("Module", "namespace", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		md := core.ModuleOf(argp[0].Obj)
		if md == nil {
			raiseInvalid(rt, th, "namespace: receiver is not a Module")
			return
		}
		rt.Heap.AssignObject(dest, md.Namespace)
	})
}
