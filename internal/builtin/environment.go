package builtin

import "oovm-go/internal/core"

// installEnvironmentMethods wires up the Environment pseudo-class's class
// methods, which read and write the currently active namespace chain
// (spec §4.J "the currently active namespace chain (innermost namespace,
// then containing module's namespace, then root)").
func installEnvironmentMethods(reg *Registry) {
	rt := reg.rt

	reg.addClassMethod("Environment", "lookup:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		nameData := core.StringOf(argp[1].Obj)
		if nameData == nil {
			raiseInvalid(rt, th, "lookup:: name must be a String")
			return
		}
		v, ok := lookupChain(rt, th, nameData.String())
		if !ok {
			rt.RaiseType(th, core.TypeNoVariable, "lookup:: "+nameData.String()+" is not bound", core.Nil())
			return
		}
		rt.Heap.AssignCell(dest, v)
	})

	reg.addClassMethod("Environment", "store:value:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 3, 3)) {
			return
		}
		nameData := core.StringOf(argp[1].Obj)
		if nameData == nil {
			raiseInvalid(rt, th, "store:value:: name must be a String")
			return
		}
		ns := th.Frames.CurrentNamespace()
		if ns == nil {
			ns = rt.MainNamespace()
		}
		if err := rt.Heap.NamespaceDefine(th, ns, nameData.String(), argp[2]); err != nil {
			raiseInvalid(rt, th, "store:value:: %v", err)
			return
		}
		rt.Heap.AssignCell(dest, core.Nil())
	})
}

// lookupChain walks the innermost active namespace, then its parents, then
// falls back to the root namespace (spec §4.J). NamespaceLookup already
// walks a single namespace's own Parent chain, so the "containing module's
// namespace, then root" part of the spec's chain is exactly that
// traversal from wherever the current namespace frame is rooted.
func lookupChain(rt *core.Runtime, th *core.Thread, name string) (core.Cell, bool) {
	if ns := th.Frames.CurrentNamespace(); ns != nil {
		if v, ok := rt.Heap.NamespaceLookup(ns, name); ok {
			return v, true
		}
	}
	if root := rt.MainNamespace(); root != nil {
		return rt.Heap.NamespaceLookup(root, name)
	}
	return core.Cell{}, false
}
