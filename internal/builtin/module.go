package builtin

import "oovm-go/internal/core"

// ModuleLoader is the minimal surface internal/modload.Loader exposes to
// the Module class's native methods. Defined here (rather than importing
// internal/modload) so builtin never depends downward on the loader; the
// embedder wires the two together by calling InstallModuleLoader once a
// concrete loader exists (see pkg/vm).
type ModuleLoader interface {
	Load(th *core.Thread, name string, parentNS *core.Object, argv []core.Cell) (*core.Object, error)
	Unload(th *core.Thread, name string) error
	Path() []string
	SetPath(dirs []string)
}

// InstallModuleLoader wires Module's class methods (spec §4.K "new",
// §4.K "Unloading a module") to loader, and exposes Module.path as a
// class method that returns the loader's current search path as a new
// constant-Array on each call (spec §6 "Module.path is a list on the
// Module class").
func InstallModuleLoader(reg *Registry, loader ModuleLoader) {
	rt := reg.rt

	reg.addClassMethod("Module", "new:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		nameData := core.StringOf(argp[1].Obj)
		if nameData == nil {
			raiseInvalid(rt, th, "new:: module name must be a String")
			return
		}
		parentNS := th.Frames.CurrentNamespace()
		if parentNS == nil {
			parentNS = rt.MainNamespace()
		}
		mod, err := loader.Load(th, nameData.String(), parentNS, nil)
		if err != nil {
			rt.RaiseType(th, core.ClassifyError(err), err.Error(), core.Nil())
			return
		}
		rt.Heap.AssignObject(dest, mod)
	})

	reg.addClassMethod("Module", "unload:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		nameData := core.StringOf(argp[1].Obj)
		if nameData == nil {
			raiseInvalid(rt, th, "unload:: module name must be a String")
			return
		}
		if err := loader.Unload(th, nameData.String()); err != nil {
			rt.RaiseType(th, core.ClassifyError(err), err.Error(), core.Nil())
			return
		}
		rt.Heap.AssignCell(dest, core.Nil())
	})

	reg.addClassMethod("Module", "path", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		dirs := loader.Path()
		elems := make([]core.Cell, len(dirs))
		for i, dir := range dirs {
			s, err := rt.Heap.NewString(rt.Heap.StringClass, dir)
			if err != nil {
				raiseInvalid(rt, th, "path: %v", err)
				return
			}
			elems[i] = core.FromObject(s)
		}
		// NewArray takes its own retain on every element, so the locally
		// built cells above must be released once it has: they were the
		// sole owner of each freshly constructed String until now.
		arr := rt.Heap.NewArray(reg.class("constant-Array"), elems, true)
		for i := range elems {
			rt.Heap.Release(&elems[i])
		}
		moveObjectInto(rt, dest, arr)
	})
}
