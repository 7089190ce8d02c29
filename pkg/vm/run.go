package vm

import (
	"strings"

	"oovm-go/internal/core"
	"oovm-go/internal/obs"
)

// EntryPoint names the module/class/method the CLI driver dispatches to
// (spec §6 "CLI driver... module[.class[.method]]..., missing class
// defaults to Start and missing method defaults to start").
type EntryPoint struct {
	Module string
	Class  string
	Method string
}

// ParseEntryPoint splits a "module[.class[.method]]" spec, filling in the
// spec's documented defaults.
func ParseEntryPoint(spec string) EntryPoint {
	parts := strings.SplitN(spec, ".", 3)
	ep := EntryPoint{Module: parts[0], Class: "Start", Method: "start"}
	if len(parts) > 1 && parts[1] != "" {
		ep.Class = parts[1]
	}
	if len(parts) > 2 && parts[2] != "" {
		ep.Method = parts[2]
	}
	return ep
}

// RunByName loads ep.Module, resolves ep.Class under its namespace, and
// dispatches ep.Method with args as the argument vector (spec §6 "Run by
// name: given entry module / dotted class path / method and an argument
// vector, load, dispatch, return exit code").
//
// The exit code is the integer result of the entry method, or 0 if the
// result is not an Integer (spec §6 "CLI driver").
func (v *VM) RunByName(ep EntryPoint, args []string) (exitCode int, err error) {
	mod, loadErr := v.Loader.Load(v.Main, ep.Module, v.Rt.MainNamespace(), nil)
	if loadErr != nil {
		return 1, loadErr
	}
	md := core.ModuleOf(mod)

	classCell, ok := v.Rt.Heap.NamespaceLookup(md.Namespace, ep.Class)
	if !ok {
		classCell, ok = v.Rt.Heap.NamespaceLookup(v.Rt.MainNamespace(), ep.Class)
	}
	if !ok || classCell.Kind != core.KObject {
		return 1, core.ErrNoMethod
	}

	argv := make([]core.Cell, len(args))
	for i, s := range args {
		str, serr := v.Rt.Heap.NewString(v.Rt.Heap.StringClass, s)
		if serr != nil {
			return 1, serr
		}
		argv[i] = core.FromObject(str)
	}
	defer func() {
		for i := range argv {
			v.Rt.Heap.Release(&argv[i])
		}
	}()

	return v.runProtected(classCell, ep.Method, argv)
}

// StaticRun runs a module whose init and entry functions are compiled
// into this binary rather than dynamically linked (spec §6 "Static run:
// initialize a module whose init and entry functions are compiled in").
// init is called first under a fresh namespace frame exactly as a
// dynamically loaded module's "$init" symbol would be; the resulting
// namespace is then searched for ep.Class/ep.Method the same way
// RunByName does for a linked module.
func (v *VM) StaticRun(name string, init func(th *core.Thread, dest *core.Cell, argc int, argv []core.Cell) error, ep EntryPoint, args []string) (exitCode int, err error) {
	ns := v.Rt.Heap.NewObject(v.Reg.Class("Namespace"),
		core.NewNamespaceData(name, v.Rt.MainNamespace(),
			v.Rt.Heap.NewDict(v.Reg.Class("Dictionary"), v.Reg.Class("List"), v.Reg.Class("Pair"), false)), 0)

	if _, ferr := v.Main.Frames.PushNamespace(ns); ferr != nil {
		return 1, ferr
	}
	dest := core.Nil()
	initErr := init(v.Main, &dest, 0, nil)
	v.Main.Frames.PopNamespace()
	if initErr != nil {
		return 1, initErr
	}

	classCell, ok := v.Rt.Heap.NamespaceLookup(ns, ep.Class)
	if !ok {
		classCell, ok = v.Rt.Heap.NamespaceLookup(v.Rt.MainNamespace(), ep.Class)
	}
	if !ok || classCell.Kind != core.KObject {
		return 1, core.ErrNoMethod
	}

	argv := make([]core.Cell, len(args))
	for i, s := range args {
		str, serr := v.Rt.Heap.NewString(v.Rt.Heap.StringClass, s)
		if serr != nil {
			return 1, serr
		}
		argv[i] = core.FromObject(str)
	}
	defer func() {
		for i := range argv {
			v.Rt.Heap.Release(&argv[i])
		}
	}()

	return v.runProtected(classCell, ep.Method, argv)
}

// runProtected dispatches selector on receiver under core.RunThreadBody,
// which turns an uncaught raise or a propagating *Fatal into the single
// *Fatal return value the thread boundary contract promises (spec §7
// "an uncaught exception ... is reported the same way as any other fatal
// condition"). A non-nil result is logged with a backtrace and reported
// to the caller as a non-zero exit code.
func (v *VM) runProtected(receiver core.Cell, selector string, argv []core.Cell) (exitCode int, err error) {
	dest := core.Nil()
	var dispatchErr error
	fatal := core.RunThreadBody(v.Main, func() {
		dispatchErr = v.Rt.Dispatch(v.Main, receiver, selector, argv, &dest)
	})
	if fatal != nil {
		obs.ThreadFatal(v.Main.ID, v.Main.Name, fatal.Error(), v.Backtrace(v.Main))
		return 1, fatal
	}
	if dispatchErr != nil {
		return 1, dispatchErr
	}
	if dest.Kind == core.KInt {
		return int(dest.I), nil
	}
	return 0, nil
}

// Backtrace walks th's active call frames from the innermost outward, naming the
// class each frame is dispatching through (spec §7 "print a backtrace"),
// for embedders that want the programmatic form rather than the
// auto-printed one (see also System.backtrace in internal/builtin).
func (v *VM) Backtrace(th *core.Thread) []string {
	var frames []string
	for cf := th.Frames.CurrentCall(); cf != nil; cf = cf.Prev {
		if cf.Class != nil {
			frames = append(frames, core.ClassName(cf.Class))
		}
	}
	return frames
}
