package vm

import "oovm-go/internal/core"

// -- class creation and method tables (spec §6 "Class creation,
// class-method and instance-method addition/removal") --

// DefineClass creates class name as a subclass of parent (nil for a
// direct subclass of Object) and binds it in ns. A module's "$init"
// entry point is the typical caller, mirroring builtin.Bootstrap's own
// class construction but for classes defined outside the built-in set.
func (v *VM) DefineClass(th *core.Thread, ns *core.Object, name string, parent *core.Object) (*core.Object, error) {
	if parent == nil {
		parent = v.Reg.Class("Object")
	}
	cd := core.NewClassData(name, parent, nil, nil)
	class := v.Rt.Heap.NewObject(v.Rt.Constant("Metaclass"), cd, 0)
	if err := v.Rt.Heap.NamespaceDefine(th, ns, name, core.FromObject(class)); err != nil {
		return nil, err
	}
	return class, nil
}

// AddInstanceMethod installs a native method on class's instance-method
// table.
func (v *VM) AddInstanceMethod(class *core.Object, selector string, fn func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell)) {
	classPayload(class).AddInstanceMethod(selector, core.FromCode(&core.CodeMethod{Name: selector, HomeClass: class, Fn: fn}))
}

// AddClassMethod installs a native method on class's class-method table.
func (v *VM) AddClassMethod(class *core.Object, selector string, fn func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell)) {
	classPayload(class).AddClassMethod(selector, core.FromCode(&core.CodeMethod{Name: selector, HomeClass: class, Fn: fn}))
}

// AddByteMethod installs a compiled byte-code method, for modules linked
// with pre-assembled method bodies rather than native Go callbacks.
func (v *VM) AddByteMethod(class *core.Object, selector string, m *core.ByteMethod) {
	m.HomeClass = class
	classPayload(class).AddInstanceMethod(selector, core.FromByte(m))
}

// RemoveInstanceMethod and RemoveClassMethod delete a selector (spec §6
// "... addition/removal").
func (v *VM) RemoveInstanceMethod(class *core.Object, selector string) {
	classPayload(class).RemoveInstanceMethod(selector)
}

func (v *VM) RemoveClassMethod(class *core.Object, selector string) {
	classPayload(class).RemoveClassMethod(selector)
}

func classPayload(o *core.Object) *core.ClassData {
	cd, _ := o.Payload.(*core.ClassData)
	return cd
}

// -- exceptions (spec §6 "Exception raise for each taxonomy kind") --

// Raise constructs and raises an Exception of typ with msg and an
// optional payload (spec §4.H taxonomy types in internal/core/errors.go).
// Like Thread.Raise, it never returns.
func (v *VM) Raise(th *core.Thread, typ, msg string, payload core.Cell) {
	v.Rt.RaiseType(th, typ, msg, payload)
}

// RaiseInvalidValue, RaiseNoMethod, ... give each taxonomy member its own
// typed helper so module authors don't have to import the type-string
// constants directly.
func (v *VM) RaiseInvalidValue(th *core.Thread, msg string) { v.Raise(th, core.TypeInvalidValue, msg, core.Nil()) }
func (v *VM) RaiseNoMethod(th *core.Thread, msg string)     { v.Raise(th, core.TypeNoMethod, msg, core.Nil()) }
func (v *VM) RaiseNumArgs(th *core.Thread, msg string)      { v.Raise(th, core.TypeNumArgs, msg, core.Nil()) }
func (v *VM) RaiseNoAttribute(th *core.Thread, msg string)  { v.Raise(th, core.TypeNoAttribute, msg, core.Nil()) }
func (v *VM) RaiseIndexRange(th *core.Thread, msg string)   { v.Raise(th, core.TypeIndexRange, msg, core.Nil()) }
func (v *VM) RaiseKeyNotFound(th *core.Thread, msg string)  { v.Raise(th, core.TypeKeyNotFound, msg, core.Nil()) }
func (v *VM) RaiseModuleLoad(th *core.Thread, msg string)   { v.Raise(th, core.TypeModuleLoad, msg, core.Nil()) }
func (v *VM) RaiseNoVariable(th *core.Thread, msg string)   { v.Raise(th, core.TypeNoVariable, msg, core.Nil()) }

// ArgCheck validates a method's declared arity (spec §6 "Argument-count
// checks for methods"). Callers typically do:
//
//	if err := vm.ArgCheck(argc, 1, 1); err != nil { ... raise and return }
func ArgCheck(argc, min, max int) error { return core.CheckArgs(argc, min, max) }

// -- value constructors (spec §6 "Value constructors for every built-in
// kind") --

func (v *VM) NewBool(b bool) core.Cell   { return core.FromBool(b) }
func (v *VM) NewInt(i int64) core.Cell   { return core.FromInt(i) }
func (v *VM) NewFloat(f float64) core.Cell { return core.FromFloat(f) }
func (v *VM) Nil() core.Cell             { return core.Nil() }

func (v *VM) NewString(s string) (*core.Object, error) {
	return v.Rt.Heap.NewString(v.Rt.Heap.StringClass, s)
}

func (v *VM) NewPair(first, second core.Cell) *core.Object {
	return v.Rt.Heap.NewPair(v.Reg.Class("Pair"), first, second)
}

func (v *VM) NewArray(elems []core.Cell, constant bool) *core.Object {
	class := "Array"
	if constant {
		class = "constant-Array"
	}
	return v.Rt.Heap.NewArray(v.Reg.Class(class), elems, constant)
}

func (v *VM) NewDict() *core.Object {
	return v.Rt.Heap.NewDict(v.Reg.Class("Dictionary"), v.Reg.Class("List"), v.Reg.Class("Pair"), false)
}

func (v *VM) NewInstance(class *core.Object, fields *core.Object) *core.Object {
	return v.Rt.Heap.NewInstance(v.Reg.Class("User"), class, fields)
}

func (v *VM) NewException(typ, msg string, payload core.Cell) *core.Object {
	return v.Rt.Heap.NewException(v.Reg.Class("Exception"), typ, msg, payload)
}

// -- environment lookup/store (spec §6 "Environment lookup/store") --

// Lookup resolves name in th's currently active namespace chain, falling
// back to the root namespace (spec §4.J "Environment... reads and writes
// the currently active namespace chain").
func (v *VM) Lookup(th *core.Thread, name string) (core.Cell, bool) {
	if ns := th.Frames.CurrentNamespace(); ns != nil {
		if c, ok := v.Rt.Heap.NamespaceLookup(ns, name); ok {
			return c, true
		}
	}
	if root := v.Rt.MainNamespace(); root != nil {
		return v.Rt.Heap.NamespaceLookup(root, name)
	}
	return core.Cell{}, false
}

// Store binds name to value in th's innermost active namespace, or the
// root namespace outside of any module/method context.
func (v *VM) Store(th *core.Thread, name string, value core.Cell) error {
	ns := th.Frames.CurrentNamespace()
	if ns == nil {
		ns = v.Rt.MainNamespace()
	}
	return v.Rt.Heap.NamespaceDefine(th, ns, name, value)
}

// -- frame operations (spec §6 "push exception frame ... pop exception
// frames by count") --

// Protect runs fn under a newly pushed exception frame, landing any raise
// fn produces in dest rather than propagating it (spec §4.G
// push-catch/raise/pop-catch; see core.Thread.Protect). Go's panic/
// recover plays the role the original's setjmp/longjmp jump buffer did —
// REDESIGN FLAGS directs every catch point through this single
// mechanism rather than exposing a raw jump buffer to embedders.
func (v *VM) Protect(th *core.Thread, dest *core.Cell, fn func()) error {
	return th.Protect(dest, 0, fn)
}

// PopExceptions discards n exception frames (spec §6 "pop exception
// frames by count").
func (v *VM) PopExceptions(th *core.Thread, n int) error {
	return th.Frames.PopExceptions(n)
}
