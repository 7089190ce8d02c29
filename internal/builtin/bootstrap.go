// Package builtin bootstraps the built-in class hierarchy and installs
// the primitive method table (spec §4.J). Bootstrap order matters: the
// metaclass must exist before any class object can be created (every
// class is itself an instance of the metaclass), and Object must exist
// before any other class can name it as a parent.
package builtin

import "oovm-go/internal/core"

// classNames lists the base classes in bootstrap order (spec §4.J).
// Metaclass is handled separately since it is an instance of itself.
var classNames = []string{
	"Object", "Boolean", "Integer", "Float", "Method", "Codemethod",
	"String", "Pair", "List", "Array", "constant-Array",
	"ByteArray", "constant-ByteArray", "Slice", "constant-Slice",
	"Set", "constant-Set", "Dictionary", "constant-Dictionary",
	"Namespace", "Module", "User", "File", "Exception",
	"System", "Environment",
}

// reparent overrides the flat "every class descends from Object"
// default with the handful of built-in subclass relationships the spec
// calls out by name (the constant variants of the container kinds).
var reparent = map[string]string{
	"constant-Array":      "Array",
	"constant-ByteArray":  "ByteArray",
	"constant-Slice":      "Slice",
	"constant-Set":        "Set",
	"constant-Dictionary": "Dictionary",
}

// Registry holds every built-in class object by name so the per-class
// method-installer files (object.go, scalar.go, ...) can look each other
// up without threading a dozen *core.Object parameters around.
type Registry struct {
	rt      *core.Runtime
	classes map[string]*core.Object
}

// Bootstrap constructs the full built-in class hierarchy, installs
// methods, creates the root "main" namespace with every class bound into
// it, and returns the main thread (spec §4.J, §4.I "the first thread
// created ... is the main thread").
//
// Class-variable dictionaries are left nil at bootstrap: building a real
// Dictionary object requires the Dictionary/List/Pair classes to already
// exist, which would make every class's construction depend on a class
// created later in this same list. internal/core's ClassData.ClassVars
// is nil-safe; class-variable storage is lazily created (see
// classVarsOf in object.go) the first time a class actually needs one.
func Bootstrap(rt *core.Runtime) (*core.Thread, *Registry, error) {
	reg := &Registry{rt: rt, classes: make(map[string]*core.Object)}

	// The metaclass is an instance of itself (spec §4.J "create the
	// metaclass as an instance of itself"). NewObject is built through
	// normal GC-list linking, so the self-reference is patched in after
	// construction rather than passed as the (not-yet-existing) class
	// argument.
	metaclass := rt.Heap.NewObject(nil, core.NewClassData("Metaclass", nil, nil, nil), 0)
	metaclass.Class = metaclass
	rt.SetConstant("Metaclass", metaclass)
	reg.classes["Metaclass"] = metaclass

	var object *core.Object
	for _, name := range classNames {
		parent := object
		cd := core.NewClassData(name, parent, nil, nil)
		obj := rt.Heap.NewObject(metaclass, cd, 0)
		reg.classes[name] = obj
		rt.SetConstant(name, obj)
		if name == "Object" {
			object = obj
		}
	}
	for child, parent := range reparent {
		classData(reg.classes[child]).Parent = reg.classes[parent]
	}

	rt.Heap.StringClass = reg.classes["String"]

	th := rt.NewThread("main", true)

	rootDict := rt.Heap.NewDict(reg.classes["Dictionary"], reg.classes["List"], reg.classes["Pair"], false)
	root := rt.Heap.NewObject(reg.classes["Namespace"], core.NewNamespaceData("main", nil, rootDict), 0)
	rt.SetMainNamespace(root)

	for name, obj := range reg.classes {
		if err := rt.Heap.NamespaceDefine(th, root, name, core.FromObject(obj)); err != nil {
			return nil, nil, err
		}
	}

	installObjectMethods(reg)
	installScalarMethods(reg)
	installStringMethods(reg)
	installContainerMethods(reg)
	installNamespaceMethods(reg)
	installUserMethods(reg)
	installFileMethods(reg, th)
	installExceptionMethods(reg)
	installSystemMethods(reg)
	installEnvironmentMethods(reg)

	return th, reg, nil
}

func classData(o *core.Object) *core.ClassData {
	cd, _ := o.Payload.(*core.ClassData)
	return cd
}

func (r *Registry) class(name string) *core.Object { return r.classes[name] }

// Class exposes the same lookup for other packages (internal/modload's
// ClassLookup) that need to find built-in classes like Module and
// Namespace without duplicating the bootstrap table.
func (r *Registry) Class(name string) *core.Object { return r.classes[name] }

// addInstanceMethod installs a native code-method as selector on
// className's instance-method table (spec §4.J "install methods from the
// built-in method table").
func (r *Registry) addInstanceMethod(className, selector string, fn func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell)) {
	cls := r.classes[className]
	classData(cls).AddInstanceMethod(selector, core.FromCode(&core.CodeMethod{Name: selector, HomeClass: cls, Fn: fn}))
}

// addClassMethod installs a native code-method as selector on
// className's class-method table.
func (r *Registry) addClassMethod(className, selector string, fn func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell)) {
	cls := r.classes[className]
	classData(cls).AddClassMethod(selector, core.FromCode(&core.CodeMethod{Name: selector, HomeClass: cls, Fn: fn}))
}
