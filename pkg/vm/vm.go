// Package vm is the embeddable public API (spec §6 "Public library
// surface"): initialize the runtime, run an entry method by name or by a
// statically-linked init function, create threads, push/pop frames,
// create classes and methods, raise exceptions, construct values, check
// argument counts, and look up/store environment bindings.
package vm

import (
	"oovm-go/internal/arena"
	"oovm-go/internal/builtin"
	"oovm-go/internal/core"
	"oovm-go/internal/interp"
	"oovm-go/internal/modload"
	"oovm-go/internal/obs"
)

// Options configures Init (spec §6 "Initialize the VM (with optional
// stack and frame-stack sizes)").
type Options struct {
	// ValueStackSize sizes the main thread's value stack, in cells.
	// Zero uses core.DefaultValueStackSize.
	ValueStackSize int

	// ModulePath lists the directories searched for dynamically linked
	// modules (spec §6 "Configuration... one environment variable names
	// the list of directories"). Callers typically fill this from
	// OOVM_MODULE_PATH via filepath.SplitList; Init does not read the
	// environment itself so embedders can override it freely.
	ModulePath []string
}

// VM bundles the runtime, heap, registry, and module loader that
// together make up one VM instance. Multiple VMs may coexist in one
// process, each with its own arena and thread set.
type VM struct {
	Rt     *core.Runtime
	Reg    *builtin.Registry
	Loader *modload.Loader
	Main   *core.Thread
}

// Init constructs a fresh VM: arena, heap, built-in class hierarchy,
// byte-code interpreter, and module loader, and returns a handle to the
// main thread (spec §6 "returns a handle to the main thread").
func Init(opts Options) (*VM, error) {
	a := arena.New()
	h := core.NewHeap(a)
	rt := core.NewRuntime(h)

	interp.Install(rt)

	th, reg, err := builtin.Bootstrap(rt)
	if err != nil {
		return nil, err
	}
	if opts.ValueStackSize > 0 {
		th.Frames = core.NewFrameStack(opts.ValueStackSize)
	}

	loader := modload.NewLoader(rt, reg, opts.ModulePath)
	loader.OnLoaded = obs.ModuleLoaded
	loader.OnLoadFailed = obs.ModuleLoadFailed
	loader.OnUnloaded = obs.ModuleUnloaded
	builtin.InstallModuleLoader(reg, loader)

	h.OnCollect = func(allocated, freed, live int64) {
		obs.GCCycle(allocated, freed, live)
	}
	obs.Bootstrap(len(builtinClassNames), th.ID)
	obs.ThreadStart(th.ID, th.Name)

	return &VM{Rt: rt, Reg: reg, Loader: loader, Main: th}, nil
}

// builtinClassNames mirrors internal/builtin's bootstrap order, used here
// only to report a class count to obs.Bootstrap.
var builtinClassNames = []string{
	"Object", "Boolean", "Integer", "Float", "Method", "Codemethod",
	"String", "Pair", "List", "Array", "constant-Array",
	"ByteArray", "constant-ByteArray", "Slice", "constant-Slice",
	"Set", "constant-Set", "Dictionary", "constant-Dictionary",
	"Namespace", "Module", "User", "File", "Exception",
	"System", "Environment",
}

// NewThread creates an additional VM thread (spec §6 "Thread create").
func (v *VM) NewThread(name string) *core.Thread {
	th := v.Rt.NewThread(name, false)
	obs.ThreadStart(th.ID, th.Name)
	return th
}

// EndThread unregisters th from GC root-scanning (spec §4.I). Callers
// must have already released or transferred ownership of any value-stack
// contents.
func (v *VM) EndThread(th *core.Thread) {
	v.Rt.RemoveThread(th)
	obs.ThreadExit(th.ID, th.Name)
}
