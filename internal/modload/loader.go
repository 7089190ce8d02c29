// Package modload implements the dynamic module loader (spec §4.K):
// searching Module.path for a library, fingerprinting it by SHA-1,
// linking it with the standard dynamic linker (stdlib plugin), and
// running its entry symbol under a fresh Module namespace frame.
package modload

import (
	"crypto/sha1"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"plugin"
	"sync"

	"oovm-go/internal/core"
)

// LibPrefix and LibSuffix give the canonical on-disk name for module
// "foo": libfoo.so (spec §4.K "each candidate path is combined with the
// canonical library prefix and suffix"), mirroring the *nix shared-object
// convention the teacher's plugin package itself builds against.
const (
	LibPrefix = "lib"
	LibSuffix = ".so"
)

// ModuleInit is the signature of a module's "<name>$init" native entry
// symbol (spec §6 "Module ABI... An init function receives (thread,
// destination cell, argc, argv)").
type ModuleInit func(th *core.Thread, dest *core.Cell, argc int, argv []core.Cell) error

// ModuleFini is the signature of the optional "<name>$fini" symbol run on
// unload (spec §4.K "Unloading a module invokes an optional fini symbol").
type ModuleFini func()

// library is modload's side-table entry for one dynamically-linked
// module, keyed by its resolved file path. core.ModuleData.Library holds
// only an opaque "any" (core must not import modload, the same
// dependency-direction rule as Arena.Collect and Heap.Roots); this table
// is where the *plugin.Plugin and fini hook actually live.
type library struct {
	plugin *plugin.Plugin
	fini   ModuleFini
}

// Loader resolves, links, and tracks loaded modules for one Runtime
// (spec §4.K "Module.loaded maps module name to module instance").
type Loader struct {
	rt  *core.Runtime
	reg ClassLookup

	// mu is the module-loader's own recursive lock (spec §5 "The module
	// loader has its own recursive lock so that init hooks may
	// transitively load further modules"), keyed by thread identity the
	// same way internal/core's objLock is: a thread already holding it
	// may re-enter from a nested New call made by the init hook it is
	// running, rather than deadlocking against itself.
	mu      sync.Mutex
	cond    *sync.Cond
	owner   *core.Thread
	depth   int

	path      []string            // directories searched, in order (Module.path)
	libraries map[string]*library // resolved path -> linked library
	loaded    map[string]*core.Object // module name -> module instance

	// OnLoaded, OnLoadFailed, and OnUnloaded are optional observability
	// hooks, left nil by default. pkg/vm wires them to internal/obs; the
	// same seam pattern as core.Heap.OnCollect keeps modload from
	// importing a logging package directly.
	OnLoaded     func(name, path string, cloned bool)
	OnLoadFailed func(name string, err error)
	OnUnloaded   func(name string)
}

// ClassLookup is the minimal registry surface the loader needs to find
// the Module and Namespace classes, satisfied by *builtin.Registry.
type ClassLookup interface {
	Class(name string) *core.Object
}

// NewLoader creates a loader over rt's heap, searching dirs in order for
// candidate libraries (spec §6 "one environment variable names the list
// of directories to search for modules").
func NewLoader(rt *core.Runtime, reg ClassLookup, dirs []string) *Loader {
	return &Loader{
		rt:        rt,
		reg:       reg,
		path:      dirs,
		libraries: make(map[string]*library),
		loaded:    make(map[string]*core.Object),
	}
}

// Path returns the current search path (backing Module.path).
func (l *Loader) Path() []string { return l.path }

// SetPath replaces the search path.
func (l *Loader) SetPath(dirs []string) { l.path = append([]string(nil), dirs...) }

// lock acquires the loader's recursive lock on behalf of th.
func (l *Loader) lock(th *core.Thread) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cond == nil {
		l.cond = sync.NewCond(&l.mu)
	}
	for l.owner != nil && l.owner != th {
		l.cond.Wait()
	}
	l.owner = th
	l.depth++
}

func (l *Loader) unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.depth--
	if l.depth == 0 {
		l.owner = nil
		if l.cond != nil {
			l.cond.Signal()
		}
	}
}

// find searches Path for name's canonical library file, returning the
// resolved path or false if nothing matched (spec §4.K step 2).
func (l *Loader) find(name string) (string, bool) {
	fname := LibPrefix + name + LibSuffix
	for _, dir := range l.path {
		candidate := filepath.Join(dir, fname)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// fingerprint SHA-1-hashes the file at path (spec §4.K "fingerprinted by
// SHA-1").
func fingerprint(path string) ([20]byte, error) {
	var fp [20]byte
	f, err := os.Open(path)
	if err != nil {
		return fp, err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return fp, err
	}
	copy(fp[:], h.Sum(nil))
	return fp, nil
}

// Load implements Module's "new" class method (spec §4.K): resolve name
// under parent namespace parentNS, clone if already loaded, otherwise
// link and run its entry symbol. argv is passed through to the init
// symbol verbatim (the byte-code method's own call-frame argument window
// in the entry-symbol case).
func (l *Loader) Load(th *core.Thread, name string, parentNS *core.Object, argv []core.Cell) (*core.Object, error) {
	l.lock(th)
	defer l.unlock()

	path, ok := l.find(name)
	if !ok {
		err := fmt.Errorf("%w: module not found: %s", core.ErrModuleLoad, name)
		l.reportLoadFailed(name, err)
		return nil, err
	}
	fp, err := fingerprint(path)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", core.ErrModuleLoad, err)
		l.reportLoadFailed(name, wrapped)
		return nil, wrapped
	}

	if existing, ok := l.loaded[name]; ok {
		md := core.ModuleOf(existing)
		if md.Fingerprint != fp {
			err := fmt.Errorf("%w: SHA1 conflict for module %s", core.ErrModuleLoad, name)
			l.reportLoadFailed(name, err)
			return nil, err
		}
		// clone: shares the backing namespace/dictionary, bumps the
		// native reference count (spec §4.K step 3).
		md.IncRef()
		clone := l.rt.Heap.NewModule(l.reg.Class("Module"), md.Namespace, md.Filename, fp, md.Library)
		l.loaded[name] = clone
		if l.OnLoaded != nil {
			l.OnLoaded(name, path, true)
		}
		return clone, nil
	}

	p, err := plugin.Open(path)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", core.ErrModuleLoad, err)
		l.reportLoadFailed(name, wrapped)
		return nil, wrapped
	}

	ns := l.rt.Heap.NewObject(l.reg.Class("Namespace"),
		core.NewNamespaceData(name, parentNS, l.rt.Heap.NewDict(l.reg.Class("Dictionary"), l.reg.Class("List"), l.reg.Class("Pair"), false)), 0)

	lib := &library{plugin: p}
	if finiSym, err := p.Lookup(name + "$fini"); err == nil {
		if fn, ok := finiSym.(func()); ok {
			lib.fini = fn
		}
	}

	mod := l.rt.Heap.NewModule(l.reg.Class("Module"), ns, path, fp, name)
	l.libraries[path] = lib

	if err := l.runEntry(th, p, name, mod, ns, argv); err != nil {
		l.reportLoadFailed(name, err)
		return nil, err
	}

	l.loaded[name] = mod
	if l.OnLoaded != nil {
		l.OnLoaded(name, path, false)
	}
	return mod, nil
}

func (l *Loader) reportLoadFailed(name string, err error) {
	if l.OnLoadFailed != nil {
		l.OnLoadFailed(name, err)
	}
}

// runEntry resolves one of the two entry-symbol naming patterns (spec §6
// "look up an entry symbol by one of two naming patterns: byte-code
// method <name>$code or native init <name>$init") and runs it under a
// pushed namespace frame for the module.
func (l *Loader) runEntry(th *core.Thread, p *plugin.Plugin, name string, mod, ns *core.Object, argv []core.Cell) error {
	if _, err := th.Frames.PushNamespace(ns); err != nil {
		return err
	}
	defer th.Frames.PopNamespace()

	dest := core.Nil()

	if sym, err := p.Lookup(name + "$init"); err == nil {
		init, ok := sym.(ModuleInit)
		if !ok {
			return fmt.Errorf("%w: %s$init has the wrong signature", core.ErrModuleLoad, name)
		}
		return init(th, &dest, len(argv), argv)
	}

	if sym, err := p.Lookup(name + "$code"); err == nil {
		bm, ok := sym.(*core.ByteMethod)
		if !ok {
			return fmt.Errorf("%w: %s$code has the wrong signature", core.ErrModuleLoad, name)
		}
		if l.rt.RunByteMethod == nil {
			return fmt.Errorf("%w: no byte-code interpreter wired in", core.ErrModuleLoad)
		}
		return l.rt.RunByteMethod(th, bm, argv, &dest)
	}

	return fmt.Errorf("%w: no %s$init or %s$code symbol", core.ErrModuleLoad, name, name)
}

// Unload releases name's module: runs its fini hook (once the library's
// native reference count reaches zero) and drops it from Module.loaded
// (spec §4.K "Unloading a module invokes an optional fini symbol and then
// releases the library").
func (l *Loader) Unload(th *core.Thread, name string) error {
	l.lock(th)
	defer l.unlock()

	mod, ok := l.loaded[name]
	if !ok {
		return fmt.Errorf("%w: module not loaded: %s", core.ErrModuleLoad, name)
	}
	md := core.ModuleOf(mod)
	delete(l.loaded, name)

	if !md.DecRef() {
		return nil
	}
	lib := l.libraries[md.Filename]
	if lib != nil && lib.fini != nil {
		lib.fini()
	}
	delete(l.libraries, md.Filename)
	if l.OnUnloaded != nil {
		l.OnUnloaded(name)
	}
	return nil
}

// Loaded reports whether name currently has a live module instance.
func (l *Loader) Loaded(name string) (*core.Object, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.loaded[name]
	return m, ok
}
