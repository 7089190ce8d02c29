package core

// ModuleData is the payload of a loaded extension module (spec §3.3
// "Module"): a namespace plus the source filename, its SHA-1 fingerprint,
// and a native handle to the loaded library. Library is an opaque handle
// (internal/modload's *plugin.Plugin, type-erased here to keep core
// independent of the module loader).
type ModuleData struct {
	Namespace   *Object
	Filename    string
	Fingerprint [20]byte
	Library     any
	libRefCount int
}

func (m *ModuleData) KindName() string { return "module" }

func (m *ModuleData) Trace(visit func(*Cell)) {
	if m.Namespace != nil {
		v := FromObject(m.Namespace)
		visit(&v)
	}
}

func (m *ModuleData) Finalize() {}

func (h *Heap) NewModule(class, namespace *Object, filename string, fp [20]byte, lib any) *Object {
	return h.NewObject(class, &ModuleData{Namespace: namespace, Filename: filename, Fingerprint: fp, Library: lib, libRefCount: 1}, 0)
}

func ModuleOf(o *Object) *ModuleData {
	if o == nil {
		return nil
	}
	md, _ := o.Payload.(*ModuleData)
	return md
}

// IncRef / DecRef track clones sharing the same dynamically-linked
// library (spec §4.K step 3: "clone ... incrementing the library's native
// reference count"). DecRef reports whether this was the last reference.
func (m *ModuleData) IncRef() { m.libRefCount++ }
func (m *ModuleData) DecRef() bool {
	m.libRefCount--
	return m.libRefCount <= 0
}
