package core

// NamespaceData is the payload of a namespace object (spec §3.3
// "Namespace": name, parent namespace (null for root), backing
// dictionary).
type NamespaceData struct {
	Name   string
	Parent *Object // enclosing namespace, nil for root
	Dict   *Object // backing Dictionary object
}

func NewNamespaceData(name string, parent, dict *Object) *NamespaceData {
	return &NamespaceData{Name: name, Parent: parent, Dict: dict}
}

func (n *NamespaceData) KindName() string { return "namespace" }

func (n *NamespaceData) Trace(visit func(*Cell)) {
	if n.Parent != nil {
		v := FromObject(n.Parent)
		visit(&v)
	}
	if n.Dict != nil {
		v := FromObject(n.Dict)
		visit(&v)
	}
}

func (n *NamespaceData) Finalize() {}

func namespaceData(o *Object) *NamespaceData {
	if o == nil {
		return nil
	}
	nd, _ := o.Payload.(*NamespaceData)
	return nd
}

// Lookup resolves name by searching this namespace then its parent chain,
// returning the bound cell and whether it was found.
func (h *Heap) NamespaceLookup(ns *Object, name string) (Cell, bool) {
	for n := ns; n != nil; n = namespaceData(n).Parent {
		nd := namespaceData(n)
		if nd == nil {
			break
		}
		if v, ok := h.DictGetString(nd.Dict, name); ok {
			return v, true
		}
	}
	return Cell{}, false
}

// Define binds name to value in ns's own dictionary (not a parent).
func (h *Heap) NamespaceDefine(th *Thread, ns *Object, name string, value Cell) error {
	nd := namespaceData(ns)
	return h.DictSetString(th, nd.Dict, name, value)
}

// NamespaceParent returns ns's enclosing namespace, or nil at the root.
func NamespaceParent(ns *Object) *Object {
	if nd := namespaceData(ns); nd != nil {
		return nd.Parent
	}
	return nil
}

// NamespaceName returns ns's declared name.
func NamespaceName(ns *Object) string {
	if nd := namespaceData(ns); nd != nil {
		return nd.Name
	}
	return ""
}
