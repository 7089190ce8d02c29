package core

// PairData holds two owned cells; content is immutable after creation
// (spec §3.3 "Pair").
type PairData struct {
	First, Second Cell
}

func (p *PairData) KindName() string { return "pair" }

func (p *PairData) Trace(visit func(*Cell)) {
	visit(&p.First)
	visit(&p.Second)
}

func (p *PairData) Finalize() {}

// retainCell bumps the refcount of c's object reference, if any. Kind
// constructors call this for every Cell they embed, since the new object
// becomes an owner of that reference (spec §3.4).
func (h *Heap) retainCell(c Cell) {
	if c.Kind == KObject && c.Obj != nil {
		h.Retain(c.Obj)
	}
}

// NewPair constructs a Pair object owning copies of first and second.
func (h *Heap) NewPair(class *Object, first, second Cell) *Object {
	h.retainCell(first)
	h.retainCell(second)
	return h.NewObject(class, &PairData{First: first, Second: second}, 0)
}

func pairData(o *Object) *PairData {
	if o == nil {
		return nil
	}
	pd, _ := o.Payload.(*PairData)
	return pd
}

// PairParts returns o's First and Second cells, or ok=false if o is not a
// Pair.
func PairParts(o *Object) (first, second Cell, ok bool) {
	pd := pairData(o)
	if pd == nil {
		return Cell{}, Cell{}, false
	}
	return pd.First, pd.Second, true
}
