package core

import "fmt"

// ArrayData is a sized cell vector; Constant marks the frozen variant
// whose write methods are removed at the class level (spec §3.3
// "Array / constant-array").
type ArrayData struct {
	Elems    []Cell
	Constant bool
}

func (a *ArrayData) KindName() string {
	if a.Constant {
		return "constant-array"
	}
	return "array"
}

func (a *ArrayData) Trace(visit func(*Cell)) {
	for i := range a.Elems {
		visit(&a.Elems[i])
	}
}

func (a *ArrayData) Finalize() {}

// NewArray constructs an array object owning copies of elems.
func (h *Heap) NewArray(class *Object, elems []Cell, constant bool) *Object {
	cp := make([]Cell, len(elems))
	copy(cp, elems)
	for _, c := range cp {
		h.retainCell(c)
	}
	return h.NewObject(class, &ArrayData{Elems: cp, Constant: constant}, len(cp)*8)
}

func arrayData(o *Object) *ArrayData {
	if o == nil {
		return nil
	}
	ad, _ := o.Payload.(*ArrayData)
	return ad
}

// ArrayElems returns the backing element slice, for copy/deep-copy and
// for hashing an array's contents (spec §4.D "hash"). Callers must not
// retain the slice beyond the array's lifetime or mutate it in place.
func ArrayElems(o *Object) []Cell {
	ad := arrayData(o)
	if ad == nil {
		return nil
	}
	return ad.Elems
}

// ArrayConstant reports whether o is the frozen (constant-array) variant.
func ArrayConstant(o *Object) bool {
	ad := arrayData(o)
	return ad != nil && ad.Constant
}

// ArrayLen returns the element count, or -1 if o is not an array.
func ArrayLen(o *Object) int {
	ad := arrayData(o)
	if ad == nil {
		return -1
	}
	return len(ad.Elems)
}

// ArrayGet returns element i (spec §4.D "element access").
func ArrayGet(o *Object, i int) (Cell, error) {
	ad := arrayData(o)
	if ad == nil || i < 0 || i >= len(ad.Elems) {
		return Cell{}, fmt.Errorf("%w: array index %d out of range", ErrIndexRange, i)
	}
	return ad.Elems[i], nil
}

// ArraySet replaces element i; rejected for the constant variant.
func (h *Heap) ArraySet(o *Object, i int, v Cell) error {
	ad := arrayData(o)
	if ad == nil || i < 0 || i >= len(ad.Elems) {
		return fmt.Errorf("%w: array index %d out of range", ErrIndexRange, i)
	}
	if ad.Constant {
		return fmt.Errorf("%w: cannot modify constant array", ErrModifyConstant)
	}
	h.retainCell(v)
	old := ad.Elems[i]
	ad.Elems[i] = v
	h.releaseCell(old)
	return nil
}

// ArrayEqual compares size and element-wise equality (spec testable
// property via §4.D "Array equality").
func ArrayEqual(th *Thread, a, b *Object, equal func(th *Thread, x, y Cell) bool) bool {
	ad, bd := arrayData(a), arrayData(b)
	if ad == nil || bd == nil || len(ad.Elems) != len(bd.Elems) {
		return false
	}
	for i := range ad.Elems {
		if !equal(th, ad.Elems[i], bd.Elems[i]) {
			return false
		}
	}
	return true
}
