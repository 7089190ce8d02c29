package core

// ListData is a single cons cell: a head value and an owned tail
// reference. The empty list has no ListData at all — it is represented
// by the nil cell (spec §3.3: "the empty list is the null object
// reference"), so every list operation must treat Cell.IsNil() as the
// empty-list base case rather than dereferencing a sentinel object.
type ListData struct {
	Head Cell
	Tail Cell // KNil (empty) or KObject wrapping another ListData
}

func (l *ListData) KindName() string { return "list" }

func (l *ListData) Trace(visit func(*Cell)) {
	visit(&l.Head)
	visit(&l.Tail)
}

func (l *ListData) Finalize() {}

func listData(o *Object) *ListData {
	if o == nil {
		return nil
	}
	ld, _ := o.Payload.(*ListData)
	return ld
}

// Cons prepends head onto tail (spec §4.D: "new elements prepended").
func (h *Heap) Cons(listClass *Object, head, tail Cell) Cell {
	h.retainCell(head)
	h.retainCell(tail)
	o := h.NewObject(listClass, &ListData{Head: head, Tail: tail}, 0)
	return FromObject(o)
}

// ListReverse builds a new list with elements in reverse order (spec
// testable property §8.7: reverse is involutive).
func (h *Heap) ListReverse(listClass *Object, l Cell) Cell {
	result := Nil()
	for cur := l; !cur.IsNil(); {
		ld := listData(cur.Obj)
		if ld == nil {
			break
		}
		result = h.Cons(listClass, ld.Head, result)
		cur = ld.Tail
	}
	return result
}

// ListConcat copies a's spine and chains it onto b, which is shared (not
// copied) — spec §4.D: "concat copies the first operand, shares the
// second." Associativity (spec §8.8) follows because every concat is
// defined purely structurally, independent of how its arguments were
// built.
func (h *Heap) ListConcat(listClass *Object, a, b Cell) Cell {
	if a.IsNil() {
		h.retainCell(b)
		return b
	}
	elems := make([]Cell, 0, 8)
	for cur := a; !cur.IsNil(); {
		ld := listData(cur.Obj)
		if ld == nil {
			break
		}
		elems = append(elems, ld.Head)
		cur = ld.Tail
	}
	result := b
	for i := len(elems) - 1; i >= 0; i-- {
		result = h.Cons(listClass, elems[i], result)
	}
	return result
}

// ListHeadTail returns l's head and tail when l is a non-empty list cons
// cell. ok is false for the empty list (nil cell) or a non-list cell.
func ListHeadTail(l Cell) (head, tail Cell, ok bool) {
	if l.Kind != KObject || l.Obj == nil {
		return Cell{}, Cell{}, false
	}
	ld := listData(l.Obj)
	if ld == nil {
		return Cell{}, Cell{}, false
	}
	return ld.Head, ld.Tail, true
}

// ListMap builds a fresh list with the same spine length as l, each head
// replaced by fn's result (spec §4.D "deep-copy (recursive via method
// call)"). Unlike Cons, ListMap takes ownership of whatever fn returns
// instead of retaining a borrowed copy — fn must hand back a reference
// it already owns (e.g. a freshly built deep copy, or a caller-retained
// copy of the original for a shallow map).
func (h *Heap) ListMap(listClass *Object, l Cell, fn func(Cell) (Cell, error)) (Cell, error) {
	elems := make([]Cell, 0, 8)
	for cur := l; !cur.IsNil(); {
		ld := listData(cur.Obj)
		if ld == nil {
			break
		}
		v, err := fn(ld.Head)
		if err != nil {
			for _, e := range elems {
				h.releaseCell(e)
			}
			return Cell{}, err
		}
		elems = append(elems, v)
		cur = ld.Tail
	}
	result := Nil()
	for i := len(elems) - 1; i >= 0; i-- {
		node := h.NewObject(listClass, &ListData{Head: elems[i], Tail: result}, 0)
		result = FromObject(node)
	}
	return result, nil
}

// ListLen counts the spine length.
func ListLen(l Cell) int {
	n := 0
	for cur := l; !cur.IsNil(); {
		ld := listData(cur.Obj)
		if ld == nil {
			break
		}
		n++
		cur = ld.Tail
	}
	return n
}
