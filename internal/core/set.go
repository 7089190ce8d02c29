package core

// SetData is a hash table of elements; element identity is via the
// element's own "equal" method (spec §3.3 "Set / constant-set").
type SetData struct {
	t         *hashtable
	listClass *Object
	Constant  bool
}

func NewSetData(listClass *Object, constant bool) *SetData {
	return &SetData{t: newHashtable(), listClass: listClass, Constant: constant}
}

func (s *SetData) KindName() string {
	if s.Constant {
		return "constant-set"
	}
	return "set"
}

func (s *SetData) Trace(visit func(*Cell)) {
	for i := range s.t.buckets {
		visit(&s.t.buckets[i])
	}
}

func (s *SetData) Finalize() {}

func (h *Heap) NewSet(class, listClass *Object, constant bool) *Object {
	return h.NewObject(class, NewSetData(listClass, constant), 0)
}

func setData(o *Object) *SetData {
	if o == nil {
		return nil
	}
	sd, _ := o.Payload.(*SetData)
	return sd
}

// SetContains reports whether elem (by equalFn) is a member.
func (h *Heap) SetContains(th *Thread, o *Object, elem Cell, hashFn HashFn, equalFn EqualFn) bool {
	sd := setData(o)
	if sd == nil {
		return false
	}
	hv := hashFn(th, elem)
	idx := bucketIndex(hv, len(sd.t.buckets))
	for cur := sd.t.buckets[idx]; !cur.IsNil(); {
		ld := listData(cur.Obj)
		if ld == nil {
			break
		}
		if equalFn(th, ld.Head, elem) {
			return true
		}
		cur = ld.Tail
	}
	return false
}

// SetAdd inserts elem if no equal element is already present.
func (h *Heap) SetAdd(th *Thread, o *Object, elem Cell, hashFn HashFn, equalFn EqualFn) error {
	sd := setData(o)
	if sd == nil {
		return ErrInvalidValue
	}
	if sd.Constant {
		return ErrModifyConstant
	}
	if h.SetContains(th, o, elem, hashFn, equalFn) {
		return nil
	}
	hv := hashFn(th, elem)
	idx := bucketIndex(hv, len(sd.t.buckets))
	h.retainCell(elem)
	node := h.NewObject(sd.listClass, &ListData{Head: elem, Tail: sd.t.buckets[idx]}, 0)
	h.retainCell(sd.t.buckets[idx])
	sd.t.buckets[idx] = FromObject(node)
	sd.t.count++
	if sd.t.count > len(sd.t.buckets)*3/4 {
		sd.t.buckets = growBuckets(sd.t.buckets, func(e Cell) uint32 { return hashFn(th, e) })
	}
	return nil
}

// SetConstant reports whether o is the frozen (constant-set) variant.
func SetConstant(o *Object) bool {
	sd := setData(o)
	return sd != nil && sd.Constant
}

// SetLen returns the element count.
func SetLen(o *Object) int {
	sd := setData(o)
	if sd == nil {
		return 0
	}
	return sd.t.count
}

// SetElements returns every member element, in bucket order, for copy/
// deep-copy and for rebuilding a set under a different hash function
// (spec §4.D "hash").
func SetElements(o *Object) []Cell {
	sd := setData(o)
	if sd == nil {
		return nil
	}
	elems := make([]Cell, 0, sd.t.count)
	for _, head := range sd.t.buckets {
		for cur := head; !cur.IsNil(); {
			ld := listData(cur.Obj)
			if ld == nil {
				break
			}
			elems = append(elems, ld.Head)
			cur = ld.Tail
		}
	}
	return elems
}
