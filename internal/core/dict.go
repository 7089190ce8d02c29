package core

import "fmt"

// DictData is a hash table of (key, value) Pairs; lookup uses the key's
// "equal" method (spec §3.3 "Dictionary / constant-dictionary"). A key
// whose string form begins with '#' and is longer than 2 characters is
// "constant-named" and rejects updates (spec §4.D).
type DictData struct {
	t         *hashtable
	listClass *Object
	pairClass *Object
	Constant  bool
}

func NewDictData(listClass, pairClass *Object, constant bool) *DictData {
	return &DictData{t: newHashtable(), listClass: listClass, pairClass: pairClass, Constant: constant}
}

func (d *DictData) KindName() string {
	if d.Constant {
		return "constant-dictionary"
	}
	return "dictionary"
}

func (d *DictData) Trace(visit func(*Cell)) {
	for i := range d.t.buckets {
		visit(&d.t.buckets[i])
	}
}

func (d *DictData) Finalize() {}

func (h *Heap) NewDict(class, listClass, pairClass *Object, constant bool) *Object {
	return h.NewObject(class, NewDictData(listClass, pairClass, constant), 0)
}

func dictData(o *Object) *DictData {
	if o == nil {
		return nil
	}
	dd, _ := o.Payload.(*DictData)
	return dd
}

// isConstantKeyString reports whether a string key is constant-named:
// starts with '#' and is longer than 2 characters (spec §4.D).
func isConstantKeyString(s string) bool {
	return len(s) > 2 && s[0] == '#'
}

// DictGet looks up key by hashFn/equalFn, returning (value, true) if
// present.
func (h *Heap) DictGet(th *Thread, o *Object, key Cell, hashFn HashFn, equalFn EqualFn) (Cell, bool) {
	dd := dictData(o)
	if dd == nil {
		return Cell{}, false
	}
	hv := hashFn(th, key)
	idx := bucketIndex(hv, len(dd.t.buckets))
	for cur := dd.t.buckets[idx]; !cur.IsNil(); {
		ld := listData(cur.Obj)
		if ld == nil {
			break
		}
		pd := pairData(ld.Head.Obj)
		if pd != nil && equalFn(th, pd.First, key) {
			return pd.Second, true
		}
		cur = ld.Tail
	}
	return Cell{}, false
}

// DictSet inserts or replaces key => value. A reassigned key gets a fresh
// Pair allocated (spec §4.D: "any prior reference to that pair is
// unchanged — external holders observe the old value"); a constant-named
// key that already exists rejects the update with ErrModifyConstant.
func (h *Heap) DictSet(th *Thread, o *Object, key, value Cell, hashFn HashFn, equalFn EqualFn) error {
	dd := dictData(o)
	if dd == nil {
		return ErrInvalidValue
	}
	if dd.Constant {
		return fmt.Errorf("%w: dictionary is constant", ErrModifyConstant)
	}
	hv := hashFn(th, key)
	idx := bucketIndex(hv, len(dd.t.buckets))

	if key.Kind == KObject && key.Obj != nil {
		if sd, ok := key.Obj.Payload.(*StringData); ok && isConstantKeyString(sd.String()) {
			if _, exists := h.DictGet(th, o, key, hashFn, equalFn); exists {
				return fmt.Errorf("%w: key %q is constant", ErrModifyConstant, sd.String())
			}
		}
	}

	for cur := dd.t.buckets[idx]; !cur.IsNil(); {
		ld := listData(cur.Obj)
		if ld == nil {
			break
		}
		pd := pairData(ld.Head.Obj)
		if pd != nil && equalFn(th, pd.First, key) {
			newPair := h.NewPair(dd.pairClass, key, value)
			h.retainCell(FromObject(newPair))
			old := ld.Head
			ld.Head = FromObject(newPair)
			h.releaseCell(old)
			return nil
		}
		cur = ld.Tail
	}

	pair := h.NewPair(dd.pairClass, key, value)
	node := h.NewObject(dd.listClass, &ListData{Head: FromObject(pair), Tail: dd.t.buckets[idx]}, 0)
	h.retainCell(dd.t.buckets[idx])
	dd.t.buckets[idx] = FromObject(node)
	dd.t.count++
	if dd.t.count > len(dd.t.buckets)*3/4 {
		dd.t.buckets = growBuckets(dd.t.buckets, func(e Cell) uint32 {
			pd := pairData(e.Obj)
			return hashFn(th, pd.First)
		})
	}
	return nil
}

// DictConstant reports whether o is the frozen (constant-dictionary)
// variant.
func DictConstant(o *Object) bool {
	dd := dictData(o)
	return dd != nil && dd.Constant
}

// DictLen returns the key count.
func DictLen(o *Object) int {
	dd := dictData(o)
	if dd == nil {
		return 0
	}
	return dd.t.count
}

// DictEntries returns every (key, value) pair stored in o, in bucket
// order, for copy/deep-copy and for rebuilding a dictionary under a
// different hash function (spec §4.D "hash").
func DictEntries(o *Object) []Cell {
	dd := dictData(o)
	if dd == nil {
		return nil
	}
	pairs := make([]Cell, 0, dd.t.count)
	for _, head := range dd.t.buckets {
		for cur := head; !cur.IsNil(); {
			ld := listData(cur.Obj)
			if ld == nil {
				break
			}
			pairs = append(pairs, ld.Head)
			cur = ld.Tail
		}
	}
	return pairs
}

// -- String-keyed convenience wrappers, used by Namespace and by the
// built-in class bootstrap, which key purely by Go strings rather than
// full Cell-typed keys. They build a throwaway String cell using
// DefaultHash/DefaultEqual, since namespace/environment keys never need
// class-overridden equality.

func (h *Heap) DictGetString(o *Object, key string) (Cell, bool) {
	dd := dictData(o)
	if dd == nil {
		return Cell{}, false
	}
	hv := hashString(key)
	idx := bucketIndex(hv, len(dd.t.buckets))
	for cur := dd.t.buckets[idx]; !cur.IsNil(); {
		ld := listData(cur.Obj)
		if ld == nil {
			break
		}
		pd := pairData(ld.Head.Obj)
		if pd != nil && cellIsString(pd.First, key) {
			return pd.Second, true
		}
		cur = ld.Tail
	}
	return Cell{}, false
}

func (h *Heap) DictSetString(th *Thread, o *Object, key string, value Cell) error {
	keyCell, err := h.stringCellFor(th, o, key)
	if err != nil {
		return err
	}
	return h.DictSet(th, o, keyCell, value, func(_ *Thread, c Cell) uint32 { return DefaultHash(c) }, func(_ *Thread, a, b Cell) bool { return DefaultEqual(a, b) })
}

// stringCellFor allocates a String object for key in the same arena/heap,
// using the heap's StringClass field (assigned by builtin bootstrap).
func (h *Heap) stringCellFor(th *Thread, dict *Object, key string) (Cell, error) {
	class := h.StringClass
	s, err := NewStringData(h.Arena, key)
	if err != nil {
		return Cell{}, err
	}
	return FromObject(h.NewObject(class, s, len(key))), nil
}

func hashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

func cellIsString(c Cell, s string) bool {
	if c.Kind != KObject || c.Obj == nil {
		return false
	}
	sd, ok := c.Obj.Payload.(*StringData)
	return ok && sd.String() == s
}
