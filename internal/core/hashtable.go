package core

// hashtable is the bucket-array structure shared by Set and Dictionary
// (spec §3.3, §4.D: "hash table sized to a power of two, buckets are
// lists of elements"). Each bucket holds an ordinary language list (spec
// §4.D: "On insertion, if no bucket entry matches the key, a new list
// cell is prepended to the bucket"), so Set and Dictionary differ only in
// what they store as a bucket element (a bare value for Set, a Pair for
// Dictionary) and how they extract the key to hash/compare.
type hashtable struct {
	buckets []Cell // len is always a power of two; each entry a list-of-elements
	count   int
}

const initialBuckets = 8

func newHashtable() *hashtable {
	return &hashtable{buckets: make([]Cell, initialBuckets)}
}

func bucketIndex(hash uint32, nbuckets int) int {
	return int(hash) & (nbuckets - 1)
}

// EqualFn / HashFn let Set and Dictionary supply class-overridable
// equality and hashing (spec §4.D: "equal" found via method lookup on the
// key; "classes override" the pointer-equality default) without core
// depending on the interpreter/dispatch package.
type EqualFn func(th *Thread, a, b Cell) bool
type HashFn func(th *Thread, c Cell) uint32

// DefaultHash handles the built-in scalar and string kinds directly;
// arbitrary user objects fall back to an identity hash derived from their
// pointer, which is consistent with the pointer-equality default (spec
// §4.D) until a class installs its own hash method.
func DefaultHash(c Cell) uint32 {
	switch c.Kind {
	case KNil:
		return 0
	case KBool, KInt:
		return uint32(c.I) ^ uint32(c.I>>32)
	case KFloat:
		bits := int64(c.F)
		return uint32(bits) ^ uint32(bits>>32)
	case KObject:
		if c.Obj == nil {
			return 0
		}
		if sd, ok := c.Obj.Payload.(*StringData); ok {
			return sd.Hash()
		}
		return identityHash(c.Obj)
	default:
		return 0
	}
}

func identityHash(o *Object) uint32 {
	p := uintptrOf(o)
	return uint32(p) ^ uint32(p>>32)
}

// DefaultEqual implements the pointer-equality default for objects, exact
// comparison for scalars, and content equality for strings (spec §4.D).
func DefaultEqual(a, b Cell) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KNil:
		return true
	case KBool, KInt:
		return a.I == b.I
	case KFloat:
		return a.F == b.F
	case KObject:
		if a.Obj == b.Obj {
			return true
		}
		if a.Obj == nil || b.Obj == nil {
			return false
		}
		as, aok := a.Obj.Payload.(*StringData)
		bs, bok := b.Obj.Payload.(*StringData)
		if aok && bok {
			return as.Equal(bs)
		}
		return false
	default:
		return false
	}
}

// growBuckets doubles the table and reinserts every element, recomputing
// its bucket from rehash(elem) — the caller (Set or Dictionary) knows how
// to pull the hashable key out of its own bucket-element shape (a bare
// value for Set, the first of a Pair for Dictionary).
func growBuckets(buckets []Cell, rehash func(elem Cell) uint32) []Cell {
	next := make([]Cell, len(buckets)*2)
	for _, head := range buckets {
		for cur := head; !cur.IsNil(); {
			ld := listData(cur.Obj)
			if ld == nil {
				break
			}
			nextNode := ld.Tail
			idx := bucketIndex(rehash(ld.Head), len(next))
			ld.Tail = next[idx]
			next[idx] = cur
			cur = nextNode
		}
	}
	return next
}
