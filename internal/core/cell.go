package core

// Kind tags a Cell's active member (spec §3.1).
type Kind uint8

const (
	KNil Kind = iota
	KObject
	KBool
	KInt
	KFloat
	KCodeMethod
	KByteMethod
)

// Cell is the tagged value slot used on the value stack and inside every
// container (spec §3.1, Glossary "Cell"). Exactly one of the typed fields
// is meaningful, selected by Kind. Code-method and byte-code method
// values are not heap objects with their own reference count: they live
// as long as the class method table that installed them, so a Cell can
// reference one directly without retaining it.
type Cell struct {
	Kind Kind

	Obj   *Object
	I     int64 // KInt, KBool (0/1)
	F     float64
	Code  *CodeMethod
	Byte  *ByteMethod

	hash      uint32
	hashValid bool
}

// Nil returns the nil cell (the empty value; also doubles as the empty
// list, spec §3.3 "the empty list is the null object reference").
func Nil() Cell { return Cell{Kind: KNil} }

// IsNil reports whether c holds no object reference and no scalar value.
func (c Cell) IsNil() bool { return c.Kind == KNil }

// FromObject wraps an object reference. The caller is responsible for the
// retain the new reference represents; use Heap.AssignObject on an
// existing cell when replacing a live value so the old reference is
// released.
func FromObject(o *Object) Cell { return Cell{Kind: KObject, Obj: o} }

func FromBool(b bool) Cell {
	v := int64(0)
	if b {
		v = 1
	}
	return Cell{Kind: KBool, I: v}
}

func FromInt(i int64) Cell     { return Cell{Kind: KInt, I: i} }
func FromFloat(f float64) Cell { return Cell{Kind: KFloat, F: f} }
func FromCode(m *CodeMethod) Cell { return Cell{Kind: KCodeMethod, Code: m} }
func FromByte(m *ByteMethod) Cell { return Cell{Kind: KByteMethod, Byte: m} }

// AssignObject releases dst's previous object reference (if any) and
// retains o into dst (spec §3.1: "Reassignment releases the previous
// object reference ... and retains the new one").
func (h *Heap) AssignObject(dst *Cell, o *Object) {
	old := *dst
	if o != nil {
		h.Retain(o)
	}
	*dst = Cell{Kind: KObject, Obj: o}
	h.releaseCell(old)
}

// AssignCell releases dst's previous reference and retains whatever src
// holds, copying src's scalar/object payload into dst.
func (h *Heap) AssignCell(dst *Cell, src Cell) {
	if src.Kind == KObject && src.Obj != nil {
		h.Retain(src.Obj)
	}
	old := *dst
	*dst = src
	h.releaseCell(old)
}

// Release drops the reference dst holds (if it is an object reference)
// and resets it to nil.
func (h *Heap) Release(dst *Cell) {
	old := *dst
	*dst = Cell{}
	h.releaseCell(old)
}

func (h *Heap) releaseCell(c Cell) {
	if c.Kind == KObject && c.Obj != nil {
		h.ReleaseObject(c.Obj)
	}
}

// Bool reports c's truthiness for KBool cells (and, conventionally, for
// nil: the empty list / nil object is falsy everywhere in the language).
func (c Cell) Bool() bool {
	switch c.Kind {
	case KBool:
		return c.I != 0
	case KNil:
		return false
	default:
		return true
	}
}

// SetHash caches a computed hash value on the cell.
func (c *Cell) SetHash(v uint32) {
	c.hash = v
	c.hashValid = true
}

// CachedHash returns the cached hash and whether it is valid.
func (c *Cell) CachedHash() (uint32, bool) { return c.hash, c.hashValid }
