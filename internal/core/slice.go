package core

import "fmt"

// SliceData borrows a region of an underlying indexable (Array,
// ByteArray, or String) by offset+length, sharing ownership of the
// underlying object (spec §3.3 "Slice / constant-slice").
type SliceData struct {
	Underlying Cell // KObject, wrapping Array/ByteArray/StringData
	Offset     int
	Length     int
	Constant   bool
}

func (s *SliceData) KindName() string {
	if s.Constant {
		return "constant-slice"
	}
	return "slice"
}

func (s *SliceData) Trace(visit func(*Cell)) { visit(&s.Underlying) }
func (s *SliceData) Finalize()                {}

func sliceData(o *Object) *SliceData {
	if o == nil {
		return nil
	}
	sd, _ := o.Payload.(*SliceData)
	return sd
}

// underlyingLen reports the element count of the borrowed container.
func underlyingLen(u Cell) (int, error) {
	if u.Kind != KObject || u.Obj == nil {
		return 0, fmt.Errorf("%w: slice over nil", ErrInvalidValue)
	}
	switch d := u.Obj.Payload.(type) {
	case *ArrayData:
		return len(d.Elems), nil
	case *ByteArrayData:
		return len(d.bytes), nil
	case *StringData:
		return len(d.bytes), nil
	default:
		return 0, fmt.Errorf("%w: value is not sliceable", ErrInvalidValue)
	}
}

// NewSlice normalizes (offset, length) against the underlying container's
// size (spec §4.D string-slice rule, generalized to every indexable kind)
// and constructs a Slice object sharing the underlying's reference.
func (h *Heap) NewSlice(class *Object, underlying Cell, offset, length int, constant bool) (*Object, error) {
	n, err := underlyingLen(underlying)
	if err != nil {
		return nil, err
	}
	ofs, ln, ok := SliceNormalize(offset, length, n)
	if !ok {
		return nil, fmt.Errorf("%w: slice(%d, %d) out of range for length %d", ErrIndexRange, offset, length, n)
	}
	h.retainCell(underlying)
	return h.NewObject(class, &SliceData{Underlying: underlying, Offset: ofs, Length: ln, Constant: constant}, 0), nil
}

// SliceParts returns the fields needed to build an equivalent slice (for
// copy/deep-copy, spec §4.D), or ok=false if o is not a Slice.
func SliceParts(o *Object) (underlying Cell, offset, length int, constant bool, ok bool) {
	sd := sliceData(o)
	if sd == nil {
		return Cell{}, 0, 0, false, false
	}
	return sd.Underlying, sd.Offset, sd.Length, sd.Constant, true
}

// SliceLen returns the slice's own length, or -1 if o is not a slice.
func SliceLen(o *Object) int {
	sd := sliceData(o)
	if sd == nil {
		return -1
	}
	return sd.Length
}

// SliceGet returns element i (0-based within the slice's own length).
func SliceGet(o *Object, i int) (Cell, error) {
	sd := sliceData(o)
	if sd == nil || i < 0 || i >= sd.Length {
		return Cell{}, fmt.Errorf("%w: slice index %d out of range", ErrIndexRange, i)
	}
	abs := sd.Offset + i
	switch d := sd.Underlying.Obj.Payload.(type) {
	case *ArrayData:
		return d.Elems[abs], nil
	case *ByteArrayData:
		return FromInt(int64(d.bytes[abs])), nil
	case *StringData:
		return FromInt(int64(d.bytes[abs])), nil
	default:
		return Cell{}, fmt.Errorf("%w: value is not sliceable", ErrInvalidValue)
	}
}
