package core

import (
	"fmt"

	"oovm-go/internal/arena"
)

// ByteArrayData is a sized byte vector, arena-backed like StringData;
// Constant marks the frozen variant (spec §3.3 "Byte array / constant
// byte array").
type ByteArrayData struct {
	bytes    []byte
	Constant bool
	a        *arena.Arena
}

func (b *ByteArrayData) KindName() string {
	if b.Constant {
		return "constant-bytearray"
	}
	return "bytearray"
}

func (b *ByteArrayData) Trace(func(*Cell)) {}

func (b *ByteArrayData) Finalize() {
	if b.a != nil && len(b.bytes) > 0 {
		b.a.Free(b.bytes, len(b.bytes))
		b.bytes = nil
	}
}

func (h *Heap) NewByteArray(a *arena.Arena, class *Object, data []byte, constant bool) (*Object, error) {
	buf, err := a.Alloc(len(data), false)
	if err != nil {
		return nil, err
	}
	copy(buf, data)
	return h.NewObject(class, &ByteArrayData{bytes: buf, Constant: constant, a: a}, len(buf)), nil
}

func byteArrayData(o *Object) *ByteArrayData {
	if o == nil {
		return nil
	}
	bd, _ := o.Payload.(*ByteArrayData)
	return bd
}

func (b *ByteArrayData) Len() int          { return len(b.bytes) }
func (b *ByteArrayData) Bytes() []byte     { return b.bytes }

// ByteArrayConstant reports whether o is the frozen (constant-bytearray)
// variant.
func ByteArrayConstant(o *Object) bool {
	bd := byteArrayData(o)
	return bd != nil && bd.Constant
}

// ByteArrayLen returns the byte count, or -1 if o is not a byte array.
func ByteArrayLen(o *Object) int {
	bd := byteArrayData(o)
	if bd == nil {
		return -1
	}
	return len(bd.bytes)
}

func ByteArrayGet(o *Object, i int) (byte, error) {
	bd := byteArrayData(o)
	if bd == nil || i < 0 || i >= len(bd.bytes) {
		return 0, fmt.Errorf("%w: byte array index %d out of range", ErrIndexRange, i)
	}
	return bd.bytes[i], nil
}

func ByteArraySet(o *Object, i int, v byte) error {
	bd := byteArrayData(o)
	if bd == nil || i < 0 || i >= len(bd.bytes) {
		return fmt.Errorf("%w: byte array index %d out of range", ErrIndexRange, i)
	}
	if bd.Constant {
		return fmt.Errorf("%w: cannot modify constant byte array", ErrModifyConstant)
	}
	bd.bytes[i] = v
	return nil
}
