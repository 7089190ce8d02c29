package interp

import (
	"testing"

	"oovm-go/internal/arena"
	"oovm-go/internal/builtin"
	"oovm-go/internal/core"
)

// encodeVarint produces the zigzag-signed UVarint encoding decode.go's
// Varint() expects, for small values (fits in the 5 value-bits of a
// zero-length-extension head byte) — used for signed operands like
// OpPushInt's literal and stack offsets.
func encodeVarint(v int64) byte {
	zz := uint64((v << 1) ^ (v >> 63))
	if zz >= 32 {
		panic("encodeVarint: value needs extension bytes, widen the helper")
	}
	return byte(zz << 3)
}

// encodeUvarint produces the plain (non-zigzag) UVarint encoding
// decode.go's UVarint() expects, for unsigned operands like string-length
// prefixes and argument counts.
func encodeUvarint(v uint64) byte {
	if v >= 32 {
		panic("encodeUvarint: value needs extension bytes, widen the helper")
	}
	return byte(v << 3)
}

func newTestRuntime(t *testing.T) (*core.Runtime, *core.Thread, *builtin.Registry) {
	t.Helper()
	h := core.NewHeap(arena.New())
	rt := core.NewRuntime(h)
	Install(rt)
	th, reg, err := builtin.Bootstrap(rt)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return rt, th, reg
}

// newTestClass builds a bare class object (no namespace, no class vars)
// directly on top of core, the same way pkg/vm.DefineClass does, so this
// package's tests don't need to import pkg/vm (which itself imports
// internal/interp).
func newTestClass(rt *core.Runtime, reg *builtin.Registry, name string) *core.Object {
	cd := core.NewClassData(name, reg.Class("Object"), nil, nil)
	return rt.Heap.NewObject(rt.Constant("Metaclass"), cd, 0)
}

func TestRunPushIntReturn(t *testing.T) {
	rt, th, reg := newTestRuntime(t)
	class := newTestClass(rt, reg, "PushIntTest")

	code := []byte{
		byte(OpPushInt), encodeVarint(7),
		byte(OpReturn),
	}
	m := &core.ByteMethod{Name: "seven", HomeClass: class, NumArgs: 0, Code: code}
	class.Payload.(*core.ClassData).AddInstanceMethod("seven", core.FromByte(m))

	receiver := rt.Heap.NewObject(class, nil, 0)
	var dest core.Cell
	if err := rt.Dispatch(th, core.FromObject(receiver), "seven", nil, &dest); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if dest.Kind != core.KInt || dest.I != 7 {
		t.Fatalf("seven = %+v, want Integer 7", dest)
	}
}

func TestRunReturnArg0(t *testing.T) {
	rt, th, reg := newTestRuntime(t)
	class := newTestClass(rt, reg, "ReturnArg0Test")

	code := []byte{byte(OpReturnArg0)}
	m := &core.ByteMethod{Name: "self", HomeClass: class, NumArgs: 0, Code: code}
	class.Payload.(*core.ClassData).AddInstanceMethod("self", core.FromByte(m))

	receiver := rt.Heap.NewObject(class, nil, 0)
	var dest core.Cell
	if err := rt.Dispatch(th, core.FromObject(receiver), "self", nil, &dest); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if dest.Kind != core.KObject || dest.Obj != receiver {
		t.Fatalf("self = %+v, want the receiver object back", dest)
	}
}

// encodeString produces the size-prefixed operand decode.go's String()
// expects: an UVarint length (small enough for the zero-extension encoding
// encodeVarint handles) followed by the raw bytes.
func encodeString(s string) []byte {
	return append([]byte{encodeUvarint(uint64(len(s)))}, []byte(s)...)
}

// encodeHash produces the 4-byte big-endian operand decode.go's Hash()
// expects; these tests don't rely on the precomputed value being correct
// (interp only asserts the string content matches), so zero is fine.
func encodeHash() []byte { return []byte{0, 0, 0, 0} }

func TestRunPushStringReturn(t *testing.T) {
	rt, th, reg := newTestRuntime(t)
	class := newTestClass(rt, reg, "PushStringTest")

	code := []byte{byte(OpPushString)}
	code = append(code, encodeString("hello")...)
	code = append(code, encodeHash()...)
	code = append(code, byte(OpReturn))

	m := &core.ByteMethod{Name: "greeting", HomeClass: class, NumArgs: 0, Code: code}
	class.Payload.(*core.ClassData).AddInstanceMethod("greeting", core.FromByte(m))

	receiver := rt.Heap.NewObject(class, nil, 0)
	var dest core.Cell
	if err := rt.Dispatch(th, core.FromObject(receiver), "greeting", nil, &dest); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if dest.Kind != core.KObject {
		t.Fatalf("greeting = %+v, want KObject", dest)
	}
	sd := core.StringOf(dest.Obj)
	if sd == nil || sd.String() != "hello" {
		t.Fatalf("greeting = %q, want \"hello\"", sd.String())
	}
}
