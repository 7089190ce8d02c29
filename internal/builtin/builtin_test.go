package builtin

import (
	"testing"

	"oovm-go/internal/arena"
	"oovm-go/internal/core"
)

// newTestRuntime bootstraps a fresh runtime with the built-in class
// hierarchy installed but no byte-code interpreter wired in (native
// code-methods never call back into RunByteMethod, so none of these
// tests need internal/interp.Install).
func newTestRuntime(t *testing.T) (*core.Runtime, *core.Thread, *Registry) {
	t.Helper()
	h := core.NewHeap(arena.New())
	rt := core.NewRuntime(h)
	th, reg, err := Bootstrap(rt)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return rt, th, reg
}

func dispatch(t *testing.T, rt *core.Runtime, th *core.Thread, receiver core.Cell, selector string, args ...core.Cell) core.Cell {
	t.Helper()
	var dest core.Cell
	if err := rt.Dispatch(th, receiver, selector, args, &dest); err != nil {
		t.Fatalf("dispatch %s: %v", selector, err)
	}
	return dest
}

func TestIntegerArithmetic(t *testing.T) {
	rt, th, _ := newTestRuntime(t)

	sum := dispatch(t, rt, th, core.FromInt(2), "+", core.FromInt(3))
	if sum.Kind != core.KInt || sum.I != 5 {
		t.Fatalf("2 + 3 = %+v, want Integer 5", sum)
	}

	cmp := dispatch(t, rt, th, core.FromInt(2), "<", core.FromInt(3))
	if cmp.Kind != core.KBool || !cmp.Bool() {
		t.Fatalf("2 < 3 = %+v, want true", cmp)
	}

	mixed := dispatch(t, rt, th, core.FromInt(4), "+", core.FromFloat(0.5))
	if mixed.Kind != core.KFloat || mixed.F != 4.5 {
		t.Fatalf("4 + 0.5 = %+v, want Float 4.5", mixed)
	}
}

func TestIntegerDivisionByZeroRaises(t *testing.T) {
	rt, th, _ := newTestRuntime(t)
	fatal := core.RunThreadBody(th, func() {
		var dest core.Cell
		if err := rt.Dispatch(th, core.FromInt(1), "/", []core.Cell{core.FromInt(0)}, &dest); err != nil {
			t.Fatalf("dispatch /: %v", err)
		}
		t.Fatal("1 / 0 did not raise")
	})
	if fatal == nil {
		t.Fatal("expected RunThreadBody to report the raise")
	}
}

func TestStringConcatAndLength(t *testing.T) {
	rt, th, _ := newTestRuntime(t)
	a, err := rt.Heap.NewString(rt.Heap.StringClass, "foo")
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	b, err := rt.Heap.NewString(rt.Heap.StringClass, "bar")
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}

	cat := dispatch(t, rt, th, core.FromObject(a), "+", core.FromObject(b))
	if cat.Kind != core.KObject {
		t.Fatalf("+ result kind = %v, want KObject", cat.Kind)
	}
	sd := core.StringOf(cat.Obj)
	if sd == nil || sd.String() != "foobar" {
		t.Fatalf("\"foo\" + \"bar\" = %q, want \"foobar\"", sd.String())
	}

	length := dispatch(t, rt, th, core.FromObject(a), "length")
	if length.Kind != core.KInt || length.I != 3 {
		t.Fatalf("\"foo\" length = %+v, want 3", length)
	}
}

func TestPairAccessors(t *testing.T) {
	rt, th, reg := newTestRuntime(t)
	pairClass := core.FromObject(reg.Class("Pair"))
	pair := dispatch(t, rt, th, pairClass, "new:with:", core.FromInt(1), core.FromInt(2))
	if pair.Kind != core.KObject {
		t.Fatalf("Pair new:with: = %+v, want KObject", pair)
	}
	first := dispatch(t, rt, th, pair, "first")
	second := dispatch(t, rt, th, pair, "second")
	if first.I != 1 || second.I != 2 {
		t.Fatalf("Pair(1, 2) -> first=%v second=%v", first, second)
	}
}

func TestListConsHeadTailLength(t *testing.T) {
	rt, th, reg := newTestRuntime(t)
	listClass := core.FromObject(reg.Class("List"))
	l := dispatch(t, rt, th, listClass, "cons:with:", core.FromInt(1), core.Nil())
	head := dispatch(t, rt, th, l, "head")
	if head.I != 1 {
		t.Fatalf("head = %v, want 1", head)
	}
	length := dispatch(t, rt, th, l, "length")
	if length.I != 1 {
		t.Fatalf("length = %v, want 1", length)
	}
}

func TestUserInstanceFields(t *testing.T) {
	rt, th, reg := newTestRuntime(t)

	objClassCell := core.FromObject(reg.Class("Object"))
	inst := dispatch(t, rt, th, objClassCell, "new")
	if inst.Kind != core.KObject {
		t.Fatalf("Object new = %+v, want KObject", inst)
	}
	keyName, err := rt.Heap.NewString(rt.Heap.StringClass, "x")
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	dispatch(t, rt, th, inst, "atput:", core.FromObject(keyName), core.FromInt(42))
	got := dispatch(t, rt, th, inst, "at:", core.FromObject(keyName))
	if got.Kind != core.KInt || got.I != 42 {
		t.Fatalf("instance field x = %+v, want 42", got)
	}
}

func TestIsKindOf(t *testing.T) {
	rt, th, reg := newTestRuntime(t)
	objClassCell := core.FromObject(reg.Class("Object"))
	inst := dispatch(t, rt, th, objClassCell, "new")

	res := dispatch(t, rt, th, inst, "isKindOf:", objClassCell)
	if res.Kind != core.KBool || !res.Bool() {
		t.Fatalf("instance isKindOf: Object = %+v, want true", res)
	}
}
