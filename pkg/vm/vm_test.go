package vm

import (
	"testing"

	"oovm-go/internal/core"
)

func TestParseEntryPointDefaults(t *testing.T) {
	cases := []struct {
		spec string
		want EntryPoint
	}{
		{"hello", EntryPoint{Module: "hello", Class: "Start", Method: "start"}},
		{"hello.Greeter", EntryPoint{Module: "hello", Class: "Greeter", Method: "start"}},
		{"hello.Greeter.run", EntryPoint{Module: "hello", Class: "Greeter", Method: "run"}},
	}
	for _, c := range cases {
		got := ParseEntryPoint(c.spec)
		if got != c.want {
			t.Errorf("ParseEntryPoint(%q) = %+v, want %+v", c.spec, got, c.want)
		}
	}
}

func TestInitBootstrapsRuntime(t *testing.T) {
	machine, err := Init(Options{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if machine.Main == nil || !machine.Main.IsMain {
		t.Fatal("Init did not return a main thread")
	}
	if machine.Reg.Class("Object") == nil {
		t.Fatal("Init did not bootstrap the Object class")
	}
}

func TestDefineClassAndAddInstanceMethod(t *testing.T) {
	machine, err := Init(Options{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	root := machine.Rt.MainNamespace()
	point, err := machine.DefineClass(machine.Main, root, "Point", nil)
	if err != nil {
		t.Fatalf("DefineClass: %v", err)
	}

	machine.AddInstanceMethod(point, "answer", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		*dest = core.FromInt(42)
	})

	var dest core.Cell
	recv := machine.NewInstance(point, machine.NewDict())
	if err := machine.Rt.Dispatch(machine.Main, core.FromObject(recv), "answer", nil, &dest); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if dest.Kind != core.KInt || dest.I != 42 {
		t.Fatalf("answer = %+v, want Integer 42", dest)
	}
}

func TestArgCheck(t *testing.T) {
	if err := ArgCheck(1, 2, 2); err == nil {
		t.Fatal("ArgCheck(1, 2, 2) = nil, want an arity error")
	}
	if err := ArgCheck(2, 2, 2); err != nil {
		t.Fatalf("ArgCheck(2, 2, 2) = %v, want nil", err)
	}
}

func TestLookupStoreRoundTrip(t *testing.T) {
	machine, err := Init(Options{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := machine.Store(machine.Main, "answer", core.FromInt(7)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	v, ok := machine.Lookup(machine.Main, "answer")
	if !ok || v.Kind != core.KInt || v.I != 7 {
		t.Fatalf("Lookup(\"answer\") = (%+v, %v), want (Integer 7, true)", v, ok)
	}
}

func TestBacktraceEmptyAtTopLevel(t *testing.T) {
	machine, err := Init(Options{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if bt := machine.Backtrace(machine.Main); len(bt) != 0 {
		t.Fatalf("Backtrace at top level = %v, want empty", bt)
	}
}
