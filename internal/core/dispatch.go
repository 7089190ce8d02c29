package core

import (
	"fmt"
	"strings"
)

// isPrivateSelector reports whether selector is subject to the privacy
// rule (spec §4.F step 2): length > 2, begins with a single underscore,
// not a dunder.
func isPrivateSelector(selector string) bool {
	return len(selector) > 2 && strings.HasPrefix(selector, "_") && !strings.HasPrefix(selector, "__")
}

// Resolve performs selector resolution (spec §4.F). It returns the method
// cell to invoke and the class it was found on (for the call frame's
// privacy-rule bookkeeping).
func (rt *Runtime) Resolve(th *Thread, receiver Cell, selector string) (Cell, *Object, error) {
	var rawClass *Object
	if receiver.Kind == KObject && receiver.Obj != nil {
		rawClass = receiver.Obj.Class
	} else {
		rawClass = classForScalar(rt, receiver)
	}
	if rawClass == nil {
		return Cell{}, nil, fmt.Errorf("%w: receiver has no class", ErrNoMethod)
	}
	resolved := rawClass
	if receiver.Kind == KObject && receiver.Obj != nil {
		resolved = ResolvedClass(receiver.Obj)
	}

	if isPrivateSelector(selector) {
		cur := th.Frames.CurrentCall()
		if cur == nil || cur.Class != resolved {
			return Cell{}, nil, fmt.Errorf("%w: selector %q is private to %s", ErrNoMethod, selector, classData(resolved).Name)
		}
	}

	// A receiver that is itself a class dispatches through its class-method
	// table and its own parent chain (spec §4.F step 3), never through the
	// instance-method table below.
	if receiver.Kind == KObject && classData(receiver.Obj) != nil {
		for c := receiver.Obj; c != nil; c = classData(c).Parent {
			if m, ok := classData(c).lookupClassMethod(selector); ok {
				if !isMethodValue(m) {
					break
				}
				return m, c, nil
			}
		}
		return Cell{}, nil, fmt.Errorf("%w: no class method %q on %s", ErrNoMethod, selector, classData(receiver.Obj).Name)
	}

	for c := resolved; c != nil; c = classData(c).Parent {
		cd := classData(c)
		if cd == nil {
			break
		}
		if m, ok := cd.lookupInstance(selector); ok {
			if !isMethodValue(m) {
				continue
			}
			return m, c, nil
		}
	}
	// A user instance's raw class (User) holds the generic field accessors
	// at:/atput:; its chain is searched after the user class's own chain.
	if rawClass != resolved {
		for c := rawClass; c != nil; c = classData(c).Parent {
			cd := classData(c)
			if cd == nil {
				break
			}
			if m, ok := cd.lookupInstance(selector); ok && isMethodValue(m) {
				return m, c, nil
			}
		}
	}
	return Cell{}, nil, fmt.Errorf("%w: no method %q on %s", ErrNoMethod, selector, classNameOf(resolved))
}

func isMethodValue(c Cell) bool {
	return c.Kind == KCodeMethod || c.Kind == KByteMethod
}

func classNameOf(o *Object) string {
	if cd := classData(o); cd != nil {
		return cd.Name
	}
	return "?"
}

// classForScalar returns the built-in class for a non-object cell kind
// (Boolean, Integer, Float), looked up by name in the constants table.
func classForScalar(rt *Runtime, c Cell) *Object {
	switch c.Kind {
	case KBool:
		return rt.Constant("Boolean")
	case KInt:
		return rt.Constant("Integer")
	case KFloat:
		return rt.Constant("Float")
	case KCodeMethod:
		return rt.Constant("Codemethod")
	case KByteMethod:
		return rt.Constant("Method")
	case KNil:
		return rt.Constant("Object")
	default:
		return nil
	}
}

// Call implements the calling convention (spec §4.F "Calling
// convention"): pushes a call frame (and a namespace frame when the
// method's class has a home namespace), invokes the method, and pops
// both frames on return, releasing any scratch cells the callee left on
// the value stack above its argument window.
func (rt *Runtime) Call(th *Thread, class *Object, method Cell, argp []Cell, dest *Cell) error {
	frame, err := th.Frames.PushCall(class, method, dest, argp)
	if err != nil {
		return err
	}

	var pushedNS bool
	if cd := classData(class); cd != nil && cd.Home != nil {
		if _, err := th.Frames.PushNamespace(cd.Home); err != nil {
			th.Frames.PopCall()
			return err
		}
		pushedNS = true
	}

	base := frame.StackBase
	defer func() {
		if pushedNS {
			th.Frames.PopNamespace()
		}
		th.Frames.Unwind(rt.Heap, base)
		th.Frames.PopCall()
	}()

	switch method.Kind {
	case KCodeMethod:
		method.Code.Fn(th, len(argp), argp, dest)
		return nil
	case KByteMethod:
		if rt.RunByteMethod == nil {
			return NewFatal(FatalInvalidInstruction, "no byte-code interpreter installed")
		}
		return rt.RunByteMethod(th, method.Byte, argp, dest)
	default:
		return fmt.Errorf("%w: method slot holds a non-method value", ErrNoMethod)
	}
}

// Dispatch resolves selector on receiver and calls it, with receiver
// prepended to args as the full argument window (spec §4.F "the first
// argument is the receiver").
func (rt *Runtime) Dispatch(th *Thread, receiver Cell, selector string, args []Cell, dest *Cell) error {
	method, class, err := rt.Resolve(th, receiver, selector)
	if err != nil {
		return err
	}
	argp := make([]Cell, 0, len(args)+1)
	argp = append(argp, receiver)
	argp = append(argp, args...)
	return rt.Call(th, class, method, argp, dest)
}

// CheckArgs enforces a method's declared arity (spec §4.F "argument count
// constraints are checked inside the callee"; testable scenario §8.6).
func CheckArgs(argc, min, max int) error {
	if argc < min || (max >= 0 && argc > max) {
		return &ArityError{Expected: min, Got: argc}
	}
	return nil
}

// ArityError is the error CheckArgs returns on a mismatch, carrying the
// expected/got pair structured so callers can attach them as exception
// taxonomy fields (spec §4.H: "expected = 2 and got = 1") without
// reparsing the error text.
type ArityError struct {
	Expected int
	Got      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrNumArgs, e.Expected, e.Got)
}

func (e *ArityError) Unwrap() error { return ErrNumArgs }

// ArityFields builds the expected/got taxonomy fields for an error
// returned by CheckArgs, or nil if err isn't an *ArityError.
func ArityFields(err error) map[string]Cell {
	ae, ok := err.(*ArityError)
	if !ok {
		return nil
	}
	return map[string]Cell{
		"expected": FromInt(int64(ae.Expected)),
		"got":      FromInt(int64(ae.Got)),
	}
}

// EqualCells provides the dispatch-backed "equal" used by Set/Dictionary
// once classes can override it: strings and scalars compare structurally,
// user objects dispatch to their own "equal:" method if defined, falling
// back to pointer identity (spec §4.D).
func (rt *Runtime) EqualCells(th *Thread, a, b Cell) bool {
	if a.Kind != KObject || a.Obj == nil {
		return DefaultEqual(a, b)
	}
	if _, ok := a.Obj.Payload.(*StringData); ok {
		return DefaultEqual(a, b)
	}
	if cd := classData(ResolvedClass(a.Obj)); cd != nil {
		if _, ok := cd.lookupInstance("equal:"); ok {
			var dest Cell
			if err := rt.Dispatch(th, a, "equal:", []Cell{b}, &dest); err == nil {
				return dest.Bool()
			}
		}
	}
	return DefaultEqual(a, b)
}

// HashCell provides the dispatch-backed "hash" counterpart to EqualCells.
func (rt *Runtime) HashCell(th *Thread, c Cell) uint32 {
	if c.Kind != KObject || c.Obj == nil {
		return DefaultHash(c)
	}
	if _, ok := c.Obj.Payload.(*StringData); ok {
		return DefaultHash(c)
	}
	if cd := classData(ResolvedClass(c.Obj)); cd != nil {
		if _, ok := cd.lookupInstance("hash"); ok {
			var dest Cell
			if err := rt.Dispatch(th, c, "hash", nil, &dest); err == nil && dest.Kind == KInt {
				return uint32(dest.I)
			}
		}
	}
	return DefaultHash(c)
}
