package core

import "fmt"

// ExceptionData is the payload of an Exception instance (spec §4.H):
// a dotted type string, a human-readable message, the optional payload
// value the raiser attached, and a set of kind-specific structured
// fields (spec §4.H: "instance", "key", "expected"/"got", "receiver",
// "selector", "attribute", "index", "length", "filename"/"mode", plus
// the generic "method" every raise carries). Fields is a plain Go map
// rather than a Dictionary object: internal/core cannot import
// internal/builtin's Dictionary machinery, and a plain map keeps the
// Trace() contract a simple iterate-and-visit.
type ExceptionData struct {
	Type    string
	Message string
	Payload Cell
	Fields  map[string]Cell
}

func (e *ExceptionData) KindName() string { return "exception" }

func (e *ExceptionData) Trace(visit func(*Cell)) {
	visit(&e.Payload)
	for k, v := range e.Fields {
		visit(&v)
		e.Fields[k] = v
	}
}

func (e *ExceptionData) Finalize() {}

// Field returns the named structured field attached to the exception,
// if any (spec §4.H taxonomy fields).
func (e *ExceptionData) Field(name string) (Cell, bool) {
	v, ok := e.Fields[name]
	return v, ok
}

func (h *Heap) NewException(class *Object, typ, msg string, payload Cell) *Object {
	return h.NewExceptionFields(class, typ, msg, payload, nil)
}

// NewExceptionFields constructs an Exception object carrying the given
// taxonomy fields (spec §4.H) alongside the usual type/message/payload.
// payload and every field value are borrowed references owned by the
// caller; NewExceptionFields retains its own copy of each.
func (h *Heap) NewExceptionFields(class *Object, typ, msg string, payload Cell, fields map[string]Cell) *Object {
	if payload.Kind == KObject && payload.Obj != nil {
		h.Retain(payload.Obj)
	}
	var stored map[string]Cell
	if len(fields) > 0 {
		stored = make(map[string]Cell, len(fields))
		for k, v := range fields {
			if v.Kind == KObject && v.Obj != nil {
				h.Retain(v.Obj)
			}
			stored[k] = v
		}
	}
	return h.NewObject(class, &ExceptionData{Type: typ, Message: msg, Payload: payload, Fields: stored}, 0)
}

func ExceptionOf(o *Object) *ExceptionData {
	if o == nil {
		return nil
	}
	ed, _ := o.Payload.(*ExceptionData)
	return ed
}

// raiseSignal is the internal control-transfer value carried by panic/
// recover to implement catchable raise (spec §9 design note: "This is
// expressible as a catchable failure value propagated up the call stack
// ... The interpreter dispatch loop is the natural seam"). It is never
// allowed to escape Thread.Raise's caller: every frame that can catch
// recovers it, and the uncaught case is turned back into a *Fatal at the
// thread boundary.
type raiseSignal struct {
	Exc *Object
}

// AsRaise reports whether a recovered panic value r is a raiseSignal
// produced by Thread.Raise/Reraise, returning the raised object. It lets
// internal/interp's own recover distinguish a catchable raise from a
// *Fatal or a genuine Go runtime panic without depending on core's
// unexported raiseSignal type.
func AsRaise(r any) (*Object, bool) {
	sig, ok := r.(raiseSignal)
	if !ok {
		return nil, false
	}
	return sig.Exc, true
}

// Raise raises exc as a catchable exception (spec §4.H "raise"). It never
// returns normally: control transfers via panic to the nearest enclosing
// PushException frame, or, if none exists, all the way out of the
// thread's run loop as a Fatal(FatalUncaughtException).
//
// excNesting guards against raising while already unwinding for another
// exception with no catch frame between them (spec §4.H "double
// exception is fatal, mirroring a panic during panic handling").
func (th *Thread) Raise(exc *Object) {
	if th.excNesting > 0 && th.Frames.CurrentException() == nil {
		panic(NewFatal(FatalDoubleException, "exception raised while already unwinding with no catch frame"))
	}
	panic(raiseSignal{Exc: exc})
}

// RaiseType is a convenience wrapper: construct and raise an Exception
// object of typ with msg, using the Exception class registered on rt.
func (rt *Runtime) RaiseType(th *Thread, typ, msg string, payload Cell) {
	rt.RaiseTypeFields(th, typ, msg, payload, nil)
}

// RaiseTypeFields raises an Exception of typ carrying the given
// kind-specific taxonomy fields (spec §4.H) in addition to the generic
// "method" field, which it derives from the currently executing call
// frame. fields holds borrowed references the caller continues to own.
func (rt *Runtime) RaiseTypeFields(th *Thread, typ, msg string, payload Cell, fields map[string]Cell) {
	th.Raise(rt.NewExceptionType(th, typ, msg, payload, fields))
}

// NewExceptionType constructs (without raising) an Exception object of
// typ carrying fields plus the generic "method" field derived from the
// currently executing call frame. Splitting construction from Raise lets
// a caller finish releasing its own borrowed cells (e.g. a dispatch
// call's argument window) after the exception has taken its own
// retained copies, but before actually transferring control via panic.
func (rt *Runtime) NewExceptionType(th *Thread, typ, msg string, payload Cell, fields map[string]Cell) *Object {
	class := rt.Constant("Exception")
	name, ok := methodName(th)
	if !ok {
		return rt.Heap.NewExceptionFields(class, typ, msg, payload, fields)
	}
	methodCell, err := rt.Heap.stringCellFor(th, nil, name)
	if err != nil {
		return rt.Heap.NewExceptionFields(class, typ, msg, payload, fields)
	}
	merged := make(map[string]Cell, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["method"] = methodCell
	exc := rt.Heap.NewExceptionFields(class, typ, msg, payload, merged)
	if methodCell.Kind == KObject && methodCell.Obj != nil {
		rt.Heap.ReleaseObject(methodCell.Obj)
	}
	return exc
}

// methodName extracts the name of the method currently executing on th,
// for RaiseTypeFields' generic "method" taxonomy field.
func methodName(th *Thread) (string, bool) {
	cur := th.Frames.CurrentCall()
	if cur == nil {
		return "", false
	}
	switch cur.Method.Kind {
	case KCodeMethod:
		if cur.Method.Code != nil {
			return cur.Method.Code.Name, true
		}
	case KByteMethod:
		if cur.Method.Byte != nil {
			return cur.Method.Byte.Name, true
		}
	}
	return "", false
}

// Reraise propagates the exception currently caught at the innermost
// exception frame back up to the next enclosing one (spec §4.H
// "reraise"). It is a Fatal(FatalNoFrame) if no exception is active.
func (th *Thread) Reraise() {
	ef := th.Frames.CurrentException()
	if ef == nil || !ef.Valid {
		panic(NewFatal(FatalNoFrame, "reraise with no active exception"))
	}
	th.Frames.PopExceptions(1)
	panic(raiseSignal{Exc: ef.Dest.Obj})
}

// Protect runs fn under a newly pushed exception frame (spec §4.G
// "push-catch"/"pop-catch" bracketing a protected region). If fn raises,
// the exception lands in the frame (ef.Valid=true, *dest set to the
// exception object) and Protect returns nil: the caller resumes at its
// own catch-handling code rather than propagating further. Any other
// panic value (a *Fatal, or a Go runtime panic) is re-panicked unchanged.
//
// This is internal/core's synchronous analogue of the byte-code
// interpreter's push-catch/raise/pop-catch opcode trio; internal/interp
// uses it directly to implement those opcodes without hand-rolling its
// own recover bookkeeping.
func (th *Thread) Protect(dest *Cell, resumePC int, fn func()) (err error) {
	ef, err2 := th.Frames.PushException(dest, resumePC)
	if err2 != nil {
		return err2
	}
	th.excNesting++
	defer func() {
		th.excNesting--
		r := recover()
		if r == nil {
			return
		}
		sig, ok := r.(raiseSignal)
		if !ok {
			panic(r)
		}
		ef.Valid = true
		th.Frames.Unwind(th.Rt.Heap, ef.StackDepth)
		th.Frames.PopExceptionsThrough(ef)
		if dest != nil {
			th.Rt.Heap.AssignObject(dest, sig.Exc)
		}
	}()
	fn()
	th.Frames.PopExceptions(1)
	return nil
}

// RunThreadBody executes fn as a thread's top-level body, converting an
// uncaught raiseSignal into a *Fatal(FatalUncaughtException) and letting
// any other *Fatal propagate unchanged (spec §7: "an uncaught exception
// ... is reported the same way as any other fatal condition").
func RunThreadBody(th *Thread, fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch v := r.(type) {
		case raiseSignal:
			msg := "uncaught exception"
			if ed := ExceptionOf(v.Exc); ed != nil {
				msg = fmt.Sprintf("uncaught exception: %s: %s", ed.Type, ed.Message)
			}
			err = NewFatal(FatalUncaughtException, msg)
		case *Fatal:
			err = v
		default:
			panic(r)
		}
	}()
	fn()
	return nil
}
