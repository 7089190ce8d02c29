package builtin

import "oovm-go/internal/core"

// installExceptionMethods wires up the field accessors on Exception
// instances (spec §4.H "Standard fields attached: type ... plus
// kind-specific fields").
func installExceptionMethods(reg *Registry) {
	rt := reg.rt

	reg.addInstanceMethod("Exception", "type", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		ed := core.ExceptionOf(argp[0].Obj)
		if ed == nil {
			raiseInvalid(rt, th, "type: receiver is not an Exception")
			return
		}
		s, err := rt.Heap.NewString(rt.Heap.StringClass, ed.Type)
		if err != nil {
			raiseInvalid(rt, th, "type: %v", err)
			return
		}
		moveObjectInto(rt, dest, s)
	})

	reg.addInstanceMethod("Exception", "message", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		ed := core.ExceptionOf(argp[0].Obj)
		if ed == nil {
			raiseInvalid(rt, th, "message: receiver is not an Exception")
			return
		}
		s, err := rt.Heap.NewString(rt.Heap.StringClass, ed.Message)
		if err != nil {
			raiseInvalid(rt, th, "message: %v", err)
			return
		}
		moveObjectInto(rt, dest, s)
	})

	reg.addInstanceMethod("Exception", "value", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		ed := core.ExceptionOf(argp[0].Obj)
		if ed == nil {
			raiseInvalid(rt, th, "value: receiver is not an Exception")
			return
		}
		rt.Heap.AssignCell(dest, ed.Payload)
	})

	// taxonomyFields are the kind-specific structured fields spec §4.H
	// enumerates; each gets a same-named accessor returning the field's
	// value, or nil if the raised exception didn't carry that one.
	taxonomyFields := []string{
		"instance", "key", "expected", "got", "receiver", "selector",
		"attribute", "index", "length", "filename", "mode", "method",
	}
	for _, name := range taxonomyFields {
		field := name
		reg.addInstanceMethod("Exception", field, func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			ed := core.ExceptionOf(argp[0].Obj)
			if ed == nil {
				raiseInvalid(rt, th, "%s: receiver is not an Exception", field)
				return
			}
			if v, ok := ed.Field(field); ok {
				rt.Heap.AssignCell(dest, v)
				return
			}
			rt.Heap.AssignCell(dest, core.Nil())
		})
	}

	// field: is the generic accessor spec §4.H alludes to ("a generic
	// user-instance field dictionary"), taking the field name as a String
	// for callers that don't want a fixed selector per taxonomy field.
	reg.addInstanceMethod("Exception", "field:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		ed := core.ExceptionOf(argp[0].Obj)
		if ed == nil {
			raiseInvalid(rt, th, "field:: receiver is not an Exception")
			return
		}
		nameData := core.StringOf(argp[1].Obj)
		if nameData == nil {
			raiseInvalid(rt, th, "field:: field name must be a String")
			return
		}
		if v, ok := ed.Field(nameData.String()); ok {
			rt.Heap.AssignCell(dest, v)
			return
		}
		rt.Heap.AssignCell(dest, core.Nil())
	})

	reg.addClassMethod("Exception", "new:message:value:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 4, 4)) {
			return
		}
		typeData := core.StringOf(argp[1].Obj)
		msgData := core.StringOf(argp[2].Obj)
		if typeData == nil || msgData == nil {
			raiseInvalid(rt, th, "new:message:value:: type and message must be Strings")
			return
		}
		exc := rt.Heap.NewException(reg.class("Exception"), typeData.String(), msgData.String(), argp[3])
		moveObjectInto(rt, dest, exc)
	})
}
