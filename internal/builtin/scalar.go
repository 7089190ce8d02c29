package builtin

import (
	"math"
	"strconv"

	"oovm-go/internal/core"
)

// installScalarMethods wires up Boolean/Integer/Float primitive
// operations (spec §4.J "the built-in scalar classes carry their
// arithmetic and comparison methods as native code-methods").
func installScalarMethods(reg *Registry) {
	installBooleanMethods(reg)
	installIntegerMethods(reg)
	installFloatMethods(reg)
}

func installBooleanMethods(reg *Registry) {
	rt := reg.rt

	reg.addInstanceMethod("Boolean", "not", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		rt.Heap.AssignCell(dest, core.FromBool(!argp[0].Bool()))
	})
	reg.addInstanceMethod("Boolean", "and:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		rt.Heap.AssignCell(dest, core.FromBool(argp[0].Bool() && argp[1].Bool()))
	})
	reg.addInstanceMethod("Boolean", "or:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		rt.Heap.AssignCell(dest, core.FromBool(argp[0].Bool() || argp[1].Bool()))
	})
	reg.addInstanceMethod("Boolean", "==", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		rt.Heap.AssignCell(dest, core.FromBool(core.DefaultEqual(argp[0], argp[1])))
	})
}

// numeric coerces a scalar cell to a float64, reporting ok=false for
// anything else (used so Integer/Float methods accept either operand
// kind, the way the teacher's own evaluator coerces mixed arithmetic).
func numeric(c core.Cell) (float64, bool) {
	switch c.Kind {
	case core.KInt:
		return float64(c.I), true
	case core.KFloat:
		return c.F, true
	default:
		return 0, false
	}
}

func installIntegerMethods(reg *Registry) {
	rt := reg.rt

	binop := func(selector string, fn func(a, b int64) (int64, bool)) {
		reg.addInstanceMethod("Integer", selector, func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
				return
			}
			if argp[1].Kind == core.KFloat {
				a, _ := numeric(argp[0])
				b := argp[1].F
				floatBinop(rt, th, selector, a, b, dest)
				return
			}
			if argp[1].Kind != core.KInt {
				raiseInvalid(rt, th, "%s: right operand is not a number", selector)
				return
			}
			v, ok := fn(argp[0].I, argp[1].I)
			if !ok {
				raiseInvalid(rt, th, "%s: invalid operands", selector)
				return
			}
			rt.Heap.AssignCell(dest, core.FromInt(v))
		})
	}
	cmp := func(selector string, fn func(a, b int64) bool) {
		reg.addInstanceMethod("Integer", selector, func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
				return
			}
			b, ok := numeric(argp[1])
			if !ok {
				raiseInvalid(rt, th, "%s: right operand is not a number", selector)
				return
			}
			rt.Heap.AssignCell(dest, core.FromBool(fn(argp[0].I, int64(b))))
		})
	}

	binop("+", func(a, b int64) (int64, bool) { return a + b, true })
	binop("-", func(a, b int64) (int64, bool) { return a - b, true })
	binop("*", func(a, b int64) (int64, bool) { return a * b, true })
	binop("/", func(a, b int64) (int64, bool) {
		if b == 0 {
			return 0, false
		}
		return a / b, true
	})
	binop("modulo:", func(a, b int64) (int64, bool) {
		if b == 0 {
			return 0, false
		}
		return a % b, true
	})
	cmp("<", func(a, b int64) bool { return a < b })
	cmp(">", func(a, b int64) bool { return a > b })
	cmp("<=", func(a, b int64) bool { return a <= b })
	cmp(">=", func(a, b int64) bool { return a >= b })
	cmp("==", func(a, b int64) bool { return a == b })

	reg.addInstanceMethod("Integer", "negate", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		rt.Heap.AssignCell(dest, core.FromInt(-argp[0].I))
	})
	reg.addInstanceMethod("Integer", "asFloat", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		rt.Heap.AssignCell(dest, core.FromFloat(float64(argp[0].I)))
	})
	reg.addInstanceMethod("Integer", "asString", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		s, err := rt.Heap.NewString(rt.Heap.StringClass, intToString(argp[0].I))
		if err != nil {
			raiseInvalid(rt, th, "asString: %v", err)
			return
		}
		moveObjectInto(rt, dest, s)
	})
}

func floatBinop(rt *core.Runtime, th *core.Thread, selector string, a, b float64, dest *core.Cell) {
	var v float64
	switch selector {
	case "+":
		v = a + b
	case "-":
		v = a - b
	case "*":
		v = a * b
	case "/":
		if b == 0 {
			raiseInvalid(rt, th, "/: division by zero")
			return
		}
		v = a / b
	case "modulo:":
		if b == 0 {
			raiseInvalid(rt, th, "modulo:: division by zero")
			return
		}
		v = math.Mod(a, b)
	default:
		raiseInvalid(rt, th, "%s: unsupported for mixed operands", selector)
		return
	}
	rt.Heap.AssignCell(dest, core.FromFloat(v))
}

func installFloatMethods(reg *Registry) {
	rt := reg.rt

	binop := func(selector string) {
		reg.addInstanceMethod("Float", selector, func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
				return
			}
			b, ok := numeric(argp[1])
			if !ok {
				raiseInvalid(rt, th, "%s: right operand is not a number", selector)
				return
			}
			floatBinop(rt, th, selector, argp[0].F, b, dest)
		})
	}
	cmp := func(selector string, fn func(a, b float64) bool) {
		reg.addInstanceMethod("Float", selector, func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
				return
			}
			b, ok := numeric(argp[1])
			if !ok {
				raiseInvalid(rt, th, "%s: right operand is not a number", selector)
				return
			}
			rt.Heap.AssignCell(dest, core.FromBool(fn(argp[0].F, b)))
		})
	}

	binop("+")
	binop("-")
	binop("*")
	binop("/")
	binop("modulo:")
	cmp("<", func(a, b float64) bool { return a < b })
	cmp(">", func(a, b float64) bool { return a > b })
	cmp("<=", func(a, b float64) bool { return a <= b })
	cmp(">=", func(a, b float64) bool { return a >= b })
	cmp("==", func(a, b float64) bool { return a == b })

	reg.addInstanceMethod("Float", "negate", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		rt.Heap.AssignCell(dest, core.FromFloat(-argp[0].F))
	})
	reg.addInstanceMethod("Float", "asInteger", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		rt.Heap.AssignCell(dest, core.FromInt(int64(argp[0].F)))
	})
	reg.addInstanceMethod("Float", "asString", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		s, err := rt.Heap.NewString(rt.Heap.StringClass, floatToString(argp[0].F))
		if err != nil {
			raiseInvalid(rt, th, "asString: %v", err)
			return
		}
		moveObjectInto(rt, dest, s)
	})
}

func intToString(i int64) string { return strconv.FormatInt(i, 10) }

func floatToString(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
