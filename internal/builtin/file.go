package builtin

import (
	"bufio"
	"os"

	"oovm-go/internal/core"
)

// installFileMethods wires up File's instance methods and pre-binds the
// three standard streams as class-scoped instances (spec §4.J "File
// pre-binds class-scoped stdin, stdout, stderr instances").
func installFileMethods(reg *Registry, th *core.Thread) {
	rt := reg.rt
	fileClass := reg.class("File")

	stdin := rt.Heap.NewFile(fileClass, "<stdin>", "r", os.Stdin)
	stdout := rt.Heap.NewFile(fileClass, "<stdout>", "w", os.Stdout)
	stderr := rt.Heap.NewFile(fileClass, "<stderr>", "w", os.Stderr)

	cv := classVarsOf(reg, fileClass)
	rt.Heap.DictSetString(th, cv, "stdin", core.FromObject(stdin))
	rt.Heap.DictSetString(th, cv, "stdout", core.FromObject(stdout))
	rt.Heap.DictSetString(th, cv, "stderr", core.FromObject(stderr))

	classStream := func(selector, key string) {
		reg.addClassMethod("File", selector, func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
			if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
				return
			}
			v, _ := rt.Heap.DictGetString(classVarsOf(reg, fileClass), key)
			rt.Heap.AssignCell(dest, v)
		})
	}
	classStream("stdin", "stdin")
	classStream("stdout", "stdout")
	classStream("stderr", "stderr")

	reg.addClassMethod("File", "open:mode:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 3, 3)) {
			return
		}
		nameData := core.StringOf(argp[1].Obj)
		modeData := core.StringOf(argp[2].Obj)
		if nameData == nil || modeData == nil {
			raiseInvalid(rt, th, "open:mode:: filename and mode must be Strings")
			return
		}
		flag, perm := fileFlags(modeData.String())
		f, err := os.OpenFile(nameData.String(), flag, perm)
		if err != nil {
			rt.RaiseType(th, core.TypeFileOpen, "open:mode:: "+err.Error(), core.Nil())
			return
		}
		obj := rt.Heap.NewFile(fileClass, nameData.String(), modeData.String(), f)
		moveObjectInto(rt, dest, obj)
	})

	reg.addInstanceMethod("File", "write:", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 2, 2)) {
			return
		}
		fd := core.FileOf(argp[0].Obj)
		sd := core.StringOf(argp[1].Obj)
		if fd == nil || fd.Handle == nil || sd == nil {
			raiseInvalid(rt, th, "write:: bad receiver or argument")
			return
		}
		if _, err := fd.Handle.WriteString(sd.String()); err != nil {
			rt.RaiseType(th, core.TypeFileOpen, "write:: "+err.Error(), core.Nil())
			return
		}
		rt.Heap.AssignCell(dest, core.Nil())
	})

	reg.addInstanceMethod("File", "readLine", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		fd := core.FileOf(argp[0].Obj)
		if fd == nil || fd.Handle == nil {
			raiseInvalid(rt, th, "readLine: bad receiver")
			return
		}
		if fd.Reader == nil {
			fd.Reader = bufio.NewReader(fd.Handle)
		}
		line, err := fd.Reader.ReadString('\n')
		if err != nil && line == "" {
			rt.Heap.AssignCell(dest, core.Nil())
			return
		}
		s, serr := rt.Heap.NewString(rt.Heap.StringClass, trimNewline(line))
		if serr != nil {
			raiseInvalid(rt, th, "readLine: %v", serr)
			return
		}
		moveObjectInto(rt, dest, s)
	})

	reg.addInstanceMethod("File", "close", func(th *core.Thread, argc int, argp []core.Cell, dest *core.Cell) {
		if raiseArity(rt, th, core.CheckArgs(argc, 1, 1)) {
			return
		}
		fd := core.FileOf(argp[0].Obj)
		if fd != nil && fd.Handle != nil {
			fd.Handle.Close()
			fd.Handle = nil
			fd.Reader = nil
		}
		rt.Heap.AssignCell(dest, core.Nil())
	})
}

func fileFlags(mode string) (int, os.FileMode) {
	switch mode {
	case "r":
		return os.O_RDONLY, 0644
	case "w":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, 0644
	case "a":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, 0644
	default:
		return os.O_RDONLY, 0644
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
