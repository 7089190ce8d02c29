// Command oovm is the CLI driver for the VM (spec §6 "CLI driver
// (external collaborator)"): it loads a module, resolves a class and
// method within it, dispatches with the remaining arguments, and exits
// with the method's integer result.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"oovm-go/internal/obs"
	"oovm-go/pkg/vm"
)

var (
	verbose     = flag.Bool("v", false, "verbose logging")
	modulePath  = flag.String("modpath", "", "module search path, overriding OOVM_MODULE_PATH (platform list separator)")
	stackSize   = flag.Int("stack", 0, "main thread value-stack size in cells (0 = default)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "oovm - object VM driver\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options] module[.class[.method]] [args...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s hello                 # hello.Start.start\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s hello.Greeter         # hello.Greeter.start\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s hello.Greeter.run arg1 arg2\n", os.Args[0])
	}
	flag.Parse()

	if *verbose {
		obs.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	dirs := splitModulePath(*modulePath)

	machine, err := vm.Init(vm.Options{ValueStackSize: *stackSize, ModulePath: dirs})
	if err != nil {
		fmt.Fprintf(os.Stderr, "oovm: init: %v\n", err)
		os.Exit(1)
	}

	ep := vm.ParseEntryPoint(flag.Arg(0))
	code, runErr := machine.RunByName(ep, flag.Args()[1:])
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "oovm: %v\n", runErr)
	}
	os.Exit(code)
}

// splitModulePath resolves the module search path: an explicit -modpath
// flag wins, otherwise OOVM_MODULE_PATH is parsed by the platform list
// separator (spec §6 "Configuration... one environment variable names
// the list of directories to search for modules, delimited by the
// platform path separator").
func splitModulePath(flagValue string) []string {
	raw := flagValue
	if raw == "" {
		raw = os.Getenv("OOVM_MODULE_PATH")
	}
	if raw == "" {
		return nil
	}
	return filepath.SplitList(raw)
}
