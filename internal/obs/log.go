// Package obs centralizes the VM's structured logging: bootstrap,
// garbage-collection cycles, module load/unload, and thread fatal
// termination (spec §4.A GC trigger, §4.K module loader, §7 fatal
// errors). It wraps log/slog rather than rolling a bespoke logger, the
// same ambient-stack choice the rest of the module makes for anything
// that isn't the interpreter's own domain logic.
package obs

import (
	"log/slog"
	"os"
)

// logger is the VM-wide structured logger. A package-level default keeps
// call sites terse (obs.Bootstrap(...), obs.GCCycle(...)); embedders that want
// a different sink call SetLogger once during Init.
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// SetLogger replaces the package-wide logger, e.g. to route to JSON or
// raise the level for a quiet CLI run.
func SetLogger(l *slog.Logger) { logger = l }

// Bootstrap logs VM startup: class count and main-thread id.
func Bootstrap(classCount int, mainThreadID int) {
	logger.Info("vm bootstrap", "classes", classCount, "main_thread", mainThreadID)
}

// GCCycle logs one mark-sweep pass (spec §4.A "a global counter of
// allocations triggers a collection").
func GCCycle(allocations, freed, live int64) {
	logger.Info("gc cycle", "allocations", allocations, "freed", freed, "live", live)
}

// ModuleLoaded logs a successful module link (spec §4.K).
func ModuleLoaded(name, path string, cloned bool) {
	logger.Info("module loaded", "name", name, "path", path, "cloned", cloned)
}

// ModuleLoadFailed logs a failed module resolution or link attempt.
func ModuleLoadFailed(name string, err error) {
	logger.Warn("module load failed", "name", name, "error", err)
}

// ModuleUnloaded logs a module release.
func ModuleUnloaded(name string) {
	logger.Info("module unloaded", "name", name)
}

// ThreadFatal logs a thread-terminating condition and its backtrace
// (spec §7 "the thread loop ... recovers it only to print a backtrace
// and end the thread"), one frame-class name per line in backtrace.
func ThreadFatal(threadID int, threadName, reason string, backtrace []string) {
	logger.Error("thread terminated", "thread_id", threadID, "thread", threadName, "reason", reason, "backtrace", backtrace)
}

// ThreadStart and ThreadExit log ordinary thread lifecycle (spec §4.I).
func ThreadStart(threadID int, name string) {
	logger.Debug("thread start", "thread_id", threadID, "thread", name)
}

func ThreadExit(threadID int, name string) {
	logger.Debug("thread exit", "thread_id", threadID, "thread", name)
}
