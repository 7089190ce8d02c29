package modload

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"oovm-go/internal/arena"
	"oovm-go/internal/builtin"
	"oovm-go/internal/core"
)

func newTestLoader(t *testing.T, dirs []string) (*Loader, *core.Runtime, *core.Thread) {
	t.Helper()
	h := core.NewHeap(arena.New())
	rt := core.NewRuntime(h)
	th, reg, err := builtin.Bootstrap(rt)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return NewLoader(rt, reg, dirs), rt, th
}

func TestFindSearchesPathInOrder(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	if err := os.WriteFile(filepath.Join(dirB, "libfoo.so"), []byte("not a real plugin"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	l, _, _ := newTestLoader(t, []string{dirA, dirB})
	path, ok := l.find("foo")
	if !ok {
		t.Fatal("find(\"foo\") = false, want true")
	}
	if path != filepath.Join(dirB, "libfoo.so") {
		t.Fatalf("find(\"foo\") = %q, want the dirB candidate", path)
	}
}

func TestFindReportsMissingModule(t *testing.T) {
	l, _, _ := newTestLoader(t, []string{t.TempDir()})
	if _, ok := l.find("nonexistent"); ok {
		t.Fatal("find(\"nonexistent\") = true, want false")
	}
}

func TestLoadMissingModuleRaisesModuleLoad(t *testing.T) {
	l, _, th := newTestLoader(t, []string{t.TempDir()})
	_, err := l.Load(th, "nope", nil, nil)
	if err == nil {
		t.Fatal("Load of a missing module returned nil error")
	}
	if got := core.ClassifyError(err); got != core.TypeModuleLoad {
		t.Fatalf("ClassifyError(err) = %q, want %q", got, core.TypeModuleLoad)
	}
}

func TestFingerprintStableForSameContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "libbar.so")
	if err := os.WriteFile(path, []byte("same bytes"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	a, err := fingerprint(path)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	b, err := fingerprint(path)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if a != b {
		t.Fatalf("fingerprint(%q) is not stable across calls", path)
	}
}

func TestUnloadNotLoadedRaisesModuleLoad(t *testing.T) {
	l, _, th := newTestLoader(t, nil)
	if err := l.Unload(th, "never-loaded"); err == nil {
		t.Fatal("Unload of a never-loaded module returned nil error")
	}
}

func TestRecursiveLockAllowsSameThreadReentry(t *testing.T) {
	l, _, th := newTestLoader(t, nil)
	done := make(chan struct{})
	l.lock(th)
	go func() {
		l.lock(th) // same thread identity: must not deadlock
		l.unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("same-thread re-entry deadlocked")
	}
	l.unlock()
}
