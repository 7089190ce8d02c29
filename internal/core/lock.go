package core

import (
	"errors"
	"sync"
)

// ErrDescentLoop is returned by objLock.Lock when the calling thread is
// already the holder of this exact object's lock — i.e. some traversal
// (print, deep-copy, hash) has walked back into a container it is already
// inside. Spec §4.B: "held with error-checking so that a recursive
// re-entry raises a descent loop exception rather than deadlocking."
var ErrDescentLoop = errors.New("core: descent loop")

// objLock is the per-object, recursive-aware mutex guarding a container's
// mutable interior (hash buckets, list links). It is "recursive-aware" in
// the error-checking sense, not the reentrant-mutex sense: a thread that
// already holds the lock is refused rather than allowed to stack a second
// acquisition, because a second acquisition from the same logical
// traversal only happens when the data structure cycles back on itself.
type objLock struct {
	mu    sync.Mutex
	cond  *sync.Cond
	owner *Thread
}

// Lock acquires the object's interior lock on behalf of th, blocking while
// another thread holds it. It returns ErrDescentLoop instead of blocking
// when th already holds this exact lock.
func (l *objLock) Lock(th *Thread) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cond == nil {
		l.cond = sync.NewCond(&l.mu)
	}
	for l.owner != nil && l.owner != th {
		l.cond.Wait()
	}
	if l.owner == th {
		return ErrDescentLoop
	}
	l.owner = th
	return nil
}

// Unlock releases the lock. Unlock on a lock not held by th is a bug in
// the caller and is ignored rather than panicking, matching the VM's
// policy of never letting an internal invariant violation propagate as a
// user-visible exception (spec §7).
func (l *objLock) Unlock(th *Thread) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner != th {
		return
	}
	l.owner = nil
	if l.cond != nil {
		l.cond.Signal()
	}
}

// WithLock runs fn while holding the object's interior lock on behalf of
// th, returning ErrDescentLoop without running fn on reentry.
func (o *Object) WithLock(th *Thread, fn func() error) error {
	if err := o.lock.Lock(th); err != nil {
		return err
	}
	defer o.lock.Unlock(th)
	return fn()
}
