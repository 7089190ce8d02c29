package core

import "unsafe"

// uintptrOf gives a stable identity value for an object's address, used
// only for the default (pointer-equality-consistent) hash of values that
// don't define their own hash/equal methods.
func uintptrOf(o *Object) uintptr {
	return uintptr(unsafe.Pointer(o))
}
