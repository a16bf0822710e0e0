// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package utils

// Pointer returns a pointer to the given value.
// Usage:
//
//	ptr := utils.Pointer(42) // *int pointing to 42
func Pointer[T any](val T) *T {
	return &val
}

// Value returns the value of a pointer, or the zero value if the
// pointer is nil.
// Usage:
//
//	val := utils.Value(ptr) // returns value pointed by ptr, or zero value
func Value[T any](ptr *T) T {
	var val T
	if ptr != nil {
		val = *ptr
	}
	return val
}

// BoolP returns a pointer to the given bool value.
// Usage:
//
//	ptr := utils.BoolP(true) // *bool pointing to true
func BoolP(val bool) *bool {
	return Pointer(val)
}
