package helpers

import "sort"

// IfElse returns valueIfTrue or valueIfFalse depending on isTrue.
func IfElse[V any](isTrue bool, valueIfTrue, valueIfFalse V) V {
	if isTrue {
		return valueIfTrue
	}
	return valueIfFalse
}

// SliceContains returns true if and only if the slice has an element that equals the value.
func SliceContains[V comparable](value V, slice []V) bool {
	for _, element := range slice {
		if element == value {
			return true
		}
	}
	return false
}

// AnyInSlice returns true if at least one of values appears in slice.
func AnyInSlice[V comparable](values []V, slice []V) bool {
	for _, v := range values {
		if SliceContains(v, slice) {
			return true
		}
	}
	return false
}

// CopyOf returns a shallow copy of the slice, or nil for an empty slice.
func CopyOf[V any](slice []V) []V {
	if len(slice) == 0 {
		return nil
	}
	return append([]V(nil), slice...)
}

// Sorted returns a sorted copy of a string slice.
func Sorted(slice []string) []string {
	ret := CopyOf(slice)
	sort.Strings(ret)
	return ret
}
