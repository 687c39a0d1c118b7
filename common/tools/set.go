package tools

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

//
// Set - set of items
//
type Set[T constraints.Ordered] map[T]bool

func NewSet[T constraints.Ordered](values ...T) Set[T] {
	ss := make(Set[T], len(values))
	for _, v := range values {
		ss[v] = true
	}

	return ss
}

func (ss Set[T]) Add(values ...T) Set[T] {
	for _, v := range values {
		ss[v] = true
	}

	return ss
}

func (ss Set[T]) Del(values ...T) Set[T] {
	for _, v := range values {
		delete(ss, v)
	}

	return ss
}

// Sorted returns set items as a sorted list, never nil
func (ss Set[T]) Sorted() []T {
	sorted := make([]T, 0, len(ss))
	for s := range ss {
		sorted = append(sorted, s)
	}

	return SortUniqItems(sorted)
}

func (ss Set[T]) Includes(v T) bool {
	_, ok := ss[v]
	return ok
}

// AddComplement adds values to the set and returns the sorted list of values that were not in the set before
func (ss Set[T]) AddComplement(values ...T) []T {
	compl := make([]T, 0, len(values))
	for _, v := range values {
		// Is value already exists?
		if _, ok := ss[v]; ok {
			// Skip it
			continue
		}

		// Add value to the complement
		compl = append(compl, v)

		// Add to the set
		ss[v] = true
	}

	return SortUniqItems(compl)
}

func (ss Set[T]) String() string {
	items := ss.Sorted()

	strs := make([]string, 0, len(items))
	for _, v := range items {
		strs = append(strs, fmt.Sprintf("%v", v))
	}

	return "(" + strings.Join(strs, ", ") + ")"
}

func (ss Set[T]) Empty() bool {
	return len(ss) == 0
}

func (ss Set[T]) Len() int {
	return len(ss)
}
