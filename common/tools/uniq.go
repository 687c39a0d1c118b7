package tools

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// SortUniqItems removes duplicates from items in place and returns the sorted result
func SortUniqItems[T constraints.Ordered](items []T) []T {
	// Make items unique
	nextUniq := 0
	uniqs := make(map[T]bool, len(items))

	for _, item := range items {
		// Check for item already present
		if uniqs[item] {
			// Skip it
			continue
		}
		uniqs[item] = true

		// Move unique item to the next position of unique item
		items[nextUniq] = item
		nextUniq++
	}
	items = items[:nextUniq]

	sort.Slice(items, func(i, j int) bool {
		return items[i] < items[j]
	})

	return items
}
