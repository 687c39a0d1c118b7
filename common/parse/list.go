/*
Package parse contains parsers of configuration values.
*/
package parse

import (
	"fmt"
	"strings"
)

// List makes the list of items from vals, each value can contain several
// comma-separated items. The order of the first occurrence is kept, duplicates
// are removed. Empty items are not allowed, if allowed values are provided
// each item must be one of them
func List(listName string, vals []string, allowed ...string) ([]string, error) {
	items := []string{}
	seen := map[string]bool{}

	for _, val := range vals {
		for _, item := range strings.Split(val, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				return nil, fmt.Errorf("empty %s item in %q", listName, vals)
			}
			if seen[item] {
				continue
			}
			seen[item] = true

			if len(allowed) != 0 && !contains(allowed, item) {
				return nil, fmt.Errorf("incorrect %s item %q, allowed values: %s",
					listName, item, strings.Join(allowed, ", "))
			}

			items = append(items, item)
		}
	}

	// OK
	return items, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
