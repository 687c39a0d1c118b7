package enrich

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/r-che/cadfael/types"
)

// Constraint holds if the value found by the nested lookup of Path
// is equal to one of the Accept values
type Constraint struct {
	Path	[]string
	Accept	[]any
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s in %v", strings.Join(c.Path, "."), c.Accept)
}

// Match returns true if the constraint holds on the snapshot
func (c Constraint) Match(snap map[string]any) bool {
	v, ok := lookup(snap, c.Path)
	if !ok {
		return false
	}

	for _, accept := range c.Accept {
		if equal(v, accept) {
			return true
		}
	}

	return false
}

// Predicate holds if all its constraints hold
type Predicate []Constraint

func (p Predicate) Match(snap map[string]any) bool {
	for _, c := range p {
		if !c.Match(snap) {
			return false
		}
	}

	return true
}

// lookup walks through nested maps by the keys of path
func lookup(snap map[string]any, path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}

	var cur any = snap
	for _, key := range path {
		var m map[string]any
		switch v := cur.(type) {
			case map[string]any:
				m = v
			case types.Details:
				m = v
			default:
				// Non-map intermediate value
				return nil, false
		}

		var ok bool
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}

	return cur, true
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	// Comparing of non-comparable values panics
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}

	return a == b
}
