package parse

import (
	"testing"
)

func TestList(t *testing.T) {
	tests := []struct {
		name	string
		vals	[]string
		allowed	[]string
		want	[]string
		errStr	string
	} {
		// Positive tests
		{	// No values
			name:		"empty",
			want:		[]string{},
		},
		{	// Normal list, no allowed values
			name:		"normal",
			vals:		[]string{"val3", "val1,val2"},
			want:		[]string{"val3", "val1", "val2"},
		},
		{	// Duplicates and spaces, with allowed values
			name:		"dupes",
			vals:		[]string{"val2, val1", "val2"},
			allowed:	[]string{"val1", "val2"},
			want:		[]string{"val2", "val1"},
		},

		// Negative tests
		{	// Disallowed value
			name:		"modules",
			vals:		[]string{"val1", "VAL2"},
			allowed:	[]string{"val1", "val2"},
			errStr:		`incorrect modules item "VAL2", allowed values: val1, val2`,
		},
		{	// Empty item
			name:		"modules",
			vals:		[]string{"val1,,val2"},
			errStr:		`empty modules item in ["val1,,val2"]`,
		},
	}

	for testN, test := range tests {
		res, err := List(test.name, test.vals, test.allowed...)
		if err != nil {
			if test.errStr == "" {
				t.Errorf("[%d] case %q failed: %v", testN, test.name, err)
			} else if err.Error() != test.errStr {
				t.Errorf("[%d] case %q failed with unexpected error %q - want error %q",
					testN, test.name, err, test.errStr)
			}
			continue
		}

		if test.errStr != "" {
			t.Errorf("[%d] case %q must fail, but it did not", testN, test.name)
			continue
		}

		if len(res) != len(test.want) {
			t.Errorf("[%d] case %q has wrong result: got - %#v, want - %#v", testN, test.name, res, test.want)
			continue
		}
		for i := range res {
			if res[i] != test.want[i] {
				t.Errorf("[%d] case %q has wrong result: got - %#v, want - %#v", testN, test.name, res, test.want)
				break
			}
		}
	}
}
