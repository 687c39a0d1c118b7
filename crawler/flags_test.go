package crawler

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagNames(t *testing.T) {
	tests := []struct {
		flags	uint32
		want	[]string
	} {
		{ 0, []string{} },
		{ SF_ARCHIVED, []string{FlagArchived} },
		{ UF_OPAQUE, []string{FlagOpaque} },
		{ UF_NODUMP, []string{FlagNoDump} },
		{ UF_APPEND, []string{FlagSAppend} },
		{ SF_APPEND, []string{FlagSAppend} },
		{ UF_IMMUTABLE, []string{FlagUAppend} },
		{ SF_IMMUTABLE, []string{FlagUAppend} },
		{ UF_HIDDEN, []string{FlagHidden} },
		// Unknown bits are ignored
		{ 0x00100000, []string{} },
	}

	for _, test := range tests {
		assert.Equal(t, test.want, FlagNames(test.flags), "flags %#x", test.flags)
	}
}

func TestFlagNamesAll(t *testing.T) {
	all := uint32(UF_NODUMP | UF_IMMUTABLE | UF_APPEND | UF_OPAQUE | UF_HIDDEN |
		SF_ARCHIVED | SF_IMMUTABLE | SF_APPEND)

	want := []string{FlagArchived, FlagOpaque, FlagNoDump, FlagSAppend, FlagUAppend, FlagHidden}
	sort.Strings(want)

	assert.Equal(t, want, FlagNames(all))
}
