package crawler

import (
	"sort"
)

// BSD file flags, values are the same on darwin and freebsd
const (
	UF_NODUMP		=	0x00000001
	UF_IMMUTABLE	=	0x00000002
	UF_APPEND		=	0x00000004
	UF_OPAQUE		=	0x00000008
	UF_HIDDEN		=	0x00008000
	SF_ARCHIVED		=	0x00010000
	SF_IMMUTABLE	=	0x00020000
	SF_APPEND		=	0x00040000
)

// Flag names
const (
	FlagArchived	=	"archived"
	FlagOpaque		=	"opaque"
	FlagNoDump		=	"nodump"
	FlagSAppend		=	"sappend"
	FlagUAppend		=	"uappend"
	FlagHidden		=	"hidden"
)

var flagBits = []struct {
	name	string
	mask	uint32
} {
	{ FlagArchived,	SF_ARCHIVED },
	{ FlagOpaque,	UF_OPAQUE },
	{ FlagNoDump,	UF_NODUMP },
	{ FlagSAppend,	UF_APPEND | SF_APPEND },
	{ FlagUAppend,	UF_IMMUTABLE | SF_IMMUTABLE },
	{ FlagHidden,	UF_HIDDEN },
}

// FlagNames returns the sorted list of names of flags set in flags,
// unknown bits are ignored
func FlagNames(flags uint32) []string {
	names := []string{}
	for _, fb := range flagBits {
		if flags & fb.mask != 0 {
			names = append(names, fb.name)
		}
	}
	sort.Strings(names)

	return names
}
