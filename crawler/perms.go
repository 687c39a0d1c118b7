package crawler

import (
	"golang.org/x/sys/unix"

	"github.com/r-che/cadfael/types"
)

// Formats of inodes by the type bits of the mode
var fmtByType = map[uint32]string{
	unix.S_IFREG:	types.FmtFile,
	unix.S_IFDIR:	types.FmtDir,
	unix.S_IFLNK:	types.FmtSymlink,
	unix.S_IFSOCK:	types.FmtSocket,
	unix.S_IFIFO:	types.FmtPipe,
	unix.S_IFCHR:	types.FmtCharDev,
	unix.S_IFBLK:	types.FmtBlockDev,
}

// modeFormat returns the inode format by the raw mode, empty string for unknown types
func modeFormat(mode uint32) string {
	return fmtByType[mode & unix.S_IFMT]
}

// PermString makes ls(1) style permission string. Each special bit is shown
// in the execute slot of its class: setuid - user, setgid - group, sticky - other
func PermString(typeChar byte, mode uint32) string {
	ps := []byte{
		typeChar,
		bitChar(mode, unix.S_IRUSR, 'r'), bitChar(mode, unix.S_IWUSR, 'w'), bitChar(mode, unix.S_IXUSR, 'x'),
		bitChar(mode, unix.S_IRGRP, 'r'), bitChar(mode, unix.S_IWGRP, 'w'), bitChar(mode, unix.S_IXGRP, 'x'),
		bitChar(mode, unix.S_IROTH, 'r'), bitChar(mode, unix.S_IWOTH, 'w'), bitChar(mode, unix.S_IXOTH, 'x'),
	}

	overlay := func(special uint32, slot int, set, unset byte) {
		if mode & special == 0 {
			return
		}
		if ps[slot] == 'x' {
			ps[slot] = set
		} else {
			ps[slot] = unset
		}
	}

	overlay(unix.S_ISUID, 3, 's', 'S')
	overlay(unix.S_ISGID, 6, 's', 'S')
	overlay(unix.S_ISVTX, 9, 't', 'T')

	return string(ps)
}

func bitChar(mode, bit uint32, c byte) byte {
	if mode & bit != 0 {
		return c
	}
	return '-'
}
