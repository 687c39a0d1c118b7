//go:build darwin || freebsd

package crawler

import "golang.org/x/sys/unix"

func statFlags(st *unix.Stat_t) uint32 {
	return uint32(st.Flags)
}
