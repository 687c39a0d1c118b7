//go:build !darwin && !freebsd

package crawler

import "golang.org/x/sys/unix"

// File flags are not supported, reported as absent
func statFlags(_ *unix.Stat_t) uint32 {
	return 0
}
