//go:build unix

/*
Package fschecks contains checks of files that carry private data, such as
database credentials passed by --db-priv-cfg.
*/
package fschecks

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type OwnerError struct {
	err error
}
func (e *OwnerError) Error() string {
	return e.err.Error()
}
func (e *OwnerError) Unwrap() error {
	return e.err
}
type ErrGetOwner struct { OwnerError }
type ErrOwner struct { OwnerError }
type ErrPerm struct { OwnerError }

// PrivOwnership checks that the private file belongs to the current
// user and is not readable or writable by the group and others
func PrivOwnership(file string) error {
	uid := os.Getuid()

	var st unix.Stat_t
	if err := sysStat(file, &st); err != nil {
		return &ErrGetOwner{OwnerError{fmt.Errorf("(fschecks:PrivOwnership) cannot stat %q: %w", file, err)}}
	}

	// Check ownership
	if uint32(uid) != st.Uid {
		return &ErrOwner{OwnerError{fmt.Errorf(
			"UID of the user running the application is %d, but the UID of the owner of the file %q is %d - " +
			"refusing to use this file, the file must belong to the application user",
			uid, file, st.Uid)}}
	}

	// Check the file access mode
	if mode := uint32(st.Mode) & 0o777; mode & 0o066 != 0 {
		return &ErrPerm{OwnerError{fmt.Errorf(
			"file %q must NOT be read/write accessible by the group/all users, " +
			"only the application user must have read access to it, current permission mode is: %o",
			file, mode)}}
	}

	// OK
	return nil
}

// Replaceable in tests
var sysStat = unix.Stat
