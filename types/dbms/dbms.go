/*
Package dbms defines the catalog store contract shared by all database backends.
*/
package dbms

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/r-che/cadfael/types"
)

// Supported backends, selected by the scheme of the database address
const (
	BackendMongo	=	"mongodb"
	BackendRedis	=	"redis"
	BackendMemory	=	"memory"
)

// Returned when a record cannot be stored because of its content,
// for example a non UTF-8 route. Such error affects only this record
var ErrInvalidRecord = errors.New("invalid record")

// Standard database connection configuration
type DBConfig struct {
	// Connection information
	HostPort	string	// address with scheme, e.g. mongodb://127.0.0.1:27017

	// Database specific information
	ID			string			// Database identifier - name, number, etc...
	PrivCfg		map[string]any	// Private configuration loaded from JSON

	ReadOnly	bool	// do not perform any modifications of the database
}

// Lookup selects records, empty fields are not used as conditions
type Lookup struct {
	Volume	string
	Perms	string
	Path	string
	Limit	int64	// 0 - no limits
}

func (l *Lookup) String() string {
	return fmt.Sprintf("volume=%q perms=%q path=%q limit=%d", l.Volume, l.Perms, l.Path, l.Limit)
}

// Match returns true if the record satisfies the lookup conditions
func (l *Lookup) Match(in *types.Inode) bool {
	if l.Volume != "" && in.Volume != l.Volume {
		return false
	}
	if l.Perms != "" && in.Perms != l.Perms {
		return false
	}
	if l.Path == "" {
		return true
	}
	for _, p := range in.Paths {
		if p == l.Path {
			return true
		}
	}

	return false
}

//
// Catalog is one session to the catalog store. A session must not be shared
// between crawler workers, each worker opens its own
//
type Catalog interface {
	// UpsertInode atomically inserts the record if no record with the same
	// identifier exists, otherwise only adds the route to the record paths.
	// Non-path fields of an existing record are never overwritten
	UpsertInode(ctx context.Context, in *types.Inode, route string) (inserted bool, err error)

	// ResetVolume deletes all records of the volume
	ResetVolume(ctx context.Context, volume string) (deleted int64, err error)

	// EnsureIndexes creates indexes by volume, permission string and paths
	EnsureIndexes(ctx context.Context) error

	Lookup(ctx context.Context, l *Lookup) ([]*types.Inode, error)

	Close(ctx context.Context) error
}

// Factory opens new catalog sessions
type Factory func(ctx context.Context) (Catalog, error)

// ValidateRecord checks that all strings of the record can be stored
func ValidateRecord(in *types.Inode, route string) error {
	check := func(field, v string) error {
		if !utf8.ValidString(v) {
			return fmt.Errorf("%w: field %q of %s contains non UTF-8 value %q", ErrInvalidRecord, field, in.ID, v)
		}
		return nil
	}

	if err := check(types.FieldVolume, in.Volume); err != nil {
		return err
	}
	if err := check(types.FieldPaths, route); err != nil {
		return err
	}

	return validateValue(in.ID, types.FieldDetails, in.Details)
}

func validateValue(id, field string, v any) error {
	switch val := v.(type) {
	case string:
		if !utf8.ValidString(val) {
			return fmt.Errorf("%w: field %q of %s contains non UTF-8 value %q", ErrInvalidRecord, field, id, val)
		}
	case []string:
		for _, s := range val {
			if err := validateValue(id, field, s); err != nil {
				return err
			}
		}
	case map[string]any:
		for k, item := range val {
			if err := validateValue(id, field + "." + k, item); err != nil {
				return err
			}
		}
	case types.Details:
		return validateValue(id, field, map[string]any(val))
	case map[string][]string:
		for k, item := range val {
			if err := validateValue(id, field + "." + k, item); err != nil {
				return err
			}
		}
	case []types.EntitlementEntry:
		for _, e := range val {
			if err := validateValue(id, field + "." + e.Name, e.Value); err != nil {
				return err
			}
		}
	}

	return nil
}
