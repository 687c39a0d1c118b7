/*
Package dbi opens catalog store sessions, the backend is selected by the
scheme of the database address:

	mongodb://host:port			MongoDB
	redis://host:port[/db]		Redis with RediSearch module
	memory://name				in-process store
*/
package dbi

import (
	"context"
	"fmt"
	"strings"

	"github.com/r-che/cadfael/common/log"
	"github.com/r-che/cadfael/dbi/memory"
	"github.com/r-che/cadfael/dbi/mongo"
	"github.com/r-che/cadfael/dbi/redis"
	"github.com/r-che/cadfael/types/dbms"
)

// Backend returns the backend name selected by the address scheme
func Backend(addr string) (string, error) {
	scheme, _, ok := strings.Cut(addr, "://")
	if !ok {
		return "", fmt.Errorf("(dbi:Backend) address %q does not contain scheme", addr)
	}

	switch scheme {
		case dbms.BackendMongo, "mongodb+srv":
			return dbms.BackendMongo, nil
		case dbms.BackendRedis, "rediss":
			return dbms.BackendRedis, nil
		case dbms.BackendMemory:
			return dbms.BackendMemory, nil
		default:
			return "", fmt.Errorf("(dbi:Backend) unsupported database scheme %q in address %q", scheme, addr)
	}
}

// Open opens new session to the catalog store
func Open(ctx context.Context, dbCfg *dbms.DBConfig) (dbms.Catalog, error) {
	backend, err := Backend(dbCfg.HostPort)
	if err != nil {
		return nil, err
	}

	log.D("(dbi:Open) Opening %s session to %s (id: %s)", backend, dbCfg.HostPort, dbCfg.ID)

	// Typed nil clients must not be returned as non-nil interfaces
	switch backend {
		case dbms.BackendMongo:
			mc, err := mongo.NewClient(ctx, dbCfg)
			if err != nil {
				return nil, err
			}
			return mc, nil
		case dbms.BackendRedis:
			rc, err := redis.NewClient(ctx, dbCfg)
			if err != nil {
				return nil, err
			}
			return rc, nil
		default:
			_, name, _ := strings.Cut(dbCfg.HostPort, "://")
			return memory.NewClient(dbCfg, name), nil
	}
}

// NewFactory returns the factory of sessions configured by dbCfg
func NewFactory(dbCfg *dbms.DBConfig) dbms.Factory {
	return func(ctx context.Context) (dbms.Catalog, error) {
		return Open(ctx, dbCfg)
	}
}

// PrepareVolume deletes all records of the volume if reset is set, then
// creates indexes. It is performed before a crawl of the volume
func PrepareVolume(ctx context.Context, cat dbms.Catalog, volume string, reset bool) error {
	if reset {
		deleted, err := cat.ResetVolume(ctx, volume)
		if err != nil {
			return fmt.Errorf("(dbi:PrepareVolume) cannot reset volume %q: %w", volume, err)
		}
		log.I("(dbi:PrepareVolume) Volume %q was reset, %d records deleted", volume, deleted)
	}

	if err := cat.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("(dbi:PrepareVolume) %w", err)
	}

	// OK
	return nil
}
