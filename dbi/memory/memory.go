/*
Package memory implements the catalog store in the process memory.

Stores are identified by name, all sessions opened with the same name share
the same records, so a crawl with many workers behaves the same way as with
the persistent backends. It is used by tests and for dry runs.
*/
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/r-che/cadfael/common/log"
	"github.com/r-che/cadfael/types"
	"github.com/r-che/cadfael/types/dbms"
)

type store struct {
	mtx		sync.Mutex
	inodes	map[string]*types.Inode
}

var (
	storesMtx	sync.Mutex
	stores		= map[string]*store{}
)

func getStore(name string) *store {
	storesMtx.Lock()
	defer storesMtx.Unlock()

	s, ok := stores[name]
	if !ok {
		s = &store{inodes: map[string]*types.Inode{}}
		stores[name] = s
	}

	return s
}

// Drop removes the named store with all its records
func Drop(name string) {
	storesMtx.Lock()
	defer storesMtx.Unlock()

	delete(stores, name)
}

type Client struct {
	*dbms.CommonClient

	name	string
	s		*store
	closed	bool
}

// NewClient opens a session to the store named by the host part of
// the address (memory://<name>), an empty name selects the database identifier
func NewClient(dbCfg *dbms.DBConfig, name string) *Client {
	if name == "" {
		name = dbCfg.ID
	}

	return &Client{
		CommonClient:	dbms.NewCommonClient(dbms.BackendMemory, dbCfg),
		name:			name,
		s:				getStore(name),
	}
}

func (mc *Client) checkOpen(fn string) error {
	if mc.closed {
		return fmt.Errorf("(MemoryCli:%s) session to %q is closed", fn, mc.name)
	}
	return nil
}

func (mc *Client) UpsertInode(ctx context.Context, in *types.Inode, route string) (bool, error) {
	if err := mc.checkOpen("UpsertInode"); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("(MemoryCli:UpsertInode) %w", err)
	}
	if err := dbms.ValidateRecord(in, route); err != nil {
		return false, err
	}
	if mc.SkipWrite("Upsert %s => %s", in.ID, route) {
		return false, nil
	}

	mc.s.mtx.Lock()
	defer mc.s.mtx.Unlock()

	if rec, ok := mc.s.inodes[in.ID]; ok {
		// Only merge the route
		for _, p := range rec.Paths {
			if p == route {
				return false, nil
			}
		}
		rec.Paths = append(rec.Paths, route)

		return false, nil
	}

	rec := in.Clone()
	rec.Paths = []string{route}
	if rec.Details == nil {
		rec.Details = types.Details{}
	}
	mc.s.inodes[in.ID] = rec

	return true, nil
}

func (mc *Client) ResetVolume(ctx context.Context, volume string) (int64, error) {
	if err := mc.checkOpen("ResetVolume"); err != nil {
		return 0, err
	}

	mc.s.mtx.Lock()
	defer mc.s.mtx.Unlock()

	ro := mc.SkipWrite("Delete all records of volume %q", volume)

	deleted := int64(0)
	for id, rec := range mc.s.inodes {
		if rec.Volume != volume {
			continue
		}
		if !ro {
			delete(mc.s.inodes, id)
		}
		deleted++
	}

	log.D("(MemoryCli:ResetVolume) Deleted %d records of volume %q from %q", deleted, volume, mc.name)

	return deleted, nil
}

func (mc *Client) EnsureIndexes(ctx context.Context) error {
	// Nothing to index
	return mc.checkOpen("EnsureIndexes")
}

func (mc *Client) Lookup(ctx context.Context, l *dbms.Lookup) ([]*types.Inode, error) {
	if err := mc.checkOpen("Lookup"); err != nil {
		return nil, err
	}

	mc.s.mtx.Lock()
	found := []*types.Inode{}
	for _, rec := range mc.s.inodes {
		if l.Match(rec) {
			found = append(found, rec.Clone())
		}
	}
	mc.s.mtx.Unlock()

	sort.Slice(found, func(i, j int) bool {
		return found[i].ID < found[j].ID
	})
	for _, rec := range found {
		sort.Strings(rec.Paths)
	}

	if l.Limit > 0 && int64(len(found)) > l.Limit {
		found = found[:l.Limit]
	}

	return found, nil
}

func (mc *Client) Close(ctx context.Context) error {
	if err := mc.checkOpen("Close"); err != nil {
		return err
	}
	mc.closed = true

	return nil
}
