package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/r-che/cadfael/common/log"
	"github.com/r-che/cadfael/types"
	"github.com/r-che/cadfael/types/dbms"

	"github.com/go-redis/redis/v8"
)

// KEYS: inode hash, paths set, volume members set, route reverse index
// ARGV: identifier, volume, permission string, format, JSON document, route
var upsertScript = redis.NewScript(`
local inserted = 0
if redis.call('EXISTS', KEYS[1]) == 0 then
	redis.call('HSET', KEYS[1], 'volume', ARGV[2], 'permission_string', ARGV[3], 'format', ARGV[4], 'doc', ARGV[5])
	redis.call('SADD', KEYS[3], ARGV[1])
	inserted = 1
end
redis.call('SADD', KEYS[2], ARGV[6])
redis.call('SADD', KEYS[4], ARGV[1])
return inserted
`)

func (rc *Client) UpsertInode(ctx context.Context, in *types.Inode, route string) (bool, error) {
	if err := dbms.ValidateRecord(in, route); err != nil {
		return false, err
	}

	if rc.SkipWrite("Upsert %s => %s", in.ID, route) {
		return false, nil
	}
	log.D("(RedisCli:UpsertInode) Upsert %s => %s", in.ID, route)

	doc, err := encodeDoc(in)
	if err != nil {
		return false, fmt.Errorf("(RedisCli:UpsertInode) %w: cannot encode %s: %v", dbms.ErrInvalidRecord, in.ID, err)
	}

	inserted, err := upsertScript.Run(ctx, rc.c,
		[]string{ rc.inodeKey(in.ID), rc.pathsKey(in.ID), rc.volumeKey(in.Volume), rc.routeKey(route) },
		in.ID, in.Volume, in.Perms, in.Format, doc, route,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("(RedisCli:UpsertInode) upsert script for %s (route: %q) failed: %w", in.ID, route, err)
	}

	return inserted == 1, nil
}

// encodeDoc returns JSON document of the record without paths, paths are kept in the separate set
func encodeDoc(in *types.Inode) (string, error) {
	rec := in.Clone()
	rec.Paths = nil
	if rec.Details == nil {
		rec.Details = types.Details{}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func decodeDoc(doc string) (*types.Inode, error) {
	in := &types.Inode{}
	if err := json.Unmarshal([]byte(doc), in); err != nil {
		return nil, err
	}

	in.ATime, in.MTime, in.CTime = in.ATime.UTC(), in.MTime.UTC(), in.CTime.UTC()

	return in, nil
}

func (rc *Client) ResetVolume(ctx context.Context, volume string) (int64, error) {
	vKey := rc.volumeKey(volume)

	ids, err := rc.c.SMembers(ctx, vKey).Result()
	if err != nil {
		return 0, fmt.Errorf("(RedisCli:ResetVolume) cannot load members of volume %q: %w", volume, err)
	}

	if rc.SkipWrite("Delete %d records of volume %q", len(ids), volume) {
		return int64(len(ids)), nil
	}

	deleted := int64(0)
	for len(ids) != 0 {
		// Process identifiers by chunks
		n := len(ids)
		if n > RedisMaxScanKeys {
			n = RedisMaxScanKeys
		}
		chunk := ids[:n]
		ids = ids[n:]

		// Load routes of records to clean the reverse index
		pathsCmds := make([]*redis.StringSliceCmd, len(chunk))
		if _, err := rc.c.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, id := range chunk {
				pathsCmds[i] = pipe.SMembers(ctx, rc.pathsKey(id))
			}
			return nil
		}); err != nil {
			return deleted, fmt.Errorf("(RedisCli:ResetVolume) cannot load paths of volume %q records: %w", volume, err)
		}

		cmds, err := rc.c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, id := range chunk {
				for _, route := range pathsCmds[i].Val() {
					pipe.SRem(ctx, rc.routeKey(route), id)
				}
				pipe.Del(ctx, rc.inodeKey(id), rc.pathsKey(id))
				pipe.SRem(ctx, vKey, id)
			}
			return nil
		})
		if err != nil {
			return deleted, fmt.Errorf("(RedisCli:ResetVolume) delete of volume %q records failed: %w", volume, err)
		}

		for _, cmd := range cmds {
			if del, ok := cmd.(*redis.IntCmd); ok && cmd.Name() == "del" && del.Val() != 0 {
				deleted++
			}
		}
	}

	log.D("(RedisCli:ResetVolume) Deleted %d records of volume %q", deleted, volume)

	return deleted, nil
}

func (rc *Client) EnsureIndexes(ctx context.Context) error {
	if rc.SkipWrite("Create RediSearch index %q", rc.indexName()) {
		return nil
	}

	// Paths lookups are served by the reverse index maintained by upsert
	return rc.ensureIndex()
}

func (rc *Client) Lookup(ctx context.Context, l *dbms.Lookup) ([]*types.Inode, error) {
	var ids []string
	var err error

	if l.Path != "" {
		// Use the reverse index, other conditions are checked on loaded records
		ids, err = rc.c.SMembers(ctx, rc.routeKey(l.Path)).Result()
	} else {
		ids, err = rc.searchIDs(l)
	}
	if err != nil {
		return nil, fmt.Errorf("(RedisCli:Lookup) cannot select records by %s: %w", l.String(), err)
	}
	sort.Strings(ids)

	found := []*types.Inode{}
	for _, id := range ids {
		in, err := rc.loadInode(ctx, id)
		if errors.Is(err, redis.Nil) {
			log.W("(RedisCli:Lookup) Record %s was selected but does not exist, skip it", id)
			continue
		}
		if err != nil {
			return found, err
		}

		if !l.Match(in) {
			continue
		}

		found = append(found, in)
		if l.Limit > 0 && int64(len(found)) >= l.Limit {
			break
		}
	}

	return found, nil
}

func (rc *Client) loadInode(ctx context.Context, id string) (*types.Inode, error) {
	var docCmd *redis.StringCmd
	var pathsCmd *redis.StringSliceCmd

	if _, err := rc.c.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		docCmd = pipe.HGet(ctx, rc.inodeKey(id), docField)
		pathsCmd = pipe.SMembers(ctx, rc.pathsKey(id))
		return nil
	}); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("(RedisCli:loadInode) cannot load record %s: %w", id, err)
	}

	in, err := decodeDoc(docCmd.Val())
	if err != nil {
		return nil, fmt.Errorf("(RedisCli:loadInode) cannot decode record %s: %w", id, err)
	}

	in.Paths = pathsCmd.Val()
	sort.Strings(in.Paths)

	return in, nil
}
