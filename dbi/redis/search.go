package redis

import (
	"fmt"
	"strings"

	"github.com/r-che/cadfael/common/log"
	"github.com/r-che/cadfael/types"
	"github.com/r-che/cadfael/types/dbms"

	"github.com/gomodule/redigo/redis"
	rsh "github.com/RediSearch/redisearch-go/redisearch"
)

const (
	inodesIdxSuffix	=	"-inodes-idx"
	objsPerQuery	=	1000

	// Estimated maximum number of search results, empiric value
	estResultsCount	=	32
)

func (rc *Client) indexName() string {
	return strings.TrimSuffix(rc.ns, ":") + inodesIdxSuffix
}

func (rc *Client) rschInit(rschIdx string) (*rsh.Client, *redis.Pool) {
	// Check for DB ID is not 0
	if rc.opts.DB != 0 {
		// It may cause problems
		log.W("(RedisCli:rschInit) WARNING! Redis DB ID is set to %d - it may cause incorrect results " +
			"due to RediSearch does not work on DBs with non-zero ID, see: %s",
			rc.opts.DB, `https://github.com/RediSearch/RediSearch/issues/367`)
	}

	user, passw := rc.opts.Username, rc.opts.Password

	// Create pool to have ability to provide authentication and database identifier
	pool := &redis.Pool{
		MaxIdle:	1,
		Dial: func() (redis.Conn, error) {
			if passw == "" {
				// Simple dial
				return redis.Dial("tcp", rc.opts.Addr, redis.DialDatabase(rc.opts.DB))
			}
			// Dial with authentication
			return redis.Dial("tcp", rc.opts.Addr,
				redis.DialDatabase(rc.opts.DB),
				redis.DialUsername(user),
				redis.DialPassword(passw),
			)
		},
	}

	// OK, return client from pool
	return rsh.NewClientFromPool(pool, rschIdx), pool
}

func (rc *Client) ensureIndex() error {
	sc := rsh.NewSchema(rsh.DefaultOptions).
		AddField(rsh.NewTagField(types.FieldVolume)).
		AddField(rsh.NewTagField(types.FieldPerms))

	def := rsh.NewIndexDefinition().AddPrefix(rc.ns + RedisInodePrefix)

	if err := rc.rsch.CreateIndexWithIndexDefinition(sc, def); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "index already exists") {
			log.D("(RedisCli:ensureIndex) RediSearch index %q already exists", rc.indexName())
			return nil
		}
		return fmt.Errorf("(RedisCli:ensureIndex) cannot create RediSearch index %q: %w", rc.indexName(), err)
	}

	log.D("(RedisCli:ensureIndex) Created RediSearch index %q", rc.indexName())

	// OK
	return nil
}

// escapeTag escapes value to be used inside of the TAG field condition
func escapeTag(v string) string {
	return strings.ReplaceAll(rsh.EscapeTextFileString(v), " ", `\ `)
}

func makeQuery(l *dbms.Lookup) string {
	chunks := []string{}

	if l.Volume != "" {
		chunks = append(chunks, `@` + types.FieldVolume + `:{` + escapeTag(l.Volume) + `}`)
	}
	if l.Perms != "" {
		chunks = append(chunks, `@` + types.FieldPerms + `:{` + escapeTag(l.Perms) + `}`)
	}

	if len(chunks) == 0 {
		// Match all documents
		return `*`
	}

	return strings.Join(chunks, " ")
}

func (rc *Client) searchIDs(l *dbms.Lookup) ([]string, error) {
	q := rsh.NewQuery(makeQuery(l))
	log.D("(RedisCli:searchIDs) Prepared RediSearch query string: %v", q.Raw)

	// Content is not needed - only keys should be returned
	q.SetFlags(rsh.QueryNoContent)

	// Offset from which matched documents should be selected
	offset := 0

	// Output result
	ids := make([]string, 0, estResultsCount)

	// Total selected docs
	totDocs := 0

	// Key prefix length
	kpl := len(rc.ns + RedisInodePrefix)

	for {
		// Update query to set offset/limit
		q.Limit(offset, objsPerQuery)

		// Do search
		docs, total, err := rc.rsch.Search(q)
		if err != nil {
			return ids, fmt.Errorf("(RedisCli:searchIDs) RediSearch returned %d records and failed: %w", len(ids), err)
		}

		log.D("(RedisCli:searchIDs) Scanned offset: %d .. %d, selected %d (total matched %d)",
			offset, offset + objsPerQuery, len(docs), total)

		// Convert scanned documents to output result
		for _, doc := range docs {
			if len(doc.Id) <= kpl {
				log.E("(RedisCli:searchIDs) Found invalid record with too short key %q, skip it", doc.Id)
				continue
			}
			ids = append(ids, doc.Id[kpl:])
		}

		// Check for number of total matched documents reached total - no more docs to scan
		if totDocs += len(docs); totDocs >= total || len(docs) == 0 {
			break
		}

		// Check for requested limit reached
		if l.Limit > 0 && int64(len(ids)) >= l.Limit {
			break
		}

		// Update offset
		offset += objsPerQuery
	}

	// OK
	return ids, nil
}
