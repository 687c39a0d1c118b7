/*
Package redis implements the catalog store on top of the Redis DBMS.

All keys of one catalog are prefixed by the database identifier:

	<id>:inode:<record-id>		hash with the indexed fields and the JSON document
	<id>:paths:<record-id>		set of routes of the record
	<id>:volume:<volume>		set of record identifiers belonging to the volume
	<id>:route:<route>			set of record identifiers reachable by the route

Indexed lookups by volume and permission string are served by RediSearch.

# Authentication configuration

Components which use Redis server that requires authentication must provide
authentication data (user and password values) in the private JSON
configuration file:

  {
    "user": "redis-username",
    "password": "redis-password"
  }
*/
package redis

import (
	"context"
	"fmt"

	"github.com/r-che/cadfael/common/log"
	"github.com/r-che/cadfael/types/dbms"

	"github.com/go-redis/redis/v8"
	rsh "github.com/RediSearch/redisearch-go/redisearch"
)

const (
	RedisMaxScanKeys	=	1024 * 10

	// Redis namespace prefixes
	RedisInodePrefix	=	"inode:"
	RedisPathsPrefix	=	"paths:"
	RedisVolumePrefix	=	"volume:"
	RedisRoutePrefix	=	"route:"

	// Hash field with the JSON encoded record
	docField	=	"doc"

	// Private configuration fields
	userField	=	"user"
	passField	=	"password"
)

type Client struct {
	*dbms.CommonClient

	c		*redis.Client
	opts	*redis.Options
	rsch	*rsh.Client
	pool	poolCloser	// connections pool of the RediSearch client
	ns		string		// keys namespace
}

type poolCloser interface {
	Close() error
}

func NewClient(ctx context.Context, dbCfg *dbms.DBConfig) (*Client, error) {
	// Address in form redis://[user:password@]host:port[/db-number]
	opts, err := redis.ParseURL(dbCfg.HostPort)
	if err != nil {
		return nil, fmt.Errorf("(RedisCli:NewClient) invalid address %q: %w", dbCfg.HostPort, err)
	}

	// Read username/password from private data if set
	user, passw, err := userPasswd(dbCfg.PrivCfg)
	if err != nil {
		return nil, fmt.Errorf("(RedisCli:NewClient) failed to load username/password from private configuration: %w", err)
	}
	if passw != "" {
		opts.Username, opts.Password = user, passw
	}

	// Initialize Redis client
	rc := &Client{
		CommonClient:	dbms.NewCommonClient(dbms.BackendRedis, dbCfg),
		c:				redis.NewClient(opts),
		opts:			opts,
		ns:				dbCfg.ID + ":",
	}

	if err := rc.c.Ping(ctx).Err(); err != nil {
		rc.c.Close()
		return nil, fmt.Errorf("(RedisCli:NewClient) ping of %s failed: %w", opts.Addr, err)
	}

	rc.rsch, rc.pool = rc.rschInit(rc.indexName())

	return rc, nil
}

func (rc *Client) Close(ctx context.Context) error {
	if err := rc.pool.Close(); err != nil {
		log.E("(RedisCli:Close) cannot close RediSearch connections pool: %v", err)
	}

	if err := rc.c.Close(); err != nil {
		return fmt.Errorf("(RedisCli:Close) cannot close connection to %s: %w", rc.opts.Addr, err)
	}

	return nil
}

func (rc *Client) inodeKey(id string) string {
	return rc.ns + RedisInodePrefix + id
}

func (rc *Client) pathsKey(id string) string {
	return rc.ns + RedisPathsPrefix + id
}

func (rc *Client) volumeKey(volume string) string {
	return rc.ns + RedisVolumePrefix + volume
}

func (rc *Client) routeKey(route string) string {
	return rc.ns + RedisRoutePrefix + route
}

func userPasswd(pcf map[string]any) (string, string, error) {
	// Check for empty configuration
	if pcf == nil {
		// OK, just return nothing
		return "", "", nil
	}

	loadField := func(field string) (string, error) {
		v, ok := pcf[field]
		if !ok {
			return "", fmt.Errorf("(RedisCli:userPasswd) private configuration does not contain %q field", field)
		}
		if s, ok := v.(string); ok {
			return s, nil
		}
		return "", fmt.Errorf(`(RedisCli:userPasswd) invalid type of %q field in private configuration,` +
								` got %T, wanted string`, field, v)
	}

	// Extract username/password values
	user, err := loadField(userField)
	if err != nil {
		return "", "", err
	}

	passwd, err := loadField(passField)
	if err != nil {
		return "", "", err
	}

	return user, passwd, nil
}
