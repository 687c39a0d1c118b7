/*
Package mongo implements the catalog store on top of MongoDB.

Each record is a document of the inodes collection with the record identifier
as the document _id. Upsert uses a single update operation: all non-path fields
are set with $setOnInsert, the route is added with $addToSet, so a repeated
encounter of the same inode only extends its paths.

# Authentication configuration

Authentication data is loaded from the private JSON configuration, the object
fields are copied as is to the fields of the driver's options.Credential
structure, for example:

  {
    "Username": "mongo-username",
    "Password": "mongo-password",
    "AuthSource": "admin"
  }
*/
package mongo

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/r-che/cadfael/common/log"
	"github.com/r-che/cadfael/types/dbms"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	InodesColl	=	"inodes"
)

type Client struct {
	*dbms.CommonClient

	c	*mongo.Client
}

// Once object to execute Ping only once at client creation
var ping = &sync.Once{}

func NewClient(ctx context.Context, dbCfg *dbms.DBConfig) (*Client, error) {
	// Initialize Mongo client
	mc := &Client{
		CommonClient: dbms.NewCommonClient(dbms.BackendMongo, dbCfg),
	}

	// Check for credentials options
	creds, err := parsePrivCfg(dbCfg.PrivCfg)
	if err != nil {
		return nil, err
	}

	// Create client options to connect
	opts := options.Client().ApplyURI(dbCfg.HostPort)
	if creds != nil {
		opts.SetAuth(*creds)
	}

	if mc.c, err = mongo.Connect(ctx, opts); err != nil {
		return nil, fmt.Errorf("(MongoCli:NewClient) cannot create new client to %s: %w", dbCfg.HostPort, err)
	}

	// Check that DB is actually available, only for the first created client
	ping.Do(func() {
		log.I("(MongoCli:NewClient) Pinging %s ...", dbCfg.HostPort)
		if err = mc.c.Ping(ctx, nil); err != nil {
			return
		}
		log.I("(MongoCli:NewClient) Pinging %s was successful", dbCfg.HostPort)
	})
	if err != nil {
		// Release the client, the error is more important
		if dErr := mc.c.Disconnect(ctx); dErr != nil {
			log.E("(MongoCli:NewClient) cannot disconnect after failed ping: %v", dErr)
		}
		return nil, fmt.Errorf("(MongoCli:NewClient) ping of %s failed: %w", dbCfg.HostPort, err)
	}

	return mc, nil
}

func (mc *Client) Close(ctx context.Context) error {
	if err := mc.c.Disconnect(ctx); err != nil {
		return fmt.Errorf("(MongoCli:Close) disconnect from %s failed: %w", mc.Cfg.HostPort, err)
	}

	return nil
}

func (mc *Client) inodes() *mongo.Collection {
	return mc.c.Database(mc.Cfg.ID).Collection(InodesColl)
}

func parsePrivCfg(pcf map[string]any) (creds *options.Credential, err error) {
	// Check for empty configuration
	if pcf == nil {
		// OK, just return nothing
		return nil, nil
	}

	// Setting configuration parameter using reflect.Set may raise panic, need to handle it
	var parseField string
	defer func() {
		if p := recover(); p != nil {
			// Clear read configuration
			creds = nil
			// Check for panic value has "string" type
			if s, ok := p.(string); ok {
				// Try to remove unnecessary "reflect.Set:" prefix from the panic value
				p = strings.TrimPrefix(s, "reflect.Set: ")
			}
			// Set error
			err = fmt.Errorf("(MongoCli:parsePrivCfg)" +
				" cannot parse private configuration field %q: %v", parseField, p)
		}
	}()

	// Fill options.Credential structure using reflection, list of available fields see there:
	// https://pkg.go.dev/go.mongodb.org/mongo-driver/mongo/options#Credential
	creds = &options.Credential{}

	s := reflect.ValueOf(creds).Elem()
	for i := 0; i < s.NumField(); i++ {
		// Get the field name
		parseField = s.Type().Field(i).Name
		// Get the field value from configuration
		v, ok := pcf[parseField]
		if !ok {
			// Skip if the field does not exists in the pcf
			continue
		}

		// Set the field value
		s.Field(i).Set(reflect.ValueOf(v))
	}

	return creds, nil
}
