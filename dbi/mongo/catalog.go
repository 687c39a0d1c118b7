package mongo

import (
	"context"
	"fmt"
	"sort"

	"github.com/r-che/cadfael/common/log"
	"github.com/r-che/cadfael/types"
	"github.com/r-che/cadfael/types/dbms"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Attempts of upsert when concurrent upserts of the same new identifier collide
const upsertAttempts = 2

func (mc *Client) UpsertInode(ctx context.Context, in *types.Inode, route string) (bool, error) {
	if err := dbms.ValidateRecord(in, route); err != nil {
		return false, err
	}

	if mc.SkipWrite("Upsert %s => %s", in.ID, route) {
		return false, nil
	}
	log.D("(MongoCli:UpsertInode) Upsert of collection %q => %s (%s)", InodesColl, in.ID, route)

	coll := mc.inodes()
	update := bson.D{
		// Paths is the only field not set here, $setOnInsert and $addToSet
		// must not modify the same field
		{`$setOnInsert`, insertFields(in)},
		{`$addToSet`, bson.D{{types.FieldPaths, route}}},
	}

	var err error
	for attempt := 1; attempt <= upsertAttempts; attempt++ {
		var res *mongo.UpdateResult
		res, err = coll.UpdateOne(ctx,
			bson.D{{types.FieldID, in.ID}},		// Update exactly this ID
			update,
			options.Update().SetUpsert(true),	// do insert if no record with this ID was found
		)
		if err == nil {
			if res.MatchedCount == 0 && res.UpsertedCount == 0 {
				return false, fmt.Errorf("(MongoCli:UpsertInode) updateOne (id: %s) on %s.%s returned success," +
					" but no documents were changed", in.ID, coll.Database().Name(), coll.Name())
			}

			// OK
			return res.UpsertedCount != 0, nil
		}

		// Two upserts of the same absent identifier may race, the loser
		// gets duplicate key error and should retry as a plain update
		if !mongo.IsDuplicateKeyError(err) {
			break
		}
		log.D("(MongoCli:UpsertInode) Duplicate key on upsert of %s, attempt %d", in.ID, attempt)
	}

	return false, fmt.Errorf("(MongoCli:UpsertInode) updateOne (id: %s, route: %q) on %s.%s failed: %w",
		in.ID, route, coll.Database().Name(), coll.Name(), err)
}

func insertFields(in *types.Inode) bson.D {
	details := in.Details
	if details == nil {
		details = types.Details{}
	}
	flags := in.Flags
	if flags == nil {
		flags = []string{}
	}

	return bson.D{
		{types.FieldVolume,		in.Volume},
		{types.FieldFormat,		in.Format},
		{types.FieldUID,		in.UID},
		{types.FieldGID,		in.GID},
		{types.FieldSize,		in.Size},
		{types.FieldATime,		in.ATime},
		{types.FieldMTime,		in.MTime},
		{types.FieldCTime,		in.CTime},
		{types.FieldPerms,		in.Perms},
		{types.FieldFlags,		flags},
		{types.FieldDetails,	details},
	}
}

func (mc *Client) ResetVolume(ctx context.Context, volume string) (int64, error) {
	if mc.SkipWrite("Delete all records of volume %q", volume) {
		// Report how many records would be deleted
		n, err := mc.inodes().CountDocuments(ctx, bson.D{{types.FieldVolume, volume}})
		if err != nil {
			return 0, fmt.Errorf("(MongoCli:ResetVolume) cannot count records of volume %q: %w", volume, err)
		}
		return n, nil
	}

	coll := mc.inodes()
	res, err := coll.DeleteMany(ctx, bson.D{{types.FieldVolume, volume}})
	if err != nil {
		// Try to extract number of deleted documents
		deleted := int64(0)
		if res != nil {
			deleted = res.DeletedCount
		}
		return deleted, fmt.Errorf("(MongoCli:ResetVolume) delete of volume %q from %s.%s failed: %w",
			volume, coll.Database().Name(), coll.Name(), err)
	}

	log.D("(MongoCli:ResetVolume) Deleted %d records of volume %q", res.DeletedCount, volume)

	return res.DeletedCount, nil
}

func (mc *Client) EnsureIndexes(ctx context.Context) error {
	if mc.SkipWrite("Create indexes on %s.%s", mc.Cfg.ID, InodesColl) {
		return nil
	}

	coll := mc.inodes()
	models := []mongo.IndexModel{}
	for _, field := range []string{types.FieldVolume, types.FieldPerms, types.FieldPaths} {
		models = append(models, mongo.IndexModel{Keys: bson.D{{field, 1}}})
	}

	names, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return fmt.Errorf("(MongoCli:EnsureIndexes) cannot create indexes on %s.%s: %w",
			coll.Database().Name(), coll.Name(), err)
	}

	log.D("(MongoCli:EnsureIndexes) Indexes on %s.%s: %v", coll.Database().Name(), coll.Name(), names)

	// OK
	return nil
}

func (mc *Client) Lookup(ctx context.Context, l *dbms.Lookup) ([]*types.Inode, error) {
	filter := makeFilter(l)
	log.D("(MongoCli:Lookup) Prepared MongoDB BSON query filter: %v", filter.Expr())

	coll := mc.inodes()

	opts := options.Find().SetSort(bson.D{{types.FieldID, 1}})
	if l.Limit > 0 {
		opts.SetLimit(l.Limit)
	}

	cursor, err := coll.Find(ctx, filter.Expr(), opts)
	if err != nil {
		return nil, fmt.Errorf("(MongoCli:Lookup) find on %s.%s with filter %v failed: %w",
			coll.Database().Name(), coll.Name(), filter.Expr(), err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			log.E("(MongoCli:Lookup) cannot close cursor: %v", err)
		}
	}()

	found := []*types.Inode{}
	for cursor.Next(ctx) {
		in := &types.Inode{}
		if err := cursor.Decode(in); err != nil {
			return found, fmt.Errorf("(MongoCli:Lookup) cannot decode cursor item: %w", err)
		}

		// The driver decodes datetime values in local time
		in.ATime, in.MTime, in.CTime = in.ATime.UTC(), in.MTime.UTC(), in.CTime.UTC()
		sort.Strings(in.Paths)

		found = append(found, in)
	}

	if err := cursor.Err(); err != nil {
		return found, fmt.Errorf("(MongoCli:Lookup) cursor failed: %w", err)
	}

	return found, nil
}
