package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/r-che/cadfael/types"
	"github.com/r-che/cadfael/types/dbms"
)

func TestMakeFilter(t *testing.T) {
	tests := []struct {
		lookup	dbms.Lookup
		want	bson.D
	} {
		{ dbms.Lookup{}, bson.D{} },
		{ dbms.Lookup{Volume: "vol"}, bson.D{{types.FieldVolume, "vol"}} },
		{
			dbms.Lookup{Volume: "vol", Perms: "-rwxr-xr-x", Path: "/bin/ls"},
			bson.D{
				{types.FieldVolume, "vol"},
				{types.FieldPerms, "-rwxr-xr-x"},
				{types.FieldPaths, "/bin/ls"},
			},
		},
	}

	for _, test := range tests {
		if got := makeFilter(&test.lookup).Expr(); !assert.Equal(t, test.want, got) {
			t.Errorf("invalid filter for lookup %s", test.lookup.String())
		}
	}
}

func TestFilterClone(t *testing.T) {
	orig := NewFilter().Append(bson.E{types.FieldVolume, "vol"})
	clone := orig.Clone().Append(bson.E{types.FieldPerms, "drwxr-xr-x"})

	assert.Equal(t, 1, orig.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestInsertFieldsExcludePaths(t *testing.T) {
	in := &types.Inode{ID: "vol:1", Volume: "vol", Format: types.FmtDir, Paths: []string{"/a"}}

	for _, e := range insertFields(in) {
		assert.NotEqual(t, types.FieldPaths, e.Key)
		assert.NotEqual(t, types.FieldID, e.Key)
	}

	fields := insertFields(in).Map()
	assert.Equal(t, types.Details{}, fields[types.FieldDetails])
	assert.Equal(t, []string{}, fields[types.FieldFlags])
}

func TestParsePrivCfg(t *testing.T) {
	creds, err := parsePrivCfg(nil)
	require.NoError(t, err)
	assert.Nil(t, creds)

	creds, err = parsePrivCfg(map[string]any{
		"Username":		"user",
		"Password":		"secret",
		"AuthSource":	"admin",
	})
	require.NoError(t, err)
	assert.Equal(t, "user", creds.Username)
	assert.Equal(t, "secret", creds.Password)
	assert.Equal(t, "admin", creds.AuthSource)

	// Invalid type of the field value
	creds, err = parsePrivCfg(map[string]any{"Username": 42.0})
	assert.Error(t, err)
	assert.Nil(t, creds)
	assert.Contains(t, err.Error(), `"Username"`)
}
