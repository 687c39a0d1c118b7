package dbi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r-che/cadfael/dbi/memory"
	"github.com/r-che/cadfael/types"
	"github.com/r-che/cadfael/types/dbms"
)

func TestBackend(t *testing.T) {
	tests := []struct {
		addr	string
		want	string
		fail	bool
	} {
		{ "mongodb://127.0.0.1:27017", dbms.BackendMongo, false },
		{ "mongodb+srv://cluster.example.org", dbms.BackendMongo, false },
		{ "redis://localhost:6379/0", dbms.BackendRedis, false },
		{ "memory://test", dbms.BackendMemory, false },
		{ "127.0.0.1:27017", "", true },
		{ "ftp://host", "", true },
	}

	for _, test := range tests {
		got, err := Backend(test.addr)
		if test.fail {
			assert.Error(t, err, test.addr)
			continue
		}
		require.NoError(t, err, test.addr)
		assert.Equal(t, test.want, got, test.addr)
	}
}

func TestFactoryAndPrepareVolume(t *testing.T) {
	ctx := context.Background()
	const name = "dbi-test"
	defer memory.Drop(name)

	factory := NewFactory(&dbms.DBConfig{HostPort: "memory://" + name, ID: "cadfael"})

	cat, err := factory(ctx)
	require.NoError(t, err)
	defer cat.Close(ctx)

	_, err = cat.UpsertInode(ctx, &types.Inode{ID: "v:1", Volume: "v", Format: types.FmtDir}, "/")
	require.NoError(t, err)

	// Another session sees the same record
	other, err := factory(ctx)
	require.NoError(t, err)
	defer other.Close(ctx)

	require.NoError(t, PrepareVolume(ctx, other, "v", false))
	found, err := cat.Lookup(ctx, &dbms.Lookup{Volume: "v"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	require.NoError(t, PrepareVolume(ctx, other, "v", true))
	found, err = cat.Lookup(ctx, &dbms.Lookup{Volume: "v"})
	require.NoError(t, err)
	assert.Empty(t, found)
}
