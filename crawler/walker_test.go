package crawler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTree creates files and directories, names ending with "/" are directories
func makeTree(t *testing.T, root string, names ...string) {
	t.Helper()

	for _, name := range names {
		path := filepath.Join(root, name)
		if name[len(name) - 1] == '/' {
			require.NoError(t, os.MkdirAll(path, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	}
}

func collect(ch <-chan Entry) []Entry {
	out := []Entry{}
	for ent := range ch {
		out = append(out, ent)
	}
	return out
}

func TestNormalizeRoot(t *testing.T) {
	tests := []struct {
		root	string
		want	string
	} {
		{ "/", "/" },
		{ "/tmp", "/tmp/" },
		{ "/tmp/", "/tmp/" },
		{ "/tmp//x/../y", "/tmp/y/" },
	}

	for _, test := range tests {
		assert.Equal(t, test.want, NormalizeRoot(test.root), test.root)
	}
}

func TestListTree(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a.bin", "b/", "b/c.txt", "b/d/", "b/d/e.txt", "f.txt")
	require.NoError(t, os.Symlink(filepath.Join(root, "b"), filepath.Join(root, "link-to-b")))

	ents := collect(ListTree(context.Background(), "test", root, 0))

	type short struct {
		route	string
		isDir	bool
	}
	got := []short{}
	for _, ent := range ents {
		assert.Equal(t, "test", ent.Volume)
		assert.Equal(t, root + "/", ent.Root)
		got = append(got, short{ent.Route(), ent.IsDir})
	}

	// Pre-order, depth-first, symlink to directory is not followed
	assert.Equal(t, []short{
		{ "/a.bin", false },
		{ "/b", true },
		{ "/b/c.txt", false },
		{ "/b/d", true },
		{ "/b/d/e.txt", false },
		{ "/f.txt", false },
		{ "/link-to-b", false },
	}, got)
}

func TestListTreeUnreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not checked for root")
	}

	root := t.TempDir()
	makeTree(t, root, "closed/", "closed/secret.txt", "open.txt")
	require.NoError(t, os.Chmod(filepath.Join(root, "closed"), 0))
	defer os.Chmod(filepath.Join(root, "closed"), 0o755)

	routes := []string{}
	for _, ent := range collect(ListTree(context.Background(), "test", root, 0)) {
		routes = append(routes, ent.Route())
	}

	// Directory itself is listed by its parent, its content is skipped
	assert.Equal(t, []string{"/closed", "/open.txt"}, routes)
}

func TestListTreeCanceled(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a/", "a/1", "a/2", "b/", "b/3")

	ctx, cancel := context.WithCancel(context.Background())
	ch := ListTree(ctx, "test", root, 0)

	// Take the first entry then stop the walker
	_, ok := <-ch
	require.True(t, ok)
	cancel()

	// Channel must be closed, some entries may be already sent
	n := 0
	for range ch {
		n++
	}
	assert.Less(t, n, 5)
}

func TestListTreeMissingRoot(t *testing.T) {
	ents := collect(ListTree(context.Background(), "test", filepath.Join(t.TempDir(), "absent"), 0))
	assert.Empty(t, ents)
}
