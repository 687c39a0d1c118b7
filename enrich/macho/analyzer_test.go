package macho

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r-che/cadfael/enrich/macho/machotest"
	"github.com/r-che/cadfael/types"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o755))

	return path
}

func signedInspector(t *testing.T) []string {
	return fakeInspector(t, "echo 'Identifier=com.example.tool' 1>&2\ncat <<'PLIST'\n" + testEntitlements + "PLIST\n")
}

func TestHandle(t *testing.T) {
	path := writeFile(t, "tool", machotest.Thin64(testBinary()))

	a := New(signedInspector(t))
	rec := &types.Inode{Format: types.FmtFile, Details: types.Details{types.DetMimeType: MimeType}}

	require.True(t, a.Module().Predicate.Match(rec.Snapshot()))
	require.NoError(t, a.Handle(context.Background(), rec, path))

	assert.Equal(t, "000102030405060708090a0b0c0d0e0f", rec.Details[types.DetUUID])
	assert.Equal(t, []string{"/usr/lib/libSystem.B.dylib", "/usr/lib/libobjc.A.dylib"}, rec.Details[types.DetDylibs])
	assert.Equal(t, []string{"Code", "Uni", "hello", "world"}, rec.Details[types.DetStrings])
	assert.Equal(t, "com.example.tool", rec.Details[types.DetIdentifier])

	symbols, ok := rec.Details[types.DetSymbols].(map[string][]string)
	require.True(t, ok)
	assert.Equal(t, []string{"_printf"}, symbols[types.SymUndef])

	ents, ok := rec.Details[types.DetEntitlements].([]types.EntitlementEntry)
	require.True(t, ok)
	assert.Len(t, ents, 5)
}

func TestHandleUnsignedAndNoInspector(t *testing.T) {
	path := writeFile(t, "tool", machotest.Thin64(&machotest.Binary{}))

	for _, cmd := range [][]string{
		fakeInspector(t, "echo 'tool: code object is not signed at all' 1>&2\nexit 1\n"),
		{"cadfael-no-such-codesign-binary"},
	} {
		rec := &types.Inode{Format: types.FmtFile, Details: types.Details{}}
		require.NoError(t, New(cmd).Handle(context.Background(), rec, path))

		assert.Nil(t, rec.Details[types.DetUUID])
		assert.Nil(t, rec.Details[types.DetIdentifier])
		assert.Nil(t, rec.Details[types.DetEntitlements])
		assert.Contains(t, rec.Details, types.DetEntitlements)
	}
}

func TestHandleNotMachOAndMalformed(t *testing.T) {
	a := New(fakeInspector(t, "exit 0\n"))

	rec := &types.Inode{Format: types.FmtFile, Details: types.Details{}}
	require.NoError(t, a.Handle(context.Background(), rec, writeFile(t, "text", []byte("hi"))))
	assert.Empty(t, rec.Details)

	data := machotest.Thin64(testBinary())
	err := a.Handle(context.Background(), rec, writeFile(t, "broken", data[:40]))
	assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
}

func TestModulePredicate(t *testing.T) {
	pred := New(nil).Module().Predicate

	tests := []struct {
		rec		*types.Inode
		want	bool
	} {
		{ &types.Inode{Format: types.FmtFile, Details: types.Details{types.DetMimeType: MimeType}}, true },
		{ &types.Inode{Format: types.FmtFile, Details: types.Details{types.DetMimeType: "text/plain"}}, false },
		{ &types.Inode{Format: types.FmtFile, Details: types.Details{}}, false },
		{ &types.Inode{Format: types.FmtSymlink, Details: types.Details{types.DetMimeType: MimeType}}, false },
	}

	for i, test := range tests {
		assert.Equal(t, test.want, pred.Match(test.rec.Snapshot()), "test #%d", i)
	}
}
