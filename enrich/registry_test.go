package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r-che/cadfael/types"
)

func TestPredicateMatch(t *testing.T) {
	rec := &types.Inode{
		Format:	types.FmtFile,
		Details: types.Details{
			types.DetMimeType:	"application/x-mach-binary",
			types.DetSymbols:	map[string]any{types.SymLocal: []string{"_main"}},
		},
	}
	snap := rec.Snapshot()

	tests := []struct {
		name	string
		pred	Predicate
		want	bool
	} {
		{ "empty", Predicate{}, true },
		{ "format", Predicate{{ Path: []string{types.FieldFormat}, Accept: []any{types.FmtFile} }}, true },
		{ "format-set", Predicate{{ Path: []string{types.FieldFormat}, Accept: []any{types.FmtDir, types.FmtFile} }}, true },
		{ "format-mismatch", Predicate{{ Path: []string{types.FieldFormat}, Accept: []any{types.FmtDir} }}, false },
		{
			"nested",
			Predicate{
				{ Path: []string{types.FieldFormat}, Accept: []any{types.FmtFile} },
				{ Path: []string{types.FieldDetails, types.DetMimeType}, Accept: []any{"application/x-mach-binary"} },
			},
			true,
		},
		{ "absent-key", Predicate{{ Path: []string{types.FieldDetails, types.DetUUID}, Accept: []any{"x"} }}, false },
		{ "non-map-intermediate", Predicate{{ Path: []string{types.FieldFormat, "x"}, Accept: []any{"x"} }}, false },
		{ "type-mismatch", Predicate{{ Path: []string{types.FieldFormat}, Accept: []any{42} }}, false },
		{
			"non-comparable",
			Predicate{{ Path: []string{types.FieldDetails, types.DetSymbols, types.SymLocal}, Accept: []any{"_main"} }},
			false,
		},
		{ "empty-path", Predicate{{ Path: nil, Accept: []any{nil} }}, false },
	}

	for _, test := range tests {
		if got := test.pred.Match(snap); got != test.want {
			t.Errorf("%s: predicate %v returned %v, want - %v", test.name, test.pred, got, test.want)
		}
	}
}

func TestRegistryRun(t *testing.T) {
	calls := []string{}
	handler := func(name string, err error) Handler {
		return func(ctx context.Context, rec *types.Inode, path string) error {
			calls = append(calls, name)
			rec.Details[name] = path
			return err
		}
	}

	errBroken := errors.New("broken")

	r := NewRegistry()
	onFiles := Predicate{{ Path: []string{types.FieldFormat}, Accept: []any{types.FmtFile} }}
	require.NoError(t, r.Register("first", onFiles, handler("first", nil)))
	require.NoError(t, r.Register("broken", onFiles, handler("broken", errBroken)))
	require.NoError(t, r.Register("panics", onFiles, func(context.Context, *types.Inode, string) error {
		calls = append(calls, "panics")
		panic("boom")
	}))
	require.NoError(t, r.Register("dirs", Predicate{{ Path: []string{types.FieldFormat}, Accept: []any{types.FmtDir} }},
		handler("dirs", nil)))
	// Sees the result of the first handler
	require.NoError(t, r.Register("chained", Predicate{{ Path: []string{types.FieldDetails, "first"}, Accept: []any{"/p"} }},
		handler("chained", nil)))
	r.Freeze()

	assert.Error(t, r.Register("late", onFiles, handler("late", nil)))
	assert.Equal(t, []string{"first", "broken", "panics", "dirs", "chained"}, r.Names())

	rec := &types.Inode{Format: types.FmtFile, Details: types.Details{}}
	err := r.Run(context.Background(), rec, "/p")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errBroken))
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"first", "broken", "panics", "chained"}, calls)
	assert.Equal(t, "/p", rec.Details["chained"])
}

func TestNewRegistryFrom(t *testing.T) {
	nop := func(context.Context, *types.Inode, string) error { return nil }
	known := []Module{
		{ Name: "a", Handler: nop },
		{ Name: "b", Handler: nop },
	}

	r, err := NewRegistryFrom([]string{"b", "a"}, known...)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, r.Names())
	assert.Error(t, r.Register("c", nil, nop))

	_, err = NewRegistryFrom([]string{"x"}, known...)
	assert.Error(t, err)

	_, err = NewRegistryFrom([]string{"a", "a"}, known...)
	assert.Error(t, err)
}
