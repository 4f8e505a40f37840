package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/atlanticdynamic/scriptgate/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(t.Context(), Config{Path: filepath.Join(t.TempDir(), "resources.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestOpen_RequiresPath(t *testing.T) {
	t.Parallel()
	_, err := Open(t.Context(), Config{}, nil)
	require.Error(t, err)
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "resources.db")
	first, err := Open(t.Context(), Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(t.Context(), Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestStore_CRUD(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	s := setupTestStore(t)

	created, err := s.Create(ctx, "managed/user", "bjensen", map[string]any{"mail": "bjensen@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "bjensen", created[resource.FieldID])
	assert.Equal(t, "1", created[resource.FieldRev])

	_, err = s.Create(ctx, "managed/user", "bjensen", map[string]any{})
	require.ErrorIs(t, err, resource.ErrConflict)

	read, err := s.Read(ctx, "managed/user/bjensen")
	require.NoError(t, err)
	assert.Equal(t, "bjensen@example.com", read["mail"])

	updated, err := s.Update(ctx, "managed/user/bjensen", "1", map[string]any{"mail": "babs@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "2", updated[resource.FieldRev])

	_, err = s.Update(ctx, "managed/user/bjensen", "1", map[string]any{"mail": "stale@example.com"})
	require.ErrorIs(t, err, resource.ErrRevisionMismatch)

	_, err = s.Update(ctx, "managed/user/nobody", "", map[string]any{})
	require.ErrorIs(t, err, resource.ErrNotFound)

	deleted, err := s.Delete(ctx, "managed/user/bjensen", "")
	require.NoError(t, err)
	assert.Equal(t, "babs@example.com", deleted["mail"])

	_, err = s.Read(ctx, "managed/user/bjensen")
	require.ErrorIs(t, err, resource.ErrNotFound)
}

func TestStore_CreateGeneratesID(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)

	doc, err := s.Create(t.Context(), resource.AuditAccessPath, "", map[string]any{"status": "SUCCESS"})
	require.NoError(t, err)
	id, ok := doc[resource.FieldID].(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)

	_, err = s.Read(t.Context(), resource.AuditAccessPath+"/"+id)
	require.NoError(t, err)
}

func TestStore_Patch(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	s := setupTestStore(t)

	_, err := s.Create(ctx, "managed/user", "u1", map[string]any{"mail": "a@example.com", "logins": 1})
	require.NoError(t, err)

	patched, err := s.Patch(ctx, "managed/user/u1", "", []resource.PatchOperation{
		{Operation: resource.OpReplace, Field: "/mail", Value: "b@example.com"},
		{Operation: resource.OpIncrement, Field: "/logins", Value: 2},
		{Operation: resource.OpAdd, Field: "/address/city", Value: "Grenoble"},
	})
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", patched["mail"])
	assert.InDelta(t, 3.0, patched["logins"], 0)
	assert.Equal(t, map[string]any{"city": "Grenoble"}, patched["address"])
	assert.Equal(t, "2", patched[resource.FieldRev])

	_, err = s.Patch(ctx, "managed/user/u1", "1", []resource.PatchOperation{
		{Operation: resource.OpRemove, Field: "/mail"},
	})
	require.ErrorIs(t, err, resource.ErrRevisionMismatch)
}

func TestStore_QueryAndCount(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	s := setupTestStore(t)

	for _, u := range []struct{ id, dept string }{{"a", "eng"}, {"b", "eng"}, {"c", "ops"}} {
		_, err := s.Create(ctx, "managed/user", u.id, map[string]any{"dept": u.dept})
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, "managed/role", "admin", map[string]any{"dept": "eng"})
	require.NoError(t, err)

	all, err := s.Query(ctx, "managed/user", map[string]any{"_queryFilter": "true"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	eng, err := s.Query(ctx, "managed/user", map[string]any{"dept": "eng"})
	require.NoError(t, err)
	require.Len(t, eng, 2)
	assert.Equal(t, "a", eng[0][resource.FieldID])

	page, err := s.Query(ctx, "managed/user", map[string]any{"_pageSize": 1, "_pagedResultsOffset": "1"})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0][resource.FieldID])

	count, err := s.Action(ctx, "managed/user", "count", nil, map[string]any{"dept": "ops"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": int64(1)}, count)

	_, err = s.Action(ctx, "managed/user", "explode", nil, nil)
	require.ErrorIs(t, err, resource.ErrUnsupportedAction)
}

func TestStore_BadPaths(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)

	_, err := s.Read(t.Context(), "managed")
	require.ErrorIs(t, err, resource.ErrBadPath)

	_, err = s.Create(t.Context(), "/", "", nil)
	require.ErrorIs(t, err, resource.ErrBadPath)
}
