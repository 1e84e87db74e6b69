package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/syncbridge/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestSetAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "access_token", "T"))

	v, err := r.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.Equal(t, "T", v)
}

func TestGet_Missing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, err := r.Get(context.Background(), "absent")
	require.ErrorIs(t, err, ErrKeyNotFound)
	assert.Empty(t, v)
}

func TestSet_Upsert(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", "old"))
	require.NoError(t, r.Set(ctx, "k", "new"))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "new", v)
}

func TestSet_EmptyValue(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", ""))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestDelete_ManyAndIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", "1"))
	require.NoError(t, r.Set(ctx, "b", "2"))
	require.NoError(t, r.Set(ctx, "c", "3"))

	require.NoError(t, r.Delete(ctx, "a", "b", "missing"))
	require.NoError(t, r.Delete(ctx, "a"))

	_, err := r.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	_, err = r.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	v, err := r.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
}

func TestRepository_InsideTransaction(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return NewSQLiteRepository(tx).Set(ctx, "k", "v")
	})
	require.NoError(t, err)

	v, err := NewSQLiteRepository(db).Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestRepository_ClosedDB(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrKeyNotFound)
	assert.Contains(t, err.Error(), "get metadata[k]")

	err = r.Set(ctx, "k", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set metadata[k]")

	err = r.Delete(ctx, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete metadata[k]")
}
