package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryBlobRepo_ReadAllEmpty(t *testing.T) {
	repo := NewEntryBlobRepo(setupTestDB(t))

	data, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestEntryBlobRepo_RewriteReplaces(t *testing.T) {
	ctx := context.Background()
	repo := NewEntryBlobRepo(setupTestDB(t))

	require.NoError(t, repo.Rewrite(ctx, []byte(`[{"ciphertext":"YQ==","nonce":"Yg==","kind":"Text"}]`)))
	require.NoError(t, repo.Rewrite(ctx, []byte(`[]`)))

	data, err := repo.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	var rows int
	require.NoError(t, repo.db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM entry_blob`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestEntryBlobRepo_RewriteNil(t *testing.T) {
	ctx := context.Background()
	repo := NewEntryBlobRepo(setupTestDB(t))

	require.NoError(t, repo.Rewrite(ctx, nil))

	data, err := repo.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestEntryBlobRepo_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fastclip.db")

	db, err := NewDB(ctx, path)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db.Writer))
	assert.Equal(t, path, db.Path())

	repo := NewEntryBlobRepo(db)
	require.NoError(t, repo.Rewrite(ctx, []byte(`["first"]`)))
	require.NoError(t, repo.Close())

	db, err = NewDB(ctx, path)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db.Writer))
	repo = NewEntryBlobRepo(db)
	t.Cleanup(func() { _ = repo.Close() })

	data, err := repo.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, `["first"]`, string(data))
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, RunMigrations(db.Writer))
}
