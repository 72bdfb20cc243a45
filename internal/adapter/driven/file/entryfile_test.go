package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryFile_OpenCreatesFileAndDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "entries.json")

	ef, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ef.Close() })

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.Equal(t, path, ef.Path())

	data, err := ef.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestEntryFile_RewriteReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.json")
	ef, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ef.Close() })
	ctx := context.Background()

	require.NoError(t, ef.Rewrite(ctx, []byte(`[{"a":"long first payload"}]`)))
	require.NoError(t, ef.Rewrite(ctx, []byte(`[]`)))

	data, err := ef.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data), "shorter rewrite must not leave a tail")

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(onDisk))
}

func TestEntryFile_ReadAllIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.json")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0o600))

	ef, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ef.Close() })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		data, err := ef.ReadAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, "existing", string(data))
	}
}

func TestEntryFile_ReopenSeesLastRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.json")
	ctx := context.Background()

	ef, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, ef.Rewrite(ctx, []byte("[1]")))
	require.NoError(t, ef.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	data, err := reopened.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[1]", string(data))
}
