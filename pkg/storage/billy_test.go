package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillyBackend(t *testing.T) {
	ctx := context.Background()
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "b.txt", []byte("bb"), 0644))
	require.NoError(t, util.WriteFile(fsys, "a/x.txt", []byte("x"), 0644))

	backend := NewBilly(fsys)

	t.Run("ReadDirSorted", func(t *testing.T) {
		entries, err := backend.ReadDir(ctx, "")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "a", entries[0].Name)
		assert.True(t, entries[0].IsDir)
		assert.Equal(t, "b.txt", entries[1].Name)
		assert.Equal(t, int64(2), entries[1].Size)
	})

	t.Run("WriteAndRead", func(t *testing.T) {
		content := []byte("hello billy")
		require.NoError(t, backend.Write(ctx, "new/dir/file.txt", bytes.NewReader(content), int64(len(content)), nil))

		r, err := backend.Read(ctx, "new/dir/file.txt")
		require.NoError(t, err)
		defer r.Close()
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, content, data)

		entries, err := backend.ReadDir(ctx, "new/dir")
		require.NoError(t, err)
		require.Len(t, entries, 1, "temporary file must not survive the write")
	})

	t.Run("Overwrite", func(t *testing.T) {
		content := []byte("replaced")
		require.NoError(t, backend.Write(ctx, "b.txt", bytes.NewReader(content), int64(len(content)), nil))

		data, err := util.ReadFile(fsys, "b.txt")
		require.NoError(t, err)
		assert.Equal(t, "replaced", string(data))
	})

	t.Run("ExistsAndRemove", func(t *testing.T) {
		ok, err := backend.Exists(ctx, "a/x.txt")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, backend.RemoveAll(ctx, "a"))

		ok, err = backend.Exists(ctx, "a")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RootExists", func(t *testing.T) {
		ok, err := backend.Exists(ctx, "")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
