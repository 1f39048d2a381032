package files

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/models"
)

func newTestStore(t *testing.T) *BlobStore {
	t.Helper()
	store, err := NewBlobStore(filepath.Join(t.TempDir(), "uploads"), arbor.NewLogger())
	require.NoError(t, err)
	return store
}

func TestBlobStore_SaveLoadDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	path, err := store.Save(ctx, "user-1", "report.pdf", []byte("pdf bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "user-1"+string(filepath.Separator)))
	assert.True(t, strings.HasSuffix(path, "_report.pdf"))

	data, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), data)

	require.NoError(t, store.Delete(ctx, path))
	_, err = store.Load(ctx, path)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Deleting again is not an error
	assert.NoError(t, store.Delete(ctx, path))
}

func TestBlobStore_UniquePathsPerUpload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Save(ctx, "user-1", "same.txt", []byte("one"))
	require.NoError(t, err)
	second, err := store.Save(ctx, "user-1", "same.txt", []byte("two"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	one, err := store.Load(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), one)
}

func TestBlobStore_RejectsEscapingPaths(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "../outside.txt")
	assert.Error(t, err)

	_, err = store.Load(ctx, "/etc/passwd")
	assert.Error(t, err)

	_, err = store.Load(ctx, "")
	assert.Error(t, err)

	assert.Error(t, store.Delete(ctx, "../outside.txt"))
}

func TestBlobStore_SanitizesSegments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	path, err := store.Save(ctx, "../../etc", "pass/wd.txt", []byte("x"))
	require.NoError(t, err)

	// The stored path never escapes the base directory
	assert.False(t, strings.Contains(path, ".."))
	data, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestBlobStore_RequiresUserID(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(context.Background(), "", "a.txt", []byte("x"))
	assert.Error(t, err)
}
