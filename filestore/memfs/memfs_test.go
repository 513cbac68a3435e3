package memfs_test

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/docclip/filestore"
	"github.com/rise-and-shine/docclip/filestore/memfs"
)

func TestPutGetDelete(t *testing.T) {
	stamp := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store := memfs.New(memfs.WithClock(func() time.Time { return stamp }))

	info, err := store.Put(t.Context(), "users/avatar/a.txt", strings.NewReader("hello"), -1, filestore.ContentTypeText)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, stamp, info.LastModified)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", info.ETag)

	exists, err := store.Exists(t.Context(), "users/avatar/a.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	f, err := store.Get(t.Context(), "users/avatar/a.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(f.Content)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, filestore.ContentTypeText, f.Info.ContentType)

	require.NoError(t, store.Delete(t.Context(), "users/avatar/a.txt"))
	require.NoError(t, store.Delete(t.Context(), "users/avatar/a.txt"))

	_, err = store.Get(t.Context(), "users/avatar/a.txt")
	require.Error(t, err)
	assert.Equal(t, filestore.CodeFileNotFound, errx.AsErrorX(err).Code())
	assert.Empty(t, store.Paths())
}

func TestInvalidPath(t *testing.T) {
	store := memfs.New()

	_, err := store.Put(t.Context(), "/abs", strings.NewReader("x"), 1, "")
	require.Error(t, err)
	assert.Equal(t, filestore.CodeInvalidPath, errx.AsErrorX(err).Code())
}

func TestURL(t *testing.T) {
	store := memfs.New(memfs.WithBaseURL("http://files.local/"))

	u, err := store.URL(t.Context(), "a/b.png", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "http://files.local/a/b.png?expires=3600", u)
}
