package minio

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/elazar/flystream/internal/backend"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	t.Parallel()

	f := New(nil, "bucket", "/root/")
	assert.Equal(t, "root/dir/foo", f.key("dir/foo"))
	assert.Equal(t, "root/dir/", f.dirKey("dir"))
	assert.Equal(t, "root/", f.dirKey(""))
	assert.Equal(t, "dir/foo", f.relative("root/dir/foo"))
	assert.Equal(t, "dir", f.relative("root/dir/"))

	bare := New(nil, "bucket", "")
	assert.Equal(t, "foo", bare.key("foo"))
	assert.Empty(t, bare.dirKey(""))
	assert.Equal(t, "foo", bare.relative("foo/"))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.False(t, isNotFound(nil))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.ErrorIs(t, translate(minio.ErrorResponse{Code: "NoSuchKey"}), backend.ErrNotExist)
}

// TestFilesystem_Integration requires a running MinIO instance.
// Skip if not available.
func TestFilesystem_Integration(t *testing.T) {
	endpoint := os.Getenv("FLYSTREAM_TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	bucket := "test-flystream"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	f := New(client, bucket, "test-prefix/")
	t.Cleanup(func() {
		f.DeleteDirectory(context.Background(), "") //nolint:errcheck
	})

	require.NoError(t, f.WriteStream(ctx, "dir/foo.txt", strings.NewReader("hello"), backend.Options{
		backend.OptionVisibility: backend.VisibilityPrivate,
	}))

	r, err := f.ReadStream(ctx, "dir/foo.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "hello", string(data))

	vis, err := f.Visibility(ctx, "dir/foo.txt")
	require.NoError(t, err)
	assert.Equal(t, backend.VisibilityPrivate, vis)

	size, err := f.FileSize(ctx, "dir/foo.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	isDir, err := f.DirectoryExists(ctx, "dir")
	require.NoError(t, err)
	assert.True(t, isDir)

	var listed []string
	for entry, err := range f.ListContents(ctx, "dir", false) {
		require.NoError(t, err)
		listed = append(listed, entry.Path)
	}
	assert.Equal(t, []string{"dir/foo.txt"}, listed)

	require.NoError(t, f.Move(ctx, "dir/foo.txt", "dir/bar.txt", nil))

	isFile, err := f.FileExists(ctx, "dir/foo.txt")
	require.NoError(t, err)
	assert.False(t, isFile)

	_, err = f.ReadStream(ctx, "dir/foo.txt")
	require.ErrorIs(t, err, backend.ErrNotExist)

	require.NoError(t, f.DeleteDirectory(ctx, "dir"))

	isDir, err = f.DirectoryExists(ctx, "dir")
	require.NoError(t, err)
	assert.False(t, isDir)
}
