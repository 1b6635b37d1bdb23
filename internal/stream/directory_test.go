package stream

import (
	"context"
	"errors"
	"io"
	"iter"
	"testing"

	"github.com/elazar/flystream/internal/backend"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func readAllDir(t *testing.T, s *Session) []string {
	t.Helper()

	var paths []string
	for {
		p, err := s.ReadDir()
		if errors.Is(err, io.EOF) {
			return paths
		}
		require.NoError(t, err)
		paths = append(paths, p)
	}
}

func TestReadDir_Success_OneLevel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newTestHandler(t)
	require.NoError(t, fsys.CreateDirectory(ctx, "a", nil))
	require.NoError(t, fsys.Write(ctx, "a/b", []byte("x"), nil))

	s, err := h.OpenDir(ctx, "fly://a")
	require.NoError(t, err)
	require.Equal(t, StateDirectory, s.State())

	require.Equal(t, []string{"a/b"}, readAllDir(t, s))
	require.NoError(t, s.CloseDir())
	require.Equal(t, StateClosed, s.State())
}

func TestReadDir_Success_Root(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newTestHandler(t)
	require.NoError(t, fsys.Write(ctx, "foo/bar", []byte("x"), nil))
	require.NoError(t, fsys.Write(ctx, "baz", []byte("x"), nil))

	s, err := h.OpenDir(ctx, "fly://")
	require.NoError(t, err)
	defer s.Close()

	require.ElementsMatch(t, []string{"foo", "baz"}, readAllDir(t, s))
}

func TestRewindDir_Success(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newTestHandler(t)
	require.NoError(t, fsys.Write(ctx, "a/b", []byte("x"), nil))
	require.NoError(t, fsys.Write(ctx, "a/c", []byte("x"), nil))

	s, err := h.OpenDir(ctx, "fly://a")
	require.NoError(t, err)
	defer s.Close()

	first, err := s.ReadDir()
	require.NoError(t, err)

	require.NoError(t, s.RewindDir())

	again, err := s.ReadDir()
	require.NoError(t, err)
	require.Equal(t, first, again)
	require.Len(t, readAllDir(t, s), 1)
}

func TestRewindDir_Success_ReissuesListing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newMockHandler(t)

	listing := iter.Seq2[backend.Entry, error](func(yield func(backend.Entry, error) bool) {
		yield(backend.Entry{Path: "a/b"}, nil)
	})
	fsys.On("ListContents", mock.Anything, "a", false).Return(listing).Twice()

	s, err := h.OpenDir(ctx, "fly://a")
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, []string{"a/b"}, readAllDir(t, s))
	require.NoError(t, s.RewindDir())
	require.Equal(t, []string{"a/b"}, readAllDir(t, s))
}

func TestOpenDir_Success_UnresolvedIsEmpty(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)

	s, err := h.OpenDir(context.Background(), "nope://a")
	require.NoError(t, err)
	defer s.Close()

	require.Empty(t, readAllDir(t, s))
}

func TestOpenDir_Success_MissingIsEmpty(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)

	s, err := h.OpenDir(context.Background(), "fly://missing")
	require.NoError(t, err)
	defer s.Close()

	require.Empty(t, readAllDir(t, s))
}

func TestReadDir_Fail_ListingError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newMockHandler(t)

	listing := iter.Seq2[backend.Entry, error](func(yield func(backend.Entry, error) bool) {
		if !yield(backend.Entry{Path: "a/b"}, nil) {
			return
		}
		yield(backend.Entry{}, errors.New("connection reset"))
	})
	fsys.On("ListContents", mock.Anything, "a", false).Return(listing).Once()

	s, err := h.OpenDir(ctx, "fly://a")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReadDir()
	require.NoError(t, err)

	_, err = s.ReadDir()
	require.ErrorIs(t, err, ErrBackendOperation)
}

func TestReadDir_Fail_NotOpen(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)

	s := h.Open(context.Background(), "fly://a", ModeRead)
	defer s.Close()

	_, err := s.ReadDir()
	require.ErrorIs(t, err, ErrDirectoryNotOpen)
	require.ErrorIs(t, s.RewindDir(), ErrDirectoryNotOpen)
	require.ErrorIs(t, s.CloseDir(), ErrDirectoryNotOpen)
}

func TestReadDirEntry_Success(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newTestHandler(t)
	require.NoError(t, fsys.CreateDirectory(ctx, "a/sub", nil))

	s, err := h.OpenDir(ctx, "fly://a")
	require.NoError(t, err)
	defer s.Close()

	entry, err := s.ReadDirEntry()
	require.NoError(t, err)
	require.Equal(t, "a/sub", entry.Path)
	require.True(t, entry.IsDir)

	_, err = s.ReadDirEntry()
	require.ErrorIs(t, err, io.EOF)
}
