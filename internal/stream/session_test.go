package stream

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"testing"

	"github.com/elazar/flystream/internal/backend"
	"github.com/elazar/flystream/internal/backend/aferofs"
	"github.com/elazar/flystream/internal/backend/mocks"
	"github.com/elazar/flystream/internal/buffer"
	"github.com/elazar/flystream/internal/registry"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newTestHandler(t *testing.T, opts ...Option) (*Handler, *aferofs.Filesystem) {
	t.Helper()

	reg := registry.NewRegistry()
	fsys := aferofs.NewMemory()
	require.NoError(t, reg.Register("fly", fsys))

	opts = append([]Option{WithSpool(0, afero.NewMemMapFs(), "")}, opts...)

	return NewHandler(reg, opts...), fsys
}

func newMockHandler(t *testing.T) (*Handler, *mocks.Filesystem) {
	t.Helper()

	reg := registry.NewRegistry()
	fsys := mocks.NewFilesystem(t)
	require.NoError(t, reg.Register("fly", fsys))

	return NewHandler(reg, WithSpool(0, afero.NewMemMapFs(), "")), fsys
}

func TestScenario_Success_WriteReadLock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register("mem", aferofs.NewMemory()))
	h := NewHandler(reg, WithSpool(0, afero.NewMemMapFs(), ""))

	w := h.Open(ctx, "mem://f", ModeWrite)
	n, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())

	got, err := h.ReadFile(ctx, "mem://f")
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	a := h.Open(ctx, "mem://f", ModeRead)
	b := h.Open(ctx, "mem://f", ModeRead)

	ok, err := a.Lock(unix.LOCK_EX)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.Lock(unix.LOCK_EX)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = a.Lock(unix.LOCK_UN)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
}

func TestOpen_Success_NoBackendContact(t *testing.T) {
	t.Parallel()

	h, _ := newMockHandler(t)

	s := h.Open(context.Background(), "fly://missing", ModeRead)
	require.Equal(t, StateOpened, s.State())
	require.NoError(t, s.Close())
	require.Equal(t, StateClosed, s.State())
}

func TestWrite_Success_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for name, factory := range map[string]*buffer.Factory{
		"memory":   {Kind: buffer.KindMemory},
		"file":     {Kind: buffer.KindFile, TempFs: afero.NewMemMapFs()},
		"overflow": {Kind: buffer.KindOverflow, MaxMemory: 1024, TempFs: afero.NewMemMapFs()},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h, fsys := newTestHandler(t, WithBuffers(factory))
			content := strings.Repeat("0123456789", 9*1024/10)

			s := h.Open(ctx, "fly://dir/file.txt", ModeWrite)
			for chunk := range slicesOf(content, 100) {
				_, err := s.Write([]byte(chunk))
				require.NoError(t, err)
			}
			require.Equal(t, StateWriting, s.State())
			require.True(t, s.Dirty())
			require.Equal(t, int64(len(content)), s.Written())
			require.NoError(t, s.Close())

			stored, err := fsys.Read(ctx, "dir/file.txt")
			require.NoError(t, err)
			require.Equal(t, content, string(stored))

			got, err := h.ReadFile(ctx, "fly://dir/file.txt")
			require.NoError(t, err)
			require.Equal(t, content, string(got))
		})
	}
}

func slicesOf(s string, size int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for len(s) > 0 {
			n := min(size, len(s))
			if !yield(s[:n]) {
				return
			}
			s = s[n:]
		}
	}
}

func TestWrite_Fail_ReadOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newTestHandler(t)
	require.NoError(t, fsys.Write(ctx, "foo", []byte("original"), nil))

	s := h.Open(ctx, "fly://foo", ModeRead)
	for _, data := range []string{"bar", "", "baz"} {
		n, err := s.Write([]byte(data))
		require.ErrorIs(t, err, ErrReadOnlyMode)
		require.Zero(t, n)
	}
	require.NoError(t, s.Close())

	got, err := fsys.Read(ctx, "foo")
	require.NoError(t, err)
	require.Equal(t, "original", string(got))
}

func TestWrite_Fail_Closed(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)

	s := h.Open(context.Background(), "fly://foo", ModeWrite)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Write([]byte("foo"))
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestWrite_Fail_BufferWrite(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t, WithBuffers(&buffer.Factory{
		Kind:   buffer.KindFile,
		TempFs: afero.NewReadOnlyFs(afero.NewMemMapFs()),
	}))

	s := h.Open(context.Background(), "fly://foo", ModeWrite)
	defer s.Close()

	_, err := s.Write([]byte("foo"))
	require.ErrorIs(t, err, ErrBufferWrite)
	require.ErrorIs(t, err, buffer.ErrTempFile)
	require.False(t, s.Dirty())
}

func TestFlush_Fail_NoBuffer(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)

	s := h.Open(context.Background(), "fly://foo", ModeWrite)
	defer s.Close()

	err := s.Flush()
	require.ErrorIs(t, err, ErrFlush)
	require.ErrorIs(t, err, ErrNoBuffer)
}

func TestFlush_Fail_AfterBufferWriteFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newTestHandler(t, WithBuffers(&buffer.Factory{
		Kind:   buffer.KindFile,
		TempFs: afero.NewReadOnlyFs(afero.NewMemMapFs()),
	}))
	require.NoError(t, fsys.Write(ctx, "foo", []byte("keep"), nil))

	s := h.Open(ctx, "fly://foo", ModeWrite)

	_, err := s.Write([]byte("new"))
	require.ErrorIs(t, err, ErrBufferWrite)

	err = s.Flush()
	require.ErrorIs(t, err, ErrFlush)
	require.ErrorIs(t, err, ErrNoBuffer)
	require.NoError(t, s.Close())

	data, err := fsys.Read(ctx, "foo")
	require.NoError(t, err)
	require.Equal(t, "keep", string(data))
}

func TestFlush_Fail_EmptyWriteIsNoOp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newTestHandler(t)
	require.NoError(t, fsys.Write(ctx, "foo", []byte("keep"), nil))

	s := h.Open(ctx, "fly://foo", ModeWrite)

	n, err := s.Write(nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.False(t, s.Dirty())

	require.ErrorIs(t, s.Flush(), ErrNoBuffer)
	require.NoError(t, s.Close())

	data, err := fsys.Read(ctx, "foo")
	require.NoError(t, err)
	require.Equal(t, "keep", string(data))
}

func TestFlush_Fail_KeepsContentForRetry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newMockHandler(t)

	var committed string
	fsys.On("WriteStream", mock.Anything, "foo", mock.Anything, mock.Anything).
		Return(errors.New("storage offline")).Once()
	fsys.On("WriteStream", mock.Anything, "foo", mock.Anything, mock.Anything).
		Return(func(_ context.Context, _ string, r io.Reader, _ backend.Options) error {
			data, err := io.ReadAll(r)
			committed = string(data)

			return err
		}).Once()

	s := h.Open(ctx, "fly://foo", ModeWrite)
	_, err := s.Write([]byte("foobar"))
	require.NoError(t, err)

	err = s.Flush()
	require.ErrorIs(t, err, ErrFlush)
	require.True(t, s.Dirty())

	require.NoError(t, s.Flush())
	require.False(t, s.Dirty())
	require.Equal(t, "foobar", committed)

	require.NoError(t, s.Close())
}

func TestFlush_Success_SessionOptions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newTestHandler(t, WithSchemeOptions("fly", backend.Options{
		backend.OptionVisibility: backend.VisibilityPublic,
	}))

	err := h.WriteFile(ctx, "fly://secret", []byte("x"), WithOptions(backend.Options{
		backend.OptionVisibility: backend.VisibilityPrivate,
	}))
	require.NoError(t, err)

	vis, err := fsys.Visibility(ctx, "secret")
	require.NoError(t, err)
	require.Equal(t, backend.VisibilityPrivate, vis)

	require.NoError(t, h.WriteFile(ctx, "fly://open", []byte("x")))

	vis, err = fsys.Visibility(ctx, "open")
	require.NoError(t, err)
	require.Equal(t, backend.VisibilityPublic, vis)
}

func TestClose_Success_FlushesAndReleases(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newTestHandler(t)

	s := h.Open(ctx, "fly://foo", ModeWrite)
	_, err := s.Write([]byte("foo"))
	require.NoError(t, err)

	ok, err := s.Lock(unix.LOCK_EX)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Close())

	got, err := fsys.Read(ctx, "foo")
	require.NoError(t, err)
	require.Equal(t, "foo", string(got))

	other := h.Open(ctx, "fly://foo", ModeRead)
	defer other.Close()

	ok, err = other.Lock(unix.LOCK_EX)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestClose_Fail_StillReleasesLock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newMockHandler(t)
	fsys.On("WriteStream", mock.Anything, "foo", mock.Anything, mock.Anything).
		Return(errors.New("storage offline"))

	s := h.Open(ctx, "fly://foo", ModeWrite)
	_, err := s.Write([]byte("foo"))
	require.NoError(t, err)

	ok, err := s.Lock(unix.LOCK_EX)
	require.NoError(t, err)
	require.True(t, ok)

	require.ErrorIs(t, s.Close(), ErrFlush)
	require.Equal(t, StateClosed, s.State())

	other := h.Open(ctx, "fly://foo", ModeRead)
	ok, err = other.Lock(unix.LOCK_EX)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRead_Success_SeekTellTruncate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newTestHandler(t)
	require.NoError(t, fsys.Write(ctx, "foo", []byte("foobar"), nil))

	s := h.Open(ctx, "fly://foo", ModeRead)
	defer s.Close()

	pos, err := s.Seek(3, io.SeekStart)
	require.NoError(t, err)
	require.Equal(t, int64(3), pos)

	pos, err = s.Tell()
	require.NoError(t, err)
	require.Equal(t, int64(3), pos)

	rest, err := io.ReadAll(s)
	require.NoError(t, err)
	require.Equal(t, "bar", string(rest))

	eof, err := s.EOF()
	require.NoError(t, err)
	require.True(t, eof)

	_, err = s.Seek(0, io.SeekStart)
	require.NoError(t, err)
	require.NoError(t, s.Truncate(3))

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	require.Equal(t, "foo", string(got))

	stored, err := fsys.Read(ctx, "foo")
	require.NoError(t, err)
	require.Equal(t, "foobar", string(stored))
}

func TestRead_Success_Stat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newTestHandler(t)
	require.NoError(t, fsys.Write(ctx, "foo", []byte("foobar"), nil))

	s := h.Open(ctx, "fly://foo", ModeRead)
	defer s.Close()

	st, err := s.Stat()
	require.NoError(t, err)
	require.True(t, st.IsRegular())
	require.Equal(t, int64(6), st.Size)
	require.Equal(t, StateReading, s.State())
}

func TestRead_Success_SpillsLargeContent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	spoolFs := afero.NewMemMapFs()
	h, fsys := newTestHandler(t, WithSpool(4, spoolFs, "/spool"))
	require.NoError(t, fsys.Write(ctx, "foo", []byte("foobar"), nil))

	s := h.Open(ctx, "fly://foo", ModeRead)

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	require.Equal(t, "foobar", string(got))

	infos, err := afero.ReadDir(spoolFs, "/spool")
	require.NoError(t, err)
	require.Len(t, infos, 1)

	require.NoError(t, s.Close())

	infos, err = afero.ReadDir(spoolFs, "/spool")
	require.NoError(t, err)
	require.Empty(t, infos)
}

func TestRead_Fail_Missing(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)

	s := h.Open(context.Background(), "fly://missing", ModeRead)
	defer s.Close()

	_, err := s.Read(make([]byte, 1))
	require.ErrorIs(t, err, ErrReadCursor)
	require.ErrorIs(t, err, ErrBackendOperation)
	require.ErrorIs(t, err, ErrNotExist)

	_, err = s.Tell()
	require.ErrorIs(t, err, ErrReadCursor)
}

func TestRead_Fail_UnregisteredScheme(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)

	s := h.Open(context.Background(), "nope://foo", ModeRead)
	defer s.Close()

	_, err := s.Read(make([]byte, 1))
	require.ErrorIs(t, err, registry.ErrSchemeNotRegistered)
}

func TestSetOptions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h, fsys := newTestHandler(t)
	require.NoError(t, fsys.Write(ctx, "foo", []byte("foo"), nil))

	s := h.Open(ctx, "fly://foo", ModeRead)
	defer s.Close()

	require.NoError(t, s.SetBlocking(true))
	require.NoError(t, s.SetBlocking(false))
	require.ErrorIs(t, s.SetReadTimeout(0), ErrUnsupported)
	require.ErrorIs(t, s.SetWriteBuffer(8192), ErrUnsupported)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Mode{
		"r":   ModeRead,
		"rb":  ModeRead,
		"r+":  ModeReadWrite,
		"r+b": ModeReadWrite,
		"w":   ModeWrite,
		"wb":  ModeWrite,
		"w+":  ModeReadWrite,
		"a":   ModeWrite,
		"x+":  ModeReadWrite,
		"c":   ModeWrite,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "b", "q", "rw"} {
		_, err := ParseMode(in)
		require.ErrorIs(t, err, ErrInvalidMode, in)
	}
}

func TestModeFromFlags(t *testing.T) {
	t.Parallel()

	require.Equal(t, ModeRead, ModeFromFlags(unix.O_RDONLY))
	require.Equal(t, ModeWrite, ModeFromFlags(unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC))
	require.Equal(t, ModeReadWrite, ModeFromFlags(unix.O_RDWR))
	require.False(t, ModeRead.CanWrite())
	require.True(t, ModeReadWrite.CanWrite())
}
