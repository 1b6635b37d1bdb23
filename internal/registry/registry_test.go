package registry

import (
	"sync"
	"testing"

	"github.com/elazar/flystream/internal/backend/aferofs"
	"github.com/stretchr/testify/require"
)

func TestRegister_Success(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	fsys := aferofs.NewMemory()

	require.NoError(t, r.Register("fly", fsys))

	got, err := r.Resolve("fly")
	require.NoError(t, err)
	require.Same(t, fsys, got)
	require.Equal(t, []string{"fly"}, r.Schemes())
}

func TestRegister_Fail_AlreadyRegistered(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("fly", aferofs.NewMemory()))

	err := r.Register("fly", aferofs.NewMemory())
	require.ErrorIs(t, err, ErrSchemeRegistered)
	require.ErrorContains(t, err, "fly")
}

func TestRegister_Fail_InvalidScheme(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	for _, scheme := range []string{"", "1fly", "fly://", "f ly"} {
		require.ErrorIs(t, r.Register(scheme, aferofs.NewMemory()), ErrInvalidScheme, scheme)
	}
	require.NoError(t, r.Register("s3+test.v1-a", aferofs.NewMemory()))
}

func TestRegister_Fail_NilFilesystem(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.ErrorIs(t, r.Register("fly", nil), ErrNilFilesystem)
}

func TestUnregister_Success(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("fly", aferofs.NewMemory()))
	require.NoError(t, r.Unregister("fly"))

	_, err := r.Resolve("fly")
	require.ErrorIs(t, err, ErrSchemeNotRegistered)
	require.Empty(t, r.Schemes())

	require.NoError(t, r.Register("fly", aferofs.NewMemory()))
}

func TestUnregister_Fail_NotRegistered(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	err := r.Unregister("foo")
	require.ErrorIs(t, err, ErrSchemeNotRegistered)
	require.ErrorContains(t, err, "foo")
}

func TestResolve_Fail_NotRegistered(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	_, err := r.Resolve("foo")
	require.ErrorIs(t, err, ErrSchemeNotRegistered)
}

func TestSchemes_Success_Sorted(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, s := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(s, aferofs.NewMemory()))
	}

	require.Equal(t, []string{"alpha", "mid", "zeta"}, r.Schemes())
}

func TestRegister_Success_Concurrent(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	var wg sync.WaitGroup
	errs := make(chan error, 16)

	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.Register("fly", aferofs.NewMemory())
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
		} else {
			require.ErrorIs(t, err, ErrSchemeRegistered)
		}
	}
	require.Equal(t, 1, ok)
}
