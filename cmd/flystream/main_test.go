package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/elazar/flystream/internal/backend"
	"github.com/elazar/flystream/internal/backend/aferofs"
	"github.com/elazar/flystream/internal/buffer"
	"github.com/elazar/flystream/internal/configuration"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	app, err := NewApp(context.Background(), configuration.Default(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	return app
}

func TestRun_Fail_Usage(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer

	require.ErrorIs(t, run(context.Background(), nil, &stderr), errUsage)
	require.ErrorIs(t, run(context.Background(), []string{"serve"}, &stderr), errUsage)
	require.ErrorIs(t, run(context.Background(), []string{"copy", "--nope"}, &stderr), errUsage)
	assert.Contains(t, stderr.String(), "flystream mount")
}

func TestRun_Success_Version(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer

	require.NoError(t, run(context.Background(), []string{"version"}, &stderr))
	assert.Contains(t, stderr.String(), "flystream")
}

func TestLoadConfig_Success_FlagsOverride(t *testing.T) {
	t.Parallel()

	flagSet := newFlagSet(io.Discard)
	require.NoError(t, flagSet.Parse([]string{
		"--scheme", "store",
		"--backend", "local",
		"--root", "/srv/data",
		"--buffer", "file",
		"--buffer-max-memory", "1MiB",
		"--locks", "permissive",
		"--visibility", "private",
		"--secure=false",
	}))

	cfg, err := loadConfig(flagSet)
	require.NoError(t, err)

	assert.Equal(t, "store", cfg.Scheme)
	assert.Equal(t, configuration.BackendLocal, cfg.Backend)
	assert.Equal(t, "/srv/data", cfg.Root)
	assert.Equal(t, buffer.KindFile, cfg.Buffer)
	assert.Equal(t, int64(1024*1024), cfg.BufferMaxMemory)
	assert.Equal(t, configuration.LocksPermissive, cfg.Locks)
	assert.Equal(t, backend.VisibilityPrivate, cfg.Visibility)
	assert.False(t, cfg.Secure)
}

func TestLoadConfig_Fail_Invalid(t *testing.T) {
	t.Parallel()

	flagSet := newFlagSet(io.Discard)
	require.NoError(t, flagSet.Parse([]string{"--backend", "local"}))

	_, err := loadConfig(flagSet)
	require.ErrorIs(t, err, configuration.ErrMissingValue)

	flagSet = newFlagSet(io.Discard)
	require.NoError(t, flagSet.Parse([]string{"--buffer", "disk"}))

	_, err = loadConfig(flagSet)
	require.ErrorIs(t, err, errUsage)
	require.ErrorIs(t, err, buffer.ErrUnknownKind)
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	fsys, err := newBackend(ctx, configuration.Default())
	require.NoError(t, err)
	assert.IsType(t, &aferofs.Filesystem{}, fsys)

	cfg := configuration.Default()
	cfg.Backend = configuration.BackendMinio
	cfg.Endpoint = "localhost:9000"
	cfg.Bucket = "files"
	fsys, err = newBackend(ctx, cfg)
	require.NoError(t, err)
	assert.NotNil(t, fsys)

	cfg = configuration.Default()
	cfg.Backend = "ftp"
	_, err = newBackend(ctx, cfg)
	require.ErrorIs(t, err, configuration.ErrUnknownBackend)
}

func TestEndpointURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://s3.example.com", endpointURL("s3.example.com", true))
	assert.Equal(t, "http://localhost:9000", endpointURL("localhost:9000", false))
	assert.Equal(t, "http://localhost:9000", endpointURL("http://localhost:9000", true))
}

func TestCopy_Success_RoundTrip(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	ctx := context.Background()
	local := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(local, "/in.txt", []byte("payload"), 0o644))

	n, err := app.Copy(ctx, local, "/in.txt", "fly://dir/out.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	data, err := app.handler.ReadFile(ctx, "fly://dir/out.txt")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = app.Copy(ctx, local, "fly://dir/out.txt", "/back.txt")
	require.NoError(t, err)

	back, err := afero.ReadFile(local, "/back.txt")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(back))
}

func TestCopy_Success_EmptyFile(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	ctx := context.Background()
	local := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(local, "/empty", nil, 0o644))

	_, err := app.Copy(ctx, local, "/empty", "fly://empty")
	require.NoError(t, err)

	st, err := app.handler.URLStat(ctx, "fly://empty")
	require.NoError(t, err)
	assert.True(t, st.IsRegular())
	assert.Zero(t, st.Size)
}

func TestCopy_Fail_Source(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	ctx := context.Background()
	local := afero.NewMemMapFs()

	_, err := app.Copy(ctx, local, "fly://missing", "/out")
	require.ErrorIs(t, err, backend.ErrNotExist)

	require.NoError(t, app.handler.Mkdir(ctx, "fly://dir", 0o755))
	_, err = app.Copy(ctx, local, "fly://dir", "/out")
	require.ErrorIs(t, err, errIsDirectory)

	_, err = app.Copy(ctx, local, "/missing", "fly://out")
	require.Error(t, err)
}

func TestSlogManager_Success_FanOut(t *testing.T) {
	t.Parallel()

	var text, jsonOut bytes.Buffer

	manager := NewSlogManager()
	manager.AddHandler("text", slog.NewTextHandler(&text, &slog.HandlerOptions{Level: slog.LevelInfo}))
	manager.AddHandler("json", slog.NewJSONHandler(&jsonOut, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger := slog.New(manager).With("scheme", "fly").WithGroup("op")
	logger.Debug("Only json", "path", "a")
	logger.Info("Both", "path", "b")

	assert.NotContains(t, text.String(), "Only json")
	assert.Contains(t, text.String(), "op.path=b")
	assert.Contains(t, text.String(), "scheme=fly")

	lines := bytes.Split(bytes.TrimSpace(jsonOut.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var record map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &record))
	assert.Equal(t, "Both", record["msg"])
	assert.Equal(t, "fly", record["scheme"])
	assert.Equal(t, map[string]any{"path": "b"}, record["op"])
}

func TestSlogManager_Success_LateHandlerInheritsAttrs(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	manager := NewSlogManager()
	derived, ok := manager.WithAttrs([]slog.Attr{slog.String("scheme", "fly")}).(*SlogManager)
	require.True(t, ok)

	derived.AddHandler("text", slog.NewTextHandler(&out, nil))
	slog.New(derived).Info("Hello")

	assert.Contains(t, out.String(), "scheme=fly")
}

func TestMemoryObserver(t *testing.T) {
	t.Parallel()

	obs := newMemoryObserver(context.Background())
	obs.Stop()

	assert.NotZero(t, obs.MaxAlloc())
}
