package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/elazar/flystream/internal/backend"
	"github.com/elazar/flystream/internal/buffer"
	"github.com/elazar/flystream/internal/configuration"
	"github.com/elazar/flystream/internal/locking"
	"github.com/elazar/flystream/internal/registry"
	"github.com/elazar/flystream/internal/stream"
	"github.com/spf13/afero"
)

// App holds the wired components for one run of a command.
type App struct {
	config   *configuration.Config
	registry *registry.Registry
	handler  *stream.Handler
}

// NewApp builds the storage, buffers and locks described by cfg and
// registers the storage under cfg.Scheme.
func NewApp(ctx context.Context, cfg *configuration.Config, logger *slog.Logger) (*App, error) {
	fsys, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reg := registry.NewRegistry()
	if err := reg.Register(cfg.Scheme, fsys); err != nil {
		return nil, fmt.Errorf("failed to register storage: %w", err)
	}

	tempFs := afero.NewOsFs()

	buffers := &buffer.Factory{
		Kind:      cfg.Buffer,
		MaxMemory: cfg.BufferMaxMemory,
		TempFs:    tempFs,
		TempDir:   cfg.BufferTempDir,
	}
	if cfg.LogBuffers {
		buffers.Logger = logger
	}

	var locks locking.Registry = locking.NewLocal()
	if cfg.Locks == configuration.LocksPermissive {
		locks = locking.Permissive{}
	}

	handler := stream.NewHandler(reg,
		stream.WithLocks(locks),
		stream.WithBuffers(buffers),
		stream.WithSpool(cfg.BufferMaxMemory, tempFs, cfg.BufferTempDir),
		stream.WithSchemeOptions(cfg.Scheme, backend.Options{
			backend.OptionVisibility: cfg.Visibility,
		}),
		stream.WithLogger(logger),
	)

	logger.Debug("Storage registered", "scheme", cfg.Scheme, "backend", cfg.Backend, "buffer", cfg.Buffer)

	return &App{
		config:   cfg,
		registry: reg,
		handler:  handler,
	}, nil
}
