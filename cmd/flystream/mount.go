package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/elazar/flystream/internal/fuse"
)

// Mount serves the configured storage at the configured mountpoint until
// ctx is cancelled.
func (a *App) Mount(ctx context.Context, logger *slog.Logger) error {
	if a.config.Mountpoint == "" {
		return fmt.Errorf("%w: a mountpoint is required", errUsage)
	}

	memObserver := newMemoryObserver(ctx)
	defer memObserver.Stop()

	server, err := fuse.Mount(ctx, fuse.Options{
		Mountpoint: a.config.Mountpoint,
		Scheme:     a.config.Scheme,
		Handler:    a.handler,
		AllowOther: a.config.AllowOther,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		server.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Unmounting...", "mountpoint", a.config.Mountpoint)

		if err := server.Unmount(); err != nil {
			return fmt.Errorf("failed to unmount %s: %w", a.config.Mountpoint, err)
		}
		<-done
	case <-done:
		slog.Info("Filesystem was unmounted externally", "mountpoint", a.config.Mountpoint)
	}

	return nil
}
