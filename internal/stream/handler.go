// Package stream implements file-like sessions over scheme-qualified paths.
//
// A [Handler] resolves "scheme://path" addresses to a [backend.Filesystem]
// and opens [Session] values on them. A session touches storage only when
// it is first read from, flushed, or asked about its contents. Writes
// accumulate in a [buffer.Buffer] and reach storage as one streaming write.
package stream

import (
	"fmt"
	"log/slog"

	"github.com/elazar/flystream/internal/backend"
	"github.com/elazar/flystream/internal/buffer"
	"github.com/elazar/flystream/internal/locking"
	"github.com/elazar/flystream/internal/pathing"
	"github.com/spf13/afero"
)

type schemeResolver interface {
	Resolve(scheme string) (backend.Filesystem, error)
}

type bufferProvider interface {
	New() buffer.Buffer
}

// Handler holds the collaborators shared by all sessions it opens.
type Handler struct {
	registry   schemeResolver
	locks      locking.Registry
	buffers    bufferProvider
	normalizer pathing.Normalizer
	visibility *backend.VisibilityConverter
	defaults   map[string]backend.Options
	spool      spoolConfig
	logger     *slog.Logger
}

// spoolConfig describes the local region read content is copied into.
type spoolConfig struct {
	maxMemory int64
	fs        afero.Fs
	dir       string
}

// Option configures a [Handler].
type Option func(*Handler)

// WithLocks sets the lock registry, defaulting to a [locking.Local].
func WithLocks(locks locking.Registry) Option {
	return func(h *Handler) {
		h.locks = locks
	}
}

// WithBuffers sets the buffer source, defaulting to memory buffers.
func WithBuffers(buffers bufferProvider) Option {
	return func(h *Handler) {
		h.buffers = buffers
	}
}

// WithNormalizer sets the path normalizer, defaulting to a
// [pathing.StripProtocol] over [pathing.Whitespace].
func WithNormalizer(n pathing.Normalizer) Option {
	return func(h *Handler) {
		h.normalizer = n
	}
}

// WithVisibilityConverter sets how visibility maps to permission bits.
func WithVisibilityConverter(c *backend.VisibilityConverter) Option {
	return func(h *Handler) {
		h.visibility = c
	}
}

// WithSchemeOptions sets the storage options applied to every write under
// scheme.
func WithSchemeOptions(scheme string, opts backend.Options) Option {
	return func(h *Handler) {
		h.defaults[scheme] = opts
	}
}

// WithSpool configures the region read content is copied into: in memory
// up to maxMemory bytes, then in a temporary file in dir of fsys.
func WithSpool(maxMemory int64, fsys afero.Fs, dir string) Option {
	return func(h *Handler) {
		h.spool = spoolConfig{maxMemory: maxMemory, fs: fsys, dir: dir}
	}
}

// WithLogger sets the logger, defaulting to discarding everything.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler returns a pointer to a new [Handler] resolving schemes through
// registry.
func NewHandler(registry schemeResolver, opts ...Option) *Handler {
	h := &Handler{
		registry:   registry,
		locks:      locking.NewLocal(),
		buffers:    &buffer.Factory{Kind: buffer.KindMemory},
		normalizer: pathing.NewStripProtocol(nil, nil),
		visibility: backend.NewPortableVisibilityConverter(),
		defaults:   make(map[string]backend.Options),
		spool: spoolConfig{
			maxMemory: buffer.DefaultMaxMemory,
			fs:        afero.NewOsFs(),
		},
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// target is a path resolved to its storage.
type target struct {
	scheme string
	path   string
	fs     backend.Filesystem
}

// key is the logical identity of the target, used for locking.
func (t target) key() string {
	return pathing.Join(t.scheme, t.path)
}

func (h *Handler) resolve(path string) (target, error) {
	scheme, err := pathing.Scheme(path)
	if err != nil {
		return target{}, fmt.Errorf("(stream) %w", err)
	}

	fsys, err := h.registry.Resolve(scheme)
	if err != nil {
		return target{}, fmt.Errorf("(stream) %w", err)
	}

	normalized, err := h.normalizer.NormalizePath(path)
	if err != nil {
		return target{}, fmt.Errorf("(stream) failed to normalize: %w", err)
	}

	return target{
		scheme: scheme,
		path:   normalized,
		fs:     fsys,
	}, nil
}

// options merges the scheme's configured options with overrides, later
// overrides taking precedence.
func (h *Handler) options(scheme string, overrides ...backend.Options) backend.Options {
	opts := backend.Options(nil).Merge(h.defaults[scheme])
	for _, o := range overrides {
		opts = opts.Merge(o)
	}

	return opts
}

func backendError(op string, err error) error {
	return fmt.Errorf("(stream) %s: %w: %w", op, ErrBackendOperation, err)
}
