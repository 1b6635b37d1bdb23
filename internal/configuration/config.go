package configuration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/elazar/flystream/internal/backend"
	"github.com/elazar/flystream/internal/buffer"
)

// Keys read from configuration files and the environment.
const (
	KeyScheme          = "FLYSTREAM_SCHEME"
	KeyBackend         = "FLYSTREAM_BACKEND"
	KeyRoot            = "FLYSTREAM_ROOT"
	KeyBucket          = "FLYSTREAM_BUCKET"
	KeyPrefix          = "FLYSTREAM_PREFIX"
	KeyEndpoint        = "FLYSTREAM_ENDPOINT"
	KeyRegion          = "FLYSTREAM_REGION"
	KeyAccessKey       = "FLYSTREAM_ACCESS_KEY"
	KeySecretKey       = "FLYSTREAM_SECRET_KEY"
	KeySecure          = "FLYSTREAM_SECURE"
	KeyBuffer          = "FLYSTREAM_BUFFER"
	KeyBufferMaxMemory = "FLYSTREAM_BUFFER_MAX_MEMORY"
	KeyBufferTempDir   = "FLYSTREAM_BUFFER_TEMP_DIR"
	KeyLocks           = "FLYSTREAM_LOCKS"
	KeyLogBuffers      = "FLYSTREAM_LOG_BUFFERS"
	KeyVisibility      = "FLYSTREAM_VISIBILITY"
	KeyMountpoint      = "FLYSTREAM_MOUNTPOINT"
	KeyAllowOther      = "FLYSTREAM_ALLOW_OTHER"
	KeyLogFile         = "FLYSTREAM_LOG_FILE"
)

var allKeys = []string{
	KeyScheme, KeyBackend, KeyRoot, KeyBucket, KeyPrefix, KeyEndpoint,
	KeyRegion, KeyAccessKey, KeySecretKey, KeySecure, KeyBuffer,
	KeyBufferMaxMemory, KeyBufferTempDir, KeyLocks, KeyLogBuffers,
	KeyVisibility, KeyMountpoint, KeyAllowOther, KeyLogFile,
}

// BackendKind names a storage backend.
type BackendKind string

const (
	BackendMemory BackendKind = "memory"
	BackendLocal  BackendKind = "local"
	BackendMinio  BackendKind = "minio"
	BackendS3     BackendKind = "s3"
)

// LocksKind names a lock registry.
type LocksKind string

const (
	LocksLocal      LocksKind = "local"
	LocksPermissive LocksKind = "permissive"
)

// Config is the principal structure holding the application configuration.
type Config struct {
	Scheme     string
	Backend    BackendKind
	Root       string
	Bucket     string
	Prefix     string
	Endpoint   string
	Region     string
	AccessKey  string
	SecretKey  string
	Secure     bool
	Visibility backend.Visibility

	Buffer          buffer.Kind
	BufferMaxMemory int64
	BufferTempDir   string
	LogBuffers      bool

	Locks LocksKind

	Mountpoint string
	AllowOther bool
	LogFile    string
}

// Default returns a pointer to a new [Config] holding the defaults: an
// in-memory backend under "fly" with overflow buffers and local locks.
func Default() *Config {
	return &Config{
		Scheme:          "fly",
		Backend:         BackendMemory,
		Secure:          true,
		Visibility:      backend.VisibilityPublic,
		Buffer:          buffer.KindOverflow,
		BufferMaxMemory: buffer.DefaultMaxMemory,
		Locks:           LocksLocal,
	}
}

// Load reads filenames, overlays the process environment and maps the
// result over the defaults. The returned configuration is validated.
func (c *ConfigProviderImpl) Load(filenames ...string) (*Config, error) {
	envMap, err := c.ReadGeneric(filenames...)
	if err != nil {
		return nil, fmt.Errorf("(config) failed to read: %w", err)
	}

	c.Overlay(envMap, allKeys...)

	cfg := Default()

	cfg.Scheme = c.MapKeyToString(envMap, KeyScheme, cfg.Scheme)
	cfg.Backend = BackendKind(strings.ToLower(c.MapKeyToString(envMap, KeyBackend, string(cfg.Backend))))
	cfg.Root = c.MapKeyToString(envMap, KeyRoot, cfg.Root)
	cfg.Bucket = c.MapKeyToString(envMap, KeyBucket, cfg.Bucket)
	cfg.Prefix = c.MapKeyToString(envMap, KeyPrefix, cfg.Prefix)
	cfg.Endpoint = c.MapKeyToString(envMap, KeyEndpoint, cfg.Endpoint)
	cfg.Region = c.MapKeyToString(envMap, KeyRegion, cfg.Region)
	cfg.AccessKey = c.MapKeyToString(envMap, KeyAccessKey, cfg.AccessKey)
	cfg.SecretKey = c.MapKeyToString(envMap, KeySecretKey, cfg.SecretKey)
	cfg.Visibility = backend.Visibility(strings.ToLower(c.MapKeyToString(envMap, KeyVisibility, string(cfg.Visibility))))
	cfg.Locks = LocksKind(strings.ToLower(c.MapKeyToString(envMap, KeyLocks, string(cfg.Locks))))
	cfg.BufferTempDir = c.MapKeyToString(envMap, KeyBufferTempDir, cfg.BufferTempDir)
	cfg.Mountpoint = c.MapKeyToString(envMap, KeyMountpoint, cfg.Mountpoint)
	cfg.LogFile = c.MapKeyToString(envMap, KeyLogFile, cfg.LogFile)

	var errs []error

	if kind := c.MapKeyToString(envMap, KeyBuffer, ""); kind != "" {
		k, err := buffer.ParseKind(kind)
		errs = append(errs, err)
		if err == nil {
			cfg.Buffer = k
		}
	}

	cfg.BufferMaxMemory, err = c.MapKeyToSize(envMap, KeyBufferMaxMemory, cfg.BufferMaxMemory)
	errs = append(errs, err)

	cfg.Secure, err = c.MapKeyToBool(envMap, KeySecure, cfg.Secure)
	errs = append(errs, err)

	cfg.LogBuffers, err = c.MapKeyToBool(envMap, KeyLogBuffers, cfg.LogBuffers)
	errs = append(errs, err)

	cfg.AllowOther, err = c.MapKeyToBool(envMap, KeyAllowOther, cfg.AllowOther)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that enumerated values are known and that the selected
// backend has what it needs.
func (cfg *Config) Validate() error {
	var errs []error

	switch cfg.Backend {
	case BackendMemory:
	case BackendLocal:
		if cfg.Root == "" {
			errs = append(errs, fmt.Errorf("(config) %w: %s for backend %s", ErrMissingValue, KeyRoot, cfg.Backend))
		}
	case BackendMinio:
		if cfg.Endpoint == "" {
			errs = append(errs, fmt.Errorf("(config) %w: %s for backend %s", ErrMissingValue, KeyEndpoint, cfg.Backend))
		}
		fallthrough
	case BackendS3:
		if cfg.Bucket == "" {
			errs = append(errs, fmt.Errorf("(config) %w: %s for backend %s", ErrMissingValue, KeyBucket, cfg.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("(config) %w: %q", ErrUnknownBackend, cfg.Backend))
	}

	switch cfg.Locks {
	case LocksLocal, LocksPermissive:
	default:
		errs = append(errs, fmt.Errorf("(config) %w: %q", ErrUnknownLocks, cfg.Locks))
	}

	if !cfg.Visibility.Valid() {
		errs = append(errs, fmt.Errorf("(config) %w: %q", ErrInvalidVisibility, cfg.Visibility))
	}

	if _, err := buffer.ParseKind(string(cfg.Buffer)); err != nil {
		errs = append(errs, fmt.Errorf("(config) %w", err))
	}

	return errors.Join(errs...)
}
