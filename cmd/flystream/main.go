package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/elazar/flystream/internal/backend"
	"github.com/elazar/flystream/internal/buffer"
	"github.com/elazar/flystream/internal/configuration"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

const (
	stackTraceBufMax = 1 << 24
)

//nolint:gochecknoglobals
var Version string

const usage = `flystream serves object and file storage through stream sessions.

Usage:
  flystream mount [flags] [MOUNTPOINT]   mount the storage with FUSE
  flystream copy [flags] SRC DST         copy between local and scheme:// paths
  flystream version                      print the version

Flags:
`

func setupSignalHandlers(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		cancel()
	}()

	sigChan2 := make(chan os.Signal, 1)
	signal.Notify(sigChan2, syscall.SIGUSR1)
	go func() {
		for range sigChan2 {
			buf := make([]byte, stackTraceBufMax)
			stacklen := runtime.Stack(buf, true)
			os.Stderr.Write(buf[:stacklen])
		}
	}()
}

func newFlagSet(stderr io.Writer) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("flystream", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)

	flagSet.StringP("config", "c", "", "read configuration from this env file")
	flagSet.String("scheme", "", "scheme the storage is registered under")
	flagSet.String("backend", "", "storage backend (memory, local, minio, s3)")
	flagSet.String("root", "", "root directory of the local backend")
	flagSet.String("bucket", "", "bucket of the minio and s3 backends")
	flagSet.String("prefix", "", "key prefix within the bucket")
	flagSet.String("endpoint", "", "object storage endpoint")
	flagSet.String("region", "", "object storage region")
	flagSet.Bool("secure", true, "use TLS towards the object storage endpoint")
	flagSet.String("buffer", "", "write buffer strategy (memory, file, overflow)")
	flagSet.String("buffer-max-memory", "", "bytes an overflow buffer keeps in memory, e.g. 2MiB")
	flagSet.String("buffer-temp-dir", "", "directory for buffer temporary files")
	flagSet.String("locks", "", "lock registry (local, permissive)")
	flagSet.Bool("log-buffers", false, "log every buffer operation")
	flagSet.String("visibility", "", "visibility of written files (public, private)")
	flagSet.Bool("allow-other", false, "let other users access the mount")
	flagSet.String("log-file", "", "also write JSON log records to this file")
	flagSet.BoolP("debug", "d", false, "log at debug level")
	flagSet.BoolP("help", "h", false, "show help")

	flagSet.Usage = func() {
		fmt.Fprint(stderr, usage)
		flagSet.PrintDefaults()
	}

	return flagSet
}

// loadConfig reads the configuration file named by --config, then applies
// every flag given on the command line over it.
func loadConfig(flagSet *pflag.FlagSet) (*configuration.Config, error) {
	var files []string
	if name, _ := flagSet.GetString("config"); name != "" {
		files = append(files, name)
	}

	cfg, err := configuration.NewConfigProvider().Load(files...)
	if err != nil {
		return nil, err
	}

	var errs []error
	flagSet.Visit(func(f *pflag.Flag) {
		errs = append(errs, applyFlag(cfg, f.Name, f.Value.String()))
	})

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyFlag(cfg *configuration.Config, name, value string) error {
	var err error

	switch name {
	case "scheme":
		cfg.Scheme = value
	case "backend":
		cfg.Backend = configuration.BackendKind(value)
	case "root":
		cfg.Root = value
	case "bucket":
		cfg.Bucket = value
	case "prefix":
		cfg.Prefix = value
	case "endpoint":
		cfg.Endpoint = value
	case "region":
		cfg.Region = value
	case "secure":
		cfg.Secure, err = strconv.ParseBool(value)
	case "buffer":
		cfg.Buffer, err = buffer.ParseKind(value)
	case "buffer-max-memory":
		cfg.BufferMaxMemory, err = buffer.ParseSize(value)
	case "buffer-temp-dir":
		cfg.BufferTempDir = value
	case "locks":
		cfg.Locks = configuration.LocksKind(value)
	case "log-buffers":
		cfg.LogBuffers, err = strconv.ParseBool(value)
	case "visibility":
		cfg.Visibility = backend.Visibility(value)
	case "allow-other":
		cfg.AllowOther, err = strconv.ParseBool(value)
	case "log-file":
		cfg.LogFile = value
	}

	if err != nil {
		return fmt.Errorf("%w: --%s: %w", errUsage, name, err)
	}

	return nil
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)

		return fmt.Errorf("%w: no command given", errUsage)
	}

	command, args := args[0], args[1:]

	switch command {
	case "version", "--version":
		fmt.Fprintln(stderr, "flystream", Version)

		return nil
	case "help", "--help", "-h":
		newFlagSet(stderr).Usage()

		return nil
	case "mount", "copy":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	flagSet := newFlagSet(stderr)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}

		return fmt.Errorf("%w: %w", errUsage, err)
	}

	cfg, err := loadConfig(flagSet)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if debug, _ := flagSet.GetBool("debug"); debug {
		level = slog.LevelDebug
	}

	closeLog, err := setupLogging(stderr, level, cfg.LogFile)
	defer closeLog() //nolint:errcheck
	if err != nil {
		return err
	}

	positional := flagSet.Args()

	switch command {
	case "mount":
		if len(positional) > 1 {
			return fmt.Errorf("%w: mount takes at most one mountpoint", errUsage)
		}
		if len(positional) == 1 {
			cfg.Mountpoint = positional[0]
		}

		app, err := NewApp(ctx, cfg, slog.Default())
		if err != nil {
			return err
		}

		return app.Mount(ctx, slog.Default())

	default:
		if len(positional) != 2 { //nolint:mnd
			return fmt.Errorf("%w: copy takes a source and a destination", errUsage)
		}

		app, err := NewApp(ctx, cfg, slog.Default())
		if err != nil {
			return err
		}

		_, err = app.Copy(ctx, afero.NewOsFs(), positional[0], positional[1])

		return err
	}
}

func main() {
	exitCode := 0
	defer func() {
		os.Exit(exitCode)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupSignalHandlers(cancel)

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		slog.Error("Command failed", "err", err)

		exitCode = 1
		if errors.Is(err, errUsage) {
			exitCode = 2
		}
	}
}
