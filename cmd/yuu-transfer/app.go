package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/afero"
	"github.com/wanjune/yuu-transfer/internal/adapters/realdialog"
	"github.com/wanjune/yuu-transfer/internal/apperr"
	"github.com/wanjune/yuu-transfer/internal/config"
	"github.com/wanjune/yuu-transfer/internal/mirror"
	"github.com/wanjune/yuu-transfer/internal/ports"
	"github.com/wanjune/yuu-transfer/internal/profiles"
	"github.com/wanjune/yuu-transfer/internal/security"
	"github.com/wanjune/yuu-transfer/internal/sftp"
	"github.com/wanjune/yuu-transfer/internal/transfer"
)

var errUsage = errors.New("invalid usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// configHolder lets the config watcher swap the configuration under a
// running resolver.
type configHolder struct {
	mu  sync.RWMutex
	cfg *config.Config
}

func newConfigHolder(cfg *config.Config) *configHolder {
	return &configHolder{cfg: cfg}
}

func (h *configHolder) Get() *config.Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

func (h *configHolder) Set(cfg *config.Config) {
	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
}

// secretStore is the keyring surface the secret command needs.
type secretStore interface {
	Store(key string, secret []byte) error
	Delete(key string) error
}

type app struct {
	cfg        *config.Config
	configPath string
	profile    string
	out        io.Writer

	dialog   ports.DialogProvider
	keyring  secretStore
	resolver *profiles.Resolver
	localFs  afero.Fs
}

func newApp(cfg *config.Config, configPath, profile string, out io.Writer) *app {
	keyring := security.NewKeyringStore()
	keyring.SetEnabled(keyring.IsEnabled() && cfg.Security.UseKeyring)

	var dialog ports.DialogProvider = realdialog.NewNonInteractive()
	if cfg.Security.Prompt {
		dialog = realdialog.New()
	}

	a := &app{
		cfg:        cfg,
		configPath: configPath,
		profile:    profile,
		out:        out,
		dialog:     dialog,
		keyring:    keyring,
	}
	a.resolver = profiles.NewResolver(profiles.Options{
		Config:  func() *config.Config { return a.cfg },
		Keyring: keyring,
		Dialog:  dialog,
	})
	return a
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "get", "put":
		return a.sftpTransfer(ctx, command, args)
	case "rm":
		return a.sftpRemove(ctx, args)
	case "stat":
		return a.sftpStat(ctx, args)
	case "latest":
		return a.sftpLatest(ctx, args)
	case "upload", "download":
		return a.objectStoreTransfer(ctx, command, args)
	case "delete":
		return a.objectStoreDelete(ctx, args)
	case "exists":
		return a.objectStoreExists(ctx, args)
	case "olatest":
		return a.objectStoreLatest(ctx, args)
	case "profile":
		return a.profileCommand(args)
	case "secret":
		return a.secretCommand(args)
	default:
		return usageError("unknown command %q", command)
	}
}

// transferFlags parses the flags shared by transfer commands and returns
// the positional arguments.
func (a *app) transferFlags(command string, args []string, want int) (clearFirst bool, filter mirror.Filter, rest []string, err error) {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&clearFirst, "clear", false, "delete the destination first")
	names := fs.String("exclude", "", "comma-separated names to skip")
	exts := fs.String("exclude-ext", "", "comma-separated extensions to skip")
	globs := fs.String("exclude-glob", "", "comma-separated doublestar globs to skip")
	if err := fs.Parse(args); err != nil {
		return false, filter, nil, usageError("%s: %v", command, err)
	}
	if fs.NArg() != want {
		return false, filter, nil, usageError("%s takes %d arguments", command, want)
	}

	filter = a.resolver.Filter()
	filter.Names = append(filter.Names, splitList(*names)...)
	filter.Extensions = append(filter.Extensions, splitList(*exts)...)
	filter.Patterns = append(filter.Patterns, splitList(*globs)...)
	if err := filter.Validate(); err != nil {
		return false, filter, nil, apperr.New(apperr.CodeInvalidArgument, command, "exclude-glob", err)
	}
	return clearFirst, filter, fs.Args(), nil
}

func positional(command string, args []string, want int) ([]string, error) {
	if len(args) != want {
		return nil, usageError("%s takes %d arguments", command, want)
	}
	return args, nil
}

// sftpProfile picks the -profile flag, or the only SFTP profile.
func (a *app) sftpProfile() (string, error) {
	if a.profile != "" {
		return a.profile, nil
	}
	if len(a.cfg.SFTP) == 1 {
		return a.cfg.SFTP[0].Name, nil
	}
	return "", usageError("-profile is required with %d sftp profiles", len(a.cfg.SFTP))
}

// objectStoreProfile picks the -profile flag, or the only object store
// profile.
func (a *app) objectStoreProfile() (string, error) {
	if a.profile != "" {
		return a.profile, nil
	}
	if len(a.cfg.ObjectStores) == 1 {
		return a.cfg.ObjectStores[0].Name, nil
	}
	return "", usageError("-profile is required with %d object store profiles", len(a.cfg.ObjectStores))
}

func (a *app) sftpTransfer(ctx context.Context, command string, args []string) error {
	clearFirst, filter, rest, err := a.transferFlags(command, args, 2)
	if err != nil {
		return err
	}
	name, err := a.sftpProfile()
	if err != nil {
		return err
	}

	return a.resolver.WithSFTP(ctx, name, func(t *transfer.SFTP) error {
		if command == "get" {
			return t.Pull(ctx, rest[0], rest[1], clearFirst, filter)
		}
		return t.Push(ctx, rest[0], rest[1], clearFirst, filter)
	})
}

func (a *app) sftpRemove(ctx context.Context, args []string) error {
	rest, err := positional("rm", args, 1)
	if err != nil {
		return err
	}
	name, err := a.sftpProfile()
	if err != nil {
		return err
	}
	return a.resolver.WithSFTP(ctx, name, func(t *transfer.SFTP) error {
		return t.Rm(ctx, rest[0])
	})
}

func (a *app) sftpStat(ctx context.Context, args []string) error {
	rest, err := positional("stat", args, 1)
	if err != nil {
		return err
	}
	name, err := a.sftpProfile()
	if err != nil {
		return err
	}
	return a.resolver.WithSFTP(ctx, name, func(t *transfer.SFTP) error {
		probe := t.Probe(rest[0])
		kind := "file"
		if probe.IsDir {
			kind = "dir"
		}
		switch probe.State {
		case sftp.Exists:
			fmt.Fprintf(a.out, "%s\texists\t%s\n", rest[0], kind)
		case sftp.NotFound:
			fmt.Fprintf(a.out, "%s\tnot_found\n", rest[0])
		default:
			return apperr.SFTP("stat", rest[0], probe.Err)
		}
		return nil
	})
}

func (a *app) latestFlags(command string, args []string) (string, string, error) {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	ext := fs.String("ext", "", "only consider this extension")
	if err := fs.Parse(args); err != nil {
		return "", "", usageError("%s: %v", command, err)
	}
	if fs.NArg() != 1 {
		return "", "", usageError("%s takes 1 argument", command)
	}
	return fs.Arg(0), *ext, nil
}

func (a *app) sftpLatest(ctx context.Context, args []string) error {
	dir, ext, err := a.latestFlags("latest", args)
	if err != nil {
		return err
	}
	name, err := a.sftpProfile()
	if err != nil {
		return err
	}
	return a.resolver.WithSFTP(ctx, name, func(t *transfer.SFTP) error {
		latest, err := t.LatestByName(ctx, dir, ext)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, latest)
		return nil
	})
}

func (a *app) objectStoreTransfer(ctx context.Context, command string, args []string) error {
	clearFirst, filter, rest, err := a.transferFlags(command, args, 2)
	if err != nil {
		return err
	}
	name, err := a.objectStoreProfile()
	if err != nil {
		return err
	}

	return a.resolver.WithObjectStore(ctx, name, func(t *transfer.ObjectStore) error {
		if command == "download" {
			return t.Pull(ctx, rest[0], rest[1], clearFirst, filter)
		}
		return t.Push(ctx, rest[0], rest[1], clearFirst, filter)
	})
}

func (a *app) objectStoreDelete(ctx context.Context, args []string) error {
	rest, err := positional("delete", args, 1)
	if err != nil {
		return err
	}
	name, err := a.objectStoreProfile()
	if err != nil {
		return err
	}
	return a.resolver.WithObjectStore(ctx, name, func(t *transfer.ObjectStore) error {
		return t.Delete(ctx, rest[0])
	})
}

func (a *app) objectStoreExists(ctx context.Context, args []string) error {
	rest, err := positional("exists", args, 1)
	if err != nil {
		return err
	}
	name, err := a.objectStoreProfile()
	if err != nil {
		return err
	}
	return a.resolver.WithObjectStore(ctx, name, func(t *transfer.ObjectStore) error {
		exists, err := t.IsExists(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s\texists=%t\tprefix=%t\n", rest[0], exists, t.IsDir(ctx, rest[0]))
		return nil
	})
}

func (a *app) objectStoreLatest(ctx context.Context, args []string) error {
	dir, ext, err := a.latestFlags("olatest", args)
	if err != nil {
		return err
	}
	name, err := a.objectStoreProfile()
	if err != nil {
		return err
	}
	return a.resolver.WithObjectStore(ctx, name, func(t *transfer.ObjectStore) error {
		latest, err := t.LatestByName(ctx, dir, ext)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, latest)
		return nil
	})
}
