// yuu-transfer moves files between the local machine, SFTP servers and
// object stores. "yuu-transfer serve" runs the same operations as an MCP
// server on stdio.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wanjune/yuu-transfer/internal/adapters/realdialog"
	"github.com/wanjune/yuu-transfer/internal/apperr"
	"github.com/wanjune/yuu-transfer/internal/config"
	"github.com/wanjune/yuu-transfer/internal/logging"
	"github.com/wanjune/yuu-transfer/internal/mcp"
	"github.com/wanjune/yuu-transfer/internal/profiles"
	"github.com/wanjune/yuu-transfer/internal/security"
)

// Version information - set at build time.
var (
	Version   = "0.3.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `usage: yuu-transfer [flags] <command> [args]

SFTP commands (use an sftp profile):
  get [-clear] <remote> <local>     download a file or tree
  put [-clear] <local> <remote>     upload a file or tree
  rm <remote>                       delete a file or tree
  stat <remote>                     show whether a path exists
  latest [-ext e] <dir>             print the greatest file name in dir

Object store commands (use an object store profile):
  upload [-clear] <local> <key>     upload a file or tree
  download [-clear] <key> <local>   download an object or prefix
  delete <key>                      delete an object or prefix
  exists <key>                      show whether an object exists
  olatest [-ext e] <prefix>         print the greatest name under prefix

Other commands:
  profile list                      list configured profiles
  profile add sftp|oss              add a profile interactively
  secret set [-passphrase] <profile>  store a profile secret in the OS keyring
  secret delete [-passphrase] <profile>
  serve                             run the MCP server on stdio

Flags:
`

func main() {
	var (
		configPath  string
		profile     string
		showVersion bool
		debug       bool
	)

	flag.StringVar(&configPath, "config", config.DefaultConfigPath(), "Path to configuration file")
	flag.StringVar(&profile, "profile", "", "Profile name (optional when only one profile of the kind exists)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("yuu-transfer version %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Sanitize)

	command, args := flag.Arg(0), flag.Args()[1:]
	if command == "serve" {
		os.Exit(serve(cfg, configPath, debug))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, configPath, profile, os.Stdout)
	if err := a.run(ctx, command, args); err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			fmt.Fprintf(os.Stderr, "Error %d: %s\n", ae.Code.Value, ae.Message())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "Run 'yuu-transfer -h' for usage.")
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// serve runs the MCP server until stdin closes or a signal arrives.
func serve(cfg *config.Config, configPath string, debug bool) int {
	slog.Info("starting yuu-transfer MCP server",
		slog.String("version", Version),
		slog.Int("sftp_profiles", len(cfg.SFTP)),
		slog.Int("object_store_profiles", len(cfg.ObjectStores)),
	)

	current := newConfigHolder(cfg)
	keyring := security.NewKeyringStore()
	keyring.SetEnabled(keyring.IsEnabled() && cfg.Security.UseKeyring)

	resolver := profiles.NewResolver(profiles.Options{
		Config:  current.Get,
		Keyring: keyring,
		// stdio carries the protocol, so the server never prompts.
		Dialog: realdialog.NewNonInteractive(),
	})
	server := mcp.NewServer(resolver, Version)

	var configWatcher *config.Watcher
	if configPath != "" {
		var watcherErr error
		configWatcher, watcherErr = config.NewWatcher(configPath, func(newCfg *config.Config) {
			if debug {
				newCfg.Logging.Level = "debug"
			}
			current.Set(newCfg)
		})
		if watcherErr != nil {
			slog.Warn("config hot-reload disabled",
				slog.String("error", watcherErr.Error()),
			)
		} else {
			slog.Info("config hot-reload enabled",
				slog.String("path", configPath),
			)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("received shutdown signal")
		if configWatcher != nil {
			configWatcher.Close()
		}
		os.Exit(0)
	}()

	if err := server.Run(); err != nil {
		slog.Error("server error", slog.String("error", err.Error()))
		if configWatcher != nil {
			configWatcher.Close()
		}
		return 1
	}
	return 0
}
