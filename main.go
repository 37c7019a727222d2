package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/justic-ssg/justic/server"
	"github.com/justic-ssg/justic/site"
	"github.com/justic-ssg/justic/watch"
)

var cli struct {
	Workdir   string           `arg:"" optional:"" default:"." type:"path" help:"Project root holding content/ or a justiconf declaration."`
	Verbose   int              `short:"v" type:"counter" help:"Increase log verbosity (-v info, -vv debug)."`
	Version   kong.VersionFlag `short:"V" help:"Print version and exit."`
	KeepGoing bool             `short:"k" help:"Skip failing subtrees and report every failure at the end."`
	Watch     bool             `short:"w" help:"Rebuild when files under the root change."`
	Serve     string           `short:"s" placeholder:"ADDR" help:"Serve the build directory on ADDR (host:port or unix:/path)."`
	Debounce  time.Duration    `default:"300ms" help:"Quiet period before a watched change rebuilds."`
	Secret    string           `env:"JUSTIC_REBUILD_SECRET" help:"Authorization token required by the rebuild endpoint."`
}

func main() {
	kong.Parse(&cli,
		kong.Name(APP_NAME),
		kong.Description("Build a static site from a tree of declarations."),
		kong.Vars{"version": APP_SIGNATURE},
	)

	logger := newLogger(cli.Verbose)

	svc, err := site.NewService(site.Options{
		Root:      cli.Workdir,
		Logger:    logger,
		KeepGoing: cli.KeepGoing,
	})
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	buildErr := svc.BuildStatic(ctx)
	if buildErr != nil {
		reportBuildError(logger, buildErr)
	}
	if !cli.Watch && cli.Serve == "" {
		if buildErr != nil {
			os.Exit(1)
		}
		return
	}

	if cli.Watch || cli.Serve != "" {
		watcher := watch.New(svc.Root(), svc, logger, cli.Debounce)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("watch", "error", err)
				stop()
			}
		}()
	}

	if cli.Serve == "" {
		<-ctx.Done()
		return
	}
	srv := server.New(svc, nil, logger, server.Options{
		Listen:        cli.Serve,
		RebuildSecret: cli.Secret,
		ServerHeader:  APP_SIGNATURE,
	})
	if err := srv.Start(ctx); err != nil {
		logger.Error("server", "error", err)
		os.Exit(1)
	}
}

// reportBuildError logs every failure with the node path and error kind.
func reportBuildError(logger *slog.Logger, err error) {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			reportBuildError(logger, e)
		}
		return
	}
	logger.Error("build", "path", site.ErrorPath(err), "kind", site.ErrorKind(err), "error", err)
}

func newLogger(verbosity int) *slog.Logger {
	var lvl slog.Level
	switch {
	case verbosity >= 2:
		lvl = slog.LevelDebug
	case verbosity == 1:
		lvl = slog.LevelInfo
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
