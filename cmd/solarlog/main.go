package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ardexa/solarlog/pkg/log"
	"github.com/ardexa/solarlog/pkg/poller"
	"github.com/ardexa/solarlog/pkg/solarlog"
	"github.com/ardexa/solarlog/pkg/storage"

	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
	"github.com/nightlyone/lockfile"
)

const (
	exitFatal       = 1
	exitAlreadyRun  = 3
	exitBadKind     = 7
	exitBadInverter = 8
)

func main() {
	os.Exit(run())
}

func run() int {
	// init packages
	logs := log.Configured()
	g := solarlog.Configured()
	s := storage.Configured()
	p := poller.Configured(g, s)

	// parse flags
	lflag.Configure()
	defer logs.Close()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}
	log.SetDefaultLogLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ctx = log.With(ctx, log.Ctx(ctx).With(
		slog.String("runID", uuid.NewString()),
		slog.String("gateway", g.Addr()),
	))
	log.Ctx(ctx).DebugContext(ctx, "logger configured", slog.String("level", level.String()))

	if err := g.Validate(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid solar-log configuration", slog.Any("error", err))
		if errors.Is(err, solarlog.ErrUnknownKind) {
			return exitBadKind
		}
		return exitFatal
	}
	if err := p.Init(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid inverter configuration", slog.Any("error", err))
		if errors.Is(err, poller.ErrUnknownVendor) {
			return exitBadInverter
		}
		return exitFatal
	}
	if err := s.Init(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to create output directory", slog.Any("error", err))
		return exitFatal
	}

	lock, err := lockFor(s.Dir(), g.Addr())
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to create pid file", slog.Any("error", err))
		return exitFatal
	}
	if err := lock.TryLock(); err != nil {
		if errors.Is(err, lockfile.ErrBusy) {
			log.Ctx(ctx).WarnContext(ctx, "already running for this gateway", slog.String("pidfile", string(lock)))
			return exitAlreadyRun
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to lock pid file", slog.String("pidfile", string(lock)), slog.Any("error", err))
		return exitFatal
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to remove pid file", slog.Any("error", err))
		}
	}()

	start := time.Now()
	res, err := p.Run(ctx)
	if err != nil {
		var te *solarlog.TransportError
		if errors.As(err, &te) {
			// nothing was recorded, the next poll picks the lines up
			log.Ctx(ctx).ErrorContext(ctx, "could not reach solar-log", slog.Any("error", err))
			return 0
		}
		log.Ctx(ctx).ErrorContext(ctx, "poll failed", slog.Any("error", err))
		return exitFatal
	}

	log.Ctx(ctx).InfoContext(
		ctx,
		"poll finished",
		slog.Int("newLines", res.NewLines),
		slog.Int("records", res.Records),
		slog.Int("rejected", res.Rejected),
		slog.Duration("elapsed", time.Since(start)),
	)
	return 0
}

// lockFor returns the pid file guarding polls of addr. Everything outside
// [A-Za-z0-9.-] in the address is replaced so a URL still makes a file name.
func lockFor(dir, addr string) (lockfile.Lockfile, error) {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return '_'
	}, addr)
	path, err := filepath.Abs(filepath.Join(dir, "solarlog-"+name+".pid"))
	if err != nil {
		return "", err
	}
	return lockfile.New(path)
}
