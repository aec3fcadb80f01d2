package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aledsdavies/pipeshell/pkgs/builtins"
	"github.com/aledsdavies/pipeshell/pkgs/config"
	"github.com/aledsdavies/pipeshell/pkgs/engine"
	shellerrors "github.com/aledsdavies/pipeshell/pkgs/errors"
	"github.com/aledsdavies/pipeshell/pkgs/history"
	"github.com/aledsdavies/pipeshell/pkgs/logging"
	"github.com/rs/zerolog"
)

// app is the wired process: configuration, logger, engine and the optional
// history store.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	engine  *engine.Engine
	history *history.Store
}

func newApp(opts *options, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if opts.debug {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:   level,
		Format:  logging.Format(cfg.Log.Format),
		Output:  stderr,
		NoColor: !shouldUseColor(opts.noColor, stderr),
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, engine: engine.New(engine.WithLogger(logger))}

	var bcfg builtins.Config
	if cfg.History.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		a.history = store
		bcfg.History = store
	}
	builtins.Register(a.engine, bcfg)

	logger.Debug().Str("cwd", cfg.Shell.Cwd).Bool("history", a.history != nil).Msg("shell configured")
	return a, nil
}

// recordHistory makes every later session write its executions to the
// history store.
func (a *app) recordHistory() {
	if a.history == nil {
		return
	}
	rec := history.NewRecorder(a.history, a.cfg.History.Limit, a.logger)
	a.engine.AddSessionHook(func(s *engine.Session) { rec.Attach(s) })
}

func (a *app) close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("close history")
		}
	}
}

// runLine submits line and renders its events until it completes. ctx
// being done cancels the execution; the call still waits for it to finish.
func runLine(ctx context.Context, s *engine.Session, out *renderer, line, source string) int {
	completed := make(chan engine.Summary, 16)
	unsubscribe := s.Subscribe(func(ev engine.Event) {
		out.render(ev)
		if ev.Kind == engine.EventCompleted && ev.Summary != nil {
			completed <- *ev.Summary
		}
	})
	defer unsubscribe()

	id := s.Submit(line, source)
	if id == 0 {
		if strings.TrimSpace(line) == "" {
			return 0
		}
		return shellerrors.ExitUnavailable
	}

	cancelled := false
	for {
		select {
		case sum := <-completed:
			if sum.ExecutionID == id {
				return sum.Exit.Code
			}
		case <-ctx.Done():
			if !cancelled {
				cancelled = true
				s.Cancel()
			}
			ctx = context.Background()
		}
	}
}
