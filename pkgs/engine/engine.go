// Package engine runs command pipelines for interactive shell sessions.
//
// An Engine owns the command registry; each Session owns a working
// directory, an append-only event log and a single execution slot. A
// submitted line is tokenized, split into stages and run on its own
// goroutine against the registry snapshot taken at submission.
package engine

import (
	"context"
	"sync"

	"github.com/aledsdavies/pipeshell/core/invariant"
	"github.com/aledsdavies/pipeshell/pkgs/completion"
	"github.com/aledsdavies/pipeshell/pkgs/registry"
	"github.com/rs/zerolog"
)

// Engine creates sessions over a shared registry.
type Engine struct {
	registry *registry.Registry
	logger   zerolog.Logger

	mu    sync.Mutex
	hooks []func(*Session)
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry uses r instead of a fresh registry.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithLogger sets the engine's logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// OnSession runs hook for every session the engine creates, before the
// session accepts submissions.
func OnSession(hook func(*Session)) Option {
	invariant.NotNil(hook, "hook")
	return func(e *Engine) { e.hooks = append(e.hooks, hook) }
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = registry.New()
	}
	return e
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Register adds a command and returns the handle that owns it.
func (e *Engine) Register(desc registry.Descriptor, completion registry.CompletionProvider, handler registry.Handler) *registry.Handle {
	h := e.registry.RegisterHandle(desc, completion, handler)
	e.logger.Debug().Str("command", desc.CanonicalPath()).Uint64("token", uint64(h.Token())).Msg("command registered")
	return h
}

// Descriptors returns the public commands sorted by canonical path.
func (e *Engine) Descriptors() []registry.Descriptor {
	return e.registry.Descriptors()
}

// AddSessionHook registers hook for sessions created from now on.
func (e *Engine) AddSessionHook(hook func(*Session)) {
	invariant.NotNil(hook, "hook")
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, hook)
}

// NewSession creates an idle session with the given working directory.
func (e *Engine) NewSession(cwd string) *Session {
	s := newSession(e, cwd)

	e.mu.Lock()
	hooks := append([]func(*Session){}, e.hooks...)
	e.mu.Unlock()

	for _, hook := range hooks {
		hook(s)
	}
	return s
}

// Complete returns completion candidates against the current registry.
func (e *Engine) Complete(ctx context.Context, req registry.CompletionRequest) ([]registry.CompletionItem, error) {
	return completion.Complete(ctx, e.registry.Snapshot(), req)
}
