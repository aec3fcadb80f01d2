// Package registry stores command registrations and the contract handlers
// are written against.
//
// Writers are serialized by a mutex; every mutation builds a new Snapshot
// and publishes it atomically, so readers never take a lock and never see a
// partially registered command.
package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/aledsdavies/pipeshell/core/invariant"
)

// Token identifies one registration.
type Token uint64

// Registered is a descriptor bound to its handler and optional completion
// provider.
type Registered struct {
	Token      Token
	Descriptor Descriptor
	Completion CompletionProvider
	Handler    Handler
}

// Snapshot is an immutable view of the registry at one point in time.
type Snapshot struct {
	byToken map[Token]Registered
	ordered []Registered
}

var emptySnapshot = &Snapshot{byToken: map[Token]Registered{}}

// All returns every registration, hidden ones included, ordered by
// canonical path then token.
func (s *Snapshot) All() []Registered {
	return s.ordered
}

// Lookup returns the registration for token.
func (s *Snapshot) Lookup(token Token) (Registered, bool) {
	reg, ok := s.byToken[token]
	return reg, ok
}

// Len returns the number of registrations.
func (s *Snapshot) Len() int {
	return len(s.ordered)
}

// Descriptors returns the Public descriptors sorted by canonical path.
func (s *Snapshot) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(s.ordered))
	for _, reg := range s.ordered {
		if reg.Descriptor.Visibility == Public {
			out = append(out, reg.Descriptor)
		}
	}
	return out
}

func newSnapshot(byToken map[Token]Registered) *Snapshot {
	ordered := make([]Registered, 0, len(byToken))
	for _, reg := range byToken {
		ordered = append(ordered, reg)
	}
	sort.Slice(ordered, func(i, j int) bool {
		pi, pj := ordered[i].Descriptor.CanonicalPath(), ordered[j].Descriptor.CanonicalPath()
		if pi != pj {
			return pi < pj
		}
		return ordered[i].Token < ordered[j].Token
	})
	return &Snapshot{byToken: byToken, ordered: ordered}
}

// Registry holds registered commands.
type Registry struct {
	mu   sync.Mutex
	next Token
	snap atomic.Pointer[Snapshot]
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{}
	r.snap.Store(emptySnapshot)
	return r
}

// Register adds a command and returns its token. The path must be non-empty
// and the handler non-nil. An empty ID defaults to the canonical path.
func (r *Registry) Register(desc Descriptor, completion CompletionProvider, handler Handler) Token {
	invariant.Precondition(len(desc.Path) > 0, "command path must not be empty")
	for _, seg := range desc.Path {
		invariant.Precondition(seg != "", "command path %q has an empty segment", desc.CanonicalPath())
	}
	invariant.Precondition(handler != nil, "command %q registered without a handler", desc.CanonicalPath())

	if desc.ID == "" {
		desc.ID = desc.CanonicalPath()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	token := r.next

	current := r.snap.Load()
	next := make(map[Token]Registered, len(current.byToken)+1)
	for k, v := range current.byToken {
		next[k] = v
	}
	next[token] = Registered{
		Token:      token,
		Descriptor: desc,
		Completion: completion,
		Handler:    handler,
	}
	r.snap.Store(newSnapshot(next))

	return token
}

// RegisterHandle registers a command and wraps the token in a Handle.
func (r *Registry) RegisterHandle(desc Descriptor, completion CompletionProvider, handler Handler) *Handle {
	return newHandle(r, r.Register(desc, completion, handler))
}

// Unregister removes the registration for token. Unknown tokens are a no-op.
func (r *Registry) Unregister(token Token) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.snap.Load()
	if _, ok := current.byToken[token]; !ok {
		return
	}

	next := make(map[Token]Registered, len(current.byToken))
	for k, v := range current.byToken {
		if k != token {
			next[k] = v
		}
	}
	r.snap.Store(newSnapshot(next))
}

// Descriptors returns the Public descriptors sorted by canonical path.
func (r *Registry) Descriptors() []Descriptor {
	return r.Snapshot().Descriptors()
}

// Snapshot returns the current immutable view.
func (r *Registry) Snapshot() *Snapshot {
	return r.snap.Load()
}

// Handle owns one registration. Unregister and Close remove it at most once.
type Handle struct {
	registry *Registry
	token    Token
	active   atomic.Bool
}

func newHandle(r *Registry, token Token) *Handle {
	h := &Handle{registry: r, token: token}
	h.active.Store(true)
	return h
}

// Token returns the registration token.
func (h *Handle) Token() Token { return h.token }

// Active reports whether the registration is still in place.
func (h *Handle) Active() bool { return h.active.Load() }

// Unregister removes the registration. Repeated calls are no-ops.
func (h *Handle) Unregister() {
	if h.active.CompareAndSwap(true, false) {
		h.registry.Unregister(h.token)
	}
}

// Close implements io.Closer.
func (h *Handle) Close() error {
	h.Unregister()
	return nil
}
