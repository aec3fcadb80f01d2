package history

import (
	"context"
	"sync"
	"time"

	"github.com/aledsdavies/pipeshell/pkgs/engine"
	"github.com/rs/zerolog"
)

// Appender is the write side of a history store.
type Appender interface {
	Append(ctx context.Context, entry Entry) (int64, error)
	Prune(ctx context.Context, keep int) error
}

// Recorder writes one entry per completed execution of the sessions it is
// attached to.
type Recorder struct {
	store  Appender
	keep   int
	logger zerolog.Logger

	mu      sync.Mutex
	pending map[pendingKey]engine.Event
}

type pendingKey struct {
	session     string
	executionID uint64
}

// NewRecorder creates a recorder. keep > 0 prunes the store to the newest
// keep entries after each write.
func NewRecorder(store Appender, keep int, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:   store,
		keep:    keep,
		logger:  logger,
		pending: make(map[pendingKey]engine.Event),
	}
}

// Attach records the executions of s until the returned function is called.
func (r *Recorder) Attach(s *engine.Session) (detach func()) {
	session := s.ID().String()
	return s.Subscribe(func(ev engine.Event) {
		r.observe(session, ev)
	})
}

func (r *Recorder) observe(session string, ev engine.Event) {
	key := pendingKey{session: session, executionID: ev.ExecutionID}

	switch ev.Kind {
	case engine.EventStarted:
		r.mu.Lock()
		r.pending[key] = ev
		r.mu.Unlock()

	case engine.EventCompleted:
		r.mu.Lock()
		started, ok := r.pending[key]
		delete(r.pending, key)
		r.mu.Unlock()
		if !ok || ev.Summary == nil {
			return
		}

		entry := Entry{
			SessionID:   session,
			ExecutionID: ev.ExecutionID,
			Line:        started.Line,
			Source:      started.Source,
			Command:     ev.Summary.Command,
			ExitCode:    ev.Summary.Exit.Code,
			StartedAt:   started.Time,
			FinishedAt:  ev.Time,
		}
		r.write(entry)
	}
}

func (r *Recorder) write(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := r.store.Append(ctx, entry); err != nil {
		r.logger.Error().Err(err).Str("session", entry.SessionID).Uint64("execution_id", entry.ExecutionID).Msg("record history")
		return
	}
	if err := r.store.Prune(ctx, r.keep); err != nil {
		r.logger.Error().Err(err).Msg("prune history")
	}
}
