package engine

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aledsdavies/pipeshell/core/invariant"
	"github.com/aledsdavies/pipeshell/pkgs/completion"
	"github.com/aledsdavies/pipeshell/pkgs/data"
	shellerrors "github.com/aledsdavies/pipeshell/pkgs/errors"
	"github.com/aledsdavies/pipeshell/pkgs/parser"
	"github.com/aledsdavies/pipeshell/pkgs/registry"
	"github.com/aledsdavies/pipeshell/pkgs/resolver"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BusyMessage is the warning emitted when a line is submitted while another
// is still running.
const BusyMessage = "another command is already running"

// Session is one shell instance. At most one execution runs at a time;
// a submission while running is rejected, never queued.
type Session struct {
	id     uuid.UUID
	engine *Engine
	logger zerolog.Logger

	mu      sync.Mutex
	cwd     string
	events  []Event
	active  uint64
	nextID  uint64
	cancel  context.CancelFunc
	idle    chan struct{}
	stopped bool

	cancelled atomic.Bool

	eventFeed *feed[Event]
	cwdFeed   *feed[string]
}

func newSession(e *Engine, cwd string) *Session {
	id := uuid.New()
	idle := make(chan struct{})
	close(idle)
	return &Session{
		id:        id,
		engine:    e,
		logger:    e.logger.With().Str("session", id.String()).Logger(),
		cwd:       cwd,
		idle:      idle,
		eventFeed: newFeed[Event](),
		cwdFeed:   newFeed[string](),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Cwd returns the current working directory.
func (s *Session) Cwd() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwd
}

// WatchCwd calls fn with every new working directory until the returned
// function is called.
func (s *Session) WatchCwd(fn func(cwd string)) (unwatch func()) {
	return s.cwdFeed.subscribe(fn)
}

// Subscribe calls fn with every event appended from now on, in log order,
// until the returned function is called. fn runs on its own goroutine and
// may call back into the session.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.eventFeed.subscribe(fn)
}

// Events returns a copy of the event log.
func (s *Session) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Running returns the active execution id, or 0 when idle.
func (s *Session) Running() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Submit runs line and returns its execution id. It returns 0 when the line
// is empty or the session is busy; a busy session records a warning notice.
// A line that fails to parse completes synchronously with a usage exit.
func (s *Session) Submit(line, source string) uint64 {
	s.mu.Lock()

	if s.active != 0 {
		running := s.active
		s.appendLocked(Event{Kind: EventNotice, Level: registry.Warning, Message: BusyMessage})
		s.mu.Unlock()
		s.logger.Warn().Uint64("execution_id", running).Msg("submission rejected")
		return 0
	}

	stages, err := parser.ParseLine(line)
	if err != nil {
		s.nextID++
		id := s.nextID
		exit := exitFor(err)
		s.appendLocked(Event{Kind: EventStarted, ExecutionID: id, Line: line, Source: source})
		s.appendLocked(Event{Kind: EventNotice, ExecutionID: id, Level: registry.Error, Message: err.Error()})
		s.appendLocked(Event{Kind: EventCompleted, ExecutionID: id, Summary: &Summary{ExecutionID: id, Exit: exit}})
		s.mu.Unlock()
		s.logger.Debug().Uint64("execution_id", id).Err(err).Msg("line rejected by parser")
		return id
	}
	if len(stages) == 0 {
		s.mu.Unlock()
		return 0
	}

	s.nextID++
	id := s.nextID
	ctx, cancel := context.WithCancel(context.Background())
	s.active = id
	s.cancel = cancel
	s.idle = make(chan struct{})
	s.cancelled.Store(false)
	snap := s.engine.registry.Snapshot()
	s.appendLocked(Event{Kind: EventStarted, ExecutionID: id, Line: line, Source: source})
	s.mu.Unlock()

	s.logger.Debug().Uint64("execution_id", id).Str("line", line).Int("stages", len(stages)).Msg("pipeline started")

	go s.run(ctx, id, source, stages, snap)
	return id
}

// Cancel requests cooperative cancellation of the running execution. It is
// observed at the next stage boundary, or by a handler polling for it.
// Idle sessions ignore it.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == 0 {
		return
	}
	s.cancelled.Store(true)
	s.cancel()
	s.logger.Debug().Uint64("execution_id", s.active).Msg("cancellation requested")
}

// Wait blocks until the session is idle or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Complete returns completion candidates for req. An empty req.Cwd is
// filled with the session's working directory.
func (s *Session) Complete(ctx context.Context, req registry.CompletionRequest) ([]registry.CompletionItem, error) {
	if req.Cwd == "" {
		req.Cwd = s.Cwd()
	}
	return completion.Complete(ctx, s.engine.registry.Snapshot(), req)
}

// Close detaches every subscriber. Events appended later are still logged.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.eventFeed.closeAll()
	s.cwdFeed.closeAll()
	return nil
}

func (s *Session) run(ctx context.Context, id uint64, source string, stages [][]string, snap *registry.Snapshot) {
	started := time.Now()
	p := &pipeline{session: s, id: id, source: source, snap: snap, input: data.Empty()}

	for _, stage := range stages {
		if s.cancelled.Load() {
			p.cancelled()
			break
		}
		if !p.runStage(ctx, stage) {
			break
		}
	}

	s.mu.Lock()
	invariant.Invariant(s.active == id, "execution %d finished while the session slot held %d", id, s.active)
	s.appendLocked(Event{Kind: EventCompleted, ExecutionID: id, Summary: &Summary{ExecutionID: id, Command: p.command, Exit: p.exit}})
	s.active = 0
	s.cancel()
	close(s.idle)
	s.mu.Unlock()

	s.logger.Info().
		Uint64("execution_id", id).
		Str("command", p.command).
		Int("exit", p.exit.Code).
		Dur("duration", time.Since(started)).
		Msg("pipeline completed")
}

// pipeline is the state of one running execution.
type pipeline struct {
	session *Session
	id      uint64
	source  string
	snap    *registry.Snapshot

	input   data.Data
	command string
	exit    registry.Exit
}

func (p *pipeline) runStage(ctx context.Context, stage []string) bool {
	s := p.session

	m, err := resolver.Resolve(p.snap, stage)
	if err != nil {
		p.fail(err)
		if hint := shellerrors.Suggestion(err); hint != "" {
			s.emit(Event{Kind: EventNotice, ExecutionID: p.id, Level: registry.Info, Message: "did you mean `" + hint + "`?"})
		}
		return false
	}

	if m.Kind == resolver.Namespace {
		p.command = strings.Join(m.Prefix, " ")
		out := data.FromTable(namespaceTable(m))
		s.logger.Debug().Uint64("execution_id", p.id).Str("command", p.command).Msg("namespace listed")
		s.emit(Event{Kind: EventData, ExecutionID: p.id, Payload: out, Display: data.DisplayHelp})
		p.input = out
		return true
	}

	reg := m.Command
	desc := reg.Descriptor
	p.command = desc.CanonicalPath()
	inv := parser.ParseArgs(m.Remaining(stage))
	log := s.logger.With().Uint64("execution_id", p.id).Str("command", p.command).Logger()

	if inv.WantsHelp() {
		out := data.FromRecord(desc.HelpRecord())
		s.emit(Event{Kind: EventData, ExecutionID: p.id, Payload: out, Display: data.DisplayHelp})
		p.input = out
		return true
	}

	if err := desc.Input.Validate(p.input); err != nil {
		log.Debug().Err(err).Msg("input rejected")
		p.fail(err)
		return false
	}

	ec := (&registry.ExecutionContext{
		ExecutionID: p.id,
		Descriptor:  desc,
		Tokens:      stage,
		Args:        inv.Args,
		Invocation:  inv,
		Cwd:         s.Cwd(),
		Input:       p.input,
		Source:      p.source,
	}).Bind(sessionSink{s})

	log.Debug().Strs("args", inv.Args).Msg("invoking handler")
	res, err := reg.Handler(ctx, ec)
	if err != nil {
		if stderrors.Is(err, context.Canceled) && s.cancelled.Load() {
			p.cancelled()
			return false
		}
		log.Debug().Err(err).Msg("handler failed")
		p.fail(err)
		return false
	}

	if res.Cwd != nil {
		s.setCwd(*res.Cwd)
	}
	for _, n := range res.Notices {
		s.emit(Event{Kind: EventNotice, ExecutionID: p.id, Level: n.Level, Message: n.Message})
	}
	if !res.Output.IsEmpty() {
		s.emit(Event{Kind: EventData, ExecutionID: p.id, Payload: res.Output, Display: res.Display})
	}
	p.input = res.Output
	p.exit = res.Exit
	return res.Exit.Success()
}

func (p *pipeline) fail(err error) {
	p.session.emit(Event{Kind: EventNotice, ExecutionID: p.id, Level: registry.Error, Message: err.Error()})
	p.exit = exitFor(err)
}

func (p *pipeline) cancelled() {
	p.session.emit(Event{Kind: EventCancelled, ExecutionID: p.id})
	p.exit = registry.Exit{Code: shellerrors.ExitCancelled, Message: "cancelled"}
}

func exitFor(err error) registry.Exit {
	return registry.Exit{Code: shellerrors.ExitCode(err), Message: err.Error()}
}

// namespaceTable lists the commands directly below a namespace.
func namespaceTable(m resolver.Match) *data.Table {
	rows := make([]data.Record, len(m.Children))
	for i, child := range m.Children {
		rows[i] = data.NewRecord(
			data.NewField("name", data.Text(child.Segment)),
			data.NewField("command", data.Text(child.Path)),
			data.NewField("summary", data.Text(child.Summary)),
		)
	}
	return data.NewTable([]string{"name", "command", "summary"}, rows, strings.Join(m.Prefix, " "))
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(ev)
}

// appendLocked stamps and logs ev and queues it for subscribers. s.mu must
// be held so the log and every subscriber agree on order.
func (s *Session) appendLocked(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	s.events = append(s.events, ev)
	s.eventFeed.publish(ev)
}

func (s *Session) setCwd(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cwd == path {
		return
	}
	s.cwd = path
	s.cwdFeed.publish(path)
}

// sessionSink routes a handler's reports into the session.
type sessionSink struct{ s *Session }

func (k sessionSink) Notice(id uint64, level registry.NoticeLevel, message string) {
	k.s.emit(Event{Kind: EventNotice, ExecutionID: id, Level: level, Message: message})
}

func (k sessionSink) Progress(id uint64, value *float64, label string) {
	k.s.emit(Event{Kind: EventProgress, ExecutionID: id, Progress: value, Label: label})
}

func (k sessionSink) Emit(id uint64, payload data.Data, hint data.DisplayHint) {
	k.s.emit(Event{Kind: EventData, ExecutionID: id, Payload: payload, Display: hint})
}

func (k sessionSink) SetCwd(path string) { k.s.setCwd(path) }

func (k sessionSink) Cancelled() bool { return k.s.cancelled.Load() }
