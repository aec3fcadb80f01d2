package registry

import (
	"context"
	"math"

	"github.com/aledsdavies/pipeshell/pkgs/data"
	"github.com/aledsdavies/pipeshell/pkgs/parser"
)

// Handler runs one stage of a pipeline.
type Handler func(ctx context.Context, ec *ExecutionContext) (Result, error)

// CompletionProvider returns candidates for a command's arguments.
type CompletionProvider func(ctx context.Context, req CompletionRequest) ([]CompletionItem, error)

// CompletionRequest is the line being completed.
type CompletionRequest struct {
	Line string
	Argv []string
	Cwd  string
}

// CompletionItem is one completion candidate. Detail is optional.
type CompletionItem struct {
	Value  string
	Label  string
	Detail string
}

// NoticeLevel is the severity of a notice.
type NoticeLevel int

const (
	Info NoticeLevel = iota
	Warning
	Error
)

var levelNames = [...]string{
	Info:    "info",
	Warning: "warning",
	Error:   "error",
}

func (l NoticeLevel) String() string {
	if int(l) >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// Notice is a user-facing message attached to a result.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Exit is a stage's outcome. Message is optional.
type Exit struct {
	Code    int
	Message string
}

// Success reports a zero exit code.
func (e Exit) Success() bool { return e.Code == 0 }

// Result is what a handler returns on success.
type Result struct {
	Output  data.Data
	Display data.DisplayHint
	Notices []Notice
	// Cwd, when set, replaces the session's working directory.
	Cwd  *string
	Exit Exit
}

// Output builds a successful result carrying d with its natural display.
func Output(d data.Data) Result {
	return Result{Output: d, Display: data.HintFor(d)}
}

// TableResult builds a successful table result.
func TableResult(t *data.Table) Result {
	return Result{Output: data.FromTable(t), Display: data.DisplayTable}
}

// Sink receives what a running handler reports. The session implements it.
type Sink interface {
	Notice(executionID uint64, level NoticeLevel, message string)
	Progress(executionID uint64, value *float64, label string)
	Emit(executionID uint64, payload data.Data, hint data.DisplayHint)
	SetCwd(path string)
	Cancelled() bool
}

// ExecutionContext is what a handler sees of its invocation.
type ExecutionContext struct {
	ExecutionID uint64
	Descriptor  Descriptor
	// Tokens is the stage's full token vector, command path included.
	Tokens     []string
	Args       []string
	Invocation parser.Invocation
	Cwd        string
	Input      data.Data
	Source     string

	sink Sink
}

// Bind attaches the sink that receives the handler's reports.
func (ec *ExecutionContext) Bind(sink Sink) *ExecutionContext {
	ec.sink = sink
	return ec
}

// Notice emits a notice immediately, ahead of the stage's result.
func (ec *ExecutionContext) Notice(level NoticeLevel, message string) {
	if ec.sink != nil {
		ec.sink.Notice(ec.ExecutionID, level, message)
	}
}

// Progress reports progress. value, when set, is clamped to [0, 1]; NaN
// is reported as indeterminate.
func (ec *ExecutionContext) Progress(value *float64, label string) {
	if ec.sink == nil {
		return
	}
	if value != nil && math.IsNaN(*value) {
		value = nil
	}
	if value != nil {
		v := *value
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		value = &v
	}
	ec.sink.Progress(ec.ExecutionID, value, label)
}

// Emit publishes intermediate data. It is not carried to the next stage.
func (ec *ExecutionContext) Emit(payload data.Data, hint data.DisplayHint) {
	if ec.sink != nil {
		ec.sink.Emit(ec.ExecutionID, payload, hint)
	}
}

// SetCwd changes the session's working directory right away.
func (ec *ExecutionContext) SetCwd(path string) {
	ec.Cwd = path
	if ec.sink != nil {
		ec.sink.SetCwd(path)
	}
}

// Cancelled reports whether cancellation has been requested.
func (ec *ExecutionContext) Cancelled() bool {
	return ec.sink != nil && ec.sink.Cancelled()
}
