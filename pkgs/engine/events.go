package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aledsdavies/pipeshell/pkgs/data"
	"github.com/aledsdavies/pipeshell/pkgs/registry"
)

// EventKind identifies an entry of a session's event stream.
type EventKind int

const (
	EventStarted EventKind = iota
	EventNotice
	EventProgress
	EventData
	EventCancelled
	EventCompleted
)

var eventNames = [...]string{
	EventStarted:   "started",
	EventNotice:    "notice",
	EventProgress:  "progress",
	EventData:      "data",
	EventCancelled: "cancelled",
	EventCompleted: "completed",
}

func (k EventKind) String() string {
	if int(k) >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Summary describes a finished execution.
type Summary struct {
	ExecutionID uint64
	// Command is the canonical path of the last stage resolved, if any.
	Command string
	Exit    registry.Exit
}

// Event is one entry of a session's event stream. Which fields are set
// depends on Kind.
type Event struct {
	Kind        EventKind
	ExecutionID uint64
	Time        time.Time

	// Started
	Line   string
	Source string

	// Notice
	Level   registry.NoticeLevel
	Message string

	// Progress
	Progress *float64
	Label    string

	// Data
	Payload data.Data
	Display data.DisplayHint

	// Completed
	Summary *Summary
}

type exitJSON struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

type eventJSON struct {
	Kind        string     `json:"kind"`
	ExecutionID uint64     `json:"execution_id"`
	Time        time.Time  `json:"time"`
	Line        string     `json:"line,omitempty"`
	Source      string     `json:"source,omitempty"`
	Level       string     `json:"level,omitempty"`
	Message     string     `json:"message,omitempty"`
	Progress    *float64   `json:"progress,omitempty"`
	Label       string     `json:"label,omitempty"`
	Payload     *data.Data `json:"payload,omitempty"`
	Display     string     `json:"display,omitempty"`
	Command     string     `json:"command,omitempty"`
	Exit        *exitJSON  `json:"exit,omitempty"`
}

// MarshalJSON encodes the event in the wire form remote presentation layers
// consume.
func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{
		Kind:        e.Kind.String(),
		ExecutionID: e.ExecutionID,
		Time:        e.Time,
	}
	switch e.Kind {
	case EventStarted:
		out.Line = e.Line
		out.Source = e.Source
	case EventNotice:
		out.Level = e.Level.String()
		out.Message = e.Message
	case EventProgress:
		out.Progress = e.Progress
		out.Label = e.Label
	case EventData:
		payload := e.Payload
		out.Payload = &payload
		out.Display = e.Display.String()
	case EventCompleted:
		if e.Summary != nil {
			out.Command = e.Summary.Command
			out.Exit = &exitJSON{Code: e.Summary.Exit.Code, Message: e.Summary.Exit.Message}
		}
	}
	return json.Marshal(out)
}
