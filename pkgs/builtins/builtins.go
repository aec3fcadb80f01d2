// Package builtins provides the commands every shell session has: help,
// working-directory commands, structured-data filters and history.
package builtins

import (
	"context"

	"github.com/aledsdavies/pipeshell/pkgs/history"
	"github.com/aledsdavies/pipeshell/pkgs/registry"
)

// Registrar is where built-in commands are registered.
type Registrar interface {
	Register(desc registry.Descriptor, completion registry.CompletionProvider, handler registry.Handler) *registry.Handle
	Descriptors() []registry.Descriptor
}

// HistoryReader is the read side of a history store.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Config selects optional built-ins.
type Config struct {
	// History enables "history list" when set.
	History HistoryReader
	// HistoryLimit is the default number of entries listed.
	HistoryLimit int
}

const defaultHistoryLimit = 20

type command struct {
	desc       registry.Descriptor
	completion registry.CompletionProvider
	handler    registry.Handler
}

// Register adds every built-in to r and returns their handles.
func Register(r Registrar, cfg Config) []*registry.Handle {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}

	var commands []command
	commands = append(commands, helpCommands(r)...)
	commands = append(commands, shellCommands()...)
	commands = append(commands, dataCommands()...)
	if cfg.History != nil {
		commands = append(commands, historyCommands(cfg.History, cfg.HistoryLimit)...)
	}

	handles := make([]*registry.Handle, 0, len(commands))
	for _, c := range commands {
		handles = append(handles, r.Register(c.desc, c.completion, c.handler))
	}
	return handles
}
