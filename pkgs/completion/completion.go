// Package completion computes tab-completion candidates for a partial line.
package completion

import (
	"context"
	"strings"

	"github.com/aledsdavies/pipeshell/pkgs/lexer"
	"github.com/aledsdavies/pipeshell/pkgs/registry"
	"github.com/aledsdavies/pipeshell/pkgs/resolver"
)

// Complete returns candidates for the last stage of req.Line.
//
// When the line ends in whitespace the whole stage is the base and nothing
// is partial; otherwise the final word is the partial. A base that resolves
// to a command with a completion provider is delegated to that provider.
// Otherwise the next path segments below the base that start with the
// partial are listed. A line that does not tokenize yields no candidates.
func Complete(ctx context.Context, snap *registry.Snapshot, req registry.CompletionRequest) ([]registry.CompletionItem, error) {
	tokens, err := lexer.Tokenize(req.Line)
	if err != nil {
		return nil, nil
	}

	stage := lastStage(tokens)
	words := lexer.Words(stage)

	base, partial := words, ""
	if len(stage) > 0 && stage[len(stage)-1].End == len(req.Line) {
		base, partial = words[:len(words)-1], words[len(words)-1]
	}

	if len(base) > 0 {
		if m, err := resolver.Resolve(snap, base); err == nil && m.Kind == resolver.Leaf && m.Command.Completion != nil {
			return m.Command.Completion(ctx, req)
		}
	}

	var items []registry.CompletionItem
	for _, child := range resolver.Children(snap, base) {
		if !strings.HasPrefix(child.Segment, partial) {
			continue
		}
		items = append(items, registry.CompletionItem{
			Value:  child.Segment,
			Label:  child.Segment,
			Detail: child.Summary,
		})
	}
	return items, nil
}

// lastStage returns the tokens after the final pipe. A trailing pipe yields
// an empty stage.
func lastStage(tokens []lexer.Token) []lexer.Token {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Type == lexer.PIPE {
			return tokens[i+1:]
		}
	}
	return tokens
}
