// Package parser turns lexer tokens into pipeline stages and parses the
// arguments of a single stage.
package parser

import (
	shellerrors "github.com/aledsdavies/pipeshell/pkgs/errors"
	"github.com/aledsdavies/pipeshell/pkgs/lexer"
)

// Error messages reported by Split.
const (
	ErrEmptyStage   = "empty pipeline stage"
	ErrTrailingPipe = "pipeline cannot end with |"
)

// Split groups tokens into stages at PIPE boundaries. No tokens yields no
// stages.
func Split(tokens []lexer.Token) ([][]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	var stages [][]string
	var current []string
	for i, tok := range tokens {
		if tok.Type != lexer.PIPE {
			current = append(current, tok.Value)
			continue
		}
		if len(current) == 0 {
			return nil, shellerrors.Usagef(ErrEmptyStage).WithContext("token", i)
		}
		stages = append(stages, current)
		current = nil
	}

	if len(current) == 0 {
		return nil, shellerrors.Usagef(ErrTrailingPipe)
	}
	return append(stages, current), nil
}

// ParseLine tokenizes and splits line in one step.
func ParseLine(line string) ([][]string, error) {
	tokens, err := lexer.Tokenize(line)
	if err != nil {
		return nil, err
	}
	return Split(tokens)
}
