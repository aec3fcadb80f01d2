// Package lexer splits a raw command line into words and pipes.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	shellerrors "github.com/aledsdavies/pipeshell/pkgs/errors"
)

// Error messages reported by Tokenize.
const (
	ErrUnterminatedQuote = "unterminated quoted string"
	ErrDanglingEscape    = "dangling escape sequence"
)

// Lexer holds the scanning state for one line.
type Lexer struct {
	input  string
	pos    int
	tokens []Token

	word    strings.Builder
	inWord  bool
	start   int
	quote   rune
	quoteAt int
}

// New creates a lexer over line.
func New(line string) *Lexer {
	return &Lexer{input: line}
}

// Tokenize scans line into WORD and PIPE tokens. Whitespace outside quotes
// separates words, a matching quote pair groups text, and a backslash takes
// the next character literally inside or outside quotes.
func Tokenize(line string) ([]Token, error) {
	return New(line).Tokenize()
}

// Tokenize scans the whole input.
func (l *Lexer) Tokenize() ([]Token, error) {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		at := l.pos
		l.pos += size

		switch {
		case r == '\\':
			_, nsize := utf8.DecodeRuneInString(l.input[l.pos:])
			if nsize == 0 {
				return nil, shellerrors.Usagef(ErrDanglingEscape).WithContext("offset", at)
			}
			l.begin(at)
			l.word.WriteString(l.input[l.pos : l.pos+nsize])
			l.pos += nsize

		case l.quote != 0:
			if r == l.quote {
				l.quote = 0
				continue
			}
			l.word.WriteString(l.input[at:l.pos])

		case r == '"' || r == '\'':
			l.begin(at)
			l.quote = r
			l.quoteAt = at

		case r == '|':
			l.flush(at)
			l.tokens = append(l.tokens, Token{Type: PIPE, Value: "|", Start: at, End: l.pos})

		case unicode.IsSpace(r):
			l.flush(at)

		default:
			l.begin(at)
			// Raw bytes, so invalid UTF-8 survives unchanged.
			l.word.WriteString(l.input[at:l.pos])
		}
	}

	if l.quote != 0 {
		return nil, shellerrors.Usagef(ErrUnterminatedQuote).WithContext("offset", l.quoteAt)
	}
	l.flush(l.pos)
	return l.tokens, nil
}

// begin marks the start of a word if one is not already open.
func (l *Lexer) begin(at int) {
	if !l.inWord {
		l.inWord = true
		l.start = at
	}
}

// flush emits the open word, if any. A word opened by an empty quote pair
// is still emitted.
func (l *Lexer) flush(end int) {
	if !l.inWord {
		return
	}
	l.tokens = append(l.tokens, Token{Type: WORD, Value: l.word.String(), Start: l.start, End: end})
	l.word.Reset()
	l.inWord = false
}

// Words returns the values of all WORD tokens.
func Words(tokens []Token) []string {
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Type == WORD {
			words = append(words, tok.Value)
		}
	}
	return words
}
