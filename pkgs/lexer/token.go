package lexer

import "fmt"

// TokenType represents the type of token in a command line
type TokenType int

const (
	WORD TokenType = iota // plain, quoted or escaped text
	PIPE                  // unquoted |
)

var tokenNames = [...]string{
	WORD: "WORD",
	PIPE: "PIPE",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) && int(t) >= 0 {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is one lexical unit of a command line. Start and End are byte
// offsets into the line; End is exclusive and includes closing quotes.
type Token struct {
	Type  TokenType
	Value string
	Start int
	End   int
}

// Word builds a WORD token without position information.
func Word(value string) Token {
	return Token{Type: WORD, Value: value}
}

// Pipe builds a PIPE token without position information.
func Pipe() Token {
	return Token{Type: PIPE, Value: "|"}
}

func (t Token) String() string {
	if t.Type == PIPE {
		return "PIPE"
	}
	return fmt.Sprintf("WORD(%q)", t.Value)
}
