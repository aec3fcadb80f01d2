package parser

import (
	"strconv"
	"strings"

	"github.com/aledsdavies/pipeshell/pkgs/data"
)

// Option is one parsed named option. Short is the single-character form,
// or 0 when the option was written as --name.
type Option struct {
	Name  string
	Short rune
	Value *data.Scalar
}

// Positional is a positional argument with its inferred literal.
type Positional struct {
	Literal data.Scalar
	Raw     string
}

// Invocation is the parsed form of a stage's arguments.
type Invocation struct {
	Tokens  []string
	Options []Option
	Values  []Positional
	Args    []string
}

// ParseArgs parses the tokens left after the command path is stripped.
//
//	--name=value   option with a typed value
//	--name tok     option consuming tok unless tok starts with "-"
//	--name         boolean option
//	-abc           boolean options a, b and c
//	--             ends option parsing
//
// Everything else, including a lone "-", is positional.
func ParseArgs(tokens []string) Invocation {
	inv := Invocation{Tokens: tokens}
	optionsDone := false

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		switch {
		case optionsDone || tok == "-" || !strings.HasPrefix(tok, "-"):
			inv.addPositional(tok)

		case tok == "--":
			optionsDone = true

		case strings.HasPrefix(tok, "--"):
			body := tok[2:]
			if name, raw, ok := strings.Cut(body, "="); ok {
				lit := ParseLiteral(raw)
				inv.Options = append(inv.Options, Option{Name: name, Value: &lit})
				continue
			}
			opt := Option{Name: body}
			if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
				i++
				lit := ParseLiteral(tokens[i])
				opt.Value = &lit
			}
			inv.Options = append(inv.Options, opt)

		case !strings.Contains(tok, "="):
			for _, r := range tok[1:] {
				inv.Options = append(inv.Options, Option{Name: string(r), Short: r})
			}

		default:
			inv.addPositional(tok)
		}
	}

	return inv
}

func (inv *Invocation) addPositional(raw string) {
	inv.Values = append(inv.Values, Positional{Literal: ParseLiteral(raw), Raw: raw})
	inv.Args = append(inv.Args, raw)
}

// Option returns the first option matching the long name or short form.
// A zero short matches nothing.
func (inv Invocation) Option(name string, short rune) (Option, bool) {
	for _, opt := range inv.Options {
		if opt.Name == name || (short != 0 && opt.Short == short) {
			return opt, true
		}
	}
	return Option{}, false
}

// Flag reports whether a boolean-style option is set. An option given a
// value is set unless the value is false or null.
func (inv Invocation) Flag(name string, short rune) bool {
	opt, ok := inv.Option(name, short)
	if !ok {
		return false
	}
	if opt.Value == nil {
		return true
	}
	switch opt.Value.Kind {
	case data.NullKind:
		return false
	case data.BoolKind:
		return opt.Value.Bool
	default:
		return true
	}
}

// WantsHelp reports whether --help or -h was given.
func (inv Invocation) WantsHelp() bool {
	return inv.Flag("help", 'h')
}

// ParseLiteral infers the type of a raw token: null, true/on, false/off,
// integer, float, otherwise string.
func ParseLiteral(raw string) data.Scalar {
	switch raw {
	case "null":
		return data.Null()
	case "true", "on":
		return data.Bool(true)
	case "false", "off":
		return data.Bool(false)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return data.Int(i)
	}
	if looksNumeric(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return data.Float(f)
		}
	}
	return data.String(raw)
}

// looksNumeric rejects spellings ParseFloat accepts but a user would not
// mean as a number, such as "inf", "nan" and hex mantissas.
func looksNumeric(raw string) bool {
	digit := false
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return digit
}
