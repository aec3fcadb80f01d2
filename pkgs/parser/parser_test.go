package parser

import (
	"testing"

	"github.com/aledsdavies/pipeshell/pkgs/data"
	shellerrors "github.com/aledsdavies/pipeshell/pkgs/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lit(s data.Scalar) *data.Scalar { return &s }

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected [][]string
	}{
		{"empty", "", nil},
		{"single stage", "apps list", [][]string{{"apps", "list"}}},
		{"two stages", "ls | data select name", [][]string{{"ls"}, {"data", "select", "name"}}},
		{"quoted pipe stays", `echo "a | b" | data first`, [][]string{{"echo", "a | b"}, {"data", "first"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages, err := ParseLine(tt.input)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.expected, stages); diff != "" {
				t.Errorf("ParseLine(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestSplitErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"| ls", ErrEmptyStage},
		{"ls || wc", ErrEmptyStage},
		{"ls | | wc", ErrEmptyStage},
		{"ls |", ErrTrailingPipe},
		{"|", ErrEmptyStage},
		{`ls "x`, "unterminated quoted string"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseLine(tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.message, err.Error())
			assert.True(t, shellerrors.IsKind(err, shellerrors.Usage))
		})
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		tokens  []string
		options []Option
		values  []Positional
		args    []string
	}{
		{
			name:   "positionals only",
			tokens: []string{"name", "42"},
			values: []Positional{{data.String("name"), "name"}, {data.Int(42), "42"}},
			args:   []string{"name", "42"},
		},
		{
			name:    "long option with equals",
			tokens:  []string{"--limit=5"},
			options: []Option{{Name: "limit", Value: lit(data.Int(5))}},
		},
		{
			name:    "long option consumes next",
			tokens:  []string{"--theme", "dark", "rest"},
			options: []Option{{Name: "theme", Value: lit(data.String("dark"))}},
			values:  []Positional{{data.String("rest"), "rest"}},
			args:    []string{"rest"},
		},
		{
			name:    "long option before option is boolean",
			tokens:  []string{"--desc", "--all"},
			options: []Option{{Name: "desc"}, {Name: "all"}},
		},
		{
			name:    "trailing long option is boolean",
			tokens:  []string{"size", "--desc"},
			options: []Option{{Name: "desc"}},
			values:  []Positional{{data.String("size"), "size"}},
			args:    []string{"size"},
		},
		{
			name:    "short cluster",
			tokens:  []string{"-la"},
			options: []Option{{Name: "l", Short: 'l'}, {Name: "a", Short: 'a'}},
		},
		{
			name:   "short with equals is positional",
			tokens: []string{"-x=1"},
			values: []Positional{{data.String("-x=1"), "-x=1"}},
			args:   []string{"-x=1"},
		},
		{
			name:   "lone dash is positional",
			tokens: []string{"-"},
			values: []Positional{{data.String("-"), "-"}},
			args:   []string{"-"},
		},
		{
			name:    "double dash ends options",
			tokens:  []string{"-v", "--", "--name", "-x"},
			options: []Option{{Name: "v", Short: 'v'}},
			values:  []Positional{{data.String("--name"), "--name"}, {data.String("-x"), "-x"}},
			args:    []string{"--name", "-x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := ParseArgs(tt.tokens)
			if diff := cmp.Diff(tt.options, inv.Options); diff != "" {
				t.Errorf("options mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.values, inv.Values); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.args, inv.Args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.tokens, inv.Tokens)
		})
	}
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		raw  string
		want data.Scalar
	}{
		{"null", data.Null()},
		{"true", data.Bool(true)},
		{"on", data.Bool(true)},
		{"false", data.Bool(false)},
		{"off", data.Bool(false)},
		{"12", data.Int(12)},
		{"-3", data.Int(-3)},
		{"2.5", data.Float(2.5)},
		{"1e3", data.Float(1000)},
		{"inf", data.String("inf")},
		{"NaN", data.String("NaN")},
		{"0x1p4", data.String("0x1p4")},
		{"True", data.String("True")},
		{"", data.String("")},
		{"hello", data.String("hello")},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLiteral(tt.raw))
		})
	}
}

func TestFlags(t *testing.T) {
	inv := ParseArgs([]string{"-h", "--desc=false", "--verbose"})
	assert.True(t, inv.WantsHelp())
	assert.False(t, inv.Flag("desc", 0))
	assert.True(t, inv.Flag("verbose", 'v'))
	assert.False(t, inv.Flag("missing", 'm'))

	assert.True(t, ParseArgs([]string{"--help"}).WantsHelp())
	assert.False(t, ParseArgs([]string{"help"}).WantsHelp())

	opt, ok := inv.Option("desc", 0)
	require.True(t, ok)
	require.NotNil(t, opt.Value)
	assert.Equal(t, data.Bool(false), *opt.Value)
}
