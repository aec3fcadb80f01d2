package resolver

import (
	"context"
	"testing"

	shellerrors "github.com/aledsdavies/pipeshell/pkgs/errors"
	"github.com/aledsdavies/pipeshell/pkgs/registry"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *registry.ExecutionContext) (registry.Result, error) {
	return registry.Result{}, nil
}

type entry struct {
	path    []string
	aliases [][]string
	scope   registry.Scope
	hidden  bool
	summary string
}

func build(t *testing.T, entries ...entry) (*registry.Registry, []registry.Token) {
	t.Helper()
	r := registry.New()
	tokens := make([]registry.Token, len(entries))
	for i, s := range entries {
		d := registry.Descriptor{
			Path:    s.path,
			Aliases: s.aliases,
			Scope:   s.scope,
			Help:    registry.Help{Summary: s.summary},
		}
		if s.hidden {
			d.Visibility = registry.Hidden
		}
		tokens[i] = r.Register(d, nil, noop)
	}
	return r, tokens
}

func TestLeafResolution(t *testing.T) {
	r, tokens := build(t,
		entry{path: []string{"apps", "list"}},
		entry{path: []string{"apps"}},
		entry{path: []string{"cd"}, aliases: [][]string{{"chdir"}}},
	)

	tests := []struct {
		name    string
		input   []string
		token   registry.Token
		matched int
	}{
		{"exact path", []string{"apps", "list"}, tokens[0], 2},
		{"path with args", []string{"apps", "list", "--all"}, tokens[0], 2},
		{"leaf beats namespace", []string{"apps"}, tokens[1], 1},
		{"shorter leaf with args", []string{"apps", "lst"}, tokens[1], 1},
		{"alias", []string{"chdir", "/tmp"}, tokens[2], 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Resolve(r.Snapshot(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, Leaf, m.Kind)
			assert.Equal(t, tt.token, m.Command.Token)
			assert.Equal(t, tt.matched, m.Matched)
		})
	}
}

func TestLongestCandidateWins(t *testing.T) {
	r, tokens := build(t,
		entry{path: []string{"data"}, scope: registry.WindowScope("w1")},
		entry{path: []string{"data", "sort"}},
	)

	m, err := Resolve(r.Snapshot(), []string{"data", "sort", "name"})
	require.NoError(t, err)
	assert.Equal(t, tokens[1], m.Command.Token, "length outranks scope")
	assert.Equal(t, []string{"name"}, m.Remaining([]string{"data", "sort", "name"}))
}

func TestScopePrecedence(t *testing.T) {
	r, tokens := build(t,
		entry{path: []string{"open"}},
		entry{path: []string{"open"}, scope: registry.AppScope("notes")},
		entry{path: []string{"open"}, scope: registry.WindowScope("w1")},
	)

	m, err := Resolve(r.Snapshot(), []string{"open"})
	require.NoError(t, err)
	assert.Equal(t, tokens[2], m.Command.Token)

	r.Unregister(tokens[2])
	m, err = Resolve(r.Snapshot(), []string{"open"})
	require.NoError(t, err)
	assert.Equal(t, tokens[1], m.Command.Token)
}

func TestAmbiguity(t *testing.T) {
	r, _ := build(t,
		entry{path: []string{"open"}, scope: registry.AppScope("notes")},
		entry{path: []string{"launch"}, aliases: [][]string{{"open"}}, scope: registry.AppScope("paint")},
	)

	_, err := Resolve(r.Snapshot(), []string{"open", "file.txt"})
	require.Error(t, err)
	assert.True(t, shellerrors.IsKind(err, shellerrors.Usage))
	assert.Equal(t, "ambiguous command `open`", err.Error())
}

func TestSameCommandViaPathAndAliasIsNotAmbiguous(t *testing.T) {
	r, tokens := build(t, entry{path: []string{"ls"}, aliases: [][]string{{"ls"}}})

	m, err := Resolve(r.Snapshot(), []string{"ls"})
	require.NoError(t, err)
	assert.Equal(t, tokens[0], m.Command.Token)
}

func TestNamespace(t *testing.T) {
	r, _ := build(t,
		entry{path: []string{"apps", "list"}, summary: "list apps"},
		entry{path: []string{"apps", "open"}, summary: "open an app"},
		entry{path: []string{"apps", "state", "clear"}},
		entry{path: []string{"apps", "secret"}, hidden: true},
	)

	m, err := Resolve(r.Snapshot(), []string{"apps"})
	require.NoError(t, err)
	assert.Equal(t, Namespace, m.Kind)
	assert.Equal(t, 1, m.Matched)
	assert.Equal(t, []string{"apps"}, m.Prefix)

	want := []Child{
		{Segment: "list", Path: "apps list", Summary: "list apps"},
		{Segment: "open", Path: "apps open", Summary: "open an app"},
		{Segment: "state", Path: "apps state"},
	}
	if diff := cmp.Diff(want, m.Children); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
}

func TestNotFound(t *testing.T) {
	r, _ := build(t,
		entry{path: []string{"apps", "list"}},
		entry{path: []string{"theme", "set"}},
		entry{path: []string{"secret"}, hidden: true},
	)

	tests := []struct {
		name       string
		input      []string
		message    string
		suggestion string
	}{
		{"fuzzy subsequence", []string{"apps", "lst"}, "command not found: apps lst", "apps list"},
		{"edit distance", []string{"thmee", "set"}, "command not found: thmee set", "theme set"},
		{"nothing close", []string{"zzz"}, "command not found: zzz", ""},
		{"hidden never suggested", []string{"secrt"}, "command not found: secrt", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(r.Snapshot(), tt.input)
			require.Error(t, err)
			assert.True(t, shellerrors.IsKind(err, shellerrors.NotFound))
			assert.Equal(t, tt.message, err.Error())
			assert.Equal(t, tt.suggestion, shellerrors.Suggestion(err))
		})
	}

	_, err := Resolve(r.Snapshot(), nil)
	assert.True(t, shellerrors.IsKind(err, shellerrors.NotFound))
}

func TestHiddenCommandsStillResolve(t *testing.T) {
	r, tokens := build(t, entry{path: []string{"sleep"}, hidden: true})

	m, err := Resolve(r.Snapshot(), []string{"sleep", "10"})
	require.NoError(t, err)
	assert.Equal(t, tokens[0], m.Command.Token)
}
