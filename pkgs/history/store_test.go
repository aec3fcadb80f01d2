package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aledsdavies/pipeshell/pkgs/data"
	"github.com/aledsdavies/pipeshell/pkgs/engine"
	"github.com/aledsdavies/pipeshell/pkgs/registry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func lines(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Line
	}
	return out
}

func TestAppendAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, line := range []string{"apps list", "cd /tmp", "pwd"} {
		id, err := store.Append(ctx, Entry{
			SessionID:   "s1",
			ExecutionID: uint64(i + 1),
			Line:        line,
			ExitCode:    i,
			StartedAt:   start.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), id)
	}

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"cd /tmp", "pwd"}, lines(entries))
	assert.Equal(t, uint64(3), entries[1].ExecutionID)
	assert.Equal(t, 2, entries[1].ExitCode)
	assert.True(t, entries[1].StartedAt.Equal(start.Add(2*time.Second)))
	assert.Equal(t, entries[1].StartedAt, entries[1].FinishedAt)

	none, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAppendValidation(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Append(context.Background(), Entry{Line: "  "})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Append(ctx, Entry{Line: "pwd"})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Open(" ")
	assert.Error(t, err)
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for _, line := range []string{"a", "b", "c", "d"} {
		_, err := store.Append(ctx, Entry{Line: line})
		require.NoError(t, err)
	}

	require.NoError(t, store.Prune(ctx, 2))
	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, lines(entries))

	require.NoError(t, store.Prune(ctx, 0))
	entries, err = store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.Append(context.Background(), Entry{Line: "apps list"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"apps list"}, lines(entries))
}

func TestMemoryStore(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Append(context.Background(), Entry{Line: "pwd"})
	require.NoError(t, err)
	entries, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecorderWritesCompletedExecutions(t *testing.T) {
	store := openTestStore(t)

	e := engine.New()
	e.Register(registry.Descriptor{Path: []string{"apps", "list"}}, nil, func(context.Context, *registry.ExecutionContext) (registry.Result, error) {
		return registry.Output(data.FromValue(data.Text("ok"))), nil
	})

	rec := NewRecorder(store, 10, zerolog.Nop())
	s := e.NewSession("/")
	defer rec.Attach(s)()

	s.Submit("apps list", "repl")
	require.NoError(t, s.Wait(context.Background()))
	s.Submit("nope", "repl")
	require.NoError(t, s.Wait(context.Background()))

	var entries []Entry
	require.Eventually(t, func() bool {
		var err error
		entries, err = store.Recent(context.Background(), 10)
		return err == nil && len(entries) == 2
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"apps list", "nope"}, lines(entries))
	assert.Equal(t, "apps list", entries[0].Command)
	assert.Equal(t, "repl", entries[0].Source)
	assert.Equal(t, 0, entries[0].ExitCode)
	assert.Equal(t, 3, entries[1].ExitCode)
	assert.Equal(t, s.ID().String(), entries[1].SessionID)
}
