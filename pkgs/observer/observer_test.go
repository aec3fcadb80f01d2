package observer

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aledsdavies/pipeshell/pkgs/data"
	"github.com/aledsdavies/pipeshell/pkgs/engine"
	"github.com/aledsdavies/pipeshell/pkgs/registry"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Session string `json:"session"`
	Event   struct {
		Kind        string `json:"kind"`
		ExecutionID uint64 `json:"execution_id"`
		Line        string `json:"line"`
		Display     string `json:"display"`
		Exit        *struct {
			Code int `json:"code"`
		} `json:"exit"`
	} `json:"event"`
}

func newEngine() *engine.Engine {
	e := engine.New()
	e.Register(registry.Descriptor{Path: []string{"greet"}, Input: data.NoInput()}, nil,
		func(context.Context, *registry.ExecutionContext) (registry.Result, error) {
			return registry.Output(data.FromValue(data.Text("hello"))), nil
		})
	return e
}

func dial(t *testing.T, srv *Server, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	before := srv.Clients()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return srv.Clients() == before+1 }, 5*time.Second, 5*time.Millisecond)
	return conn
}

func readUntilCompleted(t *testing.T, conn *websocket.Conn) []frame {
	t.Helper()
	var frames []frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		frames = append(frames, f)
		if f.Event.Kind == "completed" {
			return frames
		}
	}
}

func TestServerStreamsSessionEvents(t *testing.T) {
	srv := NewServer(zerolog.Nop())
	ts := httptest.NewServer(srv)
	defer ts.Close()

	s := newEngine().NewSession("/")
	defer srv.Attach(s)()

	conn := dial(t, srv, ts, "")
	s.Submit("greet", "remote")

	frames := readUntilCompleted(t, conn)
	kinds := make([]string, len(frames))
	for i, f := range frames {
		kinds[i] = f.Event.Kind
		assert.Equal(t, s.ID().String(), f.Session)
		assert.Equal(t, uint64(1), f.Event.ExecutionID)
	}
	assert.Equal(t, []string{"started", "data", "completed"}, kinds)
	assert.Equal(t, "greet", frames[0].Event.Line)
	assert.Equal(t, "value", frames[1].Event.Display)
	require.NotNil(t, frames[2].Event.Exit)
	assert.Equal(t, 0, frames[2].Event.Exit.Code)
}

func TestServerFiltersBySession(t *testing.T) {
	srv := NewServer(zerolog.Nop())
	ts := httptest.NewServer(srv)
	defer ts.Close()

	e := newEngine()
	first, second := e.NewSession("/"), e.NewSession("/")
	defer srv.Attach(first)()
	defer srv.Attach(second)()

	conn := dial(t, srv, ts, "?session="+second.ID().String())

	first.Submit("nope", "remote")
	require.NoError(t, first.Wait(context.Background()))
	second.Submit("greet", "remote")

	for _, f := range readUntilCompleted(t, conn) {
		assert.Equal(t, second.ID().String(), f.Session)
	}
}

func TestServerForgetsClosedClients(t *testing.T) {
	srv := NewServer(zerolog.Nop())
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dial(t, srv, ts, "")
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return srv.Clients() == 0 }, 5*time.Second, 5*time.Millisecond)

	// Broadcasting with nobody listening is harmless.
	s := newEngine().NewSession("/")
	defer srv.Attach(s)()
	s.Submit("greet", "remote")
	require.NoError(t, s.Wait(context.Background()))
}

func TestServerRejectsPlainHTTP(t *testing.T) {
	srv := NewServer(zerolog.Nop())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, 0, srv.Clients())
}
