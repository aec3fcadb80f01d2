// Package observer streams session events to remote presentation layers
// over WebSocket.
package observer

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/aledsdavies/pipeshell/pkgs/engine"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 256
)

// Message is the frame sent for every event.
type Message struct {
	Session string       `json:"session"`
	Event   engine.Event `json:"event"`
}

// Server fans session events out to every connected WebSocket client.
// A client may pass ?session=<id> to receive one session only. Clients
// that fall behind are disconnected.
type Server struct {
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	session string
	send    chan []byte
}

// NewServer creates an observer with no clients.
func NewServer(logger zerolog.Logger) *Server {
	return &Server{
		logger: logger.With().Str("component", "observer").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*client]struct{}),
	}
}

// Attach forwards every event s appends from now on.
func (srv *Server) Attach(s *engine.Session) (detach func()) {
	id := s.ID().String()
	return s.Subscribe(func(ev engine.Event) {
		frame, err := json.Marshal(Message{Session: id, Event: ev})
		if err != nil {
			srv.logger.Error().Err(err).Str("session", id).Msg("encode event")
			return
		}
		srv.broadcast(id, frame)
	})
}

// Clients returns the number of connected clients.
func (srv *Server) Clients() int {
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	return len(srv.clients)
}

func (srv *Server) broadcast(session string, frame []byte) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	for c := range srv.clients {
		if c.session != "" && c.session != session {
			continue
		}
		select {
		case c.send <- frame:
		default:
			srv.logger.Warn().Str("session", session).Msg("dropping slow observer")
			srv.removeLocked(c)
		}
	}
}

func (srv *Server) removeLocked(c *client) {
	if _, ok := srv.clients[c]; ok {
		delete(srv.clients, c)
		close(c.send)
	}
}

// ServeHTTP upgrades the request and streams events until the client goes
// away.
func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{session: r.URL.Query().Get("session"), send: make(chan []byte, sendBuffer)}
	srv.mu.Lock()
	srv.clients[c] = struct{}{}
	srv.mu.Unlock()
	srv.logger.Debug().Str("remote", r.RemoteAddr).Str("session", c.session).Msg("observer connected")

	go srv.writePump(conn, c)
	srv.readPump(conn, c)
}

// readPump discards client frames and notices disconnects.
func (srv *Server) readPump(conn *websocket.Conn, c *client) {
	defer func() {
		srv.mu.Lock()
		srv.removeLocked(c)
		srv.mu.Unlock()
		_ = conn.Close()
		srv.logger.Debug().Msg("observer disconnected")
	}()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (srv *Server) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
