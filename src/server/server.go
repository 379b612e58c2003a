// Package server exposes sessions over HTTP and WebSocket. Each connection
// gets its own session ID, controller, and memory store, so concurrent
// clients never share state.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	json "github.com/alpkeskin/gotoon"
	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/tandemstack/tandem"
	"github.com/tandemstack/tandem/src/tools"
)

//go:embed static
var staticFiles embed.FS

const writeTimeout = 5 * time.Second

// wsMessage is the inbound client frame.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// SessionFactory builds a controller for a new connection. The sink receives
// every event the session produces.
type SessionFactory func(sessionID string, sink tandem.EventSink) (*tandem.Controller, error)

// Server serves the embedded UI on / and upgrades /ws connections.
type Server struct {
	addr      string
	factory   SessionFactory
	workspace *tools.Workspace
	logger    *slog.Logger

	httpServer *http.Server
	conns      sync.Map
}

// New wires a server. The workspace backs the file_tree request.
func New(addr string, factory SessionFactory, ws *tools.Workspace, logger *slog.Logger) (*Server, error) {
	if factory == nil {
		return nil, errors.New("server requires a session factory")
	}
	if ws == nil {
		return nil, errors.New("server requires a workspace")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{addr: addr, factory: factory, workspace: ws, logger: logger}, nil
}

// Start begins serving in the background.
func (s *Server) Start() error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("embed static fs: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/ws", s.handleWS)

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", "error", err)
		}
	}()
	return nil
}

// Handler returns the HTTP handler, for tests that serve without Start.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// sessionConn is one connected client with serialized writes.
type sessionConn struct {
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex
	taskMu  sync.Mutex
	busy    bool
}

func (c *sessionConn) send(ev tandem.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}

	client := &sessionConn{id: uuid.NewString(), conn: conn}
	s.conns.Store(client.id, client)
	s.logger.Info("session connected", "session", client.id)

	defer func() {
		s.conns.Delete(client.id)
		conn.CloseNow()
		s.logger.Info("session disconnected", "session", client.id)
	}()

	sink := tandem.EventSinkFunc(func(ev tandem.Event) {
		if err := client.send(ev); err != nil {
			s.logger.Warn("event send failed", "session", client.id, "error", err)
		}
	})
	ctrl, err := s.factory(client.id, sink)
	if err != nil {
		s.logger.Error("session setup failed", "session", client.id, "error", err)
		_ = client.send(tandem.Event{Kind: tandem.EventError, Message: "session setup failed"})
		return
	}

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "message":
			if msg.Content == "" {
				continue
			}
			s.startTask(r.Context(), client, ctrl, msg.Content)
		case "file_tree":
			tree, err := s.workspace.Tree()
			if err != nil {
				_ = client.send(tandem.Event{Kind: tandem.EventError, Message: fmt.Sprintf("file tree: %v", err)})
				continue
			}
			_ = client.send(tandem.Event{Kind: tandem.EventFileTree, Content: tree})
		}
	}
}

// startTask runs one task per session at a time; overlapping requests are
// rejected with an error event instead of queueing.
func (s *Server) startTask(ctx context.Context, client *sessionConn, ctrl *tandem.Controller, request string) {
	client.taskMu.Lock()
	if client.busy {
		client.taskMu.Unlock()
		_ = client.send(tandem.Event{Kind: tandem.EventError, Message: "a task is already running in this session"})
		return
	}
	client.busy = true
	client.taskMu.Unlock()

	go func() {
		defer func() {
			client.taskMu.Lock()
			client.busy = false
			client.taskMu.Unlock()
		}()

		if _, err := ctrl.RunTask(ctx, request); err != nil {
			s.logger.Error("task failed", "session", client.id, "error", err)
			_ = client.send(tandem.Event{Kind: tandem.EventError, Message: err.Error()})
		}
	}()
}

// Stop shuts the listener down and closes every connection.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("shutdown error", "error", err)
		}
	}
	s.conns.Range(func(_, value any) bool {
		value.(*sessionConn).conn.CloseNow()
		return true
	})
	s.logger.Info("server stopped")
	return nil
}
