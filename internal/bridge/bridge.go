// Package bridge exposes the annotation core to an editor plugin over a
// websocket connection. The bridge owns the editor-facing half of the
// protocol: it pushes full marker sets, open-document requests, and
// user notifications, and dispatches incoming command messages onto the
// annotation commands after argument validation.
package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/annotext/linemark/internal/linemark"
)

const writeTimeout = 5 * time.Second

// Message is the single frame type in both directions.
//
// Server -> client: "markers" (full replacement set for the active
// document), "open" (show a note document beside the current view),
// "notify" (user-facing info/warn/error).
//
// Client -> server: "document" (the active document's lines; re-sent on
// text or focus change), "command" (a note command with CommandArgs).
type Message struct {
	Type    string            `json:"type"`
	Name    string            `json:"name,omitempty"`
	Args    json.RawMessage   `json:"args,omitempty"`
	Lines   []string          `json:"lines,omitempty"`
	Level   string            `json:"level,omitempty"`
	Text    string            `json:"text,omitempty"`
	Path    string            `json:"path,omitempty"`
	Markers []linemark.Marker `json:"markers"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, msg)
}

// Server is an http.Handler accepting editor connections. It implements
// linemark.Editor and linemark.Notifier, so the commands' side effects
// flow back to every connected editor.
type Server struct {
	core   *linemark.Core
	logger linemark.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	lines   []string

	commands    *linemark.Commands
	unsubscribe func()
}

func NewServer(core *linemark.Core, logger linemark.Logger) *Server {
	s := &Server{
		core:    core,
		logger:  logger,
		clients: map[*client]struct{}{},
	}
	s.commands = linemark.NewCommands(core, s, s, logger)
	// One render per discrete index mutation; the index guarantees the
	// notification cadence, the bridge just re-renders.
	s.unsubscribe = core.Index().Subscribe(s.render)
	return s
}

// Commands returns the command surface bound to this bridge.
func (s *Server) Commands() *linemark.Commands {
	return s.commands
}

// Close detaches from the index and drops all connections.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clients = map[*client]struct{}{}
	s.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logf("bridge: accept failed: %v", err)
		return
	}
	c := &client{conn: conn}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var msg Message
		if err := wsjson.Read(r.Context(), conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && r.Context().Err() == nil {
				s.logf("bridge: read failed: %v", err)
			}
			return
		}
		s.handle(msg)
	}
}

func (s *Server) handle(msg Message) {
	switch msg.Type {
	case "document":
		s.mu.Lock()
		s.lines = append([]string(nil), msg.Lines...)
		s.mu.Unlock()
		s.render()
	case "command":
		s.dispatch(msg)
	default:
		s.logf("bridge: unknown message type %q", msg.Type)
	}
}

func (s *Server) dispatch(msg Message) {
	args, err := linemark.ParseArgs(msg.Args)
	if err != nil {
		s.Error("linemark: bad command arguments: " + err.Error())
		return
	}
	lines := s.documentLines()
	switch msg.Name {
	case linemark.CommandCreate:
		_ = s.commands.Create(lines, args.Line)
	case linemark.CommandEdit:
		_ = s.commands.Edit(lines, args.Line)
	case linemark.CommandDelete:
		_ = s.commands.Delete(lines, args.Line)
	default:
		s.Error("linemark: unknown command " + msg.Name)
	}
}

// render recomputes the marker set for the last known document and pushes
// it as a full replacement. Runs on every document message and on every
// index change notification.
func (s *Server) render() {
	markers := s.core.Markers(s.documentLines())
	if markers == nil {
		markers = []linemark.Marker{}
	}
	s.broadcast(Message{Type: "markers", Markers: markers})
}

// OpenBeside implements linemark.Editor.
func (s *Server) OpenBeside(path string) error {
	s.broadcast(Message{Type: "open", Path: path})
	return nil
}

// Info implements linemark.Notifier.
func (s *Server) Info(msg string) { s.notify("info", msg) }

// Warn implements linemark.Notifier.
func (s *Server) Warn(msg string) { s.notify("warn", msg) }

// Error implements linemark.Notifier.
func (s *Server) Error(msg string) { s.notify("error", msg) }

func (s *Server) notify(level, text string) {
	s.logf("bridge: %s: %s", level, text)
	s.broadcast(Message{Type: "notify", Level: level, Text: text})
}

func (s *Server) documentLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *Server) broadcast(msg Message) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		if err := c.send(msg); err != nil {
			s.logf("bridge: send failed: %v", err)
		}
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
