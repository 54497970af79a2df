package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"pixie/config"
	"pixie/model"
)

// Session is one client's set of connected servers plus its conversation.
// A tool name routes to the most recently connected server exposing it.
type Session struct {
	ID string

	mu      sync.Mutex
	servers []*Connection
	tools   []Tool
	routes  map[string]*Connection
	history []model.ChatMessage
}

func newSession(id string) *Session {
	return &Session{ID: id, routes: make(map[string]*Connection)}
}

// checkNewServer fails with ErrServerAlreadyConnected when a server with
// this URL is already part of the session. The caller holds the lock.
func (s *Session) checkNewServer(url string) error {
	for _, c := range s.servers {
		if c.URL == url {
			return fmt.Errorf("%w: %s", ErrServerAlreadyConnected, url)
		}
	}
	return nil
}

// addServer appends conn and points its tool names at it. The caller holds
// the lock.
func (s *Session) addServer(conn *Connection, log *slog.Logger) {
	s.servers = append(s.servers, conn)
	for _, t := range conn.Tools {
		if prev, ok := s.routes[t.Name]; ok && prev != conn {
			log.Warn("Tool already exists from another server, overwriting mapping",
				"session_id", s.ID, "tool", t.Name, "previous_server", prev.URL, "server", conn.URL)
		}
		s.routes[t.Name] = conn
	}
	s.tools = append(s.tools, conn.Tools...)
}

// Tools returns every tool of every server in connection order. Duplicated
// names appear once per server.
func (s *Session) Tools() []Tool {
	return append([]Tool(nil), s.tools...)
}

func (s *Session) ServerCount() int {
	return len(s.servers)
}

// Routes returns the tool name to caller map used for execution.
func (s *Session) Routes() map[string]ToolCaller {
	routes := make(map[string]ToolCaller, len(s.routes))
	for name, conn := range s.routes {
		routes[name] = conn.Caller
	}
	return routes
}

// History returns the turns so far, oldest first.
func (s *Session) History() []model.ChatMessage {
	return append([]model.ChatMessage(nil), s.history...)
}

func (s *Session) appendTurn(user, assistant string) {
	s.history = append(s.history,
		model.TextMessage(model.RoleUser, user),
		model.TextMessage(model.RoleAssistant, assistant))
}

// SessionStore owns the live sessions of a process.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	log      *slog.Logger
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		log:      config.Logger("mcp"),
	}
}

// Create registers a new session holding conn.
func (st *SessionStore) Create(conn *Connection) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	var id string
	for {
		var err error
		if id, err = newSessionID(); err != nil {
			return nil, err
		}
		if _, taken := st.sessions[id]; !taken {
			break
		}
	}

	s := newSession(id)
	s.addServer(conn, st.log)
	st.sessions[id] = s

	st.log.Info("MCP chat session initialized", "session_id", id, "tools", len(conn.Tools))
	return s, nil
}

func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// AddServer attaches conn to the session. The caller holds the session lock.
func (st *SessionStore) AddServer(s *Session, conn *Connection) {
	s.addServer(conn, st.log)
	st.log.Info("Added MCP server to session",
		"session_id", s.ID, "servers", len(s.servers), "tools", len(s.tools))
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Cleanup removes the session and closes all of its server connections.
// Close failures are logged and do not stop the other closes.
func (st *SessionStore) Cleanup(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if !ok {
		return
	}

	s.mu.Lock()
	servers := s.servers
	s.servers = nil
	s.routes = make(map[string]*Connection)
	s.mu.Unlock()

	var g errgroup.Group
	for _, conn := range servers {
		g.Go(func() error {
			if err := conn.Caller.Close(); err != nil {
				st.log.Error("Error closing MCP session", "session_id", id, "url", conn.URL, "error", err)
				return nil
			}
			st.log.Info("Closed MCP session", "session_id", id, "url", conn.URL)
			return nil
		})
	}
	_ = g.Wait()

	st.log.Info("Cleaned up session", "session_id", id)
}

// CloseAll cleans up every session, for shutdown.
func (st *SessionStore) CloseAll(ctx context.Context) error {
	st.mu.RLock()
	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	st.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			st.Cleanup(id)
			return nil
		})
	}
	return g.Wait()
}

func newSessionID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
