package wschat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/domain"
	"github.com/originpoint/backend/internal/llm"
	"github.com/originpoint/backend/internal/obs"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Session drives one client's turn-by-turn exchange with the external
// agent runtime: read a ClientFrame, persist it, replay history plus the
// new turn through llm.Provider, persist and forward the reply. The
// client's internal/llm.ChatClient contract (spec.md §6.6) returns one
// completed string rather than a token stream, so every reply is emitted
// as a single "final" frame — this surface has no "token"/"tool_call"
// frames to produce without a streaming provider to source them from.
type Session struct {
	conn          *websocket.Conn
	principal     authscope.Principal
	applicationID uuid.UUID
	agent         llm.Provider
	store         Store
	metrics       *obs.Metrics
	logger        *slog.Logger
}

func newSession(conn *websocket.Conn, principal authscope.Principal, applicationID uuid.UUID, agent llm.Provider, store Store, metrics *obs.Metrics, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		conn:          conn,
		principal:     principal,
		applicationID: applicationID,
		agent:         agent,
		store:         store,
		metrics:       metrics,
		logger:        logger.With("component", "wschat.session", "subject", principal.Subject),
	}
}

// Run blocks reading client frames until the connection closes or ctx is
// cancelled.
func (s *Session) Run(ctx context.Context) {
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var frame ClientFrame
			if err := s.conn.ReadJSON(&frame); err != nil {
				return
			}
			if frame.Type != "message" {
				continue
			}
			s.handleMessage(ctx, frame.Content)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) handleMessage(ctx context.Context, content string) {
	if s.metrics != nil {
		s.metrics.RecordChatMessage(string(s.principal.Role), "inbound")
	}

	if safe, reason, err := s.agent.IsSafe(ctx, content); err == nil && !safe {
		s.writeFrame(ServerFrame{Type: "error", Content: "message rejected: " + reason})
		return
	}

	userMsg := domain.ConversationMessage{
		ID:            uuid.New(),
		ApplicationID: s.applicationID,
		PrincipalID:   s.principal.Subject,
		Role:          "user",
		Content:       content,
		CreatedAt:     time.Now(),
	}
	if err := s.store.SaveMessage(ctx, userMsg); err != nil {
		s.logger.Error("save user message", "error", err)
	}

	history, err := s.store.ListMessages(ctx, s.applicationID)
	if err != nil {
		s.logger.Error("load conversation history", "error", err)
		s.writeFrame(ServerFrame{Type: "error", Content: "could not load conversation history"})
		return
	}

	messages := make([]llm.ChatMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, llm.ChatMessage{Role: m.Role, Content: m.Content})
	}

	reply, err := s.agent.Complete(ctx, messages)
	if err != nil {
		s.logger.Error("agent completion", "error", err)
		s.writeFrame(ServerFrame{Type: "error", Content: "agent is unavailable"})
		return
	}

	assistantMsg := domain.ConversationMessage{
		ID:            uuid.New(),
		ApplicationID: s.applicationID,
		PrincipalID:   s.principal.Subject,
		Role:          "assistant",
		Content:       reply,
		CreatedAt:     time.Now(),
	}
	if err := s.store.SaveMessage(ctx, assistantMsg); err != nil {
		s.logger.Error("save assistant message", "error", err)
	}

	if s.metrics != nil {
		s.metrics.RecordChatMessage(string(s.principal.Role), "outbound")
	}
	s.writeFrame(ServerFrame{Type: "final", Content: reply})
}

func (s *Session) writeFrame(frame ServerFrame) {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(frame); err != nil {
		s.logger.Warn("write frame", "error", err)
	}
}
