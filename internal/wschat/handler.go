package wschat

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/originpoint/backend/internal/authscope"
	"github.com/originpoint/backend/internal/domain"
	"github.com/originpoint/backend/internal/llm"
	"github.com/originpoint/backend/internal/obs"
)

// Handler upgrades /api/{role}/chat requests, per spec.md §6.2. Unlike the
// REST surface, WebSocket handshakes can't carry an Authorization header
// from a browser client, so the token travels as the documented query
// param instead (spec.md §4.1's extraction note).
type Handler struct {
	verifier *authscope.Verifier
	hub      *Hub
	agent    llm.Provider
	store    Store
	metrics  *obs.Metrics
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(verifier *authscope.Verifier, hub *Hub, agent llm.Provider, store Store, metrics *obs.Metrics, logger *slog.Logger, allowedOrigins []string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		verifier: verifier,
		hub:      hub,
		agent:    agent,
		store:    store,
		metrics:  metrics,
		logger:   logger.With("component", "wschat.handler"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return isOriginAllowedForUpgrade(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

func isOriginAllowedForUpgrade(allowedOrigins []string, origin string) bool {
	if origin == "" {
		return true
	}
	for _, o := range allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// ServeHTTP implements one route per role: the {role} path variable must
// match the authenticated principal's resolved role, per spec.md §6.2's
// 4003 close code.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	routeRole := domain.Role(mux.Vars(r)["role"])

	token := r.URL.Query().Get("token")
	if token == "" {
		h.closeUnauthenticated(w, r)
		return
	}

	principal, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		h.closeUnauthenticated(w, r)
		return
	}

	if principal.Role != routeRole {
		h.closeWrongRole(w, r)
		return
	}

	applicationID, err := uuid.Parse(r.URL.Query().Get("application_id"))
	if err != nil {
		http.Error(w, "application_id query param required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.hub.register(conn, principal.Role)
	defer h.hub.unregister(conn, principal.Role)

	session := newSession(conn, principal, applicationID, h.agent, h.store, h.metrics, h.logger)
	session.Run(r.Context())
}

// closeUnauthenticated performs a best-effort upgrade solely to deliver the
// documented 4001 close code; a client that can't read a close frame from a
// rejected handshake still sees the 401 status this falls back to.
func (h *Handler) closeUnauthenticated(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	closeWithCode(conn, CloseUnauthenticated, "unauthenticated")
}

func (h *Handler) closeWrongRole(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "wrong role", http.StatusForbidden)
		return
	}
	closeWithCode(conn, CloseWrongRole, "wrong role for this endpoint")
}

func closeWithCode(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	conn.Close()
}
