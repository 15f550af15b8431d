package wschat

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/originpoint/backend/internal/domain"
	"github.com/originpoint/backend/internal/obs"
)

// Hub tracks live connections per role for the active-connections gauge and
// for a coordinated shutdown, the same register/unregister/mutex shape as
// the teacher's DAGStreamer — generalized here to count-per-role rather
// than broadcast-to-all, since each chat session is a private one-to-one
// conversation with the agent, not a shared event stream.
type Hub struct {
	mu      sync.Mutex
	conns   map[*websocket.Conn]domain.Role
	metrics *obs.Metrics
	logger  *slog.Logger
}

func NewHub(metrics *obs.Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		conns:   make(map[*websocket.Conn]domain.Role),
		metrics: metrics,
		logger:  logger.With("component", "wschat"),
	}
}

func (h *Hub) register(conn *websocket.Conn, role domain.Role) {
	h.mu.Lock()
	h.conns[conn] = role
	count := h.countLocked(role)
	h.mu.Unlock()

	h.logger.Info("chat connected", "role", role, "active", count)
	if h.metrics != nil {
		h.metrics.UpdateChatConnections(string(role), float64(count))
	}
}

func (h *Hub) unregister(conn *websocket.Conn, role domain.Role) {
	h.mu.Lock()
	delete(h.conns, conn)
	count := h.countLocked(role)
	h.mu.Unlock()

	h.logger.Info("chat disconnected", "role", role, "active", count)
	if h.metrics != nil {
		h.metrics.UpdateChatConnections(string(role), float64(count))
	}
}

func (h *Hub) countLocked(role domain.Role) int {
	n := 0
	for _, r := range h.conns {
		if r == role {
			n++
		}
	}
	return n
}

// Shutdown closes every live connection, for use during graceful server
// shutdown (cmd/server's signal handler).
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), nil)
		conn.Close()
	}
	h.conns = make(map[*websocket.Conn]domain.Role)
}
