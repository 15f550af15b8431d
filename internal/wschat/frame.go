// Package wschat implements the per-role WebSocket chat surface of spec.md
// §6.2: each connection's Session forwards prompts to the external agent
// runtime (internal/llm.Provider) and persists every turn so a thread
// survives a reconnect (SPEC_FULL.md §C "Conversation history"). Grounded on
// the teacher's internal/websocket/dag_streamer.go hub shape — a map of live
// connections guarded by a mutex, with register/unregister methods —
// generalized from a one-to-many DAG-event broadcast to many independent
// one-to-one chat sessions sharing one connection-tracking Hub for all roles.
package wschat

// ClientFrame is one client→server JSON line.
type ClientFrame struct {
	Type    string `json:"type"` // "message"
	Content string `json:"content"`
}

// ServerFrame is one server→client JSON line.
type ServerFrame struct {
	Type    string `json:"type"` // "token" | "tool_call" | "final" | "error"; Session writes only "final" and "error"
	Content string `json:"content"`
}

// Close codes spec.md §6.2 assigns to this surface, beyond the RFC 6455
// defaults gorilla/websocket already knows.
const (
	CloseUnauthenticated = 4001
	CloseWrongRole       = 4003
)
