package wschat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/originpoint/backend/internal/domain"
)

func TestHub_RegisterAndUnregisterTracksPerRoleCount(t *testing.T) {
	hub := NewHub(nil, nil)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.register(conn, domain.RoleBorrower)
		defer hub.unregister(conn, domain.RoleBorrower)
		conn.ReadMessage() // block until client closes
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	hub.mu.Lock()
	assert.Equal(t, 1, hub.countLocked(domain.RoleBorrower))
	hub.mu.Unlock()

	conn.Close()
	time.Sleep(50 * time.Millisecond)

	hub.mu.Lock()
	assert.Equal(t, 0, hub.countLocked(domain.RoleBorrower))
	hub.mu.Unlock()
}

func TestHub_ShutdownClosesAllConnectionsAndClearsMap(t *testing.T) {
	hub := NewHub(nil, nil)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.register(conn, domain.RoleLoanOfficer)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)
	hub.Shutdown()

	hub.mu.Lock()
	assert.Empty(t, hub.conns)
	hub.mu.Unlock()
}
