package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"watchparty-service/internal/observability"
)

// client is the hub-side state for one connection. writeMu serializes writes
// to the connection: broadcasts run on each sender's read goroutine, so two
// senders can target the same receiver at once, and gorilla/websocket permits
// at most one writer on a connection at a time.
type client struct {
	info    ConnInfo
	writeMu sync.Mutex
}

// Hub tracks every live relay connection and the identity registry that maps
// a user id to its current connection.
type Hub struct {
	clients  map[*websocket.Conn]*client
	registry map[string]*websocket.Conn
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[*websocket.Conn]*client),
		registry: make(map[string]*websocket.Conn),
	}
}

// AddClient tracks a newly upgraded connection. No registry entry is made
// until the client registers an identity.
func (h *Hub) AddClient(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = &client{info: info}
}

// Register binds a user id to a connection. A prior connection registered
// under the same id is overwritten in place and not closed; it keeps
// receiving broadcasts until it disconnects on its own.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registry[userID] = conn
	if cl, ok := h.clients[conn]; ok {
		cl.info.UserID = userID
	}
}

// RemoveClient drops a connection from the live set and clears its registry
// entry, found by reverse lookup. At most one entry can point at the
// connection since Register overwrites rather than duplicates.
func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	for userID, registered := range h.registry {
		if registered == conn {
			delete(h.registry, userID)
			break
		}
	}
}

// RegisteredConn returns the connection currently bound to the user id.
func (h *Hub) RegisteredConn(userID string) (*websocket.Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.registry[userID]
	return conn, ok
}

// Broadcast fans the raw payload out to every live connection except the
// sender. The recipient list is snapshotted before any write so concurrent
// registers and disconnects cannot corrupt the iteration, and each write
// takes the receiver's write lock so concurrent broadcasts from different
// senders never interleave frames. A failed write drops that one receiver
// and delivery to the rest continues.
func (h *Hub) Broadcast(sender *websocket.Conn, payload []byte) {
	type receiver struct {
		conn  *websocket.Conn
		state *client
	}

	h.mu.RLock()
	receivers := make([]receiver, 0, len(h.clients))
	for conn, cl := range h.clients {
		if conn != sender {
			receivers = append(receivers, receiver{conn: conn, state: cl})
		}
	}
	h.mu.RUnlock()

	for _, r := range receivers {
		r.state.writeMu.Lock()
		err := r.conn.WriteMessage(websocket.TextMessage, payload)
		r.state.writeMu.Unlock()
		if err != nil {
			log.Printf("websocket write error: %v", err)
			h.publishWSError(r.conn, err)
			r.conn.Close()
			h.RemoveClient(r.conn)
		}
	}
}

func (h *Hub) publishWSError(conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id": info.UserID,
			"ip":      info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.relay", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}

func (h *Hub) getConnInfo(conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cl, ok := h.clients[conn]
	if !ok {
		return ConnInfo{}, false
	}
	return cl.info, true
}
