package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"watchparty-service/internal/models"
	"watchparty-service/internal/observability"
)

// RelayHandler accepts websocket connections and relays chat and video-sync
// events between them.
type RelayHandler struct {
	hub *Hub
}

// NewRelayHandler constructs a RelayHandler.
func NewRelayHandler(hub *Hub) *RelayHandler {
	return &RelayHandler{hub: hub}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and runs its read loop.
func (h *RelayHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("watchparty-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := observability.TraceIDFromContext(ctx)
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.relay", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       "ws_connect",
				"conn_id":     info.ConnID,
				"duration_ms": 0,
				"reason":      "",
			},
			"identity": map[string]interface{}{
				"user_id": "",
				"ip":      info.IP,
			},
		},
	}, observability.BuildHeaders(requestID, traceID))

	go h.readLoop(conn, info)
}

// readLoop dispatches incoming events until the connection closes, then
// removes the connection from the hub.
func (h *RelayHandler) readLoop(conn *websocket.Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		userID := h.registeredUser(conn)
		h.hub.RemoveClient(conn)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(context.Background(), "ws_events.relay", observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Payload: map[string]interface{}{
				"ws": map[string]interface{}{
					"event":       "ws_disconnect",
					"conn_id":     info.ConnID,
					"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
					"reason":      closeReason,
				},
				"identity": map[string]interface{}{
					"user_id": userID,
					"ip":      info.IP,
				},
			},
		}, observability.BuildHeaders(info.RequestID, info.TraceID))
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}
		h.dispatch(conn, payload)
	}
}

// dispatch inspects the event type and either updates the registry or fans
// the raw payload out. Malformed or unknown events are dropped, never fatal
// to the connection.
func (h *RelayHandler) dispatch(conn *websocket.Conn, payload []byte) {
	var event models.RelayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("relay: dropping malformed event: %v", err)
		observability.IncWSEvent("ws_malformed")
		return
	}

	switch event.Type {
	case models.EventRegister:
		h.hub.Register(event.UserID, conn)
	case models.EventChatMessage, models.EventVideoSync:
		h.hub.Broadcast(conn, payload)
	default:
		log.Printf("relay: dropping event with unknown type %q", event.Type)
		observability.IncWSEvent("ws_unknown_type")
	}
}

func (h *RelayHandler) registeredUser(conn *websocket.Conn) string {
	info, ok := h.hub.getConnInfo(conn)
	if !ok {
		return ""
	}
	return info.UserID
}
