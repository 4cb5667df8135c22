package models

// Relay event types carried over the websocket. Everything past the type tag
// is opaque to the relay and forwarded verbatim.
const (
	EventRegister    = "register"
	EventChatMessage = "chat_message"
	EventVideoSync   = "video_sync"
)

// RelayEvent is the envelope the relay peeks at before fanning a message out.
type RelayEvent struct {
	Type   string `json:"type"`
	UserID string `json:"userId,omitempty"`
}
