package ws

import "time"

// ConnInfo carries per-connection metadata for telemetry. UserID is empty
// until the client sends a register event.
type ConnInfo struct {
	ConnID      string
	UserID      string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
