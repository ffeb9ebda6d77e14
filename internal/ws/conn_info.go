package ws

import "time"

// ConnInfo describes one socket session. Bound to exactly one authenticated
// user for its lifetime.
type ConnInfo struct {
	ConnID      string
	UserID      string
	Name        string
	College     string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
