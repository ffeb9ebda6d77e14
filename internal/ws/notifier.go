package ws

// Notifier is the capability other subsystems (jobs, referrals, posts) hold
// to push best-effort events through the gateway. Delivery happens only to
// currently connected sessions; there is no queue and no retry. Constructed
// once in main and passed by reference, never a package-level singleton.
type Notifier interface {
	PushToUser(userID, event string, payload any)
	BroadcastToCollege(college, event string, payload any)
}

// Outbound socket event names.
const (
	EventNewMessage       = "new_message"
	EventUserTyping       = "user_typing"
	EventUserStopTyping   = "user_stop_typing"
	EventUserStatusChange = "user_status_change"
	EventNewNotification  = "new_notification"
	EventError            = "error"
)

// Event is the envelope written to client sockets.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}
