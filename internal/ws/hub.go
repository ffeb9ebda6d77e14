package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"alumni-chat-service/internal/observability"
)

// Hub maintains the active socket sessions. Every connection sits in its
// user's room and, when the user has a college, that college's room. Room
// state is process-local; the hub is the volatile overlay, never the system
// of record.
type Hub struct {
	mu           sync.RWMutex
	userRooms    map[string]map[*websocket.Conn]ConnInfo
	collegeRooms map[string]map[*websocket.Conn]bool
	// one writer at a time per connection; gorilla/websocket forbids
	// concurrent WriteMessage calls on a single conn
	writeLocks map[*websocket.Conn]*sync.Mutex
}

var _ Notifier = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		userRooms:    make(map[string]map[*websocket.Conn]ConnInfo),
		collegeRooms: make(map[string]map[*websocket.Conn]bool),
		writeLocks:   make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Register joins the connection to its user room and college room.
func (h *Hub) Register(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userRooms[info.UserID]; !ok {
		h.userRooms[info.UserID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.userRooms[info.UserID][conn] = info
	h.writeLocks[conn] = &sync.Mutex{}

	if info.College != "" {
		if _, ok := h.collegeRooms[info.College]; !ok {
			h.collegeRooms[info.College] = make(map[*websocket.Conn]bool)
		}
		h.collegeRooms[info.College][conn] = true
	}
}

// Unregister removes the connection from its rooms.
func (h *Hub) Unregister(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.userRooms[info.UserID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.userRooms, info.UserID)
		}
	}
	delete(h.writeLocks, conn)
	if info.College != "" {
		if conns, ok := h.collegeRooms[info.College]; ok {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(h.collegeRooms, info.College)
			}
		}
	}
}

// IsOnline reports whether the user has at least one connected session.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userRooms[userID]) > 0
}

// PushToUser delivers an event to every session of the user. Silently drops
// when the user has no connected session.
func (h *Hub) PushToUser(userID, event string, payload any) {
	h.mu.RLock()
	conns := make(map[*websocket.Conn]ConnInfo, len(h.userRooms[userID]))
	for conn, info := range h.userRooms[userID] {
		conns[conn] = info
	}
	h.mu.RUnlock()

	if len(conns) > 0 {
		observability.IncNotificationPushed("user")
	}
	for conn, info := range conns {
		h.write(conn, info, Event{Event: event, Data: payload})
	}
}

// BroadcastToCollege delivers an event to every session in the college room.
func (h *Hub) BroadcastToCollege(college, event string, payload any) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.collegeRooms[college]))
	for conn := range h.collegeRooms[college] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	if len(conns) > 0 {
		observability.IncNotificationPushed("college")
	}
	for _, conn := range conns {
		info, _ := h.connInfo(conn)
		h.write(conn, info, Event{Event: event, Data: payload})
	}
}

// BroadcastStatusChange announces a presence change to every session except
// the user's own.
func (h *Hub) BroadcastStatusChange(userID, status string) {
	h.mu.RLock()
	targets := make(map[*websocket.Conn]ConnInfo)
	for uid, conns := range h.userRooms {
		if uid == userID {
			continue
		}
		for conn, info := range conns {
			targets[conn] = info
		}
	}
	h.mu.RUnlock()

	payload := map[string]any{"user_id": userID, "status": status}
	for conn, info := range targets {
		h.write(conn, info, Event{Event: EventUserStatusChange, Data: payload})
	}
}

// SendError reports a non-fatal handler failure back to the offending
// socket only.
func (h *Hub) SendError(conn *websocket.Conn, info ConnInfo, message string) {
	h.write(conn, info, Event{Event: EventError, Data: map[string]any{"message": message}})
}

func (h *Hub) write(conn *websocket.Conn, info ConnInfo, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	lock, ok := h.writeLocks[conn]
	h.mu.RUnlock()
	if !ok {
		// conn already unregistered
		return
	}

	lock.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	lock.Unlock()
	if err != nil {
		log.Printf("websocket write error: %v", err)
		conn.Close()
		h.Unregister(conn, info)
		h.publishWSError(info, err)
	}
}

func (h *Hub) connInfo(conn *websocket.Conn) (ConnInfo, bool) {
	// caller must not hold h.mu
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conns := range h.userRooms {
		if info, ok := conns[conn]; ok {
			return info, true
		}
	}
	return ConnInfo{}, false
}

func (h *Hub) publishWSError(info ConnInfo, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"college":   info.College,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.gateway", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("gateway", "ws_error")
}
