package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"

	"alumni-chat-service/internal/auth"
	"alumni-chat-service/internal/models"
	"alumni-chat-service/internal/observability"
	"alumni-chat-service/internal/repositories"
)

// Gateway authenticates socket connections, manages room membership, and
// relays ephemeral events. It is not the system of record: the only durable
// writes it performs are presence updates.
type Gateway struct {
	hub    *Hub
	tokens *auth.TokenManager
	users  repositories.UserDirectory
	convs  repositories.ConversationRepository
}

// NewGateway constructs a Gateway.
func NewGateway(hub *Hub, tokens *auth.TokenManager, users repositories.UserDirectory, convs repositories.ConversationRepository) *Gateway {
	return &Gateway{hub: hub, tokens: tokens, users: users, convs: convs}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// presenceFlushTimeout bounds the durable offline write on disconnect. The
// write uses a background context because the request context is already
// gone by then.
const presenceFlushTimeout = 5 * time.Second

// Handle authenticates the handshake and upgrades the connection. Any
// authentication failure rejects the connection before a room join or
// presence broadcast can happen.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("alumni-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerFromRequest(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	userOID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	profile, err := g.users.Get(ctx, userOID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      claims.UserID,
		Name:        profile.Name,
		College:     profile.College,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	g.hub.Register(conn, info)

	observability.IncWSActive("gateway")
	observability.IncWSEvent("gateway", "ws_connect")
	g.publishLifecycle(ctx, info, "ws_connect", "")

	go g.readLoop(ctx, conn, info, userOID)
}

// readLoop consumes client frames until the connection drops. The deferred
// cleanup is the guaranteed Disconnected transition: it runs on abnormal
// closes too, flushing presence back to the user record and broadcasting
// the change.
func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, info ConnInfo, userID primitive.ObjectID) {
	var closeReason string
	defer func() {
		g.hub.Unregister(conn, info)
		g.flushOffline(info, userID)
		observability.DecWSActive("gateway")
		observability.IncWSEvent("gateway", "ws_disconnect")
		g.publishLifecycle(ctx, info, "ws_disconnect", closeReason)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("gateway", "ws_error")
				g.publishLifecycle(ctx, info, "ws_error", closeReason)
			}
			return
		}
		g.dispatch(ctx, conn, info, userID, raw)
	}
}

// dispatch handles one inbound frame. Failures degrade to an error event on
// the offending socket only; they never tear down other sockets.
func (g *Gateway) dispatch(ctx context.Context, conn *websocket.Conn, info ConnInfo, userID primitive.ObjectID, raw []byte) {
	event, err := DecodeInbound(raw)
	if err != nil {
		observability.IncWSEvent("gateway", "bad_event")
		g.hub.SendError(conn, info, err.Error())
		return
	}

	switch e := event.(type) {
	case *SendMessageEvent:
		g.relayMessage(ctx, conn, info, userID, e)
	case *TypingStartEvent:
		g.relayTyping(ctx, conn, info, userID, e.ConversationID, true)
	case *TypingStopEvent:
		g.relayTyping(ctx, conn, info, userID, e.ConversationID, false)
	case *SetOnlineStatusEvent:
		g.setOnlineStatus(ctx, conn, info, userID, e.Status)
	case *MarkNotificationReadEvent:
		// acknowledged only; notification read-state is not durable here
		log.Printf("notification %s marked read by user %s", e.NotificationID, info.UserID)
	}
}

// relayMessage pushes a live copy of an already-persisted message to the
// other participants. No persistence happens on this path; the durable
// write went through the HTTP surface.
func (g *Gateway) relayMessage(ctx context.Context, conn *websocket.Conn, info ConnInfo, userID primitive.ObjectID, e *SendMessageEvent) {
	participants, err := g.conversationParticipants(ctx, conn, info, userID, e.ConversationID)
	if err != nil {
		return
	}

	msg := e.Message
	msg.SenderID = info.UserID
	if msg.MessageType == "" {
		msg.MessageType = models.MessageTypeText
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	payload := map[string]any{
		"conversation_id": e.ConversationID,
		"message":         msg,
	}
	for _, p := range participants {
		if p == info.UserID {
			continue
		}
		g.hub.PushToUser(p, EventNewMessage, payload)
	}
	observability.IncWSEvent("gateway", "relay_message")
}

func (g *Gateway) relayTyping(ctx context.Context, conn *websocket.Conn, info ConnInfo, userID primitive.ObjectID, conversationID string, start bool) {
	participants, err := g.conversationParticipants(ctx, conn, info, userID, conversationID)
	if err != nil {
		return
	}

	event := EventUserStopTyping
	payload := map[string]any{"conversation_id": conversationID, "user_id": info.UserID}
	if start {
		event = EventUserTyping
		payload["user_name"] = info.Name
	}
	for _, p := range participants {
		if p == info.UserID {
			continue
		}
		g.hub.PushToUser(p, event, payload)
	}
}

func (g *Gateway) setOnlineStatus(ctx context.Context, conn *websocket.Conn, info ConnInfo, userID primitive.ObjectID, status string) {
	if err := g.users.UpdatePresence(ctx, userID, status, time.Now()); err != nil {
		log.Printf("presence update failed for user %s: %v", info.UserID, err)
		g.hub.SendError(conn, info, "failed to update status")
		return
	}
	g.hub.BroadcastStatusChange(info.UserID, status)
}

// conversationParticipants resolves the participant list for a relay,
// sending an error event when the id is bad or the caller is not a
// participant.
func (g *Gateway) conversationParticipants(ctx context.Context, conn *websocket.Conn, info ConnInfo, userID primitive.ObjectID, conversationID string) ([]string, error) {
	convOID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		g.hub.SendError(conn, info, "invalid conversation id")
		return nil, err
	}

	conv, err := g.convs.Get(ctx, convOID)
	if err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			g.hub.SendError(conn, info, "conversation not found")
		} else {
			g.hub.SendError(conn, info, "failed to load conversation")
		}
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		g.hub.SendError(conn, info, "not a participant")
		return nil, repositories.ErrNotParticipant
	}

	out := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		out = append(out, p.Hex())
	}
	return out, nil
}

// flushOffline is the only point where the ephemeral layer writes durable
// state: the user goes offline with a last-seen timestamp, and the change
// is broadcast. Skipped when another session of the same user is still
// connected.
func (g *Gateway) flushOffline(info ConnInfo, userID primitive.ObjectID) {
	if g.hub.IsOnline(info.UserID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), presenceFlushTimeout)
	defer cancel()

	if err := g.users.UpdatePresence(ctx, userID, models.StatusOffline, time.Now()); err != nil {
		log.Printf("offline presence flush failed for user %s: %v", info.UserID, err)
	}
	g.hub.BroadcastStatusChange(info.UserID, models.StatusOffline)
}

func (g *Gateway) publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	_ = observability.PublishEvent(ctx, "ws_events.gateway", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"college":   info.College,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

func bearerFromRequest(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		if len(header) > 7 && (header[:7] == "Bearer " || header[:7] == "bearer ") {
			return header[7:]
		}
		return ""
	}
	return c.Query("token")
}
