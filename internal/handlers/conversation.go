package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alumni-chat-service/internal/models"
	"alumni-chat-service/internal/repositories"
	"alumni-chat-service/internal/telemetry"
	"alumni-chat-service/internal/ws"
)

// ConversationHandler manages the conversation and message endpoints.
type ConversationHandler struct {
	convs    repositories.ConversationRepository
	users    repositories.UserDirectory
	notifier ws.Notifier
	audit    *telemetry.AuditEmitter
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(convs repositories.ConversationRepository, users repositories.UserDirectory, notifier ws.Notifier, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{convs: convs, users: users, notifier: notifier, audit: audit}
}

func (h *ConversationHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

// List returns the caller's conversations ordered by most recent activity.
func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conversations, err := h.convs.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	ids := make([]primitive.ObjectID, 0)
	seen := map[primitive.ObjectID]struct{}{}
	for _, conv := range conversations {
		for _, p := range conv.Participants {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				ids = append(ids, p)
			}
		}
	}

	byID, err := resolveProfiles(c.Request.Context(), h.users, ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load participants"})
		return
	}

	summaries := make([]conversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		participants := make([]models.UserProfile, 0, len(conv.Participants))
		for _, p := range conv.Participants {
			if profile, ok := byID[p]; ok {
				participants = append(participants, profile)
			}
		}
		summaries = append(summaries, conversationSummary{Conversation: conv, Participants: participants})
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// Get returns the full conversation with every visible message and resolved
// sender profiles. Participants only.
func (h *ConversationHandler) Get(c *gin.Context) {
	conversationID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conv, err := h.convs.Get(c.Request.Context(), conversationID)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	if !conv.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}

	detail, err := buildDetail(c.Request.Context(), h.users, conv)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load participants"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// CreateDirect handles POST /conversations: it creates a direct conversation
// with another user, or returns the existing one for the pair.
func (h *ConversationHandler) CreateDirect(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	otherID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	if _, err := h.users.Get(c.Request.Context(), otherID); err != nil {
		respondRepoError(c, err)
		return
	}

	conv, err := h.convs.CreateOrGetDirect(c.Request.Context(), userID, otherID)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	detail, err := buildDetail(c.Request.Context(), h.users, conv)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load participants"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// SendMessage appends a message, refreshes the lastMessage snapshot, and
// pushes a live copy to the other participants' connected sessions.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	conversationID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Content     string              `json:"content" binding:"required"`
		MessageType string              `json:"message_type"`
		Attachments []models.Attachment `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message content is required"})
		return
	}
	if len(content) > models.MaxMessageLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message exceeds maximum length"})
		return
	}
	msgType := req.MessageType
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	if !models.ValidMessageType(msgType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message type"})
		return
	}

	msg := models.Message{
		ID:          primitive.NewObjectID(),
		SenderID:    userID,
		Content:     content,
		MessageType: msgType,
		Attachments: req.Attachments,
		CreatedAt:   time.Now(),
	}

	conv, err := h.convs.AppendMessage(c.Request.Context(), conversationID, msg)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	detail, err := buildDetail(c.Request.Context(), h.users, conv)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load participants"})
		return
	}

	// best-effort live push; the durable write already happened
	h.pushNewMessage(conv, msg, userID)
	h.emitAudit(c, "INFO", "message sent")
	c.JSON(http.StatusOK, detail)
}

func (h *ConversationHandler) pushNewMessage(conv models.Conversation, msg models.Message, senderID primitive.ObjectID) {
	if h.notifier == nil {
		return
	}
	payload := map[string]any{
		"conversation_id": conv.ID.Hex(),
		"message":         msg,
	}
	for _, p := range conv.Participants {
		if p == senderID {
			continue
		}
		h.notifier.PushToUser(p.Hex(), ws.EventNewMessage, payload)
	}
}

// DeleteMessage soft-deletes one of the caller's own messages.
func (h *ConversationHandler) DeleteMessage(c *gin.Context) {
	conversationID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	messageID, ok := objectIDParam(c, "messageId")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.convs.DeleteMessage(c.Request.Context(), conversationID, messageID, userID); err != nil {
		respondRepoError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "message deleted")
	c.Status(http.StatusNoContent)
}

// MarkRead adds the caller to the read-set of every unread message from
// other senders. Idempotent.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	conversationID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	marked, err := h.convs.MarkRead(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": marked})
}
