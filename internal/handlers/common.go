package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alumni-chat-service/internal/middleware"
	"alumni-chat-service/internal/models"
	"alumni-chat-service/internal/repositories"
)

// currentUserID reads the authenticated user id set by the auth middleware.
// Aborts with 401 when the context carries no usable identity.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	raw := c.GetString(middleware.UserIDKey)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// objectIDParam parses a path parameter as an ObjectID, responding 400 on
// failure.
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondRepoError maps repository sentinel errors onto the HTTP error
// taxonomy. Unexpected failures surface as a generic server error.
func respondRepoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, repositories.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	case errors.Is(err, repositories.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, repositories.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
	case errors.Is(err, repositories.ErrNotSender):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender can delete a message"})
	case errors.Is(err, repositories.ErrNotAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the group admin can do that"})
	case errors.Is(err, repositories.ErrAlreadyMember):
		c.JSON(http.StatusConflict, gin.H{"error": "user is already a member"})
	case errors.Is(err, repositories.ErrNotMember):
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is not a member"})
	case errors.Is(err, repositories.ErrNotGroup):
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a group conversation"})
	case errors.Is(err, repositories.ErrConversationInactive):
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation is inactive"})
	case errors.Is(err, repositories.ErrInvalidParticipants):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participants"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// conversationSummary is the list view: no message array, resolved
// participant profiles, lastMessage preview.
type conversationSummary struct {
	models.Conversation
	Participants []models.UserProfile `json:"participants"`
}

// messageView attaches resolved sender info to an embedded message.
type messageView struct {
	models.Message
	SenderName  string `json:"sender_name,omitempty"`
	SenderImage string `json:"sender_image,omitempty"`
}

// conversationDetail is the full view with every visible message.
type conversationDetail struct {
	models.Conversation
	Participants []models.UserProfile `json:"participants"`
	Messages     []messageView        `json:"messages"`
}

// resolveProfiles bulk-loads the given ids into a lookup map.
func resolveProfiles(ctx context.Context, users repositories.UserDirectory, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserProfile, error) {
	profiles, err := users.Bulk(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.UserProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}
	return byID, nil
}

// buildDetail resolves participants and message senders for a full
// conversation response.
func buildDetail(ctx context.Context, users repositories.UserDirectory, conv models.Conversation) (conversationDetail, error) {
	visible := conv.VisibleMessages()

	ids := make([]primitive.ObjectID, 0, len(conv.Participants)+len(visible))
	seen := map[primitive.ObjectID]struct{}{}
	for _, p := range conv.Participants {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			ids = append(ids, p)
		}
	}
	for _, m := range visible {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			ids = append(ids, m.SenderID)
		}
	}

	byID, err := resolveProfiles(ctx, users, ids)
	if err != nil {
		return conversationDetail{}, err
	}

	participants := make([]models.UserProfile, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		if profile, ok := byID[p]; ok {
			participants = append(participants, profile)
		}
	}

	messages := make([]messageView, 0, len(visible))
	for _, m := range visible {
		sender := byID[m.SenderID]
		messages = append(messages, messageView{
			Message:     m,
			SenderName:  sender.Name,
			SenderImage: sender.ProfileImage,
		})
	}

	return conversationDetail{
		Conversation: conv,
		Participants: participants,
		Messages:     messages,
	}, nil
}
