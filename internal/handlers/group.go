package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alumni-chat-service/internal/models"
	"alumni-chat-service/internal/repositories"
	"alumni-chat-service/internal/telemetry"
)

// GroupHandler manages group conversation endpoints.
type GroupHandler struct {
	convs repositories.ConversationRepository
	users repositories.UserDirectory
	audit *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(convs repositories.ConversationRepository, users repositories.UserDirectory, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{convs: convs, users: users, audit: audit}
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

// Create handles POST /conversations/group. The creator becomes both a
// participant and the group admin.
func (h *GroupHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		Domain      string   `json:"domain"`
		MemberIDs   []string `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group name is required"})
		return
	}
	if len(name) > models.MaxGroupNameLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group name too long"})
		return
	}
	if len(req.Description) > models.MaxGroupDescriptionLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group description too long"})
		return
	}
	if req.Domain != "" && !models.ValidGroupDomain(req.Domain) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group domain"})
		return
	}

	memberIDs := make([]primitive.ObjectID, 0, len(req.MemberIDs))
	seen := map[primitive.ObjectID]struct{}{userID: {}}
	for _, raw := range req.MemberIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
			return
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		memberIDs = append(memberIDs, id)
	}
	if len(memberIDs) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least 2 other members are required"})
		return
	}

	// members must resolve in the user directory
	if _, err := h.users.Bulk(c.Request.Context(), memberIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate members"})
		return
	}

	conv, err := h.convs.CreateGroup(c.Request.Context(), userID, name, req.Description, req.Domain, memberIDs)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	detail, err := buildDetail(c.Request.Context(), h.users, conv)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load participants"})
		return
	}

	h.emitAudit(c, "INFO", "group created")
	c.JSON(http.StatusCreated, detail)
}

// Update handles PUT /conversations/:id/group. Admin only.
func (h *GroupHandler) Update(c *gin.Context) {
	conversationID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Name) > models.MaxGroupNameLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group name too long"})
		return
	}
	if len(req.Description) > models.MaxGroupDescriptionLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group description too long"})
		return
	}

	conv, err := h.convs.UpdateGroupInfo(c.Request.Context(), conversationID, userID, strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "group updated")
	c.JSON(http.StatusOK, gin.H{"id": conv.ID.Hex(), "group_info": conv.GroupInfo})
}

// Leave handles DELETE /conversations/:id/leave. Any participant may leave;
// a departing admin hands the role to the first remaining participant.
func (h *GroupHandler) Leave(c *gin.Context) {
	conversationID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if _, err := h.convs.Leave(c.Request.Context(), conversationID, userID); err != nil {
		respondRepoError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "left group")
	c.JSON(http.StatusOK, gin.H{"message": "left group"})
}

// AddMember handles POST /conversations/:id/members. Admin only.
func (h *GroupHandler) AddMember(c *gin.Context) {
	conversationID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
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

	memberID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	if _, err := h.users.Get(c.Request.Context(), memberID); err != nil {
		respondRepoError(c, err)
		return
	}

	conv, err := h.convs.AddMember(c.Request.Context(), conversationID, userID, memberID)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "member added")
	c.JSON(http.StatusOK, gin.H{"id": conv.ID.Hex(), "participant_ids": conv.Participants})
}

// RemoveMember handles DELETE /conversations/:id/members/:memberId. Admin
// only.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	conversationID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	memberID, ok := objectIDParam(c, "memberId")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conv, err := h.convs.RemoveMember(c.Request.Context(), conversationID, userID, memberID)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "member removed")
	c.JSON(http.StatusOK, gin.H{"id": conv.ID.Hex(), "participant_ids": conv.Participants})
}
