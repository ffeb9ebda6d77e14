package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alumni-chat-service/internal/middleware"
	"alumni-chat-service/internal/mocks"
	"alumni-chat-service/internal/models"
	"alumni-chat-service/internal/repositories"
)

func setupGroupRouter(handler *GroupHandler, userID primitive.ObjectID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID.Hex())
		c.Next()
	})
	r.POST("/conversations/group", handler.Create)
	r.PUT("/conversations/:id/group", handler.Update)
	r.POST("/conversations/:id/members", handler.AddMember)
	r.DELETE("/conversations/:id/members/:memberId", handler.RemoveMember)
	r.DELETE("/conversations/:id/leave", handler.Leave)
	return r
}

func TestCreateGroupSuccess(t *testing.T) {
	userID := primitive.NewObjectID()
	memberA := primitive.NewObjectID()
	memberB := primitive.NewObjectID()
	convRepo := new(mocks.ConversationRepositoryMock)
	userRepo := new(mocks.UserDirectoryMock)
	handler := NewGroupHandler(convRepo, userRepo, nil)
	router := setupGroupRouter(handler, userID)

	conv := models.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: []primitive.ObjectID{userID, memberA, memberB},
		Type:         models.ConversationGroup,
		GroupInfo:    &models.GroupInfo{Name: "CS 2019", AdminID: userID, Domain: "technology"},
	}
	userRepo.On("Bulk", mock.Anything, []primitive.ObjectID{memberA, memberB}).
		Return([]models.UserProfile{{ID: memberA}, {ID: memberB}}, nil).Once()
	convRepo.On("CreateGroup", mock.Anything, userID, "CS 2019", "class of 2019", "technology", []primitive.ObjectID{memberA, memberB}).
		Return(conv, nil).Once()
	userRepo.On("Bulk", mock.Anything, mock.Anything).
		Return([]models.UserProfile{{ID: userID}, {ID: memberA}, {ID: memberB}}, nil).Once()

	payload := map[string]any{
		"name":        "CS 2019",
		"description": "class of 2019",
		"domain":      "technology",
		"member_ids":  []string{memberA.Hex(), memberB.Hex()},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/conversations/group", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	convRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestCreateGroupTooFewMembers(t *testing.T) {
	userID := primitive.NewObjectID()
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewGroupHandler(convRepo, new(mocks.UserDirectoryMock), nil)
	router := setupGroupRouter(handler, userID)

	payload := map[string]any{
		"name":       "small",
		"member_ids": []string{primitive.NewObjectID().Hex()},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/conversations/group", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	convRepo.AssertNotCalled(t, "CreateGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateGroupCreatorInMemberList(t *testing.T) {
	// the creator listed as a member does not count toward the minimum
	userID := primitive.NewObjectID()
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewGroupHandler(convRepo, new(mocks.UserDirectoryMock), nil)
	router := setupGroupRouter(handler, userID)

	payload := map[string]any{
		"name":       "small",
		"member_ids": []string{userID.Hex(), primitive.NewObjectID().Hex()},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/conversations/group", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateGroupInvalidDomain(t *testing.T) {
	userID := primitive.NewObjectID()
	handler := NewGroupHandler(new(mocks.ConversationRepositoryMock), new(mocks.UserDirectoryMock), nil)
	router := setupGroupRouter(handler, userID)

	payload := map[string]any{
		"name":       "quants",
		"domain":     "astrology",
		"member_ids": []string{primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex()},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/conversations/group", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateGroupNotAdmin(t *testing.T) {
	userID := primitive.NewObjectID()
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewGroupHandler(convRepo, new(mocks.UserDirectoryMock), nil)
	router := setupGroupRouter(handler, userID)

	convID := primitive.NewObjectID()
	convRepo.On("UpdateGroupInfo", mock.Anything, convID, userID, "new name", "").
		Return(models.Conversation{}, repositories.ErrNotAdmin).Once()

	body := bytes.NewBufferString(`{"name":"new name"}`)
	req := httptest.NewRequest(http.MethodPut, "/conversations/"+convID.Hex()+"/group", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestUpdateGroupNotGroup(t *testing.T) {
	userID := primitive.NewObjectID()
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewGroupHandler(convRepo, new(mocks.UserDirectoryMock), nil)
	router := setupGroupRouter(handler, userID)

	convID := primitive.NewObjectID()
	convRepo.On("UpdateGroupInfo", mock.Anything, convID, userID, "x", "").
		Return(models.Conversation{}, repositories.ErrNotGroup).Once()

	body := bytes.NewBufferString(`{"name":"x"}`)
	req := httptest.NewRequest(http.MethodPut, "/conversations/"+convID.Hex()+"/group", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestAddMemberSuccess(t *testing.T) {
	userID := primitive.NewObjectID()
	memberID := primitive.NewObjectID()
	convRepo := new(mocks.ConversationRepositoryMock)
	userRepo := new(mocks.UserDirectoryMock)
	handler := NewGroupHandler(convRepo, userRepo, nil)
	router := setupGroupRouter(handler, userID)

	convID := primitive.NewObjectID()
	userRepo.On("Get", mock.Anything, memberID).Return(models.UserProfile{ID: memberID}, nil).Once()
	convRepo.On("AddMember", mock.Anything, convID, userID, memberID).Return(models.Conversation{
		ID:           convID,
		Participants: []primitive.ObjectID{userID, memberID},
	}, nil).Once()

	body := bytes.NewBufferString(`{"user_id":"` + memberID.Hex() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations/"+convID.Hex()+"/members", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	convRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestAddMemberAlreadyMember(t *testing.T) {
	userID := primitive.NewObjectID()
	memberID := primitive.NewObjectID()
	convRepo := new(mocks.ConversationRepositoryMock)
	userRepo := new(mocks.UserDirectoryMock)
	handler := NewGroupHandler(convRepo, userRepo, nil)
	router := setupGroupRouter(handler, userID)

	convID := primitive.NewObjectID()
	userRepo.On("Get", mock.Anything, memberID).Return(models.UserProfile{ID: memberID}, nil).Once()
	convRepo.On("AddMember", mock.Anything, convID, userID, memberID).
		Return(models.Conversation{}, repositories.ErrAlreadyMember).Once()

	body := bytes.NewBufferString(`{"user_id":"` + memberID.Hex() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations/"+convID.Hex()+"/members", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestRemoveMemberSuccess(t *testing.T) {
	userID := primitive.NewObjectID()
	memberID := primitive.NewObjectID()
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewGroupHandler(convRepo, new(mocks.UserDirectoryMock), nil)
	router := setupGroupRouter(handler, userID)

	convID := primitive.NewObjectID()
	convRepo.On("RemoveMember", mock.Anything, convID, userID, memberID).Return(models.Conversation{
		ID:           convID,
		Participants: []primitive.ObjectID{userID},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/conversations/"+convID.Hex()+"/members/"+memberID.Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestLeaveSuccess(t *testing.T) {
	userID := primitive.NewObjectID()
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewGroupHandler(convRepo, new(mocks.UserDirectoryMock), nil)
	router := setupGroupRouter(handler, userID)

	convID := primitive.NewObjectID()
	convRepo.On("Leave", mock.Anything, convID, userID).Return(models.Conversation{ID: convID}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/conversations/"+convID.Hex()+"/leave", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestLeaveNotMember(t *testing.T) {
	userID := primitive.NewObjectID()
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewGroupHandler(convRepo, new(mocks.UserDirectoryMock), nil)
	router := setupGroupRouter(handler, userID)

	convID := primitive.NewObjectID()
	convRepo.On("Leave", mock.Anything, convID, userID).
		Return(models.Conversation{}, repositories.ErrNotMember).Once()

	req := httptest.NewRequest(http.MethodDelete, "/conversations/"+convID.Hex()+"/leave", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	convRepo.AssertExpectations(t)
}
