package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alumni-chat-service/internal/models"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) Get(ctx context.Context, id primitive.ObjectID) (models.Conversation, error) {
	args := m.Called(ctx, id)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) CreateOrGetDirect(ctx context.Context, userID, otherID primitive.ObjectID) (models.Conversation, error) {
	args := m.Called(ctx, userID, otherID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) CreateGroup(ctx context.Context, creatorID primitive.ObjectID, name, description, domain string, memberIDs []primitive.ObjectID) (models.Conversation, error) {
	args := m.Called(ctx, creatorID, name, description, domain, memberIDs)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) AppendMessage(ctx context.Context, id primitive.ObjectID, msg models.Message) (models.Conversation, error) {
	args := m.Called(ctx, id, msg)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) DeleteMessage(ctx context.Context, id, messageID, actorID primitive.ObjectID) error {
	args := m.Called(ctx, id, messageID, actorID)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) MarkRead(ctx context.Context, id, userID primitive.ObjectID) (int, error) {
	args := m.Called(ctx, id, userID)
	return args.Int(0), args.Error(1)
}

func (m *ConversationRepositoryMock) AddMember(ctx context.Context, id, actorID, memberID primitive.ObjectID) (models.Conversation, error) {
	args := m.Called(ctx, id, actorID, memberID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) RemoveMember(ctx context.Context, id, actorID, memberID primitive.ObjectID) (models.Conversation, error) {
	args := m.Called(ctx, id, actorID, memberID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) Leave(ctx context.Context, id, userID primitive.ObjectID) (models.Conversation, error) {
	args := m.Called(ctx, id, userID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) UpdateGroupInfo(ctx context.Context, id, actorID primitive.ObjectID, name, description string) (models.Conversation, error) {
	args := m.Called(ctx, id, actorID, name, description)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

type UserDirectoryMock struct {
	mock.Mock
}

func (m *UserDirectoryMock) Get(ctx context.Context, id primitive.ObjectID) (models.UserProfile, error) {
	args := m.Called(ctx, id)
	var profile models.UserProfile
	if val := args.Get(0); val != nil {
		profile = val.(models.UserProfile)
	}
	return profile, args.Error(1)
}

func (m *UserDirectoryMock) Bulk(ctx context.Context, ids []primitive.ObjectID) ([]models.UserProfile, error) {
	args := m.Called(ctx, ids)
	var profiles []models.UserProfile
	if val := args.Get(0); val != nil {
		profiles = val.([]models.UserProfile)
	}
	return profiles, args.Error(1)
}

func (m *UserDirectoryMock) UpdatePresence(ctx context.Context, id primitive.ObjectID, status string, lastSeen time.Time) error {
	args := m.Called(ctx, id, status, lastSeen)
	return args.Error(0)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) PushToUser(userID, event string, payload any) {
	m.Called(userID, event, payload)
}

func (m *NotifierMock) BroadcastToCollege(college, event string, payload any) {
	m.Called(college, event, payload)
}
