package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alumni-chat-service/internal/db"
	"alumni-chat-service/internal/models"
)

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error)
	Get(ctx context.Context, id primitive.ObjectID) (models.Conversation, error)
	CreateOrGetDirect(ctx context.Context, userID, otherID primitive.ObjectID) (models.Conversation, error)
	CreateGroup(ctx context.Context, creatorID primitive.ObjectID, name, description, domain string, memberIDs []primitive.ObjectID) (models.Conversation, error)
	AppendMessage(ctx context.Context, id primitive.ObjectID, msg models.Message) (models.Conversation, error)
	DeleteMessage(ctx context.Context, id, messageID, actorID primitive.ObjectID) error
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) (int, error)
	AddMember(ctx context.Context, id, actorID, memberID primitive.ObjectID) (models.Conversation, error)
	RemoveMember(ctx context.Context, id, actorID, memberID primitive.ObjectID) (models.Conversation, error)
	Leave(ctx context.Context, id, userID primitive.ObjectID) (models.Conversation, error)
	UpdateGroupInfo(ctx context.Context, id, actorID primitive.ObjectID, name, description string) (models.Conversation, error)
}

// ConversationRepo is the MongoDB implementation of ConversationRepository.
type ConversationRepo struct {
	col *mongo.Collection
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(database *db.Mongo) *ConversationRepo {
	return &ConversationRepo{col: database.Conversations}
}

// casRetries bounds the optimistic-concurrency retry loop for
// read-modify-write mutations of the conversation document.
const casRetries = 3

// errNoChange signals that a mutation turned out to be a no-op and no write
// is needed.
var errNoChange = errors.New("no change")

// ListForUser returns the user's conversations sorted by most recent
// activity. The embedded message array is projected out; the lastMessage
// snapshot carries the preview.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	opts := options.Find().
		SetProjection(bson.M{"messages": 0}).
		SetSort(bson.D{{Key: "updatedAt", Value: -1}})

	cursor, err := r.col.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var conversations []models.Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// Get fetches a conversation with its full message array.
func (r *ConversationRepo) Get(ctx context.Context, id primitive.ObjectID) (models.Conversation, error) {
	var conv models.Conversation
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// CreateOrGetDirect returns the existing direct conversation for the
// unordered pair, or creates one with an empty message array. The pair is
// stored in canonical order under a unique directKey, so repeated calls
// from either side resolve to the same document even when they race.
func (r *ConversationRepo) CreateOrGetDirect(ctx context.Context, userID, otherID primitive.ObjectID) (models.Conversation, error) {
	if userID == otherID {
		return models.Conversation{}, ErrInvalidParticipants
	}

	key := models.DirectPairKey(userID, otherID)
	filter := bson.M{"directKey": key}

	var existing models.Conversation
	err := r.col.FindOne(ctx, filter).Decode(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Conversation{}, err
	}

	now := time.Now()
	conv := models.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: models.DirectPair(userID, otherID),
		Type:         models.ConversationDirect,
		DirectKey:    key,
		Messages:     []models.Message{},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.col.InsertOne(ctx, conv); err != nil {
		// a concurrent call won the insert; return its document
		if mongo.IsDuplicateKeyError(err) {
			err = r.col.FindOne(ctx, filter).Decode(&existing)
			if err == nil {
				return existing, nil
			}
		}
		return models.Conversation{}, err
	}
	return conv, nil
}

// CreateGroup creates a group conversation. The creator is prepended to the
// participant list and becomes the admin; participant order is insertion
// order.
func (r *ConversationRepo) CreateGroup(ctx context.Context, creatorID primitive.ObjectID, name, description, domain string, memberIDs []primitive.ObjectID) (models.Conversation, error) {
	participants := []primitive.ObjectID{creatorID}
	seen := map[primitive.ObjectID]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		participants = append(participants, id)
	}
	if len(participants) < 3 {
		return models.Conversation{}, ErrInvalidParticipants
	}

	now := time.Now()
	conv := models.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: participants,
		Type:         models.ConversationGroup,
		GroupInfo: &models.GroupInfo{
			Name:        name,
			Description: description,
			AdminID:     creatorID,
			Domain:      domain,
		},
		Messages:  []models.Message{},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.col.InsertOne(ctx, conv); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// AppendMessage appends a message and refreshes the lastMessage snapshot in
// a single atomic update, so concurrent sends to the same conversation
// cannot lose each other.
func (r *ConversationRepo) AppendMessage(ctx context.Context, id primitive.ObjectID, msg models.Message) (models.Conversation, error) {
	filter := bson.M{"_id": id, "participants": msg.SenderID, "isActive": true}
	update := bson.M{
		"$push": bson.M{"messages": msg},
		"$set": bson.M{
			"lastMessage": models.LastMessage{
				Content:   msg.Content,
				SenderID:  msg.SenderID,
				Timestamp: msg.CreatedAt,
			},
			"updatedAt": msg.CreatedAt,
		},
		"$inc": bson.M{"revision": 1},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return models.Conversation{}, err
	}
	if res.MatchedCount == 0 {
		return models.Conversation{}, r.explainRejectedSend(ctx, id, msg.SenderID)
	}
	return r.Get(ctx, id)
}

// explainRejectedSend distinguishes why the guarded send filter matched
// nothing.
func (r *ConversationRepo) explainRejectedSend(ctx context.Context, id, senderID primitive.ObjectID) error {
	conv, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(senderID) {
		return ErrNotParticipant
	}
	if !conv.IsActive {
		return ErrConversationInactive
	}
	return ErrConversationNotFound
}

// DeleteMessage soft-deletes a message. Only the original sender matches the
// guarded filter; a message that is already deleted no longer resolves.
func (r *ConversationRepo) DeleteMessage(ctx context.Context, id, messageID, actorID primitive.ObjectID) error {
	filter := bson.M{
		"_id": id,
		"messages": bson.M{"$elemMatch": bson.M{
			"_id":       messageID,
			"sender":    actorID,
			"isDeleted": false,
		}},
	}
	update := bson.M{
		"$set": bson.M{"messages.$.isDeleted": true},
		"$inc": bson.M{"revision": 1},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	conv, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	msg, ok := conv.FindMessage(messageID)
	if !ok {
		return ErrMessageNotFound
	}
	if msg.SenderID != actorID {
		return ErrNotSender
	}
	return ErrMessageNotFound
}

// MarkRead adds the user to the read-set of every unread message from other
// senders. Idempotent: when nothing is unread no write happens. Returns the
// number of messages marked.
func (r *ConversationRepo) MarkRead(ctx context.Context, id, userID primitive.ObjectID) (int, error) {
	marked := 0
	_, err := r.updateWithRetry(ctx, id, func(conv *models.Conversation) error {
		if !conv.HasParticipant(userID) {
			return ErrNotParticipant
		}
		marked = conv.MarkReadFor(userID, time.Now())
		if marked == 0 {
			return errNoChange
		}
		return nil
	})
	return marked, err
}

// AddMember adds a user to a group. Admin only; adding an existing
// participant is a conflict.
func (r *ConversationRepo) AddMember(ctx context.Context, id, actorID, memberID primitive.ObjectID) (models.Conversation, error) {
	return r.updateWithRetry(ctx, id, func(conv *models.Conversation) error {
		if !conv.IsGroup() {
			return ErrNotGroup
		}
		if !conv.IsAdmin(actorID) {
			return ErrNotAdmin
		}
		if conv.HasParticipant(memberID) {
			return ErrAlreadyMember
		}
		conv.Participants = append(conv.Participants, memberID)
		return nil
	})
}

// RemoveMember removes a user from a group. Admin only; removing the admin
// hands the role to the first remaining participant.
func (r *ConversationRepo) RemoveMember(ctx context.Context, id, actorID, memberID primitive.ObjectID) (models.Conversation, error) {
	return r.updateWithRetry(ctx, id, func(conv *models.Conversation) error {
		if !conv.IsGroup() {
			return ErrNotGroup
		}
		if !conv.IsAdmin(actorID) {
			return ErrNotAdmin
		}
		if !conv.RemoveParticipant(memberID) {
			return ErrNotMember
		}
		return nil
	})
}

// Leave removes the caller from a group. When the admin leaves, the role
// moves to the first remaining participant in insertion order; a group left
// empty is deactivated.
func (r *ConversationRepo) Leave(ctx context.Context, id, userID primitive.ObjectID) (models.Conversation, error) {
	return r.updateWithRetry(ctx, id, func(conv *models.Conversation) error {
		if !conv.IsGroup() {
			return ErrNotGroup
		}
		if !conv.RemoveParticipant(userID) {
			return ErrNotMember
		}
		if len(conv.Participants) == 0 {
			conv.IsActive = false
		}
		return nil
	})
}

// UpdateGroupInfo updates the group name and/or description. Admin only;
// empty arguments leave the field unchanged.
func (r *ConversationRepo) UpdateGroupInfo(ctx context.Context, id, actorID primitive.ObjectID, name, description string) (models.Conversation, error) {
	return r.updateWithRetry(ctx, id, func(conv *models.Conversation) error {
		if !conv.IsGroup() {
			return ErrNotGroup
		}
		if !conv.IsAdmin(actorID) {
			return ErrNotAdmin
		}
		if name == "" && description == "" {
			return errNoChange
		}
		if name != "" {
			conv.GroupInfo.Name = name
		}
		if description != "" {
			conv.GroupInfo.Description = description
		}
		return nil
	})
}

// updateWithRetry runs a read-modify-write mutation under an optimistic
// revision check: the replace only applies when the revision read is still
// current, otherwise the mutation is retried on a fresh document.
func (r *ConversationRepo) updateWithRetry(ctx context.Context, id primitive.ObjectID, mutate func(*models.Conversation) error) (models.Conversation, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		conv, err := r.Get(ctx, id)
		if err != nil {
			return models.Conversation{}, err
		}

		if err := mutate(&conv); err != nil {
			if errors.Is(err, errNoChange) {
				return conv, nil
			}
			return models.Conversation{}, err
		}

		prev := conv.Revision
		conv.Revision++
		conv.UpdatedAt = time.Now()

		res, err := r.col.ReplaceOne(ctx, bson.M{"_id": id, "revision": prev}, conv)
		if err != nil {
			return models.Conversation{}, err
		}
		if res.MatchedCount == 1 {
			return conv, nil
		}
		// revision moved underneath us; retry on a fresh read
	}
	return models.Conversation{}, fmt.Errorf("conversation %s: concurrent update retries exhausted", id.Hex())
}
