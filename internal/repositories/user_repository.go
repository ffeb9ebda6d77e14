package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alumni-chat-service/internal/db"
	"alumni-chat-service/internal/models"
)

// profileProjection keeps lookups to the fields this service exposes.
var profileProjection = bson.M{
	"name":         1,
	"email":        1,
	"profileImage": 1,
	"college":      1,
	"onlineStatus": 1,
	"lastSeen":     1,
}

// UserDirectory resolves user ids to display profiles. The user collection
// is owned by the account service; the only write this service performs is
// the presence flush from the realtime gateway.
type UserDirectory interface {
	Get(ctx context.Context, id primitive.ObjectID) (models.UserProfile, error)
	Bulk(ctx context.Context, ids []primitive.ObjectID) ([]models.UserProfile, error)
	UpdatePresence(ctx context.Context, id primitive.ObjectID, status string, lastSeen time.Time) error
}

// UserRepo is the MongoDB implementation of UserDirectory.
type UserRepo struct {
	col *mongo.Collection
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(database *db.Mongo) *UserRepo {
	return &UserRepo{col: database.Users}
}

// Get fetches a single profile.
func (r *UserRepo) Get(ctx context.Context, id primitive.ObjectID) (models.UserProfile, error) {
	var profile models.UserProfile
	err := r.col.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(profileProjection)).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.UserProfile{}, ErrUserNotFound
	}
	return profile, err
}

// Bulk fetches multiple profiles in one query. Missing ids are skipped.
func (r *UserRepo) Bulk(ctx context.Context, ids []primitive.ObjectID) ([]models.UserProfile, error) {
	if len(ids) == 0 {
		return []models.UserProfile{}, nil
	}

	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(profileProjection))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var profiles []models.UserProfile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// UpdatePresence durably writes the user's presence fields.
func (r *UserRepo) UpdatePresence(ctx context.Context, id primitive.ObjectID, status string, lastSeen time.Time) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"onlineStatus": status, "lastSeen": lastSeen},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
