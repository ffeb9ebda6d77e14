package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo bundles the client with the collections this service touches.
type Mongo struct {
	Client        *mongo.Client
	Conversations *mongo.Collection
	Users         *mongo.Collection
}

// Connect establishes the MongoDB connection and ensures indexes.
func Connect(uri, database string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	d := client.Database(database)
	m := &Mongo{
		Client:        client,
		Conversations: d.Collection("conversations"),
		Users:         d.Collection("users"),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	log.Printf("connected to mongodb database=%s", database)
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.Conversations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "participants", Value: 1}}},
		{Keys: bson.D{{Key: "lastMessage.timestamp", Value: -1}}},
		{
			Keys: bson.D{{Key: "directKey", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"directKey": bson.M{"$exists": true}}),
		},
	})
	return err
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
