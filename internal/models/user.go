package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Presence states stored on the user record.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusOffline = "offline"
)

// UserProfile is the read-only projection of a user used to resolve
// participants and senders. The user collection itself is owned by the
// account service; this service only reads profiles and writes presence.
type UserProfile struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	ProfileImage string             `bson:"profileImage,omitempty" json:"profile_image,omitempty"`
	College      string             `bson:"college,omitempty" json:"college,omitempty"`
	OnlineStatus string             `bson:"onlineStatus,omitempty" json:"online_status,omitempty"`
	LastSeen     *time.Time         `bson:"lastSeen,omitempty" json:"last_seen,omitempty"`
}

// ValidPresenceStatus reports whether s is a supported presence state.
func ValidPresenceStatus(s string) bool {
	switch s {
	case StatusOnline, StatusAway, StatusOffline:
		return true
	}
	return false
}
