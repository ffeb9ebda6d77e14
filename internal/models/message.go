package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message type constants.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
	MessageTypeLink  = "link"
)

// MaxMessageLength bounds message content.
const MaxMessageLength = 1000

// Attachment carries file metadata attached to a message. Upload handling
// lives outside this service; only the metadata rides along.
type Attachment struct {
	PublicID string `bson:"publicId,omitempty" json:"public_id,omitempty"`
	URL      string `bson:"url,omitempty" json:"url,omitempty"`
	FileName string `bson:"fileName,omitempty" json:"file_name,omitempty"`
	FileSize int64  `bson:"fileSize,omitempty" json:"file_size,omitempty"`
}

// ReadReceipt records that a participant has seen a message.
type ReadReceipt struct {
	UserID primitive.ObjectID `bson:"user" json:"user_id"`
	ReadAt time.Time          `bson:"readAt" json:"read_at"`
}

// Message is embedded inside its Conversation and has no independent
// lifecycle.
type Message struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	SenderID    primitive.ObjectID `bson:"sender" json:"sender_id"`
	Content     string             `bson:"content" json:"content"`
	MessageType string             `bson:"messageType" json:"message_type"`
	Attachments []Attachment       `bson:"attachments,omitempty" json:"attachments,omitempty"`
	ReadBy      []ReadReceipt      `bson:"readBy,omitempty" json:"read_by,omitempty"`
	IsEdited    bool               `bson:"isEdited" json:"is_edited"`
	EditedAt    *time.Time         `bson:"editedAt,omitempty" json:"edited_at,omitempty"`
	IsDeleted   bool               `bson:"isDeleted" json:"is_deleted"`
	CreatedAt   time.Time          `bson:"createdAt" json:"created_at"`
}

// ValidMessageType reports whether t is one of the supported message types.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeLink:
		return true
	}
	return false
}

// ReadBy reports whether the user already appears in the read-set.
func (m *Message) ReadByUser(userID primitive.ObjectID) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
