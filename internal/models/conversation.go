package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation kinds.
const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
)

// Group metadata limits, matching the stored schema.
const (
	MaxGroupNameLength        = 100
	MaxGroupDescriptionLength = 500
)

// GroupInfo is present only on group conversations.
type GroupInfo struct {
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	AdminID     primitive.ObjectID `bson:"admin" json:"admin_id"`
	Domain      string             `bson:"domain,omitempty" json:"domain,omitempty"`
}

// LastMessage is a denormalized snapshot of the most recent message, kept so
// conversation lists never scan the full message array.
type LastMessage struct {
	Content   string             `bson:"content" json:"content"`
	SenderID  primitive.ObjectID `bson:"sender" json:"sender_id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// Conversation is the aggregate grouping participants and their messages.
// Messages are embedded; append order is chronological order.
type Conversation struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Participants []primitive.ObjectID `bson:"participants" json:"participant_ids"`
	Type         string               `bson:"conversationType" json:"conversation_type"`
	GroupInfo    *GroupInfo           `bson:"groupInfo,omitempty" json:"group_info,omitempty"`
	DirectKey    string               `bson:"directKey,omitempty" json:"-"`
	Messages     []Message            `bson:"messages" json:"-"`
	LastMessage  *LastMessage         `bson:"lastMessage,omitempty" json:"last_message,omitempty"`
	IsActive     bool                 `bson:"isActive" json:"is_active"`
	Revision     int64                `bson:"revision" json:"-"`
	CreatedAt    time.Time            `bson:"createdAt" json:"created_at"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updated_at"`
}

// Domains a group may be tagged with.
var groupDomains = map[string]bool{
	"technology": true,
	"banking":    true,
	"consulting": true,
	"startups":   true,
	"government": true,
	"design":     true,
	"research":   true,
	"general":    true,
}

// ValidGroupDomain reports whether d is an allowed domain tag.
func ValidGroupDomain(d string) bool {
	return groupDomains[d]
}

// DirectPair returns the two participants of a direct conversation in
// canonical order, so create-direct resolves to the same document no matter
// which side initiates.
func DirectPair(a, b primitive.ObjectID) []primitive.ObjectID {
	if b.Hex() < a.Hex() {
		a, b = b, a
	}
	return []primitive.ObjectID{a, b}
}

// DirectPairKey is the canonical key for the pair; it backs the unique
// index that keeps one direct conversation per pair.
func DirectPairKey(a, b primitive.ObjectID) string {
	pair := DirectPair(a, b)
	return pair[0].Hex() + ":" + pair[1].Hex()
}

// IsGroup reports whether the conversation is a group conversation.
func (c *Conversation) IsGroup() bool {
	return c.Type == ConversationGroup
}

// HasParticipant reports whether the user is a current participant.
func (c *Conversation) HasParticipant(userID primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user is the group admin.
func (c *Conversation) IsAdmin(userID primitive.ObjectID) bool {
	return c.GroupInfo != nil && c.GroupInfo.AdminID == userID
}

// FindMessage returns the non-deleted message with the given id.
func (c *Conversation) FindMessage(messageID primitive.ObjectID) (*Message, bool) {
	for i := range c.Messages {
		if c.Messages[i].ID == messageID && !c.Messages[i].IsDeleted {
			return &c.Messages[i], true
		}
	}
	return nil, false
}

// MarkReadFor adds the user to the read-set of every message the user has
// not sent and not yet read. Returns the number of messages updated, so
// repeated calls are no-ops after the first.
func (c *Conversation) MarkReadFor(userID primitive.ObjectID, at time.Time) int {
	updated := 0
	for i := range c.Messages {
		m := &c.Messages[i]
		if m.SenderID == userID || m.IsDeleted || m.ReadByUser(userID) {
			continue
		}
		m.ReadBy = append(m.ReadBy, ReadReceipt{UserID: userID, ReadAt: at})
		updated++
	}
	return updated
}

// RemoveParticipant removes the user from the participant list, preserving
// insertion order of the rest. When the departing user is the group admin
// and other participants remain, the admin role moves to the first remaining
// participant. Returns false when the user was not a participant.
func (c *Conversation) RemoveParticipant(userID primitive.ObjectID) bool {
	idx := -1
	for i, p := range c.Participants {
		if p == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	c.Participants = append(c.Participants[:idx], c.Participants[idx+1:]...)

	if c.GroupInfo != nil && c.GroupInfo.AdminID == userID && len(c.Participants) > 0 {
		c.GroupInfo.AdminID = c.Participants[0]
	}
	return true
}

// VisibleMessages returns the messages that have not been soft-deleted.
func (c *Conversation) VisibleMessages() []Message {
	out := make([]Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if !m.IsDeleted {
			out = append(out, m)
		}
	}
	return out
}
