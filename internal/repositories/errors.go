package repositories

import "errors"

// Sentinel errors surfaced by the repositories and mapped to HTTP statuses
// by the handlers.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrUserNotFound         = errors.New("user not found")

	ErrNotParticipant       = errors.New("not a participant")
	ErrNotSender            = errors.New("not the message sender")
	ErrNotAdmin             = errors.New("not the group admin")
	ErrNotGroup             = errors.New("not a group conversation")
	ErrAlreadyMember        = errors.New("user is already a member")
	ErrNotMember            = errors.New("user is not a member")
	ErrConversationInactive = errors.New("conversation is inactive")
	ErrInvalidParticipants  = errors.New("invalid participant set")
)
