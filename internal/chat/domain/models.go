package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered member identified by a verified phone number.
type User struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number"` // E.164, unique
	CreatedAt   time.Time `json:"created_at"`
}

// NewUser creates a user record. The phone number is expected to be verified
// (OTP REGISTER purpose) before this is persisted.
func NewUser(id uuid.UUID, name, phoneNumber string) *User {
	return &User{
		ID:          id,
		Name:        name,
		PhoneNumber: phoneNumber,
		CreatedAt:   time.Now().UTC(),
	}
}

// Group is a chat room. It either owns a dedicated pool number
// (DedicatedNumberID set, the referenced number ASSIGNED to this group) or is
// reached through the shared default number.
type Group struct {
	ID                uuid.UUID     `json:"id"`
	Name              string        `json:"name"`
	DedicatedNumberID uuid.NullUUID `json:"dedicated_number_id,omitempty"`
	// DedicatedNumber is the E.164 string of the dedicated number, resolved
	// on read for callers that send from it. Empty when none is assigned.
	DedicatedNumber string    `json:"dedicated_number,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	// MemberCount is resolved on read; not stored on the row.
	MemberCount int `json:"member_count"`
}

// NewGroup creates a group without a dedicated number; assignment happens
// after creation, when the pool is consulted.
func NewGroup(id uuid.UUID, name string) *Group {
	return &Group{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

// Message is one append-only entry in a group's history. Messages are
// immutable and outlive membership changes.
type Message struct {
	ID           uuid.UUID `json:"id"`
	GroupID      uuid.UUID `json:"group_id"`
	SenderUserID uuid.UUID `json:"sender_user_id"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	// SenderName is resolved on read for display; not stored on the row.
	SenderName string `json:"sender_name,omitempty"`
}

// NewMessage creates a message record.
func NewMessage(id, groupID, senderUserID uuid.UUID, content string) *Message {
	return &Message{
		ID:           id,
		GroupID:      groupID,
		SenderUserID: senderUserID,
		Content:      content,
		CreatedAt:    time.Now().UTC(),
	}
}
