package domain

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository manages user records.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByPhone returns ErrUserNotFound when no user has the number.
	GetByPhone(ctx context.Context, phoneNumber string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}

// GroupRepository manages group records.
type GroupRepository interface {
	Create(ctx context.Context, g *Group) error
	GetByID(ctx context.Context, id uuid.UUID) (*Group, error)
	// SetDedicatedNumber links the pool number acquired for the group.
	SetDedicatedNumber(ctx context.Context, groupID, numberID uuid.UUID) error
	// List returns all groups, optionally filtered by a name substring.
	List(ctx context.Context, nameFilter string) ([]*Group, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MembershipRepository manages the user<->group relation. AddMember must be
// atomic on the uniqueness invariant (add-or-reject), RemoveMember on
// existence (remove-or-reject); with that, reads need no locking.
type MembershipRepository interface {
	// AddMember returns ErrAlreadyMember on the duplicate pair.
	AddMember(ctx context.Context, groupID, userID uuid.UUID) error
	// RemoveMember returns ErrNotAMember when the pair does not exist.
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]*User, error)
	ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]*Group, error)
	CountGroupsForUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// MessageRepository appends to and reads group history. Messages are never
// updated or deleted.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	// ListByGroup returns the newest messages first, at most limit of them,
	// with SenderName resolved.
	ListByGroup(ctx context.Context, groupID uuid.UUID, limit int) ([]*Message, error)
}
