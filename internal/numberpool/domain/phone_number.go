package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// NumberStatus is the lifecycle state of a pooled SMS number.
type NumberStatus string

const (
	StatusAvailable NumberStatus = "AVAILABLE"
	StatusAssigned  NumberStatus = "ASSIGNED"
	StatusDisabled  NumberStatus = "DISABLED"
)

// PhoneNumber is an SMS-capable number owned by the service. A number is
// ASSIGNED iff AssignedGroupID is set, and serves at most one group at a time.
type PhoneNumber struct {
	ID              uuid.UUID     `json:"id"`
	Number          string        `json:"number"` // E.164
	Status          NumberStatus  `json:"status"`
	AssignedGroupID uuid.NullUUID `json:"assigned_group_id,omitempty"`
	AssignedAt      sql.NullTime  `json:"assigned_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// NewPhoneNumber creates an AVAILABLE pool entry. The ID is generated by the
// caller so repositories stay insert-only.
func NewPhoneNumber(id uuid.UUID, number string) *PhoneNumber {
	return &PhoneNumber{
		ID:        id,
		Number:    number,
		Status:    StatusAvailable,
		CreatedAt: time.Now().UTC(),
	}
}
