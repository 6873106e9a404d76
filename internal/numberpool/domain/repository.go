package domain

import (
	"context"

	"github.com/google/uuid"
)

// PhoneNumberRepository defines the storage surface for the number pool.
// Implementations must make ClaimAvailable and the status transitions atomic:
// two concurrent claims must never both succeed against the same row.
type PhoneNumberRepository interface {
	Create(ctx context.Context, pn *PhoneNumber) error

	// ClaimAvailable atomically selects one AVAILABLE number, marks it
	// ASSIGNED to groupID and returns it. Returns ErrPoolExhausted when no
	// AVAILABLE number exists. No ordering of candidates is guaranteed.
	ClaimAvailable(ctx context.Context, groupID uuid.UUID) (*PhoneNumber, error)

	// Release transitions ASSIGNED -> AVAILABLE, clearing the group link.
	// Returns ErrNotAssigned if the number is not currently ASSIGNED.
	Release(ctx context.Context, id uuid.UUID) error

	// SetStatus transitions the number from the expected status to the new
	// one. Returns ErrInvalidState when the current status differs from
	// expected, ErrNotFound when the row does not exist.
	SetStatus(ctx context.Context, id uuid.UUID, expected, next NumberStatus) error

	GetByID(ctx context.Context, id uuid.UUID) (*PhoneNumber, error)

	// FindByNumber looks up a pool entry by its E.164 string. It returns
	// (nil, nil) when the number is not part of the pool; the router treats
	// that as the shared-number path, not an error.
	FindByNumber(ctx context.Context, number string) (*PhoneNumber, error)

	List(ctx context.Context) ([]*PhoneNumber, error)
	ListByStatus(ctx context.Context, status NumberStatus) ([]*PhoneNumber, error)

	// Delete removes an entry from the pool. Returns ErrInvalidState while
	// the number is ASSIGNED.
	Delete(ctx context.Context, id uuid.UUID) error
}
