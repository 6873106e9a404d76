package domain

import (
	"context"

	"github.com/google/uuid"
)

// ChallengeRepository is the storage surface for OTP challenges. The consume
// step must be atomic: two concurrent Consume calls for the same challenge
// must not both report a win.
type ChallengeRepository interface {
	// Put stores a freshly issued challenge and invalidates any prior
	// unconsumed challenge for the same (phone_number, purpose) pair.
	Put(ctx context.Context, ch *Challenge) error

	// GetLatest returns the most recent challenge for the pair, or (nil, nil)
	// when none exists.
	GetLatest(ctx context.Context, phoneNumber string, purpose Purpose) (*Challenge, error)

	// Consume marks the challenge consumed if and only if it is not already.
	// The returned bool reports whether this call won the consume.
	Consume(ctx context.Context, phoneNumber string, purpose Purpose, id uuid.UUID) (bool, error)

	// IncrementAttempts bumps the attempt counter and returns the new value.
	IncrementAttempts(ctx context.Context, phoneNumber string, purpose Purpose, id uuid.UUID) (int, error)
}
