package domain

import (
	"time"

	"github.com/google/uuid"
)

// Purpose distinguishes the flows a one-time code can authenticate.
type Purpose string

const (
	PurposeRegister Purpose = "REGISTER"
	PurposeLogin    Purpose = "LOGIN"
)

// Challenge is a short-lived, single-use code bound to a phone number and a
// purpose. At most one unconsumed, unexpired challenge exists per
// (phone_number, purpose) pair; issuing a new one invalidates prior ones.
// Codes are stored hashed, never in clear.
type Challenge struct {
	ID          uuid.UUID `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	CodeHash    string    `json:"code_hash"`
	Purpose     Purpose   `json:"purpose"`
	// Attempts counts verification tries against this challenge. No lockout
	// policy is enforced yet; the counter is the hook for one.
	Attempts  int       `json:"attempts"`
	Consumed  bool      `json:"consumed"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewChallenge creates an unconsumed challenge expiring after ttl.
func NewChallenge(id uuid.UUID, phoneNumber, codeHash string, purpose Purpose, now time.Time, ttl time.Duration) *Challenge {
	return &Challenge{
		ID:          id,
		PhoneNumber: phoneNumber,
		CodeHash:    codeHash,
		Purpose:     purpose,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}
