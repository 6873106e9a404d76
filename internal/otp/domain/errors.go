package domain

import "errors"

var (
	// ErrCodeInvalid indicates a code mismatch or a missing challenge.
	ErrCodeInvalid = errors.New("verification code is invalid")
	// ErrCodeExpired indicates the challenge exists but is past its expiry.
	ErrCodeExpired = errors.New("verification code has expired")
	// ErrCodeConsumed indicates the challenge was already used. Verification
	// is single-use; a replayed code always fails with this.
	ErrCodeConsumed = errors.New("verification code already used")
)
