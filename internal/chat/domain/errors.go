package domain

import "errors"

// Lookup and mutation errors.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrGroupNotFound  = errors.New("group not found")
	ErrDuplicatePhone = errors.New("phone number already registered")
	ErrAlreadyMember  = errors.New("user is already a member of this group")
	// ErrGroupLimitReached rejects a join that would exceed the per-user
	// group cap. The join mutates nothing when this is returned.
	ErrGroupLimitReached = errors.New("user has reached the maximum number of groups")
)

// Routing errors. All are recoverable: the correct response is a clarifying
// reply to the sender, never a crash and never a silent drop.
var (
	// ErrUnknownSender: the From number does not belong to a registered user.
	ErrUnknownSender = errors.New("sender is not a registered user")
	// ErrUnknownGroup: an @-prefix named no group the sender belongs to.
	ErrUnknownGroup = errors.New("group not found among sender memberships")
	// ErrNotAMember: the target group resolved but the sender is not in it.
	ErrNotAMember = errors.New("sender is not a member of the target group")
	// ErrAmbiguousSender: the shared number received an unprefixed message
	// from a sender with more than one candidate group.
	ErrAmbiguousSender = errors.New("multiple candidate groups, prefix required")
)
