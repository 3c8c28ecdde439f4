package moderation

import "errors"

// Deterministic business outcomes. Handlers map each to a distinct HTTP
// status; anything else is a storage failure surfacing as 500 and retried
// at most once by the caller, never here.
var (
	// Not found
	ErrUserNotFound    = errors.New("user not found")
	ErrListingNotFound = errors.New("listing not found")
	ErrFlagNotFound    = errors.New("flag not found")
	ErrActionNotFound  = errors.New("moderation action not found")
	ErrAppealNotFound  = errors.New("appeal not found")
	ErrWordNotFound    = errors.New("blocked word not found")

	// Forbidden
	ErrReporterBanned  = errors.New("reporter is banned")
	ErrNotAdmin        = errors.New("reviewer is not an admin")
	ErrNotActionTarget = errors.New("appeal must come from the action target")

	// Validation
	ErrOwnListing      = errors.New("cannot flag your own listing")
	ErrInvalidDecision = errors.New("invalid review decision")
	ErrMessageEmpty    = errors.New("appeal message is empty")
	ErrMessageTooLong  = errors.New("appeal message too long")
	ErrResponseTooLong = errors.New("admin response too long")
	ErrWordEmpty       = errors.New("blocked word is empty")
	ErrWordTooLong     = errors.New("blocked word too long")

	// Duplicate (expected outcome, not a crash)
	ErrDuplicateFlag   = errors.New("listing already flagged by this reporter")
	ErrDuplicateAppeal = errors.New("action already appealed by this user")
	ErrDuplicateWord   = errors.New("blocked word already exists")

	// Invalid state
	ErrFlagAlreadyReviewed   = errors.New("flag already reviewed")
	ErrAppealAlreadyReviewed = errors.New("appeal already reviewed")

	// Deadline / rate limit
	ErrAppealDeadlinePassed = errors.New("appeal deadline has passed")
	ErrFlagRateLimited      = errors.New("too many flags submitted recently")
)
