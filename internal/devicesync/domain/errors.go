package domain

import (
	"github.com/quietwire/dmcore/internal/errors"
)

// Device synchronization error definitions.
var (
	// ErrChallengeNotFound indicates the challenge does not exist, expired, or
	// was consumed. All three look identical to callers; the device must
	// request sync again to get a fresh challenge.
	//
	// HTTP Status: 404 Not Found
	ErrChallengeNotFound = errors.Wrap(errors.ErrNotFound, "verification challenge not found or expired")

	// ErrInvalidVerificationCode indicates the submitted code did not match.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrInvalidVerificationCode = errors.Wrap(errors.ErrInvalidInput, "invalid verification code")

	// ErrTooManyAttempts indicates the challenge burned through its attempt
	// budget and was discarded. A new challenge must be requested.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrTooManyAttempts = errors.Wrap(errors.ErrInvalidInput, "too many verification attempts")

	// ErrInvalidDevice indicates a missing or malformed fingerprint or device
	// type on a sync request.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrInvalidDevice = errors.Wrap(errors.ErrInvalidInput, "invalid device details")
)
