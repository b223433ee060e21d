package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for explicit error handling
// These errors allow callers to distinguish between different failure modes
// using errors.Is() instead of string matching

var (
	// ErrKeyNotFound indicates the requested key (or user's keys) does not exist
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidInput is the parent of every caller-input error below
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidUserID indicates a missing or oversized user id
	ErrInvalidUserID = fmt.Errorf("%w: user_id is required", ErrInvalidInput)

	// ErrInvalidDuration indicates a non-positive key duration
	ErrInvalidDuration = fmt.Errorf("%w: hours must be a positive number", ErrInvalidInput)

	// ErrInvalidTimestamp indicates an unparsable expiry
	ErrInvalidTimestamp = fmt.Errorf("%w: invalid date format", ErrInvalidInput)

	// ErrPasswordRequired indicates an empty admin password
	ErrPasswordRequired = fmt.Errorf("%w: password is required", ErrInvalidInput)

	// ErrUnauthenticated indicates a missing, unknown or expired admin session
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidCredentials indicates authentication failed
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateKey indicates key id generation kept colliding
	ErrDuplicateKey = errors.New("duplicate key id")

	// ErrStoreFailure indicates the key store failed; details are logged, not returned
	ErrStoreFailure = errors.New("key store failure")
)
