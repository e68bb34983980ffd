// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a missing or blank required field.
	ErrValidation = errors.New("validation")

	// ErrConflict indicates an ownership conflict on a claimed ring.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates a temporary block due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrConfiguration indicates the backend is misconfigured (operator-facing).
	ErrConfiguration = errors.New("configuration")

	// ErrUpstream indicates a dependent external system failed.
	ErrUpstream = errors.New("upstream")
)

// Validation wraps a field-level message into ErrValidation.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// OwnershipConflict reports that a ring is already claimed by another account.
// It matches ErrConflict under errors.Is and carries the current owner id for
// client messaging.
type OwnershipConflict struct {
	ChipUID     string
	OwnerUserID string
}

func (e *OwnershipConflict) Error() string {
	return fmt.Sprintf("ring %s already claimed by another owner", e.ChipUID)
}

func (e *OwnershipConflict) Is(target error) bool { return target == ErrConflict }
