// Package limiter defines interfaces and implementations for throttling
// abusive claim attempts. Repeated ownership conflicts from one client look
// like chip uid guessing and earn a temporary block.
package limiter

import (
	"context"
	"time"
)

// Limiter controls claim attempts and temporary lockouts per client.
type Limiter interface {
	// Allow reports whether claims are currently allowed and optional retry-after.
	Allow(ctx context.Context, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful claim.
	Success(ctx context.Context, ipHash []byte) error
	// Failure records a conflicting attempt; may place a temporary block.
	Failure(ctx context.Context, ipHash []byte) (bool, time.Duration, error)
}
