package ports

import "context"

// LoginThrottle limits login attempts per account key.
type LoginThrottle interface {
	// Attempt counts one attempt for key and reports whether it may proceed.
	// Counting and checking happen in a single step.
	Attempt(ctx context.Context, key string) (bool, error)
	// Reset clears the count after a successful login.
	Reset(ctx context.Context, key string) error
}
