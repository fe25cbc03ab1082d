package shared

import (
	"fmt"
	"time"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Store errors
	ErrNotFound            = fmt.Errorf("not found")
	ErrInsufficientBalance = fmt.Errorf("insufficient balance")
	ErrGrantNotAvailable   = fmt.Errorf("grant not yet available")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// GrantWaitError reports how long a user must wait before the next free
// grant. It unwraps to [ErrGrantNotAvailable] so callers can match it with
// [errors.Is] while still reading the remaining cooldown.
type GrantWaitError struct {
	Remaining time.Duration
}

func (e *GrantWaitError) Error() string {
	return fmt.Sprintf("grant not yet available: %s remaining", e.Remaining.Round(time.Second))
}

func (e *GrantWaitError) Unwrap() error { return ErrGrantNotAvailable }
