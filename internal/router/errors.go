package router

import (
	"errors"
	"fmt"
)

// ErrNoProvidersAvailable indicates that zero providers are enabled. This is
// a configuration problem, fatal to the request.
var ErrNoProvidersAvailable = errors.New("no providers available")

// AllProvidersFailedError indicates every enabled, rate-permitted provider
// was attempted and errored. It carries the last upstream error for
// diagnostics and unwraps to it.
type AllProvidersFailedError struct {
	Attempts int
	LastErr  error
}

func (e *AllProvidersFailedError) Error() string {
	return fmt.Sprintf("all providers failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *AllProvidersFailedError) Unwrap() error {
	return e.LastErr
}
