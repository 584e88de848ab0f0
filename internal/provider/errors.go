package provider

import (
	"errors"
	"fmt"
)

// ErrUnavailable indicates the adapter cannot serve requests at all, most
// commonly because credentials are absent. It is a per-attempt error: the
// router treats it as "try the next candidate".
var ErrUnavailable = errors.New("provider unavailable")

// ErrUnknownProvider indicates the registry was asked to construct an
// unrecognised provider identifier. This is a configuration or programming
// error and is not retried.
var ErrUnknownProvider = errors.New("unknown provider")

// UpstreamError wraps a failure of the backend call itself: a timeout, an
// HTTP error status, or a malformed payload. It carries the provider and
// model for diagnostics and unwraps to the underlying cause.
type UpstreamError struct {
	Provider string
	Model    string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s (%s): upstream error: %v", e.Provider, e.Model, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
