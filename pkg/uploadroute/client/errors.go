package client

import (
	"context"
	"errors"
	"fmt"
)

// TransportError represents a failed transfer attempt. Temporary errors
// (network failures, 5xx responses) are retried up to the configured
// bound; client errors (4xx) and cancellation are terminal.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upload failed with status %d", e.Status)
	}
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the failure is worth retrying.
func (e *TransportError) Temporary() bool {
	return e.Status == 0 || e.Status >= 500
}

// isCanceled reports whether err stems from context cancellation. Canceled
// transfers are terminal and never retried.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
