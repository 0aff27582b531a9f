package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrIdentityUnresolved is returned when no resolution strategy could extract
// an identity from a trigger message. The trigger is dropped, never retried.
var ErrIdentityUnresolved = errors.New("identity unresolved")

// RateLimitedError signals a transient rate limit from the transport. It
// carries how long the transport asked us to wait before retrying.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
