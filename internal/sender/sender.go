// Package sender delivers outbound messages with bounded retry on transient
// rate limiting.
package sender

import (
	"context"
	"errors"
	"time"

	"github.com/mkrutov/leobot/internal/domain"
	"github.com/mkrutov/leobot/internal/logging"
)

// retryBuffer is added to the wait the transport asked for before retrying.
const retryBuffer = 2 * time.Second

// maxAttempts is the retry ceiling: one attempt plus one retry after a rate
// limit. A rate limit on the retried attempt propagates as a failure.
const maxAttempts = 2

// Sender delivers text messages through the transport.
type Sender struct {
	transport domain.Transport
	log       *logging.Logger
	sleep     func(time.Duration) // injectable for tests
}

// New creates a sender over the given transport.
func New(transport domain.Transport, log *logging.Logger) *Sender {
	return &Sender{
		transport: transport,
		log:       log.Sub("sender"),
		sleep:     time.Sleep,
	}
}

// Send delivers text to identity. On a rate limit it sleeps for the reported
// wait plus a fixed buffer and retries exactly once. Any other error, or a
// second rate limit, is logged and returned; conversation state is never
// rolled back by the caller on send failure.
func (s *Sender) Send(ctx context.Context, identity int64, text string) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = s.transport.Send(ctx, identity, text)
		if err == nil {
			s.log.Info().Int64("identity", identity).Int("attempt", attempt).Msg("message sent")
			return nil
		}

		var rl *domain.RateLimitedError
		if errors.As(err, &rl) && attempt < maxAttempts {
			wait := rl.RetryAfter + retryBuffer
			s.log.Warn().
				Int64("identity", identity).
				Dur("wait", wait).
				Msg("rate limited, retrying after wait")
			s.sleep(wait)
			continue
		}
		break
	}

	s.log.Error().Err(err).Int64("identity", identity).Msg("send failed")
	return err
}
