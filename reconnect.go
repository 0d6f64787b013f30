package hook

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// retryPolicy implements fixed-delay reconnection with a bounded attempt
// budget. The zero value never retries.
type retryPolicy struct {
	attempts int
	delay    time.Duration
	used     int
}

// next returns the delay before the upcoming attempt, or false when the
// budget is spent.
func (p *retryPolicy) next() (time.Duration, bool) {
	if p.used >= p.attempts {
		return 0, false
	}
	p.used++
	return p.delay, true
}

func (p *retryPolicy) reset() {
	p.used = 0
}

// reconnectDialTimeout bounds each individual redial attempt.
const reconnectDialTimeout = 10 * time.Second

// runReconnect drives reconnection for a dropped session: it redials on a
// fixed cadence until dial succeeds, the session is closed, or the attempt
// budget runs out. Exhaustion is reported through onError as
// ErrRetriesExhausted carrying the last dial failure.
func runReconnect(policy retryPolicy, channel string, cause error, done <-chan struct{}, dial func(context.Context) error, onSuccess func(), onError ErrorHandler, log zerolog.Logger) {
	for {
		delay, ok := policy.next()
		if !ok {
			log.Error().Err(cause).Str("channel", channel).Int("attempts", policy.used).Msg("reconnect attempts exhausted")
			onError(SDKError{
				Kind:      ErrRetriesExhausted,
				Channel:   channel,
				Cause:     cause,
				Timestamp: time.Now(),
			})
			return
		}

		select {
		case <-done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), reconnectDialTimeout)
		err := dial(ctx)
		cancel()
		if err == nil {
			log.Info().Str("channel", channel).Int("attempt", policy.used).Msg("session restored")
			if onSuccess != nil {
				onSuccess()
			}
			return
		}

		cause = err
		log.Warn().Err(err).Str("channel", channel).Int("attempt", policy.used).Msg("reconnect attempt failed")
	}
}
