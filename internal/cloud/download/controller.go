// Package download implements the resilient download controller that guards
// the providers' read path against transient remote failures.
package download

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stagelink/stagelink/internal/cloud"
	"github.com/stagelink/stagelink/internal/constants"
)

// OpenFunc opens one attempt at the raw object stream.
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

// BackoffFunc maps a failed attempt number (starting at 1) to the sleep
// before the next attempt.
type BackoffFunc func(attempt int) time.Duration

// LinearBackoff sleeps attempt × one second. This is the default policy.
func LinearBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * constants.DownloadBackoffUnit
}

// Controller retries and fully materializes remote reads.
//
// With MaxRetries of 1 or less, resilience is disabled: the raw stream from
// a single attempt is returned without buffering, and failures during later
// consumption are the caller's problem. Otherwise each attempt is read fully
// into memory so that a stream handed to the caller can never fail mid-read;
// failed attempts back off linearly and are retried up to the budget.
type Controller struct {
	// MaxRetries is the attempt budget.
	MaxRetries int

	// Backoff overrides LinearBackoff, mainly for tests.
	Backoff BackoffFunc
}

// Fetch runs the retry loop for one object. name is used for logging only.
//
// The backoff sleep is a synchronous blocking wait local to the calling
// goroutine; there is no overall deadline beyond the attempt budget, though
// context cancellation is honored between attempts.
func (c *Controller) Fetch(ctx context.Context, name string, open OpenFunc) (io.ReadCloser, error) {
	if c.MaxRetries <= 1 {
		return open(ctx)
	}

	backoff := c.Backoff
	if backoff == nil {
		backoff = LinearBackoff
	}

	var lastErr error
	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, elapsed, err := c.materialize(ctx, open)
		if err == nil {
			log.Debug().
				Str("file", name).
				Int("attempt", attempt).
				Int("bytes", len(data)).
				Dur("elapsed", elapsed).
				Msg("download materialized")
			return io.NopCloser(bytes.NewReader(data)), nil
		}

		lastErr = err
		log.Warn().
			Str("file", name).
			Int("attempt", attempt).
			Int("max_attempts", c.MaxRetries).
			Err(err).
			Msg("download attempt failed")

		if attempt < c.MaxRetries {
			time.Sleep(backoff(attempt))
		}
	}

	if lastErr == nil {
		return nil, cloud.ErrUnknownDownloadFailure
	}
	return nil, &cloud.RetryExhaustedError{Attempts: c.MaxRetries, Last: lastErr}
}

// CountedFetch returns a per-object fetch function that routes every open
// through the controller and increments processed after each successful
// download. Failed fetches leave the counter untouched.
func (c *Controller) CountedFetch(processed *atomic.Int64, open func(ctx context.Context, name string) (io.ReadCloser, error)) func(ctx context.Context, name string) (io.ReadCloser, error) {
	return func(ctx context.Context, name string) (io.ReadCloser, error) {
		rc, err := c.Fetch(ctx, name, func(ctx context.Context) (io.ReadCloser, error) {
			return open(ctx, name)
		})
		if err != nil {
			return nil, err
		}
		processed.Add(1)
		return rc, nil
	}
}

// materialize opens the stream and reads it to completion into memory.
func (c *Controller) materialize(ctx context.Context, open OpenFunc) ([]byte, time.Duration, error) {
	start := time.Now()

	rc, err := open(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), time.Since(start), nil
}
