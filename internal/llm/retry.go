package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
)

// ErrExhaustedRetries is returned when every attempt of a resilient call
// failed with a retryable error.
var ErrExhaustedRetries = errors.New("exhausted retries")

// DefaultMaxAttempts is the attempt budget used when a Caller is constructed
// with a non-positive value.
const DefaultMaxAttempts = 5

// StatusPublisher records an intermediate status message on a job so a
// polling client can see that a backoff wait is happening.
type StatusPublisher func(ctx context.Context, jobID uuid.UUID, message string)

// Caller wraps a Client with bounded exponential-backoff retry for transient
// upstream failures (rate limit / overload). Anything else is propagated
// immediately. The wrapper is stateless across calls: each call's backoff
// schedule starts fresh, with no memory of prior jobs' rate-limit history.
type Caller struct {
	client      Client
	maxAttempts int
	publish     StatusPublisher

	// Injectable for deterministic tests.
	sleep  func(time.Duration)
	jitter func() float64
}

// NewCaller creates a resilient caller around client. publish may be nil.
func NewCaller(client Client, maxAttempts int, publish StatusPublisher) *Caller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Caller{
		client:      client,
		maxAttempts: maxAttempts,
		publish:     publish,
		sleep:       time.Sleep,
		jitter:      rand.Float64,
	}
}

// SetBackoff replaces the sleep and jitter sources. Deterministic tests
// inject a recording sleep and a fixed jitter.
func (c *Caller) SetBackoff(sleep func(time.Duration), jitter func() float64) {
	if sleep != nil {
		c.sleep = sleep
	}
	if jitter != nil {
		c.jitter = jitter
	}
}

// Call performs req, retrying retryable failures with a wait of
// 2^attempt + jitter seconds (jitter uniform in [0,1)) between attempts.
// After exhausting the attempt budget the last failure is returned wrapped
// in ErrExhaustedRetries.
func (c *Caller) Call(ctx context.Context, jobID uuid.UUID, req Request) (string, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		result, err := c.client.Generate(ctx, req)
		if err == nil {
			return result, nil
		}
		if !Retryable(err) {
			return "", err
		}
		lastErr = err

		if attempt == c.maxAttempts-1 {
			break
		}

		wait := time.Duration((math.Pow(2, float64(attempt)) + c.jitter()) * float64(time.Second))
		if c.publish != nil {
			c.publish(ctx, jobID, fmt.Sprintf("Rate limited, waiting %ds...", int(wait.Seconds())))
		}
		c.sleep(wait)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %w", ErrExhaustedRetries, c.maxAttempts, lastErr)
}

// Retryable classifies an upstream failure as transient (rate limit or
// overload) versus fatal.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code == 503
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "resource exhausted")
}
