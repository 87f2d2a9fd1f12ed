package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

// scriptedClient returns canned results in order.
type scriptedClient struct {
	results []string
	errs    []error
	calls   int
}

func (c *scriptedClient) Generate(_ context.Context, _ Request) (string, error) {
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.results) {
		return c.results[i], nil
	}
	return "", errors.New("script exhausted")
}

func (c *scriptedClient) Close() error { return nil }

func rateLimitErr() error {
	return &googleapi.Error{Code: 429, Message: "rate limit exceeded"}
}

func newTestCaller(client Client, maxAttempts int, publish StatusPublisher) (*Caller, *[]time.Duration) {
	caller := NewCaller(client, maxAttempts, publish)
	waits := &[]time.Duration{}
	caller.sleep = func(d time.Duration) { *waits = append(*waits, d) }
	caller.jitter = func() float64 { return 0.5 }
	return caller, waits
}

func TestCaller_SuccessFirstAttempt(t *testing.T) {
	client := &scriptedClient{results: []string{"ok"}}
	caller, waits := newTestCaller(client, 5, nil)

	result, err := caller.Call(context.Background(), uuid.New(), Request{Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, client.calls)
	assert.Empty(t, *waits)
}

func TestCaller_RetryLaw(t *testing.T) {
	// N-1 transient failures followed by one success: the wrapper must
	// return the successful result after exactly N attempts, with
	// cumulative wait within [sum(2^i), sum(2^i)+N] seconds for i in 0..N-2.
	const n = 4
	client := &scriptedClient{
		errs:    []error{rateLimitErr(), rateLimitErr(), rateLimitErr(), nil},
		results: []string{"", "", "", "fourth"},
	}
	caller, waits := newTestCaller(client, 5, nil)

	result, err := caller.Call(context.Background(), uuid.New(), Request{Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "fourth", result)
	assert.Equal(t, n, client.calls)
	require.Len(t, *waits, n-1)

	var total time.Duration
	for _, w := range *waits {
		total += w
	}
	lower := time.Duration(1+2+4) * time.Second
	upper := lower + time.Duration(n)*time.Second
	assert.GreaterOrEqual(t, total, lower)
	assert.LessOrEqual(t, total, upper)
}

func TestCaller_ExhaustedRetries(t *testing.T) {
	client := &scriptedClient{
		errs: []error{rateLimitErr(), rateLimitErr(), rateLimitErr()},
	}
	caller, waits := newTestCaller(client, 3, nil)

	_, err := caller.Call(context.Background(), uuid.New(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhaustedRetries)
	assert.Equal(t, 3, client.calls)
	// No wait after the final attempt.
	assert.Len(t, *waits, 2)
}

func TestCaller_FatalErrorNotRetried(t *testing.T) {
	fatal := errors.New("invalid argument")
	client := &scriptedClient{errs: []error{fatal}}
	caller, waits := newTestCaller(client, 5, nil)

	_, err := caller.Call(context.Background(), uuid.New(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, fatal)
	assert.NotErrorIs(t, err, ErrExhaustedRetries)
	assert.Equal(t, 1, client.calls)
	assert.Empty(t, *waits)
}

func TestCaller_PublishesWaitStatus(t *testing.T) {
	client := &scriptedClient{
		errs:    []error{rateLimitErr(), rateLimitErr(), rateLimitErr(), nil},
		results: []string{"", "", "", "ok"},
	}

	var messages []string
	publish := func(_ context.Context, _ uuid.UUID, message string) {
		messages = append(messages, message)
	}
	caller, _ := newTestCaller(client, 5, publish)

	result, err := caller.Call(context.Background(), uuid.New(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	// Jitter fixed at 0.5: waits are 1.5s, 2.5s, 4.5s.
	require.Len(t, messages, 3)
	assert.Equal(t, "Rate limited, waiting 1s...", messages[0])
	assert.Equal(t, "Rate limited, waiting 2s...", messages[1])
	assert.Equal(t, "Rate limited, waiting 4s...", messages[2])
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(rateLimitErr()))
	assert.True(t, Retryable(&googleapi.Error{Code: 503, Message: "overloaded"}))
	assert.True(t, Retryable(fmt.Errorf("generate: %w", errors.New("model is overloaded"))))
	assert.True(t, Retryable(errors.New("quota exceeded for project")))
	assert.False(t, Retryable(&googleapi.Error{Code: 400, Message: "bad request"}))
	assert.False(t, Retryable(errors.New("context canceled")))
	assert.False(t, Retryable(nil))
}
