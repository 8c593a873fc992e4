package internal

import (
	"context"
	"time"
)

// RetryPolicy drives the diagnostic chat probe. The chat controller never
// retries; a retry there is always a fresh user action.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retriable   []int
}

// DefaultRetryPolicy retries connectivity failures, throttling and 5xx
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   1500 * time.Millisecond,
		Retriable:   []int{0, 429, 500, 502, 503, 504},
	}
}

// Delay returns the wait before the given (1-based) retry attempt
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay * time.Duration(1<<uint(attempt-1))
}

func (p RetryPolicy) retriable(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	for _, status := range p.Retriable {
		if apiErr.Status == status {
			return true
		}
	}
	return false
}

// SendMessageWithRetry sends query with exponential backoff. onAttempt, when
// set, is called before every attempt.
func (c *Client) SendMessageWithRetry(ctx context.Context, query string, policy RetryPolicy, onAttempt func(attempt int)) (*ChatResponse, error) {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if onAttempt != nil {
			onAttempt(attempt)
		}
		resp, err := c.SendMessage(ctx, query)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !policy.retriable(err) || attempt == policy.MaxAttempts {
			break
		}

		delay := policy.Delay(attempt)
		LogWarn("Chat attempt %d failed (%v), retrying in %s", attempt, err, delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}
