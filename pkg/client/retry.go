package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/dscc-qa/backup-harness/pkg/metrics"
)

type RetryPolicy struct {
	MaxTries   uint
	Interval   time.Duration
	MaxElapsed time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:   10,
		Interval:   5 * time.Second,
		MaxElapsed: 10 * time.Minute,
	}
}

var retryableStatus = map[int]bool{
	http.StatusForbidden:           true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

type retryableStatusError struct {
	resp *Response
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("%s %s: transient status %d", e.resp.method, e.resp.path, e.resp.StatusCode)
}

func (c *Client) withRetry(ctx context.Context, r Request, send func() (*Response, error)) (*Response, error) {
	if c.retry.MaxTries <= 1 {
		return send()
	}

	op := func() (*Response, error) {
		resp, err := send()
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			metrics.RequestRetries.WithLabelValues("transport").Inc()
			return nil, err
		}
		if !retryableStatus[resp.StatusCode] {
			return resp, nil
		}

		metrics.RequestRetries.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		statusErr := &retryableStatusError{resp: resp}
		if resp.StatusCode == http.StatusTooManyRequests {
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
				return nil, errors.Join(statusErr, backoff.RetryAfter(secs))
			}
		}
		return nil, statusErr
	}

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retry.Interval)),
		backoff.WithMaxTries(c.retry.MaxTries),
		backoff.WithMaxElapsedTime(c.retry.MaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			zap.S().Named("client").Warnw("retrying request", "method", r.Method, "path", r.Path, "error", err, "next", next)
		}),
	)
	if err != nil {
		// exhausted on a transient status: hand the last response back for status mapping
		var statusErr *retryableStatusError
		if errors.As(err, &statusErr) {
			return statusErr.resp, nil
		}
		return nil, err
	}
	return resp, nil
}
