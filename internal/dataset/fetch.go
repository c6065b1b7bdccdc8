package dataset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffConfig controls how failed downloads are retried.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff is used by NewHTTPSource.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

// delay returns the wait before retry number attempt (0-based), doubling from
// InitialInterval and capped at MaxInterval when set.
func (b BackoffConfig) delay(attempt int) time.Duration {
	d := b.InitialInterval << attempt
	if d <= 0 || (b.MaxInterval > 0 && d > b.MaxInterval) {
		return b.MaxInterval
	}
	return d
}

func (b BackoffConfig) validate() error {
	if b.MaxRetries < 0 || b.InitialInterval <= 0 {
		return errInvalidBackoff
	}
	return nil
}

var (
	errRateLimited    = errors.New("rate limited")
	errServerError    = errors.New("server error")
	errUnexpected     = errors.New("unexpected status code")
	errCircuitOpen    = errors.New("circuit breaker open")
	errNoHTTPClient   = errors.New("http client not configured")
	errInvalidBackoff = errors.New("invalid backoff configuration")
)

// statusError carries the response status and any Retry-After hint.
type statusError struct {
	kind       error
	code       int
	retryAfter time.Duration
}

func (e *statusError) Error() string { return fmt.Sprintf("%v: %d", e.kind, e.code) }
func (e *statusError) Unwrap() error { return e.kind }

func classify(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &statusError{kind: errRateLimited, code: resp.StatusCode, retryAfter: retryAfter(resp.Header)}
	case resp.StatusCode >= 500:
		return &statusError{kind: errServerError, code: resp.StatusCode, retryAfter: retryAfter(resp.Header)}
	default:
		return &statusError{kind: errUnexpected, code: resp.StatusCode}
	}
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// download performs the GET through the circuit breaker, retrying transport
// errors, 429 and 5xx with backoff. Other statuses fail immediately. The
// caller owns the returned body.
func (s *HTTPSource) download(ctx context.Context) (*http.Response, error) {
	if s.client == nil {
		return nil, errNoHTTPClient
	}
	if err := s.backoff.validate(); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/csv")

		result, err := s.circuit.Execute(func() (interface{}, error) {
			resp, err := s.client.Do(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}
			_ = resp.Body.Close()
			return nil, classify(resp)
		})
		if err == nil {
			return result.(*http.Response), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if errors.Is(err, errUnexpected) || attempt >= s.backoff.MaxRetries {
			return nil, err
		}

		wait := s.backoff.delay(attempt)
		var se *statusError
		if errors.As(err, &se) && se.retryAfter > wait {
			wait = se.retryAfter
		}
		s.logger.Warn("dataset download failed; retrying",
			"url", s.url,
			"attempt", attempt+1,
			"wait", wait,
			"error", err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
