package transport

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

// jitter spreads concurrent part retries apart (±25%).
const jitter = 0.25

// StatusError is returned for a non-2xx part response.
type StatusError struct {
	StatusCode int
	Status     string

	// Body holds the start of the response body, which for S3 is an XML error document
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected response %s", e.Status)
	}
	return fmt.Sprintf("unexpected response %s: %s", e.Status, e.Body)
}

// Retryable reports whether another attempt may succeed.
// Client errors are final except for request timeouts and throttling.
func (e *StatusError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return false
	}
	return true
}

// IsStatus reports whether err carries a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// funcBackOff adapts a BackoffFunc to backoff.BackOff.
type funcBackOff struct {
	fn      uploadtypes.BackoffFunc
	attempt int
}

func (f *funcBackOff) NextBackOff() time.Duration {
	f.attempt++
	return f.fn(f.attempt)
}

func (f *funcBackOff) Reset() {
	f.attempt = 0
}

// newBackOff builds the retry schedule for one part. Every part gets its own
// instance since backoff.BackOff implementations are stateful.
func newBackOff(policy uploadtypes.RetryPolicy) backoff.BackOff {
	var b backoff.BackOff
	if policy.Backoff != nil {
		b = &funcBackOff{fn: policy.Backoff}
	} else {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = policy.InitialInterval
		exp.MaxInterval = policy.MaxInterval
		exp.Multiplier = policy.Multiplier
		exp.RandomizationFactor = jitter
		exp.MaxElapsedTime = 0
		exp.Reset()
		b = exp
	}

	retries := policy.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(b, uint64(retries))
}

// normalizePolicy fills unset fields with the package defaults.
func normalizePolicy(p uploadtypes.RetryPolicy) uploadtypes.RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = uploadtypes.DefaultMaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = uploadtypes.DefaultInitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = uploadtypes.DefaultMaxInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = uploadtypes.DefaultMultiplier
	}
	return p
}
