package s3upload

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/opencontainers/go-digest"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

// WithAlgorithm sets the per-part digest algorithm.
// Default is sha256, which is also the only algorithm New accepts.
func WithAlgorithm(alg digest.Algorithm) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.Algorithm = alg
	}
}

// WithMaxPartSize sets the largest part size requested from the control plane.
// Default is 100 MiB. The control plane decides the actual boundaries.
func WithMaxPartSize(size int64) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.MaxPartSize = size
	}
}

// WithConcurrency sets the maximum number of parts transferred at once.
// Default is 5.
func WithConcurrency(concurrency int) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.Concurrency = concurrency
	}
}

// WithMaxAttempts sets the number of tries per part, including the first.
// Default is 3. Use 1 to disable retries.
func WithMaxAttempts(attempts int) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.Retry.MaxAttempts = attempts
	}
}

// WithBackoff sets the exponential retry schedule.
// Defaults are 500ms initial delay, doubling up to 10s, with ±25% jitter.
func WithBackoff(initial, maxInterval time.Duration, multiplier float64) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.Retry.InitialInterval = initial
		c.Retry.MaxInterval = maxInterval
		c.Retry.Multiplier = multiplier
	}
}

// WithBackoffFunc replaces the exponential schedule with fn.
func WithBackoffFunc(fn uploadtypes.BackoffFunc) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.Retry.Backoff = fn
	}
}

// WithRetryPolicy replaces the whole retry policy. Zero fields take defaults.
func WithRetryPolicy(policy uploadtypes.RetryPolicy) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.Retry = policy
	}
}

// WithHTTPClient sets the HTTP client used for part PUTs.
// Presigned URLs carry their own credentials, so any client works.
func WithHTTPClient(client *http.Client) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.HTTPClient = client
	}
}

// WithLogger sets the structured logger. Default discards all output.
func WithLogger(logger *slog.Logger) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.Logger = logger
	}
}

// WithFilesystem sets the filesystem UploadFile opens paths from.
// Default is the OS filesystem rooted at /.
func WithFilesystem(fs billy.Filesystem) uploadtypes.Option {
	return func(c *uploadtypes.Config) {
		c.Filesystem = fs
	}
}
