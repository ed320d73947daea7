package minio

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/planner"
)

// DefaultPresignExpiry is how long presigned part URLs stay valid.
const DefaultPresignExpiry = 15 * time.Minute

// Config holds the backend configuration.
type Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Secure    bool

	// Prefix is prepended to every upload id to form the object name
	Prefix string

	PresignExpiry time.Duration
	MinPartSize   int64

	// Transport overrides the HTTP transport of the minio client
	Transport http.RoundTripper

	Logger *slog.Logger
}

// Option configures a Backend.
type Option func(*Config)

// WithCredentials sets static access and secret keys.
func WithCredentials(accessKey, secretKey string) Option {
	return func(c *Config) {
		c.AccessKey = accessKey
		c.SecretKey = secretKey
	}
}

// WithRegion sets the region used for signing.
func WithRegion(region string) Option {
	return func(c *Config) {
		c.Region = region
	}
}

// WithSecure selects https.
func WithSecure(secure bool) Option {
	return func(c *Config) {
		c.Secure = secure
	}
}

// WithPrefix sets the object name prefix.
func WithPrefix(prefix string) Option {
	return func(c *Config) {
		c.Prefix = prefix
	}
}

// WithPresignExpiry sets how long part URLs are valid.
func WithPresignExpiry(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PresignExpiry = d
		}
	}
}

// WithMinPartSize sets the smallest part size the backend plans with.
func WithMinPartSize(size int64) Option {
	return func(c *Config) {
		if size > 0 {
			c.MinPartSize = size
		}
	}
}

// WithTransport sets the HTTP transport used for control plane calls.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Config) {
		c.Transport = rt
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

func defaultConfig() Config {
	return Config{
		PresignExpiry: DefaultPresignExpiry,
		MinPartSize:   planner.MinPartSize,
	}
}
