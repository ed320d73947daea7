package awss3

import (
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/planner"
)

// DefaultPresignExpiry is how long presigned part URLs stay valid.
const DefaultPresignExpiry = 15 * time.Minute

// Config holds the backend configuration.
type Config struct {
	Region         string
	Endpoint       string
	ForcePathStyle bool

	// Prefix is prepended to every upload id to form the object key
	Prefix string

	PresignExpiry time.Duration

	// MinPartSize is the floor applied to the part size requested by the uploader
	MinPartSize int64

	Logger    *slog.Logger
	AWSConfig *aws.Config
}

// Option is a functional option for configuring the backend.
type Option func(*Config)

// WithRegion sets the AWS region.
// If not specified, uses the default AWS region from the credential chain.
func WithRegion(region string) Option {
	return func(c *Config) {
		c.Region = region
	}
}

// WithEndpoint sets a custom S3 endpoint, e.g. for LocalStack.
func WithEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces path-style URLs instead of virtual-hosted style.
func WithForcePathStyle(force bool) Option {
	return func(c *Config) {
		c.ForcePathStyle = force
	}
}

// WithPrefix sets the key prefix uploads are stored under.
func WithPrefix(prefix string) Option {
	return func(c *Config) {
		c.Prefix = prefix
	}
}

// WithPresignExpiry sets how long part URLs are valid. Default is 15 minutes.
func WithPresignExpiry(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PresignExpiry = d
		}
	}
}

// WithMinPartSize sets the smallest part size the backend plans with.
// Default is 5 MiB, the S3 minimum for every part but the last.
func WithMinPartSize(size int64) Option {
	return func(c *Config) {
		if size > 0 {
			c.MinPartSize = size
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithAWSConfig uses cfg instead of loading the default AWS configuration.
func WithAWSConfig(cfg aws.Config) Option {
	return func(c *Config) {
		c.AWSConfig = &cfg
	}
}

func defaultConfig() Config {
	return Config{
		PresignExpiry: DefaultPresignExpiry,
		MinPartSize:   planner.MinPartSize,
	}
}
