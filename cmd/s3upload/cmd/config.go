package cmd

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

// envPrefix is the prefix of every environment variable the CLI reads.
const envPrefix = "S3UPLOAD"

// Backend names accepted by --backend.
const (
	BackendS3    = "s3"
	BackendMinio = "minio"
	BackendHTTP  = "http"
)

// Config is the CLI configuration. Values come from S3UPLOAD_* environment
// variables and are overridden by flags given on the command line.
type Config struct {
	Backend  string `envconfig:"BACKEND" default:"s3"`
	Bucket   string `envconfig:"BUCKET"`
	Region   string `envconfig:"REGION"`
	Endpoint string `envconfig:"ENDPOINT"`
	Prefix   string `envconfig:"PREFIX"`

	PathStyle bool   `envconfig:"PATH_STYLE"`
	AccessKey string `envconfig:"ACCESS_KEY"`
	SecretKey string `envconfig:"SECRET_KEY"`
	Insecure  bool   `envconfig:"INSECURE"`
	Token     string `envconfig:"TOKEN"`

	PartSize      int64         `envconfig:"PART_SIZE" default:"104857600"`
	Concurrency   int           `envconfig:"CONCURRENCY" default:"5"`
	MaxAttempts   int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	PresignExpiry time.Duration `envconfig:"PRESIGN_EXPIRY" default:"15m"`

	Verbose bool `envconfig:"VERBOSE"`
}

// bindFlags registers the persistent flags that mirror Config fields.
func bindFlags(cmd *cobra.Command, cfg *Config) {
	f := cmd.PersistentFlags()
	f.StringVar(&cfg.Backend, "backend", BackendS3, "control plane: s3, minio or http")
	f.StringVar(&cfg.Bucket, "bucket", "", "destination bucket (s3, minio)")
	f.StringVar(&cfg.Region, "region", "", "bucket region")
	f.StringVar(&cfg.Endpoint, "endpoint", "", "custom S3 endpoint, MinIO host:port or upload service base URL")
	f.StringVar(&cfg.Prefix, "prefix", "", "key prefix for uploaded objects")
	f.BoolVar(&cfg.PathStyle, "path-style", false, "use path-style S3 URLs")
	f.BoolVar(&cfg.Insecure, "insecure", false, "connect to MinIO over plain http")
	f.Int64Var(&cfg.PartSize, "part-size", 100*1024*1024, "maximum part size in bytes")
	f.IntVar(&cfg.Concurrency, "concurrency", 5, "parts uploaded concurrently per file")
	f.IntVar(&cfg.MaxAttempts, "max-attempts", 3, "attempts per part before giving up")
	f.DurationVar(&cfg.PresignExpiry, "presign-expiry", 15*time.Minute, "validity of presigned part URLs")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable debug logging")
}

// flagNames lists the flags that override environment values.
var flagNames = []string{
	"backend", "bucket", "region", "endpoint", "prefix", "path-style", "insecure",
	"part-size", "concurrency", "max-attempts", "presign-expiry", "verbose",
}

// loadConfig fills cfg from the environment and then re-applies every flag
// the user set explicitly.
func loadConfig(cmd *cobra.Command, cfg *Config) error {
	flags := cmd.Flags()

	changed := make(map[string]string)
	for _, name := range flagNames {
		if f := flags.Lookup(name); f != nil && f.Changed {
			changed[name] = f.Value.String()
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	for name, value := range changed {
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("failed to apply --%s: %w", name, err)
		}
	}
	return cfg.validate()
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendS3, BackendMinio:
		if c.Bucket == "" {
			return fmt.Errorf("--bucket is required for the %s backend", c.Backend)
		}
		if c.Backend == BackendMinio && c.Endpoint == "" {
			return fmt.Errorf("--endpoint is required for the minio backend")
		}
	case BackendHTTP:
		if c.Endpoint == "" {
			return fmt.Errorf("--endpoint is required for the http backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}
