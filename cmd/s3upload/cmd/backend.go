package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/backend/awss3"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/backend/httpapi"
	miniobackend "github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/backend/minio"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

// newControlPlane builds the control plane selected by cfg.Backend.
func newControlPlane(ctx context.Context, cfg *Config, logger *slog.Logger) (uploadtypes.ControlPlane, error) {
	switch cfg.Backend {
	case BackendS3:
		return awss3.New(ctx, cfg.Bucket,
			awss3.WithRegion(cfg.Region),
			awss3.WithEndpoint(cfg.Endpoint),
			awss3.WithForcePathStyle(cfg.PathStyle),
			awss3.WithPrefix(cfg.Prefix),
			awss3.WithPresignExpiry(cfg.PresignExpiry),
			awss3.WithLogger(logger),
		)
	case BackendMinio:
		return miniobackend.New(cfg.Endpoint, cfg.Bucket,
			miniobackend.WithCredentials(cfg.AccessKey, cfg.SecretKey),
			miniobackend.WithRegion(cfg.Region),
			miniobackend.WithSecure(!cfg.Insecure),
			miniobackend.WithPrefix(cfg.Prefix),
			miniobackend.WithPresignExpiry(cfg.PresignExpiry),
			miniobackend.WithLogger(logger),
		)
	case BackendHTTP:
		return httpapi.New(cfg.Endpoint,
			httpapi.WithToken(cfg.Token),
			httpapi.WithLogger(logger),
		)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
