package awss3

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/planner"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

// Backend drives multipart uploads into a single bucket.
type Backend struct {
	client    s3api.S3API
	presigner s3api.PresignAPI
	bucket    string
	cfg       Config
	logger    *slog.Logger
}

var (
	_ uploadtypes.ControlPlane = (*Backend)(nil)
	_ uploadtypes.Aborter      = (*Backend)(nil)
)

// New creates a backend for bucket. It loads AWS credentials using the
// default credential chain unless WithAWSConfig is given.
func New(ctx context.Context, bucket string, opts ...Option) (*Backend, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var awsCfg aws.Config
	if cfg.AWSConfig != nil {
		awsCfg = *cfg.AWSConfig
	} else {
		loaded, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, errors.NewError("new", err).WithMessage("load aws config")
		}
		awsCfg = loaded
	}
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	} else if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// Presigned part URLs must not pin a checksum algorithm of their own;
		// the uploader sends SHA-256 headers with every part.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return NewWithClient(client, s3.NewPresignClient(client), bucket, opts...)
}

// NewWithClient creates a backend from existing clients.
// This is primarily used for testing with mocked clients.
func NewWithClient(client s3api.S3API, presigner s3api.PresignAPI, bucket string, opts ...Option) (*Backend, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	if client == nil || presigner == nil {
		return nil, errors.NewError("new", errors.ErrInvalidInput).WithMessage("s3 client and presigner are required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Backend{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		cfg:       cfg,
		logger:    logger.With("bucket", bucket),
	}, nil
}

// Bucket returns the bucket uploads are written to.
func (b *Backend) Bucket() string {
	return b.bucket
}

// Key returns the object key an upload id is stored under.
func (b *Backend) Key(id string) string {
	if b.cfg.Prefix == "" {
		return id
	}
	return path.Join(b.cfg.Prefix, id)
}

// StartUpload creates the multipart upload and presigns every part.
// If presigning fails the created upload is aborted.
func (b *Backend) StartUpload(
	ctx context.Context,
	in *uploadtypes.StartUploadInput,
) (*uploadtypes.StartUploadOutput, error) {
	const op = "startUpload"

	if err := validation.ValidateID(in.ID); err != nil {
		return nil, err
	}
	if err := validation.ValidateMetadata(in.Metadata); err != nil {
		return nil, err
	}

	parts, err := planner.Plan(in.FileSize, max(in.MaxPartSize, b.cfg.MinPartSize))
	if err != nil {
		return nil, err
	}

	key := b.Key(in.ID)
	created, err := b.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:            aws.String(b.bucket),
		Key:               aws.String(key),
		ContentType:       aws.String(in.ContentType),
		Metadata:          validation.SanitizeMetadata(in.Metadata),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
		ChecksumType:      types.ChecksumTypeComposite,
	})
	if err != nil {
		return nil, errors.NewError(op, convertAWSError(err)).WithID(in.ID)
	}
	uploadID := aws.ToString(created.UploadId)

	presigned := make([]uploadtypes.PresignedPart, 0, len(parts))
	for _, p := range parts {
		req, err := b.presigner.PresignUploadPart(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(b.bucket),
			Key:        aws.String(key),
			UploadId:   aws.String(uploadID),
			PartNumber: aws.Int32(p.PartNumber),
		}, func(o *s3.PresignOptions) {
			o.Expires = b.cfg.PresignExpiry
		})
		if err != nil {
			_ = b.AbortUpload(ctx, in.ID, uploadID)
			return nil, errors.NewError(op, err).
				WithID(in.ID).
				WithUploadID(uploadID).
				WithPart(p.PartNumber).
				WithMessage("presign part")
		}
		presigned = append(presigned, uploadtypes.PresignedPart{
			PartDescriptor: p,
			URL:            req.URL,
			Headers:        signedHeaders(req.SignedHeader),
		})
	}

	b.logger.Debug("multipart upload created",
		"key", key,
		"upload_id", uploadID,
		"parts", len(presigned))

	return &uploadtypes.StartUploadOutput{UploadID: uploadID, Parts: presigned}, nil
}

// signedHeaders flattens the headers a URL was signed with, leaving out the
// ones the HTTP client sets itself.
func signedHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		switch http.CanonicalHeaderKey(k) {
		case "Host", "Content-Length":
			continue
		}
		if len(v) > 0 {
			out[k] = strings.Join(v, ",")
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// CompleteUpload completes the multipart upload. When S3 reports a composite
// checksum it must match in.Checksum.
func (b *Backend) CompleteUpload(ctx context.Context, in *uploadtypes.CompleteUploadInput) error {
	const op = "completeUpload"

	parts := slices.Clone(in.Parts)
	slices.SortFunc(parts, func(x, y uploadtypes.UploadedPart) int {
		return int(x.PartNumber) - int(y.PartNumber)
	})

	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = types.CompletedPart{
			PartNumber:     aws.Int32(p.PartNumber),
			ETag:           aws.String(p.ETag),
			ChecksumSHA256: aws.String(p.Hash),
		}
	}

	key := b.Key(in.ID)
	out, err := b.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(b.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(in.UploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return errors.NewError(op, convertAWSError(err)).WithID(in.ID).WithUploadID(in.UploadID)
	}

	if err := validation.VerifyComposite(aws.ToString(out.ChecksumSHA256), in.Checksum, len(parts)); err != nil {
		return errors.NewError(op, err).WithID(in.ID).WithUploadID(in.UploadID)
	}

	b.logger.Debug("multipart upload completed",
		"key", key,
		"upload_id", in.UploadID,
		"checksum", aws.ToString(out.ChecksumSHA256))
	return nil
}

// AbortUpload discards an incomplete upload and its stored parts.
func (b *Backend) AbortUpload(ctx context.Context, id, uploadID string) error {
	_, err := b.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(b.Key(id)),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return errors.NewError("abortUpload", convertAWSError(err)).WithID(id).WithUploadID(uploadID)
	}

	b.logger.Debug("multipart upload aborted", "key", b.Key(id), "upload_id", uploadID)
	return nil
}

// convertAWSError maps S3 API error codes onto the package sentinels while
// keeping the original error in the chain.
func convertAWSError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	var sentinel error
	switch apiErr.ErrorCode() {
	case "NoSuchUpload":
		sentinel = errors.ErrUploadNotFound
	case "NoSuchBucket":
		sentinel = errors.ErrBucketNotFound
	case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		sentinel = errors.ErrAccessDenied
	case "BadDigest", "InvalidPart":
		sentinel = errors.ErrChecksumMismatch
	case "InvalidArgument", "InvalidPartOrder", "EntityTooSmall", "InvalidRequest":
		sentinel = errors.ErrInvalidInput
	default:
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
