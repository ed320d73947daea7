package minio

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/planner"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

const checksumAlgorithmHeader = "x-amz-checksum-algorithm"

// CoreAPI is the subset of minio.Core the backend uses.
type CoreAPI interface {
	NewMultipartUpload(ctx context.Context, bucket, object string, opts minio.PutObjectOptions) (string, error)
	PresignHeader(
		ctx context.Context,
		method, bucket, object string,
		expires time.Duration,
		reqParams url.Values,
		extraHeaders http.Header,
	) (*url.URL, error)
	CompleteMultipartUpload(
		ctx context.Context,
		bucket, object, uploadID string,
		parts []minio.CompletePart,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
	AbortMultipartUpload(ctx context.Context, bucket, object, uploadID string) error
}

var _ CoreAPI = (*minio.Core)(nil)

// Backend drives multipart uploads into a single MinIO bucket.
type Backend struct {
	core   CoreAPI
	bucket string
	cfg    Config
	logger *slog.Logger
}

var (
	_ uploadtypes.ControlPlane = (*Backend)(nil)
	_ uploadtypes.Aborter      = (*Backend)(nil)
)

// New connects to the server at endpoint (host[:port], no scheme).
func New(endpoint, bucket string, opts ...Option) (*Backend, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	core, err := minio.NewCore(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.Secure,
		Region:    cfg.Region,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, errors.NewError("new", err).WithMessage("create minio client")
	}

	return NewWithCore(core, bucket, opts...)
}

// NewWithCore creates a backend from an existing client.
func NewWithCore(core CoreAPI, bucket string, opts ...Option) (*Backend, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	if core == nil {
		return nil, errors.NewError("new", errors.ErrInvalidInput).WithMessage("minio client is required")
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
		core:   core,
		bucket: bucket,
		cfg:    cfg,
		logger: logger.With("bucket", bucket),
	}, nil
}

// Bucket returns the bucket uploads are written to.
func (b *Backend) Bucket() string {
	return b.bucket
}

// Object returns the object name an upload id is stored under.
func (b *Backend) Object(id string) string {
	if b.cfg.Prefix == "" {
		return id
	}
	return path.Join(b.cfg.Prefix, id)
}

// StartUpload creates the multipart upload and presigns a PUT per part.
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

	// minio-go sends x-amz-* keys of UserMetadata as plain headers.
	meta := validation.SanitizeMetadata(in.Metadata)
	if meta == nil {
		meta = make(map[string]string, 1)
	}
	meta[checksumAlgorithmHeader] = uploadtypes.ChecksumAlgorithmSHA256

	object := b.Object(in.ID)
	uploadID, err := b.core.NewMultipartUpload(ctx, b.bucket, object, minio.PutObjectOptions{
		ContentType:  in.ContentType,
		UserMetadata: meta,
	})
	if err != nil {
		return nil, errors.NewError(op, convertMinioError(err)).WithID(in.ID)
	}

	presigned := make([]uploadtypes.PresignedPart, 0, len(parts))
	for _, p := range parts {
		params := url.Values{}
		params.Set("partNumber", strconv.Itoa(int(p.PartNumber)))
		params.Set("uploadId", uploadID)

		u, err := b.core.PresignHeader(ctx, http.MethodPut, b.bucket, object, b.cfg.PresignExpiry, params, nil)
		if err != nil {
			_ = b.AbortUpload(ctx, in.ID, uploadID)
			return nil, errors.NewError(op, err).
				WithID(in.ID).
				WithUploadID(uploadID).
				WithPart(p.PartNumber).
				WithMessage("presign part")
		}
		presigned = append(presigned, uploadtypes.PresignedPart{PartDescriptor: p, URL: u.String()})
	}

	b.logger.Debug("multipart upload created",
		"object", object,
		"upload_id", uploadID,
		"parts", len(presigned))

	return &uploadtypes.StartUploadOutput{UploadID: uploadID, Parts: presigned}, nil
}

// CompleteUpload completes the multipart upload and checks the composite
// checksum when the server reports one.
func (b *Backend) CompleteUpload(ctx context.Context, in *uploadtypes.CompleteUploadInput) error {
	const op = "completeUpload"

	parts := slices.Clone(in.Parts)
	slices.SortFunc(parts, func(x, y uploadtypes.UploadedPart) int {
		return int(x.PartNumber) - int(y.PartNumber)
	})

	completed := make([]minio.CompletePart, len(parts))
	for i, p := range parts {
		completed[i] = minio.CompletePart{
			PartNumber:     int(p.PartNumber),
			ETag:           strings.Trim(p.ETag, `"`),
			ChecksumSHA256: p.Hash,
		}
	}

	object := b.Object(in.ID)
	info, err := b.core.CompleteMultipartUpload(ctx, b.bucket, object, in.UploadID, completed, minio.PutObjectOptions{})
	if err != nil {
		return errors.NewError(op, convertMinioError(err)).WithID(in.ID).WithUploadID(in.UploadID)
	}

	if err := validation.VerifyComposite(info.ChecksumSHA256, in.Checksum, len(parts)); err != nil {
		return errors.NewError(op, err).WithID(in.ID).WithUploadID(in.UploadID)
	}

	b.logger.Debug("multipart upload completed",
		"object", object,
		"upload_id", in.UploadID,
		"etag", info.ETag)
	return nil
}

// AbortUpload discards an incomplete upload.
func (b *Backend) AbortUpload(ctx context.Context, id, uploadID string) error {
	if err := b.core.AbortMultipartUpload(ctx, b.bucket, b.Object(id), uploadID); err != nil {
		return errors.NewError("abortUpload", convertMinioError(err)).WithID(id).WithUploadID(uploadID)
	}

	b.logger.Debug("multipart upload aborted", "object", b.Object(id), "upload_id", uploadID)
	return nil
}

func convertMinioError(err error) error {
	resp := minio.ToErrorResponse(err)

	var sentinel error
	switch resp.Code {
	case "NoSuchUpload":
		sentinel = errors.ErrUploadNotFound
	case "NoSuchBucket":
		sentinel = errors.ErrBucketNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		sentinel = errors.ErrAccessDenied
	case "BadDigest", "InvalidPart", "XAmzContentChecksumMismatch":
		sentinel = errors.ErrChecksumMismatch
	case "InvalidArgument", "InvalidPartOrder", "EntityTooSmall":
		sentinel = errors.ErrInvalidInput
	default:
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
