// Package uploadtypes provides shared type definitions for the s3upload module.
package uploadtypes

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/opencontainers/go-digest"
)

// Default configuration values.
const (
	// DefaultMaxPartSize is the part size requested from the control plane (100 MiB).
	DefaultMaxPartSize int64 = 100 * 1024 * 1024

	// DefaultConcurrency is the number of parts transferred at once.
	DefaultConcurrency = 5

	// DefaultMaxAttempts is the number of tries a single part PUT gets.
	DefaultMaxAttempts = 3

	// DefaultInitialInterval is the first retry delay.
	DefaultInitialInterval = 500 * time.Millisecond

	// DefaultMaxInterval caps the retry delay.
	DefaultMaxInterval = 10 * time.Second

	// DefaultMultiplier grows the retry delay between attempts.
	DefaultMultiplier = 2.0

	// DefaultContentType is used when no content type can be detected.
	DefaultContentType = "application/octet-stream"

	// DefaultAlgorithm is the only supported part digest algorithm.
	DefaultAlgorithm = digest.SHA256
)

// Checksum headers sent with every part PUT.
const (
	HeaderChecksumAlgorithm = "x-amz-sdk-checksum-algorithm"
	HeaderChecksumSHA256    = "x-amz-checksum-sha256"
	ChecksumAlgorithmSHA256 = "SHA256"
)

// PartDescriptor identifies one part of a file by number and byte range.
// End is exclusive.
type PartDescriptor struct {
	// PartNumber is the 1-based multipart part number
	PartNumber int32 `json:"part_number"`

	// Start is the first byte offset of the part
	Start int64 `json:"start"`

	// End is one past the last byte offset of the part
	End int64 `json:"end"`
}

// Size returns the number of bytes covered by the part.
func (p PartDescriptor) Size() int64 {
	return p.End - p.Start
}

// PresignedPart is a part descriptor with the URL it must be PUT to.
type PresignedPart struct {
	PartDescriptor

	// URL is the presigned upload URL for this part
	URL string `json:"url"`

	// Headers are extra headers the presigned URL was signed with
	Headers map[string]string `json:"headers,omitempty"`
}

// HashedPart is the base64 digest of one part.
type HashedPart struct {
	PartNumber int32
	Hash       string
}

// HashedFile holds the per-part digests of a file and its composite hash.
type HashedFile struct {
	// ID is the file identifier the parts belong to
	ID string

	// Parts are ordered by ascending part number
	Parts []HashedPart

	// Hash is base64(SHA-256(raw part digests concatenated in part order))
	Hash string
}

// UploadedPart records a part the object store accepted.
type UploadedPart struct {
	PartNumber int32  `json:"part_number"`
	Hash       string `json:"hash"`
	Size       int64  `json:"size"`

	// ETag is the entity tag returned by the store, without surrounding quotes
	ETag string `json:"etag"`
}

// Metadata is opaque key/value data forwarded to the control plane.
type Metadata map[string]string

// Source is a readable file of known size.
// Reader is shared read-only by the hasher and every part transfer.
type Source struct {
	// Name is used for logging only
	Name string

	// Size is the total file size in bytes
	Size int64

	// ContentType is sent with every part; DefaultContentType when empty
	ContentType string

	// Reader provides random access to the file contents
	Reader io.ReaderAt
}

// StartUploadInput is the request sent to the control plane to begin an upload.
type StartUploadInput struct {
	ID          string
	MaxPartSize int64
	FileSize    int64
	ContentType string
	Metadata    Metadata
}

// StartUploadOutput names the backend upload and the parts to transfer.
type StartUploadOutput struct {
	UploadID string
	Parts    []PresignedPart
}

// CompleteUploadInput finalizes an upload with every uploaded part.
type CompleteUploadInput struct {
	ID       string
	UploadID string

	// Parts are ordered by ascending part number
	Parts []UploadedPart

	// Checksum is the locally computed composite hash
	Checksum string

	Metadata Metadata
}

// ControlPlane is the collaborator that begins and finalizes multipart uploads.
type ControlPlane interface {
	StartUpload(ctx context.Context, in *StartUploadInput) (*StartUploadOutput, error)
	CompleteUpload(ctx context.Context, in *CompleteUploadInput) error
}

// Aborter is implemented by control planes that can discard an incomplete upload.
type Aborter interface {
	AbortUpload(ctx context.Context, id, uploadID string) error
}

// ControlPlaneFuncs adapts a pair of functions to the ControlPlane interface.
type ControlPlaneFuncs struct {
	Start    func(ctx context.Context, in *StartUploadInput) (*StartUploadOutput, error)
	Complete func(ctx context.Context, in *CompleteUploadInput) error
}

// StartUpload calls f.Start.
func (f ControlPlaneFuncs) StartUpload(ctx context.Context, in *StartUploadInput) (*StartUploadOutput, error) {
	return f.Start(ctx, in)
}

// CompleteUpload calls f.Complete.
func (f ControlPlaneFuncs) CompleteUpload(ctx context.Context, in *CompleteUploadInput) error {
	return f.Complete(ctx, in)
}

// UploadResult describes a finished upload.
type UploadResult struct {
	ID       string
	UploadID string

	// Hash is the composite hash sent to the control plane
	Hash string

	Size     int64
	Parts    []UploadedPart
	Duration time.Duration
}

// ProgressListener receives the aggregate progress of an upload in [0, 100].
// Values for a given id never decrease.
type ProgressListener func(id string, progress float64)

// BackoffFunc returns the delay before retry number attempt (starting at 1).
type BackoffFunc func(attempt int) time.Duration

// RetryPolicy controls how part transfers are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries per part, including the first
	MaxAttempts int

	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64

	// Backoff overrides the exponential schedule when set
	Backoff BackoffFunc
}

// Config holds the configuration for an Uploader.
type Config struct {
	// Algorithm is the per-part digest algorithm
	Algorithm digest.Algorithm

	// MaxPartSize is forwarded to the control plane
	MaxPartSize int64

	// Concurrency bounds the number of parts in flight
	Concurrency int

	// Retry controls part transfer retries
	Retry RetryPolicy

	// HTTPClient performs the part PUTs
	HTTPClient *http.Client

	// Logger receives structured upload events
	Logger *slog.Logger

	// Filesystem resolves paths given to UploadFile
	Filesystem billy.Filesystem
}

// Option is a functional option for configuring an Uploader.
type Option func(*Config)
