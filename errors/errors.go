// Package errors provides error types and handling for multipart upload operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents an upload error with context about the operation that failed.
// It wraps the underlying collaborator, hashing or transport error with the
// identifiers needed to correlate it with the backend's view of the upload.
type Error struct {
	// Op is the operation that failed (e.g., "startUpload", "hashParts", "uploadPart")
	Op string

	// ID is the caller's file identifier (if applicable)
	ID string

	// UploadID is the backend multipart upload id (set once the upload was started)
	UploadID string

	// PartNumber is the part that failed (zero when not part specific)
	PartNumber int32

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	msg := "s3upload." + e.Op
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.UploadID != "" {
		msg += fmt.Sprintf(" (upload %s)", e.UploadID)
	}
	if e.PartNumber > 0 {
		msg += fmt.Sprintf(" part %d", e.PartNumber)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithID adds the file identifier to an existing error.
func (e *Error) WithID(id string) *Error {
	e.ID = id
	return e
}

// WithUploadID adds the backend upload id to an existing error.
func (e *Error) WithUploadID(uploadID string) *Error {
	e.UploadID = uploadID
	return e
}

// WithPart adds the failing part number to an existing error.
func (e *Error) WithPart(partNumber int32) *Error {
	e.PartNumber = partNumber
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// Sentinel errors for common upload failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3upload: invalid input")

	// ErrUnsupportedAlgorithm indicates a digest algorithm other than sha256 was configured
	ErrUnsupportedAlgorithm = errors.New("s3upload: unsupported digest algorithm")

	// ErrInvalidRange indicates a part byte range that is malformed or cannot be read
	ErrInvalidRange = errors.New("s3upload: invalid part range")

	// ErrDuplicatePart indicates two parts share a part number
	ErrDuplicatePart = errors.New("s3upload: duplicate part number")

	// ErrTooManyParts indicates the file would need more parts than the backend allows
	ErrTooManyParts = errors.New("s3upload: too many parts")

	// ErrControlPlane indicates the start or complete collaborator rejected the request
	ErrControlPlane = errors.New("s3upload: control plane error")

	// ErrTransferFailed indicates a part transfer failed after its retries were exhausted
	ErrTransferFailed = errors.New("s3upload: part transfer failed")

	// ErrMissingETag indicates a successful part response carried no ETag header
	ErrMissingETag = errors.New("s3upload: missing etag")

	// ErrChecksumMismatch indicates that checksums don't match
	ErrChecksumMismatch = errors.New("s3upload: checksum mismatch")

	// ErrUploadNotFound indicates the backend no longer knows the multipart upload
	ErrUploadNotFound = errors.New("s3upload: upload not found")

	// ErrBucketNotFound indicates that the target bucket does not exist
	ErrBucketNotFound = errors.New("s3upload: bucket not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("s3upload: access denied")
)

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnsupportedAlgorithm checks if an error is the construction-time algorithm error.
func IsUnsupportedAlgorithm(err error) bool {
	return errors.Is(err, ErrUnsupportedAlgorithm)
}

// IsTransferFailed checks if an error came from a part transfer.
func IsTransferFailed(err error) bool {
	return errors.Is(err, ErrTransferFailed)
}

// IsControlPlane checks if an error came from the start or complete collaborator.
func IsControlPlane(err error) bool {
	return errors.Is(err, ErrControlPlane)
}

// UploadIDOf returns the backend upload id recorded on err, if any.
// Outer code uses it to abort an upload the orchestrator left incomplete.
func UploadIDOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.UploadID
	}
	return ""
}

// Is reports whether any error in err's chain matches target.
// It forwards to the standard library so callers need a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
