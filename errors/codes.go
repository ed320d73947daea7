package errors

import (
	"context"
	"errors"
	"net"
)

// ErrorCode classifies an upload failure for callers that report or route errors.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates the bucket or multipart upload does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeConflict indicates the backend state disagrees with the local view (checksum mismatch).
	CodeConflict ErrorCode = "CONFLICT"

	// Permission errors.

	// CodeForbidden indicates the credentials or presigned URLs lack permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// Infrastructure errors.

	// CodeNetwork indicates a network operation failed.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeUnavailable indicates the control plane is temporarily unavailable.
	CodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Execution errors.

	// CodeTransferFailed indicates one or more parts could not be transferred.
	CodeTransferFailed ErrorCode = "TRANSFER_FAILED"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Code maps err onto an ErrorCode by inspecting its chain.
// A nil error has no code and returns the empty string.
func Code(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var netErr net.Error
	switch {
	case errors.Is(err, ErrUnsupportedAlgorithm):
		return CodeInvalidConfig
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidRange),
		errors.Is(err, ErrDuplicatePart),
		errors.Is(err, ErrTooManyParts):
		return CodeInvalidInput
	case errors.Is(err, ErrUploadNotFound), errors.Is(err, ErrBucketNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAccessDenied):
		return CodeForbidden
	case errors.Is(err, ErrChecksumMismatch):
		return CodeConflict
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return CodeTimeout
		}
		return CodeNetwork
	case errors.Is(err, ErrTransferFailed), errors.Is(err, ErrMissingETag):
		return CodeTransferFailed
	case errors.Is(err, ErrControlPlane):
		return CodeUnavailable
	}
	return CodeUnknown
}

// IsRetryable reports whether retrying the whole upload may succeed.
// Validation, configuration and permission failures never are.
func IsRetryable(err error) bool {
	switch Code(err) {
	case CodeNetwork, CodeTimeout, CodeUnavailable, CodeTransferFailed:
		return true
	}
	return false
}
