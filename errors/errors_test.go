package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "op_only",
			err:  NewError("upload", ErrInvalidInput),
			want: "s3upload.upload: s3upload: invalid input",
		},
		{
			name: "with_id",
			err:  NewError("startUpload", ErrControlPlane).WithID("file.bin"),
			want: "s3upload.startUpload file.bin: s3upload: control plane error",
		},
		{
			name: "with_everything",
			err:  NewError("uploadPart", ErrTransferFailed).WithID("f").WithUploadID("u-1").WithPart(3),
			want: "s3upload.uploadPart f (upload u-1) part 3: s3upload: part transfer failed",
		},
		{
			name: "with_message",
			err:  NewError("validateID", ErrInvalidInput).WithMessage("id cannot be empty"),
			want: "s3upload.validateID: id cannot be empty: s3upload: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewError("uploadPart", fmt.Errorf("%w: %w", ErrTransferFailed, cause)).WithMessage("retry budget spent")

	assert.True(t, errors.Is(err, ErrTransferFailed))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsTransferFailed(err))
	assert.False(t, IsControlPlane(err))
}

func TestUploadIDOf(t *testing.T) {
	assert.Equal(t, "", UploadIDOf(nil))
	assert.Equal(t, "", UploadIDOf(ErrInvalidInput))
	assert.Equal(t, "u-9", UploadIDOf(NewError("completeUpload", ErrControlPlane).WithUploadID("u-9")))
	assert.Equal(t, "u-9", UploadIDOf(fmt.Errorf("wrapped: %w", NewError("x", ErrControlPlane).WithUploadID("u-9"))))
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsInvalidInput(NewError("x", ErrInvalidInput)))
	assert.True(t, IsUnsupportedAlgorithm(NewError("new", ErrUnsupportedAlgorithm)))
	assert.True(t, IsControlPlane(NewError("startUpload", ErrControlPlane)))
	assert.True(t, Is(NewError("x", ErrChecksumMismatch), ErrChecksumMismatch))

	var e *Error
	assert.True(t, As(fmt.Errorf("w: %w", NewError("x", ErrAccessDenied)), &e))
	assert.Equal(t, "x", e.Op)
}

type timeoutErr struct{ timeout bool }

func (e timeoutErr) Error() string   { return "net" }
func (e timeoutErr) Timeout() bool   { return e.timeout }
func (e timeoutErr) Temporary() bool { return false }

var _ net.Error = timeoutErr{}

func TestCode(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      ErrorCode
		retryable bool
	}{
		{"nil", nil, "", false},
		{"algorithm", NewError("new", ErrUnsupportedAlgorithm), CodeInvalidConfig, false},
		{"input", NewError("upload", ErrInvalidInput), CodeInvalidInput, false},
		{"range", ErrInvalidRange, CodeInvalidInput, false},
		{"duplicate", ErrDuplicatePart, CodeInvalidInput, false},
		{"not_found", ErrUploadNotFound, CodeNotFound, false},
		{"bucket", ErrBucketNotFound, CodeNotFound, false},
		{"denied", ErrAccessDenied, CodeForbidden, false},
		{"checksum", ErrChecksumMismatch, CodeConflict, false},
		{"deadline", fmt.Errorf("%w: %w", ErrTransferFailed, context.DeadlineExceeded), CodeTimeout, true},
		{"net_timeout", timeoutErr{timeout: true}, CodeTimeout, true},
		{"net", timeoutErr{}, CodeNetwork, true},
		{"transfer", NewError("uploadPart", ErrTransferFailed), CodeTransferFailed, true},
		{"etag", ErrMissingETag, CodeTransferFailed, true},
		{"control_plane", NewError("startUpload", ErrControlPlane), CodeUnavailable, true},
		{"unknown", fmt.Errorf("whatever"), CodeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}
