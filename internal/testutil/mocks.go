// Package testutil provides test utilities and mocks for upload operations.
// This package is internal and should only be used for testing within the module.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

// MockS3Client is a mock implementation of the S3API interface for testing.
// It allows customization of each S3 operation through function fields.
type MockS3Client struct {
	CreateMultipartUploadFunc   func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	CompleteMultipartUploadFunc func(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUploadFunc    func(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

var _ s3api.S3API = (*MockS3Client)(nil)

// CreateMultipartUpload mocks the S3 CreateMultipartUpload operation.
func (m *MockS3Client) CreateMultipartUpload(
	ctx context.Context,
	params *s3.CreateMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	if m.CreateMultipartUploadFunc != nil {
		return m.CreateMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.CreateMultipartUploadOutput{UploadId: StringPtr("test-upload-id")}, nil
}

// CompleteMultipartUpload mocks the S3 CompleteMultipartUpload operation.
func (m *MockS3Client) CompleteMultipartUpload(
	ctx context.Context,
	params *s3.CompleteMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	if m.CompleteMultipartUploadFunc != nil {
		return m.CompleteMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.CompleteMultipartUploadOutput{}, nil
}

// AbortMultipartUpload mocks the S3 AbortMultipartUpload operation.
func (m *MockS3Client) AbortMultipartUpload(
	ctx context.Context,
	params *s3.AbortMultipartUploadInput,
	optFns ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	if m.AbortMultipartUploadFunc != nil {
		return m.AbortMultipartUploadFunc(ctx, params, optFns...)
	}
	return &s3.AbortMultipartUploadOutput{}, nil
}

// MockPresigner is a mock implementation of the PresignAPI interface.
// Without a PresignUploadPartFunc it returns BaseURL with the part number and
// upload id as query parameters.
type MockPresigner struct {
	BaseURL               string
	PresignUploadPartFunc func(context.Context, *s3.UploadPartInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var _ s3api.PresignAPI = (*MockPresigner)(nil)

// PresignUploadPart mocks the S3 presign client.
func (m *MockPresigner) PresignUploadPart(
	ctx context.Context,
	params *s3.UploadPartInput,
	optFns ...func(*s3.PresignOptions),
) (*v4.PresignedHTTPRequest, error) {
	if m.PresignUploadPartFunc != nil {
		return m.PresignUploadPartFunc(ctx, params, optFns...)
	}

	base := m.BaseURL
	if base == "" {
		base = "https://bucket.s3.amazonaws.com"
	}
	headers := http.Header{}
	headers.Set("Host", "bucket.s3.amazonaws.com")
	if params.ChecksumSHA256 != nil {
		headers.Set(uploadtypes.HeaderChecksumSHA256, *params.ChecksumSHA256)
	}
	return &v4.PresignedHTTPRequest{
		URL: fmt.Sprintf("%s/%s?partNumber=%d&uploadId=%s",
			base, deref(params.Key), deref32(params.PartNumber), deref(params.UploadId)),
		Method:       http.MethodPut,
		SignedHeader: headers,
	}, nil
}

// MockControlPlane is a function-field implementation of uploadtypes.ControlPlane
// and uploadtypes.Aborter that counts calls.
type MockControlPlane struct {
	StartUploadFunc    func(context.Context, *uploadtypes.StartUploadInput) (*uploadtypes.StartUploadOutput, error)
	CompleteUploadFunc func(context.Context, *uploadtypes.CompleteUploadInput) error
	AbortUploadFunc    func(ctx context.Context, id, uploadID string) error

	StartCalls    atomic.Int32
	CompleteCalls atomic.Int32
	AbortCalls    atomic.Int32

	mu       sync.Mutex
	complete *uploadtypes.CompleteUploadInput
}

var (
	_ uploadtypes.ControlPlane = (*MockControlPlane)(nil)
	_ uploadtypes.Aborter      = (*MockControlPlane)(nil)
)

// StartUpload records the call and delegates to StartUploadFunc.
func (m *MockControlPlane) StartUpload(
	ctx context.Context,
	in *uploadtypes.StartUploadInput,
) (*uploadtypes.StartUploadOutput, error) {
	m.StartCalls.Add(1)
	if m.StartUploadFunc != nil {
		return m.StartUploadFunc(ctx, in)
	}
	return &uploadtypes.StartUploadOutput{UploadID: "test-upload-id"}, nil
}

// CompleteUpload records the call and its input and delegates to CompleteUploadFunc.
func (m *MockControlPlane) CompleteUpload(ctx context.Context, in *uploadtypes.CompleteUploadInput) error {
	m.CompleteCalls.Add(1)
	m.mu.Lock()
	m.complete = in
	m.mu.Unlock()
	if m.CompleteUploadFunc != nil {
		return m.CompleteUploadFunc(ctx, in)
	}
	return nil
}

// AbortUpload records the call and delegates to AbortUploadFunc.
func (m *MockControlPlane) AbortUpload(ctx context.Context, id, uploadID string) error {
	m.AbortCalls.Add(1)
	if m.AbortUploadFunc != nil {
		return m.AbortUploadFunc(ctx, id, uploadID)
	}
	return nil
}

// LastComplete returns the input of the most recent CompleteUpload call.
func (m *MockControlPlane) LastComplete() *uploadtypes.CompleteUploadInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.complete
}

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func deref32(i *int32) int32 {
	if i == nil {
		return 0
	}
	return *i
}
