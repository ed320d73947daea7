package minio

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

type fakeCore struct {
	baseURL string

	newErr      error
	presignErr  error
	completeErr error
	abortErr    error
	checksum    func(parts []minio.CompletePart) string

	newOpts    minio.PutObjectOptions
	presigned  []url.Values
	expiry     time.Duration
	completed  []minio.CompletePart
	abortedIDs []string
}

func (f *fakeCore) NewMultipartUpload(_ context.Context, _, _ string, opts minio.PutObjectOptions) (string, error) {
	f.newOpts = opts
	if f.newErr != nil {
		return "", f.newErr
	}
	return "test-upload-id", nil
}

func (f *fakeCore) PresignHeader(
	_ context.Context,
	method, _, object string,
	expires time.Duration,
	params url.Values,
	_ http.Header,
) (*url.URL, error) {
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	if method != http.MethodPut {
		return nil, fmt.Errorf("unexpected method %s", method)
	}
	f.presigned = append(f.presigned, params)
	f.expiry = expires

	base := f.baseURL
	if base == "" {
		base = "http://minio.local:9000/bucket"
	}
	return url.Parse(fmt.Sprintf("%s/%s?%s", base, object, params.Encode()))
}

func (f *fakeCore) CompleteMultipartUpload(
	_ context.Context,
	bucket, object, _ string,
	parts []minio.CompletePart,
	_ minio.PutObjectOptions,
) (minio.UploadInfo, error) {
	f.completed = parts
	if f.completeErr != nil {
		return minio.UploadInfo{}, f.completeErr
	}
	info := minio.UploadInfo{Bucket: bucket, Key: object, ETag: "etag-2"}
	if f.checksum != nil {
		info.ChecksumSHA256 = f.checksum(parts)
	}
	return info, nil
}

func (f *fakeCore) AbortMultipartUpload(_ context.Context, _, _, uploadID string) error {
	f.abortedIDs = append(f.abortedIDs, uploadID)
	return f.abortErr
}

func newBackend(t *testing.T, core *fakeCore, opts ...Option) *Backend {
	t.Helper()
	b, err := NewWithCore(core, "test-bucket", opts...)
	require.NoError(t, err)
	return b
}

func TestNewWithCore(t *testing.T) {
	_, err := NewWithCore(&fakeCore{}, "Bad_Bucket")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = NewWithCore(nil, "test-bucket")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	b, err := NewWithCore(&fakeCore{}, "test-bucket", WithPrefix("builds"))
	require.NoError(t, err)
	assert.Equal(t, "test-bucket", b.Bucket())
	assert.Equal(t, "builds/a.bin", b.Object("a.bin"))
}

func TestNew(t *testing.T) {
	b, err := New("localhost:9000", "test-bucket", WithCredentials("minioadmin", "minioadmin"), WithRegion("us-east-1"))
	require.NoError(t, err)
	assert.Equal(t, "test-bucket", b.Bucket())
}

func TestBackend_StartUpload(t *testing.T) {
	core := &fakeCore{}
	b := newBackend(t, core, WithMinPartSize(100), WithPresignExpiry(time.Hour))

	out, err := b.StartUpload(context.Background(), &uploadtypes.StartUploadInput{
		ID:          "app.bin",
		MaxPartSize: 100,
		FileSize:    250,
		ContentType: "application/octet-stream",
		Metadata:    map[string]string{"commit": "abc"},
	})
	require.NoError(t, err)

	assert.Equal(t, "test-upload-id", out.UploadID)
	require.Len(t, out.Parts, 3)
	assert.Equal(t, uploadtypes.PartDescriptor{PartNumber: 3, Start: 200, End: 250}, out.Parts[2].PartDescriptor)
	for i, p := range out.Parts {
		assert.Equal(t, fmt.Sprint(i+1), core.presigned[i].Get("partNumber"))
		assert.Equal(t, "test-upload-id", core.presigned[i].Get("uploadId"))
		assert.Contains(t, p.URL, "uploadId=test-upload-id")
	}
	assert.Equal(t, time.Hour, core.expiry)

	assert.Equal(t, "application/octet-stream", core.newOpts.ContentType)
	assert.Equal(t, "abc", core.newOpts.UserMetadata["commit"])
	assert.Equal(t, "SHA256", core.newOpts.UserMetadata["x-amz-checksum-algorithm"])
}

func TestBackend_StartUpload_Errors(t *testing.T) {
	tests := []struct {
		name      string
		in        *uploadtypes.StartUploadInput
		core      *fakeCore
		wantErr   error
		wantAbort bool
	}{
		{
			name:    "invalid_id",
			in:      &uploadtypes.StartUploadInput{ID: "", FileSize: 10, MaxPartSize: 10},
			core:    &fakeCore{},
			wantErr: errors.ErrInvalidInput,
		},
		{
			name:    "no_such_bucket",
			in:      &uploadtypes.StartUploadInput{ID: "f", FileSize: 10, MaxPartSize: 10},
			core:    &fakeCore{newErr: minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: 404}},
			wantErr: errors.ErrBucketNotFound,
		},
		{
			name:      "presign_failure_aborts",
			in:        &uploadtypes.StartUploadInput{ID: "f", FileSize: 10, MaxPartSize: 10},
			core:      &fakeCore{presignErr: fmt.Errorf("bad credentials")},
			wantAbort: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t, tt.core)

			out, err := b.StartUpload(context.Background(), tt.in)
			require.Error(t, err)
			assert.Nil(t, out)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantAbort {
				assert.Equal(t, []string{"test-upload-id"}, tt.core.abortedIDs)
				assert.Equal(t, "test-upload-id", errors.UploadIDOf(err))
			} else {
				assert.Empty(t, tt.core.abortedIDs)
			}
		})
	}
}

func TestBackend_CompleteUpload(t *testing.T) {
	core := &fakeCore{}
	b := newBackend(t, core)

	err := b.CompleteUpload(context.Background(), &uploadtypes.CompleteUploadInput{
		ID:       "f",
		UploadID: "test-upload-id",
		Parts: []uploadtypes.UploadedPart{
			{PartNumber: 2, ETag: `"e2"`, Hash: "h2"},
			{PartNumber: 1, ETag: `"e1"`, Hash: "h1"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []minio.CompletePart{
		{PartNumber: 1, ETag: "e1", ChecksumSHA256: "h1"},
		{PartNumber: 2, ETag: "e2", ChecksumSHA256: "h2"},
	}, core.completed)
}

func TestBackend_CompleteUpload_Errors(t *testing.T) {
	tests := []struct {
		name    string
		core    *fakeCore
		wantErr error
	}{
		{
			name:    "no_such_upload",
			core:    &fakeCore{completeErr: minio.ErrorResponse{Code: "NoSuchUpload", StatusCode: 404}},
			wantErr: errors.ErrUploadNotFound,
		},
		{
			name:    "invalid_part",
			core:    &fakeCore{completeErr: minio.ErrorResponse{Code: "InvalidPart", StatusCode: 400}},
			wantErr: errors.ErrChecksumMismatch,
		},
		{
			name: "checksum_mismatch",
			core: &fakeCore{checksum: func([]minio.CompletePart) string {
				return "bogus-1"
			}},
			wantErr: errors.ErrChecksumMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t, tt.core)

			err := b.CompleteUpload(context.Background(), &uploadtypes.CompleteUploadInput{
				ID:       "f",
				UploadID: "test-upload-id",
				Checksum: "composite",
				Parts:    []uploadtypes.UploadedPart{{PartNumber: 1, ETag: "e", Hash: "h"}},
			})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, "test-upload-id", errors.UploadIDOf(err))
		})
	}
}

func TestBackend_AbortUpload(t *testing.T) {
	core := &fakeCore{}
	b := newBackend(t, core)
	require.NoError(t, b.AbortUpload(context.Background(), "f", "u1"))
	assert.Equal(t, []string{"u1"}, core.abortedIDs)

	core.abortErr = minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}
	assert.ErrorIs(t, b.AbortUpload(context.Background(), "f", "u2"), errors.ErrAccessDenied)
}

func TestBackend_WithUploader(t *testing.T) {
	ps := testutil.NewPartServer(t)
	data := testutil.PatternData(250)

	core := &fakeCore{
		baseURL: ps.URL,
		checksum: func(parts []minio.CompletePart) string {
			var raw []byte
			for _, p := range parts {
				d, _ := base64.StdEncoding.DecodeString(p.ChecksumSHA256)
				raw = append(raw, d...)
			}
			sum := sha256.Sum256(raw)
			return fmt.Sprintf("%s-%d", base64.StdEncoding.EncodeToString(sum[:]), len(parts))
		},
	}
	b := newBackend(t, core, WithMinPartSize(100))

	u, err := s3upload.New(b, s3upload.WithMaxPartSize(100))
	require.NoError(t, err)

	res, err := u.Upload(context.Background(), "data.bin", &uploadtypes.Source{
		Size:   int64(len(data)),
		Reader: bytes.NewReader(data),
	}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Parts, 3)

	require.Len(t, core.completed, 3)
	received := ps.Parts()
	require.Len(t, received, 3)
	for i, p := range received {
		assert.Equal(t, p.ETag, core.completed[i].ETag)
	}
}
