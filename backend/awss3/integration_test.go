//go:build integration
// +build integration

package awss3_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/backend/awss3"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

func newLocalStackBackend(t *testing.T, bucket string) (*awss3.Backend, *s3.Client) {
	t.Helper()

	ctx := context.Background()
	ls := testutil.StartLocalStack(t)
	require.NoError(t, ls.CreateBucket(ctx, bucket))

	awsCfg, err := ls.AWSConfig(ctx)
	require.NoError(t, err)

	b, err := awss3.New(ctx, bucket,
		awss3.WithAWSConfig(awsCfg),
		awss3.WithEndpoint(ls.Endpoint),
		awss3.WithForcePathStyle(true),
		awss3.WithPrefix("uploads"),
	)
	require.NoError(t, err)

	client, err := ls.Client(ctx)
	require.NoError(t, err)
	return b, client
}

// TestIntegrationMultipartUpload uploads a three part object through presigned
// URLs and reads it back.
func TestIntegrationMultipartUpload(t *testing.T) {
	ctx := context.Background()
	b, client := newLocalStackBackend(t, "s3upload-integration")

	data := testutil.RandomData(42, 11*1024*1024)

	var reported []float64
	u, err := s3upload.New(b, s3upload.WithMaxPartSize(5*1024*1024), s3upload.WithConcurrency(3))
	require.NoError(t, err)
	u.SetProgressListener(func(_ string, p float64) {
		reported = append(reported, p)
	})

	res, err := u.Upload(ctx, "artifacts/data.bin", &uploadtypes.Source{
		Size:        int64(len(data)),
		ContentType: "application/octet-stream",
		Reader:      bytes.NewReader(data),
	}, uploadtypes.Metadata{"build": "42"})
	require.NoError(t, err)
	assert.Len(t, res.Parts, 3)
	require.NotEmpty(t, reported)
	assert.Equal(t, 100.0, reported[len(reported)-1])

	obj, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.Bucket()),
		Key:    aws.String(b.Key("artifacts/data.bin")),
	})
	require.NoError(t, err)
	defer obj.Body.Close()

	got, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, "42", obj.Metadata["build"])
}

// TestIntegrationAbort starts an upload and discards it.
func TestIntegrationAbort(t *testing.T) {
	ctx := context.Background()
	b, client := newLocalStackBackend(t, "s3upload-abort")

	out, err := b.StartUpload(ctx, &uploadtypes.StartUploadInput{
		ID:          "aborted.bin",
		MaxPartSize: 5 * 1024 * 1024,
		FileSize:    1024,
		ContentType: "application/octet-stream",
	})
	require.NoError(t, err)
	require.Len(t, out.Parts, 1)

	require.NoError(t, b.AbortUpload(ctx, "aborted.bin", out.UploadID))

	listed, err := client.ListMultipartUploads(ctx, &s3.ListMultipartUploadsInput{Bucket: aws.String(b.Bucket())})
	require.NoError(t, err)
	assert.Empty(t, listed.Uploads)

	err = b.CompleteUpload(ctx, &uploadtypes.CompleteUploadInput{
		ID:       "aborted.bin",
		UploadID: out.UploadID,
		Parts:    []uploadtypes.UploadedPart{{PartNumber: 1, ETag: "x", Hash: "x"}},
	})
	assert.ErrorIs(t, err, errors.ErrUploadNotFound)
}
