package s3upload

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

func TestOptions(t *testing.T) {
	client := &http.Client{Timeout: time.Minute}
	logger := slog.New(slog.DiscardHandler)
	fs := memfs.New()
	backoff := func(int) time.Duration { return time.Second }

	u, err := New(&testutil.MockControlPlane{},
		WithAlgorithm(digest.SHA256),
		WithMaxPartSize(8<<20),
		WithConcurrency(3),
		WithMaxAttempts(7),
		WithBackoff(time.Second, time.Minute, 3),
		WithBackoffFunc(backoff),
		WithHTTPClient(client),
		WithLogger(logger),
		WithFilesystem(fs),
	)
	require.NoError(t, err)

	cfg := u.Config()
	assert.Equal(t, digest.SHA256, cfg.Algorithm)
	assert.Equal(t, int64(8<<20), cfg.MaxPartSize)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.InitialInterval)
	assert.Equal(t, time.Minute, cfg.Retry.MaxInterval)
	assert.Equal(t, 3.0, cfg.Retry.Multiplier)
	assert.NotNil(t, cfg.Retry.Backoff)
	assert.Same(t, client, cfg.HTTPClient)
	assert.Same(t, logger, cfg.Logger)
	assert.Equal(t, fs, cfg.Filesystem)
}

func TestOptions_Defaults(t *testing.T) {
	u, err := New(&testutil.MockControlPlane{})
	require.NoError(t, err)

	cfg := u.Config()
	assert.Equal(t, uploadtypes.DefaultAlgorithm, cfg.Algorithm)
	assert.Equal(t, uploadtypes.DefaultMaxPartSize, cfg.MaxPartSize)
	assert.Equal(t, uploadtypes.DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, uploadtypes.DefaultMaxAttempts, cfg.Retry.MaxAttempts)
	assert.Equal(t, uploadtypes.DefaultInitialInterval, cfg.Retry.InitialInterval)
	assert.NotNil(t, cfg.HTTPClient)
	assert.NotNil(t, cfg.Logger)
	assert.NotNil(t, cfg.Filesystem)
}

func TestWithRetryPolicy(t *testing.T) {
	u, err := New(&testutil.MockControlPlane{}, WithRetryPolicy(uploadtypes.RetryPolicy{MaxAttempts: 1}))
	require.NoError(t, err)
	assert.Equal(t, 1, u.Config().Retry.MaxAttempts)
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		path string
		want string
	}{
		{"png_signature", []byte("\x89PNG\r\n\x1a\n0000"), "noext", "image/png"},
		{"gzip_signature", []byte{0x1f, 0x8b, 0x08, 0, 0, 0, 0, 0}, "archive", "application/gzip"},
		{"extension_fallback", []byte{0, 1, 2, 3}, "data.json", "application/json"},
		{"unknown", []byte{0, 1, 2, 3}, "blob", uploadtypes.DefaultContentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectContentType(bytesReaderAt(tt.data), tt.path))
		})
	}
}

type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, nil
	}
	return copy(p, b[off:]), nil
}
