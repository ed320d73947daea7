package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		errMsg string
	}{
		{"simple", "archive.tar.gz", ""},
		{"nested", "builds/2024/archive.tar.gz", ""},
		{"unicode", "файл.bin", ""},
		{"spaces", "my file.bin", ""},
		{"dots_in_name", "a..b", ""},
		{"empty", "", "id cannot be empty"},
		{"too_long", strings.Repeat("a", 1025), "id cannot exceed 1024 bytes"},
		{"control", "file\x00.bin", "id cannot contain control characters"},
		{"newline", "file\n.bin", "id cannot contain control characters"},
		{"parent", "../secret", "path traversal"},
		{"nested_parent", "a/../../secret", "path traversal"},
		{"absolute", "/etc/passwd", "path traversal"},
		{"backslash", "C:\\Windows\\system", "path traversal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsInvalidInput(err))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateBucketName(t *testing.T) {
	tests := []struct {
		name    string
		bucket  string
		wantErr bool
	}{
		{"simple", "my-bucket", false},
		{"dots", "my.bucket.name", false},
		{"digits_first", "1bucket", false},
		{"too_short", "ab", true},
		{"too_long", strings.Repeat("a", 64), true},
		{"uppercase", "MyBucket", true},
		{"underscore", "my_bucket", true},
		{"trailing_hyphen", "bucket-", true},
		{"adjacent_dots", "my..bucket", true},
		{"ip", "192.168.1.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBucketName(tt.bucket)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMetadata(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]string
		errMsg   string
	}{
		{"nil", nil, ""},
		{"valid", map[string]string{"build": "42", "commit": "abc123"}, ""},
		{"tab_value", map[string]string{"note": "a\tb"}, ""},
		{"empty_key", map[string]string{"": "v"}, "metadata key cannot be empty"},
		{"long_key", map[string]string{strings.Repeat("k", 129): "v"}, "cannot exceed 128"},
		{"aws_prefix", map[string]string{"aws:owner": "v"}, "reserved prefix"},
		{"amz_prefix", map[string]string{"X-Amz-Meta-Foo": "v"}, "reserved prefix"},
		{"space_in_key", map[string]string{"my key": "v"}, "printable ASCII"},
		{"long_value", map[string]string{"k": strings.Repeat("v", 2049)}, "cannot exceed 2048"},
		{"control_value", map[string]string{"k": "a\x01b"}, "printable characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMetadata(tt.metadata)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSanitizeMetadata(t *testing.T) {
	assert.Nil(t, SanitizeMetadata(nil))

	got := SanitizeMetadata(map[string]string{
		"Key\x01Name": "value\x00with\nnewline\tand tab",
		"plain":       "value",
	})
	assert.Equal(t, map[string]string{
		"KeyName": "valuewithnewline\tand tab",
		"plain":   "value",
	}, got)
}

func TestValidateContentType(t *testing.T) {
	assert.NoError(t, ValidateContentType(""))
	assert.NoError(t, ValidateContentType("application/octet-stream"))
	assert.NoError(t, ValidateContentType("text/plain; charset=utf-8"))
	assert.NoError(t, ValidateContentType("application/vnd.oci.image.layer.v1.tar+gzip"))
	assert.Error(t, ValidateContentType("not a mime"))
	assert.Error(t, ValidateContentType("a/b/c"))
}

func presigned(n int32, start, end int64) uploadtypes.PresignedPart {
	return uploadtypes.PresignedPart{
		PartDescriptor: uploadtypes.PartDescriptor{PartNumber: n, Start: start, End: end},
		URL:            "https://bucket.example.com/key?partNumber=1",
	}
}

func TestValidateParts(t *testing.T) {
	tests := []struct {
		name     string
		parts    []uploadtypes.PresignedPart
		fileSize int64
		wantErr  error
	}{
		{
			name:     "three_contiguous",
			parts:    []uploadtypes.PresignedPart{presigned(1, 0, 100), presigned(2, 100, 200), presigned(3, 200, 250)},
			fileSize: 250,
		},
		{
			name:     "single",
			parts:    []uploadtypes.PresignedPart{presigned(1, 0, 10)},
			fileSize: 10,
		},
		{
			name:     "non_contiguous_numbers",
			parts:    []uploadtypes.PresignedPart{presigned(2, 0, 5), presigned(7, 5, 10)},
			fileSize: 10,
		},
		{
			name:     "empty",
			fileSize: 10,
			wantErr:  errors.ErrInvalidRange,
		},
		{
			name:     "duplicate",
			parts:    []uploadtypes.PresignedPart{presigned(1, 0, 5), presigned(1, 5, 10)},
			fileSize: 10,
			wantErr:  errors.ErrDuplicatePart,
		},
		{
			name:     "zero_number",
			parts:    []uploadtypes.PresignedPart{presigned(0, 0, 10)},
			fileSize: 10,
			wantErr:  errors.ErrInvalidRange,
		},
		{
			name:     "empty_range",
			parts:    []uploadtypes.PresignedPart{presigned(1, 0, 0)},
			fileSize: 10,
			wantErr:  errors.ErrInvalidRange,
		},
		{
			name:     "gap",
			parts:    []uploadtypes.PresignedPart{presigned(1, 0, 5), presigned(2, 6, 10)},
			fileSize: 10,
			wantErr:  errors.ErrInvalidRange,
		},
		{
			name:     "overlap",
			parts:    []uploadtypes.PresignedPart{presigned(1, 0, 6), presigned(2, 5, 10)},
			fileSize: 10,
			wantErr:  errors.ErrInvalidRange,
		},
		{
			name:     "short_coverage",
			parts:    []uploadtypes.PresignedPart{presigned(1, 0, 5)},
			fileSize: 10,
			wantErr:  errors.ErrInvalidRange,
		},
		{
			name:     "beyond_file",
			parts:    []uploadtypes.PresignedPart{presigned(1, 0, 20)},
			fileSize: 10,
			wantErr:  errors.ErrInvalidRange,
		},
		{
			name: "missing_url",
			parts: []uploadtypes.PresignedPart{{
				PartDescriptor: uploadtypes.PartDescriptor{PartNumber: 1, Start: 0, End: 10},
			}},
			fileSize: 10,
			wantErr:  errors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParts(tt.parts, tt.fileSize)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSortParts(t *testing.T) {
	parts := []uploadtypes.PresignedPart{presigned(3, 200, 250), presigned(1, 0, 100), presigned(2, 100, 200)}
	SortParts(parts)

	for i, p := range parts {
		assert.Equal(t, int32(i+1), p.PartNumber)
	}
}

func TestVerifyComposite(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		local   string
		parts   int
		wantErr bool
	}{
		{"remote_empty", "", "abc", 1, false},
		{"local_empty", "abc-1", "", 1, false},
		{"with_count", "abc-2", "abc", 2, false},
		{"without_count", "abc", "abc", 2, false},
		{"value_mismatch", "abd-2", "abc", 2, true},
		{"count_mismatch", "abc-3", "abc", 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyComposite(tt.remote, tt.local, tt.parts)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrChecksumMismatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
