package validation

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
)

const (
	maxIDLength       = 1024
	maxMetaKeyLength  = 128
	maxMetaValueBytes = 2048
)

var (
	bucketPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
	mimePattern   = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-+.]*\/[a-zA-Z0-9][a-zA-Z0-9\-+.]*(\s*;.*)?$`)
)

// ValidateID validates a file identifier.
// Identifiers double as object keys in the S3 backends, so the same rules apply:
// non-empty, at most 1024 bytes, no control characters and no path traversal.
func ValidateID(id string) error {
	switch {
	case id == "":
		return invalidID(id, "id cannot be empty")
	case len(id) > maxIDLength:
		return invalidID(id, "id cannot exceed 1024 bytes")
	case strings.IndexFunc(id, unicode.IsControl) >= 0:
		return invalidID(id, "id cannot contain control characters")
	case hasPathTraversal(id):
		return invalidID(id, "id cannot contain path traversal sequences")
	}
	return nil
}

func invalidID(id, msg string) error {
	return errors.NewError("validateID", errors.ErrInvalidInput).WithID(id).WithMessage(msg)
}

// hasPathTraversal reports keys that escape their prefix once joined.
func hasPathTraversal(key string) bool {
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return true
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return true
		}
	}
	return strings.HasPrefix(path.Clean(key), "..")
}

// ValidateBucketName checks the DNS-compatible bucket naming rules.
func ValidateBucketName(bucket string) error {
	fail := func(msg string) error {
		return errors.NewError("validateBucketName", errors.ErrInvalidInput).WithMessage(msg)
	}

	if !bucketPattern.MatchString(bucket) {
		return fail("bucket name must be 3-63 lowercase letters, digits, dots or hyphens")
	}
	if strings.Contains(bucket, "..") {
		return fail("bucket name cannot contain adjacent periods")
	}
	if isIPAddress(bucket) {
		return fail("bucket name cannot be formatted as an IP address")
	}
	return nil
}

func isIPAddress(s string) bool {
	octets := strings.Split(s, ".")
	if len(octets) != 4 {
		return false
	}
	for _, o := range octets {
		if o == "" || len(o) > 3 || strings.Trim(o, "0123456789") != "" {
			return false
		}
	}
	return true
}

// ValidateMetadata validates metadata keys and values.
// Keys must be printable ASCII and must not use a reserved prefix.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if err := validateMetadataKey(key); err != nil {
			return err
		}
		if err := validateMetadataValue(value); err != nil {
			return err
		}
	}
	return nil
}

func validateMetadataKey(key string) error {
	fail := func(msg string) error {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).WithMessage(msg)
	}

	if key == "" {
		return fail("metadata key cannot be empty")
	}
	if len(key) > maxMetaKeyLength {
		return fail("metadata key cannot exceed 128 characters")
	}
	lower := strings.ToLower(key)
	for _, prefix := range []string{"aws:", "x-amz-"} {
		if strings.HasPrefix(lower, prefix) {
			return fail(fmt.Sprintf("metadata key cannot start with reserved prefix: %s", prefix))
		}
	}
	for _, r := range key {
		if r <= ' ' || r > '~' {
			return fail("metadata key can only contain printable ASCII characters")
		}
	}
	return nil
}

func validateMetadataValue(value string) error {
	if len(value) > maxMetaValueBytes {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata value cannot exceed 2048 bytes")
	}
	for _, r := range value {
		if !unicode.IsPrint(r) && r != '\t' {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata value can only contain printable characters")
		}
	}
	return nil
}

// SanitizeMetadata returns a copy of metadata with non-printable runes removed
// from keys and control characters other than tab removed from values.
func SanitizeMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}

	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		key := strings.Map(func(r rune) rune {
			if unicode.IsPrint(r) {
				return r
			}
			return -1
		}, k)
		out[key] = strings.Map(func(r rune) rune {
			if unicode.IsControl(r) && r != '\t' {
				return -1
			}
			return r
		}, v)
	}
	return out
}

// ValidateContentType accepts an empty value or a syntactically valid MIME type.
func ValidateContentType(contentType string) error {
	if contentType == "" || mimePattern.MatchString(contentType) {
		return nil
	}
	return errors.NewError("validateContentType", errors.ErrInvalidInput).
		WithMessage("content type must be a valid MIME type")
}
