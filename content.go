package s3upload

import (
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

// sniffLen is the number of leading bytes inspected for content detection.
const sniffLen = 512

// DetectContentType sniffs the content type of r, falling back to the
// extension of name and finally to application/octet-stream.
func DetectContentType(r io.ReaderAt, name string) string {
	buf := make([]byte, sniffLen)
	n, _ := r.ReadAt(buf, 0)
	if n > 0 {
		if mt := mimetype.Detect(buf[:n]); mt != nil && mt.String() != uploadtypes.DefaultContentType {
			return mt.String()
		}
	}
	return contentTypeFromExtension(name)
}

func contentTypeFromExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	return uploadtypes.DefaultContentType
}
