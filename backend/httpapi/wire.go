package httpapi

import "github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"

// StartRequest is the body of POST /v1/uploads.
type StartRequest struct {
	ID          string               `json:"id"`
	FileSize    int64                `json:"file_size"`
	MaxPartSize int64                `json:"max_part_size"`
	ContentType string               `json:"content_type,omitempty"`
	Metadata    uploadtypes.Metadata `json:"metadata,omitempty"`
}

// StartResponse is returned by POST /v1/uploads.
type StartResponse struct {
	UploadID string                      `json:"upload_id"`
	Parts    []uploadtypes.PresignedPart `json:"parts"`
}

// CompleteRequest is the body of POST /v1/uploads/{upload_id}/complete.
type CompleteRequest struct {
	ID       string                     `json:"id"`
	Checksum string                     `json:"checksum"`
	Parts    []uploadtypes.UploadedPart `json:"parts"`
	Metadata uploadtypes.Metadata       `json:"metadata,omitempty"`
}

// ErrorResponse is the body of a non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
