// Package awss3 is a control plane for uploads straight to Amazon S3 (or any
// S3 API such as LocalStack) with the AWS SDK.
//
// StartUpload creates the multipart upload with the SHA-256 checksum
// algorithm, plans the part boundaries and presigns one UploadPart URL per
// part. CompleteUpload lists the parts with their checksums and verifies the
// composite checksum S3 reports against the one computed locally.
package awss3
