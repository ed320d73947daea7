// Package minio implements an upload control plane on top of a MinIO (or any
// S3 compatible) server using minio-go's low level Core API.
//
// Like the awss3 backend it plans part boundaries, presigns one PUT URL per
// part and verifies the composite SHA-256 checksum reported on completion.
package minio
