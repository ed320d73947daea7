// Package transport PUTs file sections to presigned URLs.
//
// Each request streams its section directly from an io.ReaderAt, reports the
// bytes handed to the connection, and is retried with exponential backoff
// when the failure is transient. A 2xx response must carry an ETag.
package transport
