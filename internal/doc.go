// Package internal contains private implementation details for the s3upload module.
// These packages are not intended for external use and may change without notice.
//
// The internal packages are organized as follows:
//   - hasher: per-part and composite digests
//   - planner: part boundaries for backends that choose them
//   - progress: monotonic progress tracking for one upload
//   - transport: presigned part PUTs with retry
//   - validation: input and part set validation
//   - pool: read buffer reuse
//   - s3api: narrowed AWS SDK interfaces
package internal
