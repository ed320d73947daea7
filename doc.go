// Package s3upload uploads large files to S3-compatible object stores with
// the multipart protocol and presigned part URLs.
//
// A control plane (see the backend packages) starts the upload and hands back
// one presigned URL per part. The Uploader hashes every part, PUTs the parts
// concurrently with their SHA-256 checksums so the store verifies each one,
// and asks the control plane to complete the upload once every part has been
// accepted. The composite checksum sent on completion is the base64 SHA-256 of
// the concatenated raw part digests, matching what S3 reports for multipart
// objects.
//
// Key features:
//   - Pluggable control planes: AWS S3, MinIO or an HTTP upload service
//   - Per-part checksum verification by the object store
//   - Bounded concurrency and per-part retries with exponential backoff
//   - A single non-decreasing progress value per upload
//   - Errors that carry the backend upload id so callers can abort
//
// Example usage:
//
//	backend, err := awss3.New(ctx, "my-bucket")
//	if err != nil {
//	    return err
//	}
//
//	u, err := s3upload.New(backend, s3upload.WithConcurrency(8))
//	if err != nil {
//	    return err
//	}
//	u.SetProgressListener(func(id string, p float64) {
//	    fmt.Printf("%s: %.0f%%\n", id, p)
//	})
//
//	res, err := u.UploadFile(ctx, "builds/app.tar.gz", "/tmp/app.tar.gz", nil)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Hash)
package s3upload
