// Package hasher computes per-part digests and the composite digest of a file.
//
// Each part is streamed through the configured digest algorithm and
// base64-encoded. The composite hash is the base64 SHA-256 of the raw part
// digests concatenated in ascending part order, which is what S3 reports as
// the checksum of a multipart object.
package hasher

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"slices"

	"github.com/opencontainers/go-digest"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

// FileParts is the input to HashParts.
type FileParts struct {
	// ID identifies the file in errors
	ID string

	// Parts may be in any order; they are sorted before hashing
	Parts []uploadtypes.PartDescriptor

	// File is read at each part's offsets
	File io.ReaderAt
}

// Supported reports whether alg can be used for part digests.
// Only SHA-256 is accepted since it is the only algorithm the checksum headers declare.
func Supported(alg digest.Algorithm) bool {
	return alg == digest.SHA256 && alg.Available()
}

// HashParts reads every part of fp.File once, in ascending part number order,
// and returns the per-part digests together with the composite hash.
// It holds at most one copy buffer and digestSize bytes per part in memory.
func HashParts(alg digest.Algorithm, fp FileParts) (*uploadtypes.HashedFile, error) {
	const op = "hashParts"

	if !Supported(alg) {
		return nil, errors.NewError(op, errors.ErrUnsupportedAlgorithm).
			WithID(fp.ID).
			WithMessage(fmt.Sprintf("algorithm %q", alg))
	}
	if fp.File == nil {
		return nil, errors.NewError(op, errors.ErrInvalidInput).WithID(fp.ID).WithMessage("no file")
	}

	parts := slices.Clone(fp.Parts)
	slices.SortFunc(parts, func(a, b uploadtypes.PartDescriptor) int {
		return int(a.PartNumber) - int(b.PartNumber)
	})

	hashed := make([]uploadtypes.HashedPart, 0, len(parts))
	acc := make([]byte, 0, alg.Size()*len(parts))

	for _, p := range parts {
		raw, err := hashPart(alg, fp.File, p)
		if err != nil {
			return nil, errors.NewError(op, err).WithID(fp.ID).WithPart(p.PartNumber)
		}
		hashed = append(hashed, uploadtypes.HashedPart{
			PartNumber: p.PartNumber,
			Hash:       base64.StdEncoding.EncodeToString(raw),
		})
		acc = append(acc, raw...)
	}

	sum := sha256.Sum256(acc)
	return &uploadtypes.HashedFile{
		ID:    fp.ID,
		Parts: hashed,
		Hash:  base64.StdEncoding.EncodeToString(sum[:]),
	}, nil
}

// hashPart streams [p.Start, p.End) through alg and returns the raw digest.
func hashPart(alg digest.Algorithm, r io.ReaderAt, p uploadtypes.PartDescriptor) ([]byte, error) {
	if p.Start < 0 || p.Start >= p.End {
		return nil, fmt.Errorf("%w: [%d, %d)", errors.ErrInvalidRange, p.Start, p.End)
	}

	buf := pool.Get(p.Size())
	defer pool.Put(buf)

	h := alg.Hash()
	n, err := io.CopyBuffer(h, io.NewSectionReader(r, p.Start, p.Size()), *buf)
	if err != nil {
		return nil, fmt.Errorf("%w: read [%d, %d): %w", errors.ErrInvalidRange, p.Start, p.End, err)
	}
	if n != p.Size() {
		return nil, fmt.Errorf("%w: read %d of %d bytes at offset %d: %w",
			errors.ErrInvalidRange, n, p.Size(), p.Start, io.ErrUnexpectedEOF)
	}
	return h.Sum(nil), nil
}

// PartDigest returns the base64 digest of a single byte slice. It exists for
// callers that already hold a part in memory, such as tests and fixtures.
func PartDigest(alg digest.Algorithm, b []byte) string {
	h := alg.Hash()
	h.Write(b)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
