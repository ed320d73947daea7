package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

// MaxParts is the largest part number an S3 multipart upload accepts.
const MaxParts = 10000

// SortParts orders presigned parts by ascending part number in place.
func SortParts(parts []uploadtypes.PresignedPart) {
	slices.SortFunc(parts, func(a, b uploadtypes.PresignedPart) int {
		return int(a.PartNumber) - int(b.PartNumber)
	})
}

// ValidateParts checks a part set returned by a control plane against the file
// it describes. The parts must already be sorted by part number. They must have
// unique numbers in [1, MaxParts], non-empty ranges and cover [0, fileSize)
// contiguously without overlap.
func ValidateParts(parts []uploadtypes.PresignedPart, fileSize int64) error {
	const op = "validateParts"

	if len(parts) == 0 {
		return errors.NewError(op, errors.ErrInvalidRange).WithMessage("no parts to upload")
	}

	var next int64
	for i, p := range parts {
		if p.PartNumber < 1 || p.PartNumber > MaxParts {
			return errors.NewError(op, errors.ErrInvalidRange).
				WithPart(p.PartNumber).
				WithMessage(fmt.Sprintf("part number must be between 1 and %d", MaxParts))
		}
		if i > 0 && parts[i-1].PartNumber == p.PartNumber {
			return errors.NewError(op, errors.ErrDuplicatePart).WithPart(p.PartNumber)
		}
		if p.Start >= p.End {
			return errors.NewError(op, errors.ErrInvalidRange).
				WithPart(p.PartNumber).
				WithMessage(fmt.Sprintf("empty range [%d, %d)", p.Start, p.End))
		}
		if p.Start != next {
			return errors.NewError(op, errors.ErrInvalidRange).
				WithPart(p.PartNumber).
				WithMessage(fmt.Sprintf("part starts at %d, expected %d", p.Start, next))
		}
		if p.URL == "" {
			return errors.NewError(op, errors.ErrInvalidInput).
				WithPart(p.PartNumber).
				WithMessage("part has no upload url")
		}
		next = p.End
	}

	if next != fileSize {
		return errors.NewError(op, errors.ErrInvalidRange).
			WithMessage(fmt.Sprintf("parts cover %d of %d bytes", next, fileSize))
	}
	return nil
}

// VerifyComposite compares the "<base64>-<parts>" checksum an object store
// reports for a multipart object with the locally computed composite. Either
// side being empty skips the check.
func VerifyComposite(remote, local string, parts int) error {
	if remote == "" || local == "" {
		return nil
	}

	value, count, found := strings.Cut(remote, "-")
	if value != local {
		return fmt.Errorf("%w: store reported %s, computed %s", errors.ErrChecksumMismatch, value, local)
	}
	if found && count != fmt.Sprint(parts) {
		return fmt.Errorf("%w: store reported %s parts, sent %d", errors.ErrChecksumMismatch, count, parts)
	}
	return nil
}
