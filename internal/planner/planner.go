// Package planner splits a file into contiguous multipart part descriptors.
//
// The orchestrator never decides part boundaries itself; control planes that
// do not receive boundaries from elsewhere use this package to derive them.
package planner

import (
	"fmt"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

const (
	// MinPartSize is the smallest size S3 accepts for every part but the last (5 MiB).
	MinPartSize int64 = 5 * 1024 * 1024

	// MaxPartSize is the largest single part S3 accepts (5 GiB).
	MaxPartSize int64 = 5 * 1024 * 1024 * 1024

	// MaxParts is the largest number of parts in one upload.
	MaxParts = 10000
)

// PartSize returns the part size used for a file of fileSize bytes when at
// most maxPartSize is requested. The size is capped at MaxPartSize and grows
// when the file would otherwise need more than MaxParts parts.
func PartSize(fileSize, maxPartSize int64) (int64, error) {
	if fileSize <= 0 {
		return 0, errors.NewError("plan", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("file size must be positive, got %d", fileSize))
	}
	if maxPartSize <= 0 {
		return 0, errors.NewError("plan", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("max part size must be positive, got %d", maxPartSize))
	}

	size := min(maxPartSize, MaxPartSize)
	if partCount(fileSize, size) > MaxParts {
		size = partCount(fileSize, MaxParts)
	}
	if size > MaxPartSize {
		return 0, errors.NewError("plan", errors.ErrTooManyParts).
			WithMessage(fmt.Sprintf("file of %d bytes exceeds %d parts of %d bytes", fileSize, MaxParts, MaxPartSize))
	}
	return size, nil
}

// Plan returns the descriptors covering [0, fileSize) in order, numbered from 1.
func Plan(fileSize, maxPartSize int64) ([]uploadtypes.PartDescriptor, error) {
	size, err := PartSize(fileSize, maxPartSize)
	if err != nil {
		return nil, err
	}

	count := partCount(fileSize, size)
	parts := make([]uploadtypes.PartDescriptor, 0, count)
	for i := int64(0); i < count; i++ {
		start := i * size
		parts = append(parts, uploadtypes.PartDescriptor{
			PartNumber: int32(i + 1),
			Start:      start,
			End:        min(start+size, fileSize),
		})
	}
	return parts, nil
}

// partCount is ceil(fileSize/size) without the overflow of fileSize+size-1.
func partCount(fileSize, size int64) int64 {
	n := fileSize / size
	if fileSize%size != 0 {
		n++
	}
	return n
}
