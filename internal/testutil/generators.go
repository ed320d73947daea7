package testutil

import (
	"math/rand"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

// PatternData returns size bytes of a repeating, non-trivial pattern.
func PatternData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

// RandomData returns size pseudo-random bytes from a seeded source.
func RandomData(seed int64, size int) []byte {
	data := make([]byte, size)
	_, _ = rand.New(rand.NewSource(seed)).Read(data)
	return data
}

// MemFS returns an in-memory filesystem holding the given files.
func MemFS(t *testing.T, files map[string][]byte) billy.Filesystem {
	t.Helper()

	fs := memfs.New()
	for name, data := range files {
		require.NoError(t, util.WriteFile(fs, name, data, 0o644))
	}
	return fs
}

// Split returns descriptors cutting size bytes into parts of partSize.
func Split(size, partSize int64) []uploadtypes.PartDescriptor {
	var parts []uploadtypes.PartDescriptor
	for start, n := int64(0), int32(1); start < size; start, n = start+partSize, n+1 {
		parts = append(parts, uploadtypes.PartDescriptor{
			PartNumber: n,
			Start:      start,
			End:        min(start+partSize, size),
		})
	}
	return parts
}

// Presign attaches PartServer URLs for object to descriptors.
func (ps *PartServer) Presign(object string, parts []uploadtypes.PartDescriptor) []uploadtypes.PresignedPart {
	out := make([]uploadtypes.PresignedPart, len(parts))
	for i, p := range parts {
		out[i] = uploadtypes.PresignedPart{PartDescriptor: p, URL: ps.PartURL(object, p.PartNumber)}
	}
	return out
}
