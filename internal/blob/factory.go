package blob

import (
	"context"
	"fmt"
	"os"

	blobfs "github.com/radome/sequencescape/internal/infra/blob/fs"
	blobmemory "github.com/radome/sequencescape/internal/infra/blob/memory"
	blobs3 "github.com/radome/sequencescape/internal/infra/blob/s3"
)

// NewFilesystem returns a filesystem-backed archive rooted at root
// (default ./archive when empty).
func NewFilesystem(root string) (Store, error) {
	return blobfs.New(root)
}

// NewMemory returns an in-process archive for tests and demos.
func NewMemory() Store {
	return blobmemory.New()
}

// NewS3 returns an archive backed by an S3-compatible bucket.
func NewS3(ctx context.Context, cfg blobs3.Config) (Store, error) {
	return blobs3.New(ctx, cfg)
}

// NewMockS3ForTests returns an S3 archive wired to an in-memory fake
// transport, so integration tests can cover the S3 code path offline.
func NewMockS3ForTests() Store {
	return blobs3.NewMockForTests()
}

// Open selects an archive backend from environment variables:
//
//	SEQUENCESCAPE_ARCHIVE_DRIVER: fs|s3|memory (default fs)
//	SEQUENCESCAPE_ARCHIVE_FS_ROOT: directory root when driver=fs
//	(S3 variables documented in the s3 package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("SEQUENCESCAPE_ARCHIVE_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("SEQUENCESCAPE_ARCHIVE_FS_ROOT"))
	case DriverS3:
		return blobs3.OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown archive driver %s", driver)
	}
}
