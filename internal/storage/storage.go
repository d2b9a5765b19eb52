package storage

import "context"

// ObjectStore captures the minimal S3-compatible operations the remediation
// pipeline needs. The only mutation is a copy-in-place with a metadata REPLACE
// directive, which rewrites an object's stored headers without touching its
// content bytes. The operation is idempotent: re-running it with the same
// inputs leaves the object in the same end state.
type ObjectStore interface {
	CopyInPlace(ctx context.Context, key, contentType, contentDisposition string) error
}
