package storage

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"
)

// Sentinel errors for object-store operations.
var (
	// ErrObjectNotFound means the object vanished between listing and
	// remediation. Callers classify it separately from other copy failures.
	ErrObjectNotFound = errors.New("storage: object not found")

	ErrCopyFailed = errors.New("storage: copy failed")
)

// wrapCopyError maps S3 API errors onto sentinel errors. Uses %v (not %w) for
// the original error so callers match with errors.Is on the sentinels rather
// than digging for SDK types.
func wrapCopyError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrCopyFailed, err)
}
