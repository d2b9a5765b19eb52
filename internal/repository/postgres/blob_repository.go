package postgres

import (
	"context"
	"fmt"

	"github.com/opencivic/dispofix/internal/remediate"
)

// compile-time check that BlobRepository satisfies the enumerator contract.
var _ remediate.BlobSource = (*BlobRepository)(nil)

// BlobRepository enumerates stored-object records. Pages are fetched with a
// keyset cursor on the primary key so ordering is stable across pages of the
// same run and memory stays bounded regardless of inventory size. The cursor
// is single-pass; a new run starts from zero.
type BlobRepository struct {
	db *DB
}

func NewBlobRepository(db *DB) *BlobRepository {
	return &BlobRepository{db: db}
}

type blobRow struct {
	ID          int64  `db:"id"`
	Key         string `db:"key"`
	Filename    string `db:"filename"`
	ContentType string `db:"content_type"`
}

// Count returns the total blob inventory size.
func (r *BlobRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.withSem(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM active_storage_blobs`)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count blobs: %w", err)
	}
	return total, nil
}

// NextBatch returns up to limit blobs with id > afterID in id order, together
// with the id of the last row for the next cursor position.
func (r *BlobRepository) NextBatch(ctx context.Context, afterID int64, limit int) ([]remediate.BlobRef, int64, error) {
	var rows []blobRow
	err := r.db.withSem(ctx, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &rows, `
			SELECT id, key, filename, COALESCE(content_type, '') AS content_type
			FROM active_storage_blobs
			WHERE id > $1
			ORDER BY id
			LIMIT $2`, afterID, limit)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch blob batch after id %d: %w", afterID, err)
	}

	refs := make([]remediate.BlobRef, len(rows))
	lastID := afterID
	for i, row := range rows {
		refs[i] = remediate.BlobRef{
			Key:         row.Key,
			Filename:    row.Filename,
			ContentType: row.ContentType,
		}
		lastID = row.ID
	}
	return refs, lastID, nil
}
