package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/fastclip/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.EntryFile = (*EntryBlobRepo)(nil)

// EntryBlobRepo stores the encrypted history array as the single row of the
// entry_blob table. A rewrite is one upsert, so it either fully lands or
// leaves the previous array in place.
type EntryBlobRepo struct {
	db *DB
}

// NewEntryBlobRepo creates a new EntryBlobRepo.
func NewEntryBlobRepo(db *DB) *EntryBlobRepo {
	return &EntryBlobRepo{db: db}
}

// ReadAll returns the stored array, or nil when nothing was written yet.
func (r *EntryBlobRepo) ReadAll(ctx context.Context) ([]byte, error) {
	const query = `SELECT data FROM entry_blob WHERE id = 1`

	var data []byte
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read entry blob: %w", err)
	}
	return data, nil
}

// Rewrite replaces the stored array with data.
func (r *EntryBlobRepo) Rewrite(ctx context.Context, data []byte) error {
	const query = `
		INSERT INTO entry_blob (id, data, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`

	if data == nil {
		data = []byte{}
	}
	if _, err := r.db.Writer.ExecContext(ctx, query, data); err != nil {
		return fmt.Errorf("rewrite entry blob: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (r *EntryBlobRepo) Close() error {
	return r.db.Close()
}
