package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Repository handles archive entry persistence
type Repository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewRepository creates a new archive repository
func NewRepository(db *sql.DB, log *logger.Logger) *Repository {
	return &Repository{db: db, logger: log}
}

// InsertTx writes an archive entry inside the caller's transaction. The row
// is flushed, not committed: it becomes durable only when the surrounding
// delete commits, which is what keeps snapshot and deletion atomic.
func (r *Repository) InsertTx(ctx context.Context, tx *sql.Tx, entry *types.ArchiveEntry) (int64, error) {
	if entry.DeletedAt.IsZero() {
		entry.DeletedAt = time.Now().UTC()
	}

	err := tx.QueryRowContext(ctx, `
		INSERT INTO archive_entries (entity_type, entity_id, deleted_by, deleted_at, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		entry.EntityType,
		entry.EntityID,
		entry.DeletedBy,
		entry.DeletedAt,
		[]byte(entry.Data),
	).Scan(&entry.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert archive entry: %w", err)
	}
	return entry.ID, nil
}

// GetByID retrieves one archive entry with its payload
func (r *Repository) GetByID(ctx context.Context, id int64) (*types.ArchiveEntry, error) {
	var entry types.ArchiveEntry
	var deletedBy sql.NullInt64
	var data []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT id, entity_type, entity_id, deleted_by, deleted_at, data
		FROM archive_entries
		WHERE id = $1`, id,
	).Scan(&entry.ID, &entry.EntityType, &entry.EntityID, &deletedBy, &entry.DeletedAt, &data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("archive entry %d not found", id))
		}
		return nil, fmt.Errorf("failed to get archive entry: %w", err)
	}

	if deletedBy.Valid {
		entry.DeletedBy = &deletedBy.Int64
	}
	entry.Data = json.RawMessage(data)
	return &entry, nil
}

// List returns archive entries newest first, payloads included so the
// service can build display summaries without a second round trip.
func (r *Repository) List(ctx context.Context, entityType string) ([]*types.ArchiveEntry, error) {
	query := `
		SELECT id, entity_type, entity_id, deleted_by, deleted_at, data
		FROM archive_entries`
	args := []interface{}{}
	if entityType != "" {
		query += " WHERE entity_type = $1"
		args = append(args, entityType)
	}
	query += " ORDER BY deleted_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive entries: %w", err)
	}
	defer rows.Close()

	var entries []*types.ArchiveEntry
	for rows.Next() {
		var entry types.ArchiveEntry
		var deletedBy sql.NullInt64
		var data []byte
		if err := rows.Scan(&entry.ID, &entry.EntityType, &entry.EntityID, &deletedBy, &entry.DeletedAt, &data); err != nil {
			return nil, fmt.Errorf("failed to scan archive row: %w", err)
		}
		if deletedBy.Valid {
			entry.DeletedBy = &deletedBy.Int64
		}
		entry.Data = json.RawMessage(data)
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archive rows: %w", err)
	}
	return entries, nil
}

// Delete removes an archive entry. Purge uses this; the snapshot is gone
// for good afterwards. Restore never touches the entry, so a snapshot can
// be restored any number of times until it is purged.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM archive_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete archive entry: %w", err)
	}
	return checkDeleted(result, id)
}

func checkDeleted(result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("archive entry %d not found", id))
	}
	return nil
}
