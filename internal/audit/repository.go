package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Repository persists audit rows for destructive operations. Writes are
// best-effort from the caller's point of view but failures are still
// returned so services can log them.
type Repository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewRepository creates a new audit repository
func NewRepository(db *sql.DB, log *logger.Logger) *Repository {
	return &Repository{db: db, logger: log}
}

// Record inserts one audit row
func (r *Repository) Record(ctx context.Context, entry *types.AuditLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO audit_logs (user_id, action, entity_id, entity_type, timestamp, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		entry.UserID,
		entry.Action,
		entry.EntityID,
		entry.EntityType,
		entry.Timestamp,
		entry.Details,
	).Scan(&entry.ID)
	if err != nil {
		r.logger.WithError(err).Error("Failed to record audit entry")
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// ListForEntity returns the audit trail for one entity newest first
func (r *Repository) ListForEntity(ctx context.Context, entityType string, entityID int64) ([]*types.AuditLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, action, entity_id, entity_type, timestamp, details
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY timestamp DESC`,
		entityType, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*types.AuditLogEntry
	for rows.Next() {
		var e types.AuditLogEntry
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.EntityID, &e.EntityType, &e.Timestamp, &details); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		e.Details = details.String
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}
	return entries, nil
}
