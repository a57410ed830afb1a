package dashboard

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Anandhalagan/LIMS/pkg/logger"
	"github.com/Anandhalagan/LIMS/pkg/types"
)

// Snapshot is one immutable set of dashboard counters
type Snapshot struct {
	OrdersToday    int `json:"orders_today"`
	PendingResults int `json:"pending_results"`
	CompletedToday int `json:"completed_today"`
	TotalPatients  int `json:"total_patients"`
}

// Repository runs the dashboard aggregate queries
type Repository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewRepository creates a new dashboard repository
func NewRepository(db *sql.DB, log *logger.Logger) *Repository {
	return &Repository{db: db, logger: log}
}

// Counts queries all dashboard counters
func (r *Repository) Counts(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot

	queries := []struct {
		dest  *int
		query string
		args  []interface{}
	}{
		{&snap.OrdersToday, `SELECT COUNT(*) FROM orders WHERE order_date::date = CURRENT_DATE`, nil},
		{&snap.PendingResults, `SELECT COUNT(*) FROM orders WHERE status = $1`, []interface{}{types.OrderStatusPending}},
		{&snap.CompletedToday, `
			SELECT COUNT(*) FROM orders o
			JOIN results r ON r.order_id = o.id
			WHERE o.status = $1 AND r.result_date::date = CURRENT_DATE`, []interface{}{types.OrderStatusCompleted}},
		{&snap.TotalPatients, `SELECT COUNT(*) FROM patients`, nil},
	}

	for _, q := range queries {
		if err := r.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("failed to query dashboard counts: %w", err)
		}
	}
	return &snap, nil
}
